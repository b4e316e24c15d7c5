package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "migrate")
}

func TestMigrateRequiresPostgres(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONTENTCORE_AUTH_JWT_SECRET", "s")
	t.Setenv("CONTENTCORE_STORE_DRIVER", "memory")

	root := newRootCmd()
	root.SetArgs([]string{"migrate"})
	root.SetOut(new(bytes.Buffer))
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errNotPostgres)
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONTENTCORE_AUTH_JWT_SECRET", "")
	t.Setenv("CONTENTCORE_AUTH_JWKS_URL", "")

	root := newRootCmd()
	root.SetArgs([]string{"serve", "--addr", ":0"})
	err := root.ExecuteContext(context.Background())
	assert.Error(t, err)
}
