package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{name: "simple", key: "ideas-list"},
		{name: "namespaced", key: "idea-detail:42"},
		{name: "max length", key: strings.Repeat("k", MaxKeyLength)},
		{name: "empty", key: "", wantErr: ErrInvalidKey},
		{name: "blank", key: "   ", wantErr: ErrInvalidKey},
		{name: "newline", key: "a\nb", wantErr: ErrInvalidKey},
		{name: "carriage return", key: "a\rb", wantErr: ErrInvalidKey},
		{name: "nul", key: "a\x00b", wantErr: ErrInvalidKey},
		{name: "too long", key: strings.Repeat("k", MaxKeyLength+1), wantErr: ErrKeyTooLong},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateKey(tc.key)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestValidateTag(t *testing.T) {
	for _, tag := range []string{"ideas", "idea:42", "user-profile"} {
		if err := ValidateTag(tag); err != nil {
			t.Errorf("ValidateTag(%q) = %v", tag, err)
		}
	}
	for _, tag := range []string{"", " ", "a\nb", strings.Repeat("t", MaxTagLength+1)} {
		if err := ValidateTag(tag); !errors.Is(err, ErrInvalidTag) {
			t.Errorf("ValidateTag(%q) = %v, want ErrInvalidTag", tag, err)
		}
	}
}

type idea struct {
	ID    string
	Title string
}

func TestFetch_Typed(t *testing.T) {
	c := NewMemoryCache(DefaultPolicy())
	ctx := context.Background()

	calls := 0
	load := func(context.Context) ([]idea, error) {
		calls++
		return []idea{{ID: "1", Title: "first"}}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := Fetch(ctx, c, "ideas-list", 5*time.Second, []string{"ideas"}, load)
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if len(got) != 1 || got[0].Title != "first" {
			t.Fatalf("unexpected value %+v", got)
		}
	}
	if calls != 1 {
		t.Errorf("loader calls = %d, want 1", calls)
	}
}

func TestFetch_TypeMismatch(t *testing.T) {
	c := NewMemoryCache(DefaultPolicy())
	ctx := context.Background()

	if _, err := Fetch(ctx, c, "k", time.Minute, nil, func(context.Context) (string, error) { return "s", nil }); err != nil {
		t.Fatal(err)
	}
	_, err := Fetch(ctx, c, "k", time.Minute, nil, func(context.Context) (int, error) { return 1, nil })
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestFetch_Errors(t *testing.T) {
	ctx := context.Background()
	load := func(context.Context) (int, error) { return 1, nil }

	if _, err := Fetch[int](ctx, nil, "k", time.Minute, nil, load); !errors.Is(err, ErrNilCache) {
		t.Errorf("nil cache: %v", err)
	}
	if _, err := Fetch[int](ctx, NewMemoryCache(DefaultPolicy()), "k", time.Minute, nil, nil); !errors.Is(err, ErrNilFetcher) {
		t.Errorf("nil loader: %v", err)
	}

	boom := errors.New("boom")
	_, err := Fetch(ctx, NewMemoryCache(DefaultPolicy()), "k", time.Minute, nil, func(context.Context) (int, error) { return 0, boom })
	if !errors.Is(err, boom) {
		t.Errorf("loader error: %v", err)
	}
}
