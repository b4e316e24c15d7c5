package auth

import "testing"

func ptr(s string) *string { return &s }

func TestCanMutate(t *testing.T) {
	owner := Principal{ID: "alice"}
	other := Principal{ID: "bob"}
	admin := Principal{ID: "root", IsAdmin: true}
	anonAdmin := Principal{IsAdmin: true}

	tests := []struct {
		name  string
		p     Principal
		owner *string
		want  bool
	}{
		{name: "create authenticated", p: other, owner: nil, want: true},
		{name: "create anonymous", p: Anonymous(), owner: nil, want: false},
		{name: "update by owner", p: owner, owner: ptr("alice"), want: true},
		{name: "update by other", p: other, owner: ptr("alice"), want: false},
		{name: "update by admin", p: admin, owner: ptr("alice"), want: true},
		{name: "update anonymous", p: Anonymous(), owner: ptr("alice"), want: false},
		{name: "anonymous cannot match empty owner", p: Anonymous(), owner: ptr(""), want: false},
		{name: "admin flag without identity", p: anonAdmin, owner: ptr("alice"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanMutate(tt.p, tt.owner); got != tt.want {
				t.Errorf("CanMutate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsOwnerAndIsAdmin(t *testing.T) {
	if !IsOwner(Principal{ID: "a"}, "a") {
		t.Error("owner should match")
	}
	if IsOwner(Anonymous(), "") {
		t.Error("anonymous must never own")
	}
	if !IsAdmin(Principal{ID: "a", IsAdmin: true}) {
		t.Error("admin expected")
	}
	if IsAdmin(Principal{IsAdmin: true}) {
		t.Error("anonymous admin flag must be ignored")
	}
}

func TestPrincipal_IsExpired(t *testing.T) {
	p := Principal{ID: "a"}
	if p.IsExpired(p.ExpiresAt) {
		t.Error("zero ExpiresAt never expires")
	}
}
