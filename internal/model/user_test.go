package model

import (
	"context"
	"testing"
)

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role     string
		minimum  string
		expected bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleStaff, true},
		{RoleStaff, RoleAdmin, false},
		{RoleStaff, RoleStaff, true},
		// Unknown roles fail-closed.
		{"unknown", RoleStaff, false},
		{RoleAdmin, "unknown", false},
		{"", "", false},
		{"", RoleStaff, false},
	}

	for _, tt := range tests {
		got := RoleAtLeast(tt.role, tt.minimum)
		if got != tt.expected {
			t.Errorf("RoleAtLeast(%q, %q) = %v, want %v", tt.role, tt.minimum, got, tt.expected)
		}
	}
}

func TestValidRole(t *testing.T) {
	for _, role := range []string{RoleAdmin, RoleStaff} {
		if !ValidRole(role) {
			t.Errorf("ValidRole(%q) = false, want true", role)
		}
	}
	for _, role := range []string{"", "user", "Admin"} {
		if ValidRole(role) {
			t.Errorf("ValidRole(%q) = true, want false", role)
		}
	}
}

func TestUserContext(t *testing.T) {
	ctx := context.Background()
	if UserFromContext(ctx) != nil {
		t.Fatal("expected no user on empty context")
	}

	u := &User{ID: 1, Username: "ADMIN", Role: RoleAdmin}
	got := UserFromContext(ContextWithUser(ctx, u))
	if got != u {
		t.Errorf("expected user from context, got %+v", got)
	}
	if !got.IsAdmin() {
		t.Error("expected admin")
	}

	var none *User
	if none.IsAdmin() {
		t.Error("nil user must not be admin")
	}
}
