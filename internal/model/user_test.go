package model

import (
	"fmt"
	"sort"
	"strings"
	"testing"
)

func TestUserSnapshotExcludesPasswordMaterial(t *testing.T) {
	email := "alice@example.com"
	u := &User{
		Username:           "alice",
		DisplayName:        "Alice Ops",
		Email:              &email,
		PasswordHash:       "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		PasswordAlgo:       HashArgon2id,
		Role:               RoleAdmin,
		IsActive:           true,
		MustChangePassword: true,
	}

	snapshot := u.Snapshot()

	// The key set is fixed; a new field reaching the snapshot must be an
	// explicit decision, never an accident.
	want := []string{"display_name", "email", "is_active", "role_code", "username"}
	var got []string
	for k := range snapshot {
		got = append(got, k)
	}
	sort.Strings(got)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("snapshot keys = %v, want %v", got, want)
	}

	for k, v := range snapshot {
		s := fmt.Sprintf("%v", v)
		if strings.Contains(s, u.PasswordHash) {
			t.Errorf("snapshot field %q carries the password hash", k)
		}
		if s == string(u.PasswordAlgo) {
			t.Errorf("snapshot field %q carries the algorithm tag", k)
		}
	}
}
