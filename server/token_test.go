package server

import (
	"strings"
	"testing"
)

func TestListDecoder(t *testing.T) {
	const keyfile = `
# comment line
alice admin secret-a
bob write secret-b
carol read secret-c
mallory badrole secret-m
short line
`
	dec, err := NewListDecoder(strings.NewReader(keyfile))
	if err != nil {
		t.Fatalf("NewListDecoder: %s", err.Error())
	}
	var table = []struct {
		key  string
		user string
		role Role
	}{
		{"secret-a", "alice", RoleAdmin},
		{"secret-b", "bob", RoleWrite},
		{"secret-c", "carol", RoleRead},
		{"secret-m", "mallory", RoleUnknown},
		{"no-such-key", "", RoleUnknown},
		{"", "", RoleUnknown},
	}
	for _, s := range table {
		user, role, err := dec.DecodeKey(s.key)
		if err != nil {
			t.Errorf("DecodeKey(%q): %s", s.key, err.Error())
		}
		if user != s.user || role != s.role {
			t.Errorf("DecodeKey(%q) = (%q, %v), expected (%q, %v)",
				s.key, user, role, s.user, s.role)
		}
	}
}

func TestOpenDecoder(t *testing.T) {
	user, role, err := NewOpenDecoder().DecodeKey("anything at all")
	if err != nil || user != "nobody" || role != RoleAdmin {
		t.Errorf("Got (%q, %v, %v), expected nobody/admin", user, role, err)
	}
}
