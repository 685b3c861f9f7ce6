package server

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// A KeyDecoder validates and decodes the API keys passed in the X-Api-Key
// header. An invalid key decodes to the user "" with RoleUnknown. An error
// is returned only when the lookup itself failed and the key's status is
// unknown.
type KeyDecoder interface {
	DecodeKey(key string) (user string, role Role, err error)
}

// Role is the access level an API key grants.
type Role int

const (
	RoleUnknown Role = iota
	RoleRead
	RoleWrite
	RoleAdmin
)

func atoRole(s string) Role {
	switch strings.ToLower(s) {
	case "read":
		return RoleRead
	case "write":
		return RoleWrite
	case "admin":
		return RoleAdmin
	default:
		return RoleUnknown
	}
}

// NewOpenDecoder makes a KeyDecoder that maps every possible key to a user
// named "nobody" with the admin role. It is the default when a server has
// no key file.
func NewOpenDecoder() KeyDecoder {
	return openDecoder{}
}

type openDecoder struct{}

func (openDecoder) DecodeKey(key string) (string, Role, error) {
	return "nobody", RoleAdmin, nil
}

// NewListDecoder reads a fixed list of keys from r. Each line has the form
//
//	<user name> <role> <key>
//
// with fields separated by whitespace, so neither user names nor keys may
// contain spaces. The role is one of "read", "write", "admin" (case
// insensitive). Blank lines and lines starting with '#' are skipped.
func NewListDecoder(r io.Reader) (KeyDecoder, error) {
	keys := make(map[string]userEntry)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if len(fields) != 3 {
			continue // wrong number of columns
		}
		keys[fields[2]] = userEntry{user: fields[0], role: atoRole(fields[1])}
	}
	return listDecoder{keys: keys}, scanner.Err()
}

// NewListDecoderFile reads the key list from the named file.
func NewListDecoderFile(fname string) (KeyDecoder, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewListDecoder(f)
}

type userEntry struct {
	user string
	role Role
}

type listDecoder struct {
	keys map[string]userEntry
}

func (ld listDecoder) DecodeKey(key string) (string, Role, error) {
	entry, ok := ld.keys[key]
	if !ok {
		return "", RoleUnknown, nil
	}
	return entry.user, entry.role, nil
}
