package registry

import "testing"

func TestIdentityDeterministic(t *testing.T) {
	a := Identity("left-pad", "1.0.0")
	b := Identity("left-pad", "1.0.0")
	if a != b {
		t.Errorf("Got %s and %s for the same inputs", a, b)
	}
	if len(a) != 64 {
		t.Errorf("Got identifier of length %d, expected 64", len(a))
	}
}

func TestIdentityUnique(t *testing.T) {
	// no two distinct (name, version) pairs may share an identifier,
	// including pairs that concatenate to the same string
	var pairs = []struct{ name, version string }{
		{"left-pad", "1.0.0"},
		{"left-pad", "1.0.1"},
		{"left-pad", "2.0.0"},
		{"right-pad", "1.0.0"},
		{"ab", "c"},
		{"a", "bc"},
		{"", "1.0.0"},
		{"x", ""},
	}
	seen := make(map[string]int)
	for i, p := range pairs {
		id := Identity(p.name, p.version)
		if j, ok := seen[id]; ok {
			t.Errorf("Pairs %d and %d both map to %s", i, j, id)
		}
		seen[id] = i
	}
}

func TestBlobKey(t *testing.T) {
	key := BlobKey("left-pad", "1.2.3")
	if key != "packages/left-pad/v1.2.3/package.zip" {
		t.Errorf("Got %s", key)
	}
}
