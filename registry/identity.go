package registry

import (
	"crypto/sha256"
	"encoding/hex"
)

// DefaultVersion is assumed when a publish request carries no version at all.
const DefaultVersion = "1.0.0"

// identityNamespace keeps package identifiers from colliding with any other
// hashed namespace we may add later. Changing it invalidates every stored
// identifier.
const identityNamespace = "depot:package"

// Identity derives the package identifier for a (name, version) pair. It is
// a pure function: equal pairs always give the same identifier, and distinct
// pairs give distinct identifiers up to the collision resistance of SHA-256.
// The NUL separators keep ("ab","c") and ("a","bc") apart.
func Identity(name, version string) string {
	h := sha256.New()
	h.Write([]byte(identityNamespace))
	h.Write([]byte{0})
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write([]byte(version))
	return hex.EncodeToString(h.Sum(nil))
}

// BlobKey is the deterministic blob store key for a package's archive.
// The layout is fixed; external tools rely on it.
func BlobKey(name, version string) string {
	return "packages/" + name + "/v" + version + "/package.zip"
}

// BlobPrefix is the key prefix under which all package archives live.
const BlobPrefix = "packages/"
