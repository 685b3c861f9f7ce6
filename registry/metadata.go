package registry

// PageSize is the fixed number of rows returned per list-query page.
const PageSize = 10

// Filter is one parsed query predicate handed to a MetadataStore. Zero
// fields do not constrain. Within a filter the fields combine with AND;
// a slice of filters combines with OR. A nil or empty slice matches every
// package.
type Filter struct {
	Name    string
	ID      string
	Version *VersionSpec
}

// PackageInfo is everything the metadata store holds for one package.
type PackageInfo struct {
	Package
	JSProgram string
	Origin    Origin
}

// MetadataStore is the relational side of the registry. Implementations are
// expected to enforce uniqueness of the package identifier, so a concurrent
// duplicate publish that slips past the Exists() check still surfaces as a
// conflict from Insert().
//
// There are two SQL implementations in the server package (MySQL and the
// embedded QL database) and an in-memory one here for testing.
type MetadataStore interface {
	// Exists does a single read to see whether id has been published.
	Exists(id string) (bool, error)

	// Insert stores the package row, the metadata row, and the origin row,
	// in that order, inside one transaction. It returns a conflict error
	// if the identifier already exists.
	Insert(p Package, jsProgram string, origin Origin) error

	// Lookup returns the stored info for id, or nil if absent.
	Lookup(id string) (*PackageInfo, error)

	// Search returns matching packages ordered by (name, version, id),
	// applying the given offset and limit.
	Search(filters []Filter, offset, limit int) ([]Package, error)

	// Reset drops and reinitializes every table, including ratings.
	Reset() error

	// Close releases the underlying database handle.
	Close() error
}
