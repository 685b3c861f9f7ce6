package registry

// Package is the identity triple stored for every published archive. ID is
// always derived from Name and Version, see Identity().
type Package struct {
	ID      string `json:"ID"`
	Name    string `json:"Name"`
	Version string `json:"Version"`
}

// Origin records how a package's archive entered the registry. Exactly one
// origin row exists per package.
type Origin struct {
	// ContentInline is true when the archive was uploaded directly in the
	// publish request, false when it was fetched from URL.
	ContentInline bool
	URL           string
	Debloat       bool
}

// IngestRequest is a request to publish a new package. Exactly one of
// Content and URL must be set. Name and Metadata, when present, take
// precedence over whatever an origin resolver extracts from the archive.
type IngestRequest struct {
	Content   string       `json:"Content,omitempty"` // base64 archive bytes
	URL       string       `json:"URL,omitempty"`
	Debloat   bool         `json:"debloat,omitempty"`
	JSProgram string       `json:"JSProgram,omitempty"`
	Name      string       `json:"Name,omitempty"`
	Metadata  *PackageMeta `json:"metadata,omitempty"`
}

// PackageMeta is the metadata block exchanged with clients. Any ID a client
// supplies is recomputed server side and overwritten if it disagrees.
type PackageMeta struct {
	Name    string `json:"Name"`
	Version string `json:"Version"`
	ID      string `json:"ID"`
}

// PackageData is the data block exchanged with clients.
type PackageData struct {
	Content   string `json:"Content,omitempty"`
	JSProgram string `json:"JSProgram,omitempty"`
}

// PackageRecord is the full representation returned by Ingest and Retrieve.
type PackageRecord struct {
	Metadata PackageMeta `json:"metadata"`
	Data     PackageData `json:"data"`
}

// QueryFilter is one entry of a list query as received from a client. Empty
// fields do not constrain the result. Version, when present, must use one of
// the four range notations understood by ParseVersionSpec.
type QueryFilter struct {
	Name    string `json:"Name,omitempty"`
	ID      string `json:"ID,omitempty"`
	Version string `json:"Version,omitempty"`
}

// ListResult is one page of a list query. NextOffset is nil on the last
// page. The "is there more" signal is a heuristic: a page holding exactly
// PageSize entries always reports a next offset, even when the following
// page turns out to be empty.
type ListResult struct {
	Packages   []PackageMeta `json:"packages"`
	NextOffset *int          `json:"nextOffset"`
}
