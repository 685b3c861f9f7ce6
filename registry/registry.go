package registry

import (
	"bytes"
	"encoding/base64"
	"io"
	"io/ioutil"

	"github.com/depotd/depot/store"
)

// Registry ties the blob store and the metadata store together. Construct
// one with explicit store handles; there is no package-level state. All
// methods are safe for concurrent use as long as the underlying stores are.
//
// Publishing is a multi-step write: the archive goes to the blob store
// first, then the metadata rows are inserted. There is no transaction
// spanning the two stores, so a failure after the blob write leaves an
// orphaned blob behind. The metadata inserts themselves do run in one
// transaction.
type Registry struct {
	// Blobs holds the raw package archives.
	Blobs store.Store

	// Meta holds the package rows.
	Meta MetadataStore

	// Resolver extracts name/version from archives when a publish request
	// does not supply them. May be nil, in which case such requests fail
	// validation.
	Resolver OriginResolver

	// Fetcher downloads archives for URL-based publishes. When nil a
	// plain HTTP fetcher is used.
	Fetcher Fetcher
}

// Ingest publishes a new package. See IngestRequest for the request shape.
// Exactly one of Content and URL must be set. The returned record echoes the
// archive bytes that were just uploaded; it never reads them back from the
// blob store.
func (r *Registry) Ingest(req IngestRequest) (*PackageRecord, error) {
	if (req.Content == "") == (req.URL == "") {
		return nil, NewError(KindValidation, "exactly one of Content and URL must be given")
	}

	// decode inline content up front so resolution can look at it
	var data []byte
	if req.Content != "" {
		var err error
		data, err = base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			return nil, WrapError(KindValidation, err, "Content is not valid base64")
		}
	}

	name, version, err := r.effectiveNameVersion(req, data)
	if err != nil {
		return nil, err
	}

	// Whatever ID the client sent is recomputed and overwritten here. A
	// mismatched client ID is not an error.
	pkg := Package{ID: Identity(name, version), Name: name, Version: version}

	exists, err := r.Meta.Exists(pkg.ID)
	if err != nil {
		return nil, wrapUpstream(err, "checking for existing package")
	}
	if exists {
		return nil, NewError(KindConflict, "package %s@%s already exists", name, version)
	}

	// URL-based publishes download only after the duplicate check, so a
	// conflicting publish does no network work.
	if req.URL != "" {
		f := r.Fetcher
		if f == nil {
			f = HTTPFetcher{}
		}
		data, err = f.Fetch(req.URL)
		if err != nil {
			return nil, wrapUpstream(err, "downloading archive")
		}
	}

	// Step one of the dual-store write: the blob. A failure here aborts
	// the publish before any metadata row exists.
	key := BlobKey(name, version)
	w, err := r.Blobs.Create(key)
	if err != nil {
		return nil, wrapUpstream(err, "creating archive blob")
	}
	_, err = io.Copy(w, bytes.NewReader(data))
	cerr := w.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		return nil, wrapUpstream(err, "writing archive blob")
	}

	// Step two: the metadata rows. The store inserts the package row, the
	// metadata row, and the origin row in that order. If this fails the
	// blob above is orphaned; there is no compensating delete.
	origin := Origin{
		ContentInline: req.Content != "",
		URL:           req.URL,
		Debloat:       req.Debloat,
	}
	err = r.Meta.Insert(pkg, req.JSProgram, origin)
	if err != nil {
		if KindOf(err) != KindUnknown {
			return nil, err
		}
		return nil, wrapUpstream(err, "inserting package rows")
	}

	content := req.Content
	if content == "" {
		content = base64.StdEncoding.EncodeToString(data)
	}
	return &PackageRecord{
		Metadata: PackageMeta{Name: name, Version: version, ID: pkg.ID},
		Data:     PackageData{Content: content, JSProgram: req.JSProgram},
	}, nil
}

// effectiveNameVersion applies the field precedence for publish requests:
// explicit request field, then metadata field, then resolver output, with
// DefaultVersion as the last resort for the version.
func (r *Registry) effectiveNameVersion(req IngestRequest, content []byte) (string, string, error) {
	name := req.Name
	var version string
	if req.Metadata != nil {
		if name == "" {
			name = req.Metadata.Name
		}
		version = req.Metadata.Version
	}

	if (name == "" || version == "") && r.Resolver != nil {
		var info OriginInfo
		var err error
		if req.URL != "" {
			info, err = r.Resolver.ResolveFromURL(req.URL)
		} else {
			info, err = r.Resolver.ResolveFromContent(content)
		}
		if err != nil {
			return "", "", wrapUpstream(err, "resolving package origin")
		}
		if name == "" {
			name = info.Name
		}
		if version == "" {
			version = info.Version
		}
	}

	if name == "" {
		return "", "", NewError(KindValidation, "package name could not be determined")
	}
	if version == "" {
		version = DefaultVersion
	}
	return name, version, nil
}

// Retrieve returns the full record for a published package, including the
// archive bytes read back from the blob store.
func (r *Registry) Retrieve(id string) (*PackageRecord, error) {
	info, err := r.Meta.Lookup(id)
	if err != nil {
		return nil, wrapUpstream(err, "looking up package")
	}
	if info == nil {
		return nil, NewError(KindNotFound, "no package with id %s", id)
	}

	rac, size, err := r.Blobs.Open(BlobKey(info.Name, info.Version))
	if err != nil {
		return nil, wrapUpstream(err, "opening archive blob")
	}
	data, err := ioutil.ReadAll(io.LimitReader(store.NewReader(rac), size))
	rac.Close()
	if err != nil {
		return nil, wrapUpstream(err, "reading archive blob")
	}

	return &PackageRecord{
		Metadata: PackageMeta{Name: info.Name, Version: info.Version, ID: info.ID},
		Data: PackageData{
			Content:   base64.StdEncoding.EncodeToString(data),
			JSProgram: info.JSProgram,
		},
	}, nil
}

// List answers a version-range query. A single filter whose Name is "*"
// matches every package; its Version is ignored. Otherwise each filter's
// fields combine with AND and the filters combine with OR. Results come in
// pages of PageSize, and NextOffset reports where the next page starts, or
// nil if this page was short.
func (r *Registry) List(filters []QueryFilter, offset int) (*ListResult, error) {
	if offset < 0 {
		offset = 0
	}

	var parsed []Filter
	if !(len(filters) == 1 && filters[0].Name == "*") {
		for _, qf := range filters {
			f := Filter{Name: qf.Name, ID: qf.ID}
			if qf.Version != "" {
				spec, err := ParseVersionSpec(qf.Version)
				if err != nil {
					return nil, err
				}
				f.Version = &spec
			}
			parsed = append(parsed, f)
		}
	}

	pkgs, err := r.Meta.Search(parsed, offset, PageSize)
	if err != nil {
		return nil, wrapUpstream(err, "searching packages")
	}

	result := &ListResult{Packages: []PackageMeta{}}
	for _, p := range pkgs {
		result.Packages = append(result.Packages,
			PackageMeta{Name: p.Name, Version: p.Version, ID: p.ID})
	}
	if len(pkgs) == PageSize {
		next := offset + PageSize
		result.NextOffset = &next
	}
	return result, nil
}

// Reset wipes the registry: first every blob under the packages/ prefix,
// then the whole metadata schema. The two phases are not transactional; a
// failure stops the reset where it is and is reported as-is.
func (r *Registry) Reset() error {
	keys, err := r.Blobs.ListPrefix(BlobPrefix)
	if err != nil {
		return wrapUpstream(err, "listing archive blobs")
	}
	for _, key := range keys {
		if err := r.Blobs.Delete(key); err != nil {
			return wrapUpstream(err, "deleting archive blob")
		}
	}
	if err := r.Meta.Reset(); err != nil {
		return wrapUpstream(err, "resetting metadata store")
	}
	return nil
}

func wrapUpstream(err error, message string) *Error {
	return WrapError(KindUpstream, err, message)
}
