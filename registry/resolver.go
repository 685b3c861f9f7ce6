package registry

// OriginInfo is the name and version an origin resolver extracts from a
// package archive or a source-repository URL.
type OriginInfo struct {
	Name    string
	Version string
}

// An OriginResolver figures out the declared name and version of a package
// the registry has only raw bytes or a source URL for. The registry itself
// never looks inside archives; when a publish request does not spell out
// both fields it asks the resolver and applies the precedence
//
//	explicit request field > request metadata field > resolver output
//
// with DefaultVersion as the final fallback for the version. Resolution
// failures surface as upstream errors.
type OriginResolver interface {
	ResolveFromURL(url string) (OriginInfo, error)
	ResolveFromContent(content []byte) (OriginInfo, error)
}

// StaticResolver returns the same answer for every archive. Useful in tests
// and as a stand-in while no real resolver is wired up.
type StaticResolver struct {
	Info OriginInfo
	Err  error
}

var _ OriginResolver = StaticResolver{}

func (r StaticResolver) ResolveFromURL(url string) (OriginInfo, error) {
	return r.Info, r.Err
}

func (r StaticResolver) ResolveFromContent(content []byte) (OriginInfo, error) {
	return r.Info, r.Err
}
