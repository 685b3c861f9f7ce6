// Package registry implements the package ingestion, identity, and query
// engine at the heart of the depot server. It coordinates two stores: a
// stream blob store holding the raw package archives (see the store package)
// and a relational metadata store holding one row set per published package.
//
// The entry point is the Registry type. Give it a blob store and a
// MetadataStore and it handles publishing new packages, retrieving them by
// identifier, answering version-range queries, and wiping everything.
//
// Package identifiers are content addresses: a deterministic hash of the
// package's name and version. The same (name, version) pair always maps to
// the same identifier, which doubles as the duplicate-publication check.
package registry
