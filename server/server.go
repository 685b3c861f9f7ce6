// Package server exposes a depot registry over HTTP and provides the SQL
// implementations of the registry's metadata store (MySQL for production,
// the embedded QL database for development and testing).
package server

import (
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // for the optional pprof listener
	"path/filepath"

	"github.com/facebookgo/httpdown"
	"github.com/julienschmidt/httprouter"

	"github.com/depotd/depot/registry"
	"github.com/depotd/depot/store"
)

// Version is stamped into the welcome route. Overridden at build time.
var Version = "dev"

// RESTServer holds the configuration for a depot REST API server.
//
// Set the public fields and call Run. Run listens on PortNumber and blocks
// handling requests until Stop is called. Do not change any fields after
// calling Run.
type RESTServer struct {
	// PortNumber to listen on. Defaults to 15000.
	PortNumber string
	PProfPort  string

	// Blobs is the archive blob store. Run panics if it is nil.
	Blobs store.Store

	// MySQL is a go-sql-driver dial string, e.g.
	// "user:password@tcp(localhost:3306)/depot". When empty an embedded
	// QL database is used instead, stored at DataDir/depot.ql, or held in
	// memory if DataDir is also empty.
	MySQL   string
	DataDir string

	// Resolver extracts name/version from archives for publish requests
	// that carry neither. May be nil.
	Resolver registry.OriginResolver

	// Decoder validates API keys. When nil every request is let through
	// with admin rights.
	Decoder KeyDecoder

	// Scorer computes quality scores for the rating route. When nil the
	// route answers 501.
	Scorer Scorer

	registry *registry.Registry
	meta     registry.MetadataStore
	server   httpdown.Server
}

// Handler opens the metadata store, wires the registry, and returns the
// route table as an http.Handler. Most callers want Run instead; Handler is
// for embedding the server behind a different listener, e.g. httptest.
func (s *RESTServer) Handler() (http.Handler, error) {
	if s.Blobs == nil {
		panic("no blob store given. Blobs is nil.")
	}
	if s.Decoder == nil {
		log.Println("No key decoder given, all requests are admin")
		s.Decoder = NewOpenDecoder()
	}

	var err error
	if s.MySQL != "" {
		log.Println("Using MySQL metadata store")
		s.meta, err = NewMysqlStore(s.MySQL)
	} else {
		path := "memory"
		if s.DataDir != "" {
			path = filepath.Join(s.DataDir, "depot.ql")
		}
		log.Printf("Using embedded metadata store at %s", path)
		s.meta, err = NewQlStore(path)
	}
	if err != nil {
		log.Println("metadata store:", err)
		return nil, err
	}

	s.registry = &registry.Registry{
		Blobs:    s.Blobs,
		Meta:     s.meta,
		Resolver: s.Resolver,
	}
	return s.addRoutes(), nil
}

// Run opens the metadata store, wires the registry, and serves requests.
func (s *RESTServer) Run() error {
	log.Println("==========")
	log.Printf("Starting depot server version %s", Version)

	if s.PortNumber == "" {
		s.PortNumber = "15000"
	}
	handler, err := s.Handler()
	if err != nil {
		return err
	}
	defer s.meta.Close()

	if s.PProfPort != "" {
		log.Println("Starting pprof on port", s.PProfPort)
		go func() {
			log.Println(http.ListenAndServe(":"+s.PProfPort, nil))
		}()
	}
	log.Println("Listening on", s.PortNumber)

	h := httpdown.HTTP{}
	s.server, err = h.ListenAndServe(&http.Server{
		Addr:    ":" + s.PortNumber,
		Handler: handler,
	})
	if err != nil {
		log.Println(err)
		return err
	}
	return s.server.Wait()
}

// Stop shuts down the listening socket and waits for in-flight requests.
func (s *RESTServer) Stop() error {
	return s.server.Stop()
}

func (s *RESTServer) addRoutes() http.Handler {
	var routes = []struct {
		method  string
		route   string
		role    Role // RoleUnknown means no API key is needed
		handler httprouter.Handle
	}{
		{"POST", "/package", RoleWrite, s.IngestHandler},
		{"GET", "/package/:id", RoleRead, s.RetrieveHandler},
		{"GET", "/package/:id/rate", RoleRead, s.RateHandler},
		{"POST", "/packages", RoleRead, s.ListHandler},
		{"DELETE", "/reset", RoleAdmin, s.ResetHandler},

		{"GET", "/", RoleUnknown, WelcomeHandler},
		{"GET", "/debug/vars", RoleUnknown, VarHandler},
	}

	r := httprouter.New()
	for _, route := range routes {
		r.Handle(route.method,
			route.route,
			logWrapper(s.authzWrapper(route.handler, route.role)))
	}
	return r
}

// VarHandler adapts the expvar default handler to the httprouter three
// parameter handler.
func VarHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	fmt.Fprintf(w, "{\n")
	first := true
	expvar.Do(func(kv expvar.KeyValue) {
		if !first {
			fmt.Fprintf(w, ",\n")
		}
		first = false
		fmt.Fprintf(w, "%q: %s", kv.Key, kv.Value)
	})
	fmt.Fprintf(w, "\n}\n")
}

// WelcomeHandler identifies the server.
func WelcomeHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	fmt.Fprintf(w, "depot (%s)\n", Version)
}

// authzWrapper returns a handler which first checks the API key in the
// X-Api-Key header for at least the given role.
func (s *RESTServer) authzWrapper(handler httprouter.Handle, leastRole Role) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		key := r.Header.Get("X-Api-Key")
		_, role, err := s.Decoder.DecodeKey(key)
		if err != nil {
			w.WriteHeader(500)
			fmt.Fprintln(w, err.Error())
			return
		}
		if role < leastRole {
			w.WriteHeader(401)
			fmt.Fprintln(w, "Forbidden")
			return
		}
		handler(w, r, ps)
	}
}

// logWrapper logs the request URL before handling it.
func logWrapper(handler httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		log.Println(r.Method, r.URL)
		handler(w, r, ps)
	}
}
