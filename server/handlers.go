package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"github.com/depotd/depot/registry"
)

// IngestHandler handles POST /package.
func (s *RESTServer) IngestHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req registry.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(400)
		fmt.Fprintln(w, "bad request body:", err.Error())
		return
	}
	rec, err := s.registry.Ingest(req)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(201)
	json.NewEncoder(w).Encode(rec)
}

// RetrieveHandler handles GET /package/:id.
func (s *RESTServer) RetrieveHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	rec, err := s.registry.Retrieve(ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(rec)
}

// ListHandler handles POST /packages. The body is a JSON array of filters;
// the page offset comes from the "offset" query parameter.
func (s *RESTServer) ListHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var filters []registry.QueryFilter
	if err := json.NewDecoder(r.Body).Decode(&filters); err != nil {
		w.WriteHeader(400)
		fmt.Fprintln(w, "bad request body:", err.Error())
		return
	}
	var offset int
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			w.WriteHeader(400)
			fmt.Fprintln(w, "bad offset")
			return
		}
		offset = n
	}
	result, err := s.registry.List(filters, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(result)
}

// ResetHandler handles DELETE /reset.
func (s *RESTServer) ResetHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := s.registry.Reset(); err != nil {
		writeError(w, err)
		return
	}
	fmt.Fprintln(w, "registry reset")
}

// RateHandler handles GET /package/:id/rate. Scoring happens in an external
// collaborator; this route only fronts it.
func (s *RESTServer) RateHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	info, err := s.meta.Lookup(ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if info == nil {
		w.WriteHeader(404)
		fmt.Fprintln(w, "no such package")
		return
	}
	if s.Scorer == nil {
		w.WriteHeader(501)
		fmt.Fprintln(w, "no scorer configured")
		return
	}
	repo := info.Origin.URL
	if repo == "" {
		repo = info.Name
	}
	score, err := s.Scorer.Score(repo)
	if err != nil {
		w.WriteHeader(502)
		fmt.Fprintln(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(score)
}

// writeError maps a registry error kind onto an HTTP status and writes the
// message. Unknown errors are treated as server faults.
func writeError(w http.ResponseWriter, err error) {
	var status int
	switch registry.KindOf(err) {
	case registry.KindValidation:
		status = 400
	case registry.KindNotFound:
		status = 404
	case registry.KindConflict:
		status = 409
	case registry.KindUpstream:
		status = 502
	default:
		status = 500
	}
	w.WriteHeader(status)
	fmt.Fprintln(w, err.Error())
}
