package client

import (
	"encoding/base64"
	"net/http/httptest"
	"testing"

	"github.com/depotd/depot/registry"
	"github.com/depotd/depot/server"
	"github.com/depotd/depot/store"
)

// newTestConnection starts a depot server on in-memory stores and returns a
// Connection pointed at it.
func newTestConnection(t *testing.T) (*Connection, func()) {
	s := &server.RESTServer{Blobs: store.NewMemory()}
	h, err := s.Handler()
	if err != nil {
		t.Fatalf("Handler: %s", err.Error())
	}
	ts := httptest.NewServer(h)
	return &Connection{HostURL: ts.URL}, ts.Close
}

func TestIngestGetRoundtrip(t *testing.T) {
	conn, closer := newTestConnection(t)
	defer closer()

	content := base64.StdEncoding.EncodeToString([]byte("archive bytes"))
	rec, err := conn.Ingest(registry.IngestRequest{
		Content:  content,
		Name:     "left-pad",
		Metadata: &registry.PackageMeta{Version: "1.2.3"},
	})
	if err != nil {
		t.Fatalf("Ingest: %s", err.Error())
	}
	if rec.Metadata.ID != registry.Identity("left-pad", "1.2.3") {
		t.Errorf("Got id %s", rec.Metadata.ID)
	}

	got, err := conn.Get(rec.Metadata.ID)
	if err != nil {
		t.Fatalf("Get: %s", err.Error())
	}
	if got.Data.Content != content {
		t.Errorf("Got content %q, expected %q", got.Data.Content, content)
	}

	// duplicates are rejected by the server
	_, err = conn.Ingest(registry.IngestRequest{
		Content:  content,
		Name:     "left-pad",
		Metadata: &registry.PackageMeta{Version: "1.2.3"},
	})
	if err == nil {
		t.Error("Got nil, expected error for duplicate publish")
	}

	_, err = conn.Get("deadbeef")
	if err != ErrNotFound {
		t.Errorf("Got %v, expected ErrNotFound", err)
	}
}

func TestListPaging(t *testing.T) {
	conn, closer := newTestConnection(t)
	defer closer()

	content := base64.StdEncoding.EncodeToString([]byte("x"))
	names := []string{"alpha", "beta", "gamma"}
	for _, name := range names {
		_, err := conn.Ingest(registry.IngestRequest{
			Content:  content,
			Name:     name,
			Metadata: &registry.PackageMeta{Version: "1.0.0"},
		})
		if err != nil {
			t.Fatalf("Ingest %s: %s", name, err.Error())
		}
	}

	page, next, err := conn.List([]registry.QueryFilter{{Name: "*"}}, 0)
	if err != nil {
		t.Fatalf("List: %s", err.Error())
	}
	if len(page) != len(names) {
		t.Errorf("Got %d packages, expected %d", len(page), len(names))
	}
	if next != -1 {
		t.Errorf("Got next offset %d, expected -1", next)
	}

	page, _, err = conn.List([]registry.QueryFilter{{Name: "beta"}}, 0)
	if err != nil {
		t.Fatalf("List: %s", err.Error())
	}
	if len(page) != 1 || page[0].Name != "beta" {
		t.Errorf("Got %+v, expected only beta", page)
	}

	all, err := conn.ListAll(nil)
	if err != nil {
		t.Fatalf("ListAll: %s", err.Error())
	}
	if len(all) != len(names) {
		t.Errorf("Got %d packages, expected %d", len(all), len(names))
	}
}

func TestReset(t *testing.T) {
	conn, closer := newTestConnection(t)
	defer closer()

	_, err := conn.Ingest(registry.IngestRequest{
		Content:  base64.StdEncoding.EncodeToString([]byte("x")),
		Name:     "pkg",
		Metadata: &registry.PackageMeta{Version: "1.0.0"},
	})
	if err != nil {
		t.Fatalf("Ingest: %s", err.Error())
	}
	if err := conn.Reset(); err != nil {
		t.Fatalf("Reset: %s", err.Error())
	}
	all, err := conn.ListAll(nil)
	if err != nil {
		t.Fatalf("ListAll: %s", err.Error())
	}
	if len(all) != 0 {
		t.Errorf("Got %d packages after reset, expected 0", len(all))
	}
}
