package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/depotd/depot/registry"
	"github.com/depotd/depot/store"
)

// newTestServer wires a RESTServer onto in-memory stores and returns it
// with an httptest listener in front of its routes.
func newTestServer(decoder KeyDecoder) (*RESTServer, *httptest.Server) {
	s := &RESTServer{
		Blobs:   store.NewMemory(),
		Decoder: decoder,
	}
	if s.Decoder == nil {
		s.Decoder = NewOpenDecoder()
	}
	s.meta = registry.NewMemStore()
	s.registry = &registry.Registry{Blobs: s.Blobs, Meta: s.meta}
	return s, httptest.NewServer(s.addRoutes())
}

func doJSON(t *testing.T, method, url string, body interface{}, key string) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request: %s", err.Error())
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("NewRequest: %s", err.Error())
	}
	if key != "" {
		req.Header.Set("X-Api-Key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %s", method, url, err.Error())
	}
	return resp
}

func ingestBody(name, version, data string) registry.IngestRequest {
	return registry.IngestRequest{
		Content:  base64.StdEncoding.EncodeToString([]byte(data)),
		Name:     name,
		Metadata: &registry.PackageMeta{Version: version},
	}
}

func TestIngestRetrieveRoutes(t *testing.T) {
	_, ts := newTestServer(nil)
	defer ts.Close()

	resp := doJSON(t, "POST", ts.URL+"/package", ingestBody("left-pad", "1.0.0", "zipzip"), "")
	if resp.StatusCode != 201 {
		t.Fatalf("Got status %d, expected 201", resp.StatusCode)
	}
	var rec registry.PackageRecord
	json.NewDecoder(resp.Body).Decode(&rec)
	resp.Body.Close()
	if rec.Metadata.ID != registry.Identity("left-pad", "1.0.0") {
		t.Errorf("Got id %s", rec.Metadata.ID)
	}

	resp = doJSON(t, "GET", ts.URL+"/package/"+rec.Metadata.ID, nil, "")
	if resp.StatusCode != 200 {
		t.Fatalf("Got status %d, expected 200", resp.StatusCode)
	}
	var got registry.PackageRecord
	json.NewDecoder(resp.Body).Decode(&got)
	resp.Body.Close()
	if got.Data.Content != base64.StdEncoding.EncodeToString([]byte("zipzip")) {
		t.Errorf("Got content %q", got.Data.Content)
	}

	// duplicate publish is a conflict
	resp = doJSON(t, "POST", ts.URL+"/package", ingestBody("left-pad", "1.0.0", "zipzip"), "")
	resp.Body.Close()
	if resp.StatusCode != 409 {
		t.Errorf("Got status %d, expected 409", resp.StatusCode)
	}

	// unknown id is not found
	resp = doJSON(t, "GET", ts.URL+"/package/deadbeef", nil, "")
	resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("Got status %d, expected 404", resp.StatusCode)
	}
}

func TestIngestValidationRoute(t *testing.T) {
	_, ts := newTestServer(nil)
	defer ts.Close()

	// neither Content nor URL
	resp := doJSON(t, "POST", ts.URL+"/package", registry.IngestRequest{Name: "x"}, "")
	resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Errorf("Got status %d, expected 400", resp.StatusCode)
	}
}

func TestListRoute(t *testing.T) {
	_, ts := newTestServer(nil)
	defer ts.Close()

	for i := 0; i < registry.PageSize; i++ {
		resp := doJSON(t, "POST", ts.URL+"/package",
			ingestBody(fmt.Sprintf("pkg-%02d", i), "1.0.0", "data"), "")
		resp.Body.Close()
		if resp.StatusCode != 201 {
			t.Fatalf("seed %d: status %d", i, resp.StatusCode)
		}
	}

	resp := doJSON(t, "POST", ts.URL+"/packages",
		[]registry.QueryFilter{{Name: "*"}}, "")
	if resp.StatusCode != 200 {
		t.Fatalf("Got status %d, expected 200", resp.StatusCode)
	}
	var page registry.ListResult
	json.NewDecoder(resp.Body).Decode(&page)
	resp.Body.Close()
	if len(page.Packages) != registry.PageSize {
		t.Fatalf("Got %d packages, expected %d", len(page.Packages), registry.PageSize)
	}
	if page.NextOffset == nil || *page.NextOffset != registry.PageSize {
		t.Fatalf("Got nextOffset %v", page.NextOffset)
	}

	resp = doJSON(t, "POST",
		fmt.Sprintf("%s/packages?offset=%d", ts.URL, *page.NextOffset),
		[]registry.QueryFilter{{Name: "*"}}, "")
	json.NewDecoder(resp.Body).Decode(&page)
	resp.Body.Close()
	if len(page.Packages) != 0 || page.NextOffset != nil {
		t.Errorf("Got %d packages and nextOffset %v, expected empty final page",
			len(page.Packages), page.NextOffset)
	}

	// malformed version filter
	resp = doJSON(t, "POST", ts.URL+"/packages",
		[]registry.QueryFilter{{Name: "a", Version: "nope"}}, "")
	resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Errorf("Got status %d, expected 400", resp.StatusCode)
	}
}

func TestResetRoute(t *testing.T) {
	_, ts := newTestServer(nil)
	defer ts.Close()

	resp := doJSON(t, "POST", ts.URL+"/package", ingestBody("a", "1.0.0", "data"), "")
	resp.Body.Close()

	resp = doJSON(t, "DELETE", ts.URL+"/reset", nil, "")
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("Got status %d, expected 200", resp.StatusCode)
	}

	resp = doJSON(t, "POST", ts.URL+"/packages", []registry.QueryFilter{{Name: "*"}}, "")
	var page registry.ListResult
	json.NewDecoder(resp.Body).Decode(&page)
	resp.Body.Close()
	if len(page.Packages) != 0 {
		t.Errorf("Got %d packages after reset, expected 0", len(page.Packages))
	}
}

func TestRoleEnforcement(t *testing.T) {
	dec, _ := NewListDecoder(strings.NewReader(
		"reader read key-r\nwriter write key-w\nroot admin key-a\n"))
	_, ts := newTestServer(dec)
	defer ts.Close()

	var table = []struct {
		method string
		path   string
		key    string
		status int
	}{
		{"POST", "/package", "key-r", 401}, // readers cannot publish
		{"POST", "/package", "", 401},
		{"POST", "/package", "key-w", 201},
		{"DELETE", "/reset", "key-w", 401}, // only admins reset
		{"DELETE", "/reset", "key-a", 200},
	}
	for _, tab := range table {
		var body interface{}
		if tab.method == "POST" {
			body = ingestBody("p", "1.0.0", "data")
		}
		resp := doJSON(t, tab.method, ts.URL+tab.path, body, tab.key)
		resp.Body.Close()
		if resp.StatusCode != tab.status {
			t.Errorf("%s %s with key %q: got %d, expected %d",
				tab.method, tab.path, tab.key, resp.StatusCode, tab.status)
		}
	}
}

func TestRateRouteNoScorer(t *testing.T) {
	s, ts := newTestServer(nil)
	defer ts.Close()

	resp := doJSON(t, "POST", ts.URL+"/package", ingestBody("p", "1.0.0", "data"), "")
	var rec registry.PackageRecord
	json.NewDecoder(resp.Body).Decode(&rec)
	resp.Body.Close()

	resp = doJSON(t, "GET", ts.URL+"/package/"+rec.Metadata.ID+"/rate", nil, "")
	resp.Body.Close()
	if resp.StatusCode != 501 {
		t.Errorf("Got status %d, expected 501 with no scorer", resp.StatusCode)
	}

	s.Scorer = stubScorer{}
	resp = doJSON(t, "GET", ts.URL+"/package/"+rec.Metadata.ID+"/rate", nil, "")
	if resp.StatusCode != 200 {
		t.Fatalf("Got status %d, expected 200", resp.StatusCode)
	}
	var score Score
	json.NewDecoder(resp.Body).Decode(&score)
	resp.Body.Close()
	if score.NetScore != 0.5 {
		t.Errorf("Got net score %v, expected 0.5", score.NetScore)
	}
}

type stubScorer struct{}

func (stubScorer) Score(repo string) (Score, error) {
	return Score{NetScore: 0.5}, nil
}
