// Package client is a Go client for the depot registry API.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/antonholmquist/jason"
	"github.com/pkg/errors"

	"github.com/depotd/depot/registry"
)

// A Connection represents a connection to a depot server. It can be shared
// between multiple goroutines.
type Connection struct {
	// HostURL is the base URL of the server, e.g. "http://localhost:15000".
	HostURL string

	// Token is sent as the X-Api-Key header on every request. Optional.
	Token string

	// Client to use for requests. http.DefaultClient when nil.
	Client *http.Client
}

// ErrNotFound is returned when the requested package does not exist.
var ErrNotFound = errors.New("package not found")

func (c *Connection) do(method, path string, body interface{}) (*http.Response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, errors.Wrap(err, "encoding request")
		}
	}
	req, err := http.NewRequest(method, strings.TrimSuffix(c.HostURL, "/")+path, &buf)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("X-Api-Key", c.Token)
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(req)
}

// statusError turns a non-2xx response into an error carrying the server's
// message.
func statusError(resp *http.Response) error {
	msg, _ := ioutil.ReadAll(resp.Body)
	return errors.Errorf("server returned %s: %s",
		resp.Status, strings.TrimSpace(string(msg)))
}

// Ingest publishes a package and returns the record the server stored.
func (c *Connection) Ingest(req registry.IngestRequest) (*registry.PackageRecord, error) {
	resp, err := c.do("POST", "/package", req)
	if err != nil {
		return nil, errors.Wrap(err, "publishing package")
	}
	defer resp.Body.Close()
	if resp.StatusCode != 201 {
		return nil, statusError(resp)
	}
	var rec registry.PackageRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, errors.Wrap(err, "decoding response")
	}
	return &rec, nil
}

// Get retrieves a package, archive included, by its identifier.
func (c *Connection) Get(id string) (*registry.PackageRecord, error) {
	resp, err := c.do("GET", "/package/"+id, nil)
	if err != nil {
		return nil, errors.Wrap(err, "retrieving package")
	}
	defer resp.Body.Close()
	if resp.StatusCode == 404 {
		return nil, ErrNotFound
	}
	if resp.StatusCode != 200 {
		return nil, statusError(resp)
	}
	var rec registry.PackageRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, errors.Wrap(err, "decoding response")
	}
	return &rec, nil
}

// List runs one page of a query. The returned offset is where the next page
// starts, or -1 when this was the last page.
func (c *Connection) List(filters []registry.QueryFilter, offset int) ([]registry.PackageMeta, int, error) {
	path := "/packages"
	if offset > 0 {
		path = fmt.Sprintf("/packages?offset=%d", offset)
	}
	if filters == nil {
		filters = []registry.QueryFilter{}
	}
	resp, err := c.do("POST", path, filters)
	if err != nil {
		return nil, -1, errors.Wrap(err, "listing packages")
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, -1, statusError(resp)
	}

	v, err := jason.NewObjectFromReader(resp.Body)
	if err != nil {
		return nil, -1, errors.Wrap(err, "decoding response")
	}
	entries, err := v.GetObjectArray("packages")
	if err != nil {
		return nil, -1, errors.Wrap(err, "decoding package list")
	}
	var result []registry.PackageMeta
	for _, e := range entries {
		var m registry.PackageMeta
		m.Name, _ = e.GetString("Name")
		m.Version, _ = e.GetString("Version")
		m.ID, _ = e.GetString("ID")
		result = append(result, m)
	}
	next := -1
	if n, err := v.GetInt64("nextOffset"); err == nil {
		next = int(n)
	}
	return result, next, nil
}

// ListAll pages through a query until the server reports no more results.
func (c *Connection) ListAll(filters []registry.QueryFilter) ([]registry.PackageMeta, error) {
	var result []registry.PackageMeta
	offset := 0
	for {
		page, next, err := c.List(filters, offset)
		if err != nil {
			return result, err
		}
		result = append(result, page...)
		if next < 0 {
			return result, nil
		}
		offset = next
	}
}

// Reset wipes the entire registry. There is no undo.
func (c *Connection) Reset() error {
	resp, err := c.do("DELETE", "/reset", nil)
	if err != nil {
		return errors.Wrap(err, "resetting registry")
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return statusError(resp)
	}
	return nil
}
