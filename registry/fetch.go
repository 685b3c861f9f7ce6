package registry

import (
	"io/ioutil"
	"net/http"

	"github.com/pkg/errors"
)

// A Fetcher downloads a package archive from a remote host. The registry
// never retries a failed fetch; callers must retry externally if they want
// to.
type Fetcher interface {
	Fetch(url string) ([]byte, error)
}

// HTTPFetcher downloads archives over plain HTTP(S). The zero value uses
// http.DefaultClient and its default timeout behavior.
type HTTPFetcher struct {
	Client *http.Client
}

var _ Fetcher = HTTPFetcher{}

// Fetch does a single GET of the given URL and returns the body.
func (f HTTPFetcher) Fetch(url string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Get(url)
	if err != nil {
		return nil, errors.Wrap(err, "fetching archive")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetching archive: %s returned %s", url, resp.Status)
	}
	body, err := ioutil.ReadAll(resp.Body)
	return body, errors.Wrap(err, "reading archive body")
}
