package store

import (
	"io/ioutil"
	"testing"
)

func TestMemoryRoundtrip(t *testing.T) {
	ms := NewMemory()
	w, err := ms.Create("packages/x/v1.0.0/package.zip")
	if err != nil {
		t.Fatalf("Create: %s", err.Error())
	}
	w.Write([]byte("data"))
	w.Close()

	_, err = ms.Create("packages/x/v1.0.0/package.zip")
	if err != ErrKeyExists {
		t.Errorf("Got %v, expected ErrKeyExists", err)
	}

	r, size, err := ms.Open("packages/x/v1.0.0/package.zip")
	if err != nil {
		t.Fatalf("Open: %s", err.Error())
	}
	if size != 4 {
		t.Errorf("Got size %d, expected 4", size)
	}
	data, _ := ioutil.ReadAll(NewReader(r))
	r.Close()
	if string(data) != "data" {
		t.Errorf("Got %q, expected %q", data, "data")
	}

	keys, _ := ms.ListPrefix("packages/")
	if len(keys) != 1 {
		t.Errorf("Got %v, expected one key", keys)
	}

	ms.Delete("packages/x/v1.0.0/package.zip")
	keys, _ = ms.ListPrefix("")
	if len(keys) != 0 {
		t.Errorf("Got %v, expected empty store", keys)
	}
}
