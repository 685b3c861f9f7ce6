// The depot tool is a command line client for a depot registry server.
package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/depotd/depot/client"
	"github.com/depotd/depot/registry"
)

var (
	server  = flag.String("server", "http://localhost:15000", "depot server to use")
	token   = flag.String("token", "", "API key to send")
	name    = flag.String("name", "", "package name for upload")
	version = flag.String("pkgversion", "", "package version for upload")
	output  = flag.String("o", "", "file to save a downloaded archive into")

	usage = `
depot <command> <arguments>

Possible commands:

    upload <zip file>
    upload-url <url>
    get <package id>
    ls [<name> [<version range>]]
    reset

`
)

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		fmt.Print(usage)
		return
	}

	conn := &client.Connection{HostURL: *server, Token: *token}

	var err error
	switch args[0] {
	case "upload":
		if len(args) != 2 {
			fmt.Println("Usage: depot upload <zip file>")
			os.Exit(1)
		}
		err = doUpload(conn, args[1])
	case "upload-url":
		if len(args) != 2 {
			fmt.Println("Usage: depot upload-url <url>")
			os.Exit(1)
		}
		err = doUploadURL(conn, args[1])
	case "get":
		if len(args) != 2 {
			fmt.Println("Usage: depot get <package id>")
			os.Exit(1)
		}
		err = doGet(conn, args[1])
	case "ls":
		err = doLs(conn, args[1:])
	case "reset":
		err = conn.Reset()
	default:
		fmt.Print(usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func ingestRequest() registry.IngestRequest {
	req := registry.IngestRequest{Name: *name}
	if *version != "" {
		req.Metadata = &registry.PackageMeta{Version: *version}
	}
	return req
}

func doUpload(conn *client.Connection, fname string) error {
	data, err := ioutil.ReadFile(fname)
	if err != nil {
		return err
	}
	req := ingestRequest()
	req.Content = base64.StdEncoding.EncodeToString(data)
	rec, err := conn.Ingest(req)
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%s@%s\n", rec.Metadata.ID, rec.Metadata.Name, rec.Metadata.Version)
	return nil
}

func doUploadURL(conn *client.Connection, url string) error {
	req := ingestRequest()
	req.URL = url
	rec, err := conn.Ingest(req)
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%s@%s\n", rec.Metadata.ID, rec.Metadata.Name, rec.Metadata.Version)
	return nil
}

func doGet(conn *client.Connection, id string) error {
	rec, err := conn.Get(id)
	if err != nil {
		return err
	}
	fmt.Printf("%s@%s\n", rec.Metadata.Name, rec.Metadata.Version)
	if *output == "" {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(rec.Data.Content)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(*output, data, 0644)
}

func doLs(conn *client.Connection, args []string) error {
	var filters []registry.QueryFilter
	switch len(args) {
	case 0:
		filters = []registry.QueryFilter{{Name: "*"}}
	case 1:
		filters = []registry.QueryFilter{{Name: args[0]}}
	default:
		filters = []registry.QueryFilter{{Name: args[0], Version: args[1]}}
	}
	list, err := conn.ListAll(filters)
	for _, m := range list {
		fmt.Printf("%s\t%s@%s\n", m.ID, m.Name, m.Version)
	}
	return err
}
