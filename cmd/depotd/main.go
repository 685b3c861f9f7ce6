// depotd is the depot registry server.
//
// Every option can be set on the command line or in a TOML configuration
// file. Command line flags win.
package main

import (
	"expvar"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/BurntSushi/toml"
	raven "github.com/getsentry/raven-go"

	"github.com/depotd/depot/server"
)

// Version is set at build time with
// `-ldflags "-X main.Version=$(git describe)"`.
var Version = "dev"

type config struct {
	StorageDir string // blob store location, e.g. "/var/depot" or "s3://..."
	CacheDir   string // metadata database directory (QL). Empty is in-memory.
	Mysql      string // MySQL dial string. Overrides CacheDir when set.
	PortNumber string
	PProfPort  string
	Tokenfile  string // API key list. Empty disables authentication.
}

func main() {
	var (
		configFile = flag.String("config-file", "", "TOML configuration file")
		storageDir = flag.String("storage-dir", "", "location of the archive storage")
		cacheDir   = flag.String("cache-dir", "", "directory for the metadata database")
		mysql      = flag.String("mysql", "", "MySQL dial string for the metadata database")
		port       = flag.String("port", "", "port to listen on (default 15000)")
		pprofPort  = flag.String("pprof-port", "", "port for the pprof listener (default off)")
		tokenfile  = flag.String("tokenfile", "", "file of API keys")
		showV      = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showV {
		log.Printf("depotd version %s", Version)
		return
	}

	var conf config
	if *configFile != "" {
		if _, err := toml.DecodeFile(*configFile, &conf); err != nil {
			log.Fatalf("Error reading %s: %s", *configFile, err.Error())
		}
	}
	// flags override the config file
	override(&conf.StorageDir, *storageDir)
	override(&conf.CacheDir, *cacheDir)
	override(&conf.Mysql, *mysql)
	override(&conf.PortNumber, *port)
	override(&conf.PProfPort, *pprofPort)
	override(&conf.Tokenfile, *tokenfile)

	if os.Getenv("SENTRY_DSN") != "" {
		raven.SetRelease(Version)
	}
	expvar.NewString("version").Set(Version)

	var decoder server.KeyDecoder
	if conf.Tokenfile != "" {
		var err error
		decoder, err = server.NewListDecoderFile(conf.Tokenfile)
		if err != nil {
			log.Fatalf("Error reading %s: %s", conf.Tokenfile, err.Error())
		}
	}

	blobs := parselocation(conf.StorageDir)
	if blobs == nil {
		os.Exit(1)
	}

	s := &server.RESTServer{
		PortNumber: conf.PortNumber,
		PProfPort:  conf.PProfPort,
		Blobs:      blobs,
		MySQL:      conf.Mysql,
		DataDir:    conf.CacheDir,
		Decoder:    decoder,
	}
	server.Version = Version

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("Received signal, shutting down")
		s.Stop()
	}()

	err := s.Run()
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func override(target *string, value string) {
	if value != "" {
		*target = value
	}
}
