package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/blobvault/internal/flagx"
)

var valueFlags = []string{
	"-a", "-k", "-d", "-s", "-t", "-z", "-m", "-w", "-x", "-l", "-o",
	"-u", "-p", "-b", "-g", "-e",
}

// ValueFlags are the flags the server configuration reads a separate value
// for, config file flags included.
var ValueFlags = append(append([]string{}, valueFlags...), "-c", "-config")

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-k string   storage backend: postgres or sqlite
//	-d string   database DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-z int      copy buffer size, KiB
//	-bb bool    buffered copy for big files
//	-bs bool    buffered copy for small files
//	-m int      max inline payload, bytes
//	-w string   spool directory
//	-x string   metrics bind address
//	-l string   log level
//	-o int      shutdown timeout, seconds
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Boolean flags must be given as -bb=false.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], append([]string{"-bb", "-bs"}, valueFlags...))

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.Backend, "k", config.Backend, "storage backend (postgres|sqlite)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")

	fs.IntVar(&config.BufferSize, "z", config.BufferSize, "copy buffer size (KiB)")
	fs.BoolVar(&config.UseBufferingForBigFiles, "bb", config.UseBufferingForBigFiles, "use buffered copy for big files")
	fs.BoolVar(&config.UseBufferingForSmallFiles, "bs", config.UseBufferingForSmallFiles, "use buffered copy for small files")
	fs.Int64Var(&config.MaxInlineSize, "m", config.MaxInlineSize, "max inline payload size (bytes)")
	fs.StringVar(&config.SpoolDir, "w", config.SpoolDir, "spool directory")
	fs.StringVar(&config.MetricsAddr, "x", config.MetricsAddr, "metrics address, empty disables")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	shutdownTimeout := fs.Int("o", int(config.ShutdownTimeout.Seconds()), "shutdown timeout (in seconds)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.ShutdownTimeout = time.Duration(*shutdownTimeout) * time.Second
}
