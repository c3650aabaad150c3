package config

import (
	"flag"
	"os"
	"time"

	"github.com/cloudchat-app/cloudchat/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-m string   store backend: "memory" or "postgres"
//	-d string   PostgreSQL DSN
//	-s string   session-token HMAC secret key
//	-t int      session time-to-live, hours
//	-i int      account liveness poll interval, seconds
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-m", "-d", "-s", "-t", "-i", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.StoreBackend, "m", config.StoreBackend, "store backend (memory|postgres)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionTTL := fs.Int("t", int(config.SessionTTL.Hours()), "session TTL (in hours)")
	enforceInterval := fs.Int("i", int(config.EnforceInterval.Seconds()), "liveness poll interval (in seconds)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionTTL = time.Duration(*sessionTTL) * time.Hour
	config.EnforceInterval = time.Duration(*enforceInterval) * time.Second
}
