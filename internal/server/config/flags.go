package config

import (
	"flag"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/flagx"
	"github.com/dmitrijs2005/gatekeeper/internal/timex"
)

var serverFlags = []string{"-a", "-g", "-t", "-n", "-x", "-e", "-s", "-b", "-d", "-D", "-r", "-m"}

// parseFlags overlays command-line flags, the highest precedence source.
//
//	-a string   HTTP bind address (host:port)
//	-g string   gRPC bind address
//	-t string   auth type (basic_auth, session_auth, session_exp_auth, ...)
//	-n string   session cookie name
//	-x duration session duration ("90s" or seconds; 0 never expires)
//	-e string   comma separated excluded paths
//	-s string   JWT HMAC secret
//	-b string   storage backend (file, postgres, redis, s3)
//	-d string   PostgreSQL DSN
//	-D string   data directory for the file backend
//	-r string   redis address
//	-m bool     expose /metrics
//
// Arguments other than these are ignored so the config file flag can share
// the command line.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, serverFlags)

	fs := flag.NewFlagSet("gatekeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port to run server")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC address and port to run server")
	fs.StringVar(&config.AuthType, "t", config.AuthType, "auth type")
	fs.StringVar(&config.SessionName, "n", config.SessionName, "session cookie name")
	fs.Func("x", "session duration", durationFlag(&config.SessionDuration))
	fs.Func("e", "excluded paths", func(s string) error {
		config.ExcludedPaths = splitList(s)
		return nil
	})
	fs.StringVar(&config.TokenSecret, "s", config.TokenSecret, "secret key")
	fs.StringVar(&config.Storage.Backend, "b", config.Storage.Backend, "storage backend")
	fs.StringVar(&config.Storage.DatabaseDSN, "d", config.Storage.DatabaseDSN, "database DSN")
	fs.StringVar(&config.Storage.DataDir, "D", config.Storage.DataDir, "data directory")
	fs.StringVar(&config.Storage.RedisAddr, "r", config.Storage.RedisAddr, "redis address")
	fs.BoolVar(&config.MetricsEnabled, "m", config.MetricsEnabled, "expose metrics")

	return fs.Parse(args)
}

func durationFlag(dst *time.Duration) func(string) error {
	return func(s string) error {
		d, err := timex.ParseDuration(s)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}

func splitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
