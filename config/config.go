// Package config loads runtime configuration from flags and the
// environment, grounded on the teacher's config/config.go.
package config

import (
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/tetrachromeio/aether/core"
)

// Config carries every knob spec.md §6 names.
type Config struct {
	Port        int
	NeuralPort  int
	Workers     int
	MaxConns    int
	IdleTimeout time.Duration
	MaxBodySize int64
	Env         string
}

// New loads configuration from command-line flags, with PORT/ENV
// environment variables overriding the flag defaults before parsing —
// the same env-override shape the teacher's config.New sketches, filled
// in rather than left as a comment.
func New() *Config {
	cfg := &Config{}

	defaultPort := 8080
	if p := os.Getenv("PORT"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			defaultPort = n
		}
	}
	defaultEnv := "development"
	if e := os.Getenv("ENV"); e != "" {
		defaultEnv = e
	}

	flag.IntVar(&cfg.Port, "port", defaultPort, "HTTP server port")
	flag.IntVar(&cfg.NeuralPort, "neural-port", core.DefaultNeuralDBPort, "NeuralDB opcode server port")
	flag.IntVar(&cfg.Workers, "workers", 0, "dispatch worker count (0 = hardware parallelism)")
	flag.IntVar(&cfg.MaxConns, "max-connections", core.DefaultMaxConnections, "maximum concurrent HTTP connections")
	idleSeconds := flag.Int("idle-timeout", int(core.DefaultIdleTimeout/time.Second), "connection idle timeout (seconds)")
	maxBody := flag.Int64("max-body-size", core.DefaultMaxBodySize, "maximum request body size (bytes)")
	flag.StringVar(&cfg.Env, "env", defaultEnv, "environment (development/production)")

	flag.Parse()

	cfg.IdleTimeout = time.Duration(*idleSeconds) * time.Second
	cfg.MaxBodySize = *maxBody

	return cfg
}
