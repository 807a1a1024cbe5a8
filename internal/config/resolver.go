package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Source is one configuration layer
type Source interface {
	Lookup(key string) (string, bool)
}

// MapSource is a fixed set of values, e.g. the parsed contents of an env file
type MapSource map[string]string

func (m MapSource) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// EnvSource reads the process environment
type EnvSource struct{}

func (EnvSource) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// NewFileSource parses env files without touching the process environment.
// Files that cannot be read are skipped; the first such error is returned
// alongside whatever was parsed.
func NewFileSource(paths ...string) (MapSource, error) {
	merged := MapSource{}
	var firstErr error
	for _, p := range paths {
		values, err := godotenv.Read(p)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for k, v := range values {
			if _, seen := merged[k]; !seen {
				merged[k] = v
			}
		}
	}
	return merged, firstErr
}

// Resolver consults its layers in order and falls back to the caller's default
type Resolver struct {
	layers []Source
}

func NewResolver(layers ...Source) *Resolver {
	return &Resolver{layers: layers}
}

func (r *Resolver) lookup(key string) (string, bool) {
	for _, layer := range r.layers {
		if layer == nil {
			continue
		}
		if v, ok := layer.Lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

func (r *Resolver) String(key, fallback string) string {
	if v, ok := r.lookup(key); ok {
		return v
	}
	return fallback
}

func (r *Resolver) Int(key string, fallback int) int {
	if v, ok := r.lookup(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func (r *Resolver) Bool(key string, fallback bool) bool {
	if v, ok := r.lookup(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// Duration accepts Go duration strings ("90s") or a bare number of seconds
func (r *Resolver) Duration(key string, fallback time.Duration) time.Duration {
	v, ok := r.lookup(key)
	if !ok {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
