// Package creds resolves credentials for the exchange API from the
// process environment or a restricted env file. Keys are held in memory
// only; nothing here writes them back to disk, and live mode never
// accepts them as plain configuration values.
package creds

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Default variable names looked up by the env provider.
const (
	EnvKey    = "READINESS_API_KEY"
	EnvSecret = "READINESS_API_SECRET"
)

var ErrNotFound = errors.New("credentials not found")

type Credentials struct {
	Key    string
	Secret string
}

// String redacts both halves so credentials never leak through logging.
func (c Credentials) String() string {
	return "Credentials{Key:[redacted], Secret:[redacted]}"
}

type Provider interface {
	Resolve() (Credentials, error)
}

// Env resolves credentials from environment variables.
type Env struct {
	KeyVar    string
	SecretVar string
}

func (e Env) Resolve() (Credentials, error) {
	keyVar, secretVar := e.KeyVar, e.SecretVar
	if keyVar == "" {
		keyVar = EnvKey
	}
	if secretVar == "" {
		secretVar = EnvSecret
	}

	key := strings.TrimSpace(os.Getenv(keyVar))
	secret := strings.TrimSpace(os.Getenv(secretVar))
	if key == "" || secret == "" {
		return Credentials{}, fmt.Errorf("%w: %s/%s not set", ErrNotFound, keyVar, secretVar)
	}
	return Credentials{Key: key, Secret: secret}, nil
}

// File resolves credentials from a KEY=VALUE env file. Only the two
// credential keys are read; everything else in the file is ignored.
type File struct {
	Path string
}

func (f File) Resolve() (Credentials, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	defer fh.Close()

	var c Credentials
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.Trim(strings.TrimSpace(v), `"'`)
		switch k {
		case EnvKey:
			c.Key = v
		case EnvSecret:
			c.Secret = v
		}
	}
	if err := sc.Err(); err != nil {
		return Credentials{}, err
	}
	if c.Key == "" || c.Secret == "" {
		return Credentials{}, fmt.Errorf("%w: %s missing %s or %s", ErrNotFound, f.Path, EnvKey, EnvSecret)
	}
	return c, nil
}

// Chain tries each provider in order and returns the first hit.
type Chain []Provider

func (ch Chain) Resolve() (Credentials, error) {
	for _, p := range ch {
		c, err := p.Resolve()
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Credentials{}, err
		}
	}
	return Credentials{}, ErrNotFound
}

// Static wraps fixed credentials, for tests and the sim client.
type Static Credentials

func (s Static) Resolve() (Credentials, error) {
	if s.Key == "" || s.Secret == "" {
		return Credentials{}, ErrNotFound
	}
	return Credentials(s), nil
}
