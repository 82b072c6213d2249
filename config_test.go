/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		bind:           "127.0.0.1",
		dataDir:        "data",
		port:           8080,
		sessionTimeout: time.Hour,
		store:          storeFile,
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, validConfig().validate())

	tests := map[string]func(*Config){
		"port too low":       func(c *Config) { c.port = 0 },
		"port too high":      func(c *Config) { c.port = 70000 },
		"cert without key":   func(c *Config) { c.tlsCert = "cert.pem" },
		"key without cert":   func(c *Config) { c.tlsKey = "key.pem" },
		"negative timeout":   func(c *Config) { c.sessionTimeout = -time.Second },
		"unknown store":      func(c *Config) { c.store = "redis" },
		"file without dir":   func(c *Config) { c.dataDir = "" },
		"sqlite without dir": func(c *Config) { c.store, c.dataDir = storeSQLite, "" },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			assert.Error(t, cfg.validate())
		})
	}

	cfg := validConfig()
	cfg.store, cfg.dataDir = storeMemory, ""
	assert.NoError(t, cfg.validate())
}

func TestConfigScheme(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "http", cfg.scheme())

	cfg.tlsCert, cfg.tlsKey = "cert.pem", "key.pem"
	assert.Equal(t, "https", cfg.scheme())
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("FRAMEMATCH_PORT", "9090")
	t.Setenv("FRAMEMATCH_DATA_DIR", "/var/lib/framematch")
	t.Setenv("FRAMEMATCH_STORE", "sqlite")

	cfg := &Config{}
	newCmd(cfg)

	assert.Equal(t, 9090, cfg.port)
	assert.Equal(t, "/var/lib/framematch", cfg.dataDir)
	assert.Equal(t, storeSQLite, cfg.store)
	assert.Equal(t, "0.0.0.0", cfg.bind)
}

func TestLoadCatalogFile(t *testing.T) {
	cfg := validConfig()

	c, err := cfg.loadCatalog()
	require.NoError(t, err)
	assert.Equal(t, 20, c.Len())

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("items:\n  - id: 7\n    title: Rush\n"), 0o644))

	cfg.catalog = path
	c, err = cfg.loadCatalog()
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, os.WriteFile(path, []byte("items:\n  - id: -1\n    title: Rush\n"), 0o644))
	_, err = cfg.loadCatalog()
	assert.ErrorContains(t, err, path)

	cfg.catalog = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = cfg.loadCatalog()
	assert.Error(t, err)
}

func TestPlayCommandKeepsProgress(t *testing.T) {
	for _, store := range []string{storeFile, storeSQLite} {
		t.Run(store, func(t *testing.T) {
			dir := t.TempDir()

			play := func(script string) string {
				var out bytes.Buffer

				cmd := newCmd(&Config{})
				cmd.SetArgs([]string{"play", "--store", store, "--data-dir", dir})
				cmd.SetIn(strings.NewReader(script))
				cmd.SetOut(&out)

				require.NoError(t, cmd.Execute())
				return out.String()
			}

			out := play("name Ada\nquit\n")
			assert.Contains(t, out, "Hello, Ada!")

			out = play("status\n")
			assert.Contains(t, out, "Welcome back, Ada!")
			assert.Contains(t, out, "Ada | score 0 | streak 0 | 0% matched")
		})
	}
}

func TestPlayCommandRejectsBadStore(t *testing.T) {
	cmd := newCmd(&Config{})
	cmd.SetArgs([]string{"play", "--store", "cloud"})
	cmd.SetIn(strings.NewReader(""))
	cmd.SetOut(&bytes.Buffer{})

	assert.ErrorContains(t, cmd.Execute(), "invalid store")
}
