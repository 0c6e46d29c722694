package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		Home:           "/tmp/tvremote",
		CacheBackend:   "file",
		CommandTimeout: 10 * time.Second,
		PairTimeout:    60 * time.Second,
		LogLevel:       "info",
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"sqlite", func(c *Config) { c.CacheBackend = "sqlite" }, ""},
		{"empty home", func(c *Config) { c.Home = "" }, "home"},
		{"bad backend", func(c *Config) { c.CacheBackend = "redis" }, "cache backend"},
		{"zero timeout", func(c *Config) { c.CommandTimeout = 0 }, "timeout"},
		{"zero pair timeout", func(c *Config) { c.PairTimeout = 0 }, "pair timeout"},
		{"bad tv port", func(c *Config) { c.TVPort = 70000 }, "tv port"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateServeConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServeConfig
		wantErr bool
	}{
		{"loopback", ServeConfig{Port: 8000, Bind: "loopback", Rate: 5, Burst: 10}, false},
		{"lan", ServeConfig{Port: 8000, Bind: "lan"}, false},
		{"port zero", ServeConfig{Port: 0, Bind: "loopback"}, true},
		{"port too high", ServeConfig{Port: 65536, Bind: "loopback"}, true},
		{"bad bind", ServeConfig{Port: 8000, Bind: "public"}, true},
		{"negative rate", ServeConfig{Port: 8000, Bind: "loopback", Rate: -1}, true},
		{"negative burst", ServeConfig{Port: 8000, Bind: "loopback", Burst: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateServeConfig(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBindAddress(t *testing.T) {
	assert.Equal(t, "127.0.0.1", bindAddress("loopback"))
	assert.Equal(t, "0.0.0.0", bindAddress("lan"))
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TVR_TEST_STR", "x")
	t.Setenv("TVR_TEST_INT", "42")
	t.Setenv("TVR_TEST_BAD_INT", "forty")
	t.Setenv("TVR_TEST_FLOAT", "2.5")
	t.Setenv("TVR_TEST_BOOL", "true")
	t.Setenv("TVR_TEST_DUR", "3s")
	t.Setenv("TVR_TEST_BAD_DUR", "soon")

	assert.Equal(t, "x", envStr("TVR_TEST_STR", "y"))
	assert.Equal(t, "y", envStr("TVR_TEST_UNSET", "y"))
	assert.Equal(t, 42, envInt("TVR_TEST_INT", 1))
	assert.Equal(t, 1, envInt("TVR_TEST_BAD_INT", 1))
	assert.Equal(t, 2.5, envFloat("TVR_TEST_FLOAT", 1))
	assert.True(t, envBool("TVR_TEST_BOOL", false))
	assert.Equal(t, 3*time.Second, envDuration("TVR_TEST_DUR", time.Second))
	assert.Equal(t, time.Second, envDuration("TVR_TEST_BAD_DUR", time.Second))
}

func TestDefaultHome(t *testing.T) {
	t.Setenv("HOME", "/home/viewer")
	assert.Equal(t, "/home/viewer/.tvremote", defaultHome())
}
