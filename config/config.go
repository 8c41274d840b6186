// Package config reads .po-translator.yaml. The file holds run
// defaults (service, languages, batching, persistence cadence) that
// CLI flags override.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the default config file name, looked up in the working
// directory.
const FileName = ".po-translator.yaml"

// Config holds run defaults.
type Config struct {
	// Service selects the translation backend: google, libretranslate,
	// mymemory.
	Service string `yaml:"service,omitempty"`
	// SourceLang is the source language code; empty means auto-detect.
	SourceLang string `yaml:"source_lang,omitempty"`
	// TargetLang is the default target language code.
	TargetLang string `yaml:"target_lang,omitempty"`

	// BatchSize is the number of entries dispatched per batch.
	BatchSize int `yaml:"batch_size,omitempty"`
	// SaveInterval checkpoints after this many translations.
	SaveInterval int `yaml:"save_interval,omitempty"`
	// Workers is the worker pool size.
	Workers int `yaml:"workers,omitempty"`
	// RequestDelayMs spaces out backend requests, in milliseconds.
	RequestDelayMs int `yaml:"request_delay_ms,omitempty"`
	// RequestTimeoutSec bounds each backend request, in seconds.
	RequestTimeoutSec int `yaml:"request_timeout_sec,omitempty"`

	// CacheFlushEvery is the cache autoflush threshold.
	CacheFlushEvery int `yaml:"cache_flush_every,omitempty"`
	// NoCache disables the translation cache entirely.
	NoCache bool `yaml:"no_cache,omitempty"`

	// LibreTranslateURL overrides the LibreTranslate endpoint.
	LibreTranslateURL string `yaml:"libretranslate_url,omitempty"`
	// MyMemoryEmail raises the MyMemory daily limit.
	MyMemoryEmail string `yaml:"mymemory_email,omitempty"`
}

// Default returns the built-in defaults, matching the documented flag
// defaults.
func Default() Config {
	return Config{
		Service:           "google",
		TargetLang:        "fa",
		BatchSize:         10,
		SaveInterval:      50,
		Workers:           3,
		RequestDelayMs:    500,
		RequestTimeoutSec: 30,
		CacheFlushEvery:   100,
	}
}

// RequestDelay returns the configured inter-request delay.
func (c Config) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelayMs) * time.Millisecond
}

// RequestTimeout returns the configured per-request timeout.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// Load reads the config file from dir, layering it over Default(). A
// missing file returns plain defaults.
func Load(dir string) (Config, error) {
	cfg := Default()

	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}
