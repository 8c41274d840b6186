// Package backend implements the remote translation services used by
// the pipeline: Google Translate (unofficial gtx endpoint),
// LibreTranslate, and MyMemory. All of them satisfy Translator and are
// interchangeable from the pipeline's point of view.
package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Service identifiers accepted by New.
const (
	ServiceGoogle         = "google"
	ServiceLibreTranslate = "libretranslate"
	ServiceMyMemory       = "mymemory"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Translator is the remote translation capability. Implementations
// return an *Error on network or response-parse failure; the caller
// decides how to degrade.
type Translator interface {
	// Translate translates text between two ISO 639-1 language codes.
	// sourceLang may be "auto" where the service supports detection.
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
	// Name is the service identifier, used in logs and errors.
	Name() string
}

// Error wraps any failure of a single translation request.
type Error struct {
	Service string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Service, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Config selects and tunes a backend.
type Config struct {
	// Service is one of the Service* constants.
	Service string
	// Timeout bounds each request (default 30s).
	Timeout time.Duration
	// MaxRetries retries rate-limited or 5xx responses (default 2).
	MaxRetries int
	// LibreTranslateURL overrides the LibreTranslate endpoint.
	LibreTranslateURL string
	// MyMemoryEmail raises the MyMemory daily quota.
	MyMemoryEmail string
}

// New builds the Translator for cfg.Service.
func New(cfg Config) (Translator, error) {
	switch cfg.Service {
	case ServiceGoogle, "":
		return newGoogle(cfg), nil
	case ServiceLibreTranslate:
		return newLibreTranslate(cfg), nil
	case ServiceMyMemory:
		return newMyMemory(cfg), nil
	default:
		return nil, fmt.Errorf("unknown translation service %q", cfg.Service)
	}
}

// newClient builds the shared resty client: per-request timeout, retry
// on 429/5xx, proxy from the environment.
func newClient(cfg Config) *resty.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	} else if retries == 0 {
		retries = 2
	}

	return resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetRetryCount(retries).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return false
			}
			return r.StatusCode() == 429 || r.StatusCode() >= 500
		})
}
