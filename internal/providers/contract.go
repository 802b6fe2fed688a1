package providers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jordanhubbard/astrohub/internal/router"
)

// StatusError captures an HTTP status code from a provider response.
// Used by adapters to return structured errors that ClassifyError can inspect.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// Classify maps an adapter error onto the router's fallback classes:
// a non-2xx status moves on to the next model candidate, anything else
// abandons the provider.
func Classify(err error) *router.ClassifiedError {
	var se *StatusError
	if errors.As(err, &se) {
		return &router.ClassifiedError{Err: err, Class: router.ErrStatus}
	}
	return &router.ClassifiedError{Err: err, Class: router.ErrTransport}
}

// Option configures an adapter's HTTP behaviour.
type Option func(*Options)

// Options is the shared adapter configuration.
type Options struct {
	Client  *http.Client
	Timeout time.Duration
	Models  []string
}

// WithTimeout bounds every HTTP exchange made by the adapter.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithHTTPClient replaces the adapter's HTTP client, typically to install a
// tracing transport.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) {
		if c != nil {
			o.Client = c
		}
	}
}

// WithModels overrides the adapter's model candidates.
func WithModels(models ...string) Option {
	return func(o *Options) {
		if len(models) > 0 {
			o.Models = append([]string(nil), models...)
		}
	}
}

// ApplyOptions resolves opts over the adapter defaults.
func ApplyOptions(defaultModels []string, opts []Option) Options {
	o := Options{Client: &http.Client{}, Models: defaultModels}
	for _, fn := range opts {
		fn(&o)
	}
	if o.Timeout > 0 {
		c := *o.Client
		c.Timeout = o.Timeout
		o.Client = &c
	}
	return o
}
