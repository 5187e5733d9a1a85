// Package catalog defines the vendor adapter contract and the shared
// plumbing adapters use: a rate-limited HTTP client, unit parsing and
// category classification.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/sw33tLie/partscope/pkg/component"
)

// ErrUnavailable marks a transport failure or a response that could not be
// mapped into components.
var ErrUnavailable = errors.New("catalog unavailable")

// MaxResults is the page size requested from vendor search APIs. Both
// DigiKey and Mouser cap a page at 50.
const MaxResults = 50

// Catalog searches one vendor. Implementations acquire a rate limiter token
// before every network call.
type Catalog interface {
	Name() string
	Search(ctx context.Context, req component.Requirements) ([]component.Component, error)
}

// PartLookup is implemented by catalogs that can fetch a single part by its
// manufacturer part number.
type PartLookup interface {
	Lookup(ctx context.Context, partNumber string) (component.Component, error)
}

// Logger abstracts logging so callers can use logrus or anything with the
// same shape.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Infof(string, ...interface{})  {}
func (NopLogger) Warnf(string, ...interface{})  {}
func (NopLogger) Errorf(string, ...interface{}) {}
func (NopLogger) Debugf(string, ...interface{}) {}

// Unavailable wraps ErrUnavailable with the vendor name and a reason.
func Unavailable(vendor, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %s", ErrUnavailable, vendor, fmt.Sprintf(format, args...))
}

// ErrPartNotFound is returned by PartLookup when the vendor has no match.
var ErrPartNotFound = errors.New("part not found")
