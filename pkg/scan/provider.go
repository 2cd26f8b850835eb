// Package scan runs the receipt OCR pipeline: jobs are queued on a Redis
// stream when a scan is requested, workers call the configured provider,
// extract the fields the portal cares about, and store them as the
// receipt's content sub-record.
package scan

import (
	"context"
	"errors"

	"github.com/Ramsey-B/clover/pkg/models"
)

// ErrNoProvider is returned when scanning is requested but no provider
// is configured.
var ErrNoProvider = errors.New("no scan provider configured")

// Provider produces the raw OCR document for a receipt. Implementations
// call an external scan service; the portal only depends on this
// interface and on the JSON document shape declared by the provider's
// extraction profile.
type Provider interface {
	// Name identifies the provider; it selects the extraction profile
	// and is stored on the receipt content row.
	Name() string

	// Scan reads the receipt's file and returns the provider's raw
	// JSON document as a generic map.
	Scan(ctx context.Context, receipt *models.Receipt) (map[string]any, error)
}

// UnconfiguredProvider fails every scan. It stands in when the
// deployment has no OCR integration, so queued jobs mark their receipts
// failed instead of sitting unacked on the stream.
type UnconfiguredProvider struct{}

func (UnconfiguredProvider) Name() string {
	return "unconfigured"
}

func (UnconfiguredProvider) Scan(ctx context.Context, receipt *models.Receipt) (map[string]any, error) {
	return nil, ErrNoProvider
}
