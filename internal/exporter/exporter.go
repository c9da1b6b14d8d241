// Package exporter defines the contract for turning a signed inspection into
// one immutable document.
package exporter

import (
	"context"
	"rentflow/internal/models"
)

// Exporter produces the artifact for a finalized inspection and returns a
// stable reference to it. Exporting the same inspection again must replace
// the previous artifact rather than add a second one.
type Exporter interface {
	Export(ctx context.Context, inspection *models.Inspection) (string, error)
}
