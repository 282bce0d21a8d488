// internal/pipeline/aligner.go
package pipeline

import (
	"context"

	"swineotype/core/hsp"
	"swineotype/internal/blast"
)

// Aligner is the minimal capability the pipeline needs from the alignment
// gateway. Fakes in tests satisfy it too.
type Aligner interface {
	Align(ctx context.Context, query, assembly string, threads int) (raw string, hits []hsp.Hit, err error)
}

var _ Aligner = (*blast.Gateway)(nil)
