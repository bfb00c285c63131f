package pdf

import (
	"context"
	"io"
)

type Provider interface {
	GenerateEstimate(ctx context.Context, data EstimateData) (io.Reader, error)
}
