// Package offline provides the null text generator used when no model
// backend is configured. Every call reports the backend as unavailable, which
// the pipeline treats as "use the deterministic path".
package offline

import (
	"context"

	"github.com/medassist/claim-processor/internal/core/domain"
)

type Generator struct{}

func NewGenerator() Generator {
	return Generator{}
}

func (Generator) Generate(context.Context, string) (string, error) {
	return "", domain.ErrGeneratorUnavailable
}

func (Generator) GenerateJSON(context.Context, string) (string, error) {
	return "", domain.ErrGeneratorUnavailable
}
