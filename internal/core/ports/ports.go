package ports

import (
	"context"
	"io"

	"github.com/medassist/claim-processor/internal/core/domain"
)

// TextGenerator is the generative-text collaborator. Implementations may be
// entirely unavailable; callers treat any error as "no model data" and fall
// back to deterministic behavior.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// TextExtractor turns raw document bytes into best-effort plain text.
// It returns an empty string on failure and never raises into the pipeline.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) string
}

// ReportRenderer produces a binary report from a final claim result.
type ReportRenderer interface {
	Render(result domain.ClaimResult) ([]byte, error)
}

// ClaimRepository persists the audit trail for asynchronously submitted claims.
type ClaimRepository interface {
	Create(ctx context.Context, claim *domain.Claim) error
	GetByID(ctx context.Context, id string) (*domain.Claim, error)
	UpdateStatus(ctx context.Context, id string, status domain.ClaimStatus, errMessage string) error
	SaveResult(ctx context.Context, id string, result domain.ClaimResult) error
}

// ObjectStorage stores uploaded document blobs until the worker consumes them.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes claim submission events.
type MessageQueue interface {
	PublishClaimSubmitted(ctx context.Context, claimID string) error
	SubscribeClaimSubmitted(ctx context.Context, handler func(context.Context, string) error) error
}
