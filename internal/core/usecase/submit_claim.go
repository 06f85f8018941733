package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/medassist/claim-processor/internal/core/domain"
	"github.com/medassist/claim-processor/internal/core/ports"
)

// Submitter accepts a claim for asynchronous processing: the uploads go to
// object storage, the audit record is created, and a submission event is
// published for the worker.
type Submitter struct {
	repo  ports.ClaimRepository
	store ports.ObjectStorage
	queue ports.MessageQueue
	log   *slog.Logger
}

func NewSubmitter(repo ports.ClaimRepository, store ports.ObjectStorage, queue ports.MessageQueue, log *slog.Logger) *Submitter {
	return &Submitter{repo: repo, store: store, queue: queue, log: log}
}

func (s *Submitter) Submit(ctx context.Context, uploads []domain.Upload) (*domain.Claim, error) {
	if len(uploads) == 0 {
		return nil, fmt.Errorf("%w: no documents attached", domain.ErrInvalidInput)
	}

	claimID := uuid.NewString()
	documents := make([]domain.StoredDocument, 0, len(uploads))
	for _, upload := range uploads {
		key := fmt.Sprintf("%s/%s", claimID, uuid.NewString())
		if err := s.store.Save(ctx, key, bytes.NewReader(upload.Data)); err != nil {
			return nil, domain.WrapError(domain.ErrTemporary, "store claim document", err)
		}
		documents = append(documents, domain.StoredDocument{Key: key, Filename: upload.Filename})
	}

	now := time.Now().UTC()
	claim := &domain.Claim{
		ID:        claimID,
		Status:    domain.ClaimReceived,
		Documents: documents,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, claim); err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "create claim record", err)
	}

	if err := s.queue.PublishClaimSubmitted(ctx, claimID); err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "publish claim submission", err)
	}

	s.log.Info("claim submitted", "claim_id", claimID, "documents", len(documents))
	return claim, nil
}
