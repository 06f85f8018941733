package usecase

import (
	"context"
	"io"
	"log/slog"

	"github.com/medassist/claim-processor/internal/core/domain"
	"github.com/medassist/claim-processor/internal/core/ports"
)

// StoredProcessor is the worker-side use case: it loads a submitted claim's
// blobs, runs the pipeline, and persists the outcome. Blobs are removed as
// soon as they are read; stored documents never outlive processing.
type StoredProcessor struct {
	repo      ports.ClaimRepository
	store     ports.ObjectStorage
	processor *Processor
	log       *slog.Logger
}

func NewStoredProcessor(repo ports.ClaimRepository, store ports.ObjectStorage, processor *Processor, log *slog.Logger) *StoredProcessor {
	return &StoredProcessor{repo: repo, store: store, processor: processor, log: log}
}

func (w *StoredProcessor) ProcessClaim(ctx context.Context, claimID string) error {
	claim, err := w.repo.GetByID(ctx, claimID)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "load claim", err)
	}
	if claim.Status == domain.ClaimProcessed {
		w.log.Info("claim already processed, skipping", "claim_id", claimID)
		return nil
	}

	if err := w.repo.UpdateStatus(ctx, claimID, domain.ClaimProcessing, ""); err != nil {
		return domain.WrapError(domain.ErrTemporary, "mark claim processing", err)
	}

	uploads, err := w.loadDocuments(ctx, claim)
	if err != nil {
		w.cleanup(ctx, claim)
		w.fail(ctx, claimID, err)
		return err
	}

	result := w.processor.Process(ctx, uploads)
	if err := w.repo.SaveResult(ctx, claimID, result); err != nil {
		w.fail(ctx, claimID, err)
		return domain.WrapError(domain.ErrTemporary, "save claim result", err)
	}

	w.log.Info("claim processed",
		"claim_id", claimID,
		"status", result.Decision.Status,
		"documents", result.Summary.TotalDocuments)
	return nil
}

func (w *StoredProcessor) loadDocuments(ctx context.Context, claim *domain.Claim) ([]domain.Upload, error) {
	uploads := make([]domain.Upload, 0, len(claim.Documents))
	for _, doc := range claim.Documents {
		data, err := w.readAndRemove(ctx, doc.Key)
		if err != nil {
			return nil, domain.WrapError(domain.ErrTemporary, "load claim document", err)
		}
		uploads = append(uploads, domain.Upload{Filename: doc.Filename, Data: data})
	}
	return uploads, nil
}

func (w *StoredProcessor) readAndRemove(ctx context.Context, key string) ([]byte, error) {
	rc, err := w.store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	data, readErr := io.ReadAll(rc)
	rc.Close()

	if err := w.store.Remove(ctx, key); err != nil {
		w.log.Warn("failed to remove stored document", "key", key, "error", err)
	}
	return data, readErr
}

// cleanup removes whatever blobs are still around after a load failure.
func (w *StoredProcessor) cleanup(ctx context.Context, claim *domain.Claim) {
	for _, doc := range claim.Documents {
		if err := w.store.Remove(ctx, doc.Key); err != nil {
			w.log.Debug("cleanup of stored document failed", "key", doc.Key, "error", err)
		}
	}
}

func (w *StoredProcessor) fail(ctx context.Context, claimID string, cause error) {
	if err := w.repo.UpdateStatus(ctx, claimID, domain.ClaimFailed, cause.Error()); err != nil {
		w.log.Error("failed to mark claim failed", "claim_id", claimID, "error", err)
	}
}
