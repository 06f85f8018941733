package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/medassist/claim-processor/internal/core/classify"
	"github.com/medassist/claim-processor/internal/core/decide"
	"github.com/medassist/claim-processor/internal/core/domain"
	"github.com/medassist/claim-processor/internal/core/extract"
	"github.com/medassist/claim-processor/internal/core/ports"
	"github.com/medassist/claim-processor/internal/core/validate"
)

// Processor orchestrates the full pipeline for one claim: text extraction,
// classification, typed extraction, validation, and the final decision.
// Process always returns a well-formed result; any internal failure surfaces
// as a rejected decision, never as an error or panic.
type Processor struct {
	classifier *classify.Classifier
	extractors map[domain.DocumentType]*extract.Extractor
	validator  *validate.Validator
	engine     *decide.Engine
	texts      ports.TextExtractor
	log        *slog.Logger
}

func NewProcessor(
	classifier *classify.Classifier,
	extractors []*extract.Extractor,
	validator *validate.Validator,
	engine *decide.Engine,
	texts ports.TextExtractor,
	log *slog.Logger,
) *Processor {
	byType := make(map[domain.DocumentType]*extract.Extractor, len(extractors))
	for _, ex := range extractors {
		byType[ex.Type()] = ex
	}
	return &Processor{
		classifier: classifier,
		extractors: byType,
		validator:  validator,
		engine:     engine,
		texts:      texts,
		log:        log,
	}
}

func (p *Processor) Process(ctx context.Context, uploads []domain.Upload) (result domain.ClaimResult) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("claim processing panicked", "panic", r)
			result = errorResult(len(uploads), fmt.Sprintf("%v", r))
		}
	}()

	docs := make([]domain.RawDocument, len(uploads))
	for i, upload := range uploads {
		docs[i] = domain.RawDocument{
			ID:       uuid.NewString(),
			Filename: upload.Filename,
			Text:     p.texts.Extract(ctx, upload.Filename, upload.Data),
		}
	}

	// Classification and extraction are independent per document.
	records := make([]domain.ExtractedRecord, len(docs))
	var wg sync.WaitGroup
	for i, doc := range docs {
		wg.Add(1)
		go func(i int, doc domain.RawDocument) {
			defer wg.Done()
			classification := p.classifier.Classify(ctx, doc)
			records[i] = p.extractRecord(ctx, classification.Type, doc.Text)
		}(i, doc)
	}
	wg.Wait()

	report := p.validator.Validate(records)
	decision := p.engine.Decide(ctx, records, report)

	documents := make(map[string]domain.DocumentResult, len(records))
	for i, rec := range records {
		documents[fmt.Sprintf("document_%d", i+1)] = domain.DocumentResult{
			Type:       rec.Type,
			Fields:     rec.Fields,
			Confidence: rec.Confidence,
		}
	}

	return domain.ClaimResult{
		Documents:  documents,
		Validation: report.Lists(),
		Decision:   decision,
		Summary: domain.ProcessingSummary{
			TotalDocuments:      len(uploads),
			ClassifiedDocuments: len(docs),
			ExtractedDocuments:  len(records),
		},
	}
}

func (p *Processor) extractRecord(ctx context.Context, docType domain.DocumentType, text string) domain.ExtractedRecord {
	ex, ok := p.extractors[docType]
	if !ok {
		return domain.ExtractedRecord{
			Type:    domain.DocTypeOther,
			Fields:  map[string]any{},
			RawText: text,
		}
	}
	return ex.Extract(ctx, text)
}

func errorResult(totalDocuments int, message string) domain.ClaimResult {
	return domain.ClaimResult{
		Documents: map[string]domain.DocumentResult{},
		Validation: domain.ValidationLists{
			MissingDocuments: []string{},
			Discrepancies:    []string{"Processing error: " + message},
			Warnings:         []string{},
		},
		Decision: domain.ClaimDecision{
			Status: domain.StatusRejected,
			Reason: "Unable to process claim due to error: " + message,
		},
		Summary: domain.ProcessingSummary{TotalDocuments: totalDocuments},
	}
}
