package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/medassist/claim-processor/internal/core/classify"
	"github.com/medassist/claim-processor/internal/core/decide"
	"github.com/medassist/claim-processor/internal/core/domain"
	"github.com/medassist/claim-processor/internal/core/extract"
	"github.com/medassist/claim-processor/internal/core/ports"
	"github.com/medassist/claim-processor/internal/core/validate"
)

var testLogger = slog.New(slog.DiscardHandler)

type offlineGenerator struct{}

func (offlineGenerator) Generate(_ context.Context, _ string) (string, error) {
	return "", domain.ErrGeneratorUnavailable
}

func (offlineGenerator) GenerateJSON(_ context.Context, _ string) (string, error) {
	return "", domain.ErrGeneratorUnavailable
}

// byteTextExtractor treats the upload payload as plain text.
type byteTextExtractor struct{}

func (byteTextExtractor) Extract(_ context.Context, _ string, data []byte) string {
	return string(data)
}

type panickyTextExtractor struct{}

func (panickyTextExtractor) Extract(_ context.Context, _ string, _ []byte) string {
	panic("text layer blew up")
}

func newTestProcessor(texts ports.TextExtractor) *Processor {
	gen := offlineGenerator{}
	return NewProcessor(
		classify.New(gen, testLogger),
		[]*extract.Extractor{
			extract.NewBill(gen, testLogger),
			extract.NewDischarge(gen, testLogger),
			extract.NewInsurance(gen, testLogger),
		},
		validate.New(),
		decide.New(decide.DefaultRules(), gen, testLogger),
		texts,
		testLogger,
	)
}

const (
	billText = `Apollo Hospital
Patient Name: Asha Rao
Admitted: 12/03/2024
Discharged: 15/03/2024
Room Charges 12,000
Surgery Charges 30,000
Pharmacy Charges 8,000
Total: Rs. 50,000
Insurance: Star Health
Policy Number: SH-2024-778899`

	dischargeText = `Discharge Summary
Patient Name: Asha Rao
Diagnosis: Acute Appendicitis.
Admitted: 12/03/2024
Discharged: 15/03/2024
Attending: Dr. Meena Iyer
Apollo Hospital`

	insuranceText = `Star Health Insurance Card
Card Holder: Asha Rao
Policy Number: SH99887766
Sum Insured: Rs. 500,000
Valid until 31/12/2026`
)

func fullClaimUploads() []domain.Upload {
	return []domain.Upload{
		{Filename: "hospital_bill.txt", Data: []byte(billText)},
		{Filename: "discharge_summary.txt", Data: []byte(dischargeText)},
		{Filename: "insurance_card.txt", Data: []byte(insuranceText)},
	}
}

func TestProcessApprovesConsistentClaim(t *testing.T) {
	result := newTestProcessor(byteTextExtractor{}).Process(context.Background(), fullClaimUploads())

	if result.Decision.Status != domain.StatusApproved {
		t.Fatalf("status = %s (%s), want approved", result.Decision.Status, result.Decision.Reason)
	}
	if result.Decision.RecommendedAmount == nil || *result.Decision.RecommendedAmount != 50000 {
		t.Errorf("recommended amount = %v, want 50000", result.Decision.RecommendedAmount)
	}
	if result.Decision.Confidence != 1 {
		t.Errorf("confidence = %v, want capped at 1", result.Decision.Confidence)
	}

	if len(result.Documents) != 3 {
		t.Fatalf("documents = %d, want 3", len(result.Documents))
	}
	for _, key := range []string{"document_1", "document_2", "document_3"} {
		if _, ok := result.Documents[key]; !ok {
			t.Errorf("missing document key %q", key)
		}
	}
	if result.Documents["document_1"].Type != domain.DocTypeHospitalBill {
		t.Errorf("document_1 type = %s, want hospital_bill", result.Documents["document_1"].Type)
	}

	if len(result.Validation.Discrepancies) != 0 || len(result.Validation.MissingDocuments) != 0 {
		t.Errorf("validation = %+v, want clean", result.Validation)
	}
	want := domain.ProcessingSummary{TotalDocuments: 3, ClassifiedDocuments: 3, ExtractedDocuments: 3}
	if result.Summary != want {
		t.Errorf("summary = %+v, want %+v", result.Summary, want)
	}
}

func TestProcessRejectsWhenBillMissing(t *testing.T) {
	result := newTestProcessor(byteTextExtractor{}).Process(context.Background(), []domain.Upload{
		{Filename: "insurance_card.txt", Data: []byte(insuranceText)},
	})

	if result.Decision.Status != domain.StatusRejected {
		t.Fatalf("status = %s, want rejected", result.Decision.Status)
	}
	if !strings.HasPrefix(result.Decision.Reason, "Missing critical documents: ") {
		t.Errorf("reason = %q", result.Decision.Reason)
	}
}

func TestProcessRoutesUnknownTypeToOther(t *testing.T) {
	result := newTestProcessor(byteTextExtractor{}).Process(context.Background(), []domain.Upload{
		{Filename: "photo.jpg", Data: []byte("a picture of a cat")},
	})

	doc, ok := result.Documents["document_1"]
	if !ok {
		t.Fatal("document_1 missing from response")
	}
	if doc.Type != domain.DocTypeOther || doc.Confidence != 0 || len(doc.Fields) != 0 {
		t.Errorf("document_1 = %+v, want empty other record", doc)
	}
}

func TestProcessSurvivesPanic(t *testing.T) {
	result := newTestProcessor(panickyTextExtractor{}).Process(context.Background(), fullClaimUploads())

	if result.Decision.Status != domain.StatusRejected {
		t.Fatalf("status = %s, want rejected", result.Decision.Status)
	}
	if !strings.Contains(result.Decision.Reason, "text layer blew up") {
		t.Errorf("reason = %q, want the panic message embedded", result.Decision.Reason)
	}
	if len(result.Validation.Discrepancies) != 1 {
		t.Errorf("validation = %+v, want one processing error entry", result.Validation)
	}
	if result.Summary.TotalDocuments != 3 {
		t.Errorf("total documents = %d, want 3", result.Summary.TotalDocuments)
	}
}

// In-memory fakes for the async path.

type memRepo struct {
	claims map[string]*domain.Claim
}

func newMemRepo() *memRepo {
	return &memRepo{claims: make(map[string]*domain.Claim)}
}

func (r *memRepo) Create(_ context.Context, claim *domain.Claim) error {
	clone := *claim
	r.claims[claim.ID] = &clone
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*domain.Claim, error) {
	claim, ok := r.claims[id]
	if !ok {
		return nil, domain.ErrClaimNotFound
	}
	clone := *claim
	return &clone, nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id string, status domain.ClaimStatus, errMessage string) error {
	claim, ok := r.claims[id]
	if !ok {
		return domain.ErrClaimNotFound
	}
	claim.Status = status
	claim.Error = errMessage
	return nil
}

func (r *memRepo) SaveResult(_ context.Context, id string, result domain.ClaimResult) error {
	claim, ok := r.claims[id]
	if !ok {
		return domain.ErrClaimNotFound
	}
	claim.Status = domain.ClaimProcessed
	claim.Result = &result
	return nil
}

type memStore struct {
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) Save(_ context.Context, key string, data io.Reader) error {
	payload, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.objects[key] = payload
	return nil
}

func (s *memStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	payload, ok := s.objects[key]
	if !ok {
		return nil, errors.New("no such object: " + key)
	}
	return io.NopCloser(bytes.NewReader(payload)), nil
}

func (s *memStore) Remove(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

type memQueue struct {
	published []string
	err       error
}

func (q *memQueue) PublishClaimSubmitted(_ context.Context, claimID string) error {
	if q.err != nil {
		return q.err
	}
	q.published = append(q.published, claimID)
	return nil
}

func (q *memQueue) SubscribeClaimSubmitted(_ context.Context, _ func(context.Context, string) error) error {
	return nil
}

func TestSubmitStoresAndPublishes(t *testing.T) {
	repo := newMemRepo()
	store := newMemStore()
	queue := &memQueue{}
	submitter := NewSubmitter(repo, store, queue, testLogger)

	claim, err := submitter.Submit(context.Background(), fullClaimUploads())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if claim.Status != domain.ClaimReceived {
		t.Errorf("status = %s, want received", claim.Status)
	}
	if len(claim.Documents) != 3 || len(store.objects) != 3 {
		t.Errorf("stored %d manifest entries and %d blobs, want 3 each", len(claim.Documents), len(store.objects))
	}
	if len(queue.published) != 1 || queue.published[0] != claim.ID {
		t.Errorf("published = %v, want the claim id once", queue.published)
	}
	if _, err := repo.GetByID(context.Background(), claim.ID); err != nil {
		t.Errorf("claim record not persisted: %v", err)
	}
}

func TestSubmitRejectsEmptyUploads(t *testing.T) {
	submitter := NewSubmitter(newMemRepo(), newMemStore(), &memQueue{}, testLogger)
	_, err := submitter.Submit(context.Background(), nil)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestSubmitSurfacesPublishFailure(t *testing.T) {
	queue := &memQueue{err: errors.New("broker down")}
	submitter := NewSubmitter(newMemRepo(), newMemStore(), queue, testLogger)
	_, err := submitter.Submit(context.Background(), fullClaimUploads())
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Errorf("err = %v, want ErrTemporary", err)
	}
}

func TestStoredProcessorEndToEnd(t *testing.T) {
	repo := newMemRepo()
	store := newMemStore()
	submitter := NewSubmitter(repo, store, &memQueue{}, testLogger)
	worker := NewStoredProcessor(repo, store, newTestProcessor(byteTextExtractor{}), testLogger)

	claim, err := submitter.Submit(context.Background(), fullClaimUploads())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := worker.ProcessClaim(context.Background(), claim.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	stored, err := repo.GetByID(context.Background(), claim.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != domain.ClaimProcessed {
		t.Errorf("status = %s, want processed", stored.Status)
	}
	if stored.Result == nil || stored.Result.Decision.Status != domain.StatusApproved {
		t.Errorf("result = %+v, want approved decision", stored.Result)
	}
	if len(store.objects) != 0 {
		t.Errorf("%d blobs left in storage, want none", len(store.objects))
	}
}

func TestStoredProcessorUnknownClaim(t *testing.T) {
	worker := NewStoredProcessor(newMemRepo(), newMemStore(), newTestProcessor(byteTextExtractor{}), testLogger)
	if err := worker.ProcessClaim(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for unknown claim")
	}
}

func TestStoredProcessorSkipsProcessedClaim(t *testing.T) {
	repo := newMemRepo()
	store := newMemStore()
	worker := NewStoredProcessor(repo, store, newTestProcessor(byteTextExtractor{}), testLogger)

	claim := &domain.Claim{ID: "claim-1", Status: domain.ClaimProcessed}
	if err := repo.Create(context.Background(), claim); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := worker.ProcessClaim(context.Background(), "claim-1"); err != nil {
		t.Fatalf("process: %v", err)
	}
}
