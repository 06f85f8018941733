package domain

import (
	"encoding/json"
	"time"
)

type DocumentType string

const (
	DocTypeHospitalBill     DocumentType = "hospital_bill"
	DocTypeDischargeSummary DocumentType = "discharge_summary"
	DocTypeInsuranceCard    DocumentType = "insurance_card"
	DocTypeOther            DocumentType = "other"
)

// ParseDocumentType validates a label against the closed set.
func ParseDocumentType(s string) (DocumentType, bool) {
	switch DocumentType(s) {
	case DocTypeHospitalBill, DocTypeDischargeSummary, DocTypeInsuranceCard, DocTypeOther:
		return DocumentType(s), true
	default:
		return DocTypeOther, false
	}
}

// Upload is one raw document as received from the caller.
type Upload struct {
	Filename string
	Data     []byte
}

// RawDocument is an uploaded document after text extraction. Immutable once built.
type RawDocument struct {
	ID       string
	Filename string
	Text     string
}

type ClassificationResult struct {
	DocumentID string       `json:"document_id"`
	Type       DocumentType `json:"type"`
	Confidence float64      `json:"confidence"`
}

type LineItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Quantity    int     `json:"quantity"`
}

// ExtractedRecord is the typed output of extraction for one document.
// Fields holds only values that were actually found; absent fields have no key.
type ExtractedRecord struct {
	Type       DocumentType
	Fields     map[string]any
	Confidence float64
	RawText    string
}

func (r ExtractedRecord) Has(name string) bool {
	_, ok := r.Fields[name]
	return ok
}

func (r ExtractedRecord) StringField(name string) (string, bool) {
	v, ok := r.Fields[name].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (r ExtractedRecord) AmountField(name string) (float64, bool) {
	switch v := r.Fields[name].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func (r ExtractedRecord) Items() []LineItem {
	items, _ := r.Fields[FieldItems].([]LineItem)
	return items
}

type DecisionStatus string

const (
	StatusApproved DecisionStatus = "approved"
	StatusRejected DecisionStatus = "rejected"
	StatusPending  DecisionStatus = "pending"
)

func (s DecisionStatus) Valid() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusPending
}

type ClaimDecision struct {
	Status            DecisionStatus `json:"status"`
	Reason            string         `json:"reason"`
	Confidence        float64        `json:"confidence"`
	RecommendedAmount *float64       `json:"recommended_amount,omitempty"`
}

type DocumentResult struct {
	Type       DocumentType   `json:"type"`
	Fields     map[string]any `json:"data"`
	Confidence float64        `json:"confidence"`
}

type ProcessingSummary struct {
	TotalDocuments      int `json:"total_documents"`
	ClassifiedDocuments int `json:"classified_documents"`
	ExtractedDocuments  int `json:"extracted_documents"`
}

// ClaimResult is the complete response for one processed claim.
type ClaimResult struct {
	Documents  map[string]DocumentResult `json:"documents"`
	Validation ValidationLists           `json:"validation"`
	Decision   ClaimDecision             `json:"claim_decision"`
	Summary    ProcessingSummary         `json:"processing_summary"`
}

type ClaimStatus string

const (
	ClaimReceived   ClaimStatus = "received"
	ClaimProcessing ClaimStatus = "processing"
	ClaimProcessed  ClaimStatus = "processed"
	ClaimFailed     ClaimStatus = "failed"
)

// StoredDocument points at an uploaded blob awaiting asynchronous processing.
type StoredDocument struct {
	Key      string `json:"key"`
	Filename string `json:"filename"`
}

// Claim is the audit record for an asynchronously submitted claim.
type Claim struct {
	ID        string           `json:"id"`
	Status    ClaimStatus      `json:"status"`
	Documents []StoredDocument `json:"documents"`
	Result    *ClaimResult     `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// MarshalDocuments returns the manifest as JSON for persistence.
func (c *Claim) MarshalDocuments() ([]byte, error) {
	return json.Marshal(c.Documents)
}
