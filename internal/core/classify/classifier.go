package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/medassist/claim-processor/internal/core/domain"
	"github.com/medassist/claim-processor/internal/core/ports"
)

// Keyword sets for the deterministic fallback path. Order of the label checks
// below is the fixed tie-break: bill beats discharge beats insurance.
var (
	billKeywords      = []string{"bill", "invoice", "charges", "amount", "total", "hospital", "medical"}
	dischargeKeywords = []string{"discharge", "summary", "diagnosis", "admission", "patient"}
	insuranceKeywords = []string{"insurance", "policy", "card", "coverage", "premium"}
)

const classifySnippetLimit = 2000

// Classifier assigns each document one of the closed label set. The model path
// is primary; any backend or parse failure degrades to keyword scoring, so
// classification works fully offline.
type Classifier struct {
	gen ports.TextGenerator
	log *slog.Logger
}

func New(gen ports.TextGenerator, log *slog.Logger) *Classifier {
	return &Classifier{gen: gen, log: log}
}

func (c *Classifier) Classify(ctx context.Context, doc domain.RawDocument) domain.ClassificationResult {
	result, err := c.modelClassify(ctx, doc)
	if err == nil {
		return result
	}
	if !domain.IsKind(err, domain.ErrGeneratorUnavailable) {
		c.log.Debug("model classification failed, falling back to keywords",
			"document_id", doc.ID, "error", err)
	}
	return c.keywordClassify(doc)
}

func (c *Classifier) modelClassify(ctx context.Context, doc domain.RawDocument) (domain.ClassificationResult, error) {
	resp, err := c.gen.Generate(ctx, buildClassifyPrompt(doc.Filename, doc.Text))
	if err != nil {
		return domain.ClassificationResult{}, err
	}

	parts := strings.Split(strings.TrimSpace(resp), ",")
	if len(parts) != 2 {
		return domain.ClassificationResult{}, fmt.Errorf("malformed classification response: %q", resp)
	}
	docType, ok := domain.ParseDocumentType(strings.TrimSpace(parts[0]))
	if !ok {
		return domain.ClassificationResult{}, fmt.Errorf("unknown document label: %q", parts[0])
	}
	confidence, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("parse classification confidence: %w", err)
	}
	return domain.ClassificationResult{
		DocumentID: doc.ID,
		Type:       docType,
		Confidence: clamp01(confidence),
	}, nil
}

func (c *Classifier) keywordClassify(doc domain.RawDocument) domain.ClassificationResult {
	filename := strings.ToLower(doc.Filename)
	text := strings.ToLower(doc.Text)

	billScore := keywordScore(billKeywords, filename, text)
	dischargeScore := keywordScore(dischargeKeywords, filename, text)
	insuranceScore := keywordScore(insuranceKeywords, filename, text)

	result := domain.ClassificationResult{DocumentID: doc.ID}
	switch {
	case billScore == 0 && dischargeScore == 0 && insuranceScore == 0:
		result.Type = domain.DocTypeOther
		result.Confidence = 0.1
	case billScore >= dischargeScore && billScore >= insuranceScore:
		result.Type = domain.DocTypeHospitalBill
		result.Confidence = keywordConfidence(billScore, len(billKeywords))
	case dischargeScore >= insuranceScore:
		result.Type = domain.DocTypeDischargeSummary
		result.Confidence = keywordConfidence(dischargeScore, len(dischargeKeywords))
	case insuranceScore > 0:
		result.Type = domain.DocTypeInsuranceCard
		result.Confidence = keywordConfidence(insuranceScore, len(insuranceKeywords))
	default:
		result.Type = domain.DocTypeOther
		result.Confidence = 0.1
	}
	return result
}

func keywordScore(keywords []string, filename, text string) int {
	score := 0
	for _, kw := range keywords {
		if strings.Contains(filename, kw) || strings.Contains(text, kw) {
			score++
		}
	}
	return score
}

func keywordConfidence(score, setSize int) float64 {
	confidence := float64(score) / float64(setSize)
	if confidence > 0.9 {
		return 0.9
	}
	return confidence
}

func buildClassifyPrompt(filename, text string) string {
	snippet := text
	if len(snippet) > classifySnippetLimit {
		snippet = snippet[:classifySnippetLimit]
	}

	return fmt.Sprintf(`You are a medical document classifier. Analyze the following document and classify it into one of these categories:
- hospital_bill: Medical bills, invoices, or billing statements
- discharge_summary: Hospital discharge summaries or medical reports
- insurance_card: Insurance cards or policy documents
- other: Any other type of document

Document filename: %s

Document content (first %d characters):
%s

Respond with only the classification category (hospital_bill, discharge_summary, insurance_card, or other) and a confidence score between 0 and 1, separated by a comma.
Example: hospital_bill,0.95`, filename, classifySnippetLimit, snippet)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
