package decide

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/medassist/claim-processor/internal/core/domain"
	"github.com/medassist/claim-processor/internal/core/ports"
)

// Rules are the hard thresholds of the rule-based decision path.
type Rules struct {
	MaxDiscrepancies int
	MinConfidence    float64
	MaxClaimAmount   float64
}

func DefaultRules() Rules {
	return Rules{
		MaxDiscrepancies: 2,
		MinConfidence:    0.3,
		MaxClaimAmount:   1_000_000,
	}
}

// Engine produces the final claim decision. The rule path always runs first
// and is the guaranteed floor; the model pass may replace it wholly, but any
// model failure falls back to the rule decision without surfacing an error.
type Engine struct {
	rules Rules
	gen   ports.TextGenerator
	log   *slog.Logger
}

func New(rules Rules, gen ports.TextGenerator, log *slog.Logger) *Engine {
	return &Engine{rules: rules, gen: gen, log: log}
}

func (e *Engine) Decide(ctx context.Context, records []domain.ExtractedRecord, report domain.ValidationReport) domain.ClaimDecision {
	rule := e.ruleDecision(records, report)

	ai, err := e.modelDecision(ctx, records, report, rule)
	if err != nil {
		if !domain.IsKind(err, domain.ErrGeneratorUnavailable) {
			e.log.Debug("model decision failed, keeping rule decision", "error", err)
		}
		return rule
	}
	return ai
}

// ruleDecision applies the rejection gates in fixed order; the first gate
// that fires decides the claim.
func (e *Engine) ruleDecision(records []domain.ExtractedRecord, report domain.ValidationReport) domain.ClaimDecision {
	lists := report.Lists()

	if report.MissingType(domain.DocTypeHospitalBill) {
		return domain.ClaimDecision{
			Status:     domain.StatusRejected,
			Reason:     "Missing critical documents: " + strings.Join(lists.MissingDocuments, ", "),
			Confidence: 0.9,
		}
	}

	if len(report.Discrepancies) > e.rules.MaxDiscrepancies {
		shown := lists.Discrepancies
		if len(shown) > 3 {
			shown = shown[:3]
		}
		return domain.ClaimDecision{
			Status:     domain.StatusRejected,
			Reason:     fmt.Sprintf("Too many discrepancies found (%d): %s", len(report.Discrepancies), strings.Join(shown, "; ")),
			Confidence: 0.8,
		}
	}

	mean := meanConfidence(records)
	if mean < e.rules.MinConfidence {
		return domain.ClaimDecision{
			Status:     domain.StatusRejected,
			Reason:     fmt.Sprintf("Low data extraction confidence (%.2f). Unable to verify claim details.", mean),
			Confidence: 0.7,
		}
	}

	if amount, ok := claimAmount(records); ok && amount > e.rules.MaxClaimAmount {
		ceiling := e.rules.MaxClaimAmount
		return domain.ClaimDecision{
			Status:            domain.StatusRejected,
			Reason:            fmt.Sprintf("Claim amount (₹%s) exceeds maximum limit (₹%s)", formatMoney(amount), formatMoney(ceiling)),
			Confidence:        0.9,
			RecommendedAmount: &ceiling,
		}
	}

	if !basicallyValid(records) {
		return domain.ClaimDecision{
			Status:     domain.StatusRejected,
			Reason:     "Claim does not meet basic validity requirements",
			Confidence: 0.8,
		}
	}

	reason := "All documents verified and validation checks passed"
	if n := len(report.Warnings); n > 0 {
		reason += fmt.Sprintf(". Note: %d warnings found", n)
	}
	decision := domain.ClaimDecision{
		Status:     domain.StatusApproved,
		Reason:     reason,
		Confidence: min(mean+0.2, 1.0),
	}
	if amount, ok := claimAmount(records); ok {
		decision.RecommendedAmount = &amount
	}
	return decision
}

func meanConfidence(records []domain.ExtractedRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	total := 0.0
	for _, rec := range records {
		total += rec.Confidence
	}
	return total / float64(len(records))
}

// claimAmount is the total from the hospital bill, when one was extracted.
func claimAmount(records []domain.ExtractedRecord) (float64, bool) {
	for _, rec := range records {
		if rec.Type != domain.DocTypeHospitalBill {
			continue
		}
		if amount, ok := rec.AmountField(domain.FieldTotalAmount); ok && amount > 0 {
			return amount, true
		}
	}
	return 0, false
}

// basicallyValid requires one document extracted with usable confidence, a
// patient name on the bill or discharge summary, and a billed total.
func basicallyValid(records []domain.ExtractedRecord) bool {
	hasUsableDoc := false
	hasPatient := false
	hasAmount := false
	for _, rec := range records {
		if rec.Confidence > 0.3 {
			hasUsableDoc = true
		}
		switch rec.Type {
		case domain.DocTypeHospitalBill:
			if _, ok := rec.StringField(domain.FieldPatientName); ok {
				hasPatient = true
			}
			if rec.Has(domain.FieldTotalAmount) {
				hasAmount = true
			}
		case domain.DocTypeDischargeSummary:
			if _, ok := rec.StringField(domain.FieldPatientName); ok {
				hasPatient = true
			}
		}
	}
	return hasUsableDoc && hasPatient && hasAmount
}

type modelDecisionPayload struct {
	Status            string   `json:"status"`
	Reason            string   `json:"reason"`
	Confidence        float64  `json:"confidence"`
	RecommendedAmount *float64 `json:"recommended_amount"`
}

func (e *Engine) modelDecision(ctx context.Context, records []domain.ExtractedRecord, report domain.ValidationReport, rule domain.ClaimDecision) (domain.ClaimDecision, error) {
	resp, err := e.gen.GenerateJSON(ctx, buildDecisionPrompt(records, report, rule))
	if err != nil {
		return domain.ClaimDecision{}, err
	}

	candidate := resp
	if start := strings.Index(candidate, "{"); start >= 0 {
		if end := strings.LastIndex(candidate, "}"); end > start {
			candidate = candidate[start : end+1]
		}
	}

	var payload modelDecisionPayload
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return domain.ClaimDecision{}, fmt.Errorf("decode decision response: %w", err)
	}
	status := domain.DecisionStatus(payload.Status)
	if !status.Valid() {
		return domain.ClaimDecision{}, fmt.Errorf("invalid decision status: %q", payload.Status)
	}
	// A decision with no reason is unusable downstream, so it is treated
	// like a malformed response and the rule decision stands.
	if payload.Reason == "" {
		return domain.ClaimDecision{}, fmt.Errorf("empty decision reason")
	}
	return domain.ClaimDecision{
		Status:            status,
		Reason:            payload.Reason,
		Confidence:        clamp01(payload.Confidence),
		RecommendedAmount: payload.RecommendedAmount,
	}, nil
}

func buildDecisionPrompt(records []domain.ExtractedRecord, report domain.ValidationReport, rule domain.ClaimDecision) string {
	lists := report.Lists()
	var b strings.Builder

	b.WriteString("You are a medical insurance claim processor. Based on the following information, make a decision on whether to approve or reject this claim.\n\n")
	fmt.Fprintf(&b, "Rule-based decision: %s - %s\n\n", rule.Status, rule.Reason)
	b.WriteString("Extracted Data Summary:\n")
	b.WriteString(dataSummary(records))
	b.WriteString("\n\nValidation Results:\n")
	fmt.Fprintf(&b, "- Missing documents: %v\n", lists.MissingDocuments)
	fmt.Fprintf(&b, "- Discrepancies: %v\n", lists.Discrepancies)
	fmt.Fprintf(&b, "- Warnings: %v\n\n", lists.Warnings)
	b.WriteString(`Consider the following factors:
1. Document completeness and authenticity
2. Data consistency across documents
3. Medical necessity and reasonableness of charges
4. Policy coverage and limits

Respond with a JSON object in this format:
{
    "status": "approved" or "rejected" or "pending",
    "reason": "Detailed explanation for the decision",
    "confidence": 0.85,
    "recommended_amount": 12345.67
}

Return only the JSON object, no additional text.`)
	return b.String()
}

func dataSummary(records []domain.ExtractedRecord) string {
	parts := make([]string, 0, len(records))
	for _, rec := range records {
		var b strings.Builder
		fmt.Fprintf(&b, "\n%s:\n  Confidence: %.2f", strings.ToUpper(string(rec.Type)), rec.Confidence)

		switch rec.Type {
		case domain.DocTypeHospitalBill:
			fmt.Fprintf(&b, "\n  Hospital: %s", fieldOrNA(rec, domain.FieldHospitalName))
			fmt.Fprintf(&b, "\n  Patient: %s", fieldOrNA(rec, domain.FieldPatientName))
			fmt.Fprintf(&b, "\n  Total Amount: ₹%s", fieldOrNA(rec, domain.FieldTotalAmount))
			fmt.Fprintf(&b, "\n  Service Date: %s", fieldOrNA(rec, domain.FieldDateOfService))
		case domain.DocTypeDischargeSummary:
			fmt.Fprintf(&b, "\n  Patient: %s", fieldOrNA(rec, domain.FieldPatientName))
			fmt.Fprintf(&b, "\n  Diagnosis: %s", fieldOrNA(rec, domain.FieldDiagnosis))
			fmt.Fprintf(&b, "\n  Admission: %s", fieldOrNA(rec, domain.FieldAdmissionDate))
			fmt.Fprintf(&b, "\n  Discharge: %s", fieldOrNA(rec, domain.FieldDischargeDate))
		case domain.DocTypeInsuranceCard:
			fmt.Fprintf(&b, "\n  Card Holder: %s", fieldOrNA(rec, domain.FieldCardHolderName))
			fmt.Fprintf(&b, "\n  Policy Number: %s", fieldOrNA(rec, domain.FieldPolicyNumber))
			fmt.Fprintf(&b, "\n  Sum Insured: ₹%s", fieldOrNA(rec, domain.FieldSumInsured))
			fmt.Fprintf(&b, "\n  Insurance Company: %s", fieldOrNA(rec, domain.FieldInsuranceCompany))
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n")
}

func fieldOrNA(rec domain.ExtractedRecord, field string) string {
	v, ok := rec.Fields[field]
	if !ok {
		return "N/A"
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return formatMoney(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatMoney renders an amount with thousands separators and two decimals.
func formatMoney(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	dot := strings.Index(s, ".")
	whole, frac := s[:dot], s[dot:]

	var sign string
	if strings.HasPrefix(whole, "-") {
		sign, whole = "-", whole[1:]
	}
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + frac
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
