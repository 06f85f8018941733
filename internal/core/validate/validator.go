package validate

import (
	"strings"

	"github.com/medassist/claim-processor/internal/core/domain"
)

// lowConfidenceThreshold marks extractions too weak to trust without review.
const lowConfidenceThreshold = 0.5

var requiredDocuments = []domain.DocumentType{
	domain.DocTypeHospitalBill,
	domain.DocTypeDischargeSummary,
}

// Validator runs the cross-document consistency checks. It is stateless and
// purely deterministic: the same records always produce the same report.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate builds the full report for one claim. When several documents share
// a type, the later one wins, mirroring how results are keyed per type.
func (v *Validator) Validate(records []domain.ExtractedRecord) domain.ValidationReport {
	byType := make(map[domain.DocumentType]domain.ExtractedRecord)
	for _, rec := range records {
		byType[rec.Type] = rec
	}

	var report domain.ValidationReport
	for _, docType := range requiredDocuments {
		if _, ok := byType[docType]; !ok {
			report.MissingDocuments = append(report.MissingDocuments, domain.MissingDocument{Type: docType})
		}
	}

	report.Discrepancies = v.crossCheck(byType)
	report.Warnings = v.warnings(records, byType)
	return report
}

func (v *Validator) crossCheck(byType map[domain.DocumentType]domain.ExtractedRecord) []domain.Discrepancy {
	var discrepancies []domain.Discrepancy

	if d, ok := v.patientNameMismatch(byType); ok {
		discrepancies = append(discrepancies, d)
	}
	if d, ok := v.dateMismatch(byType, domain.FieldAdmissionDate, domain.DiscrepancyAdmissionDate); ok {
		discrepancies = append(discrepancies, d)
	}
	if d, ok := v.dateMismatch(byType, domain.FieldDischargeDate, domain.DiscrepancyDischargeDate); ok {
		discrepancies = append(discrepancies, d)
	}
	if d, ok := v.hospitalMismatch(byType); ok {
		discrepancies = append(discrepancies, d)
	}
	if d, ok := v.insurerMismatch(byType); ok {
		discrepancies = append(discrepancies, d)
	}
	return discrepancies
}

// patientNameMismatch compares the patient name wherever it appears: the bill,
// the discharge summary, and the card holder on the insurance card.
func (v *Validator) patientNameMismatch(byType map[domain.DocumentType]domain.ExtractedRecord) (domain.Discrepancy, bool) {
	sources := []struct {
		doc   domain.DocumentType
		field string
	}{
		{domain.DocTypeHospitalBill, domain.FieldPatientName},
		{domain.DocTypeDischargeSummary, domain.FieldPatientName},
		{domain.DocTypeInsuranceCard, domain.FieldCardHolderName},
	}

	var refs []domain.FieldValueRef
	normalized := make(map[string]bool)
	for _, src := range sources {
		rec, ok := byType[src.doc]
		if !ok {
			continue
		}
		value, ok := rec.StringField(src.field)
		if !ok {
			continue
		}
		refs = append(refs, domain.FieldValueRef{Document: src.doc, Value: value})
		normalized[normalizeName(value)] = true
	}

	if len(normalized) > 1 {
		return domain.Discrepancy{Kind: domain.DiscrepancyPatientName, Values: refs}, true
	}
	return domain.Discrepancy{}, false
}

// dateMismatch compares a date between the bill and the discharge summary.
// Dates are already normalized to YYYY-MM-DD at extraction time, so exact
// string equality is the comparison.
func (v *Validator) dateMismatch(byType map[domain.DocumentType]domain.ExtractedRecord, field string, kind domain.DiscrepancyKind) (domain.Discrepancy, bool) {
	bill, billOK := fieldOf(byType, domain.DocTypeHospitalBill, field)
	discharge, dischargeOK := fieldOf(byType, domain.DocTypeDischargeSummary, field)
	if !billOK || !dischargeOK || bill == discharge {
		return domain.Discrepancy{}, false
	}
	return domain.Discrepancy{
		Kind: kind,
		Values: []domain.FieldValueRef{
			{Document: domain.DocTypeHospitalBill, Value: bill},
			{Document: domain.DocTypeDischargeSummary, Value: discharge},
		},
	}, true
}

func (v *Validator) hospitalMismatch(byType map[domain.DocumentType]domain.ExtractedRecord) (domain.Discrepancy, bool) {
	bill, billOK := fieldOf(byType, domain.DocTypeHospitalBill, domain.FieldHospitalName)
	discharge, dischargeOK := fieldOf(byType, domain.DocTypeDischargeSummary, domain.FieldHospitalName)
	if !billOK || !dischargeOK || normalizeHospital(bill) == normalizeHospital(discharge) {
		return domain.Discrepancy{}, false
	}
	return domain.Discrepancy{
		Kind: domain.DiscrepancyHospitalName,
		Values: []domain.FieldValueRef{
			{Document: domain.DocTypeHospitalBill, Value: bill},
			{Document: domain.DocTypeDischargeSummary, Value: discharge},
		},
	}, true
}

func (v *Validator) insurerMismatch(byType map[domain.DocumentType]domain.ExtractedRecord) (domain.Discrepancy, bool) {
	bill, billOK := fieldOf(byType, domain.DocTypeHospitalBill, domain.FieldInsuranceCompany)
	card, cardOK := fieldOf(byType, domain.DocTypeInsuranceCard, domain.FieldInsuranceCompany)
	if !billOK || !cardOK || normalizeInsurer(bill) == normalizeInsurer(card) {
		return domain.Discrepancy{}, false
	}
	return domain.Discrepancy{
		Kind: domain.DiscrepancyInsurer,
		Values: []domain.FieldValueRef{
			{Document: domain.DocTypeHospitalBill, Value: bill},
			{Document: domain.DocTypeInsuranceCard, Value: card},
		},
	}, true
}

func (v *Validator) warnings(records []domain.ExtractedRecord, byType map[domain.DocumentType]domain.ExtractedRecord) []domain.Warning {
	var warnings []domain.Warning
	for _, rec := range records {
		if rec.Confidence < lowConfidenceThreshold {
			warnings = append(warnings, domain.Warning{
				Kind:       domain.WarningLowConfidence,
				Document:   rec.Type,
				Confidence: rec.Confidence,
			})
		}
	}

	expected := []struct {
		doc   domain.DocumentType
		field string
	}{
		{domain.DocTypeHospitalBill, domain.FieldTotalAmount},
		{domain.DocTypeHospitalBill, domain.FieldPatientName},
		{domain.DocTypeDischargeSummary, domain.FieldDiagnosis},
		{domain.DocTypeDischargeSummary, domain.FieldPatientName},
		{domain.DocTypeInsuranceCard, domain.FieldPolicyNumber},
		{domain.DocTypeInsuranceCard, domain.FieldSumInsured},
	}
	for _, exp := range expected {
		rec, ok := byType[exp.doc]
		if !ok {
			continue
		}
		if !rec.Has(exp.field) {
			warnings = append(warnings, domain.Warning{
				Kind:     domain.WarningMissingField,
				Document: exp.doc,
				Field:    exp.field,
			})
		}
	}
	return warnings
}

func fieldOf(byType map[domain.DocumentType]domain.ExtractedRecord, doc domain.DocumentType, field string) (string, bool) {
	rec, ok := byType[doc]
	if !ok {
		return "", false
	}
	return rec.StringField(field)
}

// normalizeName lowercases and collapses whitespace so formatting noise does
// not surface as a discrepancy.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

func normalizeHospital(name string) string {
	return normalizeOrg(name, "hospital", "medical", "centre", "center")
}

func normalizeInsurer(name string) string {
	return normalizeOrg(name, "insurance", "general", "ltd", "limited")
}

// normalizeOrg removes the generic organization words wherever they occur in
// the string, not just as standalone tokens, so "MedicalCentre" or "Ltd."
// reduce the same way as the separate words. Whitespace left behind by the
// removal is collapsed.
func normalizeOrg(name string, stopwords ...string) string {
	n := strings.ToLower(name)
	for _, sw := range stopwords {
		n = strings.ReplaceAll(n, sw, "")
	}
	return strings.Join(strings.Fields(n), " ")
}
