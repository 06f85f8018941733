package validate

import (
	"reflect"
	"strings"
	"testing"

	"github.com/medassist/claim-processor/internal/core/domain"
)

func record(docType domain.DocumentType, confidence float64, fields map[string]any) domain.ExtractedRecord {
	return domain.ExtractedRecord{Type: docType, Fields: fields, Confidence: confidence}
}

func fullClaim() []domain.ExtractedRecord {
	return []domain.ExtractedRecord{
		record(domain.DocTypeHospitalBill, 0.9, map[string]any{
			domain.FieldPatientName:      "John Smith",
			domain.FieldTotalAmount:      50000.0,
			domain.FieldAdmissionDate:    "2024-03-12",
			domain.FieldDischargeDate:    "2024-03-15",
			domain.FieldHospitalName:     "Apollo Hospital",
			domain.FieldInsuranceCompany: "Star Health Insurance",
		}),
		record(domain.DocTypeDischargeSummary, 0.8, map[string]any{
			domain.FieldPatientName:   "john   smith",
			domain.FieldDiagnosis:     "Acute Appendicitis",
			domain.FieldAdmissionDate: "2024-03-12",
			domain.FieldDischargeDate: "2024-03-15",
			domain.FieldHospitalName:  "Apollo Medical Centre",
		}),
		record(domain.DocTypeInsuranceCard, 0.7, map[string]any{
			domain.FieldCardHolderName:   "John Smith",
			domain.FieldPolicyNumber:     "SH99887766",
			domain.FieldSumInsured:       500000.0,
			domain.FieldInsuranceCompany: "Star Health",
		}),
	}
}

func TestCleanClaimProducesEmptyReport(t *testing.T) {
	report := New().Validate(fullClaim())

	if len(report.MissingDocuments) != 0 {
		t.Errorf("missing documents = %v, want none", report.MissingDocuments)
	}
	if len(report.Discrepancies) != 0 {
		t.Errorf("discrepancies = %v, want none", report.Discrepancies)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", report.Warnings)
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	records := fullClaim()
	first := New().Validate(records)
	second := New().Validate(records)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("reports differ across runs:\n%+v\n%+v", first, second)
	}
}

func TestMissingRequiredDocuments(t *testing.T) {
	report := New().Validate([]domain.ExtractedRecord{
		record(domain.DocTypeInsuranceCard, 0.7, map[string]any{
			domain.FieldPolicyNumber: "SH99887766",
			domain.FieldSumInsured:   500000.0,
		}),
	})

	if len(report.MissingDocuments) != 2 {
		t.Fatalf("missing documents = %v, want bill and discharge summary", report.MissingDocuments)
	}
	lists := report.Lists()
	want := []string{
		"Missing required document: hospital_bill",
		"Missing required document: discharge_summary",
	}
	if !reflect.DeepEqual(lists.MissingDocuments, want) {
		t.Errorf("projection = %v, want %v", lists.MissingDocuments, want)
	}
}

func TestPatientNameMismatch(t *testing.T) {
	records := fullClaim()
	records[1].Fields[domain.FieldPatientName] = "Jane Smith"

	report := New().Validate(records)
	if len(report.Discrepancies) != 1 {
		t.Fatalf("discrepancies = %v, want exactly one", report.Discrepancies)
	}
	d := report.Discrepancies[0]
	if d.Kind != domain.DiscrepancyPatientName {
		t.Fatalf("kind = %s", d.Kind)
	}
	text := d.String()
	if !strings.Contains(text, "John Smith") || !strings.Contains(text, "Jane Smith") {
		t.Errorf("projection %q should carry both conflicting values", text)
	}
}

func TestNameComparisonIgnoresCaseAndSpacing(t *testing.T) {
	// "John Smith" vs "john   smith" is formatting noise, not a mismatch.
	report := New().Validate(fullClaim())
	for _, d := range report.Discrepancies {
		if d.Kind == domain.DiscrepancyPatientName {
			t.Errorf("unexpected patient name discrepancy: %s", d)
		}
	}
}

func TestDateMismatches(t *testing.T) {
	records := fullClaim()
	records[0].Fields[domain.FieldAdmissionDate] = "2024-03-11"

	report := New().Validate(records)
	if len(report.Discrepancies) != 1 {
		t.Fatalf("discrepancies = %v, want exactly one", report.Discrepancies)
	}
	got := report.Discrepancies[0].String()
	want := "Admission date mismatch: Bill shows 2024-03-11, Discharge summary shows 2024-03-12"
	if got != want {
		t.Errorf("projection = %q, want %q", got, want)
	}
}

func TestHospitalSuffixesIgnored(t *testing.T) {
	// "Apollo Hospital" vs "Apollo Medical Centre" normalize to the same name.
	report := New().Validate(fullClaim())
	for _, d := range report.Discrepancies {
		if d.Kind == domain.DiscrepancyHospitalName {
			t.Errorf("unexpected hospital discrepancy: %s", d)
		}
	}
}

func TestOrgWordsRemovedInsideLargerTokens(t *testing.T) {
	// The generic words are removed as substrings, so a fused spelling or
	// attached punctuation does not defeat the comparison.
	records := fullClaim()
	records[0].Fields[domain.FieldHospitalName] = "Apollo MedicalCentre"
	records[1].Fields[domain.FieldHospitalName] = "Apollo"
	records[0].Fields[domain.FieldInsuranceCompany] = "Star Health Insurance Ltd"
	records[2].Fields[domain.FieldInsuranceCompany] = "Star Health"

	report := New().Validate(records)
	for _, d := range report.Discrepancies {
		if d.Kind == domain.DiscrepancyHospitalName || d.Kind == domain.DiscrepancyInsurer {
			t.Errorf("unexpected discrepancy: %s", d)
		}
	}
}

func TestInsurerMismatch(t *testing.T) {
	records := fullClaim()
	records[2].Fields[domain.FieldInsuranceCompany] = "HDFC ERGO"

	report := New().Validate(records)
	if len(report.Discrepancies) != 1 {
		t.Fatalf("discrepancies = %v, want exactly one", report.Discrepancies)
	}
	got := report.Discrepancies[0].String()
	want := "Insurance company mismatch: Bill shows Star Health Insurance, Card shows HDFC ERGO"
	if got != want {
		t.Errorf("projection = %q, want %q", got, want)
	}
}

func TestWarnings(t *testing.T) {
	records := []domain.ExtractedRecord{
		record(domain.DocTypeHospitalBill, 0.4, map[string]any{
			domain.FieldPatientName: "John Smith",
		}),
		record(domain.DocTypeDischargeSummary, 0.8, map[string]any{
			domain.FieldPatientName: "John Smith",
			domain.FieldDiagnosis:   "Fracture",
		}),
	}

	lists := New().Validate(records).Lists()
	want := []string{
		"Low confidence extraction for hospital_bill: 0.40",
		"Hospital bill missing total amount",
	}
	if !reflect.DeepEqual(lists.Warnings, want) {
		t.Errorf("warnings = %v, want %v", lists.Warnings, want)
	}
}

func TestMissingFieldWarningsPerDocument(t *testing.T) {
	records := []domain.ExtractedRecord{
		record(domain.DocTypeHospitalBill, 0.6, map[string]any{}),
		record(domain.DocTypeDischargeSummary, 0.6, map[string]any{}),
		record(domain.DocTypeInsuranceCard, 0.6, map[string]any{}),
	}

	lists := New().Validate(records).Lists()
	want := []string{
		"Hospital bill missing total amount",
		"Hospital bill missing patient name",
		"Discharge summary missing diagnosis",
		"Discharge summary missing patient name",
		"Insurance card missing policy number",
		"Insurance card missing sum insured amount",
	}
	if !reflect.DeepEqual(lists.Warnings, want) {
		t.Errorf("warnings = %v, want %v", lists.Warnings, want)
	}
}
