package domain

import (
	"fmt"
	"strings"
)

type DiscrepancyKind string

const (
	DiscrepancyPatientName   DiscrepancyKind = "patient_name"
	DiscrepancyAdmissionDate DiscrepancyKind = "admission_date"
	DiscrepancyDischargeDate DiscrepancyKind = "discharge_date"
	DiscrepancyHospitalName  DiscrepancyKind = "hospital_name"
	DiscrepancyInsurer       DiscrepancyKind = "insurance_company"
)

// FieldValueRef names one side of a cross-document comparison.
type FieldValueRef struct {
	Document DocumentType `json:"document"`
	Value    string       `json:"value"`
}

// Discrepancy is a hard cross-document contradiction. The kind and conflicting
// values stay structured; String projects the human-readable form used at the
// response boundary.
type Discrepancy struct {
	Kind   DiscrepancyKind
	Values []FieldValueRef
}

func (d Discrepancy) String() string {
	switch d.Kind {
	case DiscrepancyPatientName:
		parts := make([]string, 0, len(d.Values))
		for _, v := range d.Values {
			parts = append(parts, fmt.Sprintf("%s: %s", v.Document, v.Value))
		}
		return "Patient name mismatch across documents: " + strings.Join(parts, ", ")
	case DiscrepancyAdmissionDate:
		return fmt.Sprintf("Admission date mismatch: Bill shows %s, Discharge summary shows %s", d.side(DocTypeHospitalBill), d.side(DocTypeDischargeSummary))
	case DiscrepancyDischargeDate:
		return fmt.Sprintf("Discharge date mismatch: Bill shows %s, Discharge summary shows %s", d.side(DocTypeHospitalBill), d.side(DocTypeDischargeSummary))
	case DiscrepancyHospitalName:
		parts := make([]string, 0, len(d.Values))
		for _, v := range d.Values {
			parts = append(parts, fmt.Sprintf("%s: %s", v.Document, v.Value))
		}
		return "Hospital name mismatch: " + strings.Join(parts, ", ")
	case DiscrepancyInsurer:
		return fmt.Sprintf("Insurance company mismatch: Bill shows %s, Card shows %s", d.side(DocTypeHospitalBill), d.side(DocTypeInsuranceCard))
	default:
		return string(d.Kind)
	}
}

func (d Discrepancy) side(doc DocumentType) string {
	for _, v := range d.Values {
		if v.Document == doc {
			return v.Value
		}
	}
	return ""
}

// MissingDocument records a required document type absent from the claim.
type MissingDocument struct {
	Type DocumentType
}

func (m MissingDocument) String() string {
	return "Missing required document: " + string(m.Type)
}

type WarningKind string

const (
	WarningLowConfidence WarningKind = "low_confidence"
	WarningMissingField  WarningKind = "missing_field"
)

// Warning is a soft quality signal that does not block approval on its own.
type Warning struct {
	Kind       WarningKind
	Document   DocumentType
	Field      string
	Confidence float64
}

var docWarningLabels = map[DocumentType]string{
	DocTypeHospitalBill:     "Hospital bill",
	DocTypeDischargeSummary: "Discharge summary",
	DocTypeInsuranceCard:    "Insurance card",
}

var fieldWarningLabels = map[string]string{
	FieldTotalAmount:  "total amount",
	FieldPatientName:  "patient name",
	FieldDiagnosis:    "diagnosis",
	FieldPolicyNumber: "policy number",
	FieldSumInsured:   "sum insured amount",
}

func (w Warning) String() string {
	if w.Kind == WarningLowConfidence {
		return fmt.Sprintf("Low confidence extraction for %s: %.2f", w.Document, w.Confidence)
	}
	doc, ok := docWarningLabels[w.Document]
	if !ok {
		doc = string(w.Document)
	}
	field, ok := fieldWarningLabels[w.Field]
	if !ok {
		field = w.Field
	}
	return fmt.Sprintf("%s missing %s", doc, field)
}

// ValidationReport is the structured validator output consumed by the decision
// engine. The response boundary only ever sees its Lists projection.
type ValidationReport struct {
	MissingDocuments []MissingDocument
	Discrepancies    []Discrepancy
	Warnings         []Warning
}

func (r ValidationReport) MissingType(doc DocumentType) bool {
	for _, m := range r.MissingDocuments {
		if m.Type == doc {
			return true
		}
	}
	return false
}

// ValidationLists is the string projection embedded in API responses.
type ValidationLists struct {
	MissingDocuments []string `json:"missing_documents"`
	Discrepancies    []string `json:"discrepancies"`
	Warnings         []string `json:"warnings"`
}

func (r ValidationReport) Lists() ValidationLists {
	lists := ValidationLists{
		MissingDocuments: make([]string, 0, len(r.MissingDocuments)),
		Discrepancies:    make([]string, 0, len(r.Discrepancies)),
		Warnings:         make([]string, 0, len(r.Warnings)),
	}
	for _, m := range r.MissingDocuments {
		lists.MissingDocuments = append(lists.MissingDocuments, m.String())
	}
	for _, d := range r.Discrepancies {
		lists.Discrepancies = append(lists.Discrepancies, d.String())
	}
	for _, w := range r.Warnings {
		lists.Warnings = append(lists.Warnings, w.String())
	}
	return lists
}
