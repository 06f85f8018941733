package extract

import "github.com/medassist/claim-processor/internal/core/domain"

const billPrompt = `Extract the following information from this hospital bill and return it as a JSON object:
{
  "hospital_name": "name of the hospital",
  "total_amount": total bill amount as a number,
  "date_of_service": "date of service in YYYY-MM-DD format",
  "patient_name": "full name of the patient",
  "admission_date": "admission date in YYYY-MM-DD format",
  "discharge_date": "discharge date in YYYY-MM-DD format",
  "insurance_company": "insurance company name if mentioned",
  "policy_number": "policy number if mentioned",
  "items": [{"description": "line item description", "amount": amount as a number, "quantity": quantity as a number}]
}
Return only valid JSON. Use null for any field that is not present in the document.`

var billSchema = Schema{
	Type:   domain.DocTypeHospitalBill,
	Prompt: billPrompt,
	Fields: []FieldSpec{
		{Name: domain.FieldHospitalName, Pattern: func(src Source) (any, bool) {
			return findOrganization(src.Clean, hospitalNamePatterns)
		}},
		{Name: domain.FieldTotalAmount, FromModel: asAmount, Pattern: func(src Source) (any, bool) {
			return maxAmount(src.Clean, billAmountPatterns, 0)
		}},
		{Name: domain.FieldDateOfService, Pattern: func(src Source) (any, bool) {
			return findDate(src.Clean, serviceDatePatterns)
		}},
		{Name: domain.FieldPatientName, Pattern: func(src Source) (any, bool) {
			return findName(src.Clean, patientNamePatterns)
		}},
		{Name: domain.FieldAdmissionDate, Pattern: func(src Source) (any, bool) {
			return findDate(src.Clean, admissionDatePatterns)
		}},
		{Name: domain.FieldDischargeDate, Pattern: func(src Source) (any, bool) {
			return findDate(src.Clean, dischargeDatePatterns)
		}},
		{Name: domain.FieldInsuranceCompany, Pattern: func(src Source) (any, bool) {
			return findOrganization(src.Clean, insurerNamePatterns)
		}},
		{Name: domain.FieldPolicyNumber, Pattern: func(src Source) (any, bool) {
			return findPolicyNumber(src.Clean)
		}},
		{Name: domain.FieldItems, FromModel: asLineItems, Pattern: func(src Source) (any, bool) {
			return findLineItems(src.Raw)
		}},
	},
	Weights: []WeightRule{
		{Fields: []string{domain.FieldHospitalName}, Weight: 0.2},
		{Fields: []string{domain.FieldTotalAmount}, Weight: 0.2},
		{Fields: []string{domain.FieldPatientName}, Weight: 0.15},
		{Fields: []string{domain.FieldDateOfService, domain.FieldAdmissionDate}, Weight: 0.15},
		{Fields: []string{domain.FieldInsuranceCompany}, Weight: 0.1},
		{Fields: []string{domain.FieldPolicyNumber}, Weight: 0.1},
		{Fields: []string{domain.FieldItems}, Weight: 0.1},
	},
}
