package extract

import "github.com/medassist/claim-processor/internal/core/domain"

const insurancePrompt = `Extract the following information from this insurance card or policy document and return it as a JSON object:
{
  "policy_number": "policy or card number",
  "card_holder_name": "full name of the card holder",
  "insurance_company": "name of the insurance company",
  "sum_insured": sum insured or coverage amount as a number,
  "validity_date": "validity or expiry date in YYYY-MM-DD format"
}
Return only valid JSON. Use null for any field that is not present in the document.`

var insuranceSchema = Schema{
	Type:   domain.DocTypeInsuranceCard,
	Prompt: insurancePrompt,
	Fields: []FieldSpec{
		{Name: domain.FieldPolicyNumber, Pattern: func(src Source) (any, bool) {
			return findPolicyNumber(src.Clean)
		}},
		{Name: domain.FieldCardHolderName, Pattern: func(src Source) (any, bool) {
			return findName(src.Clean, cardHolderPatterns)
		}},
		{Name: domain.FieldInsuranceCompany, Pattern: func(src Source) (any, bool) {
			return findOrganization(src.Clean, insurerNamePatterns)
		}},
		{Name: domain.FieldSumInsured, FromModel: asAmount, Pattern: func(src Source) (any, bool) {
			return maxAmount(src.Clean, sumInsuredPatterns, sumInsuredFloor)
		}},
		{Name: domain.FieldValidityDate, Pattern: func(src Source) (any, bool) {
			return findDate(src.Clean, validityDatePatterns)
		}},
	},
	Weights: []WeightRule{
		{Fields: []string{domain.FieldPolicyNumber}, Weight: 0.3},
		{Fields: []string{domain.FieldCardHolderName}, Weight: 0.25},
		{Fields: []string{domain.FieldInsuranceCompany}, Weight: 0.25},
		{Fields: []string{domain.FieldSumInsured}, Weight: 0.15},
		{Fields: []string{domain.FieldValidityDate}, Weight: 0.05},
	},
}
