package extract

import "github.com/medassist/claim-processor/internal/core/domain"

const dischargePrompt = `Extract the following information from this hospital discharge summary and return it as a JSON object:
{
  "patient_name": "full name of the patient",
  "diagnosis": "primary diagnosis",
  "admission_date": "admission date in YYYY-MM-DD format",
  "discharge_date": "discharge date in YYYY-MM-DD format",
  "doctor_name": "name of the attending doctor",
  "hospital_name": "name of the hospital",
  "treatment_summary": "brief summary of the treatment given"
}
Return only valid JSON. Use null for any field that is not present in the document.`

var dischargeSchema = Schema{
	Type:   domain.DocTypeDischargeSummary,
	Prompt: dischargePrompt,
	Fields: []FieldSpec{
		{Name: domain.FieldPatientName, Pattern: func(src Source) (any, bool) {
			return findName(src.Clean, patientNamePatterns)
		}},
		{Name: domain.FieldDiagnosis, Pattern: func(src Source) (any, bool) {
			return findDiagnosis(src.Raw)
		}},
		{Name: domain.FieldAdmissionDate, Pattern: func(src Source) (any, bool) {
			return findDate(src.Clean, admissionDatePatterns)
		}},
		{Name: domain.FieldDischargeDate, Pattern: func(src Source) (any, bool) {
			return findDate(src.Clean, dischargeDatePatterns)
		}},
		{Name: domain.FieldDoctorName, Pattern: func(src Source) (any, bool) {
			return findName(src.Clean, doctorNamePatterns)
		}},
		{Name: domain.FieldHospitalName, Pattern: func(src Source) (any, bool) {
			return findOrganization(src.Clean, hospitalNamePatterns)
		}},
		{Name: domain.FieldTreatmentSummary, Pattern: func(src Source) (any, bool) {
			return findTreatmentSummary(src.Raw)
		}},
	},
	Weights: []WeightRule{
		{Fields: []string{domain.FieldPatientName}, Weight: 0.2},
		{Fields: []string{domain.FieldDiagnosis}, Weight: 0.25},
		{Fields: []string{domain.FieldAdmissionDate}, Weight: 0.15},
		{Fields: []string{domain.FieldDischargeDate}, Weight: 0.15},
		{Fields: []string{domain.FieldDoctorName}, Weight: 0.1},
		{Fields: []string{domain.FieldHospitalName}, Weight: 0.1},
		{Fields: []string{domain.FieldTreatmentSummary}, Weight: 0.05},
	},
}
