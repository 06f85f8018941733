package domain

// Field names shared between the model JSON schema prompts and pattern extraction.
const (
	FieldHospitalName     = "hospital_name"
	FieldTotalAmount      = "total_amount"
	FieldDateOfService    = "date_of_service"
	FieldPatientName      = "patient_name"
	FieldAdmissionDate    = "admission_date"
	FieldDischargeDate    = "discharge_date"
	FieldItems            = "items"
	FieldInsuranceCompany = "insurance_company"
	FieldPolicyNumber     = "policy_number"
	FieldDiagnosis        = "diagnosis"
	FieldDoctorName       = "doctor_name"
	FieldTreatmentSummary = "treatment_summary"
	FieldCardHolderName   = "card_holder_name"
	FieldSumInsured       = "sum_insured"
	FieldValidityDate     = "validity_date"
)
