package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/medassist/claim-processor/internal/core/domain"
)

// Source carries both views of a document's text. Clean has whitespace runs
// collapsed for label-adjacent matching; Raw keeps the line structure needed
// for line items and section-shaped fields.
type Source struct {
	Clean string
	Raw   string
}

func newSource(text string) Source {
	return Source{Clean: normalizeText(text), Raw: text}
}

// normalizeText collapses whitespace runs to single spaces, drops control
// characters, and trims.
func normalizeText(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, text)
	return strings.Join(strings.Fields(cleaned), " ")
}

// Monetary amounts. Among all label- or currency-adjacent numeric tokens, the
// maximum is taken as the total: the largest number near a money cue is most
// likely the grand total.
var (
	billAmountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:Total|Grand Total|Net Amount|Bill Amount)[\s:]*(?:Rs\.?|INR|₹)?\s*([0-9][0-9,]*\.?[0-9]*)`),
		regexp.MustCompile(`(?i)(?:₹|Rs\.?|INR)\s*([0-9][0-9,]*\.?[0-9]*)`),
		regexp.MustCompile(`(?i)([0-9][0-9,]*\.?[0-9]*)\s*(?:/-|Rs|INR)`),
	}
	sumInsuredPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:Sum Insured|Coverage|Limit)[\s:]*(?:Rs\.?|INR|₹)?\s*([0-9][0-9,]*\.?[0-9]*)`),
		regexp.MustCompile(`(?i)(?:₹|Rs\.?|INR)\s*([0-9][0-9,]*\.?[0-9]*)`),
		regexp.MustCompile(`(?i)([0-9][0-9,]*\.?[0-9]*)\s*(?:/-|Rs|INR)`),
	}
)

// sumInsuredFloor discards small numeric noise when looking for coverage amounts.
const sumInsuredFloor = 10000

func maxAmount(text string, patterns []*regexp.Regexp, floor float64) (float64, bool) {
	best := 0.0
	found := false
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			amount, err := parseAmount(m[1])
			if err != nil {
				continue
			}
			if floor > 0 && amount < floor {
				continue
			}
			if !found || amount > best {
				best = amount
				found = true
			}
		}
	}
	return best, found
}

func parseAmount(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
}

// Dates. For each keyword of a date role, the keyword immediately followed by
// one of the recognized date shapes is searched; the first match wins and is
// normalized to YYYY-MM-DD. An unparseable first match leaves the date absent.
var dateShapes = []string{
	`(\d{1,2}[/-]\d{1,2}[/-]\d{4})`,
	`(\d{4}[/-]\d{1,2}[/-]\d{1,2})`,
	`(\d{1,2}\s+[A-Za-z]+\s+\d{4})`,
}

// Tried in order; first layout that parses wins.
var dateLayouts = []string{
	"02/01/2006",
	"01/02/2006",
	"2006-01-02",
	"02-01-2006",
	"2006/01/02",
}

func compileDatePatterns(keywords ...string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(keywords)*len(dateShapes))
	for _, kw := range keywords {
		for _, shape := range dateShapes {
			patterns = append(patterns, regexp.MustCompile(`(?i)`+kw+`[:\s]*`+shape))
		}
	}
	return patterns
}

var (
	serviceDatePatterns   = compileDatePatterns("service", "treatment", "visit")
	admissionDatePatterns = compileDatePatterns("admission", "admit", "admitted")
	dischargeDatePatterns = compileDatePatterns("discharge", "discharged")
	validityDatePatterns  = compileDatePatterns("validity", "valid", "expiry", "expires", "until")
)

func findDate(text string, patterns []*regexp.Regexp) (string, bool) {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return normalizeDate(m[1])
		}
	}
	return "", false
}

func normalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// Names. Label words or honorifics followed by a capitalized two-word
// sequence; a match must carry at least two space-separated tokens.
var (
	patientNamePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:Patient|Name)[\s:]*([A-Z][a-z]+ [A-Z][a-z]+)`),
		regexp.MustCompile(`(?:Mr\.?|Mrs\.?|Ms\.?)\s+([A-Z][a-z]+ [A-Z][a-z]+)`),
		regexp.MustCompile(`Name[\s:]*([A-Z][A-Z\s]+)`),
		regexp.MustCompile(`Patient Name[\s:]*([A-Za-z\s]+)`),
	}
	cardHolderPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:Name|Card Holder|Member)[\s:]*([A-Z][a-z]+ [A-Z][a-z]+)`),
		regexp.MustCompile(`(?i)(?:Mr\.?|Mrs\.?|Ms\.?)\s+([A-Z][a-z]+ [A-Z][a-z]+)`),
		regexp.MustCompile(`(?i)Member Name[\s:]*([A-Za-z\s]+)`),
		regexp.MustCompile(`(?i)Insured[\s:]*([A-Z][a-z]+ [A-Z][a-z]+)`),
	}
	doctorNamePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:Dr\.?|Doctor)\s+([A-Z][a-z]+ [A-Z][a-z]+)`),
		regexp.MustCompile(`(?i)(?:Attending|Consultant)[\s\w]*[:\s]*(?:Dr\.?)\s*([A-Z][a-z]+ [A-Z][a-z]+)`),
		regexp.MustCompile(`(?i)(?:Physician|Surgeon)[\s:]*(?:Dr\.?)\s*([A-Z][a-z]+ [A-Z][a-z]+)`),
	}
)

func findName(text string, patterns []*regexp.Regexp) (string, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		if len(strings.Fields(name)) >= 2 {
			return name, true
		}
	}
	return "", false
}

// Hospitals and insurers: known-brand literals first, then the generic
// capitalized-words-plus-suffix patterns.
var (
	hospitalNamePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(Max Healthcare|Fortis|Apollo|AIIMS|PGIMER)`),
		regexp.MustCompile(`(?i)([A-Z][a-z]+ (?:Hospital|Medical|Health|Care|Centre|Center))`),
		regexp.MustCompile(`(?i)((?:Sir |Dr\. )?[A-Z][a-z]+ [A-Z][a-z]+ Hospital)`),
		regexp.MustCompile(`([A-Z][A-Z\s]+HOSPITAL)`),
	}
	insurerNamePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(ACKO General Insurance|SBI General Insurance|Family Health Plan|HDFC ERGO|ICICI Lombard|Bajaj Allianz|Star Health|Max Bupa)`),
		regexp.MustCompile(`(?i)([A-Z][a-z]+ Insurance)`),
		regexp.MustCompile(`(?i)Insurance Company[\s:]*([A-Z][a-z\s]+)`),
		regexp.MustCompile(`(?i)Insurer[\s:]*([A-Z][a-z\s]+)`),
	}
)

func findOrganization(text string, patterns []*regexp.Regexp) (string, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		if len(name) > 3 {
			return name, true
		}
	}
	return "", false
}

// Policy numbers: label-adjacent alphanumeric token of length >= 8, else a
// bare numeric run of length >= 10, else an uppercase prefix with 8+ digits.
var policyNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:Policy|Card|Member)[\s\w]*[:\s]*([A-Z0-9\-]{8,})`),
	regexp.MustCompile(`([0-9]{10,})`),
	regexp.MustCompile(`([A-Z]{2,}[0-9]{8,})`),
	regexp.MustCompile(`(?i)Policy No[\s.:]*([A-Z0-9\-]+)`),
	regexp.MustCompile(`(?i)Card No[\s.:]*([A-Z0-9\-]+)`),
}

func findPolicyNumber(text string) (string, bool) {
	for _, re := range policyNumberPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		number := strings.TrimSpace(m[1])
		if len(number) >= 8 {
			return number, true
		}
	}
	return "", false
}

// Diagnosis and treatment sections are line-shaped; they run against the raw
// text so sentence and section terminators still exist.
var (
	diagnosisPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:Diagnosis|Primary Diagnosis|Final Diagnosis)[\s:]*([A-Za-z ,\-]+?)(?:\n|\.)`),
		regexp.MustCompile(`(?i)(?:Condition|Medical Condition)[\s:]*([A-Za-z ,\-]+?)(?:\n|\.)`),
		regexp.MustCompile(`(?i)(?:Admitted for|Treated for)[\s:]*([A-Za-z ,\-]+?)(?:\n|\.)`),
	}
	treatmentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)(?:Treatment|Procedure|Management)[\s:]*([A-Za-z\s,.\-]+?)(?:\n\n|\n[A-Z])`),
		regexp.MustCompile(`(?is)(?:Summary|Course)[\s:]*([A-Za-z\s,.\-]+?)(?:\n\n|\n[A-Z])`),
	}
)

func findDiagnosis(raw string) (string, bool) {
	for _, re := range diagnosisPatterns {
		m := re.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		diagnosis := normalizeText(m[1])
		if len(diagnosis) > 5 {
			return diagnosis, true
		}
	}
	return "", false
}

const treatmentSummaryLimit = 500

func findTreatmentSummary(raw string) (string, bool) {
	for _, re := range treatmentPatterns {
		m := re.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		summary := normalizeText(m[1])
		if len(summary) > 20 {
			if len(summary) > treatmentSummaryLimit {
				summary = summary[:treatmentSummaryLimit]
			}
			return summary, true
		}
	}
	return "", false
}

// Bill line items: a raw line qualifies when it contains a numeric amount
// token and is longer than 10 characters; the description is the line with
// numeric tokens stripped. Output is capped at the first 10 qualifying lines.
const lineItemCap = 10

var lineAmountPattern = regexp.MustCompile(`[0-9][0-9,]*\.?[0-9]*`)

func findLineItems(raw string) ([]domain.LineItem, bool) {
	var items []domain.LineItem
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) <= 10 {
			continue
		}
		amountToken := lineAmountPattern.FindString(trimmed)
		if amountToken == "" {
			continue
		}
		amount, err := parseAmount(amountToken)
		if err != nil || amount <= 0 {
			continue
		}
		description := strings.TrimSpace(lineAmountPattern.ReplaceAllString(trimmed, ""))
		if description == "" {
			continue
		}
		items = append(items, domain.LineItem{Description: description, Amount: amount, Quantity: 1})
		if len(items) == lineItemCap {
			break
		}
	}
	return items, len(items) > 0
}
