package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/medassist/claim-processor/internal/core/domain"
	"github.com/medassist/claim-processor/internal/core/ports"
)

const modelSnippetLimit = 4000

// PatternFunc is one deterministic field extractor. The bool reports whether
// a usable value was found.
type PatternFunc func(src Source) (any, bool)

// CoerceFunc adapts a raw model-supplied value into the field's typed form.
// Returning false rejects the model value and defers to the pattern path.
type CoerceFunc func(v any) (any, bool)

// FieldSpec binds one output field to its pattern extractor and, optionally,
// a coercion for model-supplied values. A nil FromModel accepts plain strings.
type FieldSpec struct {
	Name      string
	Pattern   PatternFunc
	FromModel CoerceFunc
}

// WeightRule contributes Weight to the record confidence when any of its
// fields is present. Field groups express alternatives that count once.
type WeightRule struct {
	Fields []string
	Weight float64
}

// Schema is the full extraction recipe for one document type.
type Schema struct {
	Type    domain.DocumentType
	Prompt  string
	Fields  []FieldSpec
	Weights []WeightRule
}

// Extractor runs the hybrid extraction for a single document type: a model
// attempt merged over deterministic pattern matching. Extraction never fails;
// at worst the record carries no fields and zero confidence.
type Extractor struct {
	schema Schema
	gen    ports.TextGenerator
	log    *slog.Logger
}

func New(schema Schema, gen ports.TextGenerator, log *slog.Logger) *Extractor {
	return &Extractor{schema: schema, gen: gen, log: log}
}

func NewBill(gen ports.TextGenerator, log *slog.Logger) *Extractor {
	return New(billSchema, gen, log)
}

func NewDischarge(gen ports.TextGenerator, log *slog.Logger) *Extractor {
	return New(dischargeSchema, gen, log)
}

func NewInsurance(gen ports.TextGenerator, log *slog.Logger) *Extractor {
	return New(insuranceSchema, gen, log)
}

func (e *Extractor) Type() domain.DocumentType {
	return e.schema.Type
}

// Extract merges the model and pattern paths field by field. A model value
// wins only when it is present and truthy; empty strings, zeros, and empty
// collections from the model are treated as "not found" so the deterministic
// value fills the gap.
func (e *Extractor) Extract(ctx context.Context, text string) domain.ExtractedRecord {
	src := newSource(text)
	model := e.modelExtract(ctx, src)

	fields := make(map[string]any)
	for _, spec := range e.schema.Fields {
		if v, ok := model[spec.Name]; ok && truthy(v) {
			if coerced, ok := coerceModelValue(spec, v); ok {
				fields[spec.Name] = coerced
				continue
			}
		}
		if v, ok := spec.Pattern(src); ok {
			fields[spec.Name] = v
		}
	}

	return domain.ExtractedRecord{
		Type:       e.schema.Type,
		Fields:     fields,
		Confidence: e.confidence(fields),
		RawText:    text,
	}
}

func (e *Extractor) modelExtract(ctx context.Context, src Source) map[string]any {
	snippet := src.Clean
	if len(snippet) > modelSnippetLimit {
		snippet = snippet[:modelSnippetLimit]
	}
	prompt := fmt.Sprintf("%s\n\nDocument text:\n%s", e.schema.Prompt, snippet)

	resp, err := e.gen.GenerateJSON(ctx, prompt)
	if err != nil {
		if !domain.IsKind(err, domain.ErrGeneratorUnavailable) {
			e.log.Debug("model extraction failed, using patterns only",
				"document_type", e.schema.Type, "error", err)
		}
		return nil
	}

	fields, err := parseModelObject(resp)
	if err != nil {
		e.log.Debug("unparseable model extraction response",
			"document_type", e.schema.Type, "error", err)
		return nil
	}
	return fields
}

// parseModelObject accepts either a bare JSON object or an object embedded in
// surrounding prose, taking the span from the first '{' to the last '}'.
func parseModelObject(resp string) (map[string]any, error) {
	candidate := strings.TrimSpace(resp)
	if start := strings.Index(candidate, "{"); start >= 0 {
		if end := strings.LastIndex(candidate, "}"); end > start {
			candidate = candidate[start : end+1]
		}
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}
	return fields, nil
}

func coerceModelValue(spec FieldSpec, v any) (any, bool) {
	if spec.FromModel != nil {
		return spec.FromModel(v)
	}
	return asString(v)
}

func (e *Extractor) confidence(fields map[string]any) float64 {
	total := 0.0
	for _, rule := range e.schema.Weights {
		for _, name := range rule.Fields {
			if _, ok := fields[name]; ok {
				total += rule.Weight
				break
			}
		}
	}
	if total > 1 {
		return 1
	}
	return total
}

// truthy mirrors the merge policy: zero values of any shape count as absent.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(val) != ""
	case bool:
		return val
	case float64:
		return val != 0
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}

func asString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		return s, s != ""
	case float64:
		return trimFloat(val), true
	default:
		return "", false
	}
}

func asAmount(v any) (any, bool) {
	switch val := v.(type) {
	case float64:
		return val, val > 0
	case string:
		amount, err := parseAmount(strings.Map(func(r rune) rune {
			if r == '₹' {
				return -1
			}
			return r
		}, val))
		return amount, err == nil && amount > 0
	default:
		return nil, false
	}
}

func asLineItems(v any) (any, bool) {
	raw, ok := v.([]any)
	if !ok || len(raw) == 0 {
		return nil, false
	}
	items := make([]domain.LineItem, 0, len(raw))
	for _, entry := range raw {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		description, _ := obj["description"].(string)
		amount, amountOK := asAmount(obj["amount"])
		if description == "" || !amountOK {
			continue
		}
		quantity := 1
		if q, ok := obj["quantity"].(float64); ok && q >= 1 {
			quantity = int(q)
		}
		items = append(items, domain.LineItem{
			Description: strings.TrimSpace(description),
			Amount:      amount.(float64),
			Quantity:    quantity,
		})
		if len(items) == lineItemCap {
			break
		}
	}
	if len(items) == 0 {
		return nil, false
	}
	return items, true
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
