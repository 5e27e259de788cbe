package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"jarvis/internal/log"
)

// FieldType describes the JSON type a schema field must carry.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
	TypeBool   FieldType = "boolean"
)

// SchemaField is one field the model must fill in.
type SchemaField struct {
	Name        string
	Type        FieldType
	Description string
	Enum        []string // when set, the value must be one of these
	Required    bool
}

// Schema describes the JSON object an extraction prompt asks for.
type Schema struct {
	Fields []SchemaField
}

// Prompt renders the schema as model instructions: the task description,
// the field list with types and allowed values, and the strict-JSON rules.
func (s Schema) Prompt(task, text string) string {
	var b strings.Builder
	b.WriteString(task)
	b.WriteString("\n\nReturn a JSON object with these fields:\n")
	for _, f := range s.Fields {
		b.WriteString(fmt.Sprintf("- %q: %s", f.Name, f.Type))
		if len(f.Enum) > 0 {
			b.WriteString(", one of: ")
			for i, v := range f.Enum {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(fmt.Sprintf("%q", v))
			}
		}
		if f.Description != "" {
			b.WriteString(". ")
			b.WriteString(f.Description)
		}
		if !f.Required {
			b.WriteString(" (optional, use null when absent)")
		}
		b.WriteString("\n")
	}
	b.WriteString("\nReturn ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Output must begin with \"{\" and end with \"}\".\n")
	b.WriteString("\nText:\n")
	b.WriteString(text)
	return b.String()
}

// CleanJSON strips Markdown fences and surrounding prose the model may emit
// despite instructions, keeping only the outermost JSON object.
func CleanJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}

// validate checks the raw object against the schema: required fields must be
// present and non-null, enum fields must hold an allowed value. A violation
// rejects the whole extraction rather than guessing a correction.
func (s Schema) validate(raw map[string]json.RawMessage) error {
	for _, f := range s.Fields {
		val, ok := raw[f.Name]
		if !ok || string(val) == "null" {
			if f.Required {
				return fmt.Errorf("missing required field %q", f.Name)
			}
			continue
		}
		if len(f.Enum) > 0 {
			var got string
			if err := json.Unmarshal(val, &got); err != nil {
				return fmt.Errorf("field %q: expected string, got %s", f.Name, val)
			}
			allowed := false
			for _, e := range f.Enum {
				if got == e {
					allowed = true
					break
				}
			}
			if !allowed {
				return fmt.Errorf("field %q: value %q not in enum", f.Name, got)
			}
		}
	}
	return nil
}

// Extractor runs schema-guided extractions against a model.
type Extractor struct {
	client Client
	logger *log.Logger
}

// NewExtractor wires an extractor to a model client.
func NewExtractor(client Client, logger *log.Logger) *Extractor {
	return &Extractor{
		client: client,
		logger: logger.WithComponent(log.ComponentLLM),
	}
}

// Extract asks the model to fill the schema from the text and decodes the
// result into T. On any failure (model error, unparseable output, schema
// violation) it logs the cause and returns the fallback so a dialogue turn
// degrades instead of aborting.
func Extract[T any](ctx context.Context, ex *Extractor, schema Schema, task, text string, fallback T) T {
	raw, err := ex.client.Generate(ctx, "", schema.Prompt(task, text), nil)
	if err != nil {
		ex.logger.WarnContext(ctx, "extraction model call failed",
			log.FieldOperation, log.OpExtract, log.FieldError, err)
		return fallback
	}

	clean := CleanJSON(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(clean), &fields); err != nil {
		ex.logger.WarnContext(ctx, "extraction returned invalid JSON",
			log.FieldOperation, log.OpExtract, log.FieldError, err)
		return fallback
	}
	if err := schema.validate(fields); err != nil {
		ex.logger.WarnContext(ctx, "extraction violated schema",
			log.FieldOperation, log.OpExtract, log.FieldError, err)
		return fallback
	}

	var out T
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		ex.logger.WarnContext(ctx, "extraction did not match target type",
			log.FieldOperation, log.OpExtract, log.FieldError, err)
		return fallback
	}
	return out
}
