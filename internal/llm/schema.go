package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Field describes one top-level output field the caller expects.
type Field struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

// Schema is the caller-declared shape of a structured response. It renders
// into the system instruction and supports a shallow presence check on the
// decoded result.
type Schema struct {
	Fields []Field
}

// Description renders the schema as a field list for the model.
func (s Schema) Description() string {
	var b strings.Builder
	for _, f := range s.Fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			continue
		}
		req := "optional"
		if f.Required {
			req = "required"
		}
		if f.Description != "" {
			fmt.Fprintf(&b, "- %s (%s, %s): %s\n", name, f.Type, req, f.Description)
		} else {
			fmt.Fprintf(&b, "- %s (%s, %s)\n", name, f.Type, req)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// CheckRequired verifies every required field is present and non-null at the
// top level of raw. It deliberately stops there: deep validation belongs to
// the typed result structs.
func (s Schema) CheckRequired(raw json.RawMessage) error {
	if len(s.Fields) == 0 {
		return nil
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		// Non-object results (arrays, scalars) are the caller's business.
		return nil
	}
	var missing []string
	for _, f := range s.Fields {
		if !f.Required {
			continue
		}
		v, ok := top[f.Name]
		if !ok || string(v) == "null" {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// systemSuffix is appended to every system instruction; it demands bare JSON
// and restates the expected shape.
func systemSuffix(s Schema) string {
	var b strings.Builder
	b.WriteString("Respond with a single JSON object only. ")
	b.WriteString("No markdown, no code fences, no commentary before or after the JSON.")
	if desc := s.Description(); desc != "" {
		b.WriteString("\nThe JSON object must have exactly these fields:\n")
		b.WriteString(desc)
	}
	return b.String()
}
