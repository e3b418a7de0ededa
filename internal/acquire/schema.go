package acquire

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/rotisserie/eris"
)

// FieldKind is the JSON type a field must hold.
type FieldKind int

const (
	FieldString FieldKind = iota
	FieldInteger
	FieldNumber
	FieldStringList
	FieldEnum
)

func (k FieldKind) String() string {
	switch k {
	case FieldString:
		return "string"
	case FieldInteger:
		return "integer"
	case FieldNumber:
		return "number"
	case FieldStringList:
		return "string_list"
	case FieldEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// Field describes one key of an object or record.
type Field struct {
	Name     string
	Kind     FieldKind
	Required bool
	Nullable bool
	Enum     []string
}

// RecordSet describes a list of records stored under Key.
type RecordSet struct {
	Key    string
	Fields []Field
}

// Schema is the caller's expected shape. It is the only description of a
// valid value: strict validation, record filtering, the field-pattern tier
// and the provider response schema are all derived from it.
type Schema struct {
	Name string
	// Fields are keys of the root object.
	Fields []Field
	// Records, when set, makes this a records shape: the root object holds
	// an array of records under Records.Key. A bare top-level array is
	// accepted and wrapped.
	Records *RecordSet
}

// normalized is a validated root object plus record accounting.
type normalized struct {
	root    map[string]any
	records int
	dropped int
}

// normalize validates v against s. When strict is false, required root
// fields may be missing and wrongly typed root fields are discarded; tiers
// that salvage partial output rely on this.
func (s Schema) normalize(v any, strict bool) (normalized, error) {
	if arr, ok := v.([]any); ok && s.Records != nil {
		v = map[string]any{s.Records.Key: arr}
	}

	root, ok := v.(map[string]any)
	if !ok {
		return normalized{}, eris.Errorf("%s: expected a JSON object, got %s", s.Name, jsonType(v))
	}

	for _, f := range s.Fields {
		if err := f.check(root); err != nil {
			if strict {
				return normalized{}, eris.Wrap(err, s.Name)
			}
			delete(root, f.Name)
		}
	}

	n := normalized{root: root, records: 1}
	if s.Records == nil {
		return n, nil
	}

	raw, present := root[s.Records.Key]
	if !present {
		return normalized{}, eris.Errorf("%s: missing %q", s.Name, s.Records.Key)
	}
	if raw == nil {
		raw = []any{}
	}
	items, ok := raw.([]any)
	if !ok {
		return normalized{}, eris.Errorf("%s: %q must be an array, got %s", s.Name, s.Records.Key, jsonType(raw))
	}

	kept := make([]any, 0, len(items))
	for _, item := range items {
		rec, ok := item.(map[string]any)
		if !ok || s.validRecord(rec) != nil {
			n.dropped++
			continue
		}
		kept = append(kept, rec)
	}
	if strict && len(items) > 0 && len(kept) == 0 {
		first := s.validRecord(asObject(items[0]))
		return normalized{}, eris.Wrapf(first, "%s: no record in %q matched", s.Name, s.Records.Key)
	}

	root[s.Records.Key] = kept
	n.records = len(kept)
	return n, nil
}

// validRecord checks a single record against the record fields. Optional
// fields with a wrong type are removed rather than failing the record.
func (s Schema) validRecord(rec map[string]any) error {
	if rec == nil {
		return eris.New("record is not an object")
	}
	for _, f := range s.Records.Fields {
		if err := f.check(rec); err != nil {
			if f.Required {
				return err
			}
			delete(rec, f.Name)
		}
	}
	return nil
}

func (f Field) check(obj map[string]any) error {
	v, ok := obj[f.Name]
	if !ok {
		if f.Required {
			return eris.Errorf("missing required field %q", f.Name)
		}
		return nil
	}
	if v == nil {
		if f.Nullable || !f.Required {
			return nil
		}
		return eris.Errorf("field %q must not be null", f.Name)
	}

	switch f.Kind {
	case FieldString:
		if _, ok := v.(string); ok {
			return nil
		}
	case FieldEnum:
		if str, ok := v.(string); ok {
			if slices.Contains(f.Enum, str) {
				return nil
			}
			return eris.Errorf("field %q: %q is not one of %v", f.Name, str, f.Enum)
		}
	case FieldInteger:
		if num, ok := v.(float64); ok && num == math.Trunc(num) {
			return nil
		}
	case FieldNumber:
		if _, ok := v.(float64); ok {
			return nil
		}
	case FieldStringList:
		if list, ok := v.([]any); ok {
			for _, item := range list {
				if _, ok := item.(string); !ok {
					return eris.Errorf("field %q: list item is %s, want string", f.Name, jsonType(item))
				}
			}
			return nil
		}
	}
	return eris.Errorf("field %q: got %s, want %s", f.Name, jsonType(v), f.Kind)
}

// ResponseSchema renders s as a Gemini responseSchema so the provider hint
// and the decoder agree on the shape.
func (s Schema) ResponseSchema() json.RawMessage {
	props := make(map[string]any)
	required := requiredNames(s.Fields)
	for _, f := range s.Fields {
		props[f.Name] = f.openAPI()
	}
	if s.Records != nil {
		props[s.Records.Key] = map[string]any{
			"type":  "ARRAY",
			"items": objectSchema(s.Records.Fields),
		}
		required = append([]string{s.Records.Key}, required...)
	}

	out := map[string]any{"type": "OBJECT", "properties": props}
	if len(required) > 0 {
		out["required"] = required
	}
	b, err := json.Marshal(out)
	if err != nil {
		// Only plain maps, strings and slices are marshaled here.
		panic(fmt.Sprintf("acquire: render response schema %s: %v", s.Name, err))
	}
	return b
}

func objectSchema(fields []Field) map[string]any {
	props := make(map[string]any, len(fields))
	for _, f := range fields {
		props[f.Name] = f.openAPI()
	}
	out := map[string]any{"type": "OBJECT", "properties": props}
	if req := requiredNames(fields); len(req) > 0 {
		out["required"] = req
	}
	return out
}

func (f Field) openAPI() map[string]any {
	var out map[string]any
	switch f.Kind {
	case FieldInteger:
		out = map[string]any{"type": "INTEGER"}
	case FieldNumber:
		out = map[string]any{"type": "NUMBER"}
	case FieldStringList:
		out = map[string]any{"type": "ARRAY", "items": map[string]any{"type": "STRING"}}
	case FieldEnum:
		out = map[string]any{"type": "STRING", "enum": f.Enum}
	default:
		out = map[string]any{"type": "STRING"}
	}
	if f.Nullable {
		out["nullable"] = true
	}
	return out
}

func requiredNames(fields []Field) []string {
	var names []string
	for _, f := range fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

func asObject(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
