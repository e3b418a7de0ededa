package acquire

import (
	"encoding/json"
	"regexp"
	"strconv"

	"github.com/rotisserie/eris"
)

// flatObject matches an object fragment with no nested objects.
var flatObject = regexp.MustCompile(`\{[^{}]*\}`)

const (
	stringValue  = `"((?:[^"\\]|\\.)*)"`
	integerValue = `(-?\d+|null)\s*[,}\]]`
	numberValue  = `(-?\d+(?:\.\d+)?(?:[eE][-+]?\d+)?|null)\s*[,}\]]`
	listValue    = `(\[[^\[\]{}]*\])`
)

// fieldPattern compiles the "name": value matcher for f.
func fieldPattern(f Field) *regexp.Regexp {
	var value string
	switch f.Kind {
	case FieldInteger:
		value = integerValue
	case FieldNumber:
		value = numberValue
	case FieldStringList:
		value = listValue
	default:
		value = stringValue
	}
	return regexp.MustCompile(`"` + regexp.QuoteMeta(f.Name) + `"\s*:\s*` + value)
}

// extractFields scans s for record-shaped fragments and pulls each schema
// field out by pattern. A fragment becomes a record only when the schema's
// own record validation accepts what was extracted.
func extractFields(s string, schema Schema) (normalized, error) {
	if schema.Records == nil {
		return normalized{}, eris.Errorf("%s: field extraction needs a records shape", schema.Name)
	}

	recordPatterns := compileAll(schema.Records.Fields)
	var (
		records []any
		dropped int
	)
	for _, frag := range flatObject.FindAllString(s, -1) {
		rec, err := matchFields(frag, schema.Records.Fields, recordPatterns)
		if err != nil || schema.validRecord(rec) != nil {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return normalized{}, eris.Errorf("%s: no record fragment matched (%d rejected)", schema.Name, dropped)
	}

	root := map[string]any{schema.Records.Key: records}
	if len(schema.Fields) > 0 {
		// Root fields are best effort here; a salvaged result rarely has them.
		partial, _ := matchFields(s, schema.Fields, compileAll(schema.Fields))
		for k, v := range partial {
			root[k] = v
		}
	}

	n, err := schema.normalize(root, false)
	if err != nil {
		return normalized{}, err
	}
	n.dropped += dropped
	return n, nil
}

func compileAll(fields []Field) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(fields))
	for i, f := range fields {
		out[i] = fieldPattern(f)
	}
	return out
}

// matchFields extracts every field it can find in frag. A value that matches
// the pattern but does not convert is an error: the fragment is malformed.
func matchFields(frag string, fields []Field, patterns []*regexp.Regexp) (map[string]any, error) {
	rec := make(map[string]any, len(fields))
	for i, f := range fields {
		m := patterns[i].FindStringSubmatch(frag)
		if m == nil {
			continue
		}
		v, err := convertField(f, m[1])
		if err != nil {
			return nil, err
		}
		rec[f.Name] = v
	}
	return rec, nil
}

func convertField(f Field, raw string) (any, error) {
	switch f.Kind {
	case FieldInteger, FieldNumber:
		if raw == "null" {
			return nil, nil
		}
		num, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "field %q", f.Name)
		}
		return num, nil
	case FieldStringList:
		var list []any
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return nil, eris.Wrapf(err, "field %q", f.Name)
		}
		return list, nil
	default:
		var str string
		if err := json.Unmarshal([]byte(`"`+raw+`"`), &str); err != nil {
			return nil, eris.Wrapf(err, "field %q", f.Name)
		}
		return str, nil
	}
}
