package repository

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
)

// IDField is the key under which every returned document carries its id.
const IDField = "id"

// Document is a flat attribute set as stored in a collection.
type Document map[string]any

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidField reports whether name can be used as a query field. Backends
// splice field names into JSON paths, so anything beyond identifiers is
// refused.
func ValidField(name string) bool {
	return fieldPattern.MatchString(name)
}

// Normalize returns a deep copy of doc as it would come back from a JSON
// backend: numbers become float64, nested values become maps and slices.
// The id key is stripped; backends store it as the row key.
func Normalize(doc Document) (Document, error) {
	raw, err := Encode(doc)
	if err != nil {
		return nil, err
	}
	return Decode(raw)
}

// Encode serializes doc without its id key.
func Encode(doc Document) ([]byte, error) {
	clean := make(Document, len(doc))
	for k, v := range doc {
		if k == IDField {
			continue
		}
		clean[k] = v
	}
	raw, err := json.Marshal(clean)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return raw, nil
}

// Decode parses a stored document.
func Decode(raw []byte) (Document, error) {
	doc := Document{}
	if len(raw) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// WithID returns a shallow copy of doc carrying id under IDField.
func WithID(doc Document, id string) Document {
	out := make(Document, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	out[IDField] = id
	return out
}

// Merge returns base overlaid with fields. Neither input is modified.
func Merge(base, fields Document) Document {
	out := make(Document, len(base)+len(fields))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range fields {
		if k == IDField {
			continue
		}
		out[k] = v
	}
	return out
}

// Matches reports whether doc[field] equals value under JSON equality:
// numbers compare numerically regardless of Go type.
func Matches(doc Document, field string, value any) bool {
	got, ok := doc[field]
	if !ok {
		return false
	}
	if gf, ok := toFloat(got); ok {
		if vf, ok := toFloat(value); ok {
			return gf == vf
		}
		return false
	}
	switch v := got.(type) {
	case string:
		s, ok := value.(string)
		return ok && s == v
	case bool:
		b, ok := value.(bool)
		return ok && b == v
	default:
		return false
	}
}

// SortByID orders documents by id so that query results are deterministic
// across backends.
func SortByID(docs []Document) {
	sort.Slice(docs, func(i, j int) bool {
		a, _ := docs[i][IDField].(string)
		b, _ := docs[j][IDField].(string)
		return a < b
	})
}

// String returns doc[key] as a string, or "" when absent or not a string.
func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Float returns doc[key] as a float64.
func (d Document) Float(key string) float64 {
	f, _ := toFloat(d[key])
	return f
}

// Int returns doc[key] truncated to an int.
func (d Document) Int(key string) int {
	f, _ := toFloat(d[key])
	return int(f)
}

// Strings returns doc[key] as a string slice, skipping non-string entries.
func (d Document) Strings(key string) []string {
	switch v := d[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// ID returns the document id.
func (d Document) ID() string {
	return d.String(IDField)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
