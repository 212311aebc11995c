// Package entities defines the domain records of the ride-sharing backend:
// the rating ledger (aggregate and transaction log), the directory records
// (users, drivers, vehicles, admins, admin groups) and cached notifications.
//
// Records are persisted as flat attribute maps. Each type has a Fields method
// producing its stored form and a matching ...FromFields constructor reading
// it back, so these structs stay free of any storage dependency.
package entities

import "encoding/json"

func fieldString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func fieldFloat(m map[string]any, key string) float64 {
	switch n := m[key].(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}

func fieldStrings(m map[string]any, key string) []string {
	switch v := m[key].(type) {
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
