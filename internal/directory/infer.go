// Package directory decides which field a free-text directory query should
// be matched against. Inference is pure: it never touches a store.
package directory

import (
	"regexp"
	"strings"
)

// Rule identifies which inference rule classified a query.
type Rule string

// Rules in priority order; the first one that matches wins.
const (
	RuleName      Rule = "name"
	RuleNumericID Rule = "numeric_id"
	RulePlate     Rule = "plate"
	RuleEmail     Rule = "email"
	RuleShortID   Rule = "short_id"
	RuleDefault   Rule = "default"
)

// Rules lists every rule in priority order.
var Rules = []Rule{RuleName, RuleNumericID, RulePlate, RuleEmail, RuleShortID, RuleDefault}

var (
	numericIDPattern = regexp.MustCompile(`^[0-9]{12}$`)
	platePattern     = regexp.MustCompile(`^[A-Za-z]{1,3}\s?\d{1,4}[A-Za-z]?$`)
	shortIDPattern   = regexp.MustCompile(`^[0-9]{2}[A-Za-z]{1}`)
)

// Query is a classified directory query.
type Query struct {
	Rule Rule `json:"rule"`
	// Value is what gets compared against the stored field: upper-cased for
	// every rule except RuleEmail, which keeps the caller's casing.
	Value string `json:"value"`
}

// Blank reports whether the query carries nothing to search for.
func (q Query) Blank() bool {
	return q.Value == ""
}

// Infer classifies raw. Surrounding whitespace is trimmed first, so a blank
// query always classifies as RuleDefault with an empty value. emailSuffixes
// are matched case-insensitively against the end of the query.
func Infer(raw string, emailSuffixes []string) Query {
	q := strings.TrimSpace(raw)

	switch {
	case strings.Contains(q, " "):
		return Query{Rule: RuleName, Value: strings.ToUpper(q)}
	case numericIDPattern.MatchString(q):
		return Query{Rule: RuleNumericID, Value: q}
	case platePattern.MatchString(q):
		return Query{Rule: RulePlate, Value: strings.ToUpper(q)}
	case hasEmailSuffix(q, emailSuffixes):
		return Query{Rule: RuleEmail, Value: q}
	case shortIDPattern.MatchString(q):
		return Query{Rule: RuleShortID, Value: strings.ToUpper(q)}
	default:
		return Query{Rule: RuleDefault, Value: strings.ToUpper(q)}
	}
}

func hasEmailSuffix(q string, suffixes []string) bool {
	lower := strings.ToLower(q)
	for _, s := range suffixes {
		s = strings.ToLower(s)
		if s != "" && len(lower) > len(s) && strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}
