package core

// normalize.go implements the field normalizer: one generic function driven by
// FieldRule descriptors instead of one hand-written cleaner per field.
//
// Failures are tiered:
//   - Soft: the value normalizes to null. The record is only rejected when
//     the field is Required.
//   - Hard: the value is structurally wrong (corrupt identifier, bad enum,
//     unparsable date). The record is always rejected.

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FieldResult is the outcome of normalizing one raw value.
type FieldResult struct {
	Value  any    // Normalized value; nil means null
	Hard   bool   // Structural failure that rejects the record
	Reason string // Why the value failed (empty on success)
}

// Failed reports whether normalization produced a soft or hard failure.
func (r FieldResult) Failed() bool {
	return r.Reason != ""
}

func valid(v any) FieldResult { return FieldResult{Value: v} }
func missing() FieldResult { return FieldResult{} }
func softFail(reason string) FieldResult { return FieldResult{Reason: reason} }
func hardFail(reason string) FieldResult { return FieldResult{Hard: true, Reason: reason} }

// Normalize applies rule to one raw value.
// An empty cell is treated as a missing value.
func Normalize(rule FieldRule, raw any) FieldResult {
	if s, isString := raw.(string); isString && s == "" {
		raw = nil
	}
	switch rule.Kind {
	case KindIdentifier:
		return normalizeIdentifier(raw)
	case KindName:
		return normalizeName(raw)
	case KindEmail:
		return normalizeEmail(raw)
	case KindPrice:
		return normalizeAmount(raw, rule.Max, false)
	case KindCost:
		return normalizeAmount(raw, rule.Max, true)
	case KindCount:
		return normalizeCount(raw, rule.Min)
	case KindEnum:
		return normalizeEnum(raw, rule.Allowed, true)
	case KindOptionalEnum:
		return normalizeEnum(raw, rule.Allowed, false)
	case KindFreeText:
		return normalizeFreeText(raw, rule.NullTokens)
	case KindDate:
		return normalizeDate(raw)
	case KindTimestamp:
		return normalizeTimestamp(raw)
	case KindBool:
		return valid(normalizeBool(raw))
	default:
		return hardFail(fmt.Sprintf("unsupported field kind %d", rule.Kind))
	}
}

func normalizeIdentifier(raw any) FieldResult {
	s, present := stringify(raw)
	if !present {
		return hardFail("field required")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return hardFail("must not be empty")
	}
	return valid(s)
}

func normalizeName(raw any) FieldResult {
	s, present := stringify(raw)
	if !present {
		return hardFail("cannot be null")
	}
	s = strings.TrimSpace(s)
	if len([]rune(s)) < 2 {
		return hardFail("must be at least 2 characters")
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && r != ' ' && r != '-' && r != '\'' {
			return hardFail("contains invalid characters")
		}
	}
	return valid(titleName(s))
}

// titleName upper-cases the first letter after every non-letter, so
// "o'brien" becomes "O'Brien". The caser keeps apostrophes inside a word,
// hence the split.
func titleName(s string) string {
	// Casers are stateful; never share one across goroutines.
	caser := cases.Title(language.Und)
	parts := strings.Split(s, "'")
	for i, p := range parts {
		parts[i] = caser.String(p)
	}
	return strings.Join(parts, "'")
}

func normalizeEmail(raw any) FieldResult {
	s, present := stringify(raw)
	if !present {
		return missing()
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return missing()
	}
	if !validEmail(s) {
		return hardFail("invalid email address")
	}
	return valid(s)
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Name != "" || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	if at <= 0 {
		return false
	}
	domain := s[at+1:]
	dot := strings.IndexByte(domain, '.')
	return dot > 0 && dot < len(domain)-1
}

// normalizeAmount handles price-like (> 0) and cost-like (>= 0) values.
func normalizeAmount(raw any, upper float64, allowZero bool) FieldResult {
	f, reason := toFloat(raw)
	if reason != "" {
		return softFail(reason)
	}
	if allowZero && f < 0 {
		return softFail("must not be negative")
	}
	if !allowZero && f <= 0 {
		return softFail("must be greater than 0")
	}
	if upper > 0 && f >= upper {
		return softFail(fmt.Sprintf("must be less than %g", upper))
	}
	return valid(f)
}

func normalizeCount(raw any, lower int) FieldResult {
	n, reason := toCount(raw)
	if reason != "" {
		return softFail(reason)
	}
	if n < lower {
		return softFail(fmt.Sprintf("must be at least %d", lower))
	}
	return valid(n)
}

func normalizeEnum(raw any, allowed []string, mandatory bool) FieldResult {
	s, present := stringify(raw)
	if !present {
		if mandatory {
			return hardFail("cannot be null")
		}
		return missing()
	}
	s = strings.ToLower(strings.TrimSpace(s))
	for _, a := range allowed {
		if s == a {
			return valid(s)
		}
	}
	if mandatory {
		return hardFail(fmt.Sprintf("invalid value %q; must be one of: %s", s, strings.Join(allowed, ", ")))
	}
	return softFail(fmt.Sprintf("unsupported value %q", s))
}

func normalizeFreeText(raw any, tokens []string) FieldResult {
	s, present := stringify(raw)
	if !present {
		return missing()
	}
	s = strings.TrimSpace(s)
	if tokens == nil {
		tokens = DefaultNullTokens
	}
	for _, tok := range tokens {
		if strings.EqualFold(s, tok) {
			return missing()
		}
	}
	return valid(s)
}

func normalizeDate(raw any) FieldResult {
	switch t := raw.(type) {
	case nil:
		return hardFail("field required")
	case Date:
		return valid(t)
	case time.Time:
		return valid(DateOf(t))
	}
	s, _ := stringify(raw)
	d, err := ParseDate(s)
	if err != nil {
		return hardFail("invalid date format (use YYYY-MM-DD)")
	}
	return valid(d)
}

func normalizeTimestamp(raw any) FieldResult {
	switch t := raw.(type) {
	case nil:
		return hardFail("field required")
	case time.Time:
		return valid(t)
	case Date:
		return valid(time.Date(t.Year, t.Month, t.Day, 0, 0, 0, 0, time.UTC))
	}
	s, _ := stringify(raw)
	ts, parsed := parseTimestamp(strings.TrimSpace(s))
	if !parsed {
		return hardFail("invalid datetime format (use ISO-8601)")
	}
	return valid(ts)
}

// normalizeBool never fails; unrecognized input is false.
func normalizeBool(raw any) bool {
	if b, isBool := raw.(bool); isBool {
		return b
	}
	s, present := stringify(raw)
	if !present {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}
