package core

// validation.go classifies raw rows against an entity's rule table.
//
// Every rule runs on every row; the validator never stops at the first
// problem. A row is rejected when any field fails hard, or when a Required
// field fails soft (normalizes to null). Errors come back in schema order
// so diagnostics are stable across runs.

// ValidateRecord normalizes every field of raw and reports all violations.
// Fields absent from raw are treated as null. Fields not in the schema are
// ignored, except ExtraFieldsKey, which rejects the row after the schema errors.
func ValidateRecord(schema EntitySchema, raw RawRecord) ValidationOutcome {
	out := ValidationOutcome{
		Record: NormalizedRecord{Fields: make([]Field, 0, len(schema.Fields))},
	}
	for _, rule := range schema.Fields {
		input := raw[rule.Name]
		res := Normalize(rule, input)

		if fe, failed := fieldFailure(rule, res, input); failed {
			out.Errors = append(out.Errors, fe)
		}
		out.Record.Fields = append(out.Record.Fields, Field{Name: rule.Name, Value: res.Value})
	}

	if extra, ok := raw[ExtraFieldsKey]; ok {
		out.Errors = append(out.Errors, FieldError{
			Field:   ExtraFieldsKey,
			Message: "row has more cells than the header",
			Input:   extra,
		})
	}

	return out
}

// fieldFailure decides whether a normalization result rejects the row.
func fieldFailure(rule FieldRule, res FieldResult, input any) (FieldError, bool) {
	switch {
	case res.Hard:
		return FieldError{Field: rule.Name, Message: res.Reason, Input: input}, true
	case rule.Required && res.Value == nil:
		msg := res.Reason
		if msg == "" || input == nil {
			msg = "field required"
		}
		return FieldError{Field: rule.Name, Message: msg, Input: input}, true
	default:
		return FieldError{}, false
	}
}
