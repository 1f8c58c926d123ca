package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// PolicyAction is the decision an AutoPolicy produces when it matches.
type PolicyAction string

const (
	ActionApprove PolicyAction = "approve"
	ActionDeny    PolicyAction = "deny"
)

// Operator is the comparison applied by a policy condition.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
	OpFieldEquals Operator = "field_equals"
)

// FeatureKeys is the closed set of request-feature fields a condition may
// reference. Conditions naming anything else are rejected at parse time.
var FeatureKeys = map[string]bool{
	"user_id":             true,
	"user_role":           true,
	"user_company":        true,
	"user_department":     true,
	"document_company":    true,
	"document_department": true,
	"document_name":       true,
	"document_tags":       true,
	"note":                true,
}

// AutoPolicy is an administrator-authored rule with a single condition
// and a single action, used for automatic access-request adjudication.
// Only active policies participate in evaluation; lower priority is
// evaluated first.
type AutoPolicy struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	// RawCondition is the stored JSON form. Condition is the parsed form,
	// nil when RawCondition could not be parsed (the policy then never
	// matches and the malformation is logged by the evaluator).
	RawCondition string       `json:"condition"`
	Condition    *Condition   `json:"-"`
	Action       PolicyAction `json:"action"`
	Priority     int          `json:"priority"`
	Active       bool         `json:"active"`
	CreatedBy    string       `json:"created_by"`
	ApprovedBy   string       `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time   `json:"approved_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Condition is a single structured predicate over the request features.
// For field_equals, OtherField names the second feature; for in/not_in,
// Values holds the candidate list; the remaining operators use Value.
type Condition struct {
	Field      string   `json:"field"`
	Operator   Operator `json:"operator"`
	Value      string   `json:"value,omitempty"`
	Values     []string `json:"values,omitempty"`
	OtherField string   `json:"other_field,omitempty"`
}

// rawCondition mirrors the administrator-facing JSON, where "value" may be
// a scalar, a list, or (for field_equals) the name of another field.
type rawCondition struct {
	Field    string          `json:"field"`
	Operator string          `json:"operator"`
	Value    json.RawMessage `json:"value"`
}

// ParseCondition parses and validates a condition document. Malformed
// conditions are a load-time error surfaced to the caller; the evaluator
// never re-parses per call.
func ParseCondition(raw []byte) (*Condition, error) {
	var rc rawCondition
	if err := json.Unmarshal(raw, &rc); err != nil {
		return nil, fmt.Errorf("condition is not valid JSON: %w", err)
	}
	if rc.Field == "" || rc.Operator == "" || len(rc.Value) == 0 {
		return nil, fmt.Errorf("condition requires field, operator and value")
	}
	if !FeatureKeys[rc.Field] {
		return nil, fmt.Errorf("unknown condition field %q", rc.Field)
	}

	cond := &Condition{Field: rc.Field, Operator: Operator(rc.Operator)}

	switch cond.Operator {
	case OpEquals, OpNotEquals, OpContains:
		if err := json.Unmarshal(rc.Value, &cond.Value); err != nil {
			return nil, fmt.Errorf("operator %s requires a string value", cond.Operator)
		}
	case OpIn, OpNotIn:
		if err := json.Unmarshal(rc.Value, &cond.Values); err != nil {
			return nil, fmt.Errorf("operator %s requires a list value", cond.Operator)
		}
		if len(cond.Values) == 0 {
			return nil, fmt.Errorf("operator %s requires a non-empty list", cond.Operator)
		}
	case OpFieldEquals:
		if err := json.Unmarshal(rc.Value, &cond.OtherField); err != nil {
			return nil, fmt.Errorf("operator field_equals requires a field name value")
		}
		if !FeatureKeys[cond.OtherField] {
			return nil, fmt.Errorf("unknown condition field %q", cond.OtherField)
		}
	default:
		return nil, fmt.Errorf("unknown operator %q", rc.Operator)
	}

	return cond, nil
}
