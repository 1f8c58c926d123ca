package model

import doc_model "github.com/gestore-cpu/gestione-doc-security/model"

// Decision is the outcome of a policy evaluation that matched a rule.
// A nil *Decision from the evaluator means no active policy matched and
// the request falls back to manual review.
type Decision struct {
	Action     doc_model.PolicyAction `json:"action"`
	PolicyID   string                 `json:"policy_id"`
	PolicyName string                 `json:"policy_name"`
	Reason     string                 `json:"reason"`
}

// NoDecisionReason is the operator-facing text recorded when no rule
// matched.
const NoDecisionReason = "Nessuna regola automatica corrisponde"
