package model

import "time"

// RequestStatus is the lifecycle state of an access request. A request is
// created pending and moves to a terminal approved/denied state exactly
// once, either automatically or by a human admin.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusDenied   RequestStatus = "denied"
)

type AccessRequest struct {
	ID         string        `json:"id"`
	UserID     string        `json:"user_id"`
	DocumentID string        `json:"document_id"`
	Note       string        `json:"note"`
	Status     RequestStatus `json:"status"`
	// RiskScore is nil until a classifier run succeeds. Unset and zero
	// risk are distinct states.
	RiskScore   *int        `json:"risk_score,omitempty"`
	RiskFactors *RiskReport `json:"risk_factors,omitempty"`
	// Response is the admin-facing decision text, set by the policy
	// engine for automatic decisions or by the reviewer for manual ones.
	Response  string     `json:"response,omitempty"`
	DecidedBy string     `json:"decided_by,omitempty"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsTerminal reports whether the request has been decided. Terminal
// requests are never re-evaluated automatically.
func (r AccessRequest) IsTerminal() bool {
	return r.Status == StatusApproved || r.Status == StatusDenied
}

// RiskReport is the structured explanation attached to a request by the
// risk scorer.
type RiskReport struct {
	Score       int       `json:"score"`
	Explanation string    `json:"explanation"`
	Factors     []string  `json:"risk_factors"`
	AnalyzedAt  time.Time `json:"analysis_timestamp"`
}
