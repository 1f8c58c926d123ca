// audit/model.go
package audit

import "time"

// Action tags recorded on the audit stream. The alert engine keys its
// anomaly rules on these values.
const (
	ActionDownloadSuccess = "file_download_success"
	ActionViewSuccess     = "file_view_success"
	ActionLoginSuccess    = "auth_login_success"
	ActionRequestCreated  = "access_request_created"
	ActionRequestDecided  = "access_request_decided"
	ActionPolicyCreated   = "policy_created"
	ActionPolicyActivated = "policy_activated"
	ActionPolicyDisabled  = "policy_deactivated"
	ActionAlertClosed     = "alert_closed"
)

// SourceUnknown marks events whose network origin could not be resolved,
// e.g. when a proxy strips the forwarding headers.
const SourceUnknown = "unknown"

// Event is one append-only audit record. UserID is empty for anonymous
// actions.
type Event struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id,omitempty"`
	Source     string    `json:"source"`
	Action     string    `json:"action"`
	ObjectType string    `json:"object_type,omitempty"`
	ObjectID   string    `json:"object_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Filter narrows a Query. Zero fields are ignored.
type Filter struct {
	UserID     string
	Action     string
	ObjectType string
	Since      time.Time
	Until      time.Time
}
