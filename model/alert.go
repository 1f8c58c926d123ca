package model

import "time"

// Severity of a security alert.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// AlertStatus of a security alert.
type AlertStatus string

const (
	AlertOpen   AlertStatus = "open"
	AlertClosed AlertStatus = "closed"
)

// Fixed anomaly rule identifiers.
const (
	RuleBurstDownloads  = "burst_downloads"
	RuleNewSourceAccess = "new_source_access"
	RuleCrossScope      = "cross_scope_access"
)

type SecurityAlert struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	RuleID    string      `json:"rule_id"`
	Severity  Severity    `json:"severity"`
	Details   string      `json:"details"`
	Status    AlertStatus `json:"status"`
	ClosedBy  string      `json:"closed_by,omitempty"`
	CloseNote string      `json:"close_note,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// AlertStats is the read-only statistics surface over a trailing window.
type AlertStats struct {
	PeriodDays        int            `json:"period_days"`
	TotalAlerts       int            `json:"total_alerts"`
	OpenAlerts        int            `json:"open_alerts"`
	ClosedAlerts      int            `json:"closed_alerts"`
	BySeverity        map[string]int `json:"severity_breakdown"`
	ByRule            map[string]int `json:"rule_breakdown"`
	MostTriggeredRule string         `json:"most_triggered_rule,omitempty"`
}
