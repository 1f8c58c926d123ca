// Package dao holds the Postgres access layer.
//
// Expected schema (managed by the surrounding application's migration
// tooling, which is outside this core):
//
//	users(id, username, email, role, created_at)
//	companies(id, name)
//	departments(id, name, company_id)
//	user_companies(user_id, company_id)
//	user_departments(user_id, department_id)
//	documents(id, title, company_id, department_tags, visibility,
//	          is_critical, expiry_date, created_at)
//	auto_policies(id, name, description, condition, action, priority,
//	              active, created_by, approved_by, approved_at,
//	              created_at, updated_at)
//	access_requests(id, user_id, document_id, note, status, risk_score,
//	                risk_factors, response, decided_by, decided_at,
//	                created_at)
//	security_alerts(id, user_id, rule_id, severity, details, status,
//	                closed_by, close_note, created_at)
package dao
