package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCondition(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    *Condition
		wantErr bool
	}{
		{
			name: "equals",
			raw:  `{"field":"user_role","operator":"equals","value":"guest"}`,
			want: &Condition{Field: "user_role", Operator: OpEquals, Value: "guest"},
		},
		{
			name: "not_equals",
			raw:  `{"field":"user_company","operator":"not_equals","value":"ACME"}`,
			want: &Condition{Field: "user_company", Operator: OpNotEquals, Value: "ACME"},
		},
		{
			name: "contains",
			raw:  `{"field":"document_name","operator":"contains","value":"riservato"}`,
			want: &Condition{Field: "document_name", Operator: OpContains, Value: "riservato"},
		},
		{
			name: "in list",
			raw:  `{"field":"user_role","operator":"in","value":["admin","ceo"]}`,
			want: &Condition{Field: "user_role", Operator: OpIn, Values: []string{"admin", "ceo"}},
		},
		{
			name: "not_in list",
			raw:  `{"field":"user_department","operator":"not_in","value":["HR"]}`,
			want: &Condition{Field: "user_department", Operator: OpNotIn, Values: []string{"HR"}},
		},
		{
			name: "field_equals",
			raw:  `{"field":"user_company","operator":"field_equals","value":"document_company"}`,
			want: &Condition{Field: "user_company", Operator: OpFieldEquals, OtherField: "document_company"},
		},
		{
			name:    "invalid JSON",
			raw:     `{"field":`,
			wantErr: true,
		},
		{
			name:    "missing operator",
			raw:     `{"field":"user_role","value":"guest"}`,
			wantErr: true,
		},
		{
			name:    "unknown operator",
			raw:     `{"field":"user_role","operator":"matches","value":"guest"}`,
			wantErr: true,
		},
		{
			name:    "unknown field",
			raw:     `{"field":"user_password","operator":"equals","value":"x"}`,
			wantErr: true,
		},
		{
			name:    "in with scalar value",
			raw:     `{"field":"user_role","operator":"in","value":"guest"}`,
			wantErr: true,
		},
		{
			name:    "in with empty list",
			raw:     `{"field":"user_role","operator":"in","value":[]}`,
			wantErr: true,
		},
		{
			name:    "equals with list value",
			raw:     `{"field":"user_role","operator":"equals","value":["guest"]}`,
			wantErr: true,
		},
		{
			name:    "field_equals with unknown other field",
			raw:     `{"field":"user_company","operator":"field_equals","value":"secret_field"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, err := ParseCondition([]byte(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cond)
		})
	}
}
