package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	logger "github.com/gestore-cpu/gestione-doc-security/logging"
	"github.com/gestore-cpu/gestione-doc-security/metrics"
	"github.com/gestore-cpu/gestione-doc-security/model"
	pdp_model "github.com/gestore-cpu/gestione-doc-security/pdp/model"
)

// PolicyProvider supplies the active policy set. Implementations may
// cache; the evaluator re-sorts, so ordering does not depend on the
// provider.
type PolicyProvider interface {
	GetActivePolicies(ctx context.Context) ([]*model.AutoPolicy, error)
}

// Evaluator applies the active auto-policies to a request's feature set.
// Evaluation is stateless and side-effect-free: first match in priority
// order wins, later policies are never consulted.
type Evaluator struct {
	policies PolicyProvider
}

func NewEvaluator(policies PolicyProvider) *Evaluator {
	return &Evaluator{policies: policies}
}

// Evaluate returns the decision of the first matching active policy, or
// nil when no policy matches (fallback to manual review). Malformed
// conditions never abort the evaluation; the policy is skipped and the
// malformation logged with its ID.
func (e *Evaluator) Evaluate(ctx context.Context, features pdp_model.Features) (*pdp_model.Decision, error) {
	policies, err := e.policies.GetActivePolicies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active policies: %w", err)
	}

	// Priority ascending, ID ascending on ties, for determinism.
	sort.SliceStable(policies, func(i, j int) bool {
		if policies[i].Priority != policies[j].Priority {
			return policies[i].Priority < policies[j].Priority
		}
		return policies[i].ID < policies[j].ID
	})

	for _, policy := range policies {
		if !policy.Active {
			continue
		}
		if policy.Condition == nil {
			logger.Warn("Skipping policy with malformed condition",
				zap.String("policyID", policy.ID),
				zap.String("policyName", policy.Name))
			metrics.MalformedConditions.Inc()
			continue
		}
		if matchCondition(policy.Condition, features) {
			decision := &pdp_model.Decision{
				Action:     policy.Action,
				PolicyID:   policy.ID,
				PolicyName: policy.Name,
				Reason:     fmt.Sprintf("Regola automatica: %s", policy.Name),
			}
			logger.Info("Automatic policy matched",
				zap.String("policyID", policy.ID),
				zap.String("action", string(policy.Action)))
			metrics.PolicyEvaluations.WithLabelValues(string(policy.Action)).Inc()
			return decision, nil
		}
	}

	metrics.PolicyEvaluations.WithLabelValues("no_decision").Inc()
	return nil, nil
}

func matchCondition(cond *model.Condition, features pdp_model.Features) bool {
	value, ok := features.Lookup(cond.Field)
	if !ok {
		return false
	}

	switch cond.Operator {
	case model.OpEquals:
		s, scalar := asScalar(value)
		return scalar && s == cond.Value
	case model.OpNotEquals:
		s, scalar := asScalar(value)
		return !scalar || s != cond.Value
	case model.OpContains:
		str := stringify(value)
		return str != "" && cond.Value != "" && strings.Contains(str, cond.Value)
	case model.OpIn:
		s, scalar := asScalar(value)
		if !scalar {
			return false
		}
		return inList(s, cond.Values)
	case model.OpNotIn:
		s, scalar := asScalar(value)
		if !scalar {
			return false
		}
		return !inList(s, cond.Values)
	case model.OpFieldEquals:
		other, ok := features.Lookup(cond.OtherField)
		if !ok {
			return false
		}
		// field_equals compares scalars; a list on either side never matches.
		left, leftScalar := asScalar(value)
		right, rightScalar := asScalar(other)
		return leftScalar && rightScalar && left == right
	default:
		return false
	}
}

func asScalar(value any) (string, bool) {
	s, ok := value.(string)
	return s, ok
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []string:
		if len(v) == 0 {
			return ""
		}
		return fmt.Sprintf("%v", v)
	default:
		return ""
	}
}

func inList(value string, list []string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
