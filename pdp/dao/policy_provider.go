package dao

import (
	"context"

	"go.uber.org/zap"

	"github.com/gestore-cpu/gestione-doc-security/db"
	logger "github.com/gestore-cpu/gestione-doc-security/logging"
	"github.com/gestore-cpu/gestione-doc-security/model"
)

// ActivePolicySource is the storage layer behind the provider.
type ActivePolicySource interface {
	GetActivePolicies(ctx context.Context) ([]*model.AutoPolicy, error)
}

// CachedPolicyProvider serves the evaluation hot path from the Redis
// policy cache, falling back to Postgres on a miss. Cache failures are
// never fatal; evaluation proceeds against the store.
type CachedPolicyProvider struct {
	source ActivePolicySource
}

func NewCachedPolicyProvider(source ActivePolicySource) *CachedPolicyProvider {
	return &CachedPolicyProvider{source: source}
}

func (p *CachedPolicyProvider) GetActivePolicies(ctx context.Context) ([]*model.AutoPolicy, error) {
	cached, err := db.GetCachedActivePolicies(ctx)
	if err != nil {
		logger.Warn("Policy cache read failed, falling back to store", zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	policies, err := p.source.GetActivePolicies(ctx)
	if err != nil {
		return nil, err
	}

	if err := db.CacheActivePolicies(ctx, policies); err != nil {
		logger.Warn("Failed to refresh policy cache", zap.Error(err))
	}
	return policies, nil
}
