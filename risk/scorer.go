// risk/scorer.go
package risk

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	doc_errors "github.com/gestore-cpu/gestione-doc-security/errors"
	logger "github.com/gestore-cpu/gestione-doc-security/logging"
	"github.com/gestore-cpu/gestione-doc-security/metrics"
	"github.com/gestore-cpu/gestione-doc-security/model"
)

// RequestStore is the slice of the request DAO the scorer needs.
type RequestStore interface {
	GetRequest(ctx context.Context, requestID string) (*model.AccessRequest, error)
	AttachRisk(ctx context.Context, requestID string, report *model.RiskReport) error
	CountByStatus(ctx context.Context, userID string, status model.RequestStatus) (int, error)
	HighRisk(ctx context.Context, threshold, limit int) ([]*model.AccessRequest, error)
}

type UserStore interface {
	GetUser(ctx context.Context, userID string) (*model.User, error)
}

type DocumentStore interface {
	GetDocument(ctx context.Context, documentID string) (*model.Document, error)
}

// Scorer builds the deterministic feature vector for a request and
// delegates scoring to the external classifier. Scoring annotates the
// request; it never changes its status and its failure never blocks the
// flow that triggered it.
type Scorer struct {
	requests          RequestStore
	users             UserStore
	documents         DocumentStore
	classifier        Classifier
	timeout           time.Duration
	highRiskThreshold int
	now               func() time.Time
}

func NewScorer(requests RequestStore, users UserStore, documents DocumentStore, classifier Classifier, timeout time.Duration, highRiskThreshold int) *Scorer {
	return &Scorer{
		requests:          requests,
		users:             users,
		documents:         documents,
		classifier:        classifier,
		timeout:           timeout,
		highRiskThreshold: highRiskThreshold,
		now:               time.Now,
	}
}

// WithClock replaces the scorer's clock. Test hook.
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	s.now = now
	return s
}

// Score annotates a pending request with a risk score and explanation.
// On classifier failure the score stays unset (unset and zero risk are
// distinct states) and a typed error is returned for the caller to log.
func (s *Scorer) Score(ctx context.Context, requestID string) (*model.RiskReport, error) {
	request, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.IsTerminal() {
		logger.Debug("Skipping risk scoring for decided request",
			zap.String("requestID", requestID))
		return nil, nil
	}

	features, err := s.buildFeatures(ctx, request)
	if err != nil {
		return nil, err
	}

	classifyCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	classification, err := s.classifier.Classify(classifyCtx, features)
	if err != nil {
		metrics.ClassifierFailures.Inc()
		logger.Error("Risk classifier failed",
			zap.String("requestID", requestID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", doc_errors.ErrClassifierFailure, err)
	}
	if classification.Score < 0 || classification.Score > 100 {
		metrics.ClassifierFailures.Inc()
		logger.Error("Risk classifier returned out-of-range score",
			zap.String("requestID", requestID),
			zap.Int("score", classification.Score))
		return nil, fmt.Errorf("%w: score %d out of range", doc_errors.ErrClassifierFailure, classification.Score)
	}

	report := &model.RiskReport{
		Score:       classification.Score,
		Explanation: classification.Explanation,
		Factors:     classification.Factors,
		AnalyzedAt:  s.now().UTC(),
	}

	if err := s.requests.AttachRisk(ctx, requestID, report); err != nil {
		return nil, err
	}

	logger.Info("Risk score applied",
		zap.String("requestID", requestID),
		zap.Int("score", report.Score))
	return report, nil
}

// HighRisk returns pending requests at or above the configured
// threshold, highest score first.
func (s *Scorer) HighRisk(ctx context.Context, limit int) ([]*model.AccessRequest, error) {
	return s.requests.HighRisk(ctx, s.highRiskThreshold, limit)
}

func (s *Scorer) buildFeatures(ctx context.Context, request *model.AccessRequest) (Features, error) {
	var (
		user   *model.User
		doc    *model.Document
		denied int
		total  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		user, err = s.users.GetUser(gctx, request.UserID)
		return err
	})
	g.Go(func() (err error) {
		doc, err = s.documents.GetDocument(gctx, request.DocumentID)
		return err
	})
	g.Go(func() (err error) {
		denied, err = s.requests.CountByStatus(gctx, request.UserID, model.StatusDenied)
		return err
	})
	g.Go(func() (err error) {
		total, err = s.requests.CountByStatus(gctx, request.UserID, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return Features{}, fmt.Errorf("failed to build risk features: %w", err)
	}

	features := Features{
		UserRole:         string(user.Role),
		UserEmail:        user.Email,
		DocumentTitle:    doc.Title,
		DocumentExpired:  doc.IsExpired(s.now()),
		DocumentCritical: doc.IsCritical,
		Note:             request.Note,
		PriorDenied:      denied,
		PriorTotal:       total,
	}
	if doc.ExpiryDate != nil {
		expiry := doc.ExpiryDate.Format(time.RFC3339)
		features.DocumentExpiry = &expiry
	}
	return features, nil
}
