package alerts

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hugh/go-warden/internal/database/models"
	"github.com/hugh/go-warden/internal/engine"
	"github.com/hugh/go-warden/internal/policy"
)

// Notifier receives every alert produced or refreshed by an analysis run.
// Implementations must not block: delivery happens on the request path.
type Notifier interface {
	OnAlertUpserted(alert *models.Alert)
}

// NoopNotifier satisfies Notifier when notifications are not configured.
type NoopNotifier struct{}

func (NoopNotifier) OnAlertUpserted(*models.Alert) {}

// AnalyzeService runs the evaluation pipeline end to end: snapshot batch in,
// persisted alerts out.
type AnalyzeService struct {
	evaluator *engine.Evaluator
	store     *Store
	notifier  Notifier
	logger    *slog.Logger
}

func NewAnalyzeService(evaluator *engine.Evaluator, store *Store, notifier Notifier, logger *slog.Logger) *AnalyzeService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &AnalyzeService{
		evaluator: evaluator,
		store:     store,
		notifier:  notifier,
		logger:    logger,
	}
}

// Analyze evaluates one snapshot batch and persists every finding. A single
// failed write is logged and skipped so the rest of the batch still lands;
// the call errors only when every write failed, which points at the database
// rather than the data.
func (s *AnalyzeService) Analyze(ctx context.Context, resources []policy.Resource, accountID string) (string, []models.Alert, error) {
	batchID := uuid.NewString()
	log := s.logger.With("batch_id", batchID, "account_id", accountID)

	findings := s.evaluator.Evaluate(ctx, resources, accountID)
	log.Info("batch evaluated", "resources", len(resources), "findings", len(findings))

	if len(findings) == 0 {
		return batchID, []models.Alert{}, nil
	}

	alerts := make([]models.Alert, 0, len(findings))
	var lastErr error
	for _, f := range findings {
		alert, err := s.store.Upsert(ctx, f)
		if err != nil {
			lastErr = err
			log.Error("alert upsert failed",
				"policy_id", f.PolicyID,
				"resource_id", f.ResourceID,
				"error", err,
			)
			continue
		}
		alerts = append(alerts, *alert)
		s.notifier.OnAlertUpserted(alert)
	}

	if len(alerts) == 0 && lastErr != nil {
		return batchID, nil, errors.Join(errors.New("no findings could be persisted"), lastErr)
	}
	return batchID, alerts, nil
}
