package strategy

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/greedi-fi/internal/backtest"
	"github.com/yourusername/greedi-fi/internal/metrics"
	"github.com/yourusername/greedi-fi/internal/models"
	"github.com/yourusername/greedi-fi/internal/store"
)

// Service is the registry surface for strategies: registration against the
// template catalog, lookup, listing, deletion and custom uploads.
type Service struct {
	store  store.StrategyStore
	logger *logrus.Logger
}

// NewService creates a strategy registry service
func NewService(st store.StrategyStore, logger *logrus.Logger) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("strategy store is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{store: st, logger: logger}, nil
}

// Templates returns the registrable template catalog
func (s *Service) Templates() map[string]Template {
	return AvailableTemplates
}

// Create registers a strategy. Unknown templates are rejected; an id of the
// form strategy_<hex8> is assigned when absent. Strategies are immutable
// after registration except by explicit delete.
func (s *Service) Create(ctx context.Context, strategy *models.Strategy) (*models.Strategy, error) {
	if err := strategy.Validate(); err != nil {
		return nil, err
	}
	if !IsKnownTemplate(strategy.Template) {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidTemplate, strategy.Template)
	}
	if strategy.ID == "" {
		strategy.ID = models.NewStrategyID()
	}

	if err := s.store.Put(ctx, strategy); err != nil {
		return nil, fmt.Errorf("failed to store strategy: %w", err)
	}

	metrics.StrategiesCreatedTotal.Inc()
	s.logger.WithFields(logrus.Fields{
		"strategy_id": strategy.ID,
		"template":    strategy.Template,
	}).Info("Strategy registered")

	return strategy, nil
}

// RegisterUpload registers an uploaded custom strategy. Uploaded strategies
// bypass the template catalog and simulate with the generic profile.
func (s *Service) RegisterUpload(ctx context.Context, name, filename string) (*models.Strategy, error) {
	if name == "" {
		return nil, models.NewValidationError("name", "strategy name is required")
	}

	strategy := &models.Strategy{
		ID:           models.NewCustomStrategyID(),
		Name:         name,
		Template:     backtest.TemplateCustom,
		Parameters:   map[string]string{},
		UploadedFile: filename,
	}
	if err := s.store.Put(ctx, strategy); err != nil {
		return nil, fmt.Errorf("failed to store uploaded strategy: %w", err)
	}

	metrics.StrategiesCreatedTotal.Inc()
	s.logger.WithFields(logrus.Fields{
		"strategy_id": strategy.ID,
		"file":        filename,
	}).Info("Custom strategy uploaded")

	return strategy, nil
}

// Get retrieves a strategy by id
func (s *Service) Get(ctx context.Context, id string) (*models.Strategy, error) {
	return s.store.Get(ctx, id)
}

// List returns all registered strategies
func (s *Service) List(ctx context.Context) ([]*models.Strategy, error) {
	return s.store.List(ctx)
}

// Delete removes a strategy by id
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("strategy_id", id).Info("Strategy deleted")
	return nil
}
