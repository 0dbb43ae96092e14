package application

import (
	"context"

	"github.com/jobrunner/gdbee/internal/ports/input"
)

// HealthService provides health check functionality.
type HealthService struct {
	workbench *Workbench
	probe     func(ctx context.Context) error
}

// NewHealthService creates a new health service. probe checks the query engine; it may be nil.
func NewHealthService(workbench *Workbench, probe func(ctx context.Context) error) *HealthService {
	return &HealthService{
		workbench: workbench,
		probe:     probe,
	}
}

// IsHealthy returns true if the service is healthy.
func (s *HealthService) IsHealthy(_ context.Context) bool {
	return true
}

// IsReady returns true if the query engine is usable.
func (s *HealthService) IsReady(ctx context.Context) bool {
	if s.probe == nil {
		return true
	}
	return s.probe(ctx) == nil
}

// GetHealthDetails returns detailed health information.
func (s *HealthService) GetHealthDetails(ctx context.Context) input.HealthDetails {
	engine := "ok"
	if s.probe != nil {
		if err := s.probe(ctx); err != nil {
			engine = err.Error()
		}
	}

	return input.HealthDetails{
		Healthy:      s.IsHealthy(ctx),
		Ready:        engine == "ok",
		SessionsOpen: s.workbench.SessionCount(),
		Components: map[string]string{
			"engine": engine,
		},
	}
}
