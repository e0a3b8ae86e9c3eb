package resolver

import (
	"context"
	"log/slog"

	"github.com/iconidentify/mediagrab/internal/domain"
)

// Orchestrator runs the configured strategies for a platform in fixed order.
// Order never changes at runtime.
type Orchestrator struct {
	chains map[domain.Platform][]Strategy
	logger *slog.Logger
}

// NewOrchestrator creates an orchestrator from per-platform strategy chains.
func NewOrchestrator(chains map[domain.Platform][]Strategy, logger *slog.Logger) *Orchestrator {
	copied := make(map[domain.Platform][]Strategy, len(chains))
	for platform, chain := range chains {
		copied[platform] = append([]Strategy(nil), chain...)
	}
	return &Orchestrator{
		chains: copied,
		logger: logger,
	}
}

// Strategies returns the chain configured for platform.
func (o *Orchestrator) Strategies(platform domain.Platform) []Strategy {
	return append([]Strategy(nil), o.chains[platform]...)
}

// Resolve returns the result of the first strategy that succeeds. Later
// strategies are not invoked. When all fail the error is an
// *domain.AggregateResolveError holding every failure.
func (o *Orchestrator) Resolve(ctx context.Context, req domain.MediaRequest) (*domain.ResolutionResult, error) {
	return ResolveWith(ctx, req, o.chains[req.Platform], o.logger)
}

// ResolveWith runs an explicit strategy chain.
func ResolveWith(ctx context.Context, req domain.MediaRequest, strategies []Strategy, logger *slog.Logger) (*domain.ResolutionResult, error) {
	agg := &domain.AggregateResolveError{}

	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			agg.Failures = append(agg.Failures, domain.NewResolveError(s.Name(), err))
			return nil, agg
		}

		if !s.Supports(req.Site) {
			agg.Failures = append(agg.Failures, domain.NewResolveError(s.Name(), domain.ErrStrategyUnsupported))
			continue
		}

		result, err := s.Resolve(ctx, req.SourceURL)
		if err == nil {
			err = result.Validate()
		}
		if err != nil {
			logger.Warn("strategy failed",
				"strategy", s.Name(),
				"url", req.SourceURL,
				"error", err,
			)
			agg.Failures = append(agg.Failures, domain.NewResolveError(s.Name(), err))
			continue
		}

		result.StrategyUsed = s.Name()
		logger.Info("resolved media",
			"strategy", s.Name(),
			"items", len(result.Items),
			"url", req.SourceURL,
		)
		return result, nil
	}

	return nil, agg
}
