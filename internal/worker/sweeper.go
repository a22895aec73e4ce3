package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/utafrali/returns-service/internal/event"
	"github.com/utafrali/returns-service/internal/service"
	"github.com/utafrali/returns-service/pkg/pagination"
)

const sweepPageSize = 100

// Sweeper periodically surfaces return authorizations that have sat in the
// authorized state past the configured maximum age. It only announces them
// as events; acting on the expiry (closing, re-stocking, customer contact)
// belongs to downstream consumers.
type Sweeper struct {
	returns  *service.ReturnsService
	producer *event.Producer
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a sweeper that runs at the given interval.
func NewSweeper(returns *service.ReturnsService, producer *event.Producer, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		returns:  returns,
		producer: producer,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks, sweeping once per interval until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if s.producer == nil {
		return
	}

	now := time.Now().UTC()
	params := pagination.Params{Page: 1, PerPage: sweepPageSize}
	swept := 0

	for {
		params.Offset = (params.Page - 1) * params.PerPage
		expired, total, err := s.returns.ListExpired(ctx, params)
		if err != nil {
			s.logger.ErrorContext(ctx, "sweep expired return authorizations",
				slog.String("error", err.Error()),
			)
			return
		}

		for i := range expired {
			ra := &expired[i]
			age := int(now.Sub(ra.CreatedAt).Hours() / 24)
			if err := s.producer.PublishAuthorizationExpired(ctx, ra, age); err != nil {
				s.logger.ErrorContext(ctx, "failed to publish returns.authorization.expired event",
					slog.String("return_authorization_id", ra.ID),
					slog.String("error", err.Error()),
				)
			}
		}
		swept += len(expired)

		if swept >= total || len(expired) == 0 {
			break
		}
		params.Page++
	}

	if swept > 0 {
		s.logger.InfoContext(ctx, "swept expired return authorizations",
			slog.Int("count", swept),
		)
	}
}
