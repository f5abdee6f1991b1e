package application

import (
	"context"
	"errors"
	"time"

	"github.com/atvirokodosprendimai/carcrm/internal/domain"
	"github.com/rs/zerolog"
)

// PipelineService is the entry point for every pipeline operation. Each
// owner-scoped method takes the acting principal and never reaches rows
// outside that principal's ownership chain.
type PipelineService struct {
	repo  domain.PipelineRepository
	cache domain.CatalogCache
	clock domain.Clock
	loc   *time.Location
	log   zerolog.Logger
}

type Option func(*PipelineService)

func WithCache(cache domain.CatalogCache) Option {
	return func(s *PipelineService) { s.cache = cache }
}

func WithClock(clock domain.Clock) Option {
	return func(s *PipelineService) { s.clock = clock }
}

// WithLocation sets the timezone note statistics count days in.
func WithLocation(loc *time.Location) Option {
	return func(s *PipelineService) { s.loc = loc }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *PipelineService) { s.log = log }
}

func NewPipelineService(repo domain.PipelineRepository, opts ...Option) *PipelineService {
	s := &PipelineService{
		repo:  repo,
		cache: domain.NopCache{},
		clock: domain.SystemClock{},
		loc:   time.UTC,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PipelineService) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

// logger prefers the request-scoped logger the transports attach to ctx.
func (s *PipelineService) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.log
}

// fail logs err against op and hands it back. Taxonomy errors are expected
// outcomes and only logged at debug.
func (s *PipelineService) fail(ctx context.Context, op string, principal domain.PrincipalID, err error) error {
	log := s.logger(ctx)
	var de *domain.Error
	if errors.As(err, &de) {
		log.Debug().Str("op", op).Int64("principal_id", int64(principal)).Str("reason", de.Error()).Msg("rejected")
		return err
	}
	log.Error().Err(err).Str("op", op).Int64("principal_id", int64(principal)).Msg("operation failed")
	return err
}

// done records a successful mutation in the log and the audit trail.
func (s *PipelineService) done(ctx context.Context, principal domain.PrincipalID, action, entity string, id int64, metadata string) {
	s.logger(ctx).Info().Str("op", action).Int64("principal_id", int64(principal)).Str("entity", entity).Int64("id", id).Msg("mutation")
	s.WriteAudit(ctx, &principal, action, entity, &id, metadata)
}
