package application

import (
	"context"

	"github.com/atvirokodosprendimai/carcrm/internal/domain"
)

// WriteAudit appends to the audit trail. A failed write is logged and does
// not fail the operation it describes.
func (s *PipelineService) WriteAudit(ctx context.Context, actor *domain.PrincipalID, action, targetType string, targetID *int64, metadata string) {
	err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ActorID:    actor,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   metadata,
		CreatedAt:  s.now(),
	})
	if err != nil {
		s.logger(ctx).Warn().Err(err).Str("action", action).Msg("audit write failed")
	}
}

func (s *PipelineService) ListAuditLogs(ctx context.Context, principal domain.PrincipalID, limit int) ([]domain.AuditLog, error) {
	if limit <= 0 {
		limit = 200
	}
	if limit > 2000 {
		limit = 2000
	}
	return s.repo.ListAuditLogs(ctx, principal, limit)
}
