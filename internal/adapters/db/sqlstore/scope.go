package sqlstore

import (
	"context"

	"github.com/atvirokodosprendimai/carcrm/internal/domain"
	"gorm.io/gorm"
)

// ownedBy restricts a query on kind's table to rows that resolve to owner:
// clients directly, opportunities through their client, notes through their
// opportunity's client. An unknown kind matches nothing.
func ownedBy(owner domain.PrincipalID, kind domain.EntityKind) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch kind {
		case domain.EntityClient:
			return db.Where("clients.owner_id = ?", int64(owner))
		case domain.EntityOpportunity:
			return db.Where("opportunities.client_id IN (SELECT c.id FROM clients c WHERE c.owner_id = ?)", int64(owner))
		case domain.EntityNote:
			return db.Where(`notes.opportunity_id IN (
SELECT o.id FROM opportunities o JOIN clients c ON c.id = o.client_id WHERE c.owner_id = ?)`, int64(owner))
		}
		return db.Where("1 = 0")
	}
}

func tableOf(kind domain.EntityKind) string {
	switch kind {
	case domain.EntityClient:
		return "clients"
	case domain.EntityOpportunity:
		return "opportunities"
	case domain.EntityNote:
		return "notes"
	}
	return ""
}

func (r *PipelineRepository) scoped(ctx context.Context, owner domain.PrincipalID, kind domain.EntityKind) *gorm.DB {
	table := tableOf(kind)
	if table == "" {
		return r.db.WithContext(ctx).Table("clients").Where("1 = 0")
	}
	return r.db.WithContext(ctx).Table(table).Scopes(ownedBy(owner, kind))
}

func (r *PipelineRepository) Owns(ctx context.Context, owner domain.PrincipalID, kind domain.EntityKind, id int64) (bool, error) {
	n, err := r.CountOwned(ctx, owner, kind, []int64{id})
	return n > 0, err
}

// CountOwned returns how many of ids owner can see. ids must be distinct.
func (r *PipelineRepository) CountOwned(ctx context.Context, owner domain.PrincipalID, kind domain.EntityKind, ids []int64) (int64, error) {
	table := tableOf(kind)
	if len(ids) == 0 || table == "" {
		return 0, nil
	}
	var n int64
	err := r.scoped(ctx, owner, kind).Where(table+".id IN ?", ids).Count(&n).Error
	return n, err
}
