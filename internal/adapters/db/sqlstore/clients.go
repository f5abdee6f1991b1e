package sqlstore

import (
	"context"
	"strings"

	"github.com/atvirokodosprendimai/carcrm/internal/domain"
)

func (r *PipelineRepository) CreateClient(ctx context.Context, value domain.Client) (domain.Client, error) {
	m := ClientModel{
		OwnerID:   int64(value.OwnerID),
		Name:      value.Name,
		Email:     value.Email,
		Phone:     value.Phone,
		Urgency:   string(value.Urgency),
		CreatedAt: value.CreatedAt,
		UpdatedAt: value.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Client{}, translate(err, "client")
	}
	return toClient(m, 0), nil
}

func (r *PipelineRepository) GetClient(ctx context.Context, owner domain.PrincipalID, id int64) (domain.Client, error) {
	var m ClientModel
	if err := r.scoped(ctx, owner, domain.EntityClient).Where("clients.id = ?", id).First(&m).Error; err != nil {
		return domain.Client{}, translate(err, "client")
	}
	n, err := r.count(ctx, "opportunities", "client_id", m.ID)
	if err != nil {
		return domain.Client{}, err
	}
	return toClient(m, n), nil
}

func (r *PipelineRepository) ListClients(ctx context.Context, owner domain.PrincipalID, filter domain.ClientFilter, window domain.Window) ([]domain.Client, error) {
	if window.Cursor != nil {
		ok, err := r.Owns(ctx, owner, domain.EntityClient, *window.Cursor)
		if err != nil || !ok {
			return []domain.Client{}, err
		}
	}

	q := r.scoped(ctx, owner, domain.EntityClient)
	if filter.Urgency != nil {
		q = q.Where("clients.urgency = ?", string(*filter.Urgency))
	}
	if term := strings.TrimSpace(filter.SearchTerm); term != "" {
		like := containsPattern(term)
		q = q.Where("(LOWER(clients.name) LIKE ? OR LOWER(clients.email) LIKE ? OR LOWER(clients.phone) LIKE ?)", like, like, like)
	}

	rows := make([]ClientModel, 0)
	if err := clientOrder.page(q, window).Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.withOpportunityCounts(ctx, rows)
}

func (r *PipelineRepository) SearchClients(ctx context.Context, owner domain.PrincipalID, query string, limit int) ([]domain.Client, error) {
	like := containsPattern(query)
	rows := make([]ClientModel, 0)
	if err := r.scoped(ctx, owner, domain.EntityClient).
		Where("(LOWER(clients.name) LIKE ? OR LOWER(clients.email) LIKE ? OR LOWER(clients.phone) LIKE ?)", like, like, like).
		Order("clients.name ASC, clients.id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.withOpportunityCounts(ctx, rows)
}

func (r *PipelineRepository) ListClientsByUrgency(ctx context.Context, owner domain.PrincipalID, urgency domain.Urgency) ([]domain.Client, error) {
	rows := make([]ClientModel, 0)
	if err := r.scoped(ctx, owner, domain.EntityClient).
		Where("clients.urgency = ?", string(urgency)).
		Order("clients.created_at DESC, clients.id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.withOpportunityCounts(ctx, rows)
}

// ListUrgentClients returns HIGH urgency clients, longest untouched first.
func (r *PipelineRepository) ListUrgentClients(ctx context.Context, owner domain.PrincipalID) ([]domain.Client, error) {
	rows := make([]ClientModel, 0)
	if err := r.scoped(ctx, owner, domain.EntityClient).
		Where("clients.urgency = ?", string(domain.UrgencyHigh)).
		Order("clients.updated_at ASC, clients.id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.withOpportunityCounts(ctx, rows)
}

func (r *PipelineRepository) ClientEmailTaken(ctx context.Context, owner domain.PrincipalID, email string, excludeID int64) (bool, error) {
	var n int64
	err := r.scoped(ctx, owner, domain.EntityClient).
		Where("clients.email = ? AND clients.id <> ?", email, excludeID).
		Count(&n).Error
	return n > 0, err
}

func (r *PipelineRepository) SaveClient(ctx context.Context, value domain.Client) (domain.Client, error) {
	res := r.scoped(ctx, value.OwnerID, domain.EntityClient).
		Where("clients.id = ?", value.ID).
		Updates(map[string]any{
			"name":       value.Name,
			"email":      value.Email,
			"phone":      value.Phone,
			"urgency":    string(value.Urgency),
			"updated_at": value.UpdatedAt,
		})
	if res.Error != nil {
		return domain.Client{}, translate(res.Error, "client")
	}
	if res.RowsAffected == 0 {
		return domain.Client{}, domain.NotFound("client not found")
	}
	return r.GetClient(ctx, value.OwnerID, value.ID)
}

func (r *PipelineRepository) DeleteClient(ctx context.Context, owner domain.PrincipalID, id int64) error {
	res := r.scoped(ctx, owner, domain.EntityClient).Where("clients.id = ?", id).Delete(&ClientModel{})
	if res.Error != nil {
		return translate(res.Error, "client")
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("client not found")
	}
	return nil
}

func (r *PipelineRepository) CountOpportunitiesByClient(ctx context.Context, clientID int64) (int64, error) {
	return r.count(ctx, "opportunities", "client_id", clientID)
}

// ClientUsage returns every client of owner with its opportunity count.
func (r *PipelineRepository) ClientUsage(ctx context.Context, owner domain.PrincipalID) ([]domain.ClientUsage, error) {
	type row struct {
		Urgency          string
		OpportunityCount int64
	}
	rows := make([]row, 0)
	if err := r.scoped(ctx, owner, domain.EntityClient).
		Select("clients.urgency AS urgency, (SELECT COUNT(*) FROM opportunities o WHERE o.client_id = clients.id) AS opportunity_count").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.ClientUsage, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.ClientUsage{Urgency: domain.Urgency(row.Urgency), OpportunityCount: row.OpportunityCount})
	}
	return out, nil
}

func (r *PipelineRepository) withOpportunityCounts(ctx context.Context, rows []ClientModel) ([]domain.Client, error) {
	ids := make([]int64, 0, len(rows))
	for _, m := range rows {
		ids = append(ids, m.ID)
	}
	counts, err := r.countGrouped(ctx, "opportunities", "client_id", ids)
	if err != nil {
		return nil, err
	}
	result := make([]domain.Client, 0, len(rows))
	for _, m := range rows {
		result = append(result, toClient(m, counts[m.ID]))
	}
	return result, nil
}

func toClient(m ClientModel, opportunities int64) domain.Client {
	return domain.Client{
		ID:               m.ID,
		OwnerID:          domain.PrincipalID(m.OwnerID),
		Name:             m.Name,
		Email:            m.Email,
		Phone:            m.Phone,
		Urgency:          domain.Urgency(m.Urgency),
		OpportunityCount: opportunities,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func containsPattern(term string) string {
	return "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
}
