package sqlstore

import (
	"context"

	"github.com/atvirokodosprendimai/carcrm/internal/domain"
)

func (r *PipelineRepository) CreateOpportunity(ctx context.Context, value domain.Opportunity) (domain.Opportunity, error) {
	m := OpportunityModel{
		ClientID:   value.ClientID,
		CarLabel:   value.CarLabel,
		CarModelID: value.CarModelID,
		Stage:      string(value.Stage),
		Urgency:    string(value.Urgency),
		CreatedAt:  value.CreatedAt,
		UpdatedAt:  value.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Opportunity{}, translate(err, "opportunity")
	}
	return toOpportunity(m, 0), nil
}

func (r *PipelineRepository) GetOpportunity(ctx context.Context, owner domain.PrincipalID, id int64) (domain.Opportunity, error) {
	var m OpportunityModel
	if err := r.scoped(ctx, owner, domain.EntityOpportunity).Where("opportunities.id = ?", id).First(&m).Error; err != nil {
		return domain.Opportunity{}, translate(err, "opportunity")
	}
	n, err := r.count(ctx, "notes", "opportunity_id", m.ID)
	if err != nil {
		return domain.Opportunity{}, err
	}
	return toOpportunity(m, n), nil
}

func (r *PipelineRepository) ListOpportunities(ctx context.Context, owner domain.PrincipalID, filter domain.OpportunityFilter, window domain.Window) ([]domain.Opportunity, error) {
	if window.Cursor != nil {
		ok, err := r.Owns(ctx, owner, domain.EntityOpportunity, *window.Cursor)
		if err != nil || !ok {
			return []domain.Opportunity{}, err
		}
	}

	q := r.scoped(ctx, owner, domain.EntityOpportunity)
	if filter.Stage != nil {
		q = q.Where("opportunities.stage = ?", string(*filter.Stage))
	}
	if filter.Urgency != nil {
		q = q.Where("opportunities.urgency = ?", string(*filter.Urgency))
	}
	if filter.ClientID != nil {
		q = q.Where("opportunities.client_id = ?", *filter.ClientID)
	}

	rows := make([]OpportunityModel, 0)
	if err := opportunityOrder.page(q, window).Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.withNoteCounts(ctx, rows)
}

// ListOpportunitiesByClient returns a client's opportunities, most recently
// updated first. A limit of zero returns all of them.
func (r *PipelineRepository) ListOpportunitiesByClient(ctx context.Context, owner domain.PrincipalID, clientID int64, openOnly bool, limit int) ([]domain.Opportunity, error) {
	q := r.scoped(ctx, owner, domain.EntityOpportunity).Where("opportunities.client_id = ?", clientID)
	if openOnly {
		closed := make([]string, 0, 2)
		for _, s := range domain.ClosedStages() {
			closed = append(closed, string(s))
		}
		q = q.Where("opportunities.stage NOT IN ?", closed)
	}
	q = q.Order("opportunities.updated_at DESC, opportunities.id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	rows := make([]OpportunityModel, 0)
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.withNoteCounts(ctx, rows)
}

func (r *PipelineRepository) SaveOpportunity(ctx context.Context, owner domain.PrincipalID, value domain.Opportunity) (domain.Opportunity, error) {
	res := r.scoped(ctx, owner, domain.EntityOpportunity).
		Where("opportunities.id = ?", value.ID).
		Updates(map[string]any{
			"client_id":    value.ClientID,
			"car_label":    value.CarLabel,
			"car_model_id": value.CarModelID,
			"stage":        string(value.Stage),
			"urgency":      string(value.Urgency),
			"updated_at":   value.UpdatedAt,
		})
	if res.Error != nil {
		return domain.Opportunity{}, translate(res.Error, "opportunity")
	}
	if res.RowsAffected == 0 {
		return domain.Opportunity{}, domain.NotFound("opportunity not found")
	}
	return r.GetOpportunity(ctx, owner, value.ID)
}

func (r *PipelineRepository) DeleteOpportunity(ctx context.Context, owner domain.PrincipalID, id int64) error {
	res := r.scoped(ctx, owner, domain.EntityOpportunity).Where("opportunities.id = ?", id).Delete(&OpportunityModel{})
	if res.Error != nil {
		return translate(res.Error, "opportunity")
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("opportunity not found")
	}
	return nil
}

func (r *PipelineRepository) CountOpportunitiesByCar(ctx context.Context, carID int64) (int64, error) {
	return r.count(ctx, "opportunities", "car_model_id", carID)
}

func (r *PipelineRepository) CountOpportunitiesByStageUrgency(ctx context.Context, owner domain.PrincipalID) ([]domain.StageUrgencyCount, error) {
	type row struct {
		Stage   string
		Urgency string
		Total   int64
	}
	rows := make([]row, 0)
	if err := r.scoped(ctx, owner, domain.EntityOpportunity).
		Select("opportunities.stage AS stage, opportunities.urgency AS urgency, COUNT(*) AS total").
		Group("opportunities.stage, opportunities.urgency").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.StageUrgencyCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.StageUrgencyCount{
			Stage:   domain.Stage(row.Stage),
			Urgency: domain.Urgency(row.Urgency),
			Count:   row.Total,
		})
	}
	return out, nil
}

func (r *PipelineRepository) withNoteCounts(ctx context.Context, rows []OpportunityModel) ([]domain.Opportunity, error) {
	ids := make([]int64, 0, len(rows))
	for _, m := range rows {
		ids = append(ids, m.ID)
	}
	counts, err := r.countGrouped(ctx, "notes", "opportunity_id", ids)
	if err != nil {
		return nil, err
	}
	result := make([]domain.Opportunity, 0, len(rows))
	for _, m := range rows {
		result = append(result, toOpportunity(m, counts[m.ID]))
	}
	return result, nil
}

func toOpportunity(m OpportunityModel, notes int64) domain.Opportunity {
	return domain.Opportunity{
		ID:         m.ID,
		ClientID:   m.ClientID,
		CarLabel:   m.CarLabel,
		CarModelID: m.CarModelID,
		Stage:      domain.Stage(m.Stage),
		Urgency:    domain.Urgency(m.Urgency),
		NoteCount:  notes,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
