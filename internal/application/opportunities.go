package application

import (
	"context"
	"fmt"

	"github.com/atvirokodosprendimai/carcrm/internal/domain"
	"github.com/atvirokodosprendimai/carcrm/internal/pagination"
)

func (s *PipelineService) CreateOpportunity(ctx context.Context, principal domain.PrincipalID, in domain.OpportunityInput) (domain.Opportunity, error) {
	label, err := requireText("car_label", in.CarLabel)
	if err != nil {
		return domain.Opportunity{}, err
	}
	stage := domain.StageLead
	if in.Stage != nil {
		if err := validateStage(*in.Stage); err != nil {
			return domain.Opportunity{}, err
		}
		stage = *in.Stage
	}
	urgency := domain.UrgencyNormal
	if in.Urgency != nil {
		if err := validateUrgency(*in.Urgency); err != nil {
			return domain.Opportunity{}, err
		}
		urgency = *in.Urgency
	}

	now := s.now()
	var created domain.Opportunity
	err = s.repo.InTx(ctx, func(tx domain.PipelineRepository) error {
		if err := checkOpportunityRefs(ctx, tx, principal, &in.ClientID, in.CarModelID); err != nil {
			return err
		}
		created, err = tx.CreateOpportunity(ctx, domain.Opportunity{
			ClientID:   in.ClientID,
			CarLabel:   label,
			CarModelID: in.CarModelID,
			Stage:      stage,
			Urgency:    urgency,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		return err
	})
	if err != nil {
		return domain.Opportunity{}, s.fail(ctx, "opportunity.create", principal, err)
	}

	s.done(ctx, principal, "opportunity.create", "opportunity", created.ID, created.CarLabel)
	return created, nil
}

func (s *PipelineService) ListOpportunities(ctx context.Context, principal domain.PrincipalID, filter domain.OpportunityFilter, params pagination.Params) (pagination.Page[domain.Opportunity], error) {
	p, err := params.Normalize(pagination.DefaultLimit)
	if err != nil {
		return pagination.Page[domain.Opportunity]{}, err
	}
	if filter.Stage != nil {
		if err := validateStage(*filter.Stage); err != nil {
			return pagination.Page[domain.Opportunity]{}, err
		}
	}
	if filter.Urgency != nil {
		if err := validateUrgency(*filter.Urgency); err != nil {
			return pagination.Page[domain.Opportunity]{}, err
		}
	}
	rows, err := s.repo.ListOpportunities(ctx, principal, filter, p.Window())
	if err != nil {
		return pagination.Page[domain.Opportunity]{}, s.fail(ctx, "opportunity.list", principal, err)
	}
	return pagination.Cut(rows, p.Limit, func(o domain.Opportunity) int64 { return o.ID }), nil
}

// GetOpportunity returns the opportunity with its client, its catalog car if
// linked, and its notes newest first.
func (s *PipelineService) GetOpportunity(ctx context.Context, principal domain.PrincipalID, id int64) (domain.OpportunityDetail, error) {
	o, err := s.repo.GetOpportunity(ctx, principal, id)
	if err != nil {
		return domain.OpportunityDetail{}, err
	}
	c, err := s.repo.GetClient(ctx, principal, o.ClientID)
	if err != nil {
		return domain.OpportunityDetail{}, s.fail(ctx, "opportunity.get", principal, err)
	}
	detail := domain.OpportunityDetail{Opportunity: o, Client: c}
	if o.CarModelID != nil {
		car, err := s.repo.GetCar(ctx, *o.CarModelID)
		if err != nil {
			return domain.OpportunityDetail{}, s.fail(ctx, "opportunity.get", principal, err)
		}
		detail.Car = &car
	}
	detail.Notes, err = s.repo.ListNotes(ctx, principal, domain.NoteFilter{OpportunityID: &o.ID}, domain.Window{})
	if err != nil {
		return domain.OpportunityDetail{}, s.fail(ctx, "opportunity.get", principal, err)
	}
	return detail, nil
}

func (s *PipelineService) OpportunitiesByClient(ctx context.Context, principal domain.PrincipalID, clientID int64) ([]domain.Opportunity, error) {
	ok, err := s.repo.Owns(ctx, principal, domain.EntityClient, clientID)
	if err != nil {
		return nil, s.fail(ctx, "opportunity.by_client", principal, err)
	}
	if !ok {
		return nil, domain.NotFound("client not found")
	}
	return s.repo.ListOpportunitiesByClient(ctx, principal, clientID, false, 0)
}

func (s *PipelineService) UpdateOpportunity(ctx context.Context, principal domain.PrincipalID, id int64, changes domain.OpportunityChanges) (domain.Opportunity, error) {
	var updated domain.Opportunity
	err := s.repo.InTx(ctx, func(tx domain.PipelineRepository) error {
		current, err := tx.GetOpportunity(ctx, principal, id)
		if err != nil {
			return err
		}

		next := current
		if changes.ClientID != nil {
			next.ClientID = *changes.ClientID
		}
		if changes.CarLabel != nil {
			if next.CarLabel, err = requireText("car_label", *changes.CarLabel); err != nil {
				return err
			}
		}
		next.CarModelID = changes.CarModelID.Apply(current.CarModelID)
		if changes.Stage != nil {
			if err := validateStage(*changes.Stage); err != nil {
				return err
			}
			next.Stage = *changes.Stage
		}
		if changes.Urgency != nil {
			if err := validateUrgency(*changes.Urgency); err != nil {
				return err
			}
			next.Urgency = *changes.Urgency
		}

		var carID *int64
		if changes.CarModelID.Set {
			carID = next.CarModelID
		}
		if err := checkOpportunityRefs(ctx, tx, principal, changes.ClientID, carID); err != nil {
			return err
		}

		next.UpdatedAt = s.now()
		updated, err = tx.SaveOpportunity(ctx, principal, next)
		return err
	})
	if err != nil {
		return domain.Opportunity{}, s.fail(ctx, "opportunity.update", principal, err)
	}

	s.done(ctx, principal, "opportunity.update", "opportunity", updated.ID, string(updated.Stage))
	return updated, nil
}

// UpdateOpportunityStage moves an opportunity to stage. Any stage may follow
// any other, closed ones included.
func (s *PipelineService) UpdateOpportunityStage(ctx context.Context, principal domain.PrincipalID, id int64, stage domain.Stage) (domain.Opportunity, error) {
	return s.UpdateOpportunity(ctx, principal, id, domain.OpportunityChanges{Stage: &stage})
}

// DeleteOpportunity removes the opportunity and its notes as one unit.
func (s *PipelineService) DeleteOpportunity(ctx context.Context, principal domain.PrincipalID, id int64) error {
	var notes int64
	err := s.repo.InTx(ctx, func(tx domain.PipelineRepository) error {
		if _, err := tx.GetOpportunity(ctx, principal, id); err != nil {
			return err
		}
		var err error
		if notes, err = tx.DeleteNotesByOpportunity(ctx, id); err != nil {
			return err
		}
		return tx.DeleteOpportunity(ctx, principal, id)
	})
	if err != nil {
		return s.fail(ctx, "opportunity.delete", principal, err)
	}

	s.done(ctx, principal, "opportunity.delete", "opportunity", id, fmt.Sprintf("notes removed: %d", notes))
	return nil
}

func (s *PipelineService) OpportunityStats(ctx context.Context, principal domain.PrincipalID) (domain.OpportunityStats, error) {
	counts, err := s.repo.CountOpportunitiesByStageUrgency(ctx, principal)
	if err != nil {
		return domain.OpportunityStats{}, s.fail(ctx, "opportunity.stats", principal, err)
	}
	stats := domain.NewOpportunityStats()
	for _, c := range counts {
		stats.Add(c.Stage, c.Urgency, c.Count)
	}
	return stats, nil
}

// checkOpportunityRefs verifies the client belongs to principal and the car
// exists in the catalog. A nil reference skips its check.
func checkOpportunityRefs(ctx context.Context, tx domain.PipelineRepository, principal domain.PrincipalID, clientID, carID *int64) error {
	if clientID != nil {
		ok, err := tx.Owns(ctx, principal, domain.EntityClient, *clientID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NotFound("client not found")
		}
	}
	if carID != nil {
		if _, err := tx.GetCar(ctx, *carID); err != nil {
			return err
		}
	}
	return nil
}
