package application

import (
	"context"
	"strings"

	"github.com/atvirokodosprendimai/carcrm/internal/domain"
	"github.com/atvirokodosprendimai/carcrm/internal/pagination"
)

const urgentPreview = 3

func (s *PipelineService) CreateClient(ctx context.Context, principal domain.PrincipalID, in domain.ClientInput) (domain.Client, error) {
	name, err := requireText("name", in.Name)
	if err != nil {
		return domain.Client{}, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return domain.Client{}, err
	}
	urgency := domain.UrgencyNormal
	if in.Urgency != nil {
		if err := validateUrgency(*in.Urgency); err != nil {
			return domain.Client{}, err
		}
		urgency = *in.Urgency
	}

	now := s.now()
	var created domain.Client
	err = s.repo.InTx(ctx, func(tx domain.PipelineRepository) error {
		if err := checkClientEmail(ctx, tx, principal, email, 0); err != nil {
			return err
		}
		created, err = tx.CreateClient(ctx, domain.Client{
			OwnerID:   principal,
			Name:      name,
			Email:     email,
			Phone:     optionalText(in.Phone),
			Urgency:   urgency,
			CreatedAt: now,
			UpdatedAt: now,
		})
		return err
	})
	if err != nil {
		return domain.Client{}, s.fail(ctx, "client.create", principal, err)
	}

	s.done(ctx, principal, "client.create", "client", created.ID, created.Name)
	return created, nil
}

func (s *PipelineService) ListClients(ctx context.Context, principal domain.PrincipalID, filter domain.ClientFilter, params pagination.Params) (pagination.Page[domain.Client], error) {
	p, err := params.Normalize(pagination.DefaultLimit)
	if err != nil {
		return pagination.Page[domain.Client]{}, err
	}
	if filter.Urgency != nil {
		if err := validateUrgency(*filter.Urgency); err != nil {
			return pagination.Page[domain.Client]{}, err
		}
	}
	rows, err := s.repo.ListClients(ctx, principal, filter, p.Window())
	if err != nil {
		return pagination.Page[domain.Client]{}, s.fail(ctx, "client.list", principal, err)
	}
	return pagination.Cut(rows, p.Limit, clientID), nil
}

// GetClient returns the client with its opportunities, most recently updated first.
func (s *PipelineService) GetClient(ctx context.Context, principal domain.PrincipalID, id int64) (domain.ClientDetail, error) {
	c, err := s.repo.GetClient(ctx, principal, id)
	if err != nil {
		return domain.ClientDetail{}, err
	}
	opps, err := s.repo.ListOpportunitiesByClient(ctx, principal, id, false, 0)
	if err != nil {
		return domain.ClientDetail{}, s.fail(ctx, "client.get", principal, err)
	}
	return domain.ClientDetail{Client: c, Opportunities: opps}, nil
}

func (s *PipelineService) ClientsByUrgency(ctx context.Context, principal domain.PrincipalID, urgency domain.Urgency) ([]domain.Client, error) {
	if err := validateUrgency(urgency); err != nil {
		return nil, err
	}
	return s.repo.ListClientsByUrgency(ctx, principal, urgency)
}

// UrgentClients lists HIGH urgency clients, longest untouched first, each
// with a preview of its open opportunities.
func (s *PipelineService) UrgentClients(ctx context.Context, principal domain.PrincipalID) ([]domain.UrgentClient, error) {
	clients, err := s.repo.ListUrgentClients(ctx, principal)
	if err != nil {
		return nil, s.fail(ctx, "client.urgent", principal, err)
	}
	out := make([]domain.UrgentClient, 0, len(clients))
	for _, c := range clients {
		open, err := s.repo.ListOpportunitiesByClient(ctx, principal, c.ID, true, urgentPreview)
		if err != nil {
			return nil, s.fail(ctx, "client.urgent", principal, err)
		}
		out = append(out, domain.UrgentClient{Client: c, OpenOpportunities: open})
	}
	return out, nil
}

func (s *PipelineService) SearchClients(ctx context.Context, principal domain.PrincipalID, query string, limit int) ([]domain.Client, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.InvalidInput("query is required")
	}
	n, err := pagination.Bounded(limit, 10, 20)
	if err != nil {
		return nil, err
	}
	return s.repo.SearchClients(ctx, principal, query, n)
}

func (s *PipelineService) UpdateClient(ctx context.Context, principal domain.PrincipalID, id int64, changes domain.ClientChanges) (domain.Client, error) {
	var updated domain.Client
	err := s.repo.InTx(ctx, func(tx domain.PipelineRepository) error {
		current, err := tx.GetClient(ctx, principal, id)
		if err != nil {
			return err
		}

		next := current
		if changes.Name != nil {
			if next.Name, err = requireText("name", *changes.Name); err != nil {
				return err
			}
		}
		if changes.Email.Set {
			if next.Email, err = normalizeEmail(changes.Email.Value); err != nil {
				return err
			}
		}
		if changes.Phone.Set {
			next.Phone = optionalText(changes.Phone.Value)
		}
		if changes.Urgency != nil {
			if err := validateUrgency(*changes.Urgency); err != nil {
				return err
			}
			next.Urgency = *changes.Urgency
		}
		if err := checkClientEmail(ctx, tx, principal, next.Email, id); err != nil {
			return err
		}

		next.UpdatedAt = s.now()
		updated, err = tx.SaveClient(ctx, next)
		return err
	})
	if err != nil {
		return domain.Client{}, s.fail(ctx, "client.update", principal, err)
	}

	s.done(ctx, principal, "client.update", "client", updated.ID, updated.Name)
	return updated, nil
}

func (s *PipelineService) UpdateClientUrgency(ctx context.Context, principal domain.PrincipalID, id int64, urgency domain.Urgency) (domain.Client, error) {
	return s.UpdateClient(ctx, principal, id, domain.ClientChanges{Urgency: &urgency})
}

func (s *PipelineService) DeleteClient(ctx context.Context, principal domain.PrincipalID, id int64) error {
	err := s.repo.InTx(ctx, func(tx domain.PipelineRepository) error {
		if _, err := tx.GetClient(ctx, principal, id); err != nil {
			return err
		}
		n, err := tx.CountOpportunitiesByClient(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.Conflict("cannot delete client: %d opportunities linked", n)
		}
		return tx.DeleteClient(ctx, principal, id)
	})
	if err != nil {
		return s.fail(ctx, "client.delete", principal, err)
	}

	s.done(ctx, principal, "client.delete", "client", id, "")
	return nil
}

func (s *PipelineService) ClientStats(ctx context.Context, principal domain.PrincipalID) (domain.ClientStats, error) {
	usage, err := s.repo.ClientUsage(ctx, principal)
	if err != nil {
		return domain.ClientStats{}, s.fail(ctx, "client.stats", principal, err)
	}
	stats := domain.NewClientStats()
	for _, u := range usage {
		stats.Add(u.Urgency, u.OpportunityCount)
	}
	return stats, nil
}

// checkClientEmail rejects email when another of the principal's clients
// already uses it. The match is exact and case-sensitive.
func checkClientEmail(ctx context.Context, tx domain.PipelineRepository, principal domain.PrincipalID, email *string, excludeID int64) error {
	if email == nil {
		return nil
	}
	taken, err := tx.ClientEmailTaken(ctx, principal, *email, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return domain.Conflict("a client with email %s already exists", *email)
	}
	return nil
}

func clientID(c domain.Client) int64 { return c.ID }
