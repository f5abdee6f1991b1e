package application

import (
	"context"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/carcrm/internal/domain"
	"github.com/atvirokodosprendimai/carcrm/internal/pagination"
)

const noteListLimit = 20

func (s *PipelineService) CreateNote(ctx context.Context, principal domain.PrincipalID, in domain.NoteInput) (domain.Note, error) {
	title, err := requireText("title", in.Title)
	if err != nil {
		return domain.Note{}, err
	}
	content, err := requireText("content", in.Content)
	if err != nil {
		return domain.Note{}, err
	}

	now := s.now()
	var created domain.Note
	err = s.repo.InTx(ctx, func(tx domain.PipelineRepository) error {
		ok, err := tx.Owns(ctx, principal, domain.EntityOpportunity, in.OpportunityID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NotFound("opportunity not found")
		}
		created, err = tx.CreateNote(ctx, domain.Note{
			OpportunityID: in.OpportunityID,
			Title:         title,
			Content:       content,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		return err
	})
	if err != nil {
		return domain.Note{}, s.fail(ctx, "note.create", principal, err)
	}

	s.done(ctx, principal, "note.create", "note", created.ID, created.Title)
	return created, nil
}

func (s *PipelineService) GetNote(ctx context.Context, principal domain.PrincipalID, id int64) (domain.Note, error) {
	return s.repo.GetNote(ctx, principal, id)
}

// NotesByOpportunity pages through one opportunity's notes. An opportunity
// the principal cannot see is reported as not found, not as an empty page.
func (s *PipelineService) NotesByOpportunity(ctx context.Context, principal domain.PrincipalID, opportunityID int64, params pagination.Params) (pagination.Page[domain.Note], error) {
	ok, err := s.repo.Owns(ctx, principal, domain.EntityOpportunity, opportunityID)
	if err != nil {
		return pagination.Page[domain.Note]{}, s.fail(ctx, "note.by_opportunity", principal, err)
	}
	if !ok {
		return pagination.Page[domain.Note]{}, domain.NotFound("opportunity not found")
	}
	return s.ListNotes(ctx, principal, domain.NoteFilter{OpportunityID: &opportunityID}, params)
}

func (s *PipelineService) ListNotes(ctx context.Context, principal domain.PrincipalID, filter domain.NoteFilter, params pagination.Params) (pagination.Page[domain.Note], error) {
	p, err := params.Normalize(noteListLimit)
	if err != nil {
		return pagination.Page[domain.Note]{}, err
	}
	rows, err := s.repo.ListNotes(ctx, principal, filter, p.Window())
	if err != nil {
		return pagination.Page[domain.Note]{}, s.fail(ctx, "note.list", principal, err)
	}
	return pagination.Cut(rows, p.Limit, func(n domain.Note) int64 { return n.ID }), nil
}

func (s *PipelineService) SearchNotes(ctx context.Context, principal domain.PrincipalID, query string, limit int) ([]domain.Note, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.InvalidInput("query is required")
	}
	n, err := pagination.Bounded(limit, 20, 50)
	if err != nil {
		return nil, err
	}
	return s.repo.SearchNotes(ctx, principal, query, n)
}

func (s *PipelineService) UpdateNote(ctx context.Context, principal domain.PrincipalID, id int64, changes domain.NoteChanges) (domain.Note, error) {
	var updated domain.Note
	err := s.repo.InTx(ctx, func(tx domain.PipelineRepository) error {
		next, err := tx.GetNote(ctx, principal, id)
		if err != nil {
			return err
		}
		if changes.Title != nil {
			if next.Title, err = requireText("title", *changes.Title); err != nil {
				return err
			}
		}
		if changes.Content != nil {
			if next.Content, err = requireText("content", *changes.Content); err != nil {
				return err
			}
		}
		next.UpdatedAt = s.now()
		updated, err = tx.SaveNote(ctx, principal, next)
		return err
	})
	if err != nil {
		return domain.Note{}, s.fail(ctx, "note.update", principal, err)
	}

	s.done(ctx, principal, "note.update", "note", updated.ID, updated.Title)
	return updated, nil
}

func (s *PipelineService) DeleteNote(ctx context.Context, principal domain.PrincipalID, id int64) error {
	n, err := s.repo.DeleteNotes(ctx, principal, []int64{id})
	if err != nil {
		return s.fail(ctx, "note.delete", principal, err)
	}
	if n == 0 {
		return domain.NotFound("note not found")
	}

	s.done(ctx, principal, "note.delete", "note", id, "")
	return nil
}

// DeleteNotes removes every note in ids or none of them. If any id is not the
// principal's, the whole request is refused.
func (s *PipelineService) DeleteNotes(ctx context.Context, principal domain.PrincipalID, ids []int64) (int64, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, domain.InvalidInput("ids are required")
	}

	var deleted int64
	err := s.repo.InTx(ctx, func(tx domain.PipelineRepository) error {
		owned, err := tx.CountOwned(ctx, principal, domain.EntityNote, ids)
		if err != nil {
			return err
		}
		if owned != int64(len(ids)) {
			return domain.Forbidden("some notes do not exist or do not belong to you")
		}
		deleted, err = tx.DeleteNotes(ctx, principal, ids)
		return err
	})
	if err != nil {
		return 0, s.fail(ctx, "note.delete_many", principal, err)
	}

	for _, id := range ids {
		s.done(ctx, principal, "note.delete", "note", id, "bulk")
	}
	return deleted, nil
}

// NoteStats counts notes created today, in the last seven days and in the
// current month, with day boundaries taken in the service location.
func (s *PipelineService) NoteStats(ctx context.Context, principal domain.PrincipalID) (domain.NoteStats, error) {
	now := s.clock.Now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	week := today.AddDate(0, 0, -7)
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)

	var stats domain.NoteStats
	for _, c := range []struct {
		since *time.Time
		out   *int64
	}{
		{nil, &stats.Total},
		{&today, &stats.Today},
		{&week, &stats.ThisWeek},
		{&month, &stats.ThisMonth},
	} {
		n, err := s.repo.CountNotes(ctx, principal, c.since)
		if err != nil {
			return domain.NoteStats{}, s.fail(ctx, "note.stats", principal, err)
		}
		*c.out = n
	}
	return stats, nil
}
