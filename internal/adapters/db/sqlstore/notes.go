package sqlstore

import (
	"context"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/carcrm/internal/domain"
)

func (r *PipelineRepository) CreateNote(ctx context.Context, value domain.Note) (domain.Note, error) {
	m := NoteModel{
		OpportunityID: value.OpportunityID,
		Title:         value.Title,
		Content:       value.Content,
		CreatedAt:     value.CreatedAt,
		UpdatedAt:     value.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Note{}, translate(err, "note")
	}
	return toNote(m), nil
}

func (r *PipelineRepository) GetNote(ctx context.Context, owner domain.PrincipalID, id int64) (domain.Note, error) {
	var m NoteModel
	if err := r.scoped(ctx, owner, domain.EntityNote).Where("notes.id = ?", id).First(&m).Error; err != nil {
		return domain.Note{}, translate(err, "note")
	}
	return toNote(m), nil
}

func (r *PipelineRepository) ListNotes(ctx context.Context, owner domain.PrincipalID, filter domain.NoteFilter, window domain.Window) ([]domain.Note, error) {
	if window.Cursor != nil {
		ok, err := r.Owns(ctx, owner, domain.EntityNote, *window.Cursor)
		if err != nil || !ok {
			return []domain.Note{}, err
		}
	}

	q := r.scoped(ctx, owner, domain.EntityNote)
	if filter.OpportunityID != nil {
		q = q.Where("notes.opportunity_id = ?", *filter.OpportunityID)
	}
	if term := strings.TrimSpace(filter.SearchTerm); term != "" {
		like := containsPattern(term)
		q = q.Where("(LOWER(notes.title) LIKE ? OR LOWER(notes.content) LIKE ?)", like, like)
	}

	rows := make([]NoteModel, 0)
	if err := noteOrder.page(q, window).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toNotes(rows), nil
}

func (r *PipelineRepository) SearchNotes(ctx context.Context, owner domain.PrincipalID, query string, limit int) ([]domain.Note, error) {
	like := containsPattern(query)
	rows := make([]NoteModel, 0)
	if err := r.scoped(ctx, owner, domain.EntityNote).
		Where("(LOWER(notes.title) LIKE ? OR LOWER(notes.content) LIKE ?)", like, like).
		Order("notes.updated_at DESC, notes.id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toNotes(rows), nil
}

func (r *PipelineRepository) SaveNote(ctx context.Context, owner domain.PrincipalID, value domain.Note) (domain.Note, error) {
	res := r.scoped(ctx, owner, domain.EntityNote).
		Where("notes.id = ?", value.ID).
		Updates(map[string]any{
			"title":      value.Title,
			"content":    value.Content,
			"updated_at": value.UpdatedAt,
		})
	if res.Error != nil {
		return domain.Note{}, translate(res.Error, "note")
	}
	if res.RowsAffected == 0 {
		return domain.Note{}, domain.NotFound("note not found")
	}
	return r.GetNote(ctx, owner, value.ID)
}

// DeleteNotes removes the notes among ids that owner can see and reports how
// many went.
func (r *PipelineRepository) DeleteNotes(ctx context.Context, owner domain.PrincipalID, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.scoped(ctx, owner, domain.EntityNote).Where("notes.id IN ?", ids).Delete(&NoteModel{})
	if res.Error != nil {
		return 0, translate(res.Error, "note")
	}
	return res.RowsAffected, nil
}

func (r *PipelineRepository) DeleteNotesByOpportunity(ctx context.Context, opportunityID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("opportunity_id = ?", opportunityID).Delete(&NoteModel{})
	if res.Error != nil {
		return 0, translate(res.Error, "note")
	}
	return res.RowsAffected, nil
}

// CountNotes counts owner's notes, only those created at or after since when
// it is given.
func (r *PipelineRepository) CountNotes(ctx context.Context, owner domain.PrincipalID, since *time.Time) (int64, error) {
	q := r.scoped(ctx, owner, domain.EntityNote)
	if since != nil {
		q = q.Where("notes.created_at >= ?", since.UTC())
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

func toNotes(rows []NoteModel) []domain.Note {
	result := make([]domain.Note, 0, len(rows))
	for _, m := range rows {
		result = append(result, toNote(m))
	}
	return result
}

func toNote(m NoteModel) domain.Note {
	return domain.Note{
		ID:            m.ID,
		OpportunityID: m.OpportunityID,
		Title:         m.Title,
		Content:       m.Content,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
