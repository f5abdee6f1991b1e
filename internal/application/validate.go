package application

import (
	"net/mail"
	"strings"

	"github.com/atvirokodosprendimai/carcrm/internal/domain"
)

const (
	minCarYear = 1900
	maxCarYear = 2100
)

func requireText(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", domain.InvalidInput("%s is required", field)
	}
	return value, nil
}

// optionalText trims value and folds an empty string into absent.
func optionalText(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizeEmail(value *string) (*string, error) {
	email := optionalText(value)
	if email == nil {
		return nil, nil
	}
	addr, err := mail.ParseAddress(*email)
	if err != nil || addr.Address != *email {
		return nil, domain.InvalidInput("invalid email address %q", *email)
	}
	return email, nil
}

func validateYear(year *int) error {
	if year != nil && (*year < minCarYear || *year > maxCarYear) {
		return domain.InvalidInput("year must be between %d and %d", minCarYear, maxCarYear)
	}
	return nil
}

func validateUrgency(u domain.Urgency) error {
	if !u.Valid() {
		return domain.InvalidInput("unknown urgency %q", string(u))
	}
	return nil
}

func validateStage(s domain.Stage) error {
	if !s.Valid() {
		return domain.InvalidInput("unknown stage %q", string(s))
	}
	return nil
}

// uniqueIDs drops duplicates while keeping first-seen order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
