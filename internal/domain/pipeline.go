package domain

import (
	"encoding/json"
	"strings"
)

type Urgency string

const (
	UrgencyLow    Urgency = "LOW"
	UrgencyNormal Urgency = "NORMAL"
	UrgencyHigh   Urgency = "HIGH"
)

// Urgencies lists every urgency from lowest to highest priority.
func Urgencies() []Urgency {
	return []Urgency{UrgencyLow, UrgencyNormal, UrgencyHigh}
}

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyNormal, UrgencyHigh:
		return true
	}
	return false
}

// Rank orders urgencies for sorting; higher is more urgent.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyLow:
		return 1
	case UrgencyNormal:
		return 2
	case UrgencyHigh:
		return 3
	}
	return 0
}

func (u *Urgency) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseUrgency(raw)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

func ParseUrgency(raw string) (Urgency, error) {
	u := Urgency(strings.ToUpper(strings.TrimSpace(raw)))
	if !u.Valid() {
		return "", InvalidInput("unknown urgency %q", raw)
	}
	return u, nil
}

// Stage is a position in the sales funnel. CLOSED_WON and CLOSED_LOST are
// terminal by convention only; any stage may be set to any other.
type Stage string

const (
	StageLead        Stage = "LEAD"
	StageContacted   Stage = "CONTACTED"
	StageQualified   Stage = "QUALIFIED"
	StageProposal    Stage = "PROPOSAL"
	StageNegotiation Stage = "NEGOTIATION"
	StageClosedWon   Stage = "CLOSED_WON"
	StageClosedLost  Stage = "CLOSED_LOST"
)

// Stages lists the funnel in order.
func Stages() []Stage {
	return []Stage{StageLead, StageContacted, StageQualified, StageProposal, StageNegotiation, StageClosedWon, StageClosedLost}
}

func (s Stage) Valid() bool {
	switch s {
	case StageLead, StageContacted, StageQualified, StageProposal, StageNegotiation, StageClosedWon, StageClosedLost:
		return true
	}
	return false
}

func (s Stage) Closed() bool {
	return s == StageClosedWon || s == StageClosedLost
}

func (s *Stage) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStage(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func ParseStage(raw string) (Stage, error) {
	s := Stage(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", InvalidInput("unknown stage %q", raw)
	}
	return s, nil
}

// ClosedStages returns the terminal stages, used to exclude settled deals.
func ClosedStages() []Stage {
	return []Stage{StageClosedWon, StageClosedLost}
}

type ClientStats struct {
	Total                int64             `json:"total"`
	ByUrgency            map[Urgency]int64 `json:"by_urgency"`
	WithOpportunities    int64             `json:"with_opportunities"`
	WithoutOpportunities int64             `json:"without_opportunities"`
	TotalOpportunities   int64             `json:"total_opportunities"`
}

func NewClientStats() ClientStats {
	return ClientStats{ByUrgency: urgencyBuckets()}
}

// Add counts one Client with the given number of linked Opportunities.
func (s *ClientStats) Add(urgency Urgency, opportunities int64) {
	s.Total++
	s.ByUrgency[urgency]++
	s.TotalOpportunities += opportunities
	if opportunities > 0 {
		s.WithOpportunities++
	} else {
		s.WithoutOpportunities++
	}
}

type OpportunityStats struct {
	Total     int64             `json:"total"`
	ByStage   map[Stage]int64   `json:"by_stage"`
	ByUrgency map[Urgency]int64 `json:"by_urgency"`
}

func NewOpportunityStats() OpportunityStats {
	byStage := make(map[Stage]int64, len(Stages()))
	for _, s := range Stages() {
		byStage[s] = 0
	}
	return OpportunityStats{ByStage: byStage, ByUrgency: urgencyBuckets()}
}

func (s *OpportunityStats) Add(stage Stage, urgency Urgency, n int64) {
	s.Total += n
	s.ByStage[stage] += n
	s.ByUrgency[urgency] += n
}

// StageUrgencyCount is one bucket of a grouped opportunity count.
type StageUrgencyCount struct {
	Stage   Stage
	Urgency Urgency
	Count   int64
}

// ClientUsage is a Client's urgency with its linked opportunity count.
type ClientUsage struct {
	Urgency          Urgency
	OpportunityCount int64
}

type NoteStats struct {
	Total     int64 `json:"total"`
	Today     int64 `json:"today"`
	ThisWeek  int64 `json:"this_week"`
	ThisMonth int64 `json:"this_month"`
}

type BrandCount struct {
	Brand string `json:"brand"`
	Count int64  `json:"count"`
}

type CarStats struct {
	Total    int64        `json:"total"`
	ByBrand  []BrandCount `json:"by_brand"`
	MostUsed []Car        `json:"most_used"`
}

func urgencyBuckets() map[Urgency]int64 {
	out := make(map[Urgency]int64, len(Urgencies()))
	for _, u := range Urgencies() {
		out[u] = 0
	}
	return out
}

func (s Stage) String() string   { return string(s) }
func (u Urgency) String() string { return string(u) }
