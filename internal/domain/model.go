package domain

import "time"

type PrincipalID int64

type Principal struct {
	ID        PrincipalID `json:"id"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type APIToken struct {
	ID          int64       `json:"id"`
	PrincipalID PrincipalID `json:"principal_id"`
	Name        string      `json:"name"`
	TokenHash   string      `json:"-"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

type Client struct {
	ID               int64       `json:"id"`
	OwnerID          PrincipalID `json:"owner_id"`
	Name             string      `json:"name"`
	Email            *string     `json:"email"`
	Phone            *string     `json:"phone"`
	Urgency          Urgency     `json:"urgency"`
	OpportunityCount int64       `json:"opportunity_count"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// ClientDetail is a Client together with its Opportunities, newest activity first.
type ClientDetail struct {
	Client
	Opportunities []Opportunity `json:"opportunities"`
}

// UrgentClient is a HIGH urgency Client with a preview of its open Opportunities.
type UrgentClient struct {
	Client
	OpenOpportunities []Opportunity `json:"open_opportunities"`
}

type Opportunity struct {
	ID         int64     `json:"id"`
	ClientID   int64     `json:"client_id"`
	CarLabel   string    `json:"car_label"`
	CarModelID *int64    `json:"car_model_id"`
	Stage      Stage     `json:"stage"`
	Urgency    Urgency   `json:"urgency"`
	NoteCount  int64     `json:"note_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type OpportunityDetail struct {
	Opportunity
	Client Client `json:"client"`
	Car    *Car   `json:"car,omitempty"`
	Notes  []Note `json:"notes"`
}

type Note struct {
	ID            int64     `json:"id"`
	OpportunityID int64     `json:"opportunity_id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Car struct {
	ID               int64     `json:"id"`
	Brand            string    `json:"brand"`
	Model            string    `json:"model"`
	Version          *string   `json:"version"`
	Year             *int      `json:"year"`
	OpportunityCount int64     `json:"opportunity_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CarSpec is the identifying tuple of a catalog entry. Two cars may not share one.
type CarSpec struct {
	Brand   string
	Model   string
	Version *string
	Year    *int
}

func (c Car) Spec() CarSpec {
	return CarSpec{Brand: c.Brand, Model: c.Model, Version: c.Version, Year: c.Year}
}

type AuditLog struct {
	ID         int64        `json:"id"`
	ActorID    *PrincipalID `json:"actor_id"`
	Action     string       `json:"action"`
	TargetType string       `json:"target_type"`
	TargetID   *int64       `json:"target_id"`
	Metadata   string       `json:"metadata"`
	CreatedAt  time.Time    `json:"created_at"`
}

// EntityKind names an ownership-scoped entity for the tenancy guard.
type EntityKind string

const (
	EntityClient      EntityKind = "client"
	EntityOpportunity EntityKind = "opportunity"
	EntityNote        EntityKind = "note"
)

type ClientFilter struct {
	Urgency    *Urgency
	SearchTerm string
}

type OpportunityFilter struct {
	Stage    *Stage
	Urgency  *Urgency
	ClientID *int64
}

type NoteFilter struct {
	OpportunityID *int64
	SearchTerm    string
}

type CarFilter struct {
	Brand      string
	SearchTerm string
}

// Window asks a store for up to Fetch rows starting at the Cursor row.
type Window struct {
	Fetch  int
	Cursor *int64
}
