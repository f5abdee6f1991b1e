package domain

import (
	"context"
	"time"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// PipelineRepository is the relational store. Methods taking an owner apply
// the ownership scope of the entity they touch; rows outside it behave as if
// they did not exist.
type PipelineRepository interface {
	// InTx runs fn against a repository bound to one transaction. Any error
	// returned by fn rolls the whole unit back.
	InTx(ctx context.Context, fn func(repo PipelineRepository) error) error

	CreatePrincipal(ctx context.Context, value Principal) (Principal, error)
	GetPrincipalByID(ctx context.Context, id PrincipalID) (Principal, error)
	GetPrincipalByEmail(ctx context.Context, email string) (Principal, error)
	CreateAPIToken(ctx context.Context, value APIToken) (APIToken, error)
	GetAPITokenByTokenHash(ctx context.Context, tokenHash string) (APIToken, error)

	Owns(ctx context.Context, owner PrincipalID, kind EntityKind, id int64) (bool, error)
	CountOwned(ctx context.Context, owner PrincipalID, kind EntityKind, ids []int64) (int64, error)

	CreateClient(ctx context.Context, value Client) (Client, error)
	GetClient(ctx context.Context, owner PrincipalID, id int64) (Client, error)
	ListClients(ctx context.Context, owner PrincipalID, filter ClientFilter, window Window) ([]Client, error)
	SearchClients(ctx context.Context, owner PrincipalID, query string, limit int) ([]Client, error)
	ListClientsByUrgency(ctx context.Context, owner PrincipalID, urgency Urgency) ([]Client, error)
	ListUrgentClients(ctx context.Context, owner PrincipalID) ([]Client, error)
	ClientEmailTaken(ctx context.Context, owner PrincipalID, email string, excludeID int64) (bool, error)
	SaveClient(ctx context.Context, value Client) (Client, error)
	DeleteClient(ctx context.Context, owner PrincipalID, id int64) error
	ClientUsage(ctx context.Context, owner PrincipalID) ([]ClientUsage, error)

	CreateOpportunity(ctx context.Context, value Opportunity) (Opportunity, error)
	GetOpportunity(ctx context.Context, owner PrincipalID, id int64) (Opportunity, error)
	ListOpportunities(ctx context.Context, owner PrincipalID, filter OpportunityFilter, window Window) ([]Opportunity, error)
	ListOpportunitiesByClient(ctx context.Context, owner PrincipalID, clientID int64, openOnly bool, limit int) ([]Opportunity, error)
	SaveOpportunity(ctx context.Context, owner PrincipalID, value Opportunity) (Opportunity, error)
	DeleteOpportunity(ctx context.Context, owner PrincipalID, id int64) error
	CountOpportunitiesByClient(ctx context.Context, clientID int64) (int64, error)
	CountOpportunitiesByCar(ctx context.Context, carID int64) (int64, error)
	CountOpportunitiesByStageUrgency(ctx context.Context, owner PrincipalID) ([]StageUrgencyCount, error)

	CreateNote(ctx context.Context, value Note) (Note, error)
	GetNote(ctx context.Context, owner PrincipalID, id int64) (Note, error)
	ListNotes(ctx context.Context, owner PrincipalID, filter NoteFilter, window Window) ([]Note, error)
	SearchNotes(ctx context.Context, owner PrincipalID, query string, limit int) ([]Note, error)
	SaveNote(ctx context.Context, owner PrincipalID, value Note) (Note, error)
	DeleteNotes(ctx context.Context, owner PrincipalID, ids []int64) (int64, error)
	DeleteNotesByOpportunity(ctx context.Context, opportunityID int64) (int64, error)
	CountNotes(ctx context.Context, owner PrincipalID, since *time.Time) (int64, error)

	CreateCar(ctx context.Context, value Car) (Car, error)
	GetCar(ctx context.Context, id int64) (Car, error)
	ListCars(ctx context.Context, filter CarFilter, window Window) ([]Car, error)
	ListCarsByBrand(ctx context.Context, brand string) ([]Car, error)
	ListModelsByBrand(ctx context.Context, brand string) ([]Car, error)
	SearchCars(ctx context.Context, query string, limit int) ([]Car, error)
	ListBrands(ctx context.Context) ([]string, error)
	CarSpecTaken(ctx context.Context, spec CarSpec, excludeID int64) (bool, error)
	SaveCar(ctx context.Context, value Car) (Car, error)
	DeleteCar(ctx context.Context, id int64) error
	CountCars(ctx context.Context) (int64, error)
	TopBrands(ctx context.Context, limit int) ([]BrandCount, error)
	MostUsedCars(ctx context.Context, limit int) ([]Car, error)

	CreateAuditLog(ctx context.Context, value AuditLog) error
	ListAuditLogs(ctx context.Context, actor PrincipalID, limit int) ([]AuditLog, error)
}

// CatalogCache holds the distinct brand list of the shared car catalog.
// A miss is reported as ok == false, not as an error.
type CatalogCache interface {
	Brands(ctx context.Context) (brands []string, ok bool, err error)
	StoreBrands(ctx context.Context, brands []string) error
	Invalidate(ctx context.Context) error
}

type NopCache struct{}

func (NopCache) Brands(context.Context) ([]string, bool, error) { return nil, false, nil }
func (NopCache) StoreBrands(context.Context, []string) error    { return nil }
func (NopCache) Invalidate(context.Context) error               { return nil }
