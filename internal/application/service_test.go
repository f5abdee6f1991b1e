package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atvirokodosprendimai/carcrm/internal/domain"
	"github.com/atvirokodosprendimai/carcrm/internal/pagination"
	"github.com/atvirokodosprendimai/carcrm/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc   *PipelineService
	clock *testutil.StubClock
	alice domain.PrincipalID
	bob   domain.PrincipalID
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	clock := testutil.FixedClock()
	opts = append([]Option{WithClock(clock)}, opts...)
	svc := NewPipelineService(testutil.NewTestRepository(t), opts...)

	ctx := context.Background()
	alice, err := svc.CreatePrincipal(ctx, "alice@example.com", "Alice")
	require.NoError(t, err)
	bob, err := svc.CreatePrincipal(ctx, "bob@example.com", "Bob")
	require.NoError(t, err)

	return fixture{svc: svc, clock: clock, alice: alice.ID, bob: bob.ID}
}

func ptr[T any](v T) *T { return &v }

func (f fixture) client(t *testing.T, owner domain.PrincipalID, name string) domain.Client {
	t.Helper()
	c, err := f.svc.CreateClient(context.Background(), owner, domain.ClientInput{Name: name})
	require.NoError(t, err)
	return c
}

func (f fixture) opportunity(t *testing.T, owner domain.PrincipalID, clientID int64) domain.Opportunity {
	t.Helper()
	o, err := f.svc.CreateOpportunity(context.Background(), owner, domain.OpportunityInput{ClientID: clientID, CarLabel: "Ford Ka SE"})
	require.NoError(t, err)
	return o
}

func TestClientEmailIsUniquePerOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	email := ptr("buyer@example.com")

	_, err := f.svc.CreateClient(ctx, f.alice, domain.ClientInput{Name: "First", Email: email})
	require.NoError(t, err)

	_, err = f.svc.CreateClient(ctx, f.alice, domain.ClientInput{Name: "Second", Email: email})
	require.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.svc.CreateClient(ctx, f.bob, domain.ClientInput{Name: "Second", Email: email})
	require.NoError(t, err)

	// the match is case-sensitive
	_, err = f.svc.CreateClient(ctx, f.alice, domain.ClientInput{Name: "Third", Email: ptr("Buyer@example.com")})
	require.NoError(t, err)
}

func TestUpdateClientEmailConflictExcludesItself(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a, err := f.svc.CreateClient(ctx, f.alice, domain.ClientInput{Name: "A", Email: ptr("a@example.com")})
	require.NoError(t, err)
	b, err := f.svc.CreateClient(ctx, f.alice, domain.ClientInput{Name: "B", Email: ptr("b@example.com")})
	require.NoError(t, err)

	updated, err := f.svc.UpdateClient(ctx, f.alice, a.ID, domain.ClientChanges{Name: ptr("A2"), Email: domain.Value("a@example.com")})
	require.NoError(t, err)
	assert.Equal(t, "A2", updated.Name)

	_, err = f.svc.UpdateClient(ctx, f.alice, b.ID, domain.ClientChanges{Email: domain.Value("a@example.com")})
	assert.ErrorIs(t, err, domain.ErrConflict)

	cleared, err := f.svc.UpdateClient(ctx, f.alice, b.ID, domain.ClientChanges{Email: domain.Null[string]()})
	require.NoError(t, err)
	assert.Nil(t, cleared.Email)
}

func TestClientInputValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.CreateClient(ctx, f.alice, domain.ClientInput{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.CreateClient(ctx, f.alice, domain.ClientInput{Name: "X", Email: ptr("not-an-email")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.CreateClient(ctx, f.alice, domain.ClientInput{Name: "X", Urgency: ptr(domain.Urgency("URGENT"))})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	c, err := f.svc.CreateClient(ctx, f.alice, domain.ClientInput{Name: "X", Email: ptr("")})
	require.NoError(t, err)
	assert.Nil(t, c.Email)
	assert.Equal(t, domain.UrgencyNormal, c.Urgency)
}

func TestDeleteClientReportsLinkedOpportunities(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.client(t, f.alice, "X")
	o1 := f.opportunity(t, f.alice, c.ID)
	o2 := f.opportunity(t, f.alice, c.ID)

	err := f.svc.DeleteClient(ctx, f.alice, c.ID)
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, "cannot delete client: 2 opportunities linked", domain.Message(err))

	require.NoError(t, f.svc.DeleteOpportunity(ctx, f.alice, o1.ID))
	err = f.svc.DeleteClient(ctx, f.alice, c.ID)
	assert.Equal(t, "cannot delete client: 1 opportunities linked", domain.Message(err))

	require.NoError(t, f.svc.DeleteOpportunity(ctx, f.alice, o2.ID))
	require.NoError(t, f.svc.DeleteClient(ctx, f.alice, c.ID))

	_, err = f.svc.GetClient(ctx, f.alice, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOtherPrincipalsSeeNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.client(t, f.alice, "X")
	o := f.opportunity(t, f.alice, c.ID)
	n, err := f.svc.CreateNote(ctx, f.alice, domain.NoteInput{OpportunityID: o.ID, Title: "t", Content: "c"})
	require.NoError(t, err)

	_, err = f.svc.GetClient(ctx, f.bob, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.GetOpportunity(ctx, f.bob, o.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.GetNote(ctx, f.bob, n.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.UpdateClient(ctx, f.bob, c.ID, domain.ClientChanges{Name: ptr("stolen")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteClient(ctx, f.bob, c.ID), domain.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteOpportunity(ctx, f.bob, o.ID), domain.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteNote(ctx, f.bob, n.ID), domain.ErrNotFound)
	_, err = f.svc.OpportunitiesByClient(ctx, f.bob, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.CreateNote(ctx, f.bob, domain.NoteInput{OpportunityID: o.ID, Title: "t", Content: "c"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	page, err := f.svc.ListClients(ctx, f.bob, domain.ClientFilter{}, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestOpportunityReferences(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mine := f.client(t, f.alice, "mine")
	theirs := f.client(t, f.bob, "theirs")

	_, err := f.svc.CreateOpportunity(ctx, f.alice, domain.OpportunityInput{ClientID: theirs.ID, CarLabel: "Ka"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.CreateOpportunity(ctx, f.alice, domain.OpportunityInput{ClientID: mine.ID, CarLabel: "Ka", CarModelID: ptr(int64(9999))})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	car, err := f.svc.CreateCar(ctx, f.bob, domain.CarInput{Brand: "Ford", Model: "Ka"})
	require.NoError(t, err)
	o, err := f.svc.CreateOpportunity(ctx, f.alice, domain.OpportunityInput{ClientID: mine.ID, CarLabel: "Ka", CarModelID: &car.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.StageLead, o.Stage)
	assert.Equal(t, domain.UrgencyNormal, o.Urgency)

	_, err = f.svc.UpdateOpportunity(ctx, f.alice, o.ID, domain.OpportunityChanges{ClientID: &theirs.ID})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.UpdateOpportunity(ctx, f.alice, o.ID, domain.OpportunityChanges{CarModelID: domain.Value(int64(9999))})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	unlinked, err := f.svc.UpdateOpportunity(ctx, f.alice, o.ID, domain.OpportunityChanges{CarModelID: domain.Null[int64]()})
	require.NoError(t, err)
	assert.Nil(t, unlinked.CarModelID)

	detail, err := f.svc.GetOpportunity(ctx, f.alice, o.ID)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, detail.Client.ID)
	assert.Nil(t, detail.Car)
}

func TestStageTransitionsAreUnrestricted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.client(t, f.alice, "X")
	o := f.opportunity(t, f.alice, c.ID)

	won, err := f.svc.UpdateOpportunityStage(ctx, f.alice, o.ID, domain.StageClosedWon)
	require.NoError(t, err)
	assert.Equal(t, domain.StageClosedWon, won.Stage)

	back, err := f.svc.UpdateOpportunityStage(ctx, f.alice, o.ID, domain.StageLead)
	require.NoError(t, err)
	assert.Equal(t, domain.StageLead, back.Stage)

	_, err = f.svc.UpdateOpportunityStage(ctx, f.alice, o.ID, domain.Stage("WON"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDeleteOpportunityCascadesNotes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.client(t, f.alice, "X")
	o := f.opportunity(t, f.alice, c.ID)
	for i := 0; i < 3; i++ {
		_, err := f.svc.CreateNote(ctx, f.alice, domain.NoteInput{OpportunityID: o.ID, Title: "t", Content: "c"})
		require.NoError(t, err)
	}

	require.NoError(t, f.svc.DeleteOpportunity(ctx, f.alice, o.ID))

	_, err := f.svc.NotesByOpportunity(ctx, f.alice, o.ID, pagination.Params{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	stats, err := f.svc.NoteStats(ctx, f.alice)
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
}

func TestDeleteNotesIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mine := f.opportunity(t, f.alice, f.client(t, f.alice, "A").ID)
	theirs := f.opportunity(t, f.bob, f.client(t, f.bob, "B").ID)

	n1, err := f.svc.CreateNote(ctx, f.alice, domain.NoteInput{OpportunityID: mine.ID, Title: "1", Content: "c"})
	require.NoError(t, err)
	n2, err := f.svc.CreateNote(ctx, f.alice, domain.NoteInput{OpportunityID: mine.ID, Title: "2", Content: "c"})
	require.NoError(t, err)
	foreign, err := f.svc.CreateNote(ctx, f.bob, domain.NoteInput{OpportunityID: theirs.ID, Title: "3", Content: "c"})
	require.NoError(t, err)

	_, err = f.svc.DeleteNotes(ctx, f.alice, []int64{n1.ID, foreign.ID})
	require.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.GetNote(ctx, f.alice, n1.ID)
	require.NoError(t, err, "nothing is deleted when authorization fails")

	_, err = f.svc.DeleteNotes(ctx, f.alice, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	deleted, err := f.svc.DeleteNotes(ctx, f.alice, []int64{n1.ID, n2.ID, n1.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = f.svc.GetNote(ctx, f.bob, foreign.ID)
	assert.NoError(t, err)
}

func TestListClientsPagesOfTen(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 15; i++ {
		f.client(t, f.alice, "client")
		f.clock.Advance(time.Minute)
	}

	first, err := f.svc.ListClients(ctx, f.alice, domain.ClientFilter{}, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, first.Items, 10)
	require.NotNil(t, first.NextCursor)

	second, err := f.svc.ListClients(ctx, f.alice, domain.ClientFilter{}, pagination.Params{Limit: 10, Cursor: first.NextCursor})
	require.NoError(t, err)
	assert.Len(t, second.Items, 5)
	assert.Nil(t, second.NextCursor)

	seen := map[int64]bool{}
	for _, c := range append(first.Items, second.Items...) {
		assert.False(t, seen[c.ID], "client %d returned twice", c.ID)
		seen[c.ID] = true
	}
	assert.Len(t, seen, 15)

	_, err = f.svc.ListClients(ctx, f.alice, domain.ClientFilter{}, pagination.Params{Limit: 101})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOpportunityPagesFollowUrgencyThenRecency(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.client(t, f.alice, "X")
	urgencies := []domain.Urgency{domain.UrgencyLow, domain.UrgencyNormal, domain.UrgencyHigh}
	for i := 0; i < 23; i++ {
		_, err := f.svc.CreateOpportunity(ctx, f.alice, domain.OpportunityInput{ClientID: c.ID, CarLabel: "car", Urgency: &urgencies[i%3]})
		require.NoError(t, err)
		if i%2 == 0 {
			f.clock.Advance(time.Second)
		}
	}

	var walked []domain.Opportunity
	params := pagination.Params{Limit: 4}
	for {
		page, err := f.svc.ListOpportunities(ctx, f.alice, domain.OpportunityFilter{}, params)
		require.NoError(t, err)
		walked = append(walked, page.Items...)
		if page.NextCursor == nil {
			break
		}
		params.Cursor = page.NextCursor
	}

	require.Len(t, walked, 23)
	seen := map[int64]bool{}
	for i, o := range walked {
		require.False(t, seen[o.ID])
		seen[o.ID] = true
		if i == 0 {
			continue
		}
		prev := walked[i-1]
		switch {
		case prev.Urgency != o.Urgency:
			assert.Greater(t, prev.Urgency.Rank(), o.Urgency.Rank())
		case !prev.UpdatedAt.Equal(o.UpdatedAt):
			assert.True(t, prev.UpdatedAt.After(o.UpdatedAt))
		default:
			assert.Less(t, prev.ID, o.ID)
		}
	}
}

func TestCarSpecUniqueness(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	base := domain.CarInput{Brand: "Ford", Model: "Ka", Version: ptr("SE"), Year: ptr(2022)}

	_, err := f.svc.CreateCar(ctx, f.alice, base)
	require.NoError(t, err)

	_, err = f.svc.CreateCar(ctx, f.alice, base)
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Contains(t, domain.Message(err), "already registered")

	variants := []domain.CarInput{
		{Brand: "Fiat", Model: "Ka", Version: ptr("SE"), Year: ptr(2022)},
		{Brand: "Ford", Model: "Fiesta", Version: ptr("SE"), Year: ptr(2022)},
		{Brand: "Ford", Model: "Ka", Version: ptr("Titanium"), Year: ptr(2022)},
		{Brand: "Ford", Model: "Ka", Version: ptr("SE"), Year: ptr(2021)},
		{Brand: "Ford", Model: "Ka", Year: ptr(2022)},
		{Brand: "Ford", Model: "Ka", Version: ptr("SE")},
	}
	for _, v := range variants {
		_, err := f.svc.CreateCar(ctx, f.alice, v)
		assert.NoError(t, err, "%+v", v)
	}

	// absent matches absent
	_, err = f.svc.CreateCar(ctx, f.alice, domain.CarInput{Brand: "Ford", Model: "Ka", Version: ptr("SE")})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.svc.CreateCar(ctx, f.alice, domain.CarInput{Brand: "Ford", Model: "Ka", Year: ptr(1899)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdateCarChecksResultingTuple(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.CreateCar(ctx, f.alice, domain.CarInput{Brand: "Ford", Model: "Ka", Year: ptr(2020)})
	require.NoError(t, err)
	other, err := f.svc.CreateCar(ctx, f.alice, domain.CarInput{Brand: "Ford", Model: "Ka", Year: ptr(2021)})
	require.NoError(t, err)

	_, err = f.svc.UpdateCar(ctx, f.alice, other.ID, domain.CarChanges{Year: domain.Value(2020)})
	assert.ErrorIs(t, err, domain.ErrConflict)

	same, err := f.svc.UpdateCar(ctx, f.alice, other.ID, domain.CarChanges{Model: ptr("Ka")})
	require.NoError(t, err)
	assert.Equal(t, 2021, *same.Year)

	cleared, err := f.svc.UpdateCar(ctx, f.alice, other.ID, domain.CarChanges{Year: domain.Null[int]()})
	require.NoError(t, err)
	assert.Nil(t, cleared.Year)
}

func TestDeleteCarReportsLinkedOpportunities(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	car, err := f.svc.CreateCar(ctx, f.alice, domain.CarInput{Brand: "Ford", Model: "Ka"})
	require.NoError(t, err)
	c := f.client(t, f.alice, "X")
	for i := 0; i < 3; i++ {
		_, err := f.svc.CreateOpportunity(ctx, f.alice, domain.OpportunityInput{ClientID: c.ID, CarLabel: "Ka", CarModelID: &car.ID})
		require.NoError(t, err)
	}

	err = f.svc.DeleteCar(ctx, f.alice, car.ID)
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, "cannot delete car: 3 opportunities linked", domain.Message(err))

	assert.ErrorIs(t, f.svc.DeleteCar(ctx, f.alice, 9999), domain.ErrNotFound)

	stats, err := f.svc.CarStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	require.Len(t, stats.MostUsed, 1)
	assert.Equal(t, int64(3), stats.MostUsed[0].OpportunityCount)
	assert.Equal(t, []domain.BrandCount{{Brand: "Ford", Count: 1}}, stats.ByBrand)
}

func TestStatsReportEmptyBuckets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.client(t, f.alice, "with")
	f.client(t, f.alice, "without")
	_, err := f.svc.CreateOpportunity(ctx, f.alice, domain.OpportunityInput{ClientID: c.ID, CarLabel: "Ka", Stage: ptr(domain.StageProposal), Urgency: ptr(domain.UrgencyHigh)})
	require.NoError(t, err)
	f.opportunity(t, f.alice, c.ID)

	opp, err := f.svc.OpportunityStats(ctx, f.alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), opp.Total)
	assert.Equal(t, int64(1), opp.ByStage[domain.StageProposal])
	assert.Equal(t, int64(1), opp.ByStage[domain.StageLead])
	assert.Equal(t, int64(0), opp.ByStage[domain.StageClosedLost])
	assert.Len(t, opp.ByStage, len(domain.Stages()))
	assert.Equal(t, int64(0), opp.ByUrgency[domain.UrgencyLow])

	clients, err := f.svc.ClientStats(ctx, f.alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), clients.Total)
	assert.Equal(t, int64(1), clients.WithOpportunities)
	assert.Equal(t, int64(1), clients.WithoutOpportunities)
	assert.Equal(t, int64(2), clients.TotalOpportunities)

	empty, err := f.svc.OpportunityStats(ctx, f.bob)
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Len(t, empty.ByUrgency, 3)
}

func TestNoteStatsWindows(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.opportunity(t, f.alice, f.client(t, f.alice, "X").ID)
	now := f.clock.Now()

	for _, at := range []time.Time{
		now.AddDate(0, 0, -20),
		now.AddDate(0, 0, -10),
		now.AddDate(0, 0, -3),
		now,
	} {
		f.clock.Set(at)
		_, err := f.svc.CreateNote(ctx, f.alice, domain.NoteInput{OpportunityID: o.ID, Title: "t", Content: "c"})
		require.NoError(t, err)
	}
	f.clock.Set(now)

	stats, err := f.svc.NoteStats(ctx, f.alice)
	require.NoError(t, err)
	assert.Equal(t, domain.NoteStats{Total: 4, Today: 1, ThisWeek: 2, ThisMonth: 3}, stats)
}

func TestUrgentClientsPreviewOpenOpportunities(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c, err := f.svc.CreateClient(ctx, f.alice, domain.ClientInput{Name: "hot", Urgency: ptr(domain.UrgencyHigh)})
	require.NoError(t, err)
	f.client(t, f.alice, "cold")

	for i := 0; i < 4; i++ {
		f.opportunity(t, f.alice, c.ID)
	}
	_, err = f.svc.CreateOpportunity(ctx, f.alice, domain.OpportunityInput{ClientID: c.ID, CarLabel: "done", Stage: ptr(domain.StageClosedLost)})
	require.NoError(t, err)

	urgent, err := f.svc.UrgentClients(ctx, f.alice)
	require.NoError(t, err)
	require.Len(t, urgent, 1)
	assert.Equal(t, c.ID, urgent[0].ID)
	assert.Equal(t, int64(5), urgent[0].OpportunityCount)
	assert.Len(t, urgent[0].OpenOpportunities, 3)
	for _, o := range urgent[0].OpenOpportunities {
		assert.False(t, o.Stage.Closed())
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	p, token, err := f.svc.IssueAPIToken(ctx, "alice@example.com", "cli", nil)
	require.NoError(t, err)
	assert.Equal(t, f.alice, p.ID)

	got, err := f.svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, f.alice, got.ID)

	_, err = f.svc.Authenticate(ctx, "bogus")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	ttl := time.Hour
	_, short, err := f.svc.IssueAPIToken(ctx, "bob@example.com", "short", &ttl)
	require.NoError(t, err)
	f.clock.Advance(2 * time.Hour)
	_, err = f.svc.Authenticate(ctx, short)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, _, err = f.svc.IssueAPIToken(ctx, "nobody@example.com", "cli", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type countingCache struct {
	brands      []string
	stored      bool
	reads       int
	invalidated int
}

func (c *countingCache) Brands(context.Context) ([]string, bool, error) {
	c.reads++
	return c.brands, c.stored, nil
}

func (c *countingCache) StoreBrands(_ context.Context, brands []string) error {
	c.brands, c.stored = brands, true
	return nil
}

func (c *countingCache) Invalidate(context.Context) error {
	c.invalidated++
	c.brands, c.stored = nil, false
	return nil
}

func TestBrandsAreCachedUntilCatalogChanges(t *testing.T) {
	ctx := context.Background()
	cache := &countingCache{}
	f := newFixture(t, WithCache(cache))

	_, err := f.svc.CreateCar(ctx, f.alice, domain.CarInput{Brand: "Ford", Model: "Ka"})
	require.NoError(t, err)
	assert.Equal(t, 2, cache.invalidated)

	brands, err := f.svc.Brands(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ford"}, brands)
	assert.True(t, cache.stored)

	cache.brands = []string{"from-cache"}
	brands, err = f.svc.Brands(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"from-cache"}, brands)

	_, err = f.svc.CreateCar(ctx, f.alice, domain.CarInput{Brand: "Audi", Model: "A3"})
	require.NoError(t, err)
	brands, err = f.svc.Brands(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Audi", "Ford"}, brands)
}

func TestCatalogWritesInvalidateBeforeAndAfterCommit(t *testing.T) {
	ctx := context.Background()
	cache := &countingCache{}
	f := newFixture(t, WithCache(cache))

	car, err := f.svc.CreateCar(ctx, f.alice, domain.CarInput{Brand: "Ford", Model: "Ka"})
	require.NoError(t, err)
	assert.Equal(t, 2, cache.invalidated)

	_, err = f.svc.CreateCar(ctx, f.alice, domain.CarInput{Brand: "Ford", Model: "Ka"})
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 2, cache.invalidated, "a rejected write leaves the cache alone")

	cache.brands, cache.stored = []string{"Ford"}, true
	_, err = f.svc.UpdateCar(ctx, f.alice, car.ID, domain.CarChanges{Brand: ptr("Fiat")})
	require.NoError(t, err)
	assert.Equal(t, 4, cache.invalidated)
	assert.False(t, cache.stored)

	require.NoError(t, f.svc.DeleteCar(ctx, f.alice, car.ID))
	assert.Equal(t, 6, cache.invalidated)

	brands, err := f.svc.Brands(ctx)
	require.NoError(t, err)
	assert.Empty(t, brands)
}

func TestSearchLimits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.SearchClients(ctx, f.alice, "x", 21)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	_, err = f.svc.SearchNotes(ctx, f.alice, "", 10)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.svc.SearchCars(ctx, "ford", 0)
	assert.NoError(t, err)
}

func TestAuditTrailRecordsMutations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.client(t, f.alice, "X")
	require.NoError(t, f.svc.DeleteClient(ctx, f.alice, c.ID))

	logs, err := f.svc.ListAuditLogs(ctx, f.alice, 10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(logs), 2)
	assert.Equal(t, "client.delete", logs[0].Action)
	assert.Equal(t, "client.create", logs[1].Action)
}
