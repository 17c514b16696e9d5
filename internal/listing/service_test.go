package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"testing"
	"time"

	"krishi-backend/internal/apperr"
	"krishi-backend/internal/audit"
	"krishi-backend/internal/models"
	"krishi-backend/internal/sequence"
	"krishi-backend/internal/store"
	"krishi-backend/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var (
	owner    = models.Actor{ID: "owner-1", Name: "ramesh"}
	stranger = models.Actor{ID: "owner-2", Name: "suresh"}
)

type fixture struct {
	svc   *Service
	audit store.Repository[models.AuditLog]
}

func newFixture() *fixture {
	logs := memory.New[models.AuditLog]()
	repo := memory.New[models.CropListing](fieldNumber)
	return &fixture{
		svc:   NewService(repo, sequence.NewMemory(), audit.NewService(logs)),
		audit: logs,
	}
}

func wheat() CreateInput {
	return CreateInput{
		Crop:   CropInput{Name: "Wheat", Category: "Grains", MSP: "2275"},
		Seller: SellerInput{Name: "Ramesh Patil", Phone: "9876543210", Location: "Nashik"},
		CropDetails: DetailsInput{
			Quantity:      100,
			Quality:       "standard",
			ExpectedPrice: 2200,
		},
		Services: models.ListingServices{Transport: true},
	}
}

func (f *fixture) create(t *testing.T) *models.CropListing {
	t.Helper()
	l, err := f.svc.Create(context.Background(), owner, wheat())
	require.NoError(t, err)
	return l
}

func buyer(phone string) InterestInput {
	return InterestInput{BuyerName: "Buyer " + phone[len(phone)-1:], BuyerPhone: phone, OfferedPrice: 2000}
}

func assertKind(t *testing.T, kind apperr.Kind, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperr.KindOf(err), err.Error())
}

func TestCreateAndGet(t *testing.T) {
	f := newFixture()
	created := f.create(t)

	assert.Equal(t, models.ListingActive, created.Status)
	assert.Regexp(t, regexp.MustCompile(`^CL-\d+-0001$`), created.ListingNumber)
	assert.Empty(t, created.StatusHistory)

	got, err := f.svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ListingNumber, got.ListingNumber)
	assert.Equal(t, owner.ID, got.UserID)
	assert.Equal(t, created.Crop, got.Crop)
	assert.Equal(t, created.Seller, got.Seller)
	assert.Equal(t, created.CropDetails, got.CropDetails)
	assert.Equal(t, created.Services, got.Services)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
}

func TestHarvestDateSurvivesRoundTrip(t *testing.T) {
	f := newFixture()
	in := wheat()
	in.CropDetails.HarvestDate = &models.Date{}
	require.NoError(t, json.Unmarshal([]byte(`"2024-03-01T10:00:00.123456789Z"`), in.CropDetails.HarvestDate))

	created, err := f.svc.Create(context.Background(), owner, in)
	require.NoError(t, err)
	got, err := f.svc.Get(context.Background(), created.ID)
	require.NoError(t, err)

	require.NotNil(t, got.CropDetails.HarvestDate)
	assert.True(t, created.CropDetails.HarvestDate.Equal(*got.CropDetails.HarvestDate))
	assert.Equal(t, 123000000, got.CropDetails.HarvestDate.Nanosecond())
}

func TestCreateRequiresSessionAndValidInput(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), models.Actor{}, wheat())
	assertKind(t, apperr.KindAuthentication, err)

	in := wheat()
	in.Seller.Phone = "12345"
	in.CropDetails.Quality = "excellent"
	_, err = f.svc.Create(context.Background(), owner, in)
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Contains(t, ae.Fields, "seller.phone")
	assert.Contains(t, ae.Fields, "cropDetails.quality")
}

func TestGetMissing(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Get(context.Background(), "missing")
	assertKind(t, apperr.KindNotFound, err)
}

func TestSaleScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	l := f.create(t)

	l, err := f.svc.ExpressInterest(ctx, models.Actor{}, l.ID, buyer("9000000001"))
	require.NoError(t, err)
	assert.Equal(t, models.ListingContacted, l.Status)
	assert.Len(t, l.BuyerContacts, 1)

	qty := 80.0
	l, err = f.svc.MarkSold(ctx, owner, l.ID, SaleInput{FinalPrice: 2100, SoldQuantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, models.ListingSold, l.Status)
	require.NotNil(t, l.SoldQuantity)
	assert.Equal(t, 80.0, *l.SoldQuantity)
	assert.Equal(t, 2100.0, *l.FinalPrice)
	assert.NotNil(t, l.SoldDate)

	_, err = f.svc.ExpressInterest(ctx, models.Actor{}, l.ID, buyer("9000000002"))
	assertKind(t, apperr.KindStateGuard, err)
	_, err = f.svc.Cancel(ctx, owner, l.ID, CancelInput{Reason: "changed my mind"})
	assertKind(t, apperr.KindStateGuard, err)

	got, err := f.svc.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingSold, got.Status)
	assert.Len(t, got.StatusHistory, 2)
}

func TestMarkSoldDefaultsQuantity(t *testing.T) {
	f := newFixture()
	l := f.create(t)

	l, err := f.svc.MarkSold(context.Background(), owner, l.ID, SaleInput{SoldTo: "Agro Mart", FinalPrice: 2150})
	require.NoError(t, err)
	assert.Equal(t, 100.0, *l.SoldQuantity)
	assert.Equal(t, "Agro Mart", l.SoldTo)
}

func TestMarkSoldRejectsOversell(t *testing.T) {
	f := newFixture()
	l := f.create(t)

	qty := 150.0
	_, err := f.svc.MarkSold(context.Background(), owner, l.ID, SaleInput{FinalPrice: 2150, SoldQuantity: &qty})
	assertKind(t, apperr.KindValidation, err)

	got, err := f.svc.Get(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingActive, got.Status)
	assert.Empty(t, got.StatusHistory)
}

func TestDuplicateInterestIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	l := f.create(t)

	_, err := f.svc.ExpressInterest(ctx, models.Actor{}, l.ID, buyer("9000000001"))
	require.NoError(t, err)

	_, err = f.svc.ExpressInterest(ctx, models.Actor{}, l.ID, buyer("9000000001"))
	assertKind(t, apperr.KindConflict, err)

	got, err := f.svc.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Len(t, got.BuyerContacts, 1)
	assert.Len(t, got.StatusHistory, 1)

	// a second buyer keeps the listing in contacted
	got, err = f.svc.ExpressInterest(ctx, models.Actor{}, l.ID, buyer("9000000002"))
	require.NoError(t, err)
	assert.Equal(t, models.ListingContacted, got.Status)
	assert.Len(t, got.BuyerContacts, 2)
}

func TestNegotiationOnlyFromContacted(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	l := f.create(t)

	_, err := f.svc.StartNegotiation(ctx, owner, l.ID, NegotiateInput{})
	assertKind(t, apperr.KindStateGuard, err)

	_, err = f.svc.ExpressInterest(ctx, models.Actor{}, l.ID, buyer("9000000001"))
	require.NoError(t, err)

	l, err = f.svc.StartNegotiation(ctx, owner, l.ID, NegotiateInput{Note: "counter at 2150"})
	require.NoError(t, err)
	assert.Equal(t, models.ListingNegotiating, l.Status)

	// interest is closed once negotiation starts
	_, err = f.svc.ExpressInterest(ctx, models.Actor{}, l.ID, buyer("9000000002"))
	assertKind(t, apperr.KindStateGuard, err)

	l, err = f.svc.Cancel(ctx, owner, l.ID, CancelInput{Reason: "buyer backed out"})
	require.NoError(t, err)
	assert.Equal(t, models.ListingCancelled, l.Status)
	assert.Equal(t, "buyer backed out", l.CancelReason)
	assert.NotNil(t, l.CancelledAt)
}

func TestEveryTransitionAppendsOneHistoryEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	l := f.create(t)

	steps := []func(id string) (*models.CropListing, error){
		func(id string) (*models.CropListing, error) {
			return f.svc.ExpressInterest(ctx, models.Actor{}, id, buyer("9000000001"))
		},
		func(id string) (*models.CropListing, error) {
			return f.svc.StartNegotiation(ctx, owner, id, NegotiateInput{})
		},
		func(id string) (*models.CropListing, error) {
			return f.svc.MarkSold(ctx, owner, id, SaleInput{FinalPrice: 2100})
		},
	}
	for i, step := range steps {
		got, err := step(l.ID)
		require.NoError(t, err)
		require.Len(t, got.StatusHistory, i+1)
		last := got.StatusHistory[len(got.StatusHistory)-1]
		assert.Equal(t, string(got.Status), last.Status)
		assert.NotEmpty(t, last.ChangedBy)
	}
}

func TestOwnerOperationsHideForeignListings(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	l := f.create(t)

	_, err := f.svc.Cancel(ctx, stranger, l.ID, CancelInput{})
	assertKind(t, apperr.KindNotFound, err)
	_, err = f.svc.MarkSold(ctx, stranger, l.ID, SaleInput{FinalPrice: 1})
	assertKind(t, apperr.KindNotFound, err)
	_, err = f.svc.AddNote(ctx, stranger, l.ID, NoteInput{Text: "mine now"})
	assertKind(t, apperr.KindNotFound, err)
	assertKind(t, apperr.KindNotFound, f.svc.Delete(ctx, stranger, l.ID))

	_, err = f.svc.Cancel(ctx, models.Actor{}, l.ID, CancelInput{})
	assertKind(t, apperr.KindAuthentication, err)

	got, err := f.svc.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingActive, got.Status)
	assert.Empty(t, got.Notes)
}

func TestUpdateStatusRoutesThroughGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	l := f.create(t)

	for _, target := range []models.ListingStatus{models.ListingExpired, models.ListingActive, models.ListingContacted} {
		_, err := f.svc.UpdateStatus(ctx, owner, l.ID, StatusInput{Status: target})
		assertKind(t, apperr.KindValidation, err)
	}

	_, err := f.svc.UpdateStatus(ctx, owner, l.ID, StatusInput{Status: models.ListingSold})
	assertKind(t, apperr.KindValidation, err)

	price := 2050.0
	l, err = f.svc.UpdateStatus(ctx, owner, l.ID, StatusInput{Status: models.ListingSold, FinalPrice: &price})
	require.NoError(t, err)
	assert.Equal(t, models.ListingSold, l.Status)

	_, err = f.svc.UpdateStatus(ctx, owner, l.ID, StatusInput{Status: models.ListingCancelled})
	assertKind(t, apperr.KindStateGuard, err)
}

func TestAddNoteKeepsStatus(t *testing.T) {
	f := newFixture()
	l := f.create(t)

	l, err := f.svc.AddNote(context.Background(), owner, l.ID, NoteInput{Text: "stored in cold room"})
	require.NoError(t, err)
	assert.Equal(t, models.ListingActive, l.Status)
	require.Len(t, l.Notes, 1)
	assert.Equal(t, "ramesh", l.Notes[0].AddedBy)
	assert.Empty(t, l.StatusHistory)
}

func TestDeleteInAnyStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	l := f.create(t)
	_, err := f.svc.MarkSold(ctx, owner, l.ID, SaleInput{FinalPrice: 2100})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, owner, l.ID))
	_, err = f.svc.Get(ctx, l.ID)
	assertKind(t, apperr.KindNotFound, err)
}

func TestAuditTrail(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	l := f.create(t)
	_, err := f.svc.ExpressInterest(ctx, models.Actor{}, l.ID, buyer("9000000001"))
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, owner, l.ID, CancelInput{})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, owner, l.ID))

	logs, err := f.audit.Find(ctx, store.Query{})
	require.NoError(t, err)
	actions := make([]models.AuditAction, 0, len(logs))
	for _, entry := range logs {
		assert.Equal(t, l.ID, entry.EntityID)
		actions = append(actions, entry.Action)
	}
	assert.ElementsMatch(t, []models.AuditAction{
		models.AuditCreate, models.AuditTransition, models.AuditTransition, models.AuditDelete,
	}, actions)
}

func TestListFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	f := newFixture()
	f.svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	for i, name := range []string{"Wheat", "Rice", "Wheat Durum", "Onion"} {
		in := wheat()
		in.Crop.Name = name
		in.Seller.Phone = fmt.Sprintf("98765432%02d", i)
		if name == "Onion" {
			in.CropDetails.Quality = "premium"
		}
		_, err := f.svc.Create(ctx, owner, in)
		require.NoError(t, err)
	}

	items, p, err := f.svc.List(ctx, ListFilter{Crop: "wheat"})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, int64(2), p.Total)
	assert.Equal(t, "Wheat Durum", items[0].Crop.Name, "newest first")

	items, _, err = f.svc.List(ctx, ListFilter{Quality: "premium"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Onion", items[0].Crop.Name)

	items, p, err = f.svc.List(ctx, ListFilter{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 2, p.Pages)

	items, err = f.svc.BySeller(ctx, "9876543201")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Rice", items[0].Crop.Name)

	items, p, err = f.svc.Mine(ctx, stranger, ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, p.Total)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	var ids []string
	for range 6 {
		ids = append(ids, f.create(t).ID)
	}
	_, err := f.svc.MarkSold(ctx, owner, ids[0], SaleInput{FinalPrice: 2100})
	require.NoError(t, err)
	_, err = f.svc.ExpressInterest(ctx, models.Actor{}, ids[1], buyer("9000000001"))
	require.NoError(t, err)
	_, err = f.svc.StartNegotiation(ctx, owner, ids[1], NegotiateInput{})
	require.NoError(t, err)

	st, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), st.Total)
	assert.Equal(t, int64(4), st.Active)
	assert.Equal(t, int64(1), st.Sold)
	assert.Equal(t, int64(1), st.Negotiating)
	assert.Equal(t, 400.0, st.TotalQuantity)
	assert.Len(t, st.Recent, recentCount)
}

func TestConcurrentCreateAssignsUniqueNumbers(t *testing.T) {
	f := newFixture()
	const n = 50

	numbers := make([]string, n)
	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			l, err := f.svc.Create(context.Background(), owner, wheat())
			if err != nil {
				return err
			}
			numbers[i] = l.ListingNumber
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[string]bool, n)
	for _, num := range numbers {
		assert.False(t, seen[num], "duplicate %s", num)
		seen[num] = true
	}
}

func TestConcurrentInterestFromSamePhone(t *testing.T) {
	f := newFixture()
	l := f.create(t)

	const n = 20
	results := make([]error, n)
	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			_, results[i] = f.svc.ExpressInterest(context.Background(), models.Actor{}, l.ID, buyer("9000000001"))
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var ok int
	for _, err := range results {
		if err == nil {
			ok++
			continue
		}
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	}
	assert.Equal(t, 1, ok)

	got, err := f.svc.Get(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Len(t, got.BuyerContacts, 1)
}

func TestTransitionTable(t *testing.T) {
	assert.True(t, CanTransition(models.ListingActive, models.ListingContacted))
	assert.False(t, CanTransition(models.ListingActive, models.ListingNegotiating))
	assert.False(t, CanTransition(models.ListingSold, models.ListingCancelled))
	assert.False(t, CanTransition(models.ListingActive, models.ListingExpired))

	for _, s := range []models.ListingStatus{models.ListingSold, models.ListingCancelled, models.ListingExpired} {
		assert.True(t, IsTerminal(s), s)
	}
	assert.ElementsMatch(t,
		[]models.ListingStatus{models.ListingActive, models.ListingContacted, models.ListingNegotiating},
		sourcesOf(models.ListingCancelled))
}
