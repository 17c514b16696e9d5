// Package listing runs the crop listing lifecycle: creation, buyer interest,
// negotiation, sale and cancellation, each a guarded status transition.
package listing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"krishi-backend/internal/apperr"
	"krishi-backend/internal/audit"
	"krishi-backend/internal/cache"
	"krishi-backend/internal/models"
	"krishi-backend/internal/sequence"
	"krishi-backend/internal/store"
	"krishi-backend/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	fieldStatus      = store.Field{Column: "status", Path: "status"}
	fieldUserID      = store.Field{Column: "user_id", Path: "userId"}
	fieldNumber      = store.Field{Column: "listing_number", Path: "listingNumber"}
	fieldCropName    = store.Field{Column: "crop_name", Path: "crop.name"}
	fieldCategory    = store.Field{Column: "crop_category", Path: "crop.category"}
	fieldQuality     = store.Field{Column: "detail_quality", Path: "cropDetails.quality"}
	fieldQuantity    = store.Field{Column: "detail_quantity", Path: "cropDetails.quantity"}
	fieldSellerName  = store.Field{Column: "seller_name", Path: "seller.name"}
	fieldSellerPhone = store.Field{Column: "seller_phone", Path: "seller.phone"}
	fieldLocation    = store.Field{Column: "seller_location", Path: "seller.location"}
	fieldCreatedAt   = store.Field{Column: "created_at", Path: "createdAt"}
)

const recentCount = 5

var errNotFound = apperr.NotFound("Crop listing not found")

type Service struct {
	repo  store.Repository[models.CropListing]
	seq   sequence.Generator
	audit audit.Recorder
	stats *cache.Stats
	now   func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithStatsCache(c *cache.Stats) Option {
	return func(s *Service) { s.stats = c }
}

func NewService(repo store.Repository[models.CropListing], seq sequence.Generator, rec audit.Recorder, opts ...Option) *Service {
	s := &Service{repo: repo, seq: seq, audit: rec, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *Service) Create(ctx context.Context, actor models.Actor, in CreateInput) (*models.CropListing, error) {
	if actor.Anonymous() {
		return nil, apperr.Authentication("Authentication required")
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	now := s.clock()
	number, err := sequence.Number(ctx, s.seq, sequence.ListingCounter, sequence.ListingPrefix, now)
	if err != nil {
		return nil, apperr.Unexpected("Failed to create listing", err)
	}

	l := &models.CropListing{
		ID:            uuid.NewString(),
		ListingNumber: number,
		UserID:        actor.ID,
		Crop: models.CropInfo{
			Name:     in.Crop.Name,
			Category: in.Crop.Category,
			MSP:      in.Crop.MSP,
		},
		Seller: models.SellerInfo{
			Name:     in.Seller.Name,
			Phone:    in.Seller.Phone,
			Email:    in.Seller.Email,
			Location: in.Seller.Location,
		},
		CropDetails: models.CropDetails{
			Quantity:      in.CropDetails.Quantity,
			Quality:       models.CropQuality(in.CropDetails.Quality),
			ExpectedPrice: in.CropDetails.ExpectedPrice,
			HarvestDate:   in.CropDetails.HarvestDate.Ptr(),
		},
		Services:       in.Services,
		AdditionalInfo: in.AdditionalInfo,
		Status:         models.ListingActive,
		BuyerContacts:  []models.BuyerContact{},
		Notes:          []models.Note{},
		StatusHistory:  []models.StatusChange{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, l); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("Listing number %s already exists", number)
		}
		return nil, apperr.Unexpected("Failed to create listing", err)
	}

	s.audit.Record(ctx, audit.LogOptions{
		UserID:      actor.ID,
		EntityType:  audit.EntityListing,
		EntityID:    l.ID,
		Action:      models.AuditCreate,
		Description: fmt.Sprintf("Listed %s (%s)", l.Crop.Name, l.ListingNumber),
		After:       l,
	})
	return l, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.CropListing, error) {
	l, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return l, nil
}

// List returns listings newest first. Search matches crop name, category,
// seller name and phone, location and listing number.
func (s *Service) List(ctx context.Context, f ListFilter) ([]models.CropListing, store.Pagination, error) {
	q := store.Query{SortBy: fieldCreatedAt, Desc: true}
	if f.Status != "" {
		q.Where = append(q.Where, store.Eq(fieldStatus, f.Status))
	}
	if f.Quality != "" {
		q.Where = append(q.Where, store.Eq(fieldQuality, f.Quality))
	}
	if f.Crop != "" {
		q.Contains = append(q.Contains, store.Eq(fieldCropName, f.Crop))
	}
	if f.Search != "" {
		q.Search = f.Search
		q.SearchIn = []store.Field{fieldCropName, fieldCategory, fieldSellerName, fieldSellerPhone, fieldLocation, fieldNumber}
	}
	return s.page(ctx, q, f.Page, f.Limit)
}

// BySeller lists every listing carrying the given seller phone.
func (s *Service) BySeller(ctx context.Context, phone string) ([]models.CropListing, error) {
	if phone == "" {
		return nil, apperr.Validation("Phone number is required", map[string]string{"phone": "is required"})
	}
	items, err := s.repo.Find(ctx, store.Query{
		Where:  []store.Cond{store.Eq(fieldSellerPhone, phone)},
		SortBy: fieldCreatedAt,
		Desc:   true,
	})
	if err != nil {
		return nil, apperr.Unexpected("Failed to load listings", err)
	}
	return items, nil
}

func (s *Service) Mine(ctx context.Context, actor models.Actor, f ListFilter) ([]models.CropListing, store.Pagination, error) {
	if actor.Anonymous() {
		return nil, store.Pagination{}, apperr.Authentication("Authentication required")
	}
	q := store.Query{
		Where:  []store.Cond{store.Eq(fieldUserID, actor.ID)},
		SortBy: fieldCreatedAt,
		Desc:   true,
	}
	if f.Status != "" {
		q.Where = append(q.Where, store.Eq(fieldStatus, f.Status))
	}
	return s.page(ctx, q, f.Page, f.Limit)
}

func (s *Service) page(ctx context.Context, q store.Query, page, limit int) ([]models.CropListing, store.Pagination, error) {
	p := store.Page(&q, page, limit)

	var (
		items []models.CropListing
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		items, err = s.repo.Find(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		total, err = s.repo.Count(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, p, apperr.Unexpected("Failed to load listings", err)
	}
	return items, p.WithTotal(total), nil
}

// ExpressInterest records a buyer contact. It is open to anonymous callers;
// actor only carries a session when the buyer happens to be logged in.
// The first contact moves an active listing to contacted; a phone already
// on the listing is rejected.
func (s *Service) ExpressInterest(ctx context.Context, actor models.Actor, id string, in InterestInput) (*models.CropListing, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, change{
		actor:  models.Actor{ID: actor.ID, Name: in.BuyerName},
		verb:   "express interest in",
		from:   []models.ListingStatus{models.ListingActive, models.ListingContacted},
		target: func(models.ListingStatus) models.ListingStatus { return models.ListingContacted },
		check: func(l *models.CropListing) error {
			for _, c := range l.BuyerContacts {
				if c.BuyerPhone == in.BuyerPhone {
					return apperr.Conflict("Buyer %s has already expressed interest in this listing", in.BuyerPhone)
				}
			}
			return nil
		},
		apply: func(l *models.CropListing, now time.Time) {
			l.BuyerContacts = append(l.BuyerContacts, models.BuyerContact{
				BuyerName:    in.BuyerName,
				BuyerPhone:   in.BuyerPhone,
				OfferedPrice: in.OfferedPrice,
				ContactedAt:  now,
			})
		},
		note: fmt.Sprintf("Interest from %s (%s), offered %.2f", in.BuyerName, in.BuyerPhone, in.OfferedPrice),
	})
}

func (s *Service) StartNegotiation(ctx context.Context, actor models.Actor, id string, in NegotiateInput) (*models.CropListing, error) {
	if err := s.ownerOp(actor, in); err != nil {
		return nil, err
	}
	note := in.Note
	if note == "" {
		note = "Negotiation started"
	}
	return s.transition(ctx, id, change{
		actor: actor,
		owner: true,
		verb:  "negotiate",
		from:  sourcesOf(models.ListingNegotiating),
		to:    models.ListingNegotiating,
		note:  note,
	})
}

// MarkSold closes the listing. Sold quantity defaults to the listed
// quantity and may not exceed it; sold date defaults to now.
func (s *Service) MarkSold(ctx context.Context, actor models.Actor, id string, in SaleInput) (*models.CropListing, error) {
	if err := s.ownerOp(actor, in); err != nil {
		return nil, err
	}
	note := in.Note
	if note == "" {
		note = fmt.Sprintf("Sold at %.2f", in.FinalPrice)
	}
	return s.transition(ctx, id, change{
		actor: actor,
		owner: true,
		verb:  "sell",
		from:  sourcesOf(models.ListingSold),
		to:    models.ListingSold,
		check: func(l *models.CropListing) error {
			if in.SoldQuantity != nil && *in.SoldQuantity > l.CropDetails.Quantity {
				return apperr.Validation("Sold quantity exceeds listed quantity", map[string]string{
					"soldQuantity": fmt.Sprintf("must not exceed %g", l.CropDetails.Quantity),
				})
			}
			return nil
		},
		apply: func(l *models.CropListing, now time.Time) {
			price := in.FinalPrice
			qty := l.CropDetails.Quantity
			if in.SoldQuantity != nil {
				qty = *in.SoldQuantity
			}
			sold := now
			if d := in.SoldDate.Ptr(); d != nil {
				sold = *d
			}
			l.SoldTo = in.SoldTo
			l.FinalPrice = &price
			l.SoldQuantity = &qty
			l.SoldDate = &sold
		},
		note: note,
	})
}

func (s *Service) Cancel(ctx context.Context, actor models.Actor, id string, in CancelInput) (*models.CropListing, error) {
	if err := s.ownerOp(actor, in); err != nil {
		return nil, err
	}
	note := "Listing cancelled"
	if in.Reason != "" {
		note = "Cancelled: " + in.Reason
	}
	return s.transition(ctx, id, change{
		actor: actor,
		owner: true,
		verb:  "cancel",
		from:  sourcesOf(models.ListingCancelled),
		to:    models.ListingCancelled,
		apply: func(l *models.CropListing, now time.Time) {
			at := now
			l.CancelReason = in.Reason
			l.CancelledAt = &at
		},
		note: note,
	})
}

// UpdateStatus routes a direct status change to the matching guarded
// operation. Only negotiating, sold and cancelled can be requested.
func (s *Service) UpdateStatus(ctx context.Context, actor models.Actor, id string, in StatusInput) (*models.CropListing, error) {
	if actor.Anonymous() {
		return nil, apperr.Authentication("Authentication required")
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	switch in.Status {
	case models.ListingNegotiating:
		return s.StartNegotiation(ctx, actor, id, NegotiateInput{Note: in.Note})
	case models.ListingSold:
		if in.FinalPrice == nil {
			return nil, apperr.Validation("Final price is required", map[string]string{"finalPrice": "is required"})
		}
		return s.MarkSold(ctx, actor, id, SaleInput{
			SoldTo:       in.SoldTo,
			FinalPrice:   *in.FinalPrice,
			SoldQuantity: in.SoldQuantity,
			SoldDate:     in.SoldDate,
			Note:         in.Note,
		})
	default:
		return s.Cancel(ctx, actor, id, CancelInput{Reason: in.Reason})
	}
}

// AddNote appends a remark without touching status; allowed in any status.
func (s *Service) AddNote(ctx context.Context, actor models.Actor, id string, in NoteInput) (*models.CropListing, error) {
	if err := s.ownerOp(actor, in); err != nil {
		return nil, err
	}

	now := s.clock()
	l, err := s.repo.Update(ctx, id, func(l *models.CropListing) error {
		if l.UserID != actor.ID {
			return errNotFound
		}
		l.Notes = append(l.Notes, models.Note{Text: in.Text, AddedBy: actor.Name, AddedAt: now})
		l.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.audit.Record(ctx, audit.LogOptions{
		UserID:      actor.ID,
		EntityType:  audit.EntityListing,
		EntityID:    l.ID,
		Action:      models.AuditUpdate,
		Description: "Added note to " + l.ListingNumber,
		After:       map[string]string{"note": in.Text},
	})
	return l, nil
}

func (s *Service) Delete(ctx context.Context, actor models.Actor, id string) error {
	if actor.Anonymous() {
		return apperr.Authentication("Authentication required")
	}
	l, err := s.repo.Get(ctx, id)
	if err != nil {
		return storeError(err)
	}
	if l.UserID != actor.ID {
		return errNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err)
	}

	s.audit.Record(ctx, audit.LogOptions{
		UserID:      actor.ID,
		EntityType:  audit.EntityListing,
		EntityID:    l.ID,
		Action:      models.AuditDelete,
		Description: "Deleted listing " + l.ListingNumber,
		Before:      l,
	})
	return nil
}

// Stats is the dashboard summary. TotalQuantity only counts listings still
// on offer.
type Stats struct {
	Total         int64                `json:"total"`
	Active        int64                `json:"active"`
	Sold          int64                `json:"sold"`
	Negotiating   int64                `json:"negotiating"`
	TotalQuantity float64              `json:"totalQuantity"`
	Recent        []models.CropListing `json:"recentListings"`
}

// Stats aggregates over all listings. Results may be served from the stats
// cache for its TTL.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	st, err := cache.Remember(ctx, s.stats, "crop_listings", s.loadStats)
	if err != nil {
		return nil, apperr.Unexpected("Failed to load listing stats", err)
	}
	return &st, nil
}

func (s *Service) loadStats(ctx context.Context) (Stats, error) {
	var st Stats
	byStatus := func(status models.ListingStatus, dst *int64) func() error {
		return func() (err error) {
			*dst, err = s.repo.Count(ctx, store.Query{Where: []store.Cond{store.Eq(fieldStatus, string(status))}})
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.Total, err = s.repo.Count(ctx, store.Query{})
		return err
	})
	g.Go(byStatus(models.ListingActive, &st.Active))
	g.Go(byStatus(models.ListingSold, &st.Sold))
	g.Go(byStatus(models.ListingNegotiating, &st.Negotiating))
	g.Go(func() (err error) {
		st.TotalQuantity, err = s.repo.Sum(ctx, fieldQuantity, store.Query{
			Where: []store.Cond{store.Eq(fieldStatus, string(models.ListingActive))},
		})
		return err
	})
	g.Go(func() (err error) {
		st.Recent, err = s.repo.Find(ctx, store.Query{SortBy: fieldCreatedAt, Desc: true, Limit: recentCount})
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return st, nil
}

// change describes one status transition. from is the guard; target, when
// set, picks the resulting status from the current one, otherwise to is used.
type change struct {
	actor  models.Actor
	owner  bool
	verb   string
	from   []models.ListingStatus
	to     models.ListingStatus
	target func(models.ListingStatus) models.ListingStatus
	check  func(*models.CropListing) error
	apply  func(*models.CropListing, time.Time)
	note   string
}

// transition is the single path through which a listing's status changes.
// Guard, checks and mutation run inside the store's atomic update, and
// exactly one history entry is appended.
func (s *Service) transition(ctx context.Context, id string, ch change) (*models.CropListing, error) {
	now := s.clock()
	var prev models.ListingStatus

	l, err := s.repo.Update(ctx, id, func(l *models.CropListing) error {
		if ch.owner && l.UserID != ch.actor.ID {
			return errNotFound
		}
		if !slices.Contains(ch.from, l.Status) {
			return apperr.StateGuard("Cannot %s a listing that is %s", ch.verb, l.Status)
		}

		next := ch.to
		if ch.target != nil {
			next = ch.target(l.Status)
		}
		if next != l.Status && !CanTransition(l.Status, next) {
			return apperr.StateGuard("Cannot move listing from %s to %s", l.Status, next)
		}
		if ch.check != nil {
			if err := ch.check(l); err != nil {
				return err
			}
		}

		prev = l.Status
		if ch.apply != nil {
			ch.apply(l, now)
		}
		l.Status = next
		l.StatusHistory = append(l.StatusHistory, models.StatusChange{
			Status:    string(next),
			ChangedAt: now,
			ChangedBy: ch.actor.Name,
			Notes:     ch.note,
		})
		l.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.audit.Record(ctx, audit.LogOptions{
		UserID:      ch.actor.ID,
		EntityType:  audit.EntityListing,
		EntityID:    l.ID,
		Action:      models.AuditTransition,
		Description: fmt.Sprintf("%s: %s -> %s", l.ListingNumber, prev, l.Status),
		Before:      map[string]models.ListingStatus{"status": prev},
		After:       map[string]models.ListingStatus{"status": l.Status},
	})
	return l, nil
}

// ownerOp checks the session and validates in for operations restricted to
// the listing owner.
func (s *Service) ownerOp(actor models.Actor, in any) error {
	if actor.Anonymous() {
		return apperr.Authentication("Authentication required")
	}
	return validation.Struct(in)
}

// storeError maps persistence errors; engine errors pass through.
func storeError(err error) error {
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, store.ErrNotFound):
		return errNotFound
	case errors.Is(err, store.ErrConflict):
		return apperr.Conflict("Listing was modified concurrently, please retry")
	default:
		return apperr.Unexpected("Listing store failure", err)
	}
}
