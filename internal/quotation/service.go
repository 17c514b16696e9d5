// Package quotation runs the equipment quotation lifecycle: a requester asks
// for a purchase or rental, a supplier accepts it, and the requester either
// completes it with a rating or cancels it.
package quotation

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
	fieldStatus        = store.Field{Column: "status", Path: "status"}
	fieldType          = store.Field{Column: "quotation_type", Path: "quotationType"}
	fieldUserID        = store.Field{Column: "user_id", Path: "userId"}
	fieldNumber        = store.Field{Column: "quotation_number", Path: "quotationNumber"}
	fieldEquipmentName = store.Field{Column: "equipment_name", Path: "equipment.name"}
	fieldCustomerName  = store.Field{Column: "customer_name", Path: "customerDetails.name"}
	fieldCustomerPhone = store.Field{Column: "customer_phone", Path: "customerDetails.phone"}
	fieldCreatedAt     = store.Field{Column: "created_at", Path: "createdAt"}
)

const (
	recentCount = 5

	// cancelledBy is recorded on every cancellation; only the requester
	// can cancel.
	cancelledBy = "Customer"
)

var errNotFound = apperr.NotFound("Quotation not found")

type Service struct {
	repo  store.Repository[models.Quotation]
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

func NewService(repo store.Repository[models.Quotation], seq sequence.Generator, rec audit.Recorder, opts ...Option) *Service {
	s := &Service{repo: repo, seq: seq, audit: rec, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *Service) Create(ctx context.Context, actor models.Actor, in CreateInput) (*models.Quotation, error) {
	if actor.Anonymous() {
		return nil, apperr.Authentication("Authentication required")
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	now := s.clock()
	number, err := sequence.Number(ctx, s.seq, sequence.QuotationCounter, sequence.QuotationPrefix, now)
	if err != nil {
		return nil, apperr.Unexpected("Failed to create quotation", err)
	}

	q := &models.Quotation{
		ID:              uuid.NewString(),
		QuotationNumber: number,
		UserID:          actor.ID,
		Equipment: models.EquipmentInfo{
			Name:        in.Equipment.Name,
			Category:    in.Equipment.Category,
			Price:       in.Equipment.Price,
			RentalPrice: in.Equipment.RentalPrice,
			Subsidy:     in.Equipment.Subsidy,
		},
		QuotationType: models.QuotationType(in.QuotationType),
		CustomerDetails: models.CustomerDetails{
			Name:     in.CustomerDetails.Name,
			Phone:    in.CustomerDetails.Phone,
			Email:    in.CustomerDetails.Email,
			Location: in.CustomerDetails.Location,
			LandSize: in.CustomerDetails.LandSize,
		},
		RentalDuration:  in.RentalDuration,
		Interests:       in.Interests,
		AdditionalNotes: in.AdditionalNotes,
		Status:          models.QuotationPending,
		Notes:           []models.Note{},
		StatusHistory:   []models.StatusChange{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, q); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("Quotation number %s already exists", number)
		}
		return nil, apperr.Unexpected("Failed to create quotation", err)
	}

	s.audit.Record(ctx, audit.LogOptions{
		UserID:      actor.ID,
		EntityType:  audit.EntityQuotation,
		EntityID:    q.ID,
		Action:      models.AuditCreate,
		Description: fmt.Sprintf("Requested %s of %s (%s)", q.QuotationType, q.Equipment.Name, q.QuotationNumber),
		After:       q,
	})
	return q, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Quotation, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return q, nil
}

// List returns quotations newest first. Search matches customer name and
// phone, equipment name and quotation number.
func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Quotation, store.Pagination, error) {
	q := store.Query{SortBy: fieldCreatedAt, Desc: true}
	if f.Status != "" {
		q.Where = append(q.Where, store.Eq(fieldStatus, f.Status))
	}
	if f.Type != "" {
		q.Where = append(q.Where, store.Eq(fieldType, f.Type))
	}
	if f.Search != "" {
		q.Search = f.Search
		q.SearchIn = []store.Field{fieldCustomerName, fieldCustomerPhone, fieldEquipmentName, fieldNumber}
	}
	return s.page(ctx, q, f.Page, f.Limit)
}

func (s *Service) ByCustomer(ctx context.Context, phone string) ([]models.Quotation, error) {
	if phone == "" {
		return nil, apperr.Validation("Phone number is required", map[string]string{"phone": "is required"})
	}
	items, err := s.repo.Find(ctx, store.Query{
		Where:  []store.Cond{store.Eq(fieldCustomerPhone, phone)},
		SortBy: fieldCreatedAt,
		Desc:   true,
	})
	if err != nil {
		return nil, apperr.Unexpected("Failed to load quotations", err)
	}
	return items, nil
}

func (s *Service) Mine(ctx context.Context, actor models.Actor, f ListFilter) ([]models.Quotation, store.Pagination, error) {
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
	if f.Type != "" {
		q.Where = append(q.Where, store.Eq(fieldType, f.Type))
	}
	return s.page(ctx, q, f.Page, f.Limit)
}

func (s *Service) page(ctx context.Context, q store.Query, page, limit int) ([]models.Quotation, store.Pagination, error) {
	p := store.Page(&q, page, limit)

	var (
		items []models.Quotation
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
		return nil, p, apperr.Unexpected("Failed to load quotations", err)
	}
	return items, p.WithTotal(total), nil
}

// Accept approves the quotation on behalf of a supplier. Suppliers are not
// modelled as users, but the caller must hold a session and may not be the
// requester.
func (s *Service) Accept(ctx context.Context, actor models.Actor, id string, in AcceptInput) (*models.Quotation, error) {
	if actor.Anonymous() {
		return nil, apperr.Authentication("Authentication required")
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	note := in.Notes
	if note == "" {
		note = "Accepted by " + in.SupplierName
	}
	return s.transition(ctx, id, change{
		actor: models.Actor{ID: actor.ID, Name: in.SupplierName},
		verb:  "accept",
		to:    models.QuotationApproved,
		check: func(q *models.Quotation) error {
			if q.UserID == actor.ID {
				return apperr.Authorization("You cannot accept your own quotation")
			}
			return nil
		},
		apply: func(q *models.Quotation, now time.Time) {
			at := now
			q.AcceptedBy = in.SupplierName
			q.AcceptedByID = actor.ID
			q.AcceptedContact = in.SupplierContact
			q.AcceptedAt = &at
		},
		note: note,
	})
}

func (s *Service) Cancel(ctx context.Context, actor models.Actor, id string, in CancelInput) (*models.Quotation, error) {
	if err := s.ownerOp(actor, in); err != nil {
		return nil, err
	}
	note := "Cancelled by customer"
	if in.Reason != "" {
		note = "Cancelled: " + in.Reason
	}
	return s.transition(ctx, id, change{
		actor: actor,
		owner: true,
		verb:  "cancel",
		to:    models.QuotationCancelled,
		apply: func(q *models.Quotation, now time.Time) {
			at := now
			q.CancelledBy = cancelledBy
			q.CancelReason = in.Reason
			q.CancelledAt = &at
		},
		note: note,
	})
}

func (s *Service) Complete(ctx context.Context, actor models.Actor, id string, in CompleteInput) (*models.Quotation, error) {
	if err := s.ownerOp(actor, in); err != nil {
		return nil, err
	}
	rating := in.Rating
	note := fmt.Sprintf("Completed with rating %d/5", rating)
	return s.transition(ctx, id, change{
		actor:  actor,
		owner:  true,
		verb:   "complete",
		to:     models.QuotationCompleted,
		rating: &rating,
		apply: func(q *models.Quotation, now time.Time) {
			at := now
			q.Rating = &rating
			q.Feedback = in.Feedback
			q.CompletedBy = actor.Name
			q.CompletedAt = &at
		},
		note: note,
	})
}

// UpdateDetails changes assignment and pricing on a live quotation. It never
// touches status.
func (s *Service) UpdateDetails(ctx context.Context, actor models.Actor, id string, in DetailsInput) (*models.Quotation, error) {
	if err := s.ownerOp(actor, in); err != nil {
		return nil, err
	}
	if in.Status != "" {
		return nil, apperr.Validation("Status cannot be changed here", map[string]string{
			"status": "use the accept, complete or cancel operations",
		})
	}
	if in.AssignedTo == nil && in.EstimatedPrice == nil && in.FinalPrice == nil {
		return nil, apperr.Validation("Nothing to update", nil)
	}

	now := s.clock()
	var before map[string]any
	q, err := s.repo.Update(ctx, id, func(q *models.Quotation) error {
		if q.UserID != actor.ID {
			return errNotFound
		}
		if IsTerminal(q.Status) {
			return apperr.StateGuard("Cannot update a quotation that is %s", q.Status)
		}
		before = map[string]any{
			"assignedTo":     q.AssignedTo,
			"estimatedPrice": q.EstimatedPrice,
			"finalPrice":     q.FinalPrice,
		}
		if in.AssignedTo != nil {
			q.AssignedTo = *in.AssignedTo
		}
		if in.EstimatedPrice != nil {
			q.EstimatedPrice = in.EstimatedPrice
		}
		if in.FinalPrice != nil {
			q.FinalPrice = in.FinalPrice
		}
		q.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.audit.Record(ctx, audit.LogOptions{
		UserID:      actor.ID,
		EntityType:  audit.EntityQuotation,
		EntityID:    q.ID,
		Action:      models.AuditUpdate,
		Description: "Updated details of " + q.QuotationNumber,
		Before:      before,
		After: map[string]any{
			"assignedTo":     q.AssignedTo,
			"estimatedPrice": q.EstimatedPrice,
			"finalPrice":     q.FinalPrice,
		},
	})
	return q, nil
}

func (s *Service) AddNote(ctx context.Context, actor models.Actor, id string, in NoteInput) (*models.Quotation, error) {
	if err := s.ownerOp(actor, in); err != nil {
		return nil, err
	}

	now := s.clock()
	q, err := s.repo.Update(ctx, id, func(q *models.Quotation) error {
		if q.UserID != actor.ID {
			return errNotFound
		}
		q.Notes = append(q.Notes, models.Note{Text: in.Text, AddedBy: actor.Name, AddedAt: now})
		q.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.audit.Record(ctx, audit.LogOptions{
		UserID:      actor.ID,
		EntityType:  audit.EntityQuotation,
		EntityID:    q.ID,
		Action:      models.AuditUpdate,
		Description: "Added note to " + q.QuotationNumber,
		After:       map[string]string{"note": in.Text},
	})
	return q, nil
}

// Delete removes the quotation regardless of status; only the requester may.
func (s *Service) Delete(ctx context.Context, actor models.Actor, id string) error {
	if actor.Anonymous() {
		return apperr.Authentication("Authentication required")
	}
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return storeError(err)
	}
	if q.UserID != actor.ID {
		return errNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err)
	}

	s.audit.Record(ctx, audit.LogOptions{
		UserID:      actor.ID,
		EntityType:  audit.EntityQuotation,
		EntityID:    q.ID,
		Action:      models.AuditDelete,
		Description: "Deleted quotation " + q.QuotationNumber,
		Before:      q,
	})
	return nil
}

type Stats struct {
	Total     int64              `json:"total"`
	Pending   int64              `json:"pending"`
	Approved  int64              `json:"approved"`
	Completed int64              `json:"completed"`
	Purchase  int64              `json:"purchase"`
	Rental    int64              `json:"rental"`
	Recent    []models.Quotation `json:"recentQuotations"`
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	st, err := cache.Remember(ctx, s.stats, "quotations", s.loadStats)
	if err != nil {
		return nil, apperr.Unexpected("Failed to load quotation stats", err)
	}
	return &st, nil
}

func (s *Service) loadStats(ctx context.Context) (Stats, error) {
	var st Stats
	count := func(f store.Field, v string, dst *int64) func() error {
		return func() (err error) {
			*dst, err = s.repo.Count(ctx, store.Query{Where: []store.Cond{store.Eq(f, v)}})
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.Total, err = s.repo.Count(ctx, store.Query{})
		return err
	})
	g.Go(count(fieldStatus, string(models.QuotationPending), &st.Pending))
	g.Go(count(fieldStatus, string(models.QuotationApproved), &st.Approved))
	g.Go(count(fieldStatus, string(models.QuotationCompleted), &st.Completed))
	g.Go(count(fieldType, string(models.QuotationPurchase), &st.Purchase))
	g.Go(count(fieldType, string(models.QuotationRental), &st.Rental))
	g.Go(func() (err error) {
		st.Recent, err = s.repo.Find(ctx, store.Query{SortBy: fieldCreatedAt, Desc: true, Limit: recentCount})
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return st, nil
}

type change struct {
	actor  models.Actor
	owner  bool
	verb   string
	to     models.QuotationStatus
	rating *int
	check  func(*models.Quotation) error
	apply  func(*models.Quotation, time.Time)
	note   string
}

// transition is the single path through which a quotation's status
// changes. The guard is the set of statuses allowed to reach ch.to.
func (s *Service) transition(ctx context.Context, id string, ch change) (*models.Quotation, error) {
	now := s.clock()
	var prev models.QuotationStatus

	q, err := s.repo.Update(ctx, id, func(q *models.Quotation) error {
		if ch.owner && q.UserID != ch.actor.ID {
			return errNotFound
		}
		if !slices.Contains(sourcesOf(ch.to), q.Status) {
			return apperr.StateGuard("Cannot %s a quotation that is %s", ch.verb, q.Status)
		}
		if ch.check != nil {
			if err := ch.check(q); err != nil {
				return err
			}
		}

		prev = q.Status
		if ch.apply != nil {
			ch.apply(q, now)
		}
		q.Status = ch.to
		q.StatusHistory = append(q.StatusHistory, models.StatusChange{
			Status:    string(ch.to),
			ChangedAt: now,
			ChangedBy: ch.actor.Name,
			Notes:     ch.note,
			Rating:    ch.rating,
		})
		q.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.audit.Record(ctx, audit.LogOptions{
		UserID:      ch.actor.ID,
		EntityType:  audit.EntityQuotation,
		EntityID:    q.ID,
		Action:      models.AuditTransition,
		Description: fmt.Sprintf("%s: %s -> %s", q.QuotationNumber, prev, q.Status),
		Before:      map[string]models.QuotationStatus{"status": prev},
		After:       map[string]models.QuotationStatus{"status": q.Status},
	})
	return q, nil
}

func (s *Service) ownerOp(actor models.Actor, in any) error {
	if actor.Anonymous() {
		return apperr.Authentication("Authentication required")
	}
	return validation.Struct(in)
}

func storeError(err error) error {
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, store.ErrNotFound):
		return errNotFound
	case errors.Is(err, store.ErrConflict):
		return apperr.Conflict("Quotation was modified concurrently, please retry")
	default:
		return apperr.Unexpected("Quotation store failure", err)
	}
}
