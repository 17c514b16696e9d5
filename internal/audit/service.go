package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"krishi-backend/internal/models"
	"krishi-backend/internal/store"

	"github.com/google/uuid"
)

const (
	EntityListing   = "crop_listing"
	EntityQuotation = "quotation"
)

var (
	fieldUserID    = store.Field{Column: "user_id", Path: "userId"}
	fieldEntityID  = store.Field{Column: "entity_id", Path: "entityId"}
	fieldEntity    = store.Field{Column: "entity_type", Path: "entityType"}
	fieldCreatedAt = store.Field{Column: "created_at", Path: "createdAt"}
)

type LogOptions struct {
	UserID      string
	EntityType  string
	EntityID    string
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// Recorder is what the lifecycle engines write to.
type Recorder interface {
	Record(ctx context.Context, opts LogOptions)
}

type Service struct {
	repo store.Repository[models.AuditLog]
	now  func() time.Time
}

func NewService(repo store.Repository[models.AuditLog]) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Record writes one entry. A failed audit write is logged and swallowed:
// the lifecycle change it describes has already been committed.
func (s *Service) Record(ctx context.Context, opts LogOptions) {
	entry := models.AuditLog{
		ID:          uuid.NewString(),
		CreatedAt:   s.now().UTC(),
		UserID:      opts.UserID,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  snapshot(opts.Before),
		AfterData:   snapshot(opts.After),
	}

	if err := s.repo.Create(ctx, &entry); err != nil {
		slog.Error("audit log write failed",
			slog.String("entity_type", opts.EntityType),
			slog.String("entity_id", opts.EntityID),
			slog.String("action", string(opts.Action)),
			slog.Any("error", err),
		)
	}
}

type ListFilter struct {
	UserID     string
	EntityType string
	EntityID   string
	Page       int
	Limit      int
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]models.AuditLog, store.Pagination, error) {
	q := store.Query{
		Where:  []store.Cond{store.Eq(fieldUserID, f.UserID)},
		SortBy: fieldCreatedAt,
		Desc:   true,
	}
	if f.EntityType != "" {
		q.Where = append(q.Where, store.Eq(fieldEntity, f.EntityType))
	}
	if f.EntityID != "" {
		q.Where = append(q.Where, store.Eq(fieldEntityID, f.EntityID))
	}
	page := store.Page(&q, f.Page, f.Limit)

	logs, err := s.repo.Find(ctx, q)
	if err != nil {
		return nil, page, err
	}
	total, err := s.repo.Count(ctx, q)
	if err != nil {
		return nil, page, err
	}
	return logs, page.WithTotal(total), nil
}

// jsonb columns need "null" rather than an empty string.
func snapshot(v any) []byte {
	if v == nil {
		return []byte("null")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("null")
	}
	return b
}
