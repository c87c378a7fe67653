package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	inats "github.com/edugen-platform/edugen/internal/nats"
)

var ErrInvalidPayload = errors.New("payload must be a JSON object or array")

// AuditPublisher receives an AuditEvent for every save and delete.
type AuditPublisher interface {
	PublishAuditEvent(ctx context.Context, event inats.AuditEvent) error
}

type Service struct {
	repo   Repository
	events AuditPublisher
	now    func() time.Time
}

// NewService builds the content service. events may be nil.
func NewService(repo Repository, events AuditPublisher) *Service {
	return &Service{repo: repo, events: events, now: time.Now}
}

func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req *CreateContentRequest) (*Content, error) {
	payload := bytes.TrimSpace(req.Payload)
	if len(payload) == 0 || (payload[0] != '{' && payload[0] != '[') {
		return nil, ErrInvalidPayload
	}

	c := &Content{
		ID:          uuid.New(),
		OwnerUserID: ownerID,
		Kind:        Kind(req.Kind),
		Title:       req.Title,
		Payload:     payload,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.audit(ctx, c, "content_saved", fmt.Sprintf("saved %s %q", c.Kind, c.Title))
	return c, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Content, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID, params ListParams) ([]*Content, int64, error) {
	offset := (params.Page - 1) * params.PageSize

	items, err := s.repo.ListByOwner(ctx, ownerID, params.Kind, params.PageSize, offset)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.repo.CountByOwner(ctx, ownerID, params.Kind)
	if err != nil {
		return nil, 0, err
	}

	if items == nil {
		items = []*Content{}
	}
	return items, count, nil
}

func (s *Service) Delete(ctx context.Context, c *Content) error {
	if err := s.repo.Delete(ctx, c.ID, c.OwnerUserID); err != nil {
		return err
	}
	s.audit(ctx, c, "content_deleted", fmt.Sprintf("deleted %s %q", c.Kind, c.Title))
	return nil
}

func (s *Service) audit(ctx context.Context, c *Content, eventType, details string) {
	if s.events == nil {
		return
	}
	event := inats.AuditEvent{
		OwnerUserID:  c.OwnerUserID,
		EventType:    eventType,
		Severity:     "info",
		ResourceType: "content",
		ResourceID:   c.ID.String(),
		Details:      details,
		Timestamp:    s.now().UTC(),
	}
	if err := s.events.PublishAuditEvent(ctx, event); err != nil {
		slog.Warn("publishing content audit event", "error", err, "content_id", c.ID)
	}
}
