package content

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Kind of a saved artifact.
type Kind string

const (
	KindMCQ   Kind = "mcq"
	KindPaper Kind = "paper"
	KindNote  Kind = "note"
)

func (k Kind) Valid() bool {
	switch k {
	case KindMCQ, KindPaper, KindNote:
		return true
	}
	return false
}

// Content matches the saved_content table schema.
type Content struct {
	ID          uuid.UUID       `json:"id"`
	OwnerUserID uuid.UUID       `json:"owner_user_id"`
	Kind        Kind            `json:"kind"`
	Title       string          `json:"title"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}

type CreateContentRequest struct {
	Kind    string          `json:"kind" validate:"required,oneof=mcq paper note"`
	Title   string          `json:"title" validate:"required,min=1,max=255"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

type ListParams struct {
	Kind     Kind
	Page     int
	PageSize int
}

func DefaultListParams() ListParams {
	return ListParams{
		Page:     1,
		PageSize: 20,
	}
}
