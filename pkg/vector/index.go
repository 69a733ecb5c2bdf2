// Package vector stores message embeddings and answers tenant-scoped
// nearest-neighbour queries by cosine similarity.
package vector

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrMissingTenant = errors.New("vector: query requires a user filter")
	ErrEmptyVector   = errors.New("vector: empty vector")
)

type Metadata struct {
	ChatID uuid.UUID
	UserID uuid.UUID
	Text   string
	Role   string
}

// Entry is one memory record, keyed by the message it was derived from.
type Entry struct {
	MessageID uuid.UUID
	Vector    []float32
	Metadata  Metadata
}

// Filter scopes a query. UserID is mandatory.
type Filter struct {
	UserID uuid.UUID
}

func (f Filter) Validate() error {
	if f.UserID == uuid.Nil {
		return ErrMissingTenant
	}
	return nil
}

// Match is a query hit. Score is cosine similarity, higher is closer.
type Match struct {
	MessageID uuid.UUID
	Metadata  Metadata
	Score     float32
}

type Index interface {
	// Upsert stores an entry; writing the same MessageID twice keeps one record.
	Upsert(ctx context.Context, entry Entry) error
	// Query returns at most k matches ranked by descending Score.
	Query(ctx context.Context, vector []float32, k int, filter Filter) ([]Match, error)
	DeleteByChat(ctx context.Context, chatID uuid.UUID) error
}

// ValidateQuery checks the arguments every backend shares.
func ValidateQuery(vector []float32, k int, filter Filter) error {
	if err := filter.Validate(); err != nil {
		return err
	}
	if len(vector) == 0 {
		return ErrEmptyVector
	}
	if k <= 0 {
		return errors.New("vector: k must be positive")
	}
	return nil
}
