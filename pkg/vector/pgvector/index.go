// Package pgvector backs vector.Index with a Postgres table using the
// pgvector extension and its cosine distance operator.
package pgvector

import (
	"context"
	"fmt"
	"time"

	"aura-chat-be/pkg/vector"

	"github.com/google/uuid"
	pgv "github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MemoryEntry is the row shape of memory_entries.
type MemoryEntry struct {
	Id        uuid.UUID         `gorm:"type:uuid;primaryKey"`
	ChatId    uuid.UUID         `gorm:"type:uuid;not null;index"`
	UserId    uuid.UUID         `gorm:"type:uuid;not null;index"`
	Role      string            `gorm:"type:varchar(10);not null"`
	Text      string            `gorm:"type:text;not null"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb"`
	Embedding pgv.Vector        `gorm:"type:vector(768)"`
	CreatedAt time.Time         `gorm:"autoCreateTime"`
}

func (MemoryEntry) TableName() string {
	return "memory_entries"
}

type Index struct {
	db *gorm.DB
}

var _ vector.Index = (*Index)(nil)

func New(db *gorm.DB) *Index {
	return &Index{db: db}
}

// AutoMigrate creates memory_entries and its HNSW cosine index.
func AutoMigrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("enable vector extension: %w", err)
	}
	if err := db.AutoMigrate(&MemoryEntry{}); err != nil {
		return err
	}
	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_memory_entries_embedding
		ON memory_entries USING hnsw (embedding vector_cosine_ops)`).Error
}

func (i *Index) Upsert(ctx context.Context, entry vector.Entry) error {
	if len(entry.Vector) == 0 {
		return vector.ErrEmptyVector
	}
	row := MemoryEntry{
		Id:        entry.MessageID,
		ChatId:    entry.Metadata.ChatID,
		UserId:    entry.Metadata.UserID,
		Role:      entry.Metadata.Role,
		Text:      entry.Metadata.Text,
		Metadata:  datatypes.JSONMap{"chat": entry.Metadata.ChatID.String(), "user": entry.Metadata.UserID.String()},
		Embedding: pgv.NewVector(entry.Vector),
	}
	return i.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&row).Error
}

func (i *Index) Query(ctx context.Context, vec []float32, k int, filter vector.Filter) ([]vector.Match, error) {
	if err := vector.ValidateQuery(vec, k, filter); err != nil {
		return nil, err
	}

	type result struct {
		MemoryEntry
		Similarity float64
	}
	var results []result

	queryVector := pgv.NewVector(vec)
	err := i.db.WithContext(ctx).Table("memory_entries").
		Select("memory_entries.*, 1 - (embedding <=> ?) as similarity", queryVector).
		Where("user_id = ?", filter.UserID).
		Order("similarity DESC").
		Limit(k).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	matches := make([]vector.Match, len(results))
	for n, r := range results {
		matches[n] = vector.Match{
			MessageID: r.Id,
			Metadata: vector.Metadata{
				ChatID: r.ChatId,
				UserID: r.UserId,
				Text:   r.Text,
				Role:   r.Role,
			},
			Score: float32(r.Similarity),
		}
	}
	return matches, nil
}

func (i *Index) DeleteByChat(ctx context.Context, chatID uuid.UUID) error {
	return i.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&MemoryEntry{}).Error
}
