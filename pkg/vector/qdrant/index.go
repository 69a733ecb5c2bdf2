// Package qdrant backs vector.Index with a Qdrant collection over gRPC.
package qdrant

import (
	"context"
	"fmt"

	"aura-chat-be/pkg/vector"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const (
	payloadChat = "chat_id"
	payloadUser = "user_id"
	payloadText = "text"
	payloadRole = "role"
)

type Index struct {
	client     *qdrant.Client
	collection string
	dim        int
}

var _ vector.Index = (*Index)(nil)

func New(host string, port int, collection string, dim int) (*Index, error) {
	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("qdrant client: %w", err)
	}
	return &Index{client: client, collection: collection, dim: dim}, nil
}

// EnsureCollection creates the collection with cosine distance when absent.
func (i *Index) EnsureCollection(ctx context.Context) error {
	names, err := i.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	for _, n := range names {
		if n == i.collection {
			return nil
		}
	}
	return i.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: i.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(i.dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

func (i *Index) Close() error {
	return i.client.Close()
}

func (i *Index) Upsert(ctx context.Context, entry vector.Entry) error {
	if len(entry.Vector) == 0 {
		return vector.ErrEmptyVector
	}
	_, err := i.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: i.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(entry.MessageID.String()),
			Vectors: qdrant.NewVectors(entry.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadChat: entry.Metadata.ChatID.String(),
				payloadUser: entry.Metadata.UserID.String(),
				payloadText: entry.Metadata.Text,
				payloadRole: entry.Metadata.Role,
			}),
		}},
	})
	return err
}

func (i *Index) Query(ctx context.Context, vec []float32, k int, filter vector.Filter) ([]vector.Match, error) {
	if err := vector.ValidateQuery(vec, k, filter); err != nil {
		return nil, err
	}
	limit := uint64(k)
	points, err := i.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: i.collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          &limit,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(payloadUser, filter.UserID.String())},
		},
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}

	matches := make([]vector.Match, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		id, err := uuid.Parse(p.GetId().GetUuid())
		if err != nil {
			continue
		}
		matches = append(matches, vector.Match{
			MessageID: id,
			Metadata: vector.Metadata{
				ChatID: parseUUID(payload[payloadChat].GetStringValue()),
				UserID: parseUUID(payload[payloadUser].GetStringValue()),
				Text:   payload[payloadText].GetStringValue(),
				Role:   payload[payloadRole].GetStringValue(),
			},
			Score: p.GetScore(),
		})
	}
	return matches, nil
}

func (i *Index) DeleteByChat(ctx context.Context, chatID uuid.UUID) error {
	_, err := i.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: i.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{qdrant.NewMatch(payloadChat, chatID.String())},
				},
			},
		},
	})
	return err
}

func parseUUID(s string) uuid.UUID {
	id, _ := uuid.Parse(s)
	return id
}
