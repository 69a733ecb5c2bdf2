package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"aura-chat-be/internal/dto"
	"aura-chat-be/internal/entity"
	"aura-chat-be/internal/repository/contract"
	"aura-chat-be/internal/repository/specification"
	"aura-chat-be/internal/repository/unitofwork"
	"aura-chat-be/pkg/events"
	"aura-chat-be/pkg/llm"
	"aura-chat-be/pkg/vector"

	"github.com/google/uuid"
)

// store is an in-memory stand-in for Postgres shared by every fake UoW.
type store struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*entity.User
	chats    map[uuid.UUID]*entity.Chat
	messages map[uuid.UUID]*entity.Message

	failMessageCreate bool
	titleWrites       int
}

func newStore() *store {
	return &store{
		users:    map[uuid.UUID]*entity.User{},
		chats:    map[uuid.UUID]*entity.Chat{},
		messages: map[uuid.UUID]*entity.Message{},
	}
}

func (s *store) chatMessages(chatId uuid.UUID) []*entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Message
	for _, m := range s.messages {
		if m.ChatId == chatId {
			cp := *m
			out = append(out, &cp)
		}
	}
	sortMessages(out)
	return out
}

func sortMessages(msgs []*entity.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].Id.String() < msgs[j].Id.String()
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}

func (s *store) chat(id uuid.UUID) *entity.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.chats[id]; ok {
		cp := *c
		return &cp
	}
	return nil
}

type fakeFactory struct{ s *store }

func (f fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUoW{s: f.s}
}

type fakeUoW struct{ s *store }

func (u *fakeUoW) Begin(ctx context.Context) error { return nil }
func (u *fakeUoW) Commit() error                   { return nil }
func (u *fakeUoW) Rollback() error                 { return nil }

func (u *fakeUoW) UserRepository() contract.UserRepository       { return &fakeUserRepo{s: u.s} }
func (u *fakeUoW) ChatRepository() contract.ChatRepository       { return &fakeChatRepo{s: u.s} }
func (u *fakeUoW) MessageRepository() contract.MessageRepository { return &fakeMessageRepo{s: u.s} }

type fakeUserRepo struct{ s *store }

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *user
	r.s.users[user.Id] = &cp
	return nil
}

// FindOne understands ByEmail only.
func (r *fakeUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, spec := range specs {
		if byEmail, ok := spec.(specification.ByEmail); ok {
			for _, u := range r.s.users {
				if u.Email == byEmail.Email {
					cp := *u
					return &cp, nil
				}
			}
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.users)), nil
}

type fakeChatRepo struct{ s *store }

func (r *fakeChatRepo) Create(ctx context.Context, chat *entity.Chat) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *chat
	r.s.chats[chat.Id] = &cp
	return nil
}

func (r *fakeChatRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.chats, id)
	return nil
}

// FindOne understands ByID only.
func (r *fakeChatRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Chat, error) {
	for _, spec := range specs {
		if byID, ok := spec.(specification.ByID); ok {
			return r.s.chat(byID.ID), nil
		}
	}
	return nil, nil
}

// FindAll understands UserOwnedBy and always sorts by recent activity.
func (r *fakeChatRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var owner uuid.UUID
	for _, spec := range specs {
		if by, ok := spec.(specification.UserOwnedBy); ok {
			owner = by.UserID
		}
	}
	var out []*entity.Chat
	for _, c := range r.s.chats {
		if c.UserId == owner {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivityAt.After(out[j].LastActivityAt) })
	return out, nil
}

func (r *fakeChatRepo) UpdateTitleIfTemporary(ctx context.Context, id uuid.UUID, title string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.chats[id]
	if !ok || !c.IsTemporary {
		return false, nil
	}
	c.Title = title
	c.IsTemporary = false
	r.s.titleWrites++
	return true, nil
}

func (r *fakeChatRepo) TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.chats[id]; ok && c.LastActivityAt.Before(at) {
		c.LastActivityAt = at
	}
	return nil
}

type fakeMessageRepo struct{ s *store }

func (r *fakeMessageRepo) Create(ctx context.Context, message *entity.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failMessageCreate {
		return errors.New("database unavailable")
	}
	cp := *message
	r.s.messages[message.Id] = &cp
	return nil
}

// FindAll understands ByChatID and always sorts chronologically.
func (r *fakeMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error) {
	for _, spec := range specs {
		if by, ok := spec.(specification.ByChatID); ok {
			return r.s.chatMessages(by.ChatID), nil
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	msgs, _ := r.FindAll(ctx, specs...)
	return int64(len(msgs)), nil
}

func (r *fakeMessageRepo) FindRecentByChat(ctx context.Context, chatId uuid.UUID, limit int) ([]*entity.Message, error) {
	msgs := r.s.chatMessages(chatId)
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (r *fakeMessageRepo) UserMessageRank(ctx context.Context, message *entity.Message) (int64, error) {
	var rank int64
	for _, m := range r.s.chatMessages(message.ChatId) {
		if m.Role != entity.MessageRoleUser {
			continue
		}
		rank++
		if m.Id == message.Id {
			return rank, nil
		}
	}
	return rank, nil
}

func (r *fakeMessageRepo) UpdateImage(ctx context.Context, id uuid.UUID, imageURL string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.messages[id]
	if !ok {
		return errors.New("message not found")
	}
	m.Image = &imageURL
	return nil
}

func (r *fakeMessageRepo) DeleteByChat(ctx context.Context, chatId uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, m := range r.s.messages {
		if m.ChatId == chatId {
			delete(r.s.messages, id)
		}
	}
	return nil
}

// fakeEmbedder maps text to a deterministic 3-d vector keyed on its first byte.
type fakeEmbedder struct {
	err error
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	b := float32(text[0])
	return []float32{b, 1, float32(len(text))}, nil
}

func (e *fakeEmbedder) Dimension() int { return 3 }

// fakeLLM records every Chat call and answers with reply, or fails with err.
type fakeLLM struct {
	mu       sync.Mutex
	reply    string
	title    string
	err      error
	titleErr error
	calls    [][]llm.Message
	options  []llm.Options
	titles   int
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, history)
	f.options = append(f.options, llm.ApplyOptions(llm.Options{}, opts...))
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles++
	if f.titleErr != nil {
		return "", f.titleErr
	}
	return f.title, nil
}

func (f *fakeLLM) lastCall() ([]llm.Message, llm.Options) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1], f.options[len(f.options)-1]
}

// syncIndexer writes straight into the index so tests need no queue.
type syncIndexer struct {
	index    vector.Index
	embedder *fakeEmbedder
	mu       sync.Mutex
	jobs     []dto.PublishMemoryIndexMessage
}

func (i *syncIndexer) Enqueue(ctx context.Context, job dto.PublishMemoryIndexMessage) error {
	i.mu.Lock()
	i.jobs = append(i.jobs, job)
	i.mu.Unlock()

	vec := job.Vector
	if len(vec) == 0 {
		var err error
		if vec, err = i.embedder.Embed(ctx, job.Text); err != nil {
			return err
		}
	}
	return i.index.Upsert(ctx, vector.Entry{
		MessageID: job.MessageId,
		Vector:    vec,
		Metadata:  vector.Metadata{ChatID: job.ChatId, UserID: job.UserId, Text: job.Text, Role: job.Role},
	})
}

type fakeUploader struct {
	url string
	err error
}

func (u *fakeUploader) Upload(ctx context.Context, data []byte, fileName, mimeType string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	return u.url, nil
}

type emitted struct {
	Event string
	Data  interface{}
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (e *recordingEmitter) Emit(event string, data interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, emitted{Event: event, Data: data})
}

func (e *recordingEmitter) all() []emitted {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]emitted(nil), e.events...)
}

func (e *recordingEmitter) byEvent(name string) []interface{} {
	var out []interface{}
	for _, ev := range e.all() {
		if ev.Event == name {
			out = append(out, ev.Data)
		}
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(ctx context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt.EventType())
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}
