package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"aura-chat-be/internal/constant"
	"aura-chat-be/internal/dto"
	"aura-chat-be/internal/entity"
	"aura-chat-be/internal/pkg/logger"
	"aura-chat-be/internal/pkg/serverutils"
	"aura-chat-be/internal/repository/memory"
	"aura-chat-be/internal/repository/unitofwork"
	"aura-chat-be/pkg/embedding"
	"aura-chat-be/pkg/events"
	"aura-chat-be/pkg/imaging"
	"aura-chat-be/pkg/llm"
	"aura-chat-be/pkg/storage"
	"aura-chat-be/pkg/vector"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("aura-chat-backend/turn")

// Emitter delivers server events to the client that started a turn.
type Emitter interface {
	Emit(event string, data interface{})
}

type ITurnService interface {
	TextTurn(ctx context.Context, userId uuid.UUID, req *dto.TextTurnRequest, emit Emitter) error
	ImageTurn(ctx context.Context, userId uuid.UUID, req *dto.ImageTurnRequest, emit Emitter) error
	// ImageTurnSync runs an image turn and waits for the upload before answering.
	ImageTurnSync(ctx context.Context, userId, chatId uuid.UUID, prompt, mode string, data []byte) (*dto.ImageTurnResponse, error)
	// Wait blocks until all background work started by earlier turns is done.
	Wait()
}

type TurnConfig struct {
	ChatModel         string
	ThinkingModel     string
	TitleModel        string
	Temperature       float64
	HistoryLimit      int
	MemoryTopK        int
	TitleMaxLength    int
	FallbackPreview   int
	GenerationTimeout time.Duration
	EmbeddingTimeout  time.Duration
	VectorTimeout     time.Duration
	StoreTimeout      time.Duration
	UploadTimeout     time.Duration
	BackgroundTimeout time.Duration
}

type TurnDependencies struct {
	UowFactory unitofwork.RepositoryFactory
	Embedder   embedding.EmbeddingProvider
	LLM        llm.LLMProvider
	Index      vector.Index
	Indexer    IMemoryIndexer
	Uploader   storage.Uploader
	Processor  *imaging.Processor
	Cache      *memory.ChatAccessCache
	Events     events.Publisher
	Logger     logger.ILogger
}

type turnService struct {
	cfg        TurnConfig
	uowFactory unitofwork.RepositoryFactory
	embedder   embedding.EmbeddingProvider
	llm        llm.LLMProvider
	generator  *llm.Generator
	index      vector.Index
	indexer    IMemoryIndexer
	uploader   storage.Uploader
	processor  *imaging.Processor
	cache      *memory.ChatAccessCache
	access     *chatAuthorizer
	events     events.Publisher
	background *backgroundRunner
	logger     logger.ILogger
	now        func() time.Time
}

func NewTurnService(cfg TurnConfig, deps TurnDependencies) ITurnService {
	return &turnService{
		cfg:        cfg,
		uowFactory: deps.UowFactory,
		embedder:   deps.Embedder,
		llm:        deps.LLM,
		generator:  llm.NewGenerator(deps.LLM, cfg.GenerationTimeout, cfg.FallbackPreview),
		index:      deps.Index,
		indexer:    deps.Indexer,
		uploader:   deps.Uploader,
		processor:  deps.Processor,
		cache:      deps.Cache,
		access:     newChatAuthorizer(deps.UowFactory, deps.Cache, cfg.StoreTimeout),
		events:     deps.Events,
		background: newBackgroundRunner(cfg.BackgroundTimeout, deps.Logger),
		logger:     deps.Logger,
		now:        time.Now,
	}
}

type turnInput struct {
	userId     uuid.UUID
	chatId     uuid.UUID
	text       string
	mode       string
	image      *imaging.Image
	syncUpload bool
}

type turnResult struct {
	reply    llm.Reply
	title    string
	imageURL string
	userMsg  *entity.Message
	modelMsg *entity.Message
}

func (s *turnService) TextTurn(ctx context.Context, userId uuid.UUID, req *dto.TextTurnRequest, emit Emitter) error {
	ctx, span := tracer.Start(ctx, "turn.text", trace.WithAttributes(
		attribute.String("chat_id", req.ChatId.String()),
		attribute.String("mode", req.Mode),
	))
	defer span.End()

	in := turnInput{userId: userId, chatId: req.ChatId, text: strings.TrimSpace(req.Content), mode: req.Mode}
	res, err := s.runTurn(ctx, in)
	if err != nil {
		s.fail(span, in, err)
		emit.Emit(constant.EventAIResponse, dto.AIResponsePayload{Content: constant.ChatGenericErrorReply, Chat: req.ChatId})
		return err
	}

	emit.Emit(constant.EventAIResponse, dto.AIResponsePayload{
		Content: res.reply.Text,
		Chat:    req.ChatId,
		Title:   res.title,
	})
	s.finishTurn(ctx, in, res)
	return nil
}

func (s *turnService) ImageTurn(ctx context.Context, userId uuid.UUID, req *dto.ImageTurnRequest, emit Emitter) error {
	ctx, span := tracer.Start(ctx, "turn.image", trace.WithAttributes(
		attribute.String("chat_id", req.ChatId.String()),
		attribute.String("mode", req.Mode),
	))
	defer span.End()

	in := turnInput{userId: userId, chatId: req.ChatId, text: strings.TrimSpace(req.Content), mode: req.Mode}
	failed := dto.AIResponsePayload{Content: constant.ChatGenericErrorReply, Chat: req.ChatId, PreviewId: req.PreviewId}

	data, hint, err := imaging.DecodePayload(req.Image)
	if err != nil {
		s.fail(span, in, err)
		emit.Emit(constant.EventAIResponse, failed)
		return err
	}
	img, err := s.processor.Process(data)
	if err != nil {
		s.fail(span, in, err)
		emit.Emit(constant.EventAIResponse, failed)
		return err
	}
	if hint != "" && hint != img.MimeType {
		s.logger.Debug("TurnService", "Declared image type differs from content", map[string]interface{}{
			"chat_id":  req.ChatId,
			"declared": hint,
			"detected": img.MimeType,
		})
	}
	in.image = &img

	res, err := s.runTurn(ctx, in)
	if err != nil {
		s.fail(span, in, err)
		emit.Emit(constant.EventAIResponse, failed)
		return err
	}

	emit.Emit(constant.EventAIResponse, dto.AIResponsePayload{
		Content:   res.reply.Text,
		Chat:      req.ChatId,
		PreviewId: req.PreviewId,
		Title:     res.title,
	})
	s.finishTurn(ctx, in, res)

	fields := logFields(res.userMsg)
	s.background.Go(ctx, "image_upload", fields, func(bctx context.Context) error {
		url, err := s.uploadImage(bctx, res.userMsg, img)
		if err != nil {
			emit.Emit(constant.EventImageUploadError, dto.ImageUploadErrorPayload{
				Chat:      req.ChatId,
				Error:     constant.ChatImageUploadFailed,
				PreviewId: req.PreviewId,
			})
			return err
		}
		emit.Emit(constant.EventImageUploaded, dto.ImageUploadedPayload{
			Chat:      req.ChatId,
			ImageData: url,
			PreviewId: req.PreviewId,
		})
		return nil
	})
	return nil
}

func (s *turnService) ImageTurnSync(ctx context.Context, userId, chatId uuid.UUID, prompt, mode string, data []byte) (*dto.ImageTurnResponse, error) {
	ctx, span := tracer.Start(ctx, "turn.image_sync", trace.WithAttributes(attribute.String("chat_id", chatId.String())))
	defer span.End()

	in := turnInput{userId: userId, chatId: chatId, text: strings.TrimSpace(prompt), mode: mode, syncUpload: true}
	img, err := s.processor.Process(data)
	if err != nil {
		s.fail(span, in, err)
		return nil, serverutils.NewBadRequestError("invalid image")
	}
	in.image = &img

	res, err := s.runTurn(ctx, in)
	if err != nil {
		s.fail(span, in, err)
		if errors.Is(err, ErrChatNotFound) {
			return nil, serverutils.NewNotFoundError(constant.ChatNotFoundMessage)
		}
		return nil, serverutils.NewInternalError(constant.ChatGenericErrorReply, err)
	}
	s.finishTurn(ctx, in, res)

	return &dto.ImageTurnResponse{
		Chat:      chatId,
		Content:   res.reply.Text,
		ImageData: res.imageURL,
		Title:     res.title,
		MimeType:  img.MimeType,
	}, nil
}

func (s *turnService) Wait() {
	s.background.Wait()
}

// runTurn does everything up to the reply. Only a failure to persist the
// user message (or to resolve the chat) is returned as an error.
func (s *turnService) runTurn(ctx context.Context, in turnInput) (*turnResult, error) {
	access, err := s.access.Authorize(ctx, in.userId, in.chatId)
	if err != nil {
		return nil, err
	}

	userMsg := &entity.Message{
		Id:        uuid.New(),
		ChatId:    in.chatId,
		UserId:    in.userId,
		Role:      entity.MessageRoleUser,
		Content:   in.text,
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}
	if in.image != nil && in.text != "" {
		prompt := in.text
		userMsg.Prompt = &prompt
	}
	fields := logFields(userMsg)

	// Persisting the prompt and embedding it are independent.
	var vec []float32
	g1, gctx := errgroup.WithContext(ctx)
	g1.Go(func() error {
		sctx, cancel := withTimeout(gctx, s.cfg.StoreTimeout)
		defer cancel()
		return s.uowFactory.NewUnitOfWork(sctx).MessageRepository().Create(sctx, userMsg)
	})
	g1.Go(func() error {
		vec = s.embed(gctx, in.text, fields)
		return nil
	})
	if err := g1.Wait(); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	var (
		neighbors []vector.Match
		history   []*entity.Message
		firstTurn bool
	)
	g2 := new(errgroup.Group)
	if len(vec) > 0 {
		g2.Go(func() error {
			neighbors = s.recall(ctx, vec, userMsg, fields)
			return nil
		})
		g2.Go(func() error {
			s.enqueue(ctx, userMsg, vec, fields)
			return nil
		})
	}
	g2.Go(func() error {
		history = s.history(ctx, userMsg, fields)
		return nil
	})
	if access.IsTemporary {
		g2.Go(func() error {
			firstTurn = s.isFirstUserMessage(ctx, userMsg, fields)
			return nil
		})
	}
	_ = g2.Wait()

	res := &turnResult{userMsg: userMsg}
	g3 := new(errgroup.Group)
	g3.Go(func() error {
		res.reply = s.generator.Reply(ctx, llm.ReplyRequest{
			Messages: s.buildConversation(neighbors, history, userMsg, in),
			Prompt:   in.text,
			HasImage: in.image != nil,
			Options:  s.generationOptions(in.mode),
		})
		return nil
	})
	if firstTurn {
		g3.Go(func() error {
			res.title = s.deriveTitle(ctx, in, fields)
			return nil
		})
	}
	if in.syncUpload && in.image != nil {
		g3.Go(func() error {
			url, err := s.uploadImage(ctx, userMsg, *in.image)
			if err != nil {
				s.logger.Warn("TurnService", "Image upload failed", merge(fields, map[string]interface{}{
					"stage": "image_upload",
					"error": err,
				}))
				return nil
			}
			res.imageURL = url
			return nil
		})
	}
	_ = g3.Wait()

	if res.reply.Degraded {
		s.logger.Warn("TurnService", "Generation degraded, sent fallback reply", merge(fields, map[string]interface{}{
			"stage": "generate",
			"error": res.reply.Err,
		}))
	}

	modelAt := s.now().UTC().Truncate(time.Microsecond)
	if !modelAt.After(userMsg.CreatedAt) {
		modelAt = userMsg.CreatedAt.Add(time.Microsecond)
	}
	res.modelMsg = &entity.Message{
		Id:        uuid.New(),
		ChatId:    in.chatId,
		UserId:    in.userId,
		Role:      entity.MessageRoleModel,
		Content:   res.reply.Text,
		CreatedAt: modelAt,
	}
	return res, nil
}

// finishTurn persists the reply after it has been emitted.
func (s *turnService) finishTurn(ctx context.Context, in turnInput, res *turnResult) {
	modelMsg := res.modelMsg
	s.background.Go(ctx, "persist_model_message", logFields(modelMsg), func(bctx context.Context) error {
		if err := s.uowFactory.NewUnitOfWork(bctx).MessageRepository().Create(bctx, modelMsg); err != nil {
			return err
		}
		if !res.reply.Degraded {
			s.enqueue(bctx, modelMsg, nil, logFields(modelMsg))
		}
		if err := s.uowFactory.NewUnitOfWork(bctx).ChatRepository().TouchActivity(bctx, in.chatId, modelMsg.CreatedAt); err != nil {
			s.logger.Warn("TurnService", "Failed to update chat activity", merge(logFields(modelMsg), map[string]interface{}{
				"stage": "touch_activity",
				"error": err,
			}))
		}
		publish(bctx, s.events, s.logger, events.New(events.TypeTurnCompleted, map[string]interface{}{
			"chat_id":   in.chatId.String(),
			"user_id":   in.userId.String(),
			"degraded":  res.reply.Degraded,
			"has_image": in.image != nil,
		}))
		return nil
	})
}

func (s *turnService) embed(ctx context.Context, text string, fields map[string]interface{}) []float32 {
	if text == "" {
		return nil
	}
	ectx, cancel := withTimeout(ctx, s.cfg.EmbeddingTimeout)
	defer cancel()

	vec, err := s.embedder.Embed(ectx, text)
	if err != nil {
		s.logger.Warn("TurnService", "Embedding failed, continuing without memory", merge(fields, map[string]interface{}{
			"stage": "embed",
			"error": err,
		}))
		return nil
	}
	return vec
}

func (s *turnService) recall(ctx context.Context, vec []float32, userMsg *entity.Message, fields map[string]interface{}) []vector.Match {
	vctx, cancel := withTimeout(ctx, s.cfg.VectorTimeout)
	defer cancel()

	// One extra so the prompt itself can be dropped if already indexed.
	matches, err := s.index.Query(vctx, vec, s.cfg.MemoryTopK+1, vector.Filter{UserID: userMsg.UserId})
	if err != nil {
		s.logger.Warn("TurnService", "Memory query failed", merge(fields, map[string]interface{}{
			"stage": "memory_query",
			"error": err,
		}))
		return nil
	}

	out := make([]vector.Match, 0, s.cfg.MemoryTopK)
	for _, m := range matches {
		if m.MessageID == userMsg.Id || m.Metadata.UserID != userMsg.UserId {
			continue
		}
		if len(out) == s.cfg.MemoryTopK {
			break
		}
		out = append(out, m)
	}
	return out
}

func (s *turnService) enqueue(ctx context.Context, msg *entity.Message, vec []float32, fields map[string]interface{}) {
	if s.indexer == nil || strings.TrimSpace(msg.Content) == "" {
		return
	}
	err := s.indexer.Enqueue(ctx, dto.PublishMemoryIndexMessage{
		MessageId: msg.Id,
		ChatId:    msg.ChatId,
		UserId:    msg.UserId,
		Role:      string(msg.Role),
		Text:      msg.Content,
		Vector:    vec,
	})
	if err != nil {
		s.logger.Warn("TurnService", "Failed to queue memory indexing", merge(fields, map[string]interface{}{
			"stage": "memory_enqueue",
			"error": err,
		}))
	}
}

func (s *turnService) history(ctx context.Context, userMsg *entity.Message, fields map[string]interface{}) []*entity.Message {
	sctx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	msgs, err := s.uowFactory.NewUnitOfWork(sctx).MessageRepository().FindRecentByChat(sctx, userMsg.ChatId, s.cfg.HistoryLimit)
	if err != nil {
		s.logger.Warn("TurnService", "History fetch failed, answering from the prompt only", merge(fields, map[string]interface{}{
			"stage": "history",
			"error": err,
		}))
		return nil
	}
	return msgs
}

func (s *turnService) isFirstUserMessage(ctx context.Context, userMsg *entity.Message, fields map[string]interface{}) bool {
	sctx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	rank, err := s.uowFactory.NewUnitOfWork(sctx).MessageRepository().UserMessageRank(sctx, userMsg)
	if err != nil {
		s.logger.Warn("TurnService", "Failed to count chat messages", merge(fields, map[string]interface{}{
			"stage": "title_check",
			"error": err,
		}))
		return false
	}
	return rank == 1
}

// buildConversation lays out the memory turn, then the short-term history
// oldest first, ending with the current prompt.
func (s *turnService) buildConversation(neighbors []vector.Match, history []*entity.Message, userMsg *entity.Message, in turnInput) []llm.Message {
	conv := make([]llm.Message, 0, len(history)+2)

	if len(neighbors) > 0 {
		texts := make([]string, 0, len(neighbors))
		for _, n := range neighbors {
			texts = append(texts, n.Metadata.Text)
		}
		conv = append(conv, llm.Message{
			Role:    llm.RoleUser,
			Content: constant.LongTermMemoryPreamble + strings.Join(texts, "\n"),
		})
	}

	if len(history) > s.cfg.HistoryLimit {
		history = history[len(history)-s.cfg.HistoryLimit:]
	}
	sawCurrent := false
	for _, m := range history {
		if m.Id == userMsg.Id {
			sawCurrent = true
			conv = append(conv, s.currentTurn(userMsg, in))
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		role := llm.RoleUser
		if m.Role == entity.MessageRoleModel {
			role = llm.RoleModel
		}
		conv = append(conv, llm.Message{Role: role, Content: m.Content})
	}
	if !sawCurrent {
		conv = append(conv, s.currentTurn(userMsg, in))
	}
	return conv
}

func (s *turnService) currentTurn(userMsg *entity.Message, in turnInput) llm.Message {
	msg := llm.Message{Role: llm.RoleUser, Content: userMsg.Content}
	if in.image != nil {
		msg.Images = []llm.InlineImage{{Data: in.image.Data, MimeType: in.image.MimeType}}
		if msg.Content == "" {
			msg.Content = constant.ChatImageDefaultQuery
		}
	}
	return msg
}

func (s *turnService) generationOptions(mode string) []llm.Option {
	model := s.cfg.ChatModel
	if mode == constant.ChatModeThinking && s.cfg.ThinkingModel != "" {
		model = s.cfg.ThinkingModel
	}
	return []llm.Option{
		llm.WithModel(model),
		llm.WithTemperature(s.cfg.Temperature),
		llm.WithSystemInstruction(constant.AuraPersona),
	}
}

// deriveTitle names the chat from its first prompt. It returns the title only
// when this call was the one that moved the chat out of temporary.
func (s *turnService) deriveTitle(ctx context.Context, in turnInput, fields map[string]interface{}) string {
	title := constant.ChatImageTitleSeed
	if in.text != "" {
		tctx, cancel := withTimeout(ctx, s.cfg.GenerationTimeout)
		raw, err := s.llm.Generate(tctx, fmt.Sprintf(constant.ChatTitlePrompt, in.text),
			llm.WithModel(s.cfg.TitleModel),
			llm.WithTemperature(0.3),
			llm.WithMaxTokens(32),
		)
		cancel()
		if err != nil {
			s.logger.Warn("TurnService", "Title generation failed, chat stays temporary", merge(fields, map[string]interface{}{
				"stage": "title",
				"error": err,
			}))
			return ""
		}
		title = SanitizeTitle(raw, s.cfg.TitleMaxLength)
		if title == "" {
			return ""
		}
	}

	sctx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	won, err := s.uowFactory.NewUnitOfWork(sctx).ChatRepository().UpdateTitleIfTemporary(sctx, in.chatId, title)
	if err != nil {
		s.logger.Warn("TurnService", "Failed to store chat title", merge(fields, map[string]interface{}{
			"stage": "title",
			"error": err,
		}))
		return ""
	}
	s.cache.MarkTitled(in.chatId)
	if !won {
		return ""
	}
	return title
}

func (s *turnService) uploadImage(ctx context.Context, userMsg *entity.Message, img imaging.Image) (string, error) {
	uctx, cancel := withTimeout(ctx, s.cfg.UploadTimeout)
	defer cancel()

	name := storage.FileName(constant.ImageUploadFilePrefix, img.Extension)
	url, err := s.uploader.Upload(uctx, img.Data, name, img.MimeType)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}

	sctx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	if err := s.uowFactory.NewUnitOfWork(sctx).MessageRepository().UpdateImage(sctx, userMsg.Id, url); err != nil {
		return "", fmt.Errorf("attach image: %w", err)
	}
	return url, nil
}

func (s *turnService) fail(span trace.Span, in turnInput, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "turn failed")
	s.logger.Error("TurnService", "Turn failed", map[string]interface{}{
		"chat_id": in.chatId,
		"user_id": in.userId,
		"stage":   "turn",
		"error":   err,
	})
}

// SanitizeTitle keeps the first line of a model-written title, strips quotes
// and trailing punctuation and caps it at limit runes.
func SanitizeTitle(raw string, limit int) string {
	line, _, _ := strings.Cut(strings.TrimSpace(raw), "\n")
	line = strings.TrimPrefix(strings.TrimSpace(line), "Title:")
	line = strings.Trim(strings.TrimSpace(line), "\"'`*#")
	line = strings.TrimRightFunc(line, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	line = strings.Join(strings.Fields(line), " ")

	if r := []rune(line); limit > 0 && len(r) > limit {
		line = strings.TrimSpace(string(r[:limit]))
	}
	return line
}

func logFields(msg *entity.Message) map[string]interface{} {
	return map[string]interface{}{
		"chat_id":    msg.ChatId,
		"message_id": msg.Id,
		"user_id":    msg.UserId,
	}
}
