package service

import (
	"context"
	"strings"
	"time"

	"aura-chat-be/internal/dto"
	"aura-chat-be/internal/entity"
	"aura-chat-be/internal/pkg/logger"
	"aura-chat-be/internal/pkg/serverutils"
	"aura-chat-be/internal/repository/specification"
	"aura-chat-be/internal/repository/unitofwork"
	"aura-chat-be/pkg/events"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	authUserExistsMessage   = "user already exists!"
	authInvalidLoginMessage = "Invalid email or password"
)

type IAuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
}

type authService struct {
	uowFactory     unitofwork.RepositoryFactory
	tokens         *serverutils.TokenVerifier
	eventPublisher events.Publisher
	logger         logger.ILogger
}

func NewAuthService(uowFactory unitofwork.RepositoryFactory, tokens *serverutils.TokenVerifier, eventPublisher events.Publisher, log logger.ILogger) IAuthService {
	return &authService{
		uowFactory:     uowFactory,
		tokens:         tokens,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	uow := s.uowFactory.NewUnitOfWork(ctx)

	existing, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: email})
	if err != nil {
		return nil, serverutils.NewInternalError("failed to register user", err)
	}
	if existing != nil {
		return nil, serverutils.NewBadRequestError(authUserExistsMessage)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, serverutils.NewInternalError("failed to register user", err)
	}

	now := time.Now()
	user := &entity.User{
		Id:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(req.FullName.FirstName),
		LastName:     strings.TrimSpace(req.FullName.LastName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uow.UserRepository().Create(ctx, user); err != nil {
		return nil, serverutils.NewInternalError("failed to register user", err)
	}

	res, err := s.authResponse(user)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.eventPublisher, s.logger, events.New(events.TypeUserRegistered, map[string]interface{}{
		"user_id": user.Id.String(),
		"email":   user.Email,
	}))
	return res, nil
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: email})
	if err != nil {
		return nil, serverutils.NewInternalError("failed to login", err)
	}
	if user == nil {
		return nil, serverutils.NewConflictError(authInvalidLoginMessage)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, serverutils.NewConflictError(authInvalidLoginMessage)
	}
	return s.authResponse(user)
}

func (s *authService) authResponse(user *entity.User) (*dto.AuthResponse, error) {
	token, err := s.tokens.Issue(user.Id)
	if err != nil {
		return nil, serverutils.NewInternalError("failed to issue token", err)
	}
	return &dto.AuthResponse{
		Token: token,
		User: dto.UserResponse{
			Id:    user.Id,
			Email: user.Email,
			FullName: dto.FullName{
				FirstName: user.FirstName,
				LastName:  user.LastName,
			},
		},
	}, nil
}

// publish is best-effort: a missing bus or a failed publish only logs.
func publish(ctx context.Context, p events.Publisher, log logger.ILogger, evt events.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, evt); err != nil {
		log.Warn("Events", "Failed to publish event", map[string]interface{}{
			"type":  evt.EventType(),
			"error": err,
		})
	}
}
