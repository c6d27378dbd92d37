package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/promptlab-dev/promptlab-api/internal/dto"
	"github.com/promptlab-dev/promptlab-api/internal/repository"
)

// ErrEditSessionNotFound indicates the token is unknown, expired or already
// consumed.
var ErrEditSessionNotFound = errors.New("edit session not found")

const editSessionKeyPrefix = "edit_session:"

// EditSessionService hands a prior evaluation back to the form for editing.
// Sessions are single-use: consuming a token removes it.
type EditSessionService interface {
	Create(ctx context.Context, evaluationID, userID uint) (dto.EditSessionTokenResponse, error)
	Consume(ctx context.Context, token string, userID uint) (dto.EditSession, error)
}

type editSessionRecord struct {
	UserID  uint            `json:"user_id"`
	Session dto.EditSession `json:"session"`
}

type editSessionService struct {
	evaluations repository.EvaluationRepository
	redis       *redis.Client
	ttl         time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewEditSessionService constructs the edit session service.
func NewEditSessionService(evaluationRepo repository.EvaluationRepository, redisClient *redis.Client, ttl time.Duration, logger zerolog.Logger) EditSessionService {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &editSessionService{
		evaluations: evaluationRepo,
		redis:       redisClient,
		ttl:         ttl,
		logger:      logger.With().Str("component", "edit_session_service").Logger(),
		now:         time.Now,
	}
}

func (s *editSessionService) Create(ctx context.Context, evaluationID, userID uint) (dto.EditSessionTokenResponse, error) {
	evaluation, err := s.evaluations.GetByID(ctx, evaluationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EditSessionTokenResponse{}, ErrEvaluationNotFound
		}
		return dto.EditSessionTokenResponse{}, err
	}

	if evaluation.UserID != userID {
		return dto.EditSessionTokenResponse{}, ErrEvaluationForbidden
	}

	record := editSessionRecord{
		UserID: userID,
		Session: dto.EditSession{
			EvaluationID:  evaluation.ID,
			UseCase:       evaluation.UseCase,
			CustomUseCase: evaluation.CustomUseCase,
			Prompt:        evaluation.Prompt,
		},
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return dto.EditSessionTokenResponse{}, err
	}

	token := uuid.NewString()
	if err := s.redis.Set(ctx, editSessionKeyPrefix+token, payload, s.ttl).Err(); err != nil {
		return dto.EditSessionTokenResponse{}, err
	}

	return dto.EditSessionTokenResponse{
		Token:     token,
		ExpiresAt: s.now().Add(s.ttl),
	}, nil
}

func (s *editSessionService) Consume(ctx context.Context, token string, userID uint) (dto.EditSession, error) {
	// GETDEL gives the one-time-consume semantics: a second read of the same
	// token behaves exactly like an expired one.
	payload, err := s.redis.GetDel(ctx, editSessionKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return dto.EditSession{}, ErrEditSessionNotFound
		}
		return dto.EditSession{}, err
	}

	var record editSessionRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		s.logger.Error().Err(err).Msg("corrupt edit session payload")
		return dto.EditSession{}, ErrEditSessionNotFound
	}

	if record.UserID != userID {
		return dto.EditSession{}, ErrEvaluationForbidden
	}

	return record.Session, nil
}
