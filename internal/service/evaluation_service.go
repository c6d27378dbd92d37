package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/promptlab-dev/promptlab-api/internal/dto"
	"github.com/promptlab-dev/promptlab-api/internal/models"
	"github.com/promptlab-dev/promptlab-api/internal/repository"
	"github.com/promptlab-dev/promptlab-api/pkg/ai"
)

// ErrEvaluationNotFound indicates the evaluation cannot be located.
var ErrEvaluationNotFound = errors.New("evaluation not found")

// ErrEvaluationForbidden indicates the caller does not own the evaluation.
var ErrEvaluationForbidden = errors.New("forbidden")

// ErrUseCaseSelection indicates the exactly-one rule for use_case and
// custom_use_case was violated.
var ErrUseCaseSelection = errors.New("exactly one of use_case and custom_use_case must be provided")

// ErrEvaluatorUnavailable indicates the AI evaluator is not configured.
var ErrEvaluatorUnavailable = errors.New("evaluator unavailable")

// EvaluationService scores prompts against the rubric and manages the
// caller's evaluation history.
type EvaluationService interface {
	Evaluate(ctx context.Context, userID uint, payload dto.EvaluatePromptRequest) (dto.EvaluationResponse, error)
	History(ctx context.Context, userID uint) ([]dto.EvaluationResponse, error)
	Get(ctx context.Context, id, userID uint) (dto.EvaluationResponse, error)
}

type evaluationService struct {
	evaluations repository.EvaluationRepository
	users       repository.UserRepository
	client      ai.Client
	feed        FeedPublisher
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewEvaluationService constructs the evaluation service. The feed may be nil
// when no admin live feed is configured.
func NewEvaluationService(evaluationRepo repository.EvaluationRepository, userRepo repository.UserRepository, client ai.Client, feed FeedPublisher, validate *validator.Validate, logger zerolog.Logger) EvaluationService {
	return &evaluationService{
		evaluations: evaluationRepo,
		users:       userRepo,
		client:      client,
		feed:        feed,
		validator:   validate,
		logger:      logger.With().Str("component", "evaluation_service").Logger(),
		tracer:      otel.Tracer("github.com/promptlab-dev/promptlab-api/internal/service/evaluation"),
		now:         time.Now,
	}
}

func (s *evaluationService) Evaluate(ctx context.Context, userID uint, payload dto.EvaluatePromptRequest) (dto.EvaluationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.EvaluationResponse{}, err
	}

	useCase := strings.TrimSpace(payload.UseCase)
	customUseCase := strings.TrimSpace(payload.CustomUseCase)
	prompt := strings.TrimSpace(payload.Prompt)

	if (useCase == "") == (customUseCase == "") {
		return dto.EvaluationResponse{}, ErrUseCaseSelection
	}
	if s.client == nil {
		return dto.EvaluationResponse{}, ErrEvaluatorUnavailable
	}

	useCaseText := useCase
	if useCaseText == "" {
		useCaseText = customUseCase
	}

	spanCtx, span := s.tracer.Start(ctx, "evaluations.evaluate", trace.WithAttributes(
		attribute.Int("user_id", int(userID)),
	))
	defer span.End()

	result, err := s.client.EvaluatePrompt(spanCtx, ai.EvaluationInput{
		UseCase: useCaseText,
		Prompt:  prompt,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation_failed")
		return dto.EvaluationResponse{}, errors.Join(ErrUpstreamFailure, err)
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		span.RecordError(err)
		return dto.EvaluationResponse{}, err
	}

	evaluation := models.PromptEvaluation{
		UserID: userID,
		Prompt: prompt,
		Result: datatypes.JSON(resultJSON),
		Score:  result.Score,
	}
	if useCase != "" {
		evaluation.UseCase = &useCase
	} else {
		evaluation.CustomUseCase = &customUseCase
	}

	response := dto.EvaluationResponse{
		UseCase:       evaluation.UseCase,
		CustomUseCase: evaluation.CustomUseCase,
		Prompt:        prompt,
		Result:        result,
		Score:         result.Score,
		CreatedAt:     s.now(),
	}

	// Persistence failure degrades the response instead of discarding the
	// evaluation the user just paid a model call for.
	if err := s.evaluations.Create(spanCtx, &evaluation); err != nil {
		span.RecordError(err)
		s.logger.Error().Err(err).Uint("user_id", userID).Msg("failed to store evaluation")
		response.Saved = false
		return response, nil
	}

	response.ID = evaluation.ID
	response.Saved = true
	response.CreatedAt = evaluation.CreatedAt
	span.SetAttributes(attribute.Float64("score", result.Score))

	s.publishToFeed(spanCtx, evaluation)

	return response, nil
}

func (s *evaluationService) History(ctx context.Context, userID uint) ([]dto.EvaluationResponse, error) {
	evaluations, err := s.evaluations.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return dto.NewEvaluationResponseSlice(evaluations), nil
}

func (s *evaluationService) Get(ctx context.Context, id, userID uint) (dto.EvaluationResponse, error) {
	evaluation, err := s.evaluations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EvaluationResponse{}, ErrEvaluationNotFound
		}
		return dto.EvaluationResponse{}, err
	}

	if evaluation.UserID != userID {
		return dto.EvaluationResponse{}, ErrEvaluationForbidden
	}

	return dto.NewEvaluationResponse(evaluation), nil
}

func (s *evaluationService) publishToFeed(ctx context.Context, evaluation models.PromptEvaluation) {
	if s.feed == nil {
		return
	}

	var user *models.User
	if s.users != nil {
		if resolved, err := s.users.GetByID(ctx, evaluation.UserID); err == nil {
			user = &resolved
		}
	}

	s.feed.Publish(ctx, dto.NewAdminEvaluationResponse(evaluation, user))
}
