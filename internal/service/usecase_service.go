package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/promptlab-dev/promptlab-api/internal/dto"
	"github.com/promptlab-dev/promptlab-api/pkg/ai"
)

// ErrGeneratorUnavailable indicates the AI backend is not configured.
var ErrGeneratorUnavailable = errors.New("generator unavailable")

// ErrUpstreamFailure indicates the AI backend rejected the request or ran out
// of retries.
var ErrUpstreamFailure = errors.New("upstream model call failed")

// UseCaseService generates department-specific AI use cases.
type UseCaseService interface {
	Generate(ctx context.Context, payload dto.GenerateUseCasesRequest) (dto.GenerateUseCasesResponse, error)
}

type useCaseService struct {
	client    ai.Client
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewUseCaseService constructs the use case generation service.
func NewUseCaseService(client ai.Client, validate *validator.Validate, logger zerolog.Logger) UseCaseService {
	return &useCaseService{
		client:    client,
		validator: validate,
		logger:    logger.With().Str("component", "usecase_service").Logger(),
		tracer:    otel.Tracer("github.com/promptlab-dev/promptlab-api/internal/service/usecase"),
	}
}

func (s *useCaseService) Generate(ctx context.Context, payload dto.GenerateUseCasesRequest) (dto.GenerateUseCasesResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.GenerateUseCasesResponse{}, err
	}

	if s.client == nil {
		return dto.GenerateUseCasesResponse{}, ErrGeneratorUnavailable
	}

	department := strings.TrimSpace(payload.Department)

	spanCtx, span := s.tracer.Start(ctx, "usecases.generate", trace.WithAttributes(
		attribute.String("department", department),
	))
	defer span.End()

	useCases, err := s.client.GenerateUseCases(spanCtx, ai.UseCaseInput{
		Department: department,
		Tasks:      strings.TrimSpace(payload.Tasks),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation_failed")
		s.logger.Error().Err(err).Str("department", department).Msg("use case generation failed")
		return dto.GenerateUseCasesResponse{}, errors.Join(ErrUpstreamFailure, err)
	}

	span.SetAttributes(attribute.Int("use_case_count", len(useCases)))

	return dto.GenerateUseCasesResponse{UseCases: useCases}, nil
}
