package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/promptlab-dev/promptlab-api/internal/dto"
	"github.com/promptlab-dev/promptlab-api/internal/models"
	"github.com/promptlab-dev/promptlab-api/internal/repository"
)

// AdminService aggregates recent evaluations for the admin dashboard.
type AdminService interface {
	RecentEvaluations(ctx context.Context) ([]dto.AdminEvaluationResponse, error)
	Summary(ctx context.Context) (dto.AdminSummaryResponse, error)
}

type adminService struct {
	evaluations repository.EvaluationRepository
	users       repository.UserRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	window      time.Duration
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAdminService constructs the admin rollup service. The cache is optional.
func NewAdminService(evaluationRepo repository.EvaluationRepository, userRepo repository.UserRepository, cache *redis.Client, cacheTTL, window time.Duration, logger zerolog.Logger) AdminService {
	if window <= 0 {
		window = 24 * time.Hour
	}

	return &adminService{
		evaluations: evaluationRepo,
		users:       userRepo,
		cache:       cache,
		cacheTTL:    cacheTTL,
		window:      window,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "admin_service").Logger(),
		now:         time.Now,
	}
}

func (s *adminService) RecentEvaluations(ctx context.Context) ([]dto.AdminEvaluationResponse, error) {
	tracer := otel.Tracer("github.com/promptlab-dev/promptlab-api/internal/service/admin")
	ctx, span := tracer.Start(ctx, "admin.recent_evaluations")
	defer span.End()

	evaluations, err := s.evaluations.ListRecent(ctx, s.window)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_recent_failed")
		return nil, err
	}

	users, err := s.resolveUsers(ctx, evaluations)
	if err != nil {
		// A broken identity lookup should not blank the whole dashboard.
		s.logger.Warn().Err(err).Msg("failed to resolve evaluation users")
		users = map[uint]models.User{}
	}

	rows := make([]dto.AdminEvaluationResponse, 0, len(evaluations))
	for _, evaluation := range evaluations {
		var user *models.User
		if resolved, ok := users[evaluation.UserID]; ok {
			user = &resolved
		}
		row := dto.NewAdminEvaluationResponse(evaluation, user)
		row.Prompt = s.sanitizer.Sanitize(row.Prompt)
		rows = append(rows, row)
	}

	span.SetAttributes(attribute.Int("admin.evaluation_count", len(rows)))

	return rows, nil
}

func (s *adminService) Summary(ctx context.Context) (dto.AdminSummaryResponse, error) {
	const cacheKey = "admin:summary"
	tracer := otel.Tracer("github.com/promptlab-dev/promptlab-api/internal/service/admin")
	ctx, span := tracer.Start(ctx, "admin.summary")
	span.SetAttributes(attribute.String("admin.cache_key", cacheKey))
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var response dto.AdminSummaryResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				span.SetAttributes(attribute.Bool("admin.cache_hit", true))
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read summary cache")
			span.RecordError(err)
		}
	}

	evaluations, err := s.evaluations.ListRecent(ctx, s.window)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_recent_failed")
		return dto.AdminSummaryResponse{}, err
	}

	users, err := s.resolveUsers(ctx, evaluations)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to resolve evaluation users")
		users = map[uint]models.User{}
	}

	summary := s.buildSummary(evaluations, users)
	span.SetAttributes(
		attribute.Int("admin.total_evaluations", summary.TotalEvaluations),
		attribute.Int("admin.unique_users", summary.UniqueUsers),
	)

	if s.cache != nil {
		payload, err := json.Marshal(summary)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store summary cache")
				span.RecordError(err)
			}
		}
	}

	return summary, nil
}

func (s *adminService) buildSummary(evaluations []models.PromptEvaluation, users map[uint]models.User) dto.AdminSummaryResponse {
	total := len(evaluations)
	scoreSum := 0.0
	emails := map[string]struct{}{}

	for _, evaluation := range evaluations {
		scoreSum += evaluation.Score
		email := "Unknown Email"
		if user, ok := users[evaluation.UserID]; ok {
			email = user.Email
		}
		emails[email] = struct{}{}
	}

	average := "0"
	if total > 0 {
		average = strconv.FormatFloat(scoreSum/float64(total), 'f', 1, 64)
	}

	return dto.AdminSummaryResponse{
		TotalEvaluations: total,
		AverageScore:     average,
		UniqueUsers:      len(emails),
		GeneratedAt:      s.now(),
		CacheHit:         false,
	}
}

func (s *adminService) resolveUsers(ctx context.Context, evaluations []models.PromptEvaluation) (map[uint]models.User, error) {
	seen := map[uint]struct{}{}
	ids := make([]uint, 0, len(evaluations))
	for _, evaluation := range evaluations {
		if _, ok := seen[evaluation.UserID]; ok {
			continue
		}
		seen[evaluation.UserID] = struct{}{}
		ids = append(ids, evaluation.UserID)
	}

	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]models.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}

	return byID, nil
}
