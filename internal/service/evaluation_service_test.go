package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/promptlab-dev/promptlab-api/internal/dto"
	"github.com/promptlab-dev/promptlab-api/internal/models"
	"github.com/promptlab-dev/promptlab-api/pkg/ai"
)

type fakeEvaluationRepo struct {
	nextID    uint
	stored    []models.PromptEvaluation
	createErr error
}

func (f *fakeEvaluationRepo) Create(ctx context.Context, evaluation *models.PromptEvaluation) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	evaluation.ID = f.nextID
	if evaluation.CreatedAt.IsZero() {
		evaluation.CreatedAt = time.Now()
	}
	f.stored = append(f.stored, *evaluation)
	return nil
}

func (f *fakeEvaluationRepo) GetByID(ctx context.Context, id uint) (models.PromptEvaluation, error) {
	for _, evaluation := range f.stored {
		if evaluation.ID == id {
			return evaluation, nil
		}
	}
	return models.PromptEvaluation{}, gorm.ErrRecordNotFound
}

func (f *fakeEvaluationRepo) ListByUser(ctx context.Context, userID uint) ([]models.PromptEvaluation, error) {
	result := make([]models.PromptEvaluation, 0)
	for i := len(f.stored) - 1; i >= 0; i-- {
		if f.stored[i].UserID == userID {
			result = append(result, f.stored[i])
		}
	}
	return result, nil
}

func (f *fakeEvaluationRepo) ListRecent(ctx context.Context, window time.Duration) ([]models.PromptEvaluation, error) {
	return append([]models.PromptEvaluation(nil), f.stored...), nil
}

type fakeUserRepo struct {
	users map[uint]models.User
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uint) (models.User, error) {
	if user, ok := f.users[id]; ok {
		return user, nil
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) ListByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	result := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := f.users[id]; ok {
			result = append(result, user)
		}
	}
	return result, nil
}

type fakeFeed struct {
	published []dto.AdminEvaluationResponse
}

func (f *fakeFeed) Publish(ctx context.Context, row dto.AdminEvaluationResponse) {
	f.published = append(f.published, row)
}

func passingResult() ai.EvaluationResult {
	result := ai.FallbackEvaluation()
	result.Score = 8
	result.Role = ai.DimensionAssessment{Status: ai.StatusPresent, Explanation: "Clearly defined role."}
	return result
}

func TestEvaluationServiceEvaluateStoresAndPublishes(t *testing.T) {
	repo := &fakeEvaluationRepo{}
	users := &fakeUserRepo{users: map[uint]models.User{
		42: {ID: 42, Name: "Dewi", Email: "dewi@example.com"},
	}}
	feed := &fakeFeed{}
	client := &fakeAIClient{result: passingResult()}

	svc := NewEvaluationService(repo, users, client, feed, validator.New(), zerolog.Nop())

	response, err := svc.Evaluate(context.Background(), 42, dto.EvaluatePromptRequest{
		UseCase: "Summarize weekly reports",
		Prompt:  "You are an analyst. Summarize the report below.",
	})
	require.NoError(t, err)
	require.True(t, response.Saved)
	require.NotZero(t, response.ID)
	require.Equal(t, float64(8), response.Score)
	require.Equal(t, "Summarize weekly reports", client.lastEvaluated.UseCase)

	require.Len(t, feed.published, 1)
	require.Equal(t, "Dewi", feed.published[0].UserName)
	require.Equal(t, "dewi@example.com", feed.published[0].UserEmail)
}

func TestEvaluationServiceEvaluateUsesCustomUseCase(t *testing.T) {
	repo := &fakeEvaluationRepo{}
	client := &fakeAIClient{result: passingResult()}
	svc := NewEvaluationService(repo, &fakeUserRepo{}, client, nil, validator.New(), zerolog.Nop())

	response, err := svc.Evaluate(context.Background(), 1, dto.EvaluatePromptRequest{
		CustomUseCase: "Draft a launch announcement",
		Prompt:        "Write the announcement.",
	})
	require.NoError(t, err)
	require.Nil(t, response.UseCase)
	require.NotNil(t, response.CustomUseCase)
	require.Equal(t, "Draft a launch announcement", *response.CustomUseCase)
	require.Equal(t, "Draft a launch announcement", client.lastEvaluated.UseCase)
}

func TestEvaluationServiceEvaluateRequiresExactlyOneUseCase(t *testing.T) {
	svc := NewEvaluationService(&fakeEvaluationRepo{}, &fakeUserRepo{}, &fakeAIClient{}, nil, validator.New(), zerolog.Nop())

	_, err := svc.Evaluate(context.Background(), 1, dto.EvaluatePromptRequest{
		Prompt: "Write something.",
	})
	require.ErrorIs(t, err, ErrUseCaseSelection)

	_, err = svc.Evaluate(context.Background(), 1, dto.EvaluatePromptRequest{
		UseCase:       "Summarize reports",
		CustomUseCase: "Draft emails",
		Prompt:        "Write something.",
	})
	require.ErrorIs(t, err, ErrUseCaseSelection)

	// Whitespace-only selections count as absent.
	_, err = svc.Evaluate(context.Background(), 1, dto.EvaluatePromptRequest{
		UseCase: "   ",
		Prompt:  "Write something.",
	})
	require.ErrorIs(t, err, ErrUseCaseSelection)
}

func TestEvaluationServiceEvaluateWithoutClient(t *testing.T) {
	svc := NewEvaluationService(&fakeEvaluationRepo{}, &fakeUserRepo{}, nil, nil, validator.New(), zerolog.Nop())

	_, err := svc.Evaluate(context.Background(), 1, dto.EvaluatePromptRequest{
		UseCase: "Summarize reports",
		Prompt:  "Write something.",
	})
	require.ErrorIs(t, err, ErrEvaluatorUnavailable)
}

func TestEvaluationServiceEvaluateSurvivesStoreFailure(t *testing.T) {
	repo := &fakeEvaluationRepo{createErr: errors.New("connection reset")}
	feed := &fakeFeed{}
	svc := NewEvaluationService(repo, &fakeUserRepo{}, &fakeAIClient{result: passingResult()}, feed, validator.New(), zerolog.Nop())

	response, err := svc.Evaluate(context.Background(), 1, dto.EvaluatePromptRequest{
		UseCase: "Summarize reports",
		Prompt:  "Write something.",
	})
	require.NoError(t, err, "the evaluation result is still returned")
	require.False(t, response.Saved)
	require.Zero(t, response.ID)
	require.Equal(t, float64(8), response.Score)
	require.Empty(t, feed.published, "unsaved evaluations do not reach the feed")
}

func TestEvaluationServiceEvaluateWrapsUpstreamError(t *testing.T) {
	client := &fakeAIClient{evaluateErr: errors.New("429 exhausted")}
	svc := NewEvaluationService(&fakeEvaluationRepo{}, &fakeUserRepo{}, client, nil, validator.New(), zerolog.Nop())

	_, err := svc.Evaluate(context.Background(), 1, dto.EvaluatePromptRequest{
		UseCase: "Summarize reports",
		Prompt:  "Write something.",
	})
	require.ErrorIs(t, err, ErrUpstreamFailure)
}

func TestEvaluationServiceGetEnforcesOwnership(t *testing.T) {
	repo := &fakeEvaluationRepo{}
	svc := NewEvaluationService(repo, &fakeUserRepo{}, &fakeAIClient{result: passingResult()}, nil, validator.New(), zerolog.Nop())

	response, err := svc.Evaluate(context.Background(), 7, dto.EvaluatePromptRequest{
		UseCase: "Summarize reports",
		Prompt:  "Write something.",
	})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), response.ID, 8)
	require.ErrorIs(t, err, ErrEvaluationForbidden)

	fetched, err := svc.Get(context.Background(), response.ID, 7)
	require.NoError(t, err)
	require.Equal(t, response.ID, fetched.ID)

	_, err = svc.Get(context.Background(), 999, 7)
	require.ErrorIs(t, err, ErrEvaluationNotFound)
}

func TestEvaluationServiceHistoryReturnsOwnRecords(t *testing.T) {
	repo := &fakeEvaluationRepo{}
	svc := NewEvaluationService(repo, &fakeUserRepo{}, &fakeAIClient{result: passingResult()}, nil, validator.New(), zerolog.Nop())

	for _, useCase := range []string{"Summarize reports", "Draft emails"} {
		_, err := svc.Evaluate(context.Background(), 3, dto.EvaluatePromptRequest{
			UseCase: useCase,
			Prompt:  "Write something.",
		})
		require.NoError(t, err)
	}
	_, err := svc.Evaluate(context.Background(), 4, dto.EvaluatePromptRequest{
		UseCase: "Analyze churn",
		Prompt:  "Write something.",
	})
	require.NoError(t, err)

	history, err := svc.History(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, history, 2)
	for _, item := range history {
		require.True(t, item.Saved)
	}
}
