package service

import (
	"context"
	"testing"
	"time"

	"anoa.com/mathter/internal/agent/providers"
	"anoa.com/mathter/internal/entity"
	courseRepo "anoa.com/mathter/internal/modules/course/repository"
	"anoa.com/mathter/internal/modules/tutor/dto"
	"anoa.com/mathter/internal/modules/tutor/repository"
	"anoa.com/mathter/internal/testutil"
	"anoa.com/mathter/pkg/apperror"
	"anoa.com/mathter/pkg/ratelimiter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubLLM struct {
	text    string
	json    string
	prompts []string
}

func (s *stubLLM) GenerateText(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.text, nil
}

func (s *stubLLM) GenerateStructured(ctx context.Context, prompt string, output interface{}) error {
	s.prompts = append(s.prompts, prompt)
	return providers.DecodeJSON(s.json, output)
}

func (s *stubLLM) Close() {}

func newService(t *testing.T, llm providers.LLMProvider) (*gorm.DB, *tutorService) {
	t.Helper()

	db := testutil.OpenDB(t)
	svc := NewTutorService(repository.NewTutorRepository(db), courseRepo.NewCourseRepository(db), llm, nil, TutorOptions{}).(*tutorService)
	return db, svc
}

func TestAskAboutTask(t *testing.T) {
	llm := &stubLLM{text: "  Try isolating x first.  "}
	db, svc := newService(t, llm)
	ctx := context.Background()

	teacher := testutil.CreateAccount(t, db, "tom", entity.RoleTeacher)
	alice := testutil.CreateAccount(t, db, "alice", entity.RoleStudent)
	_, tasks := testutil.CreateTopic(t, db, teacher, entity.Task{Title: "Solve 2x = 4"})

	res, err := svc.AskAboutTask(ctx, alice, tasks[0].ID, dto.AskRequest{Message: "<b>where</b> do I start?"})
	require.NoError(t, err)
	assert.Equal(t, "where do I start?", res.UserMessage)
	assert.Equal(t, "Try isolating x first.", res.AIResponse)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "Solve 2x = 4")

	dialogs, err := svc.ListDialogs(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, dialogs, 1)

	_, err = svc.AskAboutTask(ctx, teacher, tasks[0].ID, dto.AskRequest{Message: "hi"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = svc.AskAboutTask(ctx, alice, 9999, dto.AskRequest{Message: "hi"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.AskAboutTask(ctx, alice, tasks[0].ID, dto.AskRequest{Message: "<script></script>"})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestTutorWithoutLLM(t *testing.T) {
	db, svc := newService(t, nil)
	ctx := context.Background()

	alice := testutil.CreateAccount(t, db, "alice", entity.RoleStudent)
	session, err := svc.StartSession(ctx, alice)
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, alice, session.ID, dto.AskRequest{Message: "hello"})
	assert.ErrorIs(t, err, apperror.ErrServiceUnavailable)
}

func TestFreeChat(t *testing.T) {
	llm := &stubLLM{json: "```json\n" + `{"reply":"Close, check the sign.","error_type":"sign_error","error_description":"dropped a minus","confidence_score":1.7}` + "\n```"}
	db, svc := newService(t, llm)
	ctx := context.Background()
	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }

	alice := testutil.CreateAccount(t, db, "alice", entity.RoleStudent)
	bob := testutil.CreateAccount(t, db, "bob", entity.RoleStudent)

	session, err := svc.StartSession(ctx, alice)
	require.NoError(t, err)

	res, err := svc.SendMessage(ctx, alice, session.ID, dto.AskRequest{Message: "-3 + 5 = -8?"})
	require.NoError(t, err)
	assert.Equal(t, "student", res.Question.Sender)
	assert.Equal(t, "ai", res.Reply.Sender)
	assert.Equal(t, "Close, check the sign.", res.Reply.MessageText)
	require.NotNil(t, res.Reply.ErrorType)
	assert.Equal(t, "sign_error", *res.Reply.ErrorType)
	require.NotNil(t, res.Reply.ConfidenceScore)
	assert.Equal(t, 1.0, *res.Reply.ConfidenceScore)

	_, err = svc.SendMessage(ctx, alice, session.ID, dto.AskRequest{Message: "and now?"})
	require.NoError(t, err)
	assert.Contains(t, llm.prompts[1], "-3 + 5 = -8?")

	full, err := svc.GetSession(ctx, alice, session.ID)
	require.NoError(t, err)
	assert.Len(t, full.Messages, 4)
	assert.True(t, full.LastActivity.Equal(at))

	_, err = svc.GetSession(ctx, bob, session.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = svc.SendMessage(ctx, bob, session.ID, dto.AskRequest{Message: "hi"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	sessions, err := svc.ListSessions(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestRateLimited(t *testing.T) {
	llm := &stubLLM{text: "ok"}
	db, svc := newService(t, llm)
	ctx := context.Background()

	calls := 0
	svc.allow = func(ctx context.Context, studentID uint) error {
		calls++
		if calls > 1 {
			return &ratelimiter.RateLimitError{Message: "slow down", RetryAfter: time.Second}
		}
		return nil
	}

	teacher := testutil.CreateAccount(t, db, "tom", entity.RoleTeacher)
	alice := testutil.CreateAccount(t, db, "alice", entity.RoleStudent)
	_, tasks := testutil.CreateTopic(t, db, teacher, entity.Task{Title: "x"})

	_, err := svc.AskAboutTask(ctx, alice, tasks[0].ID, dto.AskRequest{Message: "first"})
	require.NoError(t, err)

	_, err = svc.AskAboutTask(ctx, alice, tasks[0].ID, dto.AskRequest{Message: "second"})
	assert.ErrorIs(t, err, apperror.ErrRateLimitExceeded)
	assert.Len(t, llm.prompts, 1)
}

func TestRecommendations(t *testing.T) {
	db, svc := newService(t, nil)
	ctx := context.Background()

	teacher := testutil.CreateAccount(t, db, "tom", entity.RoleTeacher)
	alice := testutil.CreateAccount(t, db, "alice", entity.RoleStudent)
	topic, _ := testutil.CreateTopic(t, db, teacher)

	require.NoError(t, svc.repo.CreateRecommendation(ctx, &entity.AiRecommendation{
		StudentID: &alice.ID, RecommendedTopicID: &topic.ID, Reason: "practice more",
	}))

	recent, err := svc.repo.HasRecommendationSince(ctx, alice.ID, topic.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, recent)

	recs, err := svc.ListRecommendations(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Linear equations", recs[0].TopicTitle)
	assert.Equal(t, "practice more", recs[0].Reason)
}

func TestHelpers(t *testing.T) {
	long := "abcdefghij"
	assert.Equal(t, "abc", *truncate(&long, 3))
	blank := "   "
	assert.Nil(t, truncate(&blank, 3))

	low := -0.5
	assert.Equal(t, 0.0, *clampConfidence(&low))
	assert.Nil(t, clampConfidence(nil))
}
