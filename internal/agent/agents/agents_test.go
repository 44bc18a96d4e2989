package agents

import (
	"context"
	"testing"
	"time"

	"anoa.com/mathter/internal/entity"
	groupRepo "anoa.com/mathter/internal/modules/group/repository"
	learningRepo "anoa.com/mathter/internal/modules/learning/repository"
	notifRepo "anoa.com/mathter/internal/modules/notification/repository"
	notification "anoa.com/mathter/internal/modules/notification/service"
	tutorRepo "anoa.com/mathter/internal/modules/tutor/repository"
	"anoa.com/mathter/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubLLM struct {
	reply string
}

func (s *stubLLM) GenerateText(ctx context.Context, prompt string) (string, error) {
	return s.reply, nil
}

func (s *stubLLM) GenerateStructured(ctx context.Context, prompt string, output interface{}) error {
	return nil
}

func (s *stubLLM) Close() {}

func countNotifications(t *testing.T, db *gorm.DB, userID uint, kind string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&entity.Notification{}).Where("user_id = ? AND type = ?", userID, kind).Count(&n).Error)
	return n
}

func TestHomeworkReminder(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	teacher := testutil.CreateAccount(t, db, "tom", entity.RoleTeacher)
	alice := testutil.CreateAccount(t, db, "alice", entity.RoleStudent)
	bob := testutil.CreateAccount(t, db, "bob", entity.RoleStudent)
	topic, tasks := testutil.CreateTopic(t, db, teacher, entity.Task{Title: "one"})

	group := &entity.StudyGroup{TeacherID: teacher.ID, Name: "7A"}
	require.NoError(t, db.Create(group).Error)
	for _, s := range []*entity.User{alice, bob} {
		require.NoError(t, db.Create(&entity.GroupStudent{GroupID: group.ID, StudentID: &s.ID}).Error)
	}

	repo := groupRepo.NewGroupRepository(db)
	soon := &entity.Homework{GroupID: group.ID, TopicID: topic.ID, Tasks: tasks, DueDate: now.Add(6 * time.Hour)}
	later := &entity.Homework{GroupID: group.ID, TopicID: topic.ID, Tasks: tasks, DueDate: now.Add(72 * time.Hour)}
	require.NoError(t, repo.CreateHomework(ctx, soon))
	require.NoError(t, repo.CreateHomework(ctx, later))

	// bob is done with the homework due soon
	completedAt := now
	require.NoError(t, repo.UpsertResult(ctx, &entity.HomeworkResult{
		HomeworkID: soon.ID, StudentID: &bob.ID, TotalScore: 10, Completed: true, CompletedAt: &completedAt,
	}))

	agent := NewHomeworkReminderAgent(repo, notification.NewNotificationService(notifRepo.NewNotificationRepository(db), nil), DefaultHomeworkReminderConfig())
	agent.now = func() time.Time { return now }

	require.NoError(t, agent.Execute(ctx))
	assert.Equal(t, int64(1), countNotifications(t, db, alice.ID, entity.NotificationHomeworkDue))
	assert.Equal(t, int64(0), countNotifications(t, db, bob.ID, entity.NotificationHomeworkDue))

	// a second run does not repeat the reminder
	require.NoError(t, agent.Execute(ctx))
	assert.Equal(t, int64(1), countNotifications(t, db, alice.ID, entity.NotificationHomeworkDue))
}

func TestRecommendationAgent(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()

	teacher := testutil.CreateAccount(t, db, "tom", entity.RoleTeacher)
	alice := testutil.CreateAccount(t, db, "alice", entity.RoleStudent)
	bob := testutil.CreateAccount(t, db, "bob", entity.RoleStudent)
	topic, _ := testutil.CreateTopic(t, db, teacher)

	require.NoError(t, db.Create(&entity.StudentProgress{StudentID: &alice.ID, TopicID: topic.ID, CompletionRate: 0.2, AverageScore: 3}).Error)
	require.NoError(t, db.Create(&entity.StudentProgress{StudentID: &bob.ID, TopicID: topic.ID, CompletionRate: 0.9, AverageScore: 9}).Error)

	tutor := tutorRepo.NewTutorRepository(db)
	agent := NewRecommendationAgent(
		learningRepo.NewLearningRepository(db),
		tutor,
		notification.NewNotificationService(notifRepo.NewNotificationRepository(db), nil),
		&stubLLM{reply: " Give linear equations another go. "},
		DefaultRecommendationConfig(),
	)

	require.NoError(t, agent.Execute(ctx))
	require.NoError(t, agent.Execute(ctx))

	recs, err := tutor.FindRecommendationsByStudent(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Give linear equations another go.", recs[0].Reason)
	require.NotNil(t, recs[0].RecommendedTopicID)
	assert.Equal(t, topic.ID, *recs[0].RecommendedTopicID)
	assert.Equal(t, int64(1), countNotifications(t, db, alice.ID, entity.NotificationRecommendation))

	none, err := tutor.FindRecommendationsByStudent(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecommendationFallbackReason(t *testing.T) {
	agent := NewRecommendationAgent(nil, nil, nil, nil, RecommendationConfig{})
	reason := agent.reason(context.Background(), "Fractions", &entity.StudentProgress{CompletionRate: 0.25, AverageScore: 4})

	assert.Contains(t, reason, "25% of Fractions")
	assert.Equal(t, 0.5, agent.config.Threshold)
	assert.Equal(t, 7*24*time.Hour, agent.config.Cooldown)
}
