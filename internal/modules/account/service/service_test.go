package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"anoa.com/mathter/internal/entity"
	"anoa.com/mathter/internal/modules/account/dto"
	"anoa.com/mathter/internal/modules/account/repository"
	"anoa.com/mathter/internal/testutil"
	"anoa.com/mathter/pkg/apperror"
	commonDto "anoa.com/mathter/pkg/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fakeStorage struct {
	uploaded []string
	deleted  []string
}

func (f *fakeStorage) UploadImage(ctx context.Context, r io.Reader, folder, fileName string) (string, error) {
	url := "https://res.cloudinary.com/demo/image/upload/v1/" + folder + "/" + fileName + ".webp"
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeStorage) DeleteImage(ctx context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

type fixture struct {
	db      *gorm.DB
	repo    repository.AccountRepository
	svc     *accountService
	auth    *authService
	storage *fakeStorage
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.OpenDB(t)
	repo := repository.NewAccountRepository(db)
	store := &fakeStorage{}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	svc := NewAccountService(repo, store).(*accountService)
	svc.hashCost = bcrypt.MinCost
	svc.now = func() time.Time { return now }

	auth := NewAuthService(repo, AuthOptions{Secret: "test-secret", TokenTTL: time.Hour}).(*authService)
	auth.now = func() time.Time { return now }

	return &fixture{db: db, repo: repo, svc: svc, auth: auth, storage: store, now: now}
}

func (f *fixture) create(t *testing.T, username string, role entity.Role) *dto.AccountResponse {
	t.Helper()

	res, err := f.svc.Create(context.Background(), dto.CreateAccountInput{
		Username: username,
		Email:    username + "@mathter.test",
		Password: "password123",
		Role:     string(role),
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()

	var n int64
	require.NoError(t, f.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func TestCreateProvisionsOneProfilePerRole(t *testing.T) {
	tests := []struct {
		role     entity.Role
		students int64
		teachers int64
	}{
		{role: entity.RoleStudent, students: 1, teachers: 0},
		{role: entity.RoleTeacher, students: 0, teachers: 1},
		{role: entity.RoleAdmin, students: 0, teachers: 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			f := newFixture(t)
			res := f.create(t, "user_"+string(tt.role), tt.role)

			assert.Equal(t, tt.students, f.count(t, &entity.Student{}, "user_id = ?", res.ID))
			assert.Equal(t, tt.teachers, f.count(t, &entity.Teacher{}, "user_id = ?", res.ID))
			assert.True(t, res.IsActive)
		})
	}
}

func TestCreateStudentDefaults(t *testing.T) {
	f := newFixture(t)
	res := f.create(t, "alice", entity.RoleStudent)

	require.NotNil(t, res.Profile)
	assert.Equal(t, entity.DefaultGradeLevel, res.Profile.GradeLevel)
	assert.Equal(t, uint(1), res.Profile.CurrentLevel)
	assert.Empty(t, res.Profile.LearningStyle)
}

func TestCreateRollsBackWhenProfileFails(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:fail_students", func(tx *gorm.DB) {
		if tx.Statement.Table == "students" {
			_ = tx.AddError(errors.New("profile insert failed"))
		}
	}))

	_, err := f.svc.Create(context.Background(), dto.CreateAccountInput{
		Username: "alice",
		Email:    "alice@mathter.test",
		Password: "password123",
		Role:     "student",
	})
	require.Error(t, err)

	assert.Equal(t, int64(0), f.count(t, &entity.User{}, "username = ?", "alice"))
	assert.Equal(t, int64(0), f.count(t, &entity.Student{}, "1 = 1"))
}

func TestCreateRejectsDuplicatesAndReservedNames(t *testing.T) {
	f := newFixture(t)
	f.create(t, "alice", entity.RoleStudent)

	_, err := f.svc.Create(context.Background(), dto.CreateAccountInput{
		Username: "alice", Email: "other@mathter.test", Password: "password123", Role: "student",
	})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = f.svc.Create(context.Background(), dto.CreateAccountInput{
		Username: "alice2", Email: "ALICE@mathter.test", Password: "password123", Role: "teacher",
	})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = f.svc.Create(context.Background(), dto.CreateAccountInput{
		Username: "deleted_7", Email: "d@mathter.test", Password: "password123", Role: "student",
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = f.svc.Create(context.Background(), dto.CreateAccountInput{
		Username: "bob", Email: "bob@mathter.test", Password: "password123", Role: "guest",
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestRegisterRejectsAdmin(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), dto.RegisterInput{
		Username: "root", Email: "root@mathter.test", Password: "password123", Role: "admin",
	})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestUpdateNeverProvisionsAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.create(t, "alice", entity.RoleStudent)

	grade := string(entity.GradeHigh)
	updated, err := f.svc.UpdateMe(ctx, res.ID, dto.UpdateAccountInput{
		GradeLevel:    &grade,
		LearningStyle: map[string]any{"visual": true},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.GradeHigh, updated.Profile.GradeLevel)
	assert.Equal(t, true, updated.Profile.LearningStyle["visual"])

	account, err := f.repo.FindByID(ctx, res.ID)
	require.NoError(t, err)
	account.StudentProfile = nil
	require.NoError(t, f.repo.Update(ctx, account))
	require.NoError(t, f.repo.Update(ctx, account))

	assert.Equal(t, int64(1), f.count(t, &entity.Student{}, "user_id = ?", res.ID))
}

func TestUpdateTeacherRejectsStudentSettings(t *testing.T) {
	f := newFixture(t)
	res := f.create(t, "tom", entity.RoleTeacher)

	grade := string(entity.GradeHigh)
	_, err := f.svc.UpdateMe(context.Background(), res.ID, dto.UpdateAccountInput{GradeLevel: &grade})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

// seedStudentTrail gives the student 3 attempts, 1 group membership and 2 AI dialogs.
func seedStudentTrail(t *testing.T, f *fixture, studentID, teacherID uint) {
	t.Helper()

	course := entity.Course{Title: "Algebra", GradeLevel: 7}
	require.NoError(t, f.db.Create(&course).Error)
	topic := entity.Topic{CourseID: course.ID, Title: "Linear equations", CreatedBy: &teacherID}
	require.NoError(t, f.db.Create(&topic).Error)
	task := entity.Task{
		TopicID:    topic.ID,
		Title:      "Solve x + 2 = 5",
		TaskType:   entity.TaskTest,
		Difficulty: entity.DifficultyEasy,
		MaxScore:   entity.DefaultMaxScore,
		Content:    datatypes.JSON(`{"answer":"3"}`),
	}
	require.NoError(t, f.db.Create(&task).Error)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.db.Create(&entity.TaskAttempt{TaskID: task.ID, StudentID: &studentID, Answer: "3", Score: 10}).Error)
	}

	group := entity.StudyGroup{TeacherID: teacherID, Name: "7A"}
	require.NoError(t, f.db.Create(&group).Error)
	require.NoError(t, f.db.Create(&entity.GroupStudent{GroupID: group.ID, StudentID: &studentID}).Error)

	for i := 0; i < 2; i++ {
		require.NoError(t, f.db.Create(&entity.AiDialog{StudentID: &studentID, TaskID: &task.ID, UserMessage: "hint?", AIResponse: "isolate x"}).Error)
	}

	require.NoError(t, f.db.Create(&entity.Notification{UserID: studentID, Type: entity.NotificationRecommendation, EntityType: "topic", EntityID: topic.ID}).Error)
}

func TestAnonymizeStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.create(t, "alice", entity.RoleStudent)
	teacher := f.create(t, "tom", entity.RoleTeacher)
	seedStudentTrail(t, f, alice.ID, teacher.ID)

	actor, err := f.repo.FindByID(ctx, alice.ID)
	require.NoError(t, err)

	res, err := f.svc.Anonymize(ctx, actor, alice.ID)
	require.NoError(t, err)
	assert.False(t, res.AlreadyAnonymized)
	assert.Equal(t, entity.DeletedUsername(alice.ID), res.Username)
	assert.Equal(t, int64(3), res.Rewritten["task_attempts"])
	assert.Equal(t, int64(1), res.Rewritten["group_students"])
	assert.Equal(t, int64(2), res.Rewritten["ai_dialogs"])
	assert.Equal(t, int64(1), res.Rewritten["notifications"])

	var attempts []entity.TaskAttempt
	require.NoError(t, f.db.Find(&attempts).Error)
	require.Len(t, attempts, 3)
	for _, a := range attempts {
		assert.Nil(t, a.StudentID)
		require.NotNil(t, a.DeletedStudentName)
		assert.Equal(t, "alice", *a.DeletedStudentName)
	}

	var member entity.GroupStudent
	require.NoError(t, f.db.First(&member).Error)
	assert.Nil(t, member.StudentID)
	require.NotNil(t, member.DeletedStudentName)
	assert.Equal(t, "alice", *member.DeletedStudentName)

	var dialogs []entity.AiDialog
	require.NoError(t, f.db.Find(&dialogs).Error)
	require.Len(t, dialogs, 2)
	for _, d := range dialogs {
		assert.Nil(t, d.StudentID)
	}

	var profile entity.Student
	require.NoError(t, f.db.Where("user_id = ?", alice.ID).First(&profile).Error)
	require.NotNil(t, profile.DeletedStudentName)
	assert.Equal(t, "alice", *profile.DeletedStudentName)

	var account entity.User
	require.NoError(t, f.db.First(&account, alice.ID).Error)
	assert.Equal(t, entity.DeletedUsername(alice.ID), account.Username)
	assert.Nil(t, account.Email)
	assert.Nil(t, account.PasswordHash)
	assert.False(t, account.IsActive)
	require.NotNil(t, account.AnonymizedAt)
	assert.True(t, account.AnonymizedAt.Equal(f.now))

	assert.Equal(t, int64(0), f.count(t, &entity.Notification{}, "user_id = ?", alice.ID))
}

func TestAnonymizeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.create(t, "alice", entity.RoleStudent)
	admin, err := f.repo.FindByID(ctx, f.create(t, "root", entity.RoleAdmin).ID)
	require.NoError(t, err)

	_, err = f.svc.Anonymize(ctx, admin, alice.ID)
	require.NoError(t, err)

	var before entity.User
	require.NoError(t, f.db.First(&before, alice.ID).Error)

	f.svc.now = func() time.Time { return f.now.Add(time.Hour) }
	res, err := f.svc.Anonymize(ctx, admin, alice.ID)
	require.NoError(t, err)
	assert.True(t, res.AlreadyAnonymized)
	assert.Empty(t, res.Rewritten)

	var after entity.User
	require.NoError(t, f.db.First(&after, alice.ID).Error)
	assert.Equal(t, before.Username, after.Username)
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt))
	assert.True(t, before.AnonymizedAt.Equal(*after.AnonymizedAt))
}

func TestAnonymizeRollsBackWhenRewriteFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.create(t, "alice", entity.RoleStudent)
	teacher := f.create(t, "tom", entity.RoleTeacher)
	seedStudentTrail(t, f, alice.ID, teacher.ID)

	require.NoError(t, f.db.Callback().Update().Before("gorm:update").Register("test:fail_dialogs", func(tx *gorm.DB) {
		if tx.Statement.Table == "ai_dialogs" {
			_ = tx.AddError(errors.New("dialog rewrite failed"))
		}
	}))

	actor, err := f.repo.FindByID(ctx, alice.ID)
	require.NoError(t, err)

	_, err = f.svc.Anonymize(ctx, actor, alice.ID)
	require.Error(t, err)

	var attempts []entity.TaskAttempt
	require.NoError(t, f.db.Find(&attempts).Error)
	require.Len(t, attempts, 3)
	for _, a := range attempts {
		require.NotNil(t, a.StudentID)
		assert.Equal(t, alice.ID, *a.StudentID)
		assert.Nil(t, a.DeletedStudentName)
	}

	assert.Equal(t, int64(1), f.count(t, &entity.GroupStudent{}, "student_id = ?", alice.ID))
	assert.Equal(t, int64(1), f.count(t, &entity.Notification{}, "user_id = ?", alice.ID))

	var account entity.User
	require.NoError(t, f.db.First(&account, alice.ID).Error)
	assert.Equal(t, "alice", account.Username)
	assert.True(t, account.IsActive)
	assert.NotNil(t, account.PasswordHash)
	assert.Nil(t, account.AnonymizedAt)
}

func TestAnonymizeConcurrentCallsRewriteOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.create(t, "alice", entity.RoleStudent)
	teacher := f.create(t, "tom", entity.RoleTeacher)
	seedStudentTrail(t, f, alice.ID, teacher.ID)

	admin, err := f.repo.FindByID(ctx, f.create(t, "root", entity.RoleAdmin).ID)
	require.NoError(t, err)

	const callers = 4
	results := make([]*dto.AnonymizeResponse, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Anonymize(ctx, admin, alice.ID)
		}(i)
	}
	wg.Wait()

	rewrites := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		if !results[i].AlreadyAnonymized {
			rewrites++
			assert.Equal(t, int64(3), results[i].Rewritten["task_attempts"])
		}
	}
	assert.Equal(t, 1, rewrites)

	var attempts []entity.TaskAttempt
	require.NoError(t, f.db.Find(&attempts).Error)
	for _, a := range attempts {
		require.NotNil(t, a.DeletedStudentName)
		assert.Equal(t, "alice", *a.DeletedStudentName)
	}
}

func TestAnonymizeWithoutDependents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.create(t, "alice", entity.RoleStudent)
	actor, err := f.repo.FindByID(ctx, alice.ID)
	require.NoError(t, err)

	res, err := f.svc.Anonymize(ctx, actor, alice.ID)
	require.NoError(t, err)

	for table, n := range res.Rewritten {
		if table == "students" {
			continue
		}
		assert.Zero(t, n, table)
	}

	var account entity.User
	require.NoError(t, f.db.First(&account, alice.ID).Error)
	assert.Equal(t, entity.DeletedUsername(alice.ID), account.Username)
	assert.False(t, account.IsActive)
}

func TestAnonymizeTeacherSeversTopicsAndKeepsGroups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.create(t, "alice", entity.RoleStudent)
	teacher := f.create(t, "tom", entity.RoleTeacher)
	seedStudentTrail(t, f, alice.ID, teacher.ID)

	actor, err := f.repo.FindByID(ctx, teacher.ID)
	require.NoError(t, err)

	res, err := f.svc.Anonymize(ctx, actor, teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Rewritten["topics"])

	var topic entity.Topic
	require.NoError(t, f.db.First(&topic).Error)
	assert.Nil(t, topic.CreatedBy)

	assert.Equal(t, int64(1), f.count(t, &entity.StudyGroup{}, "teacher_id = ?", teacher.ID))
	assert.Equal(t, int64(3), f.count(t, &entity.TaskAttempt{}, "student_id = ?", alice.ID))
}

func TestAnonymizeAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.create(t, "alice", entity.RoleStudent)
	bob, err := f.repo.FindByID(ctx, f.create(t, "bob", entity.RoleStudent).ID)
	require.NoError(t, err)

	_, err = f.svc.Anonymize(ctx, bob, alice.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.svc.Anonymize(ctx, nil, alice.ID)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	admin, err := f.repo.FindByID(ctx, f.create(t, "root", entity.RoleAdmin).ID)
	require.NoError(t, err)
	_, err = f.svc.Anonymize(ctx, admin, 9999)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAnonymizeRemovesAvatar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.create(t, "alice", entity.RoleStudent)

	_, err := f.svc.UpdateAvatar(ctx, alice.ID, commonDto.AvatarFile{FileName: "me"})
	require.NoError(t, err)
	require.Len(t, f.storage.uploaded, 1)

	actor, err := f.repo.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	_, err = f.svc.Anonymize(ctx, actor, alice.ID)
	require.NoError(t, err)

	assert.Equal(t, f.storage.uploaded, f.storage.deleted)

	var account entity.User
	require.NoError(t, f.db.First(&account, alice.ID).Error)
	assert.Nil(t, account.AvatarURL)
}

func TestLoginAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.create(t, "alice", entity.RoleStudent)

	_, err := f.auth.Login(ctx, dto.LoginInput{Login: "alice", Password: "wrong-password"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	res, err := f.auth.Login(ctx, dto.LoginInput{Login: "Alice@mathter.test", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	require.NotNil(t, res.Account.LastLogin)

	account, err := f.auth.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, account.ID)

	_, err = f.auth.Authenticate(ctx, "not-a-token")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = f.svc.Anonymize(ctx, account, alice.ID)
	require.NoError(t, err)

	_, err = f.auth.Login(ctx, dto.LoginInput{Login: entity.DeletedUsername(alice.ID), Password: "password123"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = f.auth.Authenticate(ctx, res.AccessToken)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestListFiltersByRole(t *testing.T) {
	f := newFixture(t)
	f.create(t, "alice", entity.RoleStudent)
	f.create(t, "bob", entity.RoleStudent)
	f.create(t, "tom", entity.RoleTeacher)

	res, err := f.svc.List(context.Background(), dto.AccountFilter{
		PaginationQuery: commonDto.PaginationQuery{Page: 1, Limit: 10},
		Role:            "student",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Meta.TotalItems)
	require.Len(t, res.Data, 2)
	assert.Equal(t, "alice", res.Data[0].Username)
}
