package testutil

import (
	"testing"

	"anoa.com/mathter/internal/entity"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CreateAccount inserts an active account with the profile its role calls for.
func CreateAccount(t testing.TB, db *gorm.DB, username string, role entity.Role) *entity.User {
	t.Helper()

	email := username + "@mathter.test"
	account := &entity.User{
		Username: username,
		Email:    &email,
		Role:     role,
		IsActive: true,
	}
	if err := db.Omit("StudentProfile", "TeacherProfile").Create(account).Error; err != nil {
		t.Fatalf("CreateAccount(%s) failed: %v", username, err)
	}

	var err error
	switch role {
	case entity.RoleStudent:
		account.StudentProfile = &entity.Student{
			UserID:        account.ID,
			GradeLevel:    entity.DefaultGradeLevel,
			CurrentLevel:  1,
			LearningStyle: datatypes.JSON("{}"),
		}
		err = db.Create(account.StudentProfile).Error
	case entity.RoleTeacher:
		account.TeacherProfile = &entity.Teacher{UserID: account.ID}
		err = db.Create(account.TeacherProfile).Error
	case entity.RoleAdmin:
	}
	if err != nil {
		t.Fatalf("CreateAccount(%s) profile failed: %v", username, err)
	}

	return account
}

// CreateTopic inserts a course with one topic and the given tasks.
func CreateTopic(t testing.TB, db *gorm.DB, author *entity.User, tasks ...entity.Task) (*entity.Topic, []entity.Task) {
	t.Helper()

	course := entity.Course{Title: "Algebra", GradeLevel: 7}
	if err := db.Create(&course).Error; err != nil {
		t.Fatalf("CreateTopic course failed: %v", err)
	}

	topic := &entity.Topic{CourseID: course.ID, Title: "Linear equations"}
	if author != nil {
		topic.CreatedBy = &author.ID
	}
	if err := db.Create(topic).Error; err != nil {
		t.Fatalf("CreateTopic failed: %v", err)
	}

	for i := range tasks {
		tasks[i].TopicID = topic.ID
		if tasks[i].MaxScore == 0 {
			tasks[i].MaxScore = entity.DefaultMaxScore
		}
		if tasks[i].Difficulty == 0 {
			tasks[i].Difficulty = entity.DifficultyEasy
		}
		if tasks[i].TaskType == "" {
			tasks[i].TaskType = entity.TaskTest
		}
		if len(tasks[i].Content) == 0 {
			tasks[i].Content = datatypes.JSON("{}")
		}
		if err := db.Create(&tasks[i]).Error; err != nil {
			t.Fatalf("CreateTopic task failed: %v", err)
		}
	}

	return topic, tasks
}
