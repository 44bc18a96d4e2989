package bootstrap

import (
	"log"

	"anoa.com/mathter/internal/entity"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Student{},
		&entity.Teacher{},
		&entity.Course{},
		&entity.Topic{},
		&entity.Task{},
		&entity.TaskAttempt{},
		&entity.StudentProgress{},
		&entity.StudyGroup{},
		&entity.GroupStudent{},
		&entity.Homework{},
		&entity.HomeworkResult{},
		&entity.AiDialog{},
		&entity.AiFreeChatSession{},
		&entity.AiFreeChatMessage{},
		&entity.AiRecommendation{},
		&entity.Notification{},
	)
}

// SeedAdminUser creates the first admin account. Admins get no role profile.
func SeedAdminUser(db *gorm.DB, username, email, password string) error {
	var count int64
	if err := db.Model(&entity.User{}).
		Where("role = ?", entity.RoleAdmin).
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("Admin account already exists, skipping seed")
		return nil
	}

	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	hash := string(hashedPasswordBytes)

	admin := entity.User{
		Username:     username,
		Email:        &email,
		PasswordHash: &hash,
		Role:         entity.RoleAdmin,
		IsActive:     true,
	}

	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Printf("Admin account %q seeded", username)
	return nil
}
