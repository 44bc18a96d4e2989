package repository

import (
	"context"
	"fmt"
	"time"

	"anoa.com/mathter/internal/entity"
	"anoa.com/mathter/pkg/apperror"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Filter struct {
	Role   entity.Role
	Active *bool
	Limit  int
	Offset int
}

type AccountRepository interface {
	// Create inserts the account and its role profile in one transaction.
	Create(ctx context.Context, account *entity.User) error
	FindByID(ctx context.Context, id uint) (*entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	// FindByLogin matches either the username or the email.
	FindByLogin(ctx context.Context, login string) (*entity.User, error)
	FindAll(ctx context.Context, filter Filter) ([]*entity.User, int64, error)
	// Update saves the account row and, when present, its student profile. It never provisions.
	Update(ctx context.Context, account *entity.User) error
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
	Anonymize(ctx context.Context, id uint, at time.Time) (*AnonymizeResult, error)
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *entity.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(account).Error; err != nil {
			return err
		}

		return provisionProfile(tx, account)
	})
}

func provisionProfile(tx *gorm.DB, account *entity.User) error {
	switch account.Role {
	case entity.RoleStudent:
		student := &entity.Student{
			UserID:        account.ID,
			GradeLevel:    entity.DefaultGradeLevel,
			CurrentLevel:  1,
			LearningStyle: datatypes.JSON("{}"),
		}
		if err := tx.Create(student).Error; err != nil {
			return err
		}
		account.StudentProfile = student
	case entity.RoleTeacher:
		teacher := &entity.Teacher{UserID: account.ID}
		if err := tx.Create(teacher).Error; err != nil {
			return err
		}
		account.TeacherProfile = teacher
	case entity.RoleAdmin:
	default:
		return fmt.Errorf("%w: unknown role %q", apperror.ErrInvalidInput, account.Role)
	}

	return nil
}

func (r *accountRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("StudentProfile").
		Preload("TeacherProfile")
}

func (r *accountRepository) FindByID(ctx context.Context, id uint) (*entity.User, error) {
	var account entity.User
	if err := r.preloaded(ctx).First(&account, id).Error; err != nil {
		return nil, err
	}

	return &account, nil
}

func (r *accountRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	var account entity.User
	if err := r.preloaded(ctx).
		Where("username = ?", username).
		First(&account).Error; err != nil {
		return nil, err
	}

	return &account, nil
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var account entity.User
	if err := r.preloaded(ctx).
		Where("email = ?", email).
		First(&account).Error; err != nil {
		return nil, err
	}

	return &account, nil
}

func (r *accountRepository) FindByLogin(ctx context.Context, login string) (*entity.User, error) {
	var account entity.User
	if err := r.preloaded(ctx).
		Where("username = ? OR email = ?", login, login).
		First(&account).Error; err != nil {
		return nil, err
	}

	return &account, nil
}

func (r *accountRepository) FindAll(ctx context.Context, filter Filter) ([]*entity.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.User{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Active != nil {
		query = query.Where("is_active = ?", *filter.Active)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var accounts []*entity.User
	if err := query.
		Preload("StudentProfile").
		Preload("TeacherProfile").
		Order("id asc").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&accounts).Error; err != nil {
		return nil, 0, err
	}

	return accounts, total, nil
}

func (r *accountRepository) Update(ctx context.Context, account *entity.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(account).Error; err != nil {
			return err
		}

		if account.StudentProfile != nil && account.StudentProfile.ID != 0 {
			if err := tx.Save(account.StudentProfile).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *accountRepository) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login", at).Error
}
