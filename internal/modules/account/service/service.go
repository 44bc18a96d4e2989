package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"anoa.com/mathter/internal/entity"
	"anoa.com/mathter/internal/modules/account/dto"
	"anoa.com/mathter/internal/modules/account/repository"
	"anoa.com/mathter/pkg/apperror"
	commonDto "anoa.com/mathter/pkg/dto"
	"anoa.com/mathter/pkg/storage"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const avatarFolder = "avatars"

type AccountService interface {
	// Register creates a student or teacher account from the public sign-up form.
	Register(ctx context.Context, input dto.RegisterInput) (*dto.AccountResponse, error)
	// Create is the admin path and accepts every role.
	Create(ctx context.Context, input dto.CreateAccountInput) (*dto.AccountResponse, error)
	GetByID(ctx context.Context, id uint) (*dto.AccountResponse, error)
	List(ctx context.Context, filter dto.AccountFilter) (*dto.PaginatedAccountResponse, error)
	UpdateMe(ctx context.Context, accountID uint, input dto.UpdateAccountInput) (*dto.AccountResponse, error)
	UpdateAvatar(ctx context.Context, accountID uint, file commonDto.AvatarFile) (*dto.AccountResponse, error)
	Anonymize(ctx context.Context, actor *entity.User, targetID uint) (*dto.AnonymizeResponse, error)
}

type accountService struct {
	repo         repository.AccountRepository
	imageStorage storage.ImageStorage
	hashCost     int
	now          func() time.Time
}

func NewAccountService(repo repository.AccountRepository, imageStorage storage.ImageStorage) AccountService {
	return &accountService{
		repo:         repo,
		imageStorage: imageStorage,
		hashCost:     bcrypt.DefaultCost,
		now:          time.Now,
	}
}

type newAccount struct {
	username  string
	email     string
	password  string
	role      entity.Role
	isPremium bool
}

func (s *accountService) Register(ctx context.Context, input dto.RegisterInput) (*dto.AccountResponse, error) {
	role, err := entity.ParseRole(input.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrInvalidInput, err)
	}
	if role == entity.RoleAdmin {
		return nil, fmt.Errorf("%w: admin accounts cannot be self-registered", apperror.ErrForbidden)
	}

	return s.create(ctx, newAccount{
		username: input.Username,
		email:    input.Email,
		password: input.Password,
		role:     role,
	})
}

func (s *accountService) Create(ctx context.Context, input dto.CreateAccountInput) (*dto.AccountResponse, error) {
	role, err := entity.ParseRole(input.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrInvalidInput, err)
	}

	return s.create(ctx, newAccount{
		username:  input.Username,
		email:     input.Email,
		password:  input.Password,
		role:      role,
		isPremium: input.IsPremium,
	})
}

func (s *accountService) create(ctx context.Context, in newAccount) (*dto.AccountResponse, error) {
	username := strings.TrimSpace(in.username)
	email := strings.ToLower(strings.TrimSpace(in.email))

	if strings.HasPrefix(strings.ToLower(username), entity.DeletedUsernamePrefix) {
		return nil, fmt.Errorf("%w: username prefix %q is reserved", apperror.ErrInvalidInput, entity.DeletedUsernamePrefix)
	}

	if err := s.ensureUnique(ctx, username, email, 0); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.password), s.hashCost)
	if err != nil {
		return nil, err
	}
	hashed := string(hash)

	account := &entity.User{
		Username:     username,
		Email:        &email,
		PasswordHash: &hashed,
		Role:         in.role,
		IsPremium:    in.isPremium,
		IsActive:     true,
	}

	if err := s.repo.Create(ctx, account); err != nil {
		return nil, apperror.FromDB(err)
	}

	log.Printf("Account %d (%s) created with role %s", account.ID, account.Username, account.Role)
	return toAccountResponse(account), nil
}

// ensureUnique rejects a username or email held by another account. exceptID skips the caller's own row.
func (s *accountService) ensureUnique(ctx context.Context, username, email string, exceptID uint) error {
	if username != "" {
		existing, err := s.repo.FindByUsername(ctx, username)
		if err == nil && existing.ID != exceptID {
			return fmt.Errorf("%w: username already taken", apperror.ErrConflict)
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	if email != "" {
		existing, err := s.repo.FindByEmail(ctx, email)
		if err == nil && existing.ID != exceptID {
			return fmt.Errorf("%w: email already registered", apperror.ErrConflict)
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	return nil
}

func (s *accountService) GetByID(ctx context.Context, id uint) (*dto.AccountResponse, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.FromDB(err)
	}

	return toAccountResponse(account), nil
}

func (s *accountService) List(ctx context.Context, filter dto.AccountFilter) (*dto.PaginatedAccountResponse, error) {
	repoFilter := repository.Filter{
		Active: filter.Active,
		Limit:  filter.Limit,
		Offset: filter.Offset(),
	}
	if filter.Role != "" {
		role, err := entity.ParseRole(filter.Role)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperror.ErrInvalidInput, err)
		}
		repoFilter.Role = role
	}

	accounts, total, err := s.repo.FindAll(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	data := make([]dto.AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		data = append(data, *toAccountResponse(account))
	}

	return &dto.PaginatedAccountResponse{
		Data: data,
		Meta: commonDto.NewPaginationMeta(filter.PaginationQuery, total),
	}, nil
}

func (s *accountService) UpdateMe(ctx context.Context, accountID uint, input dto.UpdateAccountInput) (*dto.AccountResponse, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	if account.IsAnonymized() {
		return nil, fmt.Errorf("%w: account has been deleted", apperror.ErrForbidden)
	}

	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if err := s.ensureUnique(ctx, "", email, account.ID); err != nil {
			return nil, err
		}
		account.Email = &email
	}

	if input.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), s.hashCost)
		if err != nil {
			return nil, err
		}
		hashed := string(hash)
		account.PasswordHash = &hashed
	}

	if input.GradeLevel != nil || input.LearningStyle != nil {
		if err := applyStudentSettings(account, input); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, account); err != nil {
		return nil, apperror.FromDB(err)
	}

	return toAccountResponse(account), nil
}

func applyStudentSettings(account *entity.User, input dto.UpdateAccountInput) error {
	switch account.Role {
	case entity.RoleStudent:
	case entity.RoleTeacher, entity.RoleAdmin:
		return fmt.Errorf("%w: grade level and learning style apply to students only", apperror.ErrInvalidInput)
	default:
		return fmt.Errorf("%w: unknown role %q", apperror.ErrInvalidInput, account.Role)
	}

	if account.StudentProfile == nil {
		return fmt.Errorf("%w: student profile missing", apperror.ErrInternal)
	}

	if input.GradeLevel != nil {
		grade := entity.GradeLevel(*input.GradeLevel)
		if !grade.Valid() {
			return fmt.Errorf("%w: unknown grade level %q", apperror.ErrInvalidInput, *input.GradeLevel)
		}
		account.StudentProfile.GradeLevel = grade
	}

	if input.LearningStyle != nil {
		raw, err := json.Marshal(input.LearningStyle)
		if err != nil {
			return fmt.Errorf("%w: %v", apperror.ErrInvalidInput, err)
		}
		account.StudentProfile.LearningStyle = datatypes.JSON(raw)
	}

	return nil
}

func (s *accountService) UpdateAvatar(ctx context.Context, accountID uint, file commonDto.AvatarFile) (*dto.AccountResponse, error) {
	if s.imageStorage == nil {
		return nil, fmt.Errorf("%w: image storage is not configured", apperror.ErrServiceUnavailable)
	}

	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	if account.IsAnonymized() {
		return nil, fmt.Errorf("%w: account has been deleted", apperror.ErrForbidden)
	}

	url, err := s.imageStorage.UploadImage(ctx, file.Reader, avatarFolder, file.FileName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrBadRequest, err)
	}

	previous := account.AvatarURL
	account.AvatarURL = &url
	if err := s.repo.Update(ctx, account); err != nil {
		return nil, apperror.FromDB(err)
	}

	if previous != nil && *previous != "" && *previous != url {
		s.deleteImage(ctx, *previous)
	}

	return toAccountResponse(account), nil
}

func (s *accountService) Anonymize(ctx context.Context, actor *entity.User, targetID uint) (*dto.AnonymizeResponse, error) {
	if actor == nil {
		return nil, apperror.ErrUnauthorized
	}
	if actor.ID != targetID && actor.Role != entity.RoleAdmin {
		return nil, fmt.Errorf("%w: only the account owner or an admin can delete an account", apperror.ErrForbidden)
	}

	result, err := s.repo.Anonymize(ctx, targetID, s.now())
	if err != nil {
		return nil, apperror.FromDB(err)
	}

	if result.AlreadyAnonymized {
		log.Printf("Account %d already anonymized, nothing to do", targetID)
	} else {
		log.Printf("Account %d anonymized by account %d: %v", targetID, actor.ID, result.Rewritten)
		if result.AvatarURL != nil && *result.AvatarURL != "" {
			s.deleteImage(ctx, *result.AvatarURL)
		}
	}

	return &dto.AnonymizeResponse{
		AccountID:         result.AccountID,
		Username:          result.Username,
		AlreadyAnonymized: result.AlreadyAnonymized,
		Rewritten:         result.Rewritten,
	}, nil
}

func (s *accountService) deleteImage(ctx context.Context, url string) {
	if s.imageStorage == nil {
		return
	}
	if err := s.imageStorage.DeleteImage(ctx, url); err != nil {
		log.Printf("Failed to delete image %s: %v", url, err)
	}
}

func toAccountResponse(account *entity.User) *dto.AccountResponse {
	resp := &dto.AccountResponse{
		ID:        account.ID,
		Username:  account.Username,
		Email:     account.Email,
		Role:      account.Role,
		IsPremium: account.IsPremium,
		IsActive:  account.IsActive,
		AvatarURL: account.AvatarURL,
		LastLogin: account.LastLogin,
		CreatedAt: account.CreatedAt,
	}

	if student := account.StudentProfile; student != nil {
		profile := &dto.ProfileResponse{
			GradeLevel:   student.GradeLevel,
			CurrentLevel: student.CurrentLevel,
		}
		if len(student.LearningStyle) > 0 {
			if err := json.Unmarshal(student.LearningStyle, &profile.LearningStyle); err != nil {
				log.Printf("Failed to decode learning style of account %d: %v", account.ID, err)
			}
		}
		resp.Profile = profile
	}

	return resp
}
