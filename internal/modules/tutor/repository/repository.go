package repository

import (
	"context"
	"time"

	"anoa.com/mathter/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TutorRepository interface {
	CreateDialog(ctx context.Context, dialog *entity.AiDialog) error
	FindDialogsByStudent(ctx context.Context, studentID uint, limit int) ([]*entity.AiDialog, error)

	CreateSession(ctx context.Context, session *entity.AiFreeChatSession) error
	FindSessionByID(ctx context.Context, id uint) (*entity.AiFreeChatSession, error)
	FindSessionsByStudent(ctx context.Context, studentID uint) ([]*entity.AiFreeChatSession, error)
	// AppendMessages stores the messages and bumps the session's last activity.
	AppendMessages(ctx context.Context, session *entity.AiFreeChatSession, at time.Time, messages ...*entity.AiFreeChatMessage) error

	CreateRecommendation(ctx context.Context, rec *entity.AiRecommendation) error
	FindRecommendationsByStudent(ctx context.Context, studentID uint) ([]*entity.AiRecommendation, error)
	HasRecommendationSince(ctx context.Context, studentID, topicID uint, since time.Time) (bool, error)
}

type tutorRepository struct {
	db *gorm.DB
}

func NewTutorRepository(db *gorm.DB) TutorRepository {
	return &tutorRepository{db: db}
}

func (r *tutorRepository) CreateDialog(ctx context.Context, dialog *entity.AiDialog) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(dialog).Error
}

func (r *tutorRepository) FindDialogsByStudent(ctx context.Context, studentID uint, limit int) ([]*entity.AiDialog, error) {
	var dialogs []*entity.AiDialog
	query := r.db.WithContext(ctx).Where("student_id = ?", studentID).Order("created_at desc, id desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&dialogs).Error
	return dialogs, err
}

func (r *tutorRepository) CreateSession(ctx context.Context, session *entity.AiFreeChatSession) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(session).Error
}

func (r *tutorRepository) FindSessionByID(ctx context.Context, id uint) (*entity.AiFreeChatSession, error) {
	var session entity.AiFreeChatSession
	if err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc, id asc") }).
		First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *tutorRepository) FindSessionsByStudent(ctx context.Context, studentID uint) ([]*entity.AiFreeChatSession, error) {
	var sessions []*entity.AiFreeChatSession
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("last_activity desc, id desc").
		Find(&sessions).Error
	return sessions, err
}

func (r *tutorRepository) AppendMessages(ctx context.Context, session *entity.AiFreeChatSession, at time.Time, messages ...*entity.AiFreeChatMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, message := range messages {
			message.SessionID = session.ID
			if err := tx.Create(message).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&entity.AiFreeChatSession{}).
			Where("id = ?", session.ID).
			UpdateColumn("last_activity", at).Error; err != nil {
			return err
		}
		session.LastActivity = at
		return nil
	})
}

func (r *tutorRepository) CreateRecommendation(ctx context.Context, rec *entity.AiRecommendation) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(rec).Error
}

func (r *tutorRepository) FindRecommendationsByStudent(ctx context.Context, studentID uint) ([]*entity.AiRecommendation, error) {
	var recs []*entity.AiRecommendation
	err := r.db.WithContext(ctx).
		Preload("RecommendedTopic").
		Where("student_id = ?", studentID).
		Order("created_at desc, id desc").
		Find(&recs).Error
	return recs, err
}

func (r *tutorRepository) HasRecommendationSince(ctx context.Context, studentID, topicID uint, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.AiRecommendation{}).
		Where("student_id = ? AND recommended_topic_id = ? AND created_at >= ?", studentID, topicID, since).
		Count(&count).Error
	return count > 0, err
}
