package repository

import (
	"context"
	"time"

	"anoa.com/mathter/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LearningRepository interface {
	// RecordAttempt stores the attempt and refreshes the student's progress in its topic.
	RecordAttempt(ctx context.Context, attempt *entity.TaskAttempt, topicID uint) (*entity.StudentProgress, error)
	FindAttemptsByStudent(ctx context.Context, studentID uint, limit, offset int) ([]*entity.TaskAttempt, int64, error)
	FindProgressByStudent(ctx context.Context, studentID uint) ([]*entity.StudentProgress, error)
	// FindProgressBelow lists live progress rows under the completion threshold.
	FindProgressBelow(ctx context.Context, threshold float64) ([]*entity.StudentProgress, error)
	// BestScores returns the best score per task for the student.
	BestScores(ctx context.Context, studentID uint, taskIDs []uint) (map[uint]uint, error)
}

type learningRepository struct {
	db *gorm.DB
}

func NewLearningRepository(db *gorm.DB) LearningRepository {
	return &learningRepository{db: db}
}

func (r *learningRepository) RecordAttempt(ctx context.Context, attempt *entity.TaskAttempt, topicID uint) (*entity.StudentProgress, error) {
	var progress entity.StudentProgress

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(attempt).Error; err != nil {
			return err
		}

		studentID := *attempt.StudentID
		inTopic := func() *gorm.DB {
			return tx.Model(&entity.TaskAttempt{}).
				Joins("JOIN tasks ON tasks.id = task_attempts.task_id").
				Where("task_attempts.student_id = ? AND tasks.topic_id = ?", studentID, topicID)
		}

		var totalTasks int64
		if err := tx.Model(&entity.Task{}).Where("topic_id = ?", topicID).Count(&totalTasks).Error; err != nil {
			return err
		}

		var solved int64
		if err := inTopic().
			Where("task_attempts.is_correct = ?", true).
			Distinct("task_attempts.task_id").
			Count(&solved).Error; err != nil {
			return err
		}

		var average float64
		if err := inTopic().
			Select("COALESCE(AVG(task_attempts.score), 0)").
			Row().Scan(&average); err != nil {
			return err
		}

		rate := 0.0
		if totalTasks > 0 {
			rate = float64(solved) / float64(totalTasks)
		}

		progress = entity.StudentProgress{
			StudentID:      &studentID,
			TopicID:        topicID,
			CompletionRate: rate,
			AverageScore:   average,
			LastActivity:   time.Now(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "topic_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"completion_rate", "average_score", "last_activity"}),
		}).Omit(clause.Associations).Create(&progress).Error; err != nil {
			return err
		}

		return tx.Where("student_id = ? AND topic_id = ?", studentID, topicID).First(&progress).Error
	})
	if err != nil {
		return nil, err
	}

	return &progress, nil
}

func (r *learningRepository) FindAttemptsByStudent(ctx context.Context, studentID uint, limit, offset int) ([]*entity.TaskAttempt, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.TaskAttempt{}).Where("student_id = ?", studentID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var attempts []*entity.TaskAttempt
	if err := query.
		Preload("Task").
		Preload("Student").
		Order("completed_at desc, id desc").
		Limit(limit).
		Offset(offset).
		Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

func (r *learningRepository) FindProgressByStudent(ctx context.Context, studentID uint) ([]*entity.StudentProgress, error) {
	var progress []*entity.StudentProgress
	err := r.db.WithContext(ctx).
		Preload("Topic").
		Where("student_id = ?", studentID).
		Order("last_activity desc").
		Find(&progress).Error
	return progress, err
}

func (r *learningRepository) FindProgressBelow(ctx context.Context, threshold float64) ([]*entity.StudentProgress, error) {
	var progress []*entity.StudentProgress
	err := r.db.WithContext(ctx).
		Preload("Topic").
		Where("student_id IS NOT NULL AND completion_rate < ?", threshold).
		Order("id asc").
		Find(&progress).Error
	return progress, err
}

func (r *learningRepository) BestScores(ctx context.Context, studentID uint, taskIDs []uint) (map[uint]uint, error) {
	scores := make(map[uint]uint, len(taskIDs))
	if len(taskIDs) == 0 {
		return scores, nil
	}

	var rows []struct {
		TaskID uint
		Best   uint
	}
	if err := r.db.WithContext(ctx).
		Model(&entity.TaskAttempt{}).
		Select("task_id, MAX(score) AS best").
		Where("student_id = ? AND task_id IN ?", studentID, taskIDs).
		Group("task_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		scores[row.TaskID] = row.Best
	}
	return scores, nil
}
