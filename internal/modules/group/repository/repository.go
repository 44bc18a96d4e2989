package repository

import (
	"context"
	"time"

	"anoa.com/mathter/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GroupRepository interface {
	Create(ctx context.Context, group *entity.StudyGroup) error
	FindByID(ctx context.Context, id uint) (*entity.StudyGroup, error)
	FindByTeacher(ctx context.Context, teacherID uint) ([]*entity.StudyGroup, error)
	FindByStudent(ctx context.Context, studentID uint) ([]*entity.StudyGroup, error)

	IsMember(ctx context.Context, groupID, studentID uint) (bool, error)
	AddMember(ctx context.Context, member *entity.GroupStudent) error
	RemoveMember(ctx context.Context, groupID, studentID uint) error
	MemberIDs(ctx context.Context, groupID uint) ([]uint, error)

	CreateHomework(ctx context.Context, homework *entity.Homework) error
	FindHomeworkByID(ctx context.Context, id uint) (*entity.Homework, error)
	FindHomeworkByGroup(ctx context.Context, groupID uint) ([]*entity.Homework, error)
	// FindHomeworkDueBetween preloads the group members of every homework.
	FindHomeworkDueBetween(ctx context.Context, from, to time.Time) ([]*entity.Homework, error)

	UpsertResult(ctx context.Context, result *entity.HomeworkResult) error
	FindResults(ctx context.Context, homeworkID uint) ([]*entity.HomeworkResult, error)
	CompletedStudentIDs(ctx context.Context, homeworkID uint) (map[uint]bool, error)
}

type groupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) Create(ctx context.Context, group *entity.StudyGroup) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(group).Error
}

func (r *groupRepository) FindByID(ctx context.Context, id uint) (*entity.StudyGroup, error) {
	var group entity.StudyGroup
	if err := r.db.WithContext(ctx).
		Preload("Students", func(db *gorm.DB) *gorm.DB { return db.Order("joined_at asc, id asc") }).
		Preload("Students.Student").
		First(&group, id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupRepository) FindByTeacher(ctx context.Context, teacherID uint) ([]*entity.StudyGroup, error) {
	var groups []*entity.StudyGroup
	err := r.db.WithContext(ctx).Where("teacher_id = ?", teacherID).Order("id asc").Find(&groups).Error
	return groups, err
}

func (r *groupRepository) FindByStudent(ctx context.Context, studentID uint) ([]*entity.StudyGroup, error) {
	var groups []*entity.StudyGroup
	err := r.db.WithContext(ctx).
		Joins("JOIN group_students ON group_students.group_id = study_groups.id").
		Where("group_students.student_id = ?", studentID).
		Order("study_groups.id asc").
		Find(&groups).Error
	return groups, err
}

func (r *groupRepository) IsMember(ctx context.Context, groupID, studentID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.GroupStudent{}).
		Where("group_id = ? AND student_id = ?", groupID, studentID).
		Count(&count).Error
	return count > 0, err
}

func (r *groupRepository) AddMember(ctx context.Context, member *entity.GroupStudent) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(member).Error
}

func (r *groupRepository) RemoveMember(ctx context.Context, groupID, studentID uint) error {
	result := r.db.WithContext(ctx).
		Where("group_id = ? AND student_id = ?", groupID, studentID).
		Delete(&entity.GroupStudent{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *groupRepository) MemberIDs(ctx context.Context, groupID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&entity.GroupStudent{}).
		Where("group_id = ? AND student_id IS NOT NULL", groupID).
		Order("id asc").
		Pluck("student_id", &ids).Error
	return ids, err
}

func (r *groupRepository) CreateHomework(ctx context.Context, homework *entity.Homework) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tasks := homework.Tasks
		// Append fills homework.Tasks again
		homework.Tasks = nil
		if err := tx.Omit(clause.Associations).Create(homework).Error; err != nil {
			return err
		}
		if len(tasks) == 0 {
			return nil
		}
		return tx.Model(homework).Association("Tasks").Append(tasks)
	})
}

func (r *groupRepository) FindHomeworkByID(ctx context.Context, id uint) (*entity.Homework, error) {
	var homework entity.Homework
	if err := r.db.WithContext(ctx).
		Preload("Tasks").
		Preload("Group").
		First(&homework, id).Error; err != nil {
		return nil, err
	}
	return &homework, nil
}

func (r *groupRepository) FindHomeworkByGroup(ctx context.Context, groupID uint) ([]*entity.Homework, error) {
	var homework []*entity.Homework
	err := r.db.WithContext(ctx).
		Preload("Tasks").
		Where("group_id = ?", groupID).
		Order("due_date asc").
		Find(&homework).Error
	return homework, err
}

func (r *groupRepository) FindHomeworkDueBetween(ctx context.Context, from, to time.Time) ([]*entity.Homework, error) {
	var homework []*entity.Homework
	err := r.db.WithContext(ctx).
		Preload("Group.Students").
		Preload("Topic").
		Where("due_date > ? AND due_date <= ?", from, to).
		Order("due_date asc").
		Find(&homework).Error
	return homework, err
}

func (r *groupRepository) UpsertResult(ctx context.Context, result *entity.HomeworkResult) error {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "homework_id"}, {Name: "student_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_score", "completed", "completed_at"}),
	}).Omit(clause.Associations).Create(result).Error; err != nil {
		return err
	}

	// the returned id is unreliable when the row already existed
	result.ID = 0
	return db.Where("homework_id = ? AND student_id = ?", result.HomeworkID, result.StudentID).First(result).Error
}

func (r *groupRepository) FindResults(ctx context.Context, homeworkID uint) ([]*entity.HomeworkResult, error) {
	var results []*entity.HomeworkResult
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("homework_id = ?", homeworkID).
		Order("total_score desc, id asc").
		Find(&results).Error
	return results, err
}

func (r *groupRepository) CompletedStudentIDs(ctx context.Context, homeworkID uint) (map[uint]bool, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&entity.HomeworkResult{}).
		Where("homework_id = ? AND completed = ? AND student_id IS NOT NULL", homeworkID, true).
		Pluck("student_id", &ids).Error; err != nil {
		return nil, err
	}

	done := make(map[uint]bool, len(ids))
	for _, id := range ids {
		done[id] = true
	}
	return done, nil
}
