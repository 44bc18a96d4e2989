package repository

import (
	"context"

	"anoa.com/mathter/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CourseFilter struct {
	GradeLevel uint
	Query      string
	Limit      int
	Offset     int
}

type CourseRepository interface {
	Create(ctx context.Context, course *entity.Course) error
	FindByID(ctx context.Context, id uint) (*entity.Course, error)
	// FindByIDs keeps the order of ids and skips missing rows.
	FindByIDs(ctx context.Context, ids []uint) ([]*entity.Course, error)
	FindAll(ctx context.Context, filter CourseFilter) ([]*entity.Course, int64, error)
	Update(ctx context.Context, course *entity.Course) error
	Delete(ctx context.Context, id uint) error

	CreateTopic(ctx context.Context, topic *entity.Topic) error
	FindTopicByID(ctx context.Context, id uint) (*entity.Topic, error)
	DeleteTopic(ctx context.Context, id uint) error

	CreateTask(ctx context.Context, task *entity.Task) error
	FindTaskByID(ctx context.Context, id uint) (*entity.Task, error)
	FindTasksByIDs(ctx context.Context, ids []uint) ([]entity.Task, error)
	CountTasksInTopic(ctx context.Context, topicID uint) (int64, error)
	DeleteTask(ctx context.Context, id uint) error
}

type courseRepository struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) Create(ctx context.Context, course *entity.Course) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(course).Error
}

func (r *courseRepository) FindByID(ctx context.Context, id uint) (*entity.Course, error) {
	var course entity.Course
	if err := r.db.WithContext(ctx).
		Preload("Topics", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		First(&course, id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepository) FindByIDs(ctx context.Context, ids []uint) ([]*entity.Course, error) {
	if len(ids) == 0 {
		return []*entity.Course{}, nil
	}

	var rows []*entity.Course
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]*entity.Course, len(rows))
	for _, c := range rows {
		byID[c.ID] = c
	}

	courses := make([]*entity.Course, 0, len(rows))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			courses = append(courses, c)
		}
	}
	return courses, nil
}

func (r *courseRepository) FindAll(ctx context.Context, filter CourseFilter) ([]*entity.Course, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Course{})
	if filter.GradeLevel > 0 {
		query = query.Where("grade_level = ?", filter.GradeLevel)
	}
	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		query = query.Where("LOWER(title) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var courses []*entity.Course
	if err := query.
		Order("grade_level asc, id asc").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&courses).Error; err != nil {
		return nil, 0, err
	}

	return courses, total, nil
}

func (r *courseRepository) Update(ctx context.Context, course *entity.Course) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(course).Error
}

func (r *courseRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entity.Course{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *courseRepository) CreateTopic(ctx context.Context, topic *entity.Topic) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(topic).Error
}

func (r *courseRepository) FindTopicByID(ctx context.Context, id uint) (*entity.Topic, error) {
	var topic entity.Topic
	if err := r.db.WithContext(ctx).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("difficulty asc, id asc") }).
		First(&topic, id).Error; err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *courseRepository) DeleteTopic(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entity.Topic{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *courseRepository) CreateTask(ctx context.Context, task *entity.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *courseRepository) FindTaskByID(ctx context.Context, id uint) (*entity.Task, error) {
	var task entity.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *courseRepository) FindTasksByIDs(ctx context.Context, ids []uint) ([]entity.Task, error) {
	var tasks []entity.Task
	if len(ids) == 0 {
		return tasks, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id asc").Find(&tasks).Error
	return tasks, err
}

func (r *courseRepository) CountTasksInTopic(ctx context.Context, topicID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Task{}).Where("topic_id = ?", topicID).Count(&count).Error
	return count, err
}

func (r *courseRepository) DeleteTask(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entity.Task{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
