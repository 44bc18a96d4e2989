package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"anoa.com/mathter/internal/entity"
	"anoa.com/mathter/internal/modules/course/dto"
	"anoa.com/mathter/internal/modules/course/repository"
	search "anoa.com/mathter/internal/modules/search/service"
	"anoa.com/mathter/pkg/apperror"
	commonDto "anoa.com/mathter/pkg/dto"
	"gorm.io/datatypes"
)

// AnswerKey is the content field holding the expected answer of gradable tasks.
const AnswerKey = "answer"

type CourseService interface {
	ListCourses(ctx context.Context, filter dto.CourseFilter) (*dto.PaginatedCourseResponse, error)
	SearchCourses(ctx context.Context, filter dto.CourseFilter) ([]dto.CourseResponse, error)
	GetCourse(ctx context.Context, id uint) (*dto.CourseResponse, error)
	CreateCourse(ctx context.Context, req dto.CreateCourseRequest) (*dto.CourseResponse, error)
	UpdateCourse(ctx context.Context, id uint, req dto.UpdateCourseRequest) (*dto.CourseResponse, error)
	DeleteCourse(ctx context.Context, id uint) error

	CreateTopic(ctx context.Context, actor *entity.User, courseID uint, req dto.CreateTopicRequest) (*dto.TopicResponse, error)
	GetTopic(ctx context.Context, viewer *entity.User, id uint) (*dto.TopicResponse, error)
	DeleteTopic(ctx context.Context, actor *entity.User, id uint) error

	CreateTask(ctx context.Context, actor *entity.User, topicID uint, req dto.CreateTaskRequest) (*dto.TaskResponse, error)
	GetTask(ctx context.Context, viewer *entity.User, id uint) (*dto.TaskResponse, error)
	DeleteTask(ctx context.Context, actor *entity.User, id uint) error
}

type courseService struct {
	repo  repository.CourseRepository
	meili search.MeiliSearchService
}

func NewCourseService(repo repository.CourseRepository, meili search.MeiliSearchService) CourseService {
	return &courseService{repo: repo, meili: meili}
}

func (s *courseService) ListCourses(ctx context.Context, filter dto.CourseFilter) (*dto.PaginatedCourseResponse, error) {
	courses, total, err := s.repo.FindAll(ctx, repository.CourseFilter{
		GradeLevel: filter.GradeLevel,
		Query:      strings.TrimSpace(filter.Query),
		Limit:      filter.Limit,
		Offset:     filter.Offset(),
	})
	if err != nil {
		return nil, err
	}

	data := make([]dto.CourseResponse, 0, len(courses))
	for _, course := range courses {
		data = append(data, toCourseResponse(course))
	}

	return &dto.PaginatedCourseResponse{
		Data: data,
		Meta: commonDto.NewPaginationMeta(filter.PaginationQuery, total),
	}, nil
}

func (s *courseService) SearchCourses(ctx context.Context, filter dto.CourseFilter) ([]dto.CourseResponse, error) {
	query := strings.TrimSpace(filter.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", apperror.ErrInvalidInput)
	}

	if s.meili != nil {
		ids, err := s.meili.SearchCourses(query, filter.GradeLevel, filter.Limit)
		if err == nil {
			courses, err := s.repo.FindByIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			return toCourseResponses(courses), nil
		}
		log.Printf("Meilisearch course search failed, falling back to database: %v", err)
	}

	courses, _, err := s.repo.FindAll(ctx, repository.CourseFilter{
		GradeLevel: filter.GradeLevel,
		Query:      query,
		Limit:      filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	return toCourseResponses(courses), nil
}

func (s *courseService) GetCourse(ctx context.Context, id uint) (*dto.CourseResponse, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.FromDB(err)
	}

	res := toCourseResponse(course)
	return &res, nil
}

func (s *courseService) CreateCourse(ctx context.Context, req dto.CreateCourseRequest) (*dto.CourseResponse, error) {
	grade := req.GradeLevel
	if grade == 0 {
		grade = entity.MinCourseGrade
	}
	if grade < entity.MinCourseGrade || grade > entity.MaxCourseGrade {
		return nil, fmt.Errorf("%w: grade level must be between %d and %d", apperror.ErrInvalidInput, entity.MinCourseGrade, entity.MaxCourseGrade)
	}

	course := &entity.Course{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		GradeLevel:  grade,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, apperror.FromDB(err)
	}

	s.index(course)

	res := toCourseResponse(course)
	return &res, nil
}

func (s *courseService) UpdateCourse(ctx context.Context, id uint, req dto.UpdateCourseRequest) (*dto.CourseResponse, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.FromDB(err)
	}

	if req.Title != nil {
		course.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.GradeLevel != nil {
		if *req.GradeLevel < entity.MinCourseGrade || *req.GradeLevel > entity.MaxCourseGrade {
			return nil, fmt.Errorf("%w: grade level must be between %d and %d", apperror.ErrInvalidInput, entity.MinCourseGrade, entity.MaxCourseGrade)
		}
		course.GradeLevel = *req.GradeLevel
	}

	if err := s.repo.Update(ctx, course); err != nil {
		return nil, apperror.FromDB(err)
	}

	s.index(course)

	res := toCourseResponse(course)
	return &res, nil
}

func (s *courseService) DeleteCourse(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperror.FromDB(err)
	}

	if s.meili != nil {
		if err := s.meili.DeleteCourse(id); err != nil {
			log.Printf("Failed to remove course %d from index: %v", id, err)
		}
	}
	return nil
}

func (s *courseService) index(course *entity.Course) {
	if s.meili == nil {
		return
	}
	if err := s.meili.IndexCourse(course); err != nil {
		log.Printf("Failed to index course %d: %v", course.ID, err)
	}
}

func (s *courseService) reindex(ctx context.Context, courseID uint) {
	if s.meili == nil {
		return
	}
	course, err := s.repo.FindByID(ctx, courseID)
	if err != nil {
		log.Printf("Failed to reload course %d for indexing: %v", courseID, err)
		return
	}
	s.index(course)
}

func (s *courseService) CreateTopic(ctx context.Context, actor *entity.User, courseID uint, req dto.CreateTopicRequest) (*dto.TopicResponse, error) {
	if actor == nil {
		return nil, apperror.ErrUnauthorized
	}
	if _, err := s.repo.FindByID(ctx, courseID); err != nil {
		return nil, apperror.FromDB(err)
	}

	topic := &entity.Topic{
		CourseID:  courseID,
		Title:     strings.TrimSpace(req.Title),
		CreatedBy: &actor.ID,
	}
	if err := s.repo.CreateTopic(ctx, topic); err != nil {
		return nil, apperror.FromDB(err)
	}

	s.reindex(ctx, courseID)

	res := toTopicResponse(topic, true)
	return &res, nil
}

func (s *courseService) GetTopic(ctx context.Context, viewer *entity.User, id uint) (*dto.TopicResponse, error) {
	topic, err := s.repo.FindTopicByID(ctx, id)
	if err != nil {
		return nil, apperror.FromDB(err)
	}

	res := toTopicResponse(topic, canSeeAnswers(viewer))
	return &res, nil
}

func (s *courseService) DeleteTopic(ctx context.Context, actor *entity.User, id uint) error {
	topic, err := s.repo.FindTopicByID(ctx, id)
	if err != nil {
		return apperror.FromDB(err)
	}
	if err := ensureTopicOwner(actor, topic); err != nil {
		return err
	}

	if err := s.repo.DeleteTopic(ctx, id); err != nil {
		return apperror.FromDB(err)
	}

	s.reindex(ctx, topic.CourseID)
	return nil
}

func (s *courseService) CreateTask(ctx context.Context, actor *entity.User, topicID uint, req dto.CreateTaskRequest) (*dto.TaskResponse, error) {
	topic, err := s.repo.FindTopicByID(ctx, topicID)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	if err := ensureTopicOwner(actor, topic); err != nil {
		return nil, err
	}

	taskType := entity.TaskType(req.TaskType)
	if !taskType.Valid() {
		return nil, fmt.Errorf("%w: unknown task type %q", apperror.ErrInvalidInput, req.TaskType)
	}

	content := req.Content
	if content == nil {
		content = map[string]any{}
	}
	switch taskType {
	case entity.TaskTest, entity.TaskOpenAnswer:
		if _, ok := content[AnswerKey]; !ok {
			return nil, fmt.Errorf("%w: %s tasks need content.%s", apperror.ErrInvalidInput, taskType, AnswerKey)
		}
	case entity.TaskSolution:
	}

	raw, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrInvalidInput, err)
	}

	difficulty := req.Difficulty
	if difficulty == 0 {
		difficulty = entity.DifficultyEasy
	}
	maxScore := req.MaxScore
	if maxScore == 0 {
		maxScore = entity.DefaultMaxScore
	}

	task := &entity.Task{
		TopicID:     topic.ID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		TaskType:    taskType,
		Difficulty:  difficulty,
		MaxScore:    maxScore,
		Content:     datatypes.JSON(raw),
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, apperror.FromDB(err)
	}

	res := toTaskResponse(*task, true)
	return &res, nil
}

func (s *courseService) GetTask(ctx context.Context, viewer *entity.User, id uint) (*dto.TaskResponse, error) {
	task, err := s.repo.FindTaskByID(ctx, id)
	if err != nil {
		return nil, apperror.FromDB(err)
	}

	res := toTaskResponse(*task, canSeeAnswers(viewer))
	return &res, nil
}

func (s *courseService) DeleteTask(ctx context.Context, actor *entity.User, id uint) error {
	task, err := s.repo.FindTaskByID(ctx, id)
	if err != nil {
		return apperror.FromDB(err)
	}
	topic, err := s.repo.FindTopicByID(ctx, task.TopicID)
	if err != nil {
		return apperror.FromDB(err)
	}
	if err := ensureTopicOwner(actor, topic); err != nil {
		return err
	}

	return apperror.FromDB(s.repo.DeleteTask(ctx, id))
}

// ensureTopicOwner lets admins and the topic author edit a topic.
func ensureTopicOwner(actor *entity.User, topic *entity.Topic) error {
	if actor == nil {
		return apperror.ErrUnauthorized
	}

	switch actor.Role {
	case entity.RoleAdmin:
		return nil
	case entity.RoleTeacher:
		if topic.CreatedBy != nil && *topic.CreatedBy == actor.ID {
			return nil
		}
		return fmt.Errorf("%w: topic belongs to another teacher", apperror.ErrForbidden)
	case entity.RoleStudent:
		return fmt.Errorf("%w: students cannot edit topics", apperror.ErrForbidden)
	default:
		return fmt.Errorf("%w: unknown role %q", apperror.ErrForbidden, actor.Role)
	}
}

func canSeeAnswers(viewer *entity.User) bool {
	if viewer == nil {
		return false
	}

	switch viewer.Role {
	case entity.RoleTeacher, entity.RoleAdmin:
		return true
	case entity.RoleStudent:
		return false
	default:
		return false
	}
}
