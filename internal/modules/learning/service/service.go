package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"anoa.com/mathter/internal/agent/providers"
	"anoa.com/mathter/internal/entity"
	courseRepo "anoa.com/mathter/internal/modules/course/repository"
	course "anoa.com/mathter/internal/modules/course/service"
	"anoa.com/mathter/internal/modules/learning/dto"
	"anoa.com/mathter/internal/modules/learning/repository"
	"anoa.com/mathter/pkg/apperror"
	commonDto "anoa.com/mathter/pkg/dto"
)

type LearningService interface {
	SubmitAttempt(ctx context.Context, student *entity.User, taskID uint, req dto.SubmitAttemptRequest) (*dto.AttemptResponse, error)
	ListMyAttempts(ctx context.Context, studentID uint, query commonDto.PaginationQuery) (*dto.PaginatedAttemptResponse, error)
	ListMyProgress(ctx context.Context, studentID uint) ([]dto.ProgressResponse, error)
}

type learningService struct {
	repo       repository.LearningRepository
	courseRepo courseRepo.CourseRepository
	llm        providers.LLMProvider
}

// NewLearningService wires grading. llm may be nil, attempts are then stored without feedback.
func NewLearningService(repo repository.LearningRepository, courseRepo courseRepo.CourseRepository, llm providers.LLMProvider) LearningService {
	return &learningService{
		repo:       repo,
		courseRepo: courseRepo,
		llm:        llm,
	}
}

// Grade scores an answer. Solution tasks are left ungraded for the teacher.
func Grade(task *entity.Task, answer string) (*bool, uint) {
	switch task.TaskType {
	case entity.TaskTest, entity.TaskOpenAnswer:
		var content map[string]any
		if err := json.Unmarshal(task.Content, &content); err != nil {
			log.Printf("Failed to decode content of task %d: %v", task.ID, err)
			return nil, 0
		}
		expected, ok := content[course.AnswerKey]
		if !ok {
			return nil, 0
		}

		correct := normalizeAnswer(fmt.Sprint(expected)) == normalizeAnswer(answer)
		if correct {
			return &correct, task.MaxScore
		}
		return &correct, 0
	case entity.TaskSolution:
		return nil, 0
	default:
		return nil, 0
	}
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func (s *learningService) SubmitAttempt(ctx context.Context, student *entity.User, taskID uint, req dto.SubmitAttemptRequest) (*dto.AttemptResponse, error) {
	if student == nil {
		return nil, apperror.ErrUnauthorized
	}
	if student.Role != entity.RoleStudent {
		return nil, fmt.Errorf("%w: only students can submit attempts", apperror.ErrForbidden)
	}

	task, err := s.courseRepo.FindTaskByID(ctx, taskID)
	if err != nil {
		return nil, apperror.FromDB(err)
	}

	answer := strings.TrimSpace(req.Answer)
	if answer == "" {
		return nil, fmt.Errorf("%w: answer is required", apperror.ErrInvalidInput)
	}

	isCorrect, score := Grade(task, answer)
	attempt := &entity.TaskAttempt{
		TaskID:    task.ID,
		StudentID: &student.ID,
		Answer:    answer,
		IsCorrect: isCorrect,
		Score:     score,
	}

	if isCorrect == nil || !*isCorrect {
		attempt.AIFeedback = s.feedback(ctx, task, answer)
	}

	progress, err := s.repo.RecordAttempt(ctx, attempt, task.TopicID)
	if err != nil {
		return nil, apperror.FromDB(err)
	}

	attempt.Task = task
	attempt.Student = student
	res := toAttemptResponse(attempt)
	res.Progress = toProgressResponse(progress)
	return &res, nil
}

func (s *learningService) feedback(ctx context.Context, task *entity.Task, answer string) string {
	if s.llm == nil {
		return ""
	}

	prompt := fmt.Sprintf(
		"Task: %s\n%s\n\nStudent answer: %s\n\n"+
			"Give the student one or two sentences of feedback. Point at the likely mistake without revealing the final answer.",
		task.Title, task.Description, answer,
	)
	text, err := s.llm.GenerateText(ctx, prompt)
	if err != nil {
		log.Printf("Failed to generate feedback for task %d: %v", task.ID, err)
		return ""
	}
	return strings.TrimSpace(text)
}

func (s *learningService) ListMyAttempts(ctx context.Context, studentID uint, query commonDto.PaginationQuery) (*dto.PaginatedAttemptResponse, error) {
	attempts, total, err := s.repo.FindAttemptsByStudent(ctx, studentID, query.Limit, query.Offset())
	if err != nil {
		return nil, err
	}

	data := make([]dto.AttemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		data = append(data, toAttemptResponse(attempt))
	}

	return &dto.PaginatedAttemptResponse{
		Data: data,
		Meta: commonDto.NewPaginationMeta(query, total),
	}, nil
}

func (s *learningService) ListMyProgress(ctx context.Context, studentID uint) ([]dto.ProgressResponse, error) {
	rows, err := s.repo.FindProgressByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	data := make([]dto.ProgressResponse, 0, len(rows))
	for _, row := range rows {
		data = append(data, *toProgressResponse(row))
	}
	return data, nil
}

func toAttemptResponse(attempt *entity.TaskAttempt) dto.AttemptResponse {
	res := dto.AttemptResponse{
		ID:          attempt.ID,
		TaskID:      attempt.TaskID,
		Student:     entity.DisplayName(attempt.Student, attempt.DeletedStudentName),
		Answer:      attempt.Answer,
		IsCorrect:   attempt.IsCorrect,
		Score:       attempt.Score,
		AIFeedback:  attempt.AIFeedback,
		CompletedAt: attempt.CompletedAt,
	}
	if attempt.Task != nil {
		res.MaxScore = attempt.Task.MaxScore
	}
	return res
}

func toProgressResponse(progress *entity.StudentProgress) *dto.ProgressResponse {
	res := &dto.ProgressResponse{
		TopicID:        progress.TopicID,
		CompletionRate: progress.CompletionRate,
		AverageScore:   progress.AverageScore,
		LastActivity:   progress.LastActivity,
	}
	if progress.Topic != nil {
		res.TopicTitle = progress.Topic.Title
	}
	return res
}
