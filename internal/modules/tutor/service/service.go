package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"anoa.com/mathter/internal/agent/providers"
	"anoa.com/mathter/internal/entity"
	courseRepo "anoa.com/mathter/internal/modules/course/repository"
	"anoa.com/mathter/internal/modules/tutor/dto"
	"anoa.com/mathter/internal/modules/tutor/repository"
	"anoa.com/mathter/pkg/apperror"
	"anoa.com/mathter/pkg/ratelimiter"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
)

const (
	maxErrorTypeLen = 50
	dialogHistory   = 50
)

var errTutorUnavailable = fmt.Errorf("%w: the AI tutor is not configured", apperror.ErrServiceUnavailable)

type TutorService interface {
	AskAboutTask(ctx context.Context, student *entity.User, taskID uint, req dto.AskRequest) (*dto.DialogResponse, error)
	ListDialogs(ctx context.Context, studentID uint) ([]dto.DialogResponse, error)

	StartSession(ctx context.Context, student *entity.User) (*dto.SessionResponse, error)
	ListSessions(ctx context.Context, studentID uint) ([]dto.SessionResponse, error)
	GetSession(ctx context.Context, student *entity.User, sessionID uint) (*dto.SessionResponse, error)
	SendMessage(ctx context.Context, student *entity.User, sessionID uint, req dto.AskRequest) (*dto.ChatReplyResponse, error)

	ListRecommendations(ctx context.Context, studentID uint) ([]dto.RecommendationResponse, error)
}

type TutorOptions struct {
	// Cooldown between two tutor questions of the same student. Zero disables it.
	Cooldown time.Duration
}

type tutorService struct {
	repo       repository.TutorRepository
	courseRepo courseRepo.CourseRepository
	llm        providers.LLMProvider
	policy     *bluemonday.Policy
	allow      func(ctx context.Context, studentID uint) error
	now        func() time.Time
}

// NewTutorService wires the tutor. llm may be nil, questions are then refused.
func NewTutorService(
	repo repository.TutorRepository,
	courseRepo courseRepo.CourseRepository,
	llm providers.LLMProvider,
	redisClient *redis.Client,
	opts TutorOptions,
) TutorService {
	return &tutorService{
		repo:       repo,
		courseRepo: courseRepo,
		llm:        llm,
		policy:     bluemonday.StrictPolicy(),
		allow: func(ctx context.Context, studentID uint) error {
			return ratelimiter.Allow(ctx, redisClient, studentID, ratelimiter.ScopeTutor, opts.Cooldown)
		},
		now: time.Now,
	}
}

type tutorReply struct {
	Reply            string   `json:"reply"`
	ErrorType        *string  `json:"error_type"`
	ErrorDescription *string  `json:"error_description"`
	ConfidenceScore  *float64 `json:"confidence_score"`
}

func (s *tutorService) prepare(ctx context.Context, student *entity.User, message string) (string, error) {
	if student == nil {
		return "", apperror.ErrUnauthorized
	}
	if student.Role != entity.RoleStudent {
		return "", fmt.Errorf("%w: the tutor answers students only", apperror.ErrForbidden)
	}
	if s.llm == nil {
		return "", errTutorUnavailable
	}

	clean := strings.TrimSpace(s.policy.Sanitize(message))
	if clean == "" {
		return "", fmt.Errorf("%w: message is empty", apperror.ErrInvalidInput)
	}

	if err := s.allow(ctx, student.ID); err != nil {
		return "", err
	}
	return clean, nil
}

func (s *tutorService) AskAboutTask(ctx context.Context, student *entity.User, taskID uint, req dto.AskRequest) (*dto.DialogResponse, error) {
	message, err := s.prepare(ctx, student, req.Message)
	if err != nil {
		return nil, err
	}

	task, err := s.courseRepo.FindTaskByID(ctx, taskID)
	if err != nil {
		return nil, apperror.FromDB(err)
	}

	prompt := fmt.Sprintf(
		"Task: %s\n%s\n\nStudent question: %s\n\n"+
			"Help the student understand the task. Guide them towards the solution without stating the final answer.",
		task.Title, task.Description, message,
	)
	answer, err := s.llm.GenerateText(ctx, prompt)
	if err != nil {
		log.Printf("Tutor failed to answer about task %d: %v", task.ID, err)
		return nil, fmt.Errorf("%w: tutor reply failed", apperror.ErrServiceUnavailable)
	}

	dialog := &entity.AiDialog{
		StudentID:   &student.ID,
		TaskID:      &task.ID,
		UserMessage: message,
		AIResponse:  strings.TrimSpace(answer),
	}
	if err := s.repo.CreateDialog(ctx, dialog); err != nil {
		return nil, apperror.FromDB(err)
	}

	res := toDialogResponse(dialog)
	return &res, nil
}

func (s *tutorService) ListDialogs(ctx context.Context, studentID uint) ([]dto.DialogResponse, error) {
	dialogs, err := s.repo.FindDialogsByStudent(ctx, studentID, dialogHistory)
	if err != nil {
		return nil, err
	}

	data := make([]dto.DialogResponse, 0, len(dialogs))
	for _, dialog := range dialogs {
		data = append(data, toDialogResponse(dialog))
	}
	return data, nil
}

func (s *tutorService) StartSession(ctx context.Context, student *entity.User) (*dto.SessionResponse, error) {
	if student == nil {
		return nil, apperror.ErrUnauthorized
	}
	if student.Role != entity.RoleStudent {
		return nil, fmt.Errorf("%w: the tutor answers students only", apperror.ErrForbidden)
	}

	session := &entity.AiFreeChatSession{StudentID: &student.ID}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, apperror.FromDB(err)
	}

	res := toSessionResponse(session)
	return &res, nil
}

func (s *tutorService) ListSessions(ctx context.Context, studentID uint) ([]dto.SessionResponse, error) {
	sessions, err := s.repo.FindSessionsByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	data := make([]dto.SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		data = append(data, toSessionResponse(session))
	}
	return data, nil
}

func (s *tutorService) GetSession(ctx context.Context, student *entity.User, sessionID uint) (*dto.SessionResponse, error) {
	session, err := s.ownSession(ctx, student, sessionID)
	if err != nil {
		return nil, err
	}

	res := toSessionResponse(session)
	return &res, nil
}

func (s *tutorService) ownSession(ctx context.Context, student *entity.User, sessionID uint) (*entity.AiFreeChatSession, error) {
	if student == nil {
		return nil, apperror.ErrUnauthorized
	}

	session, err := s.repo.FindSessionByID(ctx, sessionID)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	if session.StudentID == nil || *session.StudentID != student.ID {
		return nil, fmt.Errorf("%w: session belongs to another student", apperror.ErrForbidden)
	}
	return session, nil
}

func (s *tutorService) SendMessage(ctx context.Context, student *entity.User, sessionID uint, req dto.AskRequest) (*dto.ChatReplyResponse, error) {
	session, err := s.ownSession(ctx, student, sessionID)
	if err != nil {
		return nil, err
	}

	message, err := s.prepare(ctx, student, req.Message)
	if err != nil {
		return nil, err
	}

	var reply tutorReply
	if err := s.llm.GenerateStructured(ctx, chatPrompt(session.Messages, message), &reply); err != nil {
		log.Printf("Tutor failed to reply in session %d: %v", session.ID, err)
		return nil, fmt.Errorf("%w: tutor reply failed", apperror.ErrServiceUnavailable)
	}
	if strings.TrimSpace(reply.Reply) == "" {
		return nil, fmt.Errorf("%w: tutor returned an empty reply", apperror.ErrServiceUnavailable)
	}

	question := &entity.AiFreeChatMessage{
		Sender:      entity.SenderStudent,
		MessageText: message,
	}
	answer := &entity.AiFreeChatMessage{
		Sender:           entity.SenderAI,
		MessageText:      strings.TrimSpace(reply.Reply),
		ErrorType:        truncate(reply.ErrorType, maxErrorTypeLen),
		ErrorDescription: blankToNil(reply.ErrorDescription),
		ConfidenceScore:  clampConfidence(reply.ConfidenceScore),
	}
	if err := s.repo.AppendMessages(ctx, session, s.now(), question, answer); err != nil {
		return nil, apperror.FromDB(err)
	}

	return &dto.ChatReplyResponse{
		SessionID: session.ID,
		Question:  toMessageResponse(question),
		Reply:     toMessageResponse(answer),
	}, nil
}

func chatPrompt(history []entity.AiFreeChatMessage, message string) string {
	var b strings.Builder
	b.WriteString("Continue the tutoring conversation below.\n\n")
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Sender, m.MessageText)
	}
	fmt.Fprintf(&b, "%s: %s\n\n", entity.SenderStudent, message)
	b.WriteString(`Answer with JSON: {"reply": string, "error_type": string or null, ` +
		`"error_description": string or null, "confidence_score": number between 0 and 1}. ` +
		`Fill error_type and error_description only when the student's message shows a mathematical mistake.`)
	return b.String()
}

func (s *tutorService) ListRecommendations(ctx context.Context, studentID uint) ([]dto.RecommendationResponse, error) {
	recs, err := s.repo.FindRecommendationsByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	data := make([]dto.RecommendationResponse, 0, len(recs))
	for _, rec := range recs {
		item := dto.RecommendationResponse{
			ID:        rec.ID,
			TopicID:   rec.RecommendedTopicID,
			Reason:    rec.Reason,
			CreatedAt: rec.CreatedAt,
		}
		if rec.RecommendedTopic != nil {
			item.TopicTitle = rec.RecommendedTopic.Title
		}
		data = append(data, item)
	}
	return data, nil
}

func truncate(s *string, limit int) *string {
	s = blankToNil(s)
	if s == nil {
		return nil
	}
	if r := []rune(*s); len(r) > limit {
		short := string(r[:limit])
		return &short
	}
	return s
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func clampConfidence(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := min(max(*v, 0), 1)
	return &c
}

func toDialogResponse(dialog *entity.AiDialog) dto.DialogResponse {
	return dto.DialogResponse{
		ID:          dialog.ID,
		TaskID:      dialog.TaskID,
		UserMessage: dialog.UserMessage,
		AIResponse:  dialog.AIResponse,
		CreatedAt:   dialog.CreatedAt,
	}
}

func toSessionResponse(session *entity.AiFreeChatSession) dto.SessionResponse {
	res := dto.SessionResponse{
		ID:           session.ID,
		StartedAt:    session.StartedAt,
		LastActivity: session.LastActivity,
	}
	for i := range session.Messages {
		res.Messages = append(res.Messages, toMessageResponse(&session.Messages[i]))
	}
	return res
}

func toMessageResponse(message *entity.AiFreeChatMessage) dto.ChatMessageResponse {
	return dto.ChatMessageResponse{
		ID:               message.ID,
		Sender:           string(message.Sender),
		MessageText:      message.MessageText,
		ErrorType:        message.ErrorType,
		ErrorDescription: message.ErrorDescription,
		ConfidenceScore:  message.ConfidenceScore,
		CreatedAt:        message.CreatedAt,
	}
}
