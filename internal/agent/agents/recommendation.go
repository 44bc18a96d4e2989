package agents

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"anoa.com/mathter/internal/agent/providers"
	"anoa.com/mathter/internal/entity"
	learningRepo "anoa.com/mathter/internal/modules/learning/repository"
	notifDto "anoa.com/mathter/internal/modules/notification/dto"
	notification "anoa.com/mathter/internal/modules/notification/service"
	tutorRepo "anoa.com/mathter/internal/modules/tutor/repository"
)

// RecommendationAgent suggests topics back to students whose completion stays low.
type RecommendationAgent struct {
	learningRepo  learningRepo.LearningRepository
	tutorRepo     tutorRepo.TutorRepository
	notifications notification.NotificationService
	// optional, a fixed reason is used without it
	llmProvider providers.LLMProvider
	config      RecommendationConfig
	now         func() time.Time
}

type RecommendationConfig struct {
	Schedule string

	// Threshold is the completion rate (0..1) below which a topic is recommended.
	Threshold float64

	// Cooldown suppresses repeating a recommendation for the same student and topic.
	Cooldown time.Duration
}

func DefaultRecommendationConfig() RecommendationConfig {
	return RecommendationConfig{
		Schedule:  "0 6 * * *",
		Threshold: 0.5,
		Cooldown:  7 * 24 * time.Hour,
	}
}

func NewRecommendationAgent(
	learningRepo learningRepo.LearningRepository,
	tutorRepo tutorRepo.TutorRepository,
	notifications notification.NotificationService,
	llmProvider providers.LLMProvider,
	config RecommendationConfig,
) *RecommendationAgent {
	defaults := DefaultRecommendationConfig()
	if config.Threshold <= 0 {
		config.Threshold = defaults.Threshold
	}
	if config.Cooldown <= 0 {
		config.Cooldown = defaults.Cooldown
	}
	return &RecommendationAgent{
		learningRepo:  learningRepo,
		tutorRepo:     tutorRepo,
		notifications: notifications,
		llmProvider:   llmProvider,
		config:        config,
		now:           time.Now,
	}
}

// GetName implements agent.Agent
func (a *RecommendationAgent) GetName() string {
	return "RecommendationAgent"
}

// GetSchedule implements agent.Agent
func (a *RecommendationAgent) GetSchedule() string {
	return a.config.Schedule
}

// Execute implements agent.Agent
func (a *RecommendationAgent) Execute(ctx context.Context) error {
	rows, err := a.learningRepo.FindProgressBelow(ctx, a.config.Threshold)
	if err != nil {
		return fmt.Errorf("failed to load progress: %w", err)
	}

	since := a.now().Add(-a.config.Cooldown)
	created := 0
	for _, progress := range rows {
		if progress.StudentID == nil {
			continue
		}

		recent, err := a.tutorRepo.HasRecommendationSince(ctx, *progress.StudentID, progress.TopicID, since)
		if err != nil {
			log.Printf("[%s] Failed to check recommendations of student %d: %v", a.GetName(), *progress.StudentID, err)
			continue
		}
		if recent {
			continue
		}

		if err := a.recommend(ctx, progress); err != nil {
			log.Printf("[%s] Failed to recommend topic %d to student %d: %v", a.GetName(), progress.TopicID, *progress.StudentID, err)
			continue
		}
		created++
	}

	log.Printf("[%s] Execution completed. Recommendations created: %d", a.GetName(), created)
	return nil
}

func (a *RecommendationAgent) recommend(ctx context.Context, progress *entity.StudentProgress) error {
	title := fmt.Sprintf("topic %d", progress.TopicID)
	if progress.Topic != nil {
		title = progress.Topic.Title
	}

	topicID := progress.TopicID
	rec := &entity.AiRecommendation{
		StudentID:          progress.StudentID,
		RecommendedTopicID: &topicID,
		Reason:             a.reason(ctx, title, progress),
	}
	if err := a.tutorRepo.CreateRecommendation(ctx, rec); err != nil {
		return err
	}

	return a.notifications.Notify(ctx, notifDto.Message{
		UserID:     *progress.StudentID,
		Type:       entity.NotificationRecommendation,
		EntityType: "recommendation",
		EntityID:   rec.ID,
		Text:       fmt.Sprintf("We recommend revisiting %s", title),
	})
}

func (a *RecommendationAgent) reason(ctx context.Context, title string, progress *entity.StudentProgress) string {
	fallback := fmt.Sprintf(
		"You have completed %.0f%% of %s with an average score of %.1f. Revisit the topic and retry the tasks you missed.",
		progress.CompletionRate*100, title, progress.AverageScore,
	)
	if a.llmProvider == nil {
		return fallback
	}

	prompt := fmt.Sprintf(
		"A student has completed %.0f%% of the topic %q with an average score of %.1f out of 10. "+
			"Write two encouraging sentences recommending they revisit it.",
		progress.CompletionRate*100, title, progress.AverageScore,
	)
	text, err := a.llmProvider.GenerateText(ctx, prompt)
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			log.Printf("[%s] LLM reason failed, using fallback: %v", a.GetName(), err)
		}
		return fallback
	}
	return strings.TrimSpace(text)
}
