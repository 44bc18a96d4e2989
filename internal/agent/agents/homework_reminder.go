package agents

import (
	"context"
	"fmt"
	"log"
	"time"

	"anoa.com/mathter/internal/entity"
	groupRepo "anoa.com/mathter/internal/modules/group/repository"
	notifDto "anoa.com/mathter/internal/modules/notification/dto"
	notification "anoa.com/mathter/internal/modules/notification/service"
)

// HomeworkReminderAgent reminds group members about homework they have not completed yet.
type HomeworkReminderAgent struct {
	groupRepo     groupRepo.GroupRepository
	notifications notification.NotificationService
	config        HomeworkReminderConfig
	now           func() time.Time
}

type HomeworkReminderConfig struct {
	// Schedule is a cron expression, "0 * * * *" runs hourly.
	Schedule string

	// Window is how far ahead a due date triggers a reminder.
	Window time.Duration
}

func DefaultHomeworkReminderConfig() HomeworkReminderConfig {
	return HomeworkReminderConfig{
		Schedule: "0 * * * *",
		Window:   24 * time.Hour,
	}
}

func NewHomeworkReminderAgent(
	groupRepo groupRepo.GroupRepository,
	notifications notification.NotificationService,
	config HomeworkReminderConfig,
) *HomeworkReminderAgent {
	if config.Window <= 0 {
		config.Window = DefaultHomeworkReminderConfig().Window
	}
	return &HomeworkReminderAgent{
		groupRepo:     groupRepo,
		notifications: notifications,
		config:        config,
		now:           time.Now,
	}
}

// GetName implements agent.Agent
func (a *HomeworkReminderAgent) GetName() string {
	return "HomeworkReminderAgent"
}

// GetSchedule implements agent.Agent
func (a *HomeworkReminderAgent) GetSchedule() string {
	return a.config.Schedule
}

// Execute implements agent.Agent
func (a *HomeworkReminderAgent) Execute(ctx context.Context) error {
	now := a.now()
	homework, err := a.groupRepo.FindHomeworkDueBetween(ctx, now, now.Add(a.config.Window))
	if err != nil {
		return fmt.Errorf("failed to load homework due soon: %w", err)
	}

	sent := 0
	for _, hw := range homework {
		n, err := a.remind(ctx, hw)
		if err != nil {
			log.Printf("[%s] Failed to remind about homework %d: %v", a.GetName(), hw.ID, err)
			continue
		}
		sent += n
	}

	log.Printf("[%s] Execution completed. Reminders sent: %d", a.GetName(), sent)
	return nil
}

func (a *HomeworkReminderAgent) remind(ctx context.Context, hw *entity.Homework) (int, error) {
	if hw.Group == nil {
		return 0, nil
	}

	done, err := a.groupRepo.CompletedStudentIDs(ctx, hw.ID)
	if err != nil {
		return 0, err
	}

	title := "your homework"
	if hw.Topic != nil {
		title = hw.Topic.Title
	}

	var messages []notifDto.Message
	for _, member := range hw.Group.Students {
		if member.StudentID == nil || done[*member.StudentID] {
			continue
		}

		msg := notifDto.Message{
			UserID:     *member.StudentID,
			Type:       entity.NotificationHomeworkDue,
			EntityType: "homework",
			EntityID:   hw.ID,
			Text:       fmt.Sprintf("Homework %s in %s is due %s", title, hw.Group.Name, hw.DueDate.Format("2006-01-02 15:04")),
		}

		// one reminder per student and homework
		notified, err := a.notifications.AlreadyNotified(ctx, msg)
		if err != nil {
			return 0, err
		}
		if !notified {
			messages = append(messages, msg)
		}
	}

	if err := a.notifications.Notify(ctx, messages...); err != nil {
		return 0, err
	}
	return len(messages), nil
}
