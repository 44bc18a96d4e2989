package agent

import "context"

// Agent is a background job the scheduler can run on a cron schedule or on demand.
//
// Current agents:
//   - HomeworkReminderAgent: reminds students about homework due soon
//   - RecommendationAgent: suggests topics to revisit to struggling students
type Agent interface {
	// GetName returns the unique agent name used in logs and on-demand runs.
	GetName() string

	// GetSchedule returns a cron expression such as "0 * * * *".
	// An empty string registers the agent for on-demand runs only.
	GetSchedule() string

	// Execute runs one pass of the agent's job.
	Execute(ctx context.Context) error
}
