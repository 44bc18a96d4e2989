package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler schedules and runs registered agents.
type Scheduler struct {
	cron    *cron.Cron
	agents  []Agent
	timeout time.Duration
}

// NewScheduler creates a scheduler. timeout bounds each scheduled run, zero means no bound.
func NewScheduler(timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		agents:  make([]Agent, 0),
		timeout: timeout,
	}
}

// RegisterAgent adds the agent and schedules it when it has a schedule.
func (s *Scheduler) RegisterAgent(agent Agent) error {
	s.agents = append(s.agents, agent)

	schedule := agent.GetSchedule()
	if schedule == "" {
		log.Printf("📝 [%s] Registered as on-demand agent (no schedule)", agent.GetName())
		return nil
	}

	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := s.runContext()
		defer cancel()

		log.Printf("🤖 [%s] Starting scheduled job...", agent.GetName())
		if err := agent.Execute(ctx); err != nil {
			log.Printf("❌ [%s] Job failed: %v", agent.GetName(), err)
		} else {
			log.Printf("✅ [%s] Job completed successfully", agent.GetName())
		}
	})
	if err != nil {
		return fmt.Errorf("schedule agent %s: %w", agent.GetName(), err)
	}

	log.Printf("📅 [%s] Scheduled with cron: %s", agent.GetName(), schedule)
	return nil
}

func (s *Scheduler) runContext() (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("🚀 Agent Scheduler started with %d registered agents", len(s.agents))
}

// Stop halts scheduling and waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("🛑 Agent Scheduler stopped")
}

// RunAgentByName runs one agent immediately.
func (s *Scheduler) RunAgentByName(ctx context.Context, name string) error {
	for _, agent := range s.agents {
		if agent.GetName() == name {
			log.Printf("🎯 [%s] Running on-demand execution...", name)
			return agent.Execute(ctx)
		}
	}
	return fmt.Errorf("agent %q not found", name)
}

func (s *Scheduler) GetRegisteredAgents() []string {
	names := make([]string, len(s.agents))
	for i, agent := range s.agents {
		names[i] = agent.GetName()
	}
	return names
}
