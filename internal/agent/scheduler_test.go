package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingAgent struct {
	name     string
	schedule string
	runs     int
}

func (a *countingAgent) GetName() string     { return a.name }
func (a *countingAgent) GetSchedule() string { return a.schedule }
func (a *countingAgent) Execute(ctx context.Context) error {
	a.runs++
	return nil
}

func TestRegisterAndRun(t *testing.T) {
	s := NewScheduler(0)

	hourly := &countingAgent{name: "hourly", schedule: "0 * * * *"}
	manual := &countingAgent{name: "manual"}
	require.NoError(t, s.RegisterAgent(hourly))
	require.NoError(t, s.RegisterAgent(manual))
	assert.Equal(t, []string{"hourly", "manual"}, s.GetRegisteredAgents())

	require.NoError(t, s.RunAgentByName(context.Background(), "manual"))
	assert.Equal(t, 1, manual.runs)
	assert.Equal(t, 0, hourly.runs)

	assert.Error(t, s.RunAgentByName(context.Background(), "missing"))
}

func TestRegisterRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(0)
	assert.Error(t, s.RegisterAgent(&countingAgent{name: "broken", schedule: "every day"}))
}
