package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 10*time.Second, cfg.RateLimitTutor)
	assert.Equal(t, 0.5, cfg.RecommendationThreshold)
	assert.Equal(t, "0 * * * *", cfg.ReminderSchedule)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("RATE_LIMIT_TUTOR", "1m30s")
	t.Setenv("RECOMMENDATION_THRESHOLD", "0.3")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "prod-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 90*time.Second, cfg.RateLimitTutor)
	assert.Equal(t, 0.3, cfg.RecommendationThreshold)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Origins())
	assert.True(t, cfg.IsProduction())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{name: "duration", key: "JWT_TTL", value: "soon"},
		{name: "threshold", key: "RECOMMENDATION_THRESHOLD", value: "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("APP_ENV", "development")
	_, err = Load()
	assert.NoError(t, err)
}
