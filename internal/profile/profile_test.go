package profile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"STUDYHUB_SECRET",
		"STUDYHUB_REDIS_ADDR",
		"STUDYHUB_REDIS_PASSWORD",
		"STUDYHUB_REDIS_DB",
		"STUDYHUB_REDIS_CHANNEL",
		"STUDYHUB_REMINDER_INTERVAL",
		"STUDYHUB_ANALYTICS_ENABLED",
		"STUDYHUB_TIMEZONE",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "", p.Secret)
	assert.Equal(t, "", p.RedisAddr)
	assert.Equal(t, "studyhub:reminders", p.RedisChannel)
	assert.Equal(t, time.Minute, p.ReminderInterval)
	assert.True(t, p.AnalyticsEnabled)
	assert.Equal(t, "UTC", p.Timezone)
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STUDYHUB_SECRET", "s3cret")
	t.Setenv("STUDYHUB_REDIS_ADDR", "localhost:6379")
	t.Setenv("STUDYHUB_REDIS_DB", "2")
	t.Setenv("STUDYHUB_REMINDER_INTERVAL", "30s")
	t.Setenv("STUDYHUB_ANALYTICS_ENABLED", "false")
	t.Setenv("STUDYHUB_TIMEZONE", "Asia/Shanghai")

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "s3cret", p.Secret)
	assert.Equal(t, "localhost:6379", p.RedisAddr)
	assert.Equal(t, 2, p.RedisDB)
	assert.Equal(t, 30*time.Second, p.ReminderInterval)
	assert.False(t, p.AnalyticsEnabled)
	assert.Equal(t, "Asia/Shanghai", p.Location().String())
}

func TestFromEnvKeepsExplicitValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("STUDYHUB_SECRET", "from-env")

	p := &Profile{Secret: "from-flag"}
	p.FromEnv()
	assert.Equal(t, "from-flag", p.Secret)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		profile Profile
		wantErr bool
		check   func(t *testing.T, p *Profile)
	}{
		{
			name:    "unknown mode falls back to demo with sqlite dsn",
			profile: Profile{Mode: "weird", Data: dir},
			check: func(t *testing.T, p *Profile) {
				assert.Equal(t, "demo", p.Mode)
				assert.Equal(t, "sqlite", p.Driver)
				assert.Equal(t, filepath.Join(dir, "studyhub_demo.db"), p.DSN)
				assert.NotEmpty(t, p.Secret)
			},
		},
		{
			name:    "postgres requires dsn",
			profile: Profile{Mode: "dev", Data: dir, Driver: "postgres"},
			wantErr: true,
		},
		{
			name:    "prod requires secret",
			profile: Profile{Mode: "prod", Data: dir, Driver: "sqlite"},
			wantErr: true,
		},
		{
			name:    "unsupported driver",
			profile: Profile{Mode: "dev", Data: dir, Driver: "mysql"},
			wantErr: true,
		},
		{
			name:    "missing data dir",
			profile: Profile{Mode: "dev", Data: filepath.Join(dir, "missing")},
			wantErr: true,
		},
		{
			name:    "prod with secret keeps explicit dsn",
			profile: Profile{Mode: "prod", Data: dir, Driver: "sqlite", DSN: "/tmp/x.db", Secret: "k"},
			check: func(t *testing.T, p *Profile) {
				assert.Equal(t, "/tmp/x.db", p.DSN)
				assert.Equal(t, "k", p.Secret)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.profile
			err := p.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, &p)
			}
		})
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	p := &Profile{Timezone: "Not/AZone"}
	assert.Equal(t, time.UTC, p.Location())
	p.Timezone = ""
	assert.Equal(t, time.UTC, p.Location())
}
