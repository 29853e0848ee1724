package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("WA_PHONE_NUMBER_ID", "123")
	t.Setenv("WA_ACCESS_TOKEN", "token")
	t.Setenv("GEMINI_API_KEY", "key")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "bolt", cfg.StoreDriver)
	assert.Equal(t, "gemini", cfg.RiskProvider)
	assert.Equal(t, 15*time.Second, cfg.WATimeout)
	assert.Equal(t, 20*time.Second, cfg.RiskTimeout)
	assert.Equal(t, 7, cfg.MaxListedRequests)
	assert.False(t, cfg.DoctorAutoActivate)
	assert.Len(t, cfg.WAVerifyToken, 32)
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DOCTOR_AUTO_ACTIVATE", "yes")
	t.Setenv("RISK_TIMEOUT", "3s")
	t.Setenv("MAX_LISTED_REQUESTS", "5")
	t.Setenv("WA_VERIFY_TOKEN", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.DoctorAutoActivate)
	assert.Equal(t, 3*time.Second, cfg.RiskTimeout)
	assert.Equal(t, 5, cfg.MaxListedRequests)
	assert.Equal(t, "secret", cfg.WAVerifyToken)
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("WA_PHONE_NUMBER_ID", "")
	t.Setenv("WA_ACCESS_TOKEN", "token")
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WA_PHONE_NUMBER_ID")
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestLoadMongoRequiresURI(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("MONGO_URI", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGO_URI")
}

func TestLoadOpenAIProvider(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("RISK_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")

	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.RiskProvider)
}

func TestLoadRejectsBadValues(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("MAX_LISTED_REQUESTS", "12")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_LISTED_REQUESTS")

	t.Setenv("MAX_LISTED_REQUESTS", "")
	t.Setenv("WA_TIMEOUT", "soon")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WA_TIMEOUT")
}
