package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PROVIDER_BASE_URL", "")
	t.Setenv("PROVIDER_SANDBOX", "true")
	t.Setenv("PROVIDER_API_KEY", " key-from-env ")
	t.Setenv("PROVIDER_MIN_INTERVAL", "250ms")
	t.Setenv("PROVIDER_TIMEOUT", "not-a-duration")
	t.Setenv("SCHEDULER_ENABLED_JOBS", "breakdown, phones,,")

	cfg := Load()

	assert.Equal(t, ProviderSandboxURL, cfg.Provider.BaseURL)
	assert.Equal(t, "key-from-env", cfg.Provider.APIKey)
	assert.Equal(t, 250*time.Millisecond, cfg.Provider.MinInterval)
	assert.Equal(t, 10*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, []string{"breakdown", "phones"}, cfg.Scheduler.EnabledJobs)
}

func TestReconciliationDefaultsWithoutFile(t *testing.T) {
	holder, err := NewReconciliationConfigHolder(Config{}, zap.NewNop())
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, DefaultReconciliationConfig(), got)

	cutoff, err := got.Cutoff()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), cutoff)
	assert.Equal(t, "5", got.Rates().PixDiscountPercent.String())
}

func TestReconciliationFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reconciliation.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
reconciliation:
  pixDiscountPercent: 10
  eventBrand: "Uai Zouk"
  yearFrom: 2025
  yearTo: 2027
  lookbackCutoff: "2025-06-01"
`), 0o600))

	holder, err := NewReconciliationConfigHolder(Config{RulesFile: path}, zap.NewNop())
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, float64(10), got.PixDiscountPercent)
	assert.Equal(t, float64(5), got.CardFeePercent)
	assert.Equal(t, "Uai Zouk", got.EventBrand)
	assert.Equal(t, 2027, got.YearTo)
	assert.Equal(t, "2025-06-01", got.LookbackCutoff)
	assert.Equal(t, 100, got.BatchSize)
	assert.Equal(t, "11999999999", got.PhonePlaceholder)
}

func TestReconciliationRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reconciliation.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
reconciliation:
  pixDiscountPercent: 100
`), 0o600))

	_, err := NewReconciliationConfigHolder(Config{RulesFile: path}, zap.NewNop())
	assert.Error(t, err)
}

func TestReconciliationValidate(t *testing.T) {
	cfg := DefaultReconciliationConfig()
	cfg.LookbackCutoff = "01/02/2025"
	assert.Error(t, cfg.Validate())

	cfg = DefaultReconciliationConfig()
	cfg.YearFrom, cfg.YearTo = 2027, 2024
	assert.Error(t, cfg.Validate())

	cfg = DefaultReconciliationConfig()
	cfg.BatchSize = 0
	assert.Error(t, cfg.Validate())
}
