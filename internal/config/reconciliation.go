package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/uaizouk/backoffice/internal/breakdown"
	"github.com/uaizouk/backoffice/internal/description"
	"go.uber.org/zap"
)

const cutoffLayout = "2006-01-02"

// ReconciliationConfig holds the business rules reconciliation jobs run with.
type ReconciliationConfig struct {
	PixDiscountPercent float64  `mapstructure:"pixDiscountPercent"`
	CardFeePercent     float64  `mapstructure:"cardFeePercent"`
	EventBrand         string   `mapstructure:"eventBrand"`
	YearFrom           int      `mapstructure:"yearFrom"`
	YearTo             int      `mapstructure:"yearTo"`
	ProductKeywords    []string `mapstructure:"productKeywords"`
	PhonePlaceholder   string   `mapstructure:"phonePlaceholder"`
	LookbackCutoff     string   `mapstructure:"lookbackCutoff"`
	BatchSize          int      `mapstructure:"batchSize"`
}

func DefaultReconciliationConfig() ReconciliationConfig {
	return ReconciliationConfig{
		PixDiscountPercent: 5,
		CardFeePercent:     5,
		EventBrand:         "UAIZOUK",
		YearFrom:           2024,
		YearTo:             2026,
		ProductKeywords:    []string{"aulas", "bailes", "oficiais", "edição"},
		PhonePlaceholder:   "11999999999",
		LookbackCutoff:     "2025-01-01",
		BatchSize:          100,
	}
}

func (c ReconciliationConfig) Rates() breakdown.Rates {
	return breakdown.Rates{
		PixDiscountPercent: decimal.NewFromFloat(c.PixDiscountPercent),
		CardFeePercent:     decimal.NewFromFloat(c.CardFeePercent),
	}
}

func (c ReconciliationConfig) Parser() description.Config {
	return description.Config{
		EventBrand:      c.EventBrand,
		YearFrom:        c.YearFrom,
		YearTo:          c.YearTo,
		ProductKeywords: c.ProductKeywords,
	}
}

// Cutoff is the start of the lookback window, midnight UTC.
func (c ReconciliationConfig) Cutoff() (time.Time, error) {
	return time.Parse(cutoffLayout, strings.TrimSpace(c.LookbackCutoff))
}

func (c ReconciliationConfig) Validate() error {
	if err := c.Rates().Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.EventBrand) == "" {
		return errors.New("reconciliation.eventBrand cannot be empty")
	}
	if c.YearFrom > c.YearTo {
		return fmt.Errorf("reconciliation.yearFrom %d is after yearTo %d", c.YearFrom, c.YearTo)
	}
	if _, err := c.Cutoff(); err != nil {
		return fmt.Errorf("reconciliation.lookbackCutoff: %w", err)
	}
	if c.BatchSize <= 0 {
		return errors.New("reconciliation.batchSize must be positive")
	}
	return nil
}

// ReconciliationConfigHolder serves the latest valid rules and follows
// changes to the rules file.
type ReconciliationConfigHolder struct {
	current atomic.Value // holds ReconciliationConfig
}

// NewStaticReconciliationConfigHolder wraps fixed rules, mostly for tests and one-off runs.
func NewStaticReconciliationConfigHolder(cfg ReconciliationConfig) *ReconciliationConfigHolder {
	holder := &ReconciliationConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

// NewReconciliationConfigHolder reads reconciliation.yml from path, or from the
// usual config directories when path is empty, and falls back to defaults when
// no file exists. Values may be overridden by RECONCILER_* variables.
func NewReconciliationConfigHolder(cfg Config, log *zap.Logger) (*ReconciliationConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("reconciliation.config")

	v := newRulesViper(cfg.RulesFile)
	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileFound = false
		log.Info("no reconciliation config file, using defaults")
	}

	rules, err := decodeRules(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticReconciliationConfigHolder(rules)
	if !fileFound {
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeRules(v)
		if err != nil {
			log.Warn("invalid reconciliation config ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reconciliation config reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

func (h *ReconciliationConfigHolder) Get() ReconciliationConfig {
	return h.current.Load().(ReconciliationConfig)
}

func newRulesViper(file string) *viper.Viper {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("reconciliation")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/backoffice")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("RECONCILER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultReconciliationConfig()
	v.SetDefault("reconciliation.pixDiscountPercent", defaults.PixDiscountPercent)
	v.SetDefault("reconciliation.cardFeePercent", defaults.CardFeePercent)
	v.SetDefault("reconciliation.eventBrand", defaults.EventBrand)
	v.SetDefault("reconciliation.yearFrom", defaults.YearFrom)
	v.SetDefault("reconciliation.yearTo", defaults.YearTo)
	v.SetDefault("reconciliation.productKeywords", defaults.ProductKeywords)
	v.SetDefault("reconciliation.phonePlaceholder", defaults.PhonePlaceholder)
	v.SetDefault("reconciliation.lookbackCutoff", defaults.LookbackCutoff)
	v.SetDefault("reconciliation.batchSize", defaults.BatchSize)
	return v
}

func decodeRules(v *viper.Viper) (ReconciliationConfig, error) {
	// Unmarshal goes through AllSettings so RECONCILER_* overrides reach nested keys.
	var wrapper struct {
		Reconciliation ReconciliationConfig `mapstructure:"reconciliation"`
	}
	if err := v.Unmarshal(&wrapper); err != nil {
		return ReconciliationConfig{}, err
	}
	rules := wrapper.Reconciliation
	if err := rules.Validate(); err != nil {
		return ReconciliationConfig{}, err
	}
	return rules, nil
}
