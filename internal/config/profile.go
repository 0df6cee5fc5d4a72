package config

import (
	"fmt"
	"strings"

	"financas/internal/core"

	"github.com/spf13/viper"
)

// Profile holds the household parameters the aggregator and alert evaluator
// read. Amounts are whole reais in the file and cents in memory.
type Profile struct {
	MonthlyIncome      core.Money
	SavingsTarget      float64 // percent of income
	Thresholds         core.Thresholds
	LargeTransaction   core.Money
	EndingSoonDays     int
	InstallmentCeiling core.Money
	AnchorDay          int
	Wealth             WealthProfile
}

// WealthProfile feeds the net-worth projection. Rates are yearly fractions.
type WealthProfile struct {
	CurrentAssets  core.Money
	ExpectedReturn float64
	Volatility     float64
	Inflation      float64
}

type rawProfile struct {
	Income struct {
		Monthly int64 `mapstructure:"monthly"`
	} `mapstructure:"income"`
	Savings struct {
		Target float64 `mapstructure:"target"`
	} `mapstructure:"savings"`
	Thresholds struct {
		Notice   float64 `mapstructure:"notice"`
		Exceeded float64 `mapstructure:"exceeded"`
		Critical float64 `mapstructure:"critical"`
	} `mapstructure:"thresholds"`
	Alerts struct {
		LargeTransaction   int64 `mapstructure:"large_transaction"`
		EndingSoonDays     int   `mapstructure:"ending_soon_days"`
		InstallmentCeiling int64 `mapstructure:"installment_ceiling"`
	} `mapstructure:"alerts"`
	Installments struct {
		AnchorDay int `mapstructure:"anchor_day"`
	} `mapstructure:"installments"`
	Wealth struct {
		CurrentAssets  int64   `mapstructure:"current_assets"`
		ExpectedReturn float64 `mapstructure:"expected_return"`
		Volatility     float64 `mapstructure:"volatility"`
		Inflation      float64 `mapstructure:"inflation"`
	} `mapstructure:"wealth"`
}

// DefaultProfile returns the household defaults used when no file is given.
func DefaultProfile() Profile {
	return Profile{
		MonthlyIncome:      core.FromReais(55000),
		SavingsTarget:      28,
		Thresholds:         core.DefaultThresholds(),
		LargeTransaction:   core.FromReais(1000),
		EndingSoonDays:     30,
		InstallmentCeiling: core.FromReais(5000),
		AnchorDay:          10,
		Wealth: WealthProfile{
			CurrentAssets:  core.FromReais(30000),
			ExpectedReturn: 0.11,
			Volatility:     0.15,
			Inflation:      0.045,
		},
	}
}

// LoadProfile reads a TOML profile from path (optional) with FINANCAS_
// environment overrides, e.g. FINANCAS_INCOME_MONTHLY=60000.
func LoadProfile(path string) (Profile, error) {
	def := DefaultProfile()
	v := viper.New()

	v.SetDefault("income.monthly", def.MonthlyIncome.Cents/100)
	v.SetDefault("savings.target", def.SavingsTarget)
	v.SetDefault("thresholds.notice", def.Thresholds.Notice)
	v.SetDefault("thresholds.exceeded", def.Thresholds.Exceeded)
	v.SetDefault("thresholds.critical", def.Thresholds.Critical)
	v.SetDefault("alerts.large_transaction", def.LargeTransaction.Cents/100)
	v.SetDefault("alerts.ending_soon_days", def.EndingSoonDays)
	v.SetDefault("alerts.installment_ceiling", def.InstallmentCeiling.Cents/100)
	v.SetDefault("installments.anchor_day", def.AnchorDay)
	v.SetDefault("wealth.current_assets", def.Wealth.CurrentAssets.Cents/100)
	v.SetDefault("wealth.expected_return", def.Wealth.ExpectedReturn)
	v.SetDefault("wealth.volatility", def.Wealth.Volatility)
	v.SetDefault("wealth.inflation", def.Wealth.Inflation)

	v.SetConfigType("toml")
	v.SetEnvPrefix("FINANCAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Profile{}, fmt.Errorf("read profile %s: %w", path, err)
		}
	}

	var raw rawProfile
	if err := v.Unmarshal(&raw); err != nil {
		return Profile{}, fmt.Errorf("unmarshal profile: %w", err)
	}

	p := Profile{
		MonthlyIncome: core.FromReais(raw.Income.Monthly),
		SavingsTarget: raw.Savings.Target,
		Thresholds: core.Thresholds{
			Notice:   raw.Thresholds.Notice,
			Exceeded: raw.Thresholds.Exceeded,
			Critical: raw.Thresholds.Critical,
		},
		LargeTransaction:   core.FromReais(raw.Alerts.LargeTransaction),
		EndingSoonDays:     raw.Alerts.EndingSoonDays,
		InstallmentCeiling: core.FromReais(raw.Alerts.InstallmentCeiling),
		AnchorDay:          raw.Installments.AnchorDay,
		Wealth: WealthProfile{
			CurrentAssets:  core.FromReais(raw.Wealth.CurrentAssets),
			ExpectedReturn: raw.Wealth.ExpectedReturn,
			Volatility:     raw.Wealth.Volatility,
			Inflation:      raw.Wealth.Inflation,
		},
	}
	return p, p.Validate()
}

// Validate checks ranges and the ordering of the threshold table.
func (p Profile) Validate() error {
	var errors []string
	if p.MonthlyIncome.Cents < 0 {
		errors = append(errors, "monthly income cannot be negative")
	}
	if p.SavingsTarget < 0 || p.SavingsTarget > 100 {
		errors = append(errors, fmt.Sprintf("savings target %.1f must be between 0 and 100", p.SavingsTarget))
	}
	t := p.Thresholds
	if !(0 < t.Notice && t.Notice <= t.Exceeded && t.Exceeded <= t.Critical) {
		errors = append(errors, fmt.Sprintf("thresholds must satisfy 0 < notice <= exceeded <= critical, got %.0f/%.0f/%.0f",
			t.Notice, t.Exceeded, t.Critical))
	}
	if p.AnchorDay < 1 || p.AnchorDay > 31 {
		errors = append(errors, fmt.Sprintf("anchor day %d must be between 1 and 31", p.AnchorDay))
	}
	if p.EndingSoonDays < 0 {
		errors = append(errors, "ending soon days cannot be negative")
	}
	if p.Wealth.Volatility < 0 {
		errors = append(errors, "wealth volatility cannot be negative")
	}
	if len(errors) > 0 {
		return fmt.Errorf("profile validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}
