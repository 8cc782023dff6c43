// Package config loads server configuration from defaults, an optional
// config file, a .env file and SETTLEMENT_* environment variables, in
// increasing order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/warp/course-settlement/settlement"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env        string
	Port       int
	Database   DatabaseConfig
	Log        LogConfig
	CORS       CORSConfig
	Settlement SettlementConfig
}

type DatabaseConfig struct {
	Path string
}

type LogConfig struct {
	Level  string
	Format string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// SettlementConfig holds the deduction rates as decimal strings.
type SettlementConfig struct {
	TaxRate        string
	CommissionRate string
	TeacherShare   string
}

// Rates parses the configured percentages.
func (s SettlementConfig) Rates() (settlement.Rates, error) {
	var (
		rates settlement.Rates
		err   error
	)
	if rates.Tax, err = decimal.NewFromString(s.TaxRate); err != nil {
		return rates, fmt.Errorf("settlement.tax_rate: %w", err)
	}
	if rates.Commission, err = decimal.NewFromString(s.CommissionRate); err != nil {
		return rates, fmt.Errorf("settlement.commission_rate: %w", err)
	}
	if rates.TeacherShare, err = decimal.NewFromString(s.TeacherShare); err != nil {
		return rates, fmt.Errorf("settlement.teacher_share: %w", err)
	}
	return rates, rates.Validate()
}

// Load reads configuration. path may be empty.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SETTLEMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Env:  v.GetString("env"),
		Port: v.GetInt("port"),
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		CORS: CORSConfig{
			AllowedOrigins: origins(v),
		},
		Settlement: SettlementConfig{
			TaxRate:        v.GetString("settlement.tax_rate"),
			CommissionRate: v.GetString("settlement.commission_rate"),
			TeacherShare:   v.GetString("settlement.teacher_share"),
		},
	}

	if _, err := cfg.Settlement.Rates(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", EnvDevelopment)
	v.SetDefault("port", 8080)
	v.SetDefault("database.path", "settlement.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("cors.allowed_origins", "http://localhost:5173,http://localhost:8080")

	defaults := settlement.DefaultRates()
	v.SetDefault("settlement.tax_rate", defaults.Tax.String())
	v.SetDefault("settlement.commission_rate", defaults.Commission.String())
	v.SetDefault("settlement.teacher_share", defaults.TeacherShare.String())
}

// origins accepts a YAML list or a comma-separated string.
func origins(v *viper.Viper) []string {
	if _, ok := v.Get("cors.allowed_origins").([]interface{}); ok {
		return v.GetStringSlice("cors.allowed_origins")
	}
	return splitAndTrim(v.GetString("cors.allowed_origins"))
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
