package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cloud-ru/mcp-household-finance-go/internal/calculations"
)

// Config содержит конфигурацию движка и его окружения
type Config struct {
	MaxPrincipal  float64
	MaxMonths     int
	MaxRate       float64
	MaxBalanceCap float64

	ForecastMonths     int
	IncomeWindowMonths int
	EmergencyFund      calculations.EmergencyFundPolicy

	DBDriver string
	DBDSN    string

	RedisAddr      string
	RedisDB        int
	IncomeCacheTTL time.Duration

	OTELEndpoint    string
	OTELServiceName string
	LogLevel        string
	PolicyFile      string
}

// policyFile описывает формат YAML-файла продуктовых политик
type policyFile struct {
	ForecastMaxMonths  int `yaml:"forecast_max_months"`
	IncomeWindowMonths int `yaml:"income_window_months"`
	EmergencyFund      struct {
		TargetMonths  *float64 `yaml:"target_months"`
		ExpenseRatio  *float64 `yaml:"expense_ratio"`
		PaydownMonths *float64 `yaml:"paydown_months"`
		MinPercent    *float64 `yaml:"min_percent"`
		MaxPercent    *float64 `yaml:"max_percent"`
		MetRatio      *float64 `yaml:"met_ratio"`
	} `yaml:"emergency_fund"`
}

// LoadConfig загружает конфигурацию из переменных окружения
func LoadConfig() (*Config, error) {
	// Загружаем .env файл, если он существует (игнорируем ошибку)
	_ = godotenv.Load()

	def := calculations.DefaultEmergencyFundPolicy()

	cfg := &Config{
		MaxPrincipal:       getEnvFloat("MAX_PRINCIPAL", 1e9),
		MaxMonths:          getEnvInt("MAX_MONTHS", 600),
		MaxRate:            getEnvFloat("MAX_RATE", 200),
		MaxBalanceCap:      getEnvFloat("MAX_BALANCE_CAP", 1e12),
		ForecastMonths:     getEnvInt("FORECAST_MAX_MONTHS", 1200),
		IncomeWindowMonths: getEnvInt("INCOME_WINDOW_MONTHS", 3),
		EmergencyFund: calculations.EmergencyFundPolicy{
			TargetMonths:  getEnvFloat("EF_TARGET_MONTHS", def.TargetMonths),
			ExpenseRatio:  getEnvFloat("EF_EXPENSE_RATIO", def.ExpenseRatio),
			PaydownMonths: getEnvFloat("EF_PAYDOWN_MONTHS", def.PaydownMonths),
			MinPercent:    getEnvFloat("EF_MIN_PCT", def.MinPercent),
			MaxPercent:    getEnvFloat("EF_MAX_PCT", def.MaxPercent),
			MetRatio:      getEnvFloat("EF_MET_RATIO", def.MetRatio),
		},
		DBDriver:        getEnvString("DB_DRIVER", "sqlite"),
		DBDSN:           getEnvString("DB_DSN", ""),
		RedisAddr:       getEnvString("REDIS_ADDR", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		IncomeCacheTTL:  time.Duration(getEnvInt("INCOME_CACHE_TTL_SECONDS", 3600)) * time.Second,
		OTELEndpoint:    getEnvString("OTEL_ENDPOINT", ""),
		OTELServiceName: getEnvString("OTEL_SERVICE_NAME", "household-finance-engine"),
		LogLevel:        getEnvString("LOG_LEVEL", "INFO"),
		PolicyFile:      getEnvString("POLICY_FILE", ""),
	}

	if cfg.PolicyFile != "" {
		if err := cfg.LoadPolicyFile(cfg.PolicyFile); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadPolicyFile переопределяет политики значениями из YAML-файла.
// Незаданные в файле поля сохраняют текущие значения.
func (c *Config) LoadPolicyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read policy file: %w", err)
	}

	var pf policyFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return fmt.Errorf("parse policy file %s: %w", path, err)
	}
	override(&c.EmergencyFund.TargetMonths, pf.EmergencyFund.TargetMonths)
	override(&c.EmergencyFund.ExpenseRatio, pf.EmergencyFund.ExpenseRatio)
	override(&c.EmergencyFund.PaydownMonths, pf.EmergencyFund.PaydownMonths)
	override(&c.EmergencyFund.MinPercent, pf.EmergencyFund.MinPercent)
	override(&c.EmergencyFund.MaxPercent, pf.EmergencyFund.MaxPercent)
	override(&c.EmergencyFund.MetRatio, pf.EmergencyFund.MetRatio)
	if pf.ForecastMaxMonths > 0 {
		c.ForecastMonths = pf.ForecastMaxMonths
	}
	if pf.IncomeWindowMonths > 0 {
		c.IncomeWindowMonths = pf.IncomeWindowMonths
	}
	return nil
}

// Validate проверяет согласованность политик
func (c *Config) Validate() error {
	ef := c.EmergencyFund
	if ef.MinPercent < 0 || ef.MaxPercent > 100 || ef.MinPercent > ef.MaxPercent {
		return fmt.Errorf("emergency fund percent bounds [%v; %v] are invalid", ef.MinPercent, ef.MaxPercent)
	}
	if ef.TargetMonths <= 0 || ef.PaydownMonths <= 0 {
		return fmt.Errorf("emergency fund target and paydown months must be positive")
	}
	if ef.ExpenseRatio <= 0 || ef.MetRatio <= 0 || ef.MetRatio > 1 {
		return fmt.Errorf("emergency fund ratios must be in (0; 1]")
	}
	if c.ForecastMonths <= 0 {
		return fmt.Errorf("FORECAST_MAX_MONTHS must be positive")
	}
	if c.IncomeWindowMonths <= 0 {
		return fmt.Errorf("INCOME_WINDOW_MONTHS must be positive")
	}
	switch c.DBDriver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	return nil
}

func override(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// BalanceCap возвращает максимальный баланс для защиты от переполнения
func (c *Config) BalanceCap() float64 {
	return c.MaxBalanceCap
}

// EmergencyFundPolicy возвращает политику резервного фонда
func (c *Config) EmergencyFundPolicy() calculations.EmergencyFundPolicy {
	return c.EmergencyFund
}

// ForecastMaxMonths возвращает потолок итераций прогноза погашения
func (c *Config) ForecastMaxMonths() int {
	return c.ForecastMonths
}
