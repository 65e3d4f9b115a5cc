// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like WORKFLOW_DRY_RUN
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile tries .env in the working directory and upwards, so the runner
// behaves the same from the repo root and from test directories.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "renewal-bot"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.Browser.DebuggerURL == "" {
		cfg.Browser.DebuggerURL = "http://localhost:9222"
	}
	if cfg.Workflow.StepTimeout == 0 {
		cfg.Workflow.StepTimeout = 8000
	}
	if cfg.Workflow.DescriptorTimeout == 0 {
		cfg.Workflow.DescriptorTimeout = 3000
	}
	if cfg.Workflow.PostTimeout == 0 {
		cfg.Workflow.PostTimeout = 8000
	}
	if cfg.Workflow.SignatureTimeout == 0 {
		cfg.Workflow.SignatureTimeout = 15000
	}
	if cfg.Workflow.StepRetries == 0 {
		cfg.Workflow.StepRetries = 3
	}
	if cfg.Workflow.IncomeEditRetries == 0 {
		cfg.Workflow.IncomeEditRetries = 3
	}
	// Empirically tuned policy range carried over from operations; opaque
	// to the engine.
	if cfg.Workflow.IncomeMin == 0 {
		cfg.Workflow.IncomeMin = 23985
	}
	if cfg.Workflow.IncomeMax == 0 {
		cfg.Workflow.IncomeMax = 24445
	}
	if len(cfg.Carriers.Approved) == 0 {
		cfg.Carriers.Approved = []string{
			"oscar", "molina", "aetna", "cigna", "healthfirst", "avmed", "blue",
		}
	}
	if cfg.Source.ProcessedPath == "" && cfg.Source.ListPath != "" {
		cfg.Source.ProcessedPath = cfg.Source.ListPath + ".processed"
	}
	if cfg.Source.MaxRows == 0 {
		cfg.Source.MaxRows = 10
	}
	if cfg.Audit.FilePath == "" {
		cfg.Audit.FilePath = "renewal_audit.jsonl"
	}
	if cfg.Audit.ScreenshotDir == "" {
		cfg.Audit.ScreenshotDir = "error_screenshots"
	}
	if cfg.Database.Redis.Address == "" {
		cfg.Database.Redis.Address = "localhost:6379"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Workflow.IncomeMin > cfg.Workflow.IncomeMax {
		return fmt.Errorf("workflow.income_min %d exceeds income_max %d",
			cfg.Workflow.IncomeMin, cfg.Workflow.IncomeMax)
	}
	if cfg.Workflow.StepRetries < 1 {
		return fmt.Errorf("workflow.step_retries must be at least 1")
	}
	if len(cfg.Carriers.Approved) == 0 {
		return fmt.Errorf("carriers.approved must not be empty")
	}
	if cfg.Database.Postgres.Enabled {
		if cfg.Database.Postgres.Host == "" || cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres enabled but host/database missing")
		}
	}
	return nil
}
