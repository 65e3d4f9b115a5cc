// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Browser       BrowserConfig       `mapstructure:"browser"`
	Workflow      WorkflowConfig      `mapstructure:"workflow"`
	Carriers      CarrierConfig       `mapstructure:"carriers"`
	Source        SourceConfig        `mapstructure:"source"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Audit         AuditConfig         `mapstructure:"audit"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// BrowserConfig locates the already-running Chrome session the bot attaches
// to. The session is never launched by the bot.
type BrowserConfig struct {
	DebuggerURL   string `mapstructure:"debugger_url"`
	ClientListURL string `mapstructure:"client_list_url"`
}

// WorkflowConfig holds per-step timing and retry policy. Timeouts are in
// milliseconds. The income bounds are an empirically tuned policy input; the
// engine treats them as opaque.
type WorkflowConfig struct {
	DryRun            bool `mapstructure:"dry_run"`
	StepTimeout       int  `mapstructure:"step_timeout"`        // milliseconds
	DescriptorTimeout int  `mapstructure:"descriptor_timeout"`  // milliseconds, per fallback descriptor
	PostTimeout       int  `mapstructure:"post_timeout"`        // milliseconds
	SignatureTimeout  int  `mapstructure:"signature_timeout"`   // milliseconds
	StepRetries       int  `mapstructure:"step_retries"`        // stale re-resolve ceiling
	IncomeEditRetries int  `mapstructure:"income_edit_retries"` // page refresh between attempts
	IncomeMin         int  `mapstructure:"income_min"`          // inclusive, dollars
	IncomeMax         int  `mapstructure:"income_max"`          // inclusive, dollars
}

func (w WorkflowConfig) StepTimeoutDuration() time.Duration {
	return time.Duration(w.StepTimeout) * time.Millisecond
}

func (w WorkflowConfig) DescriptorTimeoutDuration() time.Duration {
	return time.Duration(w.DescriptorTimeout) * time.Millisecond
}

func (w WorkflowConfig) PostTimeoutDuration() time.Duration {
	return time.Duration(w.PostTimeout) * time.Millisecond
}

func (w WorkflowConfig) SignatureTimeoutDuration() time.Duration {
	return time.Duration(w.SignatureTimeout) * time.Millisecond
}

// CarrierConfig is the approved-carrier set. Read-only during a run.
type CarrierConfig struct {
	Approved []string `mapstructure:"approved"`
}

// SourceConfig points at the client worklist.
type SourceConfig struct {
	ListPath      string `mapstructure:"list_path"`
	ProcessedPath string `mapstructure:"processed_path"` // defaults to ListPath + ".processed"
	MaxRows       int    `mapstructure:"max_rows"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuditConfig configures the append-only audit trail. The file sink is always
// on; the postgres sink follows database.postgres.enabled.
type AuditConfig struct {
	FilePath      string `mapstructure:"file_path"`
	ScreenshotDir string `mapstructure:"screenshot_dir"`
}

type NotificationsConfig struct {
	AWS AWSConfig `mapstructure:"aws"`
}

type AWSConfig struct {
	Region string    `mapstructure:"region"`
	SES    SESConfig `mapstructure:"ses"`
	SNS    SNSConfig `mapstructure:"sns"`
}

type SESConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	FromEmail  string   `mapstructure:"from_email"`
	Recipients []string `mapstructure:"recipients"`
}

type SNSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	TopicARN string `mapstructure:"topic_arn"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
