package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // embedded zoneinfo for feedback.timezone

	"github.com/spf13/viper"

	"github.com/Veraticus/shelfwise/internal/common"
)

// EnvPrefix is the prefix of environment overrides, e.g. SHELFWISE_MAIL_HOST.
const EnvPrefix = "SHELFWISE"

// Settings is the resolved application configuration.
type Settings struct {
	Database   DatabaseSettings
	Lending    LendingSettings
	Sentiment  SentimentSettings
	Categories CategorySettings
	Feedback   FeedbackSettings
	Mail       MailSettings
	Server     ServerSettings
}

// DatabaseSettings locate the SQLite database.
type DatabaseSettings struct {
	Path string
}

// LendingSettings locate the lending history.
type LendingSettings struct {
	HistoryPath     string
	FacultyPrefixes []string
}

// SentimentSettings tune the sentiment model.
type SentimentSettings struct {
	PositiveThreshold float64
}

// CategorySettings locate the keyword configuration.
type CategorySettings struct {
	Path string
}

// FeedbackSettings gate and shape submissions.
type FeedbackSettings struct {
	AllowedDomain string
	Timezone      string
	Questions     []string
	Cooldown      time.Duration
	FloorNo       int
}

// MailSettings configure outbound email.
type MailSettings struct {
	Host      string
	Username  string
	Password  string
	From      string
	PortalURL string
	Port      int
	Enabled   bool
	UseTLS    bool
}

// ServerSettings configure the HTTP API.
type ServerSettings struct {
	Addr           string
	RequestTimeout time.Duration
}

// DefaultQuestions is the feedback form used when none is configured.
var DefaultQuestions = []string{
	"How often do you visit the library?",
	"How satisfied are you with the collection?",
	"How would you rate the reading spaces?",
	"Any other comments or issues?",
}

// SetDefaults registers every key's default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("database.path", "$HOME/.local/share/shelfwise/shelfwise.db")
	v.SetDefault("lending.history_path", "data/lending_history.csv")
	v.SetDefault("lending.faculty_prefixes", []string{"C"})
	v.SetDefault("sentiment.positive_threshold", 0.05)
	v.SetDefault("categories.path", "config/categories.json")

	v.SetDefault("feedback.allowed_domain", "psgtech.ac.in")
	v.SetDefault("feedback.cooldown_days", 30)
	v.SetDefault("feedback.floor_no", 0)
	v.SetDefault("feedback.timezone", "Asia/Kolkata")
	v.SetDefault("feedback.questions", DefaultQuestions)

	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.host", "smtp.gmail.com")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.use_tls", true)
	v.SetDefault("mail.portal_url", "https://library.psgtech.ac.in")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.request_timeout", "30s")
}

// BindEnv makes SHELFWISE_SECTION_KEY override section.key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads and validates settings from v. Paths are expanded.
func Load(v *viper.Viper) (Settings, error) {
	s := Settings{
		Database: DatabaseSettings{Path: ExpandPath(v.GetString("database.path"))},
		Lending: LendingSettings{
			HistoryPath:     ExpandPath(v.GetString("lending.history_path")),
			FacultyPrefixes: v.GetStringSlice("lending.faculty_prefixes"),
		},
		Sentiment:  SentimentSettings{PositiveThreshold: v.GetFloat64("sentiment.positive_threshold")},
		Categories: CategorySettings{Path: ExpandPath(v.GetString("categories.path"))},
		Feedback: FeedbackSettings{
			AllowedDomain: v.GetString("feedback.allowed_domain"),
			Cooldown:      time.Duration(v.GetInt("feedback.cooldown_days")) * 24 * time.Hour,
			FloorNo:       v.GetInt("feedback.floor_no"),
			Timezone:      v.GetString("feedback.timezone"),
			Questions:     v.GetStringSlice("feedback.questions"),
		},
		Mail: MailSettings{
			Enabled:   v.GetBool("mail.enabled"),
			Host:      v.GetString("mail.host"),
			Port:      v.GetInt("mail.port"),
			Username:  v.GetString("mail.username"),
			Password:  v.GetString("mail.password"),
			From:      v.GetString("mail.from"),
			PortalURL: v.GetString("mail.portal_url"),
			UseTLS:    v.GetBool("mail.use_tls"),
		},
		Server: ServerSettings{
			Addr:           v.GetString("server.addr"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
		},
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate rejects settings the application cannot start with.
func (s Settings) Validate() error {
	required := map[string]string{
		"database.path":        s.Database.Path,
		"lending.history_path": s.Lending.HistoryPath,
		"categories.path":      s.Categories.Path,
	}
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: %s", common.ErrMissingConfig, key)
		}
	}

	if t := s.Sentiment.PositiveThreshold; t <= -1 || t >= 1 {
		return fmt.Errorf("%w: sentiment.positive_threshold must be between -1 and 1", common.ErrInvalidConfig)
	}
	if s.Feedback.Cooldown < 0 {
		return fmt.Errorf("%w: feedback.cooldown_days cannot be negative", common.ErrInvalidConfig)
	}
	if _, err := s.Feedback.Location(); err != nil {
		return err
	}
	if s.Server.RequestTimeout < 0 {
		return fmt.Errorf("%w: server.request_timeout cannot be negative", common.ErrInvalidConfig)
	}
	if s.Mail.Enabled && s.Mail.From == "" {
		return fmt.Errorf("%w: mail.from is required when mail is enabled", common.ErrMissingConfig)
	}
	return nil
}

// Location resolves the timezone used for day buckets and cooldown dates.
func (f FeedbackSettings) Location() (*time.Location, error) {
	if f.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: feedback.timezone %q: %w", common.ErrInvalidConfig, f.Timezone, err)
	}
	return loc, nil
}
