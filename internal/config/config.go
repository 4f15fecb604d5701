package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"NewsPublisher/internal/domain"
)

const (
	defaultTimezone  = "America/Cuiaba"
	ConfigPathEnv    = "NEWS_PUBLISHER_CONFIG"
	databaseDSNEnv   = "DATABASE_DSN"
	logLevelEnv      = "LOG_LEVEL"
	emailSenderEnv   = "EMAIL_SENDER"
	emailPasswordEnv = "EMAIL_PASSWORD"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	chatGPTAPIKeyEnv = "CHATGPT_API_KEY"
	chatGPTModelEnv  = "CHATGPT_MODEL"
	httpListenEnv    = "HTTP_LISTEN"
	dryRunEnv        = "INSTAGRAM_DRY_RUN"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging     LoggingConfig   `yaml:"logging"`
	Database    DatabaseConfig  `yaml:"database"`
	Scheduler   SchedulerConfig `yaml:"scheduler"`
	Pipeline    PipelineConfig  `yaml:"pipeline"`
	Email       EmailConfig     `yaml:"email"`
	Telegram    TelegramConfig  `yaml:"telegram"`
	Instagram   InstagramConfig `yaml:"instagram"`
	ChatGPT     ChatGPTConfig   `yaml:"chatgpt"`
	Trends      TrendsConfig    `yaml:"trends"`
	HTTP        HTTPConfig      `yaml:"http"`
	Clients     []ClientConfig  `yaml:"clients"`
	RemixTopics []string        `yaml:"remixTopics"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig holds the store DSN: a sqlite path or a postgres:// URL.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig lists the daily HH:MM firing times of every task.
type SchedulerConfig struct {
	Timezone     string         `yaml:"timezone"`
	PublishTimes []string       `yaml:"publishTimes"`
	ReportTimes  []string       `yaml:"reportTimes"`
	RemixTimes   []string       `yaml:"remixTimes"`
	StatsTimes   []string       `yaml:"statsTimes"`
	location     *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PipelineConfig tunes selection and pacing of the publish task. Pause and
// cooldown are pointers so an explicit 0 in the file overrides the default.
type PipelineConfig struct {
	FetchLimit             int  `yaml:"fetchLimit"`
	TopK                   int  `yaml:"topK"`
	PauseMinMinutes        *int `yaml:"pauseMinMinutes"`
	PauseMaxMinutes        *int `yaml:"pauseMaxMinutes"`
	FailureCooldownSeconds *int `yaml:"failureCooldownSeconds"`
}

func (p PipelineConfig) PauseMin() time.Duration {
	return time.Duration(intValue(p.PauseMinMinutes)) * time.Minute
}

func (p PipelineConfig) PauseMax() time.Duration {
	return time.Duration(intValue(p.PauseMaxMinutes)) * time.Minute
}

func (p PipelineConfig) Cooldown() time.Duration {
	return time.Duration(intValue(p.FailureCooldownSeconds)) * time.Second
}

type EmailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Sender   string `yaml:"sender"`
	Password string `yaml:"password"`
}

type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	APIBase  string `yaml:"apiBase"`
}

// InstagramConfig selects the Graph API or the dry-run publisher.
type InstagramConfig struct {
	DryRun          *bool  `yaml:"dryRun"`
	BaseURL         string `yaml:"baseUrl"`
	DefaultImageURL string `yaml:"defaultImageUrl"`
	TimeoutSeconds  int    `yaml:"timeoutSeconds"`
}

// IsDryRun defaults to true so a fresh install never posts for real.
func (i InstagramConfig) IsDryRun() bool {
	return i.DryRun == nil || *i.DryRun
}

// ChatGPTConfig defines how to contact the ChatGPT API for captions.
type ChatGPTConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// TrendsConfig points at the trending-topics feed and the remix webhook.
type TrendsConfig struct {
	URL          string `yaml:"url"`
	RemixWebhook string `yaml:"remixWebhook"`
	APIKey       string `yaml:"apiKey"`
}

// HTTPConfig enables the read-only dashboard API when Listen is set.
type HTTPConfig struct {
	Listen              string `yaml:"listen"`
	SummaryCacheSeconds int    `yaml:"summaryCacheSeconds"`
}

// ClientConfig seeds one client record at start-up. A secret written as
// ${NAME} is read from the environment.
type ClientConfig struct {
	Username      string `yaml:"username"`
	Active        *bool  `yaml:"active"`
	SourceKind    string `yaml:"sourceKind"`
	SourceURL     string `yaml:"sourceUrl"`
	SocialAccount string `yaml:"socialAccount"`
	SocialSecret  string `yaml:"socialSecret"`
	ReportTo      string `yaml:"reportTo"`
	RemixEnabled  bool   `yaml:"remixEnabled"`
	NicheKeywords string `yaml:"nicheKeywords"`
}

// Domain converts the seed into a client record.
func (c ClientConfig) Domain() domain.Client {
	status := domain.ClientActive
	if c.Active != nil && !*c.Active {
		status = domain.ClientInactive
	}
	kind := c.SourceKind
	if kind == "" {
		kind = domain.SourceWordPress
	}
	return domain.Client{
		Username:      c.Username,
		Status:        status,
		Source:        domain.Source{Kind: kind, Endpoint: c.SourceURL},
		Social:        domain.SocialCredentials{Account: c.SocialAccount, Secret: c.SocialSecret},
		ReportTo:      c.ReportTo,
		RemixEnabled:  c.RemixEnabled,
		NicheKeywords: c.NicheKeywords,
	}
}

// LoadFrom merges the YAML file at path over defaults and applies environment
// overrides. An empty path means defaults only.
func LoadFrom(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.expandSecrets()
	cfg.bindTimezone()

	return cfg
}

// Validate reports every setting that would make the scheduler or pipeline misbehave.
func (c Config) Validate() error {
	var errs []error

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("scheduler.timezone %q: %w", c.Scheduler.Timezone, err))
	}
	for name, times := range map[string][]string{
		"publishTimes": c.Scheduler.PublishTimes,
		"reportTimes":  c.Scheduler.ReportTimes,
		"remixTimes":   c.Scheduler.RemixTimes,
		"statsTimes":   c.Scheduler.StatsTimes,
	} {
		for _, raw := range times {
			if _, err := time.Parse("15:04", raw); err != nil {
				errs = append(errs, fmt.Errorf("scheduler.%s: %q is not HH:MM", name, raw))
			}
		}
	}

	p := c.Pipeline
	if p.FetchLimit <= 0 {
		errs = append(errs, errors.New("pipeline.fetchLimit must be positive"))
	}
	if p.TopK <= 0 {
		errs = append(errs, errors.New("pipeline.topK must be positive"))
	}
	pauseMin, pauseMax := intValue(p.PauseMinMinutes), intValue(p.PauseMaxMinutes)
	if pauseMin < 0 || pauseMax < pauseMin {
		errs = append(errs, fmt.Errorf("pipeline pause range [%d, %d] is invalid", pauseMin, pauseMax))
	}
	if intValue(p.FailureCooldownSeconds) < 0 {
		errs = append(errs, errors.New("pipeline.failureCooldownSeconds must not be negative"))
	}

	seen := map[string]bool{}
	for i, client := range c.Clients {
		if strings.TrimSpace(client.Username) == "" {
			errs = append(errs, fmt.Errorf("clients[%d]: username is required", i))
			continue
		}
		if seen[client.Username] {
			errs = append(errs, fmt.Errorf("clients[%d]: duplicate username %q", i, client.Username))
		}
		seen[client.Username] = true
		switch client.SourceKind {
		case "", domain.SourceWordPress, domain.SourceRSS:
		default:
			errs = append(errs, fmt.Errorf("clients[%d]: unknown source kind %q", i, client.SourceKind))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(emailSenderEnv); v != "" {
		c.Email.Sender = v
	}

	if v := os.Getenv(emailPasswordEnv); v != "" {
		c.Email.Password = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Telegram.BotToken = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}

	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}

	if v := os.Getenv(httpListenEnv); v != "" {
		c.HTTP.Listen = v
	}

	if v := os.Getenv(dryRunEnv); v != "" {
		if dry, err := strconv.ParseBool(v); err == nil {
			c.Instagram.DryRun = &dry
		} else {
			log.Printf("config: ignoring %s=%q: %v", dryRunEnv, v, err)
		}
	}
}

func (c *Config) expandSecrets() {
	for i := range c.Clients {
		c.Clients[i].SocialSecret = envReference(c.Clients[i].SocialSecret)
	}
	c.Email.Password = envReference(c.Email.Password)
}

// envReference resolves a value of the exact form ${NAME}; anything else is
// returned untouched so literal secrets may contain '$'.
func envReference(v string) string {
	if strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}") && len(v) > 3 {
		return os.Getenv(v[2 : len(v)-1])
	}
	return v
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
		c.Scheduler.Timezone = tz
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to UTC", tz)
		loc = time.UTC
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	if override.Scheduler.PublishTimes != nil {
		base.Scheduler.PublishTimes = override.Scheduler.PublishTimes
	}
	if override.Scheduler.ReportTimes != nil {
		base.Scheduler.ReportTimes = override.Scheduler.ReportTimes
	}
	if override.Scheduler.RemixTimes != nil {
		base.Scheduler.RemixTimes = override.Scheduler.RemixTimes
	}
	if override.Scheduler.StatsTimes != nil {
		base.Scheduler.StatsTimes = override.Scheduler.StatsTimes
	}

	if override.Pipeline.FetchLimit != 0 {
		base.Pipeline.FetchLimit = override.Pipeline.FetchLimit
	}
	if override.Pipeline.TopK != 0 {
		base.Pipeline.TopK = override.Pipeline.TopK
	}
	if override.Pipeline.PauseMinMinutes != nil {
		base.Pipeline.PauseMinMinutes = override.Pipeline.PauseMinMinutes
	}
	if override.Pipeline.PauseMaxMinutes != nil {
		base.Pipeline.PauseMaxMinutes = override.Pipeline.PauseMaxMinutes
	}
	if override.Pipeline.FailureCooldownSeconds != nil {
		base.Pipeline.FailureCooldownSeconds = override.Pipeline.FailureCooldownSeconds
	}

	if override.Email.Host != "" {
		base.Email.Host = override.Email.Host
	}
	if override.Email.Port != 0 {
		base.Email.Port = override.Email.Port
	}
	if override.Email.Sender != "" {
		base.Email.Sender = override.Email.Sender
	}
	if override.Email.Password != "" {
		base.Email.Password = override.Email.Password
	}

	if override.Telegram.BotToken != "" {
		base.Telegram.BotToken = override.Telegram.BotToken
	}
	if override.Telegram.APIBase != "" {
		base.Telegram.APIBase = override.Telegram.APIBase
	}

	if override.Instagram.DryRun != nil {
		base.Instagram.DryRun = override.Instagram.DryRun
	}
	if override.Instagram.BaseURL != "" {
		base.Instagram.BaseURL = override.Instagram.BaseURL
	}
	if override.Instagram.DefaultImageURL != "" {
		base.Instagram.DefaultImageURL = override.Instagram.DefaultImageURL
	}
	if override.Instagram.TimeoutSeconds != 0 {
		base.Instagram.TimeoutSeconds = override.Instagram.TimeoutSeconds
	}

	if override.ChatGPT.Enabled {
		base.ChatGPT.Enabled = true
	}
	if override.ChatGPT.Endpoint != "" {
		base.ChatGPT.Endpoint = override.ChatGPT.Endpoint
	}
	if override.ChatGPT.Model != "" {
		base.ChatGPT.Model = override.ChatGPT.Model
	}
	if override.ChatGPT.APIKey != "" {
		base.ChatGPT.APIKey = override.ChatGPT.APIKey
	}
	if override.ChatGPT.SystemPrompt != "" {
		base.ChatGPT.SystemPrompt = override.ChatGPT.SystemPrompt
	}

	if override.Trends.URL != "" {
		base.Trends.URL = override.Trends.URL
	}
	if override.Trends.RemixWebhook != "" {
		base.Trends.RemixWebhook = override.Trends.RemixWebhook
	}
	if override.Trends.APIKey != "" {
		base.Trends.APIKey = override.Trends.APIKey
	}

	if override.HTTP.Listen != "" {
		base.HTTP.Listen = override.HTTP.Listen
	}
	if override.HTTP.SummaryCacheSeconds != 0 {
		base.HTTP.SummaryCacheSeconds = override.HTTP.SummaryCacheSeconds
	}

	if len(override.Clients) > 0 {
		base.Clients = override.Clients
	}
	if len(override.RemixTopics) > 0 {
		base.RemixTopics = override.RemixTopics
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{DSN: "newspublisher.db"},
		Scheduler: SchedulerConfig{
			Timezone:     defaultTimezone,
			PublishTimes: []string{"09:53", "14:00", "16:42"},
			ReportTimes:  []string{"09:53"},
			RemixTimes:   []string{"14:10", "16:28"},
			StatsTimes:   []string{"23:55"},
		},
		Pipeline: PipelineConfig{
			FetchLimit:             10,
			TopK:                   3,
			PauseMinMinutes:        intPtr(5),
			PauseMaxMinutes:        intPtr(15),
			FailureCooldownSeconds: intPtr(60),
		},
		Email:     EmailConfig{Host: "smtp.gmail.com", Port: 587},
		Instagram: InstagramConfig{TimeoutSeconds: 30},
		ChatGPT: ChatGPTConfig{
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4o-mini",
		},
		HTTP: HTTPConfig{SummaryCacheSeconds: 30},
	}
}

func intPtr(v int) *int {
	return &v
}

func intValue(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
