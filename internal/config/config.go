package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Configuration validation constants
const (
	MinRefreshInterval     = 60 // Minimum refresh interval in seconds for full-snapshot domains
	MinNodeRefreshInterval = 5  // Minimum refresh interval in seconds for the node poller
	MinPort                = 1  // Minimum valid port number
	MaxPort                = 65535

	// Default values
	DefaultLogLevel                 = "info"
	DefaultAPITimeout               = 10 // seconds per vendor HTTP attempt
	DefaultUISPRefreshInterval      = 3600
	DefaultLocationRefreshInterval  = 86400 // customers and locations change rarely
	DefaultNodeRefreshInterval      = 40
	DefaultNodeBatchSeconds         = 10
	DefaultObserviumRefreshInterval = 3600
	DefaultEmailDay                 = -1 // weekly email disabled
	DefaultEmailHour                = 14
	DefaultMailProvider             = "ses"
	DefaultSMTPPort                 = 587
	DefaultSubjectPrefix            = "Next Level Infrastructure"
)

// EmailConfig gates the weekly subscriber-summary email.
// Day uses time.Weekday numbering (0=Sunday .. 6=Saturday); -1 disables.
type EmailConfig struct {
	Day  int `yaml:"day"`
	Hour int `yaml:"hour"` // UTC hour threshold, 0-23
}

// UISPConfig configures the UISP CRM client.
type UISPConfig struct {
	URLPrefix       string `yaml:"urlprefix"`
	APIKey          string `yaml:"apikey"`
	RefreshInterval int    `yaml:"refresh_interval"` // seconds
}

// FrontlineConfig configures the Plume Frontline client.
type FrontlineConfig struct {
	URLPrefix string `yaml:"urlprefix"`
	PartnerID string `yaml:"partnerid"`
	AuthToken string `yaml:"authtoken"`
	AuthURL   string `yaml:"authurl"`
	AuthBody  string `yaml:"authbody"`

	LocationRefreshInterval int `yaml:"location_refresh_interval"` // seconds
	NodeRefreshInterval     int `yaml:"node_refresh_interval"`     // seconds
	NodeBatchSeconds        int `yaml:"node_batch_seconds"`        // time budget per node batch
}

// ObserviumConfig configures the Observium client.
type ObserviumConfig struct {
	URLPrefix       string `yaml:"urlprefix"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	DevicesQuery    string `yaml:"devices_querystring"` // raw query string selecting access devices
	RefreshInterval int    `yaml:"refresh_interval"`    // seconds
}

// SESConfig holds AWS SES credentials for the "ses" mail provider.
type SESConfig struct {
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// SMTPConfig holds server settings for the "smtp" mail provider.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MailConfig selects and configures the outgoing mail transport.
type MailConfig struct {
	Provider      string     `yaml:"provider"` // "ses" or "smtp"
	Source        string     `yaml:"source"`   // From address
	CC            []string   `yaml:"cc"`
	SubjectPrefix string     `yaml:"subject_prefix"`
	SES           SESConfig  `yaml:"ses"`
	SMTP          SMTPConfig `yaml:"smtp"`
}

// Payout is a fixed monthly amount paid out of an organization's revenue.
type Payout struct {
	Name   string  `yaml:"name"`
	Amount float64 `yaml:"amount"`
}

// Instruction is the per-service-plan billing split. Amounts are per
// active service per month except BillingFee, which defaults to 3% of
// plan revenue when unset.
type Instruction struct {
	SubscriberTarget      int      `yaml:"subscriber_target"`
	Management            float64  `yaml:"nli_management"`
	ISP                   float64  `yaml:"nli_isp"`
	CapitatedConnectivity float64  `yaml:"nli_capitated_connectivity"`
	BillingFee            *float64 `yaml:"nli_billing_fee"`
}

// Organization holds the billing and reporting settings for one member
// organization.
type Organization struct {
	PastdueReportTo          StringList          `yaml:"pastdue_report_to"`
	BillingInstructions      map[int]Instruction `yaml:"billing_instructions"`
	CapitatedConnectivityMin float64             `yaml:"capitated_connectivity_min"`
	// Pointer to distinguish an explicit 0 (no connectivity payout) from unset
	CapitatedConnectivityMax *float64 `yaml:"capitated_connectivity_max"`
	NLIMonthlyConnectivity   float64  `yaml:"nli_monthly_connectivity"`
	FixedMonthlyPayouts      []Payout `yaml:"fixed_monthly_payouts"`
}

// StringList accepts either a single YAML scalar or a sequence of strings.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var one string
		if err := value.Decode(&one); err != nil {
			return err
		}
		*s = StringList{one}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := value.Decode(&many); err != nil {
			return err
		}
		*s = StringList(many)
		return nil
	default:
		return fmt.Errorf("expected string or list of strings, got yaml kind %d", value.Kind)
	}
}

// Config represents the application configuration. A nil vendor section
// disables that subsystem entirely.
type Config struct {
	LogLevel   string `yaml:"log_level"`
	HTTPPort   int    `yaml:"http_port"`
	APITimeout int    `yaml:"api_timeout"` // seconds

	Email EmailConfig `yaml:"email"`

	UISP      *UISPConfig      `yaml:"uisp"`
	Frontline *FrontlineConfig `yaml:"frontline"`
	Observium *ObserviumConfig `yaml:"observium"`

	Mail MailConfig `yaml:"mail"`

	Organizations map[string]Organization `yaml:"organizations"`
}

// Load loads configuration from a YAML file and applies environment variable overrides
func Load(path string) (*Config, error) {
	// #nosec G304 -- Config file path is provided by administrator via CLI flag, not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Email day/hour are seeded before parsing because their zero
	// values (Sunday, midnight) are meaningful settings.
	cfg := Config{
		Email: EmailConfig{Day: DefaultEmailDay, Hour: DefaultEmailHour},
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment variable error: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for configuration
func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.APITimeout == 0 {
		cfg.APITimeout = DefaultAPITimeout
	}
	if cfg.UISP != nil && cfg.UISP.RefreshInterval == 0 {
		cfg.UISP.RefreshInterval = DefaultUISPRefreshInterval
	}
	if cfg.Frontline != nil {
		if cfg.Frontline.LocationRefreshInterval == 0 {
			cfg.Frontline.LocationRefreshInterval = DefaultLocationRefreshInterval
		}
		if cfg.Frontline.NodeRefreshInterval == 0 {
			cfg.Frontline.NodeRefreshInterval = DefaultNodeRefreshInterval
		}
		if cfg.Frontline.NodeBatchSeconds == 0 {
			cfg.Frontline.NodeBatchSeconds = DefaultNodeBatchSeconds
		}
	}
	if cfg.Observium != nil && cfg.Observium.RefreshInterval == 0 {
		cfg.Observium.RefreshInterval = DefaultObserviumRefreshInterval
	}
	if cfg.Mail.Provider == "" {
		cfg.Mail.Provider = DefaultMailProvider
	}
	if cfg.Mail.SubjectPrefix == "" {
		cfg.Mail.SubjectPrefix = DefaultSubjectPrefix
	}
	if cfg.Mail.SMTP.Port == 0 {
		cfg.Mail.SMTP.Port = DefaultSMTPPort
	}
}

// applyEnvOverrides applies environment variable overrides to configuration
func applyEnvOverrides(cfg *Config) error {
	if val := os.Getenv("STATUS_EXPORTER_LOG_LEVEL"); val != "" {
		cfg.LogLevel = val
	}

	if val := os.Getenv("STATUS_EXPORTER_HTTP_PORT"); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid STATUS_EXPORTER_HTTP_PORT: must be an integer, got %q", val)
		}
		cfg.HTTPPort = i
	}

	if val := os.Getenv("STATUS_EXPORTER_API_TIMEOUT"); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid STATUS_EXPORTER_API_TIMEOUT: must be an integer, got %q", val)
		}
		cfg.APITimeout = i
	}

	if val := os.Getenv("STATUS_EXPORTER_EMAIL_DAY"); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid STATUS_EXPORTER_EMAIL_DAY: must be an integer, got %q", val)
		}
		cfg.Email.Day = i
	}

	if val := os.Getenv("STATUS_EXPORTER_EMAIL_HOUR"); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid STATUS_EXPORTER_EMAIL_HOUR: must be an integer, got %q", val)
		}
		cfg.Email.Hour = i
	}

	// Secrets may be supplied by environment instead of the config file.
	if val := os.Getenv("STATUS_EXPORTER_UISP_API_KEY"); val != "" && cfg.UISP != nil {
		cfg.UISP.APIKey = val
	}
	if val := os.Getenv("STATUS_EXPORTER_FRONTLINE_AUTH_TOKEN"); val != "" && cfg.Frontline != nil {
		cfg.Frontline.AuthToken = val
	}
	if val := os.Getenv("STATUS_EXPORTER_OBSERVIUM_PASSWORD"); val != "" && cfg.Observium != nil {
		cfg.Observium.Password = val
	}
	if val := os.Getenv("STATUS_EXPORTER_SES_ACCESS_KEY"); val != "" {
		cfg.Mail.SES.AccessKey = val
	}
	if val := os.Getenv("STATUS_EXPORTER_SES_SECRET_KEY"); val != "" {
		cfg.Mail.SES.SecretKey = val
	}
	if val := os.Getenv("STATUS_EXPORTER_SMTP_PASSWORD"); val != "" {
		cfg.Mail.SMTP.Password = val
	}

	return nil
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.UISP == nil && cfg.Frontline == nil && cfg.Observium == nil {
		return fmt.Errorf("no vendor configured: need at least one of uisp, frontline, observium")
	}

	// Port 0 means "do not serve"; main refuses to run in that case,
	// but the config itself stays loadable for one-shot tools.
	if cfg.HTTPPort != 0 && (cfg.HTTPPort < MinPort || cfg.HTTPPort > MaxPort) {
		return fmt.Errorf("http_port must be between %d and %d, got %d", MinPort, MaxPort, cfg.HTTPPort)
	}

	if cfg.APITimeout <= 0 {
		return fmt.Errorf("api_timeout must be positive, got %d", cfg.APITimeout)
	}
	if cfg.APITimeout > 300 {
		return fmt.Errorf("api_timeout should not exceed 300 seconds (5 minutes), got %d", cfg.APITimeout)
	}

	if cfg.Email.Day < -1 || cfg.Email.Day > 6 {
		return fmt.Errorf("email day must be -1 (disabled) or 0-6 (0=Sunday), got %d", cfg.Email.Day)
	}
	if cfg.Email.Hour < 0 || cfg.Email.Hour > 23 {
		return fmt.Errorf("email hour must be 0-23, got %d", cfg.Email.Hour)
	}

	if cfg.UISP != nil {
		if cfg.UISP.URLPrefix == "" {
			return fmt.Errorf("no urlprefix in uisp config")
		}
		if cfg.UISP.APIKey == "" {
			return fmt.Errorf("no apikey in uisp config")
		}
		if cfg.UISP.RefreshInterval < MinRefreshInterval {
			return fmt.Errorf("uisp refresh_interval must be at least %d seconds", MinRefreshInterval)
		}
	}

	if cfg.Frontline != nil {
		if cfg.Frontline.URLPrefix == "" {
			return fmt.Errorf("no urlprefix in frontline config")
		}
		if cfg.Frontline.PartnerID == "" {
			return fmt.Errorf("no partnerid in frontline config")
		}
		if cfg.Frontline.AuthToken == "" {
			return fmt.Errorf("no authtoken in frontline config")
		}
		if cfg.Frontline.AuthURL == "" {
			return fmt.Errorf("no authurl in frontline config")
		}
		if cfg.Frontline.AuthBody == "" {
			return fmt.Errorf("no authbody in frontline config")
		}
		if cfg.Frontline.LocationRefreshInterval < MinRefreshInterval {
			return fmt.Errorf("frontline location_refresh_interval must be at least %d seconds", MinRefreshInterval)
		}
		if cfg.Frontline.NodeRefreshInterval < MinNodeRefreshInterval {
			return fmt.Errorf("frontline node_refresh_interval must be at least %d seconds", MinNodeRefreshInterval)
		}
		if cfg.Frontline.NodeBatchSeconds < 1 {
			return fmt.Errorf("frontline node_batch_seconds must be positive, got %d", cfg.Frontline.NodeBatchSeconds)
		}
	}

	if cfg.Observium != nil {
		if cfg.Observium.URLPrefix == "" {
			return fmt.Errorf("no urlprefix in observium config")
		}
		if cfg.Observium.Username == "" {
			return fmt.Errorf("no username in observium config")
		}
		if cfg.Observium.Password == "" {
			return fmt.Errorf("no password in observium config")
		}
		if cfg.Observium.DevicesQuery == "" {
			return fmt.Errorf("no devices_querystring in observium config")
		}
		if cfg.Observium.RefreshInterval < MinRefreshInterval {
			return fmt.Errorf("observium refresh_interval must be at least %d seconds", MinRefreshInterval)
		}
	}

	// Mail settings are needed only when the weekly email is enabled, and
	// the summary body is built from CRM data.
	if cfg.Email.Day >= 0 {
		if cfg.UISP == nil {
			return fmt.Errorf("email day is set but no uisp section is configured")
		}
		if err := validateMail(&cfg.Mail); err != nil {
			return err
		}
	}

	for name, org := range cfg.Organizations {
		if org.CapitatedConnectivityMin < 0 {
			return fmt.Errorf("organization %s: capitated_connectivity_min cannot be negative", name)
		}
		if org.CapitatedConnectivityMax != nil && *org.CapitatedConnectivityMax < org.CapitatedConnectivityMin {
			return fmt.Errorf("organization %s: capitated_connectivity_max below capitated_connectivity_min", name)
		}
		for spid, bi := range org.BillingInstructions {
			if bi.Management < 0 || bi.ISP < 0 || bi.CapitatedConnectivity < 0 {
				return fmt.Errorf("organization %s: negative billing amount for service plan %d", name, spid)
			}
			if bi.BillingFee != nil && *bi.BillingFee < 0 {
				return fmt.Errorf("organization %s: negative nli_billing_fee for service plan %d", name, spid)
			}
		}
		for i, p := range org.FixedMonthlyPayouts {
			if p.Name == "" {
				return fmt.Errorf("organization %s: fixed_monthly_payouts[%d] has no name", name, i)
			}
		}
	}

	return nil
}

func validateMail(m *MailConfig) error {
	if m.Source == "" {
		return fmt.Errorf("mail source address required when email day is set")
	}
	switch m.Provider {
	case "ses":
		if m.SES.Region == "" {
			return fmt.Errorf("no region in ses config")
		}
		if m.SES.AccessKey == "" || m.SES.SecretKey == "" {
			return fmt.Errorf("ses access_key and secret_key required")
		}
	case "smtp":
		if m.SMTP.Host == "" {
			return fmt.Errorf("no host in smtp config")
		}
		if m.SMTP.Port < MinPort || m.SMTP.Port > MaxPort {
			return fmt.Errorf("smtp port must be between %d and %d, got %d", MinPort, MaxPort, m.SMTP.Port)
		}
	default:
		return fmt.Errorf("unknown mail provider %q (want ses or smtp)", m.Provider)
	}
	return nil
}
