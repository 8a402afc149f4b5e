package config

import (
	"os"
	"path/filepath"
	"testing"
)

// writeConfig writes a config file into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig_Success(t *testing.T) {
	configPath := writeConfig(t, `
log_level: "info"
http_port: 9090
api_timeout: 20

email:
  day: 2
  hour: 15

uisp:
  urlprefix: "https://uisp.example.com/crm/api/v1.0"
  apikey: "crm-key"
  refresh_interval: 1800

frontline:
  urlprefix: "https://frontline.example.com/api"
  partnerid: "partner-1"
  authtoken: "front-token"
  authurl: "https://sso.example.com/oauth2/token"
  authbody: "grant_type=client_credentials"
  location_refresh_interval: 86400
  node_refresh_interval: 40
  node_batch_seconds: 10

observium:
  urlprefix: "https://observium.example.com/api/v0"
  username: "monitor"
  password: "secret"
  devices_querystring: "type=network&group=access"
  refresh_interval: 3600

mail:
  provider: "smtp"
  source: "noreply@example.com"
  cc:
    - "ops@example.com"
  subject_prefix: "Example ISP"
  smtp:
    host: "mail.example.com"
    port: 465
    username: "mailer"
    password: "mail-secret"

organizations:
  myorg:
    pastdue_report_to:
      - "billing@example.com"
      - "owner@example.com"
    billing_instructions:
      42:
        subscriber_target: 25
        nli_management: 10.5
        nli_isp: 5
        nli_capitated_connectivity: 7.25
    capitated_connectivity_min: 100
    capitated_connectivity_max: 500
    nli_monthly_connectivity: 250
    fixed_monthly_payouts:
      - name: "tower lease"
        amount: 99.5
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.HTTPPort != 9090 {
		t.Errorf("HTTPPort = %v, want 9090", cfg.HTTPPort)
	}
	if cfg.APITimeout != 20 {
		t.Errorf("APITimeout = %v, want 20", cfg.APITimeout)
	}
	if cfg.Email.Day != 2 || cfg.Email.Hour != 15 {
		t.Errorf("Email = %+v, want day 2 hour 15", cfg.Email)
	}
	if cfg.UISP == nil || cfg.UISP.APIKey != "crm-key" || cfg.UISP.RefreshInterval != 1800 {
		t.Errorf("UISP = %+v, want apikey crm-key interval 1800", cfg.UISP)
	}
	if cfg.Frontline == nil || cfg.Frontline.PartnerID != "partner-1" {
		t.Errorf("Frontline = %+v, want partnerid partner-1", cfg.Frontline)
	}
	if cfg.Observium == nil || cfg.Observium.DevicesQuery != "type=network&group=access" {
		t.Errorf("Observium = %+v, want devices_querystring", cfg.Observium)
	}
	if cfg.Mail.Provider != "smtp" || cfg.Mail.SMTP.Port != 465 {
		t.Errorf("Mail = %+v, want smtp port 465", cfg.Mail)
	}
	if cfg.Mail.SubjectPrefix != "Example ISP" {
		t.Errorf("SubjectPrefix = %v, want Example ISP", cfg.Mail.SubjectPrefix)
	}

	org, ok := cfg.Organizations["myorg"]
	if !ok {
		t.Fatal("Organizations should contain myorg")
	}
	if len(org.PastdueReportTo) != 2 || org.PastdueReportTo[0] != "billing@example.com" {
		t.Errorf("PastdueReportTo = %v, want two addresses", org.PastdueReportTo)
	}
	instr, ok := org.BillingInstructions[42]
	if !ok {
		t.Fatal("BillingInstructions should contain plan 42")
	}
	if instr.SubscriberTarget != 25 || instr.Management != 10.5 || instr.ISP != 5 {
		t.Errorf("Instruction = %+v, want target 25 management 10.5 isp 5", instr)
	}
	if instr.BillingFee != nil {
		t.Errorf("BillingFee = %v, want nil (unset)", *instr.BillingFee)
	}
	if org.CapitatedConnectivityMax == nil || *org.CapitatedConnectivityMax != 500 {
		t.Errorf("CapitatedConnectivityMax = %v, want 500", org.CapitatedConnectivityMax)
	}
	if len(org.FixedMonthlyPayouts) != 1 || org.FixedMonthlyPayouts[0].Amount != 99.5 {
		t.Errorf("FixedMonthlyPayouts = %v, want tower lease 99.5", org.FixedMonthlyPayouts)
	}
}

func TestLoad_ApplyDefaults_Success(t *testing.T) {
	// Minimal config with only the required UISP section
	configPath := writeConfig(t, `
uisp:
  urlprefix: "https://uisp.example.com/crm/api/v1.0"
  apikey: "crm-key"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
		desc string
	}{
		{"LogLevel", cfg.LogLevel, "info", "default log level"},
		{"APITimeout", cfg.APITimeout, 10, "default API timeout"},
		{"UISPRefreshInterval", cfg.UISP.RefreshInterval, 3600, "default UISP refresh interval"},
		{"EmailDay", cfg.Email.Day, -1, "weekly email disabled by default"},
		{"EmailHour", cfg.Email.Hour, 14, "default email hour"},
		{"MailProvider", cfg.Mail.Provider, "ses", "default mail provider"},
		{"SubjectPrefix", cfg.Mail.SubjectPrefix, "Next Level Infrastructure", "default subject prefix"},
		{"SMTPPort", cfg.Mail.SMTP.Port, 587, "default SMTP port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s: got %v, want %v", tt.desc, tt.got, tt.want)
			}
		})
	}
}

func TestLoad_FrontlineDefaults_Success(t *testing.T) {
	configPath := writeConfig(t, `
frontline:
  urlprefix: "https://frontline.example.com/api"
  partnerid: "partner-1"
  authtoken: "front-token"
  authurl: "https://sso.example.com/oauth2/token"
  authbody: "grant_type=client_credentials"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Frontline.LocationRefreshInterval != 86400 {
		t.Errorf("LocationRefreshInterval = %v, want 86400", cfg.Frontline.LocationRefreshInterval)
	}
	if cfg.Frontline.NodeRefreshInterval != 40 {
		t.Errorf("NodeRefreshInterval = %v, want 40", cfg.Frontline.NodeRefreshInterval)
	}
	if cfg.Frontline.NodeBatchSeconds != 10 {
		t.Errorf("NodeBatchSeconds = %v, want 10", cfg.Frontline.NodeBatchSeconds)
	}
}

func TestLoad_EnvOverrides_Success(t *testing.T) {
	configPath := writeConfig(t, `
log_level: "info"
http_port: 8080
uisp:
  urlprefix: "https://uisp.example.com/crm/api/v1.0"
  apikey: "file-key"
`)

	os.Setenv("STATUS_EXPORTER_LOG_LEVEL", "debug")
	os.Setenv("STATUS_EXPORTER_HTTP_PORT", "9090")
	os.Setenv("STATUS_EXPORTER_API_TIMEOUT", "30")
	os.Setenv("STATUS_EXPORTER_EMAIL_DAY", "-1")
	os.Setenv("STATUS_EXPORTER_UISP_API_KEY", "env-key")
	defer func() {
		os.Unsetenv("STATUS_EXPORTER_LOG_LEVEL")
		os.Unsetenv("STATUS_EXPORTER_HTTP_PORT")
		os.Unsetenv("STATUS_EXPORTER_API_TIMEOUT")
		os.Unsetenv("STATUS_EXPORTER_EMAIL_DAY")
		os.Unsetenv("STATUS_EXPORTER_UISP_API_KEY")
	}()

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %v, want debug (env override)", cfg.LogLevel)
	}
	if cfg.HTTPPort != 9090 {
		t.Errorf("HTTPPort = %v, want 9090 (env override)", cfg.HTTPPort)
	}
	if cfg.APITimeout != 30 {
		t.Errorf("APITimeout = %v, want 30 (env override)", cfg.APITimeout)
	}
	if cfg.UISP.APIKey != "env-key" {
		t.Errorf("UISP.APIKey = %v, want env-key (env override)", cfg.UISP.APIKey)
	}
}

func TestLoad_SecretFromEnvOnly_Success(t *testing.T) {
	// The config file may omit secrets entirely when they come from the
	// environment; validation runs after overrides.
	configPath := writeConfig(t, `
uisp:
  urlprefix: "https://uisp.example.com/crm/api/v1.0"
`)

	os.Setenv("STATUS_EXPORTER_UISP_API_KEY", "env-key")
	defer os.Unsetenv("STATUS_EXPORTER_UISP_API_KEY")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if cfg.UISP.APIKey != "env-key" {
		t.Errorf("UISP.APIKey = %v, want env-key", cfg.UISP.APIKey)
	}
}

func TestLoad_InvalidEnvInteger_Error(t *testing.T) {
	configPath := writeConfig(t, `
uisp:
  urlprefix: "https://uisp.example.com/crm/api/v1.0"
  apikey: "crm-key"
`)

	os.Setenv("STATUS_EXPORTER_HTTP_PORT", "not-a-number")
	defer os.Unsetenv("STATUS_EXPORTER_HTTP_PORT")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() error = nil, want error for non-integer STATUS_EXPORTER_HTTP_PORT")
	}
}

func TestLoad_PastdueReportToScalar_Success(t *testing.T) {
	// pastdue_report_to accepts a single scalar as well as a sequence
	configPath := writeConfig(t, `
uisp:
  urlprefix: "https://uisp.example.com/crm/api/v1.0"
  apikey: "crm-key"
organizations:
  myorg:
    pastdue_report_to: "owner@example.com"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	to := cfg.Organizations["myorg"].PastdueReportTo
	if len(to) != 1 || to[0] != "owner@example.com" {
		t.Errorf("PastdueReportTo = %v, want [owner@example.com]", to)
	}
}

// validUISP returns a UISP section that passes validation.
func validUISP() *UISPConfig {
	return &UISPConfig{
		URLPrefix:       "https://uisp.example.com/crm/api/v1.0",
		APIKey:          "crm-key",
		RefreshInterval: 3600,
	}
}

func TestValidate_NoVendor_Error(t *testing.T) {
	cfg := &Config{
		LogLevel:   "info",
		HTTPPort:   8080,
		APITimeout: 10,
		Email:      EmailConfig{Day: -1},
	}

	err := validate(cfg)
	if err == nil {
		t.Error("validate() error = nil, want error when no vendor is configured")
	}
}

func TestValidate_HTTPPortZero_Success(t *testing.T) {
	// Port 0 stays loadable so one-shot tools can share the config file
	cfg := &Config{
		LogLevel:   "info",
		APITimeout: 10,
		Email:      EmailConfig{Day: -1},
		UISP:       validUISP(),
	}

	if err := validate(cfg); err != nil {
		t.Errorf("validate() error = %v, want nil for port 0", err)
	}
}

func TestValidate_InvalidHTTPPort_Error(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"port too high", 70000},
		{"negative port", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				LogLevel:   "info",
				HTTPPort:   tt.port,
				APITimeout: 10,
				Email:      EmailConfig{Day: -1},
				UISP:       validUISP(),
			}

			err := validate(cfg)
			if err == nil {
				t.Errorf("validate() error = nil, want error for port %d", tt.port)
			}
		})
	}
}

func TestValidate_RefreshIntervalTooLow_Error(t *testing.T) {
	uisp := validUISP()
	uisp.RefreshInterval = 30 // Less than 60
	cfg := &Config{
		LogLevel:   "info",
		HTTPPort:   8080,
		APITimeout: 10,
		Email:      EmailConfig{Day: -1},
		UISP:       uisp,
	}

	err := validate(cfg)
	if err == nil {
		t.Error("validate() error = nil, want error for refresh_interval < 60")
	}
}

func TestValidate_EmailDayOutOfRange_Error(t *testing.T) {
	tests := []struct {
		name string
		day  int
	}{
		{"day too low", -2},
		{"day too high", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				LogLevel:   "info",
				HTTPPort:   8080,
				APITimeout: 10,
				Email:      EmailConfig{Day: tt.day},
				UISP:       validUISP(),
			}

			err := validate(cfg)
			if err == nil {
				t.Errorf("validate() error = nil, want error for email day %d", tt.day)
			}
		})
	}
}

func TestValidate_EmailWithoutUISP_Error(t *testing.T) {
	cfg := &Config{
		LogLevel:   "info",
		HTTPPort:   8080,
		APITimeout: 10,
		Email:      EmailConfig{Day: 2, Hour: 14},
		Observium: &ObserviumConfig{
			URLPrefix:       "https://observium.example.com/api/v0",
			Username:        "monitor",
			Password:        "secret",
			DevicesQuery:    "type=network",
			RefreshInterval: 3600,
		},
		Mail: MailConfig{
			Provider: "smtp",
			Source:   "noreply@example.com",
			SMTP:     SMTPConfig{Host: "mail.example.com", Port: 587},
		},
	}

	err := validate(cfg)
	if err == nil {
		t.Error("validate() error = nil, want error: email enabled without a uisp section")
	}
}

func TestValidate_EmailWithoutMailSource_Error(t *testing.T) {
	cfg := &Config{
		LogLevel:   "info",
		HTTPPort:   8080,
		APITimeout: 10,
		Email:      EmailConfig{Day: 2, Hour: 14},
		UISP:       validUISP(),
		Mail: MailConfig{
			Provider: "smtp",
			SMTP:     SMTPConfig{Host: "mail.example.com", Port: 587},
		},
	}

	err := validate(cfg)
	if err == nil {
		t.Error("validate() error = nil, want error: email enabled without a mail source")
	}
}

func TestValidate_UnknownMailProvider_Error(t *testing.T) {
	cfg := &Config{
		LogLevel:   "info",
		HTTPPort:   8080,
		APITimeout: 10,
		Email:      EmailConfig{Day: 2, Hour: 14},
		UISP:       validUISP(),
		Mail: MailConfig{
			Provider: "pigeon",
			Source:   "noreply@example.com",
		},
	}

	err := validate(cfg)
	if err == nil {
		t.Error("validate() error = nil, want error for unknown mail provider")
	}
}

func TestValidate_SESMissingCredentials_Error(t *testing.T) {
	cfg := &Config{
		LogLevel:   "info",
		HTTPPort:   8080,
		APITimeout: 10,
		Email:      EmailConfig{Day: 2, Hour: 14},
		UISP:       validUISP(),
		Mail: MailConfig{
			Provider: "ses",
			Source:   "noreply@example.com",
			SES:      SESConfig{Region: "us-west-2"},
		},
	}

	err := validate(cfg)
	if err == nil {
		t.Error("validate() error = nil, want error for ses without credentials")
	}
}

func TestValidate_MailIgnoredWhenEmailDisabled_Success(t *testing.T) {
	// An unconfigured mail section is fine while the weekly email is off
	cfg := &Config{
		LogLevel:   "info",
		HTTPPort:   8080,
		APITimeout: 10,
		Email:      EmailConfig{Day: -1},
		UISP:       validUISP(),
		Mail:       MailConfig{Provider: "pigeon"},
	}

	if err := validate(cfg); err != nil {
		t.Errorf("validate() error = %v, want nil when email is disabled", err)
	}
}

func TestValidate_UISPMissingAPIKey_Error(t *testing.T) {
	uisp := validUISP()
	uisp.APIKey = ""
	cfg := &Config{
		LogLevel:   "info",
		HTTPPort:   8080,
		APITimeout: 10,
		Email:      EmailConfig{Day: -1},
		UISP:       uisp,
	}

	err := validate(cfg)
	if err == nil {
		t.Error("validate() error = nil, want error for uisp without apikey")
	}
}

func TestValidate_ObserviumMissingQuery_Error(t *testing.T) {
	cfg := &Config{
		LogLevel:   "info",
		HTTPPort:   8080,
		APITimeout: 10,
		Email:      EmailConfig{Day: -1},
		Observium: &ObserviumConfig{
			URLPrefix:       "https://observium.example.com/api/v0",
			Username:        "monitor",
			Password:        "secret",
			RefreshInterval: 3600,
		},
	}

	err := validate(cfg)
	if err == nil {
		t.Error("validate() error = nil, want error for observium without devices_querystring")
	}
}

func TestValidate_OrganizationConnectivityBand_Error(t *testing.T) {
	maxBelow := 50.0
	cfg := &Config{
		LogLevel:   "info",
		HTTPPort:   8080,
		APITimeout: 10,
		Email:      EmailConfig{Day: -1},
		UISP:       validUISP(),
		Organizations: map[string]Organization{
			"myorg": {
				CapitatedConnectivityMin: 100,
				CapitatedConnectivityMax: &maxBelow,
			},
		},
	}

	err := validate(cfg)
	if err == nil {
		t.Error("validate() error = nil, want error for connectivity max below min")
	}
}

func TestValidate_NegativeBillingAmount_Error(t *testing.T) {
	cfg := &Config{
		LogLevel:   "info",
		HTTPPort:   8080,
		APITimeout: 10,
		Email:      EmailConfig{Day: -1},
		UISP:       validUISP(),
		Organizations: map[string]Organization{
			"myorg": {
				BillingInstructions: map[int]Instruction{
					42: {Management: -10},
				},
			},
		},
	}

	err := validate(cfg)
	if err == nil {
		t.Error("validate() error = nil, want error for negative nli_management")
	}
}

func TestLoad_MissingFile_Error(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() error = nil, want error for missing file")
	}
}

func TestLoad_MalformedYAML_Error(t *testing.T) {
	// Invalid YAML - incorrect indentation and structure
	configPath := writeConfig(t, `
uisp:
  urlprefix: "https://uisp.example.com"
  apikey: "key"
  invalid_nested:
- this: is
  : malformed
    yaml: [[[
`)

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() error = nil, want error for malformed YAML")
	}
}
