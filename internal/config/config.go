// Package config loads the per-service configuration from flags, environment
// variables and an optional .env file. Each service gets a typed struct that
// is built once at startup and handed to the constructors that need it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Version is set at build time via -ldflags.
var Version = "dev"

const (
	DefaultGitHubBaseURL   = "https://api.github.com"
	DefaultFivetranBaseURL = "https://api.fivetran.com/v1"
	DefaultAddr            = "0.0.0.0:8000"
)

// Jira description formats.
const (
	FormatADF   = "adf"
	FormatPlain = "plain"
)

// Jira transition modes.
const (
	TransitionByName = "name"
	TransitionByID   = "id"
)

// Relay modes.
const (
	RelayFull = "full"
	RelayInfo = "info"
)

// Server holds settings shared by every subcommand.
type Server struct {
	Transport   string        `env:"MCP_TRANSPORT" validate:"oneof=stdio http"`
	Addr        string        `env:"MCP_ADDR" validate:"required"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" validate:"gte=0"`
	LogLevel    string        `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
}

// Confluence configures the Confluence/GitHub tool server. GitHubToken is
// optional: without it GitHub calls go out unauthenticated.
type Confluence struct {
	BaseURL       string `env:"CONFLUENCE_BASE_URL" validate:"required,url"`
	User          string `env:"CONFLUENCE_USER" validate:"required"`
	Token         string `env:"CONFLUENCE_TOKEN" validate:"required"`
	SpaceKey      string `env:"CONFLUENCE_SPACE_KEY"`
	SummaryModel  string `env:"CONFLUENCE_SUMMARY_MODEL"`
	GitHubToken   string `env:"GITHUB_TOKEN"`
	GitHubBaseURL string `env:"GITHUB_BASE_URL" validate:"required,url"`
}

// Jira configures the Jira tool server.
type Jira struct {
	BaseURL           string `env:"JIRA_BASE_URL" validate:"required,url"`
	Email             string `env:"JIRA_EMAIL" validate:"required"`
	APIToken          string `env:"JIRA_API_TOKEN" validate:"required"`
	DescriptionFormat string `env:"JIRA_DESCRIPTION_FORMAT" validate:"oneof=adf plain"`
	TransitionMode    string `env:"JIRA_TRANSITION_MODE" validate:"oneof=name id"`

	// TokenFromConfluence is set when APIToken was taken from
	// CONFLUENCE_TOKEN because JIRA_API_TOKEN was empty.
	TokenFromConfluence bool `validate:"-"`
}

// Fivetran configures the connector relay.
type Fivetran struct {
	APIKey    string `env:"FIVETRAN_API_KEY" validate:"required"`
	APISecret string `env:"FIVETRAN_API_SECRET" validate:"required"`
	BaseURL   string `env:"FIVETRAN_BASE_URL" validate:"required,url"`
	Mode      string `env:"RELAY_MODE" validate:"oneof=full info"`
	Addr      string `env:"RELAY_ADDR" validate:"required"`
}

// Error reports every missing or malformed variable of one section at once.
type Error struct {
	Section string
	Missing []string
	Invalid []string
}

func (e *Error) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing %s environment variables: %s", e.Section, strings.Join(e.Missing, ", ")))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, fmt.Sprintf("invalid %s settings: %s", e.Section, strings.Join(e.Invalid, ", ")))
	}
	return strings.Join(parts, "; ")
}

// NewViper returns a viper instance with env binding and defaults applied.
// Keys are the lower-cased environment variable names, so AutomaticEnv maps
// "jira_base_url" to JIRA_BASE_URL without a prefix.
func NewViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("mcp_transport", "stdio")
	v.SetDefault("mcp_addr", DefaultAddr)
	v.SetDefault("http_timeout", time.Duration(0))
	v.SetDefault("log_level", "info")
	v.SetDefault("github_base_url", DefaultGitHubBaseURL)
	v.SetDefault("jira_description_format", FormatADF)
	v.SetDefault("jira_transition_mode", TransitionByName)
	v.SetDefault("fivetran_base_url", DefaultFivetranBaseURL)
	v.SetDefault("relay_mode", RelayFull)
	v.SetDefault("relay_addr", DefaultAddr)
	return v
}

// LoadDotenv loads variables from the given files (".env" when none are
// given) without overriding the ones already set. Missing files are ignored.
func LoadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadServer reads the shared server settings.
func LoadServer(v *viper.Viper) (Server, error) {
	cfg := Server{
		Transport:   strings.ToLower(v.GetString("mcp_transport")),
		Addr:        v.GetString("mcp_addr"),
		HTTPTimeout: v.GetDuration("http_timeout"),
		LogLevel:    strings.ToLower(v.GetString("log_level")),
	}
	return cfg, check("server", cfg)
}

// LoadConfluence reads the Confluence/GitHub settings.
func LoadConfluence(v *viper.Viper) (Confluence, error) {
	cfg := Confluence{
		BaseURL:       strings.TrimRight(v.GetString("confluence_base_url"), "/"),
		User:          v.GetString("confluence_user"),
		Token:         v.GetString("confluence_token"),
		SpaceKey:      v.GetString("confluence_space_key"),
		SummaryModel:  v.GetString("confluence_summary_model"),
		GitHubToken:   v.GetString("github_token"),
		GitHubBaseURL: strings.TrimRight(v.GetString("github_base_url"), "/"),
	}
	return cfg, check("confluence", cfg)
}

// LoadJira reads the Jira settings. Older deployments put the Jira token in
// CONFLUENCE_TOKEN; it is used only when JIRA_API_TOKEN is empty.
func LoadJira(v *viper.Viper) (Jira, error) {
	cfg := Jira{
		BaseURL:           strings.TrimRight(v.GetString("jira_base_url"), "/"),
		Email:             v.GetString("jira_email"),
		APIToken:          v.GetString("jira_api_token"),
		DescriptionFormat: strings.ToLower(v.GetString("jira_description_format")),
		TransitionMode:    strings.ToLower(v.GetString("jira_transition_mode")),
	}
	if cfg.APIToken == "" {
		if tok := v.GetString("confluence_token"); tok != "" {
			cfg.APIToken = tok
			cfg.TokenFromConfluence = true
		}
	}
	return cfg, check("jira", cfg)
}

// LoadFivetran reads the relay settings.
func LoadFivetran(v *viper.Viper) (Fivetran, error) {
	cfg := Fivetran{
		APIKey:    v.GetString("fivetran_api_key"),
		APISecret: v.GetString("fivetran_api_secret"),
		BaseURL:   strings.TrimRight(v.GetString("fivetran_base_url"), "/"),
		Mode:      strings.ToLower(v.GetString("relay_mode")),
		Addr:      v.GetString("relay_addr"),
	}
	return cfg, check("fivetran", cfg)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by the variable that sets them.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

func check(section string, cfg any) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%s config: %w", section, err)
	}
	cerr := &Error{Section: section}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			cerr.Missing = append(cerr.Missing, fe.Field())
			continue
		}
		cerr.Invalid = append(cerr.Invalid, fmt.Sprintf("%s=%q (%s %s)", fe.Field(), fmt.Sprint(fe.Value()), fe.Tag(), fe.Param()))
	}
	return cerr
}
