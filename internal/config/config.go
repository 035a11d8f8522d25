package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ErrMissingCredential is returned when a required upstream secret is unset.
var ErrMissingCredential = errors.New("missing required credential")

// Config holds gateway configuration loaded from the environment. It is built
// once at startup and read-only afterwards.
type Config struct {
	Addr string `envconfig:"ADDR" default:":3001"`

	HubSpotToken   string `envconfig:"HUBSPOT_ACCESS_TOKEN"`
	HubSpotBaseURL string `envconfig:"HUBSPOT_API_BASE" default:"https://api.hubapi.com"`

	GeminiToken   string `envconfig:"GEMINI_TOKEN"`
	GeminiModel   string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash-lite"`
	GeminiBaseURL string `envconfig:"GEMINI_API_BASE"`

	UpstreamTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	StaticDir string `envconfig:"STATIC_DIR" default:"public"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads the configuration with Read and validates it.
func Load(envFiles ...string) (*Config, error) {
	cfg, err := Read(envFiles...)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read reads the given dotenv files (".env" when none are named), then the
// process environment. Missing dotenv files are ignored; variables already set
// in the environment win over file values. Nothing is validated.
func Read(envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	return &cfg, nil
}

// Validate reports every required secret that is absent or blank.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.HubSpotToken) == "" {
		missing = append(missing, "HUBSPOT_ACCESS_TOKEN")
	}
	if strings.TrimSpace(c.GeminiToken) == "" {
		missing = append(missing, "GEMINI_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredential, strings.Join(missing, ", "))
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %s", c.UpstreamTimeout)
	}
	return nil
}

// FakeCRM configures the HubSpot emulator binary.
type FakeCRM struct {
	Addr      string `envconfig:"CRMFAKE_ADDR" default:":8080"`
	DBPath    string `envconfig:"CRMFAKE_DB" default:"crmfake.db"`
	AuthToken string `envconfig:"CRMFAKE_AUTH_TOKEN"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// LoadFakeCRM reads the emulator configuration the same way Read does.
func LoadFakeCRM(envFiles ...string) (*FakeCRM, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}
	var cfg FakeCRM
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	return &cfg, nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}
