package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the whole service configuration, processed from the
// environment. The model API key itself stays with the llm package, which
// resolves OPENAI_/OPENROUTER_ variables per request; an optional secret
// file can seed it at startup (see Load).
type Config struct {
	Server  ServerConfig
	Model   ModelConfig
	Relay   RelayConfig
	Store   StoreConfig
	Advisor AdvisorConfig
	Vision  VisionConfig
	Log     LogConfig
}

type ServerConfig struct {
	Addr            string        `envconfig:"ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

type ModelConfig struct {
	Name string `envconfig:"MODEL" default:"gpt-4o-mini"`
}

type RelayConfig struct {
	// UpstreamURL switches the capture endpoint into transparent proxy
	// mode when set.
	UpstreamURL string `envconfig:"RELAY_UPSTREAM_URL" default:""`
}

type StoreConfig struct {
	// DSN is optional; without it nothing is persisted.
	DSN string `envconfig:"DATABASE_URL" default:""`
}

type AdvisorConfig struct {
	ActingExitWindow     time.Duration `envconfig:"ACTING_EXIT_WINDOW" default:"3s"`
	WaitingConfirmations int           `envconfig:"WAITING_CONFIRMATIONS" default:"2"`
	ActingConfirmHigh    int           `envconfig:"ACTING_CONFIRMATIONS_HIGH" default:"1"`
	ActingConfirmLow     int           `envconfig:"ACTING_CONFIRMATIONS_LOW" default:"2"`
	PixelEscapeThreshold int           `envconfig:"PIXEL_ESCAPE_THRESHOLD" default:"5"`
}

type VisionConfig struct {
	BandFrac         float64 `envconfig:"VISION_BAND_FRAC" default:"0.25"`
	PrimaryDensity   float64 `envconfig:"VISION_PRIMARY_DENSITY" default:"0.06"`
	SecondaryDensity float64 `envconfig:"VISION_SECONDARY_DENSITY" default:"0.04"`
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// Load processes the environment and, when OPENAI_API_KEY is unset, falls
// back to the Docker-secrets file convention.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if strings.TrimSpace(os.Getenv("OPENAI_API_KEY")) == "" &&
		strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY")) == "" {
		if secret, err := readSecret("openai_api_key"); err == nil {
			_ = os.Setenv("OPENAI_API_KEY", secret)
		}
	}

	return &cfg, nil
}

func readSecret(name string) (string, error) {
	path := fmt.Sprintf("/run/secrets/%s", name)
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", path, err)
	}
	secret := strings.TrimSpace(string(b))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", path)
	}
	return secret, nil
}
