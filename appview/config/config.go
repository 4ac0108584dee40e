package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type CoreConfig struct {
	CookieSecret string `env:"COOKIE_SECRET, default=00000000000000000000000000000000"`
	DbPath       string `env:"DB_PATH, default=memorylane.db"`
	ListenAddr   string `env:"LISTEN_ADDR, default=0.0.0.0:3000"`
	AppHost      string `env:"APP_HOST, default=https://memorylane.app"`
	Dev          bool   `env:"DEV, default=false"`
}

type ResendConfig struct {
	ApiKey   string `env:"API_KEY"`
	SentFrom string `env:"SENT_FROM, default=noreply@memorylane.app"`
}

type SchedulerConfig struct {
	Interval     time.Duration `env:"INTERVAL, default=1m"`
	SweepTimeout time.Duration `env:"SWEEP_TIMEOUT, default=45s"`
	Concurrency  int           `env:"CONCURRENCY, default=4"`
}

type FanoutConfig struct {
	Concurrency     int           `env:"CONCURRENCY, default=8"`
	DispatchTimeout time.Duration `env:"DISPATCH_TIMEOUT, default=15s"`
	Attempts        uint          `env:"ATTEMPTS, default=3"`
}

type GeminiConfig struct {
	ApiKey   string `env:"API_KEY"`
	Endpoint string `env:"ENDPOINT"`
}

type PosthogConfig struct {
	ApiKey   string `env:"API_KEY"`
	Endpoint string `env:"ENDPOINT, default=https://eu.i.posthog.com"`
}

type Config struct {
	Core      CoreConfig      `env:",prefix=MEMORYLANE_"`
	Resend    ResendConfig    `env:",prefix=MEMORYLANE_RESEND_"`
	Scheduler SchedulerConfig `env:",prefix=MEMORYLANE_SCHEDULER_"`
	Fanout    FanoutConfig    `env:",prefix=MEMORYLANE_FANOUT_"`
	Gemini    GeminiConfig    `env:",prefix=MEMORYLANE_GEMINI_"`
	Posthog   PosthogConfig   `env:",prefix=MEMORYLANE_POSTHOG_"`
}

func LoadConfig(ctx context.Context) (*Config, error) {
	var cfg Config
	err := envconfig.Process(ctx, &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
