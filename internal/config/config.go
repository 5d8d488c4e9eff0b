package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey aborts startup before any polling happens.
var ErrMissingAPIKey = errors.New("tmdb api key is not configured")

type Config struct {
	App struct {
		DataPath string `yaml:"data_path"`
		Debug    bool   `yaml:"debug"`
	} `yaml:"app"`

	TMDB struct {
		APIKey   string `yaml:"api_key"`
		Language string `yaml:"language"`
	} `yaml:"tmdb"`

	Movies []int `yaml:"movies"`
	Shows  []int `yaml:"shows"`

	Email struct {
		From string   `yaml:"from"`
		To   []string `yaml:"to"`
		// Either an SMTP host/port pair or a local mail-submission
		// command. The command wins when both are set.
		SMTPHost        string `yaml:"smtp_host"`
		SMTPPort        int    `yaml:"smtp_port"`
		SendmailCommand string `yaml:"sendmail_command"`
	} `yaml:"email"`

	Notifications struct {
		PushbulletAPIKey string `yaml:"pushbullet_api_key"`
	} `yaml:"notifications"`

	Monitor struct {
		SkipNotifications bool   `yaml:"skip_notifications"`
		SkipCache         bool   `yaml:"skip_cache"`
		SkipMovies        bool   `yaml:"skip_movies"`
		SkipShows         bool   `yaml:"skip_shows"`
		ThrottleEvery     int    `yaml:"throttle_every"`
		ThrottleDelay     string `yaml:"throttle_delay"`
	} `yaml:"monitor"`

	Daemon struct {
		Schedule string `yaml:"schedule"`
		Port     int    `yaml:"port"`
	} `yaml:"daemon"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	loadFromEnv(cfg)
	return cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.App.DataPath = "./data"
	cfg.App.Debug = false

	cfg.TMDB.Language = "en-US"

	cfg.Email.From = "releasewatch"
	cfg.Email.SMTPPort = 25

	cfg.Monitor.ThrottleEvery = 10
	cfg.Monitor.ThrottleDelay = "2s"

	cfg.Daemon.Schedule = "@hourly"
	cfg.Daemon.Port = 8085
}

func loadFromEnv(cfg *Config) {
	if key := os.Getenv("TMDB_API_KEY"); key != "" {
		cfg.TMDB.APIKey = key
	}
	if path := os.Getenv("RELEASEWATCH_DATA_PATH"); path != "" {
		cfg.App.DataPath = path
	}
	if port := os.Getenv("RELEASEWATCH_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Daemon.Port = p
		}
	}
}

// Validate checks the startup-fatal conditions.
func (c *Config) Validate() error {
	if c.TMDB.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// ThrottleDelay parses the configured pause between throttled API calls,
// falling back to the default when the value does not parse.
func (c *Config) ThrottleDelay() time.Duration {
	d, err := time.ParseDuration(c.Monitor.ThrottleDelay)
	if err != nil || d < 0 {
		return 2 * time.Second
	}
	return d
}
