package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Pool names filled from the environment.
const (
	PoolProduction = "production"
	PoolStaging    = "staging"
)

// Pool is one archive deployment.
type Pool struct {
	Name  string `yaml:"name" validate:"required"`
	URL   string `yaml:"url" validate:"required,url"`
	Token string `yaml:"token"`
}

// Config holds application configuration values.
type Config struct {
	Env         string `yaml:"env" validate:"required,oneof=dev prod"`
	Pools       []Pool `yaml:"pools" validate:"required,min=1,dive"`
	DefaultPool string `yaml:"default_pool" validate:"required"`
	HTTP        struct {
		ConnectTimeout time.Duration `yaml:"connect_timeout" validate:"gt=0"`
		Timeout        time.Duration `yaml:"timeout" validate:"gt=0"`
		IPv4Only       bool          `yaml:"ipv4_only"`
		RateLimit      float64       `yaml:"rate_limit" validate:"gte=0"`
	} `yaml:"http"`
	Retry struct {
		MaxAttempts int           `yaml:"max_attempts" validate:"gte=1"`
		Interval    time.Duration `yaml:"interval" validate:"gte=0"`
		MaxDelay    time.Duration `yaml:"max_delay" validate:"gtefield=Interval"`
		Backoff     string        `yaml:"backoff" validate:"oneof=fixed exponential"`
	} `yaml:"retry"`
	Validation struct {
		MaxURLLength int `yaml:"max_url_length" validate:"gte=1"`
	} `yaml:"validation"`
	Response struct {
		Shape string `yaml:"shape" validate:"oneof=json raw wrapped"`
	} `yaml:"response"`
	Log struct {
		ConsoleLevel  string `yaml:"console_level" validate:"required,oneof=debug info warn error"`
		FileLevel     string `yaml:"file_level" validate:"required,oneof=debug info warn error"`
		File          string `yaml:"file"`
		FileDatestamp bool   `yaml:"file_datestamp"`
		Verbose       bool   `yaml:"verbose"`
	} `yaml:"log"`
	Audit struct {
		// DSN is a sqlite path; empty disables the decision store.
		DSN string `yaml:"dsn"`
	} `yaml:"audit"`
	Metrics struct {
		File string `yaml:"file"`
	} `yaml:"metrics"`
}

var validate = validator.New()

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	var c Config
	c.Env = "prod"
	c.DefaultPool = PoolProduction
	c.HTTP.ConnectTimeout = 5 * time.Second
	c.HTTP.Timeout = 5 * time.Second
	c.Retry.MaxAttempts = 5
	c.Retry.Interval = 5 * time.Second
	c.Retry.MaxDelay = 60 * time.Second
	c.Retry.Backoff = "fixed"
	c.Validation.MaxURLLength = 255
	c.Response.Shape = "json"
	c.Log.ConsoleLevel = "info"
	c.Log.FileLevel = "debug"
	return c
}

// Load reads configuration from an optional YAML file, environment variables
// and an optional .env file. Environment values win over the file. An empty
// path falls back to SWH_CONFIG.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	c := Default()
	if path == "" {
		path = os.Getenv("SWH_CONFIG")
	}
	if path != "" {
		if err := decodeFile(path, &c); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&c); err != nil {
		return Config{}, err
	}

	if err := validate.Struct(c); err != nil {
		return Config{}, err
	}
	if c.Pool(c.DefaultPool) == nil {
		return Config{}, fmt.Errorf("default pool %q is not configured", c.DefaultPool)
	}
	return c, nil
}

// Pool returns the named pool or nil.
func (c *Config) Pool(name string) *Pool {
	for i := range c.Pools {
		if c.Pools[i].Name == name {
			return &c.Pools[i]
		}
	}
	return nil
}

func decodeFile(path string, c *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(data)))))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func applyEnv(c *Config) error {
	upsertPool(c, PoolProduction, os.Getenv("SWH_API_URL_PROD"), os.Getenv("SWH_TOKEN_PROD"))
	upsertPool(c, PoolStaging, os.Getenv("SWH_API_URL_STAGING"), os.Getenv("SWH_TOKEN_STAGING"))

	setString(&c.Env, "ENV")
	setString(&c.DefaultPool, "SWH_POOL")
	setString(&c.Retry.Backoff, "SWH_BACKOFF")
	setString(&c.Response.Shape, "SWH_RESPONSE_SHAPE")
	setString(&c.Log.File, "LOG_FILE")
	setString(&c.Audit.DSN, "SWH_AUDIT_DB")
	setString(&c.Metrics.File, "SWH_METRICS_FILE")
	if v := os.Getenv("LOG_CONSOLE_LEVEL"); v != "" {
		c.Log.ConsoleLevel = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FILE_LEVEL"); v != "" {
		c.Log.FileLevel = strings.ToLower(v)
	}

	var errs []error
	errs = append(errs,
		setDuration(&c.HTTP.ConnectTimeout, "SWH_CONNECT_TIMEOUT"),
		setDuration(&c.HTTP.Timeout, "SWH_TIMEOUT"),
		setDuration(&c.Retry.Interval, "SWH_RETRY_INTERVAL"),
		setDuration(&c.Retry.MaxDelay, "SWH_RETRY_MAX_DELAY"),
		setInt(&c.Retry.MaxAttempts, "SWH_MAX_ATTEMPTS"),
		setInt(&c.Validation.MaxURLLength, "SWH_MAX_URL_LENGTH"),
		setFloat(&c.HTTP.RateLimit, "SWH_RATE_LIMIT"),
		setBool(&c.HTTP.IPv4Only, "SWH_IPV4_ONLY"),
		setBool(&c.Log.Verbose, "SWH_VERBOSE"),
		setBool(&c.Log.FileDatestamp, "LOG_FILE_DATESTAMP"),
	)
	return errors.Join(errs...)
}

func upsertPool(c *Config, name, url, token string) {
	if url == "" && token == "" {
		return
	}
	p := c.Pool(name)
	if p == nil {
		c.Pools = append(c.Pools, Pool{Name: name})
		p = &c.Pools[len(c.Pools)-1]
	}
	if url != "" {
		p.URL = url
	}
	if token != "" {
		p.Token = token
	}
}

func setString(dst *string, k string) {
	if v := os.Getenv(k); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, k string) error {
	v := os.Getenv(k)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", k, err)
	}
	*dst = d
	return nil
}

func setInt(dst *int, k string) error {
	v := os.Getenv(k)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", k, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, k string) error {
	v := os.Getenv(k)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", k, err)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, k string) error {
	v := os.Getenv(k)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", k, err)
	}
	*dst = b
	return nil
}
