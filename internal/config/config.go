package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

type Config struct {
	Env             string `yaml:"env"`
	BaseURL         string `yaml:"base_url"`
	ShortCodeLength int    `yaml:"short_code_length"`
	AdminHostPrefix string `yaml:"admin_host_prefix"`
	PublicDir       string `yaml:"public_dir"`
	MigrationsPath  string `yaml:"migrations_path"`
	HTTPServer      `yaml:"http_server"`
	Postgres        `yaml:"postgres"`
	Auth            `yaml:"auth"`
	RateLimit       `yaml:"rate_limit"`
}

type HTTPServer struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
}

var defaultHTTPServer = HTTPServer{
	Port:           8080,
	ReadTimeout:    5 * time.Second,
	WriteTimeout:   10 * time.Second,
	IdleTimeout:    time.Minute,
	MaxHeaderBytes: 1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type Postgres struct {
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	DB              string        `yaml:"db"`
	SSLMode         string        `yaml:"sslmode"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
}

var defaultPostgres = Postgres{
	Host:            "localhost",
	Port:            5432,
	DB:              "url_shortener",
	SSLMode:         "disable",
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    5,
	MaxOpenConns:    25,
}

func (p *Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

type Auth struct {
	// Password is the admin secret: either the plain password or a bcrypt
	// hash of it.
	Password      string        `yaml:"password"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

var defaultAuth = Auth{
	SessionTTL:    24 * time.Hour,
	SweepInterval: time.Hour,
}

type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

var defaultRateLimit = RateLimit{
	RPS:   5,
	Burst: 10,
}

// Load reads the YAML config at path over the defaults and then applies
// environment overrides on top. A .env file next to the process is honored
// when present. An empty path skips the file and yields defaults plus
// environment.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	_ = godotenv.Load()

	var cfg Config
	setDefaults(&cfg)

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
		}
	}

	applyEnv(&cfg)

	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.HTTPServer.Port)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.ShortCodeLength = 6
	cfg.AdminHostPrefix = "admin."
	cfg.MigrationsPath = "file://migrations"
	cfg.HTTPServer = defaultHTTPServer
	cfg.Postgres = defaultPostgres
	cfg.Auth = defaultAuth
	cfg.RateLimit = defaultRateLimit
}

func applyEnv(cfg *Config) {
	overrideString(&cfg.BaseURL, "BASE_URL")
	overrideString(&cfg.Auth.Password, "ADMIN_PASSWORD")
	overrideInt(&cfg.HTTPServer.Port, "PORT")
	overrideString(&cfg.Postgres.User, "POSTGRES_USER")
	overrideString(&cfg.Postgres.Password, "POSTGRES_PASSWORD")
	overrideString(&cfg.Postgres.Host, "POSTGRES_HOST")
	overrideInt(&cfg.Postgres.Port, "POSTGRES_PORT")
	overrideString(&cfg.Postgres.DB, "POSTGRES_DB")
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
