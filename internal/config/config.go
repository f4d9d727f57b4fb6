package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AppPort         string `yaml:"app_port"`
	AppEnv          string `yaml:"app_env"`
	DBDSN           string `yaml:"db_dsn"`
	JWTSecret       string `yaml:"jwt_secret"`
	JWTExpiresMin   int    `yaml:"jwt_expires_min"`
	GoogleClientID  string `yaml:"google_client_id"`
	GoogleSecret    string `yaml:"google_client_secret"`
	GoogleRedirect  string `yaml:"google_redirect_url"`
	FrontendBaseURL string `yaml:"frontend_base_url"`
	UploadDir       string `yaml:"upload_dir"`
	CORSOrigins     string `yaml:"cors_origins"`
	LogLevel        string `yaml:"log_level"`

	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`

	Redis        RedisConfig        `yaml:"redis"`
	Verification VerificationConfig `yaml:"verification"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type VerificationConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	Tick        time.Duration `yaml:"tick"`
	SuccessRate float64       `yaml:"success_rate"`
}

const insecureJWTSecret = "changeme"

// Load reads the environment (after godotenv has populated it) and then
// overlays the YAML file named by CONFIG_FILE, if any.
func Load() (*Config, error) {
	expires, err := strconv.Atoi(get("JWT_EXPIRES_MIN", "10080"))
	if err != nil {
		return nil, fmt.Errorf("JWT_EXPIRES_MIN: %w", err)
	}
	redisDB, err := strconv.Atoi(get("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("REDIS_DB: %w", err)
	}
	rate, err := strconv.ParseFloat(get("VERIFICATION_SUCCESS_RATE", "0.9"), 64)
	if err != nil {
		return nil, fmt.Errorf("VERIFICATION_SUCCESS_RATE: %w", err)
	}
	vTimeout, err := time.ParseDuration(get("VERIFICATION_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("VERIFICATION_TIMEOUT: %w", err)
	}
	vTick, err := time.ParseDuration(get("VERIFICATION_TICK", "300ms"))
	if err != nil {
		return nil, fmt.Errorf("VERIFICATION_TICK: %w", err)
	}
	shutdown, err := time.ParseDuration(get("SHUTDOWN_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
	}

	cfg := &Config{
		AppPort:         get("APP_PORT", "8080"),
		AppEnv:          get("APP_ENV", "development"),
		DBDSN:           get("DB_DSN", ""),
		JWTSecret:       get("JWT_SECRET", ""),
		JWTExpiresMin:   expires,
		GoogleClientID:  get("GOOGLE_CLIENT_ID", ""),
		GoogleSecret:    get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirect:  get("GOOGLE_REDIRECT_URL", ""),
		FrontendBaseURL: get("FRONTEND_BASE_URL", "http://localhost:3000"),
		UploadDir:       get("UPLOAD_DIR", "./uploads"),
		CORSOrigins:     get("CORS_ORIGINS", "http://127.0.0.1:3000, http://localhost:3000"),
		LogLevel:        get("LOG_LEVEL", "info"),
		AdminEmail:      get("ADMIN_EMAIL", ""),
		AdminPassword:   get("ADMIN_PASSWORD", ""),
		Redis: RedisConfig{
			Addr:     get("REDIS_ADDR", "localhost:6379"),
			Password: get("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Verification: VerificationConfig{
			Timeout:     vTimeout,
			Tick:        vTick,
			SuccessRate: rate,
		},
		ShutdownTimeout: shutdown,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlay(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (c *Config) overlay(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Validate reports every missing or unsafe setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.DBDSN == "" {
		errs = append(errs, errors.New("missing env: DB_DSN"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("missing env: JWT_SECRET"))
	} else if c.JWTSecret == insecureJWTSecret && !strings.EqualFold(c.AppEnv, "development") {
		errs = append(errs, errors.New("JWT_SECRET uses the insecure default outside development"))
	}
	if c.JWTExpiresMin <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_MIN must be positive"))
	}
	if c.Verification.SuccessRate < 0 || c.Verification.SuccessRate > 1 {
		errs = append(errs, errors.New("VERIFICATION_SUCCESS_RATE must be within [0,1]"))
	}
	if c.Verification.Timeout <= 0 {
		errs = append(errs, errors.New("VERIFICATION_TIMEOUT must be positive"))
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}
	return errors.Join(errs...)
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
