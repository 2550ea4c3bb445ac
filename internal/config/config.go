package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"

	NotifierLog      = "log"
	NotifierRabbitMQ = "rabbitmq"
	NotifierSMTP     = "smtp"
)

type Config struct {
	//App
	Env string // dev / staging / prod
	//HTTP
	HTTPAddr string
	//Auth / Security
	JWTSecret      string
	JWTIssuer      string
	AccessTokenTTL time.Duration // 0 = tokens never expire
	OTPTTL         time.Duration // 0 = codes never expire
	BcryptCost     int

	// Backends
	UserStore string
	Notifier  string

	// Infrastructure
	DBAddr         string
	DBDebug        bool
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RabbitURL      string
	RabbitExchange string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPInsecure bool

	StoreTimeout  time.Duration
	NotifyTimeout time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	SeedDemoUser bool
}

// LoadDotEnv reads a .env file if one exists. Real environment variables win.
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:            getEnv("ENV", "dev"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		JWTIssuer:      getEnv("JWT_ISSUER", "identity-service"),
		UserStore:      strings.ToLower(getEnv("USER_STORE", StoreMemory)),
		Notifier:       strings.ToLower(getEnv("NOTIFIER", NotifierLog)),
		RabbitExchange: getEnv("RABBIT_EXCHANGE", "city.events"),
	}
	// required values
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required env var: JWT_SECRET")
	}

	var err error
	if cfg.AccessTokenTTL, err = getDuration("ACCESS_TOKEN_TTL", 0); err != nil {
		return nil, err
	}
	if cfg.OTPTTL, err = getDuration("OTP_TTL", 0); err != nil {
		return nil, err
	}
	if cfg.AccessTokenTTL < 0 || cfg.OTPTTL < 0 {
		return nil, fmt.Errorf("ACCESS_TOKEN_TTL and OTP_TTL must not be negative")
	}
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", 12); err != nil {
		return nil, err
	}

	// Infrastructure dependencies are only required by the backend that uses them.
	switch cfg.UserStore {
	case StoreMemory:
	case StorePostgres:
		cfg.DBAddr = os.Getenv("DB_ADDR")
		if cfg.DBAddr == "" {
			return nil, fmt.Errorf("missing required env var: DB_ADDR")
		}
		if !strings.HasPrefix(cfg.DBAddr, "postgres://") && !strings.HasPrefix(cfg.DBAddr, "postgresql://") {
			return nil, fmt.Errorf("DB_ADDR must be a postgres:// URL")
		}
		if cfg.DBDebug, err = getBool("DB_DEBUG", false); err != nil {
			return nil, err
		}
	case StoreRedis:
		cfg.RedisAddr = os.Getenv("REDIS_ADDR")
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("missing required env var: REDIS_ADDR")
		}
		cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
		if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("invalid USER_STORE %q (want memory|postgres|redis)", cfg.UserStore)
	}

	switch cfg.Notifier {
	case NotifierLog:
	case NotifierRabbitMQ:
		cfg.RabbitURL = os.Getenv("RABBIT_URL")
		if cfg.RabbitURL == "" {
			return nil, fmt.Errorf("missing required env var: RABBIT_URL")
		}
	case NotifierSMTP:
		cfg.SMTPHost = os.Getenv("SMTP_HOST")
		cfg.SMTPFrom = os.Getenv("SMTP_FROM")
		if cfg.SMTPHost == "" || cfg.SMTPFrom == "" {
			return nil, fmt.Errorf("missing required env var: SMTP_HOST and SMTP_FROM")
		}
		if cfg.SMTPPort, err = getInt("SMTP_PORT", 587); err != nil {
			return nil, err
		}
		cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
		cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
		if cfg.SMTPInsecure, err = getBool("SMTP_INSECURE", false); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("invalid NOTIFIER %q (want log|rabbitmq|smtp)", cfg.Notifier)
	}

	if cfg.StoreTimeout, err = getDuration("STORE_TIMEOUT", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.NotifyTimeout, err = getDuration("NOTIFY_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	//Timeout values are optional and have a default value if not
	if cfg.HTTPReadTimeout, err = getDuration("HTTP_READ_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPWriteTimeout, err = getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPIdleTimeout, err = getDuration("HTTP_IDLE_TIMEOUT", time.Minute); err != nil {
		return nil, err
	}

	// Seeding defaults on only for an explicit ENV=dev.
	if cfg.SeedDemoUser, err = getBool("SEED_DEMO_USER", os.Getenv("ENV") == "dev"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q: %w", key, v, err)
	}
	return b, nil
}
