package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Contracts     ContractsConfig
	Invoices      InvoicesConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = "file:estatedesk.db"
		}
		return &cfg, nil
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ESTATEDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"ESTATEDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ESTATEDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ESTATEDESK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ESTATEDESK_DB_DSN"`
	Driver string `envconfig:"ESTATEDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ESTATEDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"ESTATEDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ESTATEDESK_DB_USER"`
	LegacyPassword string `envconfig:"ESTATEDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"ESTATEDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"ESTATEDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ESTATEDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ESTATEDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ESTATEDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ESTATEDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ESTATEDESK_REDIS_URL"`
	Address      string        `envconfig:"ESTATEDESK_REDIS_ADDR"`
	Password     string        `envconfig:"ESTATEDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"ESTATEDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ESTATEDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ESTATEDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ESTATEDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ESTATEDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ESTATEDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"ESTATEDESK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"ESTATEDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"ESTATEDESK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"ESTATEDESK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"ESTATEDESK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ESTATEDESK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ESTATEDESK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ESTATEDESK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ESTATEDESK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"ESTATEDESK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"ESTATEDESK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"ESTATEDESK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ESTATEDESK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ESTATEDESK_AUTO_MIGRATE" default:"false"`
}

type ContractsConfig struct {
	NumberPrefix string `envconfig:"ESTATEDESK_CONTRACT_NUMBER_PREFIX" default:"CT"`
}

type InvoicesConfig struct {
	DueDays int `envconfig:"ESTATEDESK_INVOICE_DUE_DAYS" default:"14"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
