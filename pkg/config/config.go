package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	Media      MediaConfig
	Cloudinary CloudinaryConfig
	GCP        GCPConfig
	GCS        GCSConfig
	Cron       CronConfig
	Supabase   SupabaseConfig
}

// Load reads the process environment and fails when a required value is missing.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureSSLMode(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env             string        `envconfig:"GALLERY_APP_ENV" default:"dev" validate:"required"`
	Port            string        `envconfig:"PORT" default:"5000" validate:"required,numeric"`
	LogLevel        string        `envconfig:"GALLERY_LOG_LEVEL" default:"info"`
	LogWarnStack    bool          `envconfig:"GALLERY_LOG_WARN_STACK" default:"false"`
	AutoMigrate     bool          `envconfig:"GALLERY_AUTO_MIGRATE" default:"false"`
	CORSOrigins     []string      `envconfig:"GALLERY_CORS_ORIGINS" default:"*"`
	ShutdownTimeout time.Duration `envconfig:"GALLERY_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

type DBConfig struct {
	DSN     string `envconfig:"DATABASE_URL" required:"true"`
	Driver  string `envconfig:"DATABASE_DRIVER" default:"postgres" validate:"oneof=postgres sqlite"`
	SSLMode string `envconfig:"DATABASE_SSLMODE" default:"require"`

	MaxOpenConns    int           `envconfig:"DATABASE_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DATABASE_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DATABASE_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DATABASE_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"GALLERY_REDIS_URL"`
	PoolSize     int           `envconfig:"GALLERY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GALLERY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GALLERY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GALLERY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GALLERY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != ""
}

type MediaConfig struct {
	Provider      string        `envconfig:"GALLERY_MEDIA_PROVIDER" default:"cloudinary" validate:"oneof=cloudinary gcs"`
	UploadTimeout time.Duration `envconfig:"GALLERY_MEDIA_UPLOAD_TIMEOUT" default:"60s" validate:"gt=0"`
	MaxUploadMB   int           `envconfig:"GALLERY_MAX_UPLOAD_MB" default:"10" validate:"gt=0"`
	Folder        string        `envconfig:"GALLERY_MEDIA_FOLDER"`
}

// MaxUploadBytes returns the request body cap derived from MaxUploadMB.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 0
	}
	return int64(m.MaxUploadMB) << 20
}

type CloudinaryConfig struct {
	CloudName string `envconfig:"CLOUDINARY_CLOUD_NAME" validate:"required_if=Provider cloudinary"`
	APIKey    string `envconfig:"CLOUDINARY_API_KEY" validate:"required_if=Provider cloudinary"`
	APISecret string `envconfig:"CLOUDINARY_API_SECRET" validate:"required_if=Provider cloudinary"`

	// Provider mirrors MediaConfig.Provider so the required_if rules can see it.
	Provider string `ignored:"true"`
}

type GCPConfig struct {
	CredentialsJSON        string `envconfig:"GALLERY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GALLERY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string `envconfig:"GALLERY_GCS_BUCKET_NAME" validate:"required_if=Provider gcs"`

	Provider string `ignored:"true"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"GALLERY_CRON_INTERVAL" default:"1h"`
	OrphanBatchSize int           `envconfig:"GALLERY_ORPHAN_BATCH_SIZE" default:"50"`
}

// SupabaseConfig carries the public client settings handed to the frontend.
type SupabaseConfig struct {
	URL     string `envconfig:"SUPABASE_URL"`
	AnonKey string `envconfig:"SUPABASE_ANON_KEY"`
}

var validate = validator.New()

func (c *Config) validate() error {
	c.Cloudinary.Provider = c.Media.Provider
	c.GCS.Provider = c.Media.Provider

	for _, section := range []any{c.App, c.DB, c.Media, c.Cloudinary, c.GCS} {
		if err := validate.Struct(section); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	return nil
}

func (db *DBConfig) ensureSSLMode() error {
	if db.IsSQLite() || db.SSLMode == "" {
		return nil
	}
	if !strings.HasPrefix(db.DSN, "postgres://") && !strings.HasPrefix(db.DSN, "postgresql://") {
		return nil
	}

	u, err := url.Parse(db.DSN)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvDBDSN, err)
	}
	q := u.Query()
	if q.Get("sslmode") != "" {
		return nil
	}
	q.Set("sslmode", db.SSLMode)
	u.RawQuery = q.Encode()
	db.DSN = u.String()
	return nil
}
