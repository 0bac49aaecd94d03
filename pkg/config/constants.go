package config

// EnvPrefix is tried before the bare variable name, so GALLERY_DB_DATABASE_URL
// overrides DATABASE_URL when both are set.
const EnvPrefix = "GALLERY"

const (
	AppEnvDev = "dev"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	MediaProviderCloudinary = "cloudinary"
	MediaProviderGCS        = "gcs"
)

const (
	EnvAppEnv             = "GALLERY_APP_ENV"
	EnvPort               = "PORT"
	EnvDBDSN              = "DATABASE_URL"
	EnvDBDriver           = "DATABASE_DRIVER"
	EnvDBSSLMode          = "DATABASE_SSLMODE"
	EnvRedisURL           = "GALLERY_REDIS_URL"
	EnvMediaProvider      = "GALLERY_MEDIA_PROVIDER"
	EnvMediaUploadTimeout = "GALLERY_MEDIA_UPLOAD_TIMEOUT"
	EnvMaxUploadMB        = "GALLERY_MAX_UPLOAD_MB"
	EnvCloudinaryName     = "CLOUDINARY_CLOUD_NAME"
	EnvCloudinaryKey      = "CLOUDINARY_API_KEY"
	EnvCloudinarySecret   = "CLOUDINARY_API_SECRET"
	EnvGCSBucket          = "GALLERY_GCS_BUCKET_NAME"
	EnvCORSOrigins        = "GALLERY_CORS_ORIGINS"
	EnvSupabaseURL        = "SUPABASE_URL"
	EnvSupabaseAnonKey    = "SUPABASE_ANON_KEY"
)
