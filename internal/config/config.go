package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConf struct {
	Env             string `mapstructure:"env"`
	Port            int    `mapstructure:"port"`
	ShutdownSeconds int    `mapstructure:"shutdown_seconds"`
	BodyLimitMB     int    `mapstructure:"body_limit_mb"`
	ReadTimeoutSec  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSec int    `mapstructure:"write_timeout_seconds"`
	CORSOrigins     string `mapstructure:"cors_origins"`
}

type StoreConf struct {
	Driver string `mapstructure:"driver"`
}

type MongoConf struct {
	URI                string `mapstructure:"uri"`
	Database           string `mapstructure:"database"`
	UsersCollection    string `mapstructure:"users_collection"`
	PostsCollection    string `mapstructure:"posts_collection"`
	CommentsCollection string `mapstructure:"comments_collection"`
}

type JWTConf struct {
	Secret       string `mapstructure:"secret"`
	TTLHours     int    `mapstructure:"ttl_hours"`
	CookieName   string `mapstructure:"cookie_name"`
	CookieSecure bool   `mapstructure:"cookie_secure"`
}

type MediaConf struct {
	Driver          string `mapstructure:"driver"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb"`
	MaxDimension    int    `mapstructure:"max_dimension"`
	JPEGQuality     int    `mapstructure:"jpeg_quality"`
	Folder          string `mapstructure:"folder"`
	BreakerFailures int    `mapstructure:"breaker_failures"`
}

type AWSConf struct {
	Region     string `mapstructure:"region"`
	Bucket     string `mapstructure:"bucket"`
	Endpoint   string `mapstructure:"endpoint"`
	PublicRead bool   `mapstructure:"public_read"`
}

type MinioConf struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type RedisConf struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConf struct {
	AuthLimit     int `mapstructure:"auth_limit"`
	AuthWindowSec int `mapstructure:"auth_window_seconds"`
	IPPerMinute   int `mapstructure:"ip_per_minute"`
	IPBurst       int `mapstructure:"ip_burst"`
}

type KafkaConf struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type MailConf struct {
	Enabled   bool   `mapstructure:"enabled"`
	APIURL    string `mapstructure:"api_url"`
	APIKey    string `mapstructure:"api_key"`
	FromEmail string `mapstructure:"from_email"`
	FromName  string `mapstructure:"from_name"`
}

type OTPConf struct {
	VerifyTTLMinutes int `mapstructure:"verify_ttl_minutes"`
	ResetTTLMinutes  int `mapstructure:"reset_ttl_minutes"`
}

type Config struct {
	App       AppConf       `mapstructure:"app"`
	Store     StoreConf     `mapstructure:"store"`
	Mongo     MongoConf     `mapstructure:"mongodb"`
	JWT       JWTConf       `mapstructure:"jwt"`
	Media     MediaConf     `mapstructure:"media"`
	AWS       AWSConf       `mapstructure:"aws"`
	Minio     MinioConf     `mapstructure:"minio"`
	Redis     RedisConf     `mapstructure:"redis"`
	RateLimit RateLimitConf `mapstructure:"ratelimit"`
	Kafka     KafkaConf     `mapstructure:"kafka"`
	Mail      MailConf      `mapstructure:"mail"`
	OTP       OTPConf       `mapstructure:"otp"`

	// derived
	ShutdownTimeout time.Duration `mapstructure:"-"`
	ReadTimeout     time.Duration `mapstructure:"-"`
	WriteTimeout    time.Duration `mapstructure:"-"`
	TokenTTL        time.Duration `mapstructure:"-"`
	AuthWindow      time.Duration `mapstructure:"-"`
	VerifyOTPTTL    time.Duration `mapstructure:"-"`
	ResetOTPTTL     time.Duration `mapstructure:"-"`
	MaxUploadBytes  int64         `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 8000)
	v.SetDefault("app.shutdown_seconds", 15)
	v.SetDefault("app.body_limit_mb", 12)
	v.SetDefault("app.read_timeout_seconds", 30)
	v.SetDefault("app.write_timeout_seconds", 30)
	v.SetDefault("app.cors_origins", "*")

	v.SetDefault("store.driver", "mongo")

	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "snapshare")
	v.SetDefault("mongodb.users_collection", "users")
	v.SetDefault("mongodb.posts_collection", "posts")
	v.SetDefault("mongodb.comments_collection", "comments")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl_hours", 72)
	v.SetDefault("jwt.cookie_name", "token")
	v.SetDefault("jwt.cookie_secure", false)

	v.SetDefault("media.driver", "s3")
	v.SetDefault("media.max_upload_mb", 10)
	v.SetDefault("media.max_dimension", 800)
	v.SetDefault("media.jpeg_quality", 90)
	v.SetDefault("media.folder", "snapshare")
	v.SetDefault("media.breaker_failures", 5)

	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.bucket", "")
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("aws.public_read", true)

	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket", "snapshare")
	v.SetDefault("minio.use_ssl", false)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("ratelimit.auth_limit", 20)
	v.SetDefault("ratelimit.auth_window_seconds", 60)
	v.SetDefault("ratelimit.ip_per_minute", 300)
	v.SetDefault("ratelimit.ip_burst", 30)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "snapshare.events")

	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.api_url", "https://api.brevo.com/v3/smtp/email")
	v.SetDefault("mail.api_key", "")
	v.SetDefault("mail.from_email", "")
	v.SetDefault("mail.from_name", "Snapshare")

	v.SetDefault("otp.verify_ttl_minutes", 24*60)
	v.SetDefault("otp.reset_ttl_minutes", 5)
}

// Load reads the YAML file at path and overlays SNAPSHARE_* environment
// variables (SNAPSHARE_MONGODB_URI, SNAPSHARE_JWT_SECRET, ...).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvPrefix("snapshare")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.derive(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) derive() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret must be set")
	}
	switch c.Store.Driver {
	case "mongo", "memory":
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	switch c.Media.Driver {
	case "s3", "minio", "memory":
	default:
		return fmt.Errorf("unknown media.driver %q", c.Media.Driver)
	}
	if c.Media.JPEGQuality <= 0 || c.Media.JPEGQuality > 100 {
		c.Media.JPEGQuality = 90
	}
	if c.Media.MaxDimension <= 0 {
		c.Media.MaxDimension = 800
	}

	c.ShutdownTimeout = time.Duration(c.App.ShutdownSeconds) * time.Second
	c.ReadTimeout = time.Duration(c.App.ReadTimeoutSec) * time.Second
	c.WriteTimeout = time.Duration(c.App.WriteTimeoutSec) * time.Second
	c.TokenTTL = time.Duration(c.JWT.TTLHours) * time.Hour
	c.AuthWindow = time.Duration(c.RateLimit.AuthWindowSec) * time.Second
	c.VerifyOTPTTL = time.Duration(c.OTP.VerifyTTLMinutes) * time.Minute
	c.ResetOTPTTL = time.Duration(c.OTP.ResetTTLMinutes) * time.Minute
	c.MaxUploadBytes = int64(c.Media.MaxUploadMB) << 20
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}
