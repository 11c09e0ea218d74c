package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"workshop-backend/domain"
)

// Config is the top-level application configuration, loaded once at start.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	SMS      SMSConfig
	OSS      OSSConfig
	WeChat   WeChatConfig
	AppStore AppStoreConfig
	Identity IdentityConfig
	Log      LogConfig
	Debug    DebugConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int
	BodyLimitBytes int
	AllowedOrigins string
}

// DatabaseConfig describes the PostgreSQL connection. DSN wins over the parts.
type DatabaseConfig struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string
}

// AuthConfig holds session token settings.
type AuthConfig struct {
	JWTSecret  string
	ServiceKey string
	TokenTTL   time.Duration
}

// SMSConfig holds Aliyun SMS settings.
type SMSConfig struct {
	AccessKeyID     string
	AccessKeySecret string
	Endpoint        string
	RegionID        string
	SignName        string
	TemplateCode    string
}

// OSSConfig holds Aliyun OSS/STS settings.
type OSSConfig struct {
	AccessKeyID     string
	AccessKeySecret string
	RoleArn         string
	Bucket          string
	Endpoint        string
	Region          string
	Duration        time.Duration
}

// WeChatConfig holds mini-program credentials.
type WeChatConfig struct {
	AppID     string
	AppSecret string
	BaseURL   string
}

// AppStoreConfig holds receipt verification settings.
type AppStoreConfig struct {
	SharedSecret  string
	ProductionURL string
	SandboxURL    string
}

// IdentityConfig holds synthetic identity settings.
type IdentityConfig struct {
	SyntheticDomain string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Pretty bool
}

// DebugConfig toggles test-only endpoints.
type DebugConfig struct {
	Enabled bool
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: reading .env: %v", domain.ErrInvalidConfig, err)
	}
	return LoadFromEnv()
}

// LoadFromEnv reads configuration purely from environment variables.
func LoadFromEnv() (*Config, error) {
	port, err := envInt("PORT", 8080)
	if err != nil {
		return nil, err
	}
	dbPort, err := envInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	bodyLimit, err := envInt("BODY_LIMIT_BYTES", 0)
	if err != nil {
		return nil, err
	}
	if bodyLimit <= 0 {
		mb, err := envInt("BODY_LIMIT_MB", 4)
		if err != nil {
			return nil, err
		}
		bodyLimit = mb * 1024 * 1024
	}
	ttl, err := envDuration("TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	stsDuration, err := envDuration("OSS_STS_DURATION", time.Hour)
	if err != nil {
		return nil, err
	}

	jwtSecret := os.Getenv("JWT_SECRET_KEY")
	if strings.TrimSpace(jwtSecret) == "" {
		jwtSecret = os.Getenv("JWT_SECRET")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           port,
			BodyLimitBytes: bodyLimit,
			AllowedOrigins: getenvDefault("ALLOWED_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			DSN:      os.Getenv("DATABASE_URL"),
			Host:     getenvDefault("DB_HOST", "db"),
			Port:     dbPort,
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			SSLMode:  getenvDefault("DB_SSLMODE", "disable"),
			TimeZone: getenvDefault("DB_TIMEZONE", "Asia/Shanghai"),
		},
		Auth: AuthConfig{
			JWTSecret:  strings.TrimSpace(jwtSecret),
			ServiceKey: os.Getenv("SERVICE_ROLE_KEY"),
			TokenTTL:   ttl,
		},
		SMS: SMSConfig{
			AccessKeyID:     os.Getenv("ALIBABA_CLOUD_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("ALIBABA_CLOUD_ACCESS_KEY_SECRET"),
			Endpoint:        getenvDefault("SMS_ENDPOINT", "dysmsapi.aliyuncs.com"),
			RegionID:        getenvDefault("SMS_REGION_ID", "cn-hangzhou"),
			SignName:        getenvDefault("SMS_SIGN_NAME", "小火箭"),
			TemplateCode:    getenvDefault("SMS_TEMPLATE_CODE", "SMS_123456789"),
		},
		OSS: OSSConfig{
			AccessKeyID:     os.Getenv("OSS_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("OSS_ACCESS_KEY_SECRET"),
			RoleArn:         os.Getenv("OSS_ROLE_ARN"),
			Bucket:          getenvDefault("OSS_BUCKET", "rocket-workshop"),
			Endpoint:        getenvDefault("OSS_ENDPOINT", "oss-cn-beijing.aliyuncs.com"),
			Region:          getenvDefault("OSS_REGION", "cn-beijing"),
			Duration:        stsDuration,
		},
		WeChat: WeChatConfig{
			AppID:     os.Getenv("WECHAT_APP_ID"),
			AppSecret: os.Getenv("WECHAT_APP_SECRET"),
			BaseURL:   getenvDefault("WECHAT_API_BASE_URL", "https://api.weixin.qq.com"),
		},
		AppStore: AppStoreConfig{
			SharedSecret:  os.Getenv("APP_STORE_SHARED_SECRET"),
			ProductionURL: getenvDefault("APP_STORE_PRODUCTION_URL", "https://buy.itunes.apple.com/verifyReceipt"),
			SandboxURL:    getenvDefault("APP_STORE_SANDBOX_URL", "https://sandbox.itunes.apple.com/verifyReceipt"),
		},
		Identity: IdentityConfig{
			SyntheticDomain: getenvDefault("SYNTHETIC_EMAIL_DOMAIN", "rocket-workshop.anonymous"),
		},
		Log: LogConfig{
			Level:  getenvDefault("LOG_LEVEL", "info"),
			Pretty: envBool("LOG_PRETTY"),
		},
		Debug: DebugConfig{
			Enabled: envBool("DEBUG_ENDPOINTS_ENABLED"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PostgresDSN renders the connection string for gorm's postgres driver.
func (d DatabaseConfig) PostgresDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode, d.TimeZone)
}

func validate(cfg *Config) error {
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("%w: JWT_SECRET_KEY (or JWT_SECRET) is required", domain.ErrConfigMissing)
	}
	if cfg.Database.DSN == "" && (cfg.Database.User == "" || cfg.Database.Name == "") {
		return fmt.Errorf("%w: DATABASE_URL or DB_USER/DB_NAME is required", domain.ErrConfigMissing)
	}

	// An integration is optional, but a half-configured one is a deployment mistake.
	pairs := []struct{ id, secret, idName, secretName string }{
		{cfg.SMS.AccessKeyID, cfg.SMS.AccessKeySecret, "ALIBABA_CLOUD_ACCESS_KEY_ID", "ALIBABA_CLOUD_ACCESS_KEY_SECRET"},
		{cfg.OSS.AccessKeyID, cfg.OSS.AccessKeySecret, "OSS_ACCESS_KEY_ID", "OSS_ACCESS_KEY_SECRET"},
		{cfg.WeChat.AppID, cfg.WeChat.AppSecret, "WECHAT_APP_ID", "WECHAT_APP_SECRET"},
	}
	for _, p := range pairs {
		if (p.id == "") != (p.secret == "") {
			return fmt.Errorf("%w: %s and %s must be set together", domain.ErrConfigMissing, p.idName, p.secretName)
		}
	}
	if cfg.OSS.AccessKeyID != "" && cfg.OSS.RoleArn == "" {
		return fmt.Errorf("%w: OSS_ROLE_ARN is required when OSS credentials are set", domain.ErrConfigMissing)
	}
	if cfg.OSS.Duration < 15*time.Minute || cfg.OSS.Duration > 12*time.Hour {
		return fmt.Errorf("%w: OSS_STS_DURATION must be between 15m and 12h", domain.ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Identity.SyntheticDomain) == "" {
		return fmt.Errorf("%w: SYNTHETIC_EMAIL_DOMAIN must not be blank", domain.ErrInvalidConfig)
	}
	return nil
}

// envInt reads an int env var with a default fallback.
func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number: %v", domain.ErrInvalidConfig, key, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a duration: %v", domain.ErrInvalidConfig, key, err)
	}
	return d, nil
}

func envBool(key string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return b
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
