package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Conf is the application configuration loaded at startup.
var Conf *Config

func init() {
	Conf = loadConfig()
}

type (
	ServerConfig struct {
		Address                   string
		DebugHost                 string
		Host                      string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		PasswordResetTimeoutDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		MaxOpenConns  int
	}

	RedisConfig struct {
		Addr        string
		Password    string
		DB          int
		SettingsTTL time.Duration
	}

	PaymentConfig struct {
		Provider      string // razorpay | dummy
		KeyID         string
		KeySecret     string
		WebhookSecret string
		Currency      string
		BaseURL       string
	}

	Config struct {
		AppName          string
		Env              string // DEV, TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Payment  PaymentConfig
	}
)

// NewConfig returns the loaded application configuration.
func NewConfig() *Config {
	return Conf
}

// Address returns the database "host:port".
func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func loadConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	// load .env if it exists (ignore if it does not)
	if wd, err := os.Getwd(); err == nil {
		dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("app.name", "InnoCell")
	v.SetDefault("app.build", "develop")
	v.SetDefault("app.secret_key", "7f%q2v-l9b!x8@s0w^d3mz#e4k6r(uy1t*o)jh5ca+pn=g")
	v.SetDefault("app.frontend_url", "http://localhost:3000")
	v.SetDefault("app.from_email", "noreply@localhost")
	v.SetDefault("app.from_name", "InnoCell")
	v.SetDefault("sendgrid.api_key", "")
	v.SetDefault("rollbar.token", "")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debug_host", ":4000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.jwt_expiration", 7*24*time.Hour)
	v.SetDefault("server.jwt_refresh_expiration", 30*24*time.Hour)
	v.SetDefault("server.password_reset_timeout", 3*24*time.Hour)

	v.SetDefault("db.engine", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.name", "innocell")
	v.SetDefault("db.user", "innocell")
	v.SetDefault("db.password", "innocell")
	v.SetDefault("db.admin_user", "postgres")
	v.SetDefault("db.admin_password", "postgres")
	v.SetDefault("db.disable_tls", true)
	v.SetDefault("db.max_open_conns", 25)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.settings_ttl", 5*time.Minute)

	v.SetDefault("payment.provider", "dummy")
	v.SetDefault("payment.key_id", "")
	v.SetDefault("payment.key_secret", "dummy-key-secret")
	v.SetDefault("payment.webhook_secret", "dummy-webhook-secret")
	v.SetDefault("payment.currency", "INR")
	v.SetDefault("payment.base_url", "https://api.razorpay.com")

	return &Config{
		AppName:         v.GetString("app.name"),
		Env:             env,
		Build:           v.GetString("app.build"),
		Debug:           v.GetBool("debug"),
		TestMode:        env == "TEST",
		SecretKey:       v.GetString("app.secret_key"),
		FrontendBaseURL: strings.TrimSuffix(v.GetString("app.frontend_url"), "/"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("app.from_name"),
			Address: v.GetString("app.from_email"),
		},
		SendgridApiKey: v.GetString("sendgrid.api_key"),
		RollbarToken:   v.GetString("rollbar.token"),
		Server: ServerConfig{
			Address:                   v.GetString("server.address"),
			DebugHost:                 v.GetString("server.debug_host"),
			Host:                      v.GetString("server.host"),
			ShutdownTimeout:           v.GetDuration("server.shutdown_timeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwt_expiration"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwt_refresh_expiration"),
			PasswordResetTimeoutDelta: v.GetDuration("server.password_reset_timeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("db.engine"),
			Host:          v.GetString("db.host"),
			Port:          strconv.Itoa(v.GetInt("db.port")),
			Name:          v.GetString("db.name"),
			User:          v.GetString("db.user"),
			Password:      v.GetString("db.password"),
			AdminUser:     v.GetString("db.admin_user"),
			AdminPassword: v.GetString("db.admin_password"),
			DisableTLS:    v.GetBool("db.disable_tls"),
			MaxOpenConns:  v.GetInt("db.max_open_conns"),
		},
		Redis: RedisConfig{
			Addr:        v.GetString("redis.addr"),
			Password:    v.GetString("redis.password"),
			DB:          v.GetInt("redis.db"),
			SettingsTTL: v.GetDuration("redis.settings_ttl"),
		},
		Payment: PaymentConfig{
			Provider:      v.GetString("payment.provider"),
			KeyID:         v.GetString("payment.key_id"),
			KeySecret:     v.GetString("payment.key_secret"),
			WebhookSecret: v.GetString("payment.webhook_secret"),
			Currency:      v.GetString("payment.currency"),
			BaseURL:       strings.TrimSuffix(v.GetString("payment.base_url"), "/"),
		},
	}
}
