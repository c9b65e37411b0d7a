package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address                   string
		Host                      string
		DebugHost                 string
		DisableReqLogs            bool
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		PasswordResetTimeoutDelta time.Duration
	}

	DatabaseConfig struct {
		Driver        string // postgres (lib/pq) | pgx
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		MaxIdleConns  int
		MaxOpenConns  int
	}

	KhatmConfig struct {
		SweepSchedule string        // cron spec
		MissedAfter   time.Duration // grace period after the scheduled time
	}

	AudioConfig struct {
		VerseBaseURL   string
		ChapterAPIBase string
		DefaultReciter string
		Timeout        time.Duration
	}

	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		RollbarToken     string
		SendgridAPIKey   string
		defaultFromEmail string

		Server   ServerConfig
		Database DatabaseConfig
		Khatm    KhatmConfig
		Audio    AudioConfig
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
}

// NewConfig loads the configuration from defaults, `config/.env.<env>` (if any) and the environment.
// Environment variables are prefixed with the upper-cased ENV, e.g. PROD_DATABASE_HOST.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("test_mode", env == "TEST")
	v.SetDefault("build", "develop")
	v.SetDefault("app_name", "Quran App")
	v.SetDefault("secret_key", "k2#q9-ra!m7@d4n$w8_f1&t5^n0(j3)l6=x+hz")
	v.SetDefault("frontend_base_url", "http://localhost:3000")
	v.SetDefault("rollbar_token", "")
	v.SetDefault("sendgrid_api_key", "")
	v.SetDefault("default_from_email", "noreply@localhost")

	v.SetDefault("server_address", ":8000")
	v.SetDefault("server_host", "localhost")
	v.SetDefault("server_debug_host", ":4000")
	v.SetDefault("server_disable_req_logs", env == "TEST")
	v.SetDefault("server_shutdown_timeout", 5*time.Second)
	v.SetDefault("server_jwt_expiration_delta", 30*24*time.Hour)
	v.SetDefault("server_jwt_refresh_expiration_delta", 90*24*time.Hour)
	v.SetDefault("server_password_reset_timeout_delta", 3*24*time.Hour)

	v.SetDefault("database_driver", "postgres")
	v.SetDefault("database_host", "localhost")
	v.SetDefault("database_port", "5432")
	v.SetDefault("database_name", "quran")
	v.SetDefault("database_user", "quran")
	v.SetDefault("database_password", "quran")
	v.SetDefault("database_admin_user", "")
	v.SetDefault("database_admin_password", "")
	v.SetDefault("database_disable_tls", env == "DEV" || env == "TEST")
	v.SetDefault("database_max_idle_conns", 5)
	v.SetDefault("database_max_open_conns", 20)

	v.SetDefault("khatm_sweep_schedule", "@every 5m")
	v.SetDefault("khatm_missed_after", 24*time.Hour)

	v.SetDefault("audio_verse_base_url", "https://everyayah.com/data")
	v.SetDefault("audio_chapter_api_base", "https://api.quran.com/api/v4")
	v.SetDefault("audio_default_reciter", "Alafasy")
	v.SetDefault("audio_timeout", 10*time.Second)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v.SetEnvPrefix(env)
	v.AutomaticEnv()

	return &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("test_mode"),
		AppName:          v.GetString("app_name"),
		SecretKey:        v.GetString("secret_key"),
		FrontendBaseURL:  v.GetString("frontend_base_url"),
		RollbarToken:     v.GetString("rollbar_token"),
		SendgridAPIKey:   v.GetString("sendgrid_api_key"),
		defaultFromEmail: v.GetString("default_from_email"),
		Server: ServerConfig{
			Address:                   v.GetString("server_address"),
			Host:                      v.GetString("server_host"),
			DebugHost:                 v.GetString("server_debug_host"),
			DisableReqLogs:            v.GetBool("server_disable_req_logs"),
			ShutdownTimeout:           v.GetDuration("server_shutdown_timeout"),
			JWTExpirationDelta:        v.GetDuration("server_jwt_expiration_delta"),
			JWTRefreshExpirationDelta: v.GetDuration("server_jwt_refresh_expiration_delta"),
			PasswordResetTimeoutDelta: v.GetDuration("server_password_reset_timeout_delta"),
		},
		Database: DatabaseConfig{
			Driver:        v.GetString("database_driver"),
			Host:          v.GetString("database_host"),
			Port:          v.GetString("database_port"),
			Name:          v.GetString("database_name"),
			User:          v.GetString("database_user"),
			Password:      v.GetString("database_password"),
			AdminUser:     v.GetString("database_admin_user"),
			AdminPassword: v.GetString("database_admin_password"),
			DisableTLS:    v.GetBool("database_disable_tls"),
			MaxIdleConns:  v.GetInt("database_max_idle_conns"),
			MaxOpenConns:  v.GetInt("database_max_open_conns"),
		},
		Khatm: KhatmConfig{
			SweepSchedule: v.GetString("khatm_sweep_schedule"),
			MissedAfter:   v.GetDuration("khatm_missed_after"),
		},
		Audio: AudioConfig{
			VerseBaseURL:   v.GetString("audio_verse_base_url"),
			ChapterAPIBase: v.GetString("audio_chapter_api_base"),
			DefaultReciter: v.GetString("audio_default_reciter"),
			Timeout:        v.GetDuration("audio_timeout"),
		},
	}
}
