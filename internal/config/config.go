package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App struct {
		ENV    string
		Origin string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	HTTP struct {
		Host            string
		Port            string
		CORSOrigins     []string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}

	DB struct {
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		LogSQL   bool
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	Auth struct {
		JWTSecret          string
		TokenTTL           time.Duration
		SessionTTL         time.Duration
		CookieSecure       bool
		GoogleClientID     string
		GoogleClientSecret string
		GoogleRedirectURL  string
		OAuthStateSecret   string
	}

	Limits struct {
		DailySwipes         int
		DailySuperLikes     int
		DailyRoses          int
		DiscoverLimit       int
		DiscoverScanLimit   int
		RequestsPerMinute   int
		RateLimitBurst      int
		MessageEditWindow   time.Duration
		MessageDeleteWindow time.Duration
	}

	Realtime struct {
		// Bus is "local" or "redis".
		Bus             string
		MessagesPerSec  float64
		MessageBurst    int
		MaxMessageBytes int64
	}

	Stripe struct {
		SecretKey     string
		WebhookSecret string
		Currency      string
	}

	Push struct {
		VAPIDPublicKey  string
		VAPIDPrivateKey string
		Subscriber      string
		Timeout         time.Duration
	}

	Cloudinary struct {
		URL    string
		Folder string
	}

	LLM struct {
		BaseURL string
		APIKey  string
		Model   string
		Timeout time.Duration
	}

	Places struct {
		BaseURL string
		APIKey  string
		Timeout time.Duration
	}

	AMQP struct {
		URL      string
		Exchange string
	}

	Notifications struct {
		// Store is "sql" or "mongo".
		Store    string
		MongoURI string
		MongoDB  string
		TTL      time.Duration
	}

	Calls struct {
		STUNURLs       []string
		TURNURLs       []string
		TURNUsername   string
		TURNCredential string
	}

	Jobs struct {
		MatchSweepSchedule string
		MatchWarnAfter     time.Duration
		MatchExpireAfter   time.Duration
	}
}

func New() *Config {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := &Config{}

	// App
	cfg.App.ENV = getEnvDefault("APP_ENV", "development")
	cfg.App.Origin = getEnvDefault("APP_ORIGIN", "http://localhost:3000")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "api_server")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// HTTP
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "0.0.0.0")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", "8001")
	cfg.HTTP.CORSOrigins = getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"})
	cfg.HTTP.ReadTimeout = getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second)
	cfg.HTTP.WriteTimeout = getEnvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second)
	cfg.HTTP.ShutdownTimeout = getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second)

	// Database
	cfg.DB.LogSQL = isTruthy(os.Getenv("DB_LOG_SQL"))
	cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "ember_dating")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	// Auth
	cfg.Auth.JWTSecret = getEnvDefault("JWT_SECRET", "ember-secret-key-2024")
	cfg.Auth.TokenTTL = getEnvDuration("JWT_TTL", 7*24*time.Hour)
	cfg.Auth.SessionTTL = getEnvDuration("SESSION_TTL", 7*24*time.Hour)
	cfg.Auth.CookieSecure = !isFalsy(os.Getenv("COOKIE_SECURE"))
	cfg.Auth.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.Auth.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	cfg.Auth.GoogleRedirectURL = getEnvDefault("GOOGLE_REDIRECT_URL", cfg.App.Origin+"/auth/callback")
	cfg.Auth.OAuthStateSecret = getEnvDefault("OAUTH_STATE_SECRET", cfg.Auth.JWTSecret)

	// Limits
	cfg.Limits.DailySwipes = getEnvInt("DAILY_SWIPE_LIMIT", 10)
	cfg.Limits.DailySuperLikes = getEnvInt("DAILY_SUPER_LIKE_LIMIT", 1)
	cfg.Limits.DailyRoses = getEnvInt("DAILY_ROSE_LIMIT", 1)
	cfg.Limits.DiscoverLimit = getEnvInt("DISCOVER_LIMIT", 50)
	cfg.Limits.DiscoverScanLimit = getEnvInt("DISCOVER_SCAN_LIMIT", 500)
	cfg.Limits.RequestsPerMinute = getEnvInt("RATE_LIMIT_PER_MIN", 120)
	cfg.Limits.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 20)
	cfg.Limits.MessageEditWindow = getEnvDuration("MESSAGE_EDIT_WINDOW", 15*time.Minute)
	cfg.Limits.MessageDeleteWindow = getEnvDuration("MESSAGE_DELETE_WINDOW", time.Hour)

	// Realtime
	cfg.Realtime.Bus = getEnvDefault("REALTIME_BUS", "redis")
	cfg.Realtime.MessagesPerSec = getEnvFloat("WS_MESSAGES_PER_SEC", 10)
	cfg.Realtime.MessageBurst = getEnvInt("WS_MESSAGE_BURST", 20)
	cfg.Realtime.MaxMessageBytes = int64(getEnvInt("WS_MAX_MESSAGE_BYTES", 64*1024))

	// Stripe
	cfg.Stripe.SecretKey = os.Getenv("STRIPE_API_KEY")
	cfg.Stripe.WebhookSecret = os.Getenv("STRIPE_WEBHOOK_SECRET")
	cfg.Stripe.Currency = getEnvDefault("STRIPE_CURRENCY", "usd")

	// Web push
	cfg.Push.VAPIDPublicKey = os.Getenv("VAPID_PUBLIC_KEY")
	cfg.Push.VAPIDPrivateKey = os.Getenv("VAPID_PRIVATE_KEY")
	cfg.Push.Subscriber = getEnvDefault("VAPID_SUBSCRIBER", "mailto:support@ember.app")
	cfg.Push.Timeout = getEnvDuration("PUSH_TIMEOUT", 5*time.Second)

	// Cloudinary
	cfg.Cloudinary.URL = os.Getenv("CLOUDINARY_URL")
	cfg.Cloudinary.Folder = getEnvDefault("CLOUDINARY_FOLDER", "ember/photos")

	// LLM
	cfg.LLM.BaseURL = getEnvDefault("LLM_BASE_URL", "https://api.openai.com/v1")
	cfg.LLM.APIKey = os.Getenv("LLM_API_KEY")
	cfg.LLM.Model = getEnvDefault("LLM_MODEL", "gpt-4o-mini")
	cfg.LLM.Timeout = getEnvDuration("LLM_TIMEOUT", 8*time.Second)

	// Places
	cfg.Places.BaseURL = getEnvDefault("PLACES_BASE_URL", "https://places.googleapis.com/v1")
	cfg.Places.APIKey = os.Getenv("PLACES_API_KEY")
	cfg.Places.Timeout = getEnvDuration("PLACES_TIMEOUT", 5*time.Second)

	// AMQP
	cfg.AMQP.URL = os.Getenv("AMQP_URL")
	cfg.AMQP.Exchange = getEnvDefault("AMQP_EXCHANGE", "ember.events")

	// Notifications
	cfg.Notifications.Store = getEnvDefault("NOTIFICATION_STORE", "sql")
	cfg.Notifications.MongoURI = getEnvDefault("MONGO_URL", "mongodb://localhost:27017")
	cfg.Notifications.MongoDB = getEnvDefault("MONGO_DB", "ember_dating")
	cfg.Notifications.TTL = getEnvDuration("NOTIFICATION_TTL", 90*24*time.Hour)

	// Calls
	cfg.Calls.STUNURLs = getEnvList("STUN_URLS", []string{"stun:stun.l.google.com:19302", "stun:stun1.l.google.com:19302"})
	cfg.Calls.TURNURLs = getEnvList("TURN_URLS", nil)
	cfg.Calls.TURNUsername = os.Getenv("TURN_USERNAME")
	cfg.Calls.TURNCredential = os.Getenv("TURN_CREDENTIAL")

	// Jobs
	cfg.Jobs.MatchSweepSchedule = getEnvDefault("MATCH_SWEEP_SCHEDULE", "@every 15m")
	cfg.Jobs.MatchWarnAfter = getEnvDuration("MATCH_WARN_AFTER", 20*time.Hour)
	cfg.Jobs.MatchExpireAfter = getEnvDuration("MATCH_EXPIRE_AFTER", 24*time.Hour)

	return cfg
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return c.HTTP.Host + ":" + c.HTTP.Port
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(k string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// getEnvList splits a comma separated variable, dropping empty items.
func getEnvList(k string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

func isFalsy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "no", "n", "off":
		return true
	}
	return false
}
