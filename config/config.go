package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all agent configuration, read once at startup. The GMP
// notification threshold and poll interval are the only decision
// parameters; everything else is plumbing.
type Config struct {
	ServerPort         string
	EnableStatusServer bool
	LogLevel           string
	OneShot            bool

	DataDir     string
	DatabaseURL string

	PollInterval       time.Duration
	GMPNotifyThreshold float64

	IPOAlertsBaseURL   string
	IPOAlertsAPIKey    string
	IPOAlertsStatus    string
	IPOAlertsPageLimit int
	IPOAlertsPages     int

	InvestorgainGMPURL string
	GMPExtraSources    []string
	GMPRenderFallback  bool

	TelegramBotToken string
	TelegramChatID   string
	MaxMessageLength int

	HTTPTimeout      time.Duration
	MaxRetryAttempts int
	APICallDelay     time.Duration
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	return &Config{
		ServerPort:         getEnv("PORT", "8080"),
		EnableStatusServer: getEnvBool("ENABLE_STATUS_SERVER", true),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		OneShot:            getEnvBool("ONE_SHOT", false),

		DataDir:     getEnv("DATA_DIR", "./data"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		PollInterval:       getEnvSeconds("POLL_INTERVAL_SECONDS", 300),
		GMPNotifyThreshold: getEnvFloat("GMP_NOTIFY_THRESHOLD", 50.0),

		IPOAlertsBaseURL:   getEnv("IPOALERTS_BASE_URL", "https://api.ipoalerts.in"),
		IPOAlertsAPIKey:    getEnv("IPOALERTS_API_KEY", ""),
		IPOAlertsStatus:    getEnv("IPOALERTS_STATUS", "open"),
		IPOAlertsPageLimit: getEnvInt("IPOALERTS_PAGE_LIMIT", 50),
		IPOAlertsPages:     getEnvInt("IPOALERTS_PAGES", 1),

		InvestorgainGMPURL: getEnv("INVESTORGAIN_GMP_URL", "https://www.investorgain.com/report/live-ipo-gmp/331/"),
		GMPExtraSources:    getEnvList("GMP_EXTRA_SOURCES"),
		GMPRenderFallback:  getEnvBool("GMP_RENDER_FALLBACK", true),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		MaxMessageLength: getEnvInt("MAX_MESSAGE_LENGTH", 3800),

		HTTPTimeout:      getEnvSeconds("HTTP_TIMEOUT_SECONDS", 12),
		MaxRetryAttempts: getEnvInt("MAX_RETRY_ATTEMPTS", 3),
		APICallDelay:     getEnvSeconds("API_CALL_DELAY_SECONDS", 1),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		logrus.Warnf("Invalid %s value: %s, using default %d", key, value, fallback)
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		logrus.Warnf("Invalid %s value: %s, using default %g", key, value, fallback)
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}

	logrus.Warnf("Invalid %s value: %s, using default %t", key, value, fallback)
	return fallback
}

// getEnvSeconds reads a duration expressed in whole or fractional seconds
func getEnvSeconds(key string, fallbackSeconds float64) time.Duration {
	seconds := getEnvFloat(key, fallbackSeconds)
	if seconds < 0 {
		logrus.Warnf("Negative %s value, using default %gs", key, fallbackSeconds)
		seconds = fallbackSeconds
	}
	return time.Duration(seconds * float64(time.Second))
}

// getEnvList reads a comma-separated list, dropping empty entries
func getEnvList(key string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return nil
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
