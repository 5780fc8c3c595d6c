package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fenilmodi00/ipo-agent/shared"
)

// TelegramConfig carries the bot credentials and transport tuning. BaseURL
// is overridable so tests can point at a local server.
type TelegramConfig struct {
	BotToken           string
	ChatID             string
	BaseURL            string
	HTTPRequestTimeout time.Duration
	MaxRetryAttempts   int
}

// TelegramNotifier delivers update messages through the Telegram Bot API.
type TelegramNotifier struct {
	config            TelegramConfig
	httpClientFactory *shared.HTTPClientFactory
	httpClient        *http.Client
	logger            *logrus.Logger
}

// NewTelegramNotifier creates a notifier for the configured bot and chat.
func NewTelegramNotifier(config TelegramConfig, logger *logrus.Logger) *TelegramNotifier {
	if config.HTTPRequestTimeout <= 0 {
		config.HTTPRequestTimeout = 12 * time.Second
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.telegram.org"
	}

	httpClientFactory := shared.NewHTTPClientFactory(config.HTTPRequestTimeout)

	return &TelegramNotifier{
		config:            config,
		httpClientFactory: httpClientFactory,
		httpClient:        httpClientFactory.CreateOptimizedHTTPClient(config.HTTPRequestTimeout),
		logger:            logger,
	}
}

// Send posts one message batch with Markdown formatting enabled.
func (n *TelegramNotifier) Send(ctx context.Context, message string) error {
	logger := n.logger.WithFields(logrus.Fields{
		"component": "TelegramNotifier",
		"method":    "Send",
	})

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(n.config.BaseURL, "/"), n.config.BotToken)

	payload, marshalError := json.Marshal(map[string]interface{}{
		"chat_id":    n.config.ChatID,
		"text":       message,
		"parse_mode": "Markdown",
	})
	if marshalError != nil {
		return shared.NewServiceError(shared.ErrorCategoryNotification, "TELEGRAM_MARSHAL_FAILED",
			"Failed to encode sendMessage payload", "TelegramNotifier", "Send", false, marshalError)
	}

	request, requestError := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if requestError != nil {
		return shared.NewServiceError(shared.ErrorCategoryNotification, "TELEGRAM_REQUEST_FAILED",
			"Failed to create sendMessage request", "TelegramNotifier", "Send", false, requestError)
	}
	request.Header.Set("Content-Type", "application/json")

	response, executionError := shared.ExecuteHTTPRequestWithRetry(n.httpClient, request, n.config.MaxRetryAttempts)
	if executionError != nil {
		return shared.NewServiceError(shared.ErrorCategoryNotification, "TELEGRAM_SEND_FAILED",
			"Failed to deliver Telegram message", "TelegramNotifier", "Send", true, executionError)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		responseBody, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return shared.NewServiceError(shared.ErrorCategoryNotification, "TELEGRAM_HTTP_STATUS",
			fmt.Sprintf("Telegram API returned status %d: %s", response.StatusCode, string(responseBody)),
			"TelegramNotifier", "Send", shared.IsRetryableStatus(response.StatusCode), nil)
	}

	logger.WithField("message_length", len(message)).Info("Telegram message delivered")
	return nil
}

// Cleanup releases pooled HTTP connections.
func (n *TelegramNotifier) Cleanup() {
	n.httpClientFactory.CleanupAllClients()
}

// LogNotifier stands in for Telegram when the bot is not configured. It
// writes the would-be message to the log so one-shot runs stay inspectable.
type LogNotifier struct {
	logger *logrus.Logger
}

// NewLogNotifier creates a notifier that only logs.
func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the message instead of delivering it.
func (n *LogNotifier) Send(ctx context.Context, message string) error {
	n.logger.WithFields(logrus.Fields{
		"component":      "LogNotifier",
		"message_length": len(message),
	}).Info("Telegram not configured, printing message\n" + message)
	return nil
}
