package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.PollInterval != 300*time.Second {
		t.Errorf("PollInterval = %v, want 5m", cfg.PollInterval)
	}
	if cfg.GMPNotifyThreshold != 50.0 {
		t.Errorf("GMPNotifyThreshold = %v, want 50", cfg.GMPNotifyThreshold)
	}
	if cfg.MaxMessageLength != 3800 {
		t.Errorf("MaxMessageLength = %d, want 3800", cfg.MaxMessageLength)
	}
	if cfg.IPOAlertsStatus != "open" {
		t.Errorf("IPOAlertsStatus = %q, want open", cfg.IPOAlertsStatus)
	}
	if cfg.IPOAlertsPages != 1 {
		t.Errorf("IPOAlertsPages = %d, want 1", cfg.IPOAlertsPages)
	}
	if !cfg.EnableStatusServer {
		t.Error("EnableStatusServer should default to true")
	}
	if cfg.OneShot {
		t.Error("OneShot should default to false")
	}
	if cfg.GMPExtraSources != nil {
		t.Errorf("GMPExtraSources = %v, want none", cfg.GMPExtraSources)
	}
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("POLL_INTERVAL_SECONDS", "30")
	t.Setenv("GMP_NOTIFY_THRESHOLD", "75.5")
	t.Setenv("ONE_SHOT", "true")
	t.Setenv("GMP_EXTRA_SOURCES", " https://a.example.com ,, https://b.example.com ")
	t.Setenv("MAX_MESSAGE_LENGTH", "2000")

	cfg := LoadConfig()

	if cfg.PollInterval != 30*time.Second {
		t.Errorf("PollInterval = %v, want 30s", cfg.PollInterval)
	}
	if cfg.GMPNotifyThreshold != 75.5 {
		t.Errorf("GMPNotifyThreshold = %v, want 75.5", cfg.GMPNotifyThreshold)
	}
	if !cfg.OneShot {
		t.Error("ONE_SHOT=true not honored")
	}
	if len(cfg.GMPExtraSources) != 2 ||
		cfg.GMPExtraSources[0] != "https://a.example.com" ||
		cfg.GMPExtraSources[1] != "https://b.example.com" {
		t.Errorf("GMPExtraSources = %v", cfg.GMPExtraSources)
	}
	if cfg.MaxMessageLength != 2000 {
		t.Errorf("MaxMessageLength = %d, want 2000", cfg.MaxMessageLength)
	}
}

func TestLoadConfigRejectsMalformedValues(t *testing.T) {
	t.Setenv("POLL_INTERVAL_SECONDS", "not-a-number")
	t.Setenv("GMP_NOTIFY_THRESHOLD", "many rupees")
	t.Setenv("ENABLE_STATUS_SERVER", "maybe")
	t.Setenv("IPOALERTS_PAGE_LIMIT", "")

	cfg := LoadConfig()

	if cfg.PollInterval != 300*time.Second {
		t.Errorf("malformed interval fell through: %v", cfg.PollInterval)
	}
	if cfg.GMPNotifyThreshold != 50.0 {
		t.Errorf("malformed threshold fell through: %v", cfg.GMPNotifyThreshold)
	}
	if !cfg.EnableStatusServer {
		t.Error("malformed bool should keep the default")
	}
	if cfg.IPOAlertsPageLimit != 50 {
		t.Errorf("empty page limit fell through: %d", cfg.IPOAlertsPageLimit)
	}
}

func TestGetEnvSecondsSupportsFractions(t *testing.T) {
	t.Setenv("API_CALL_DELAY_SECONDS", "0.25")

	cfg := LoadConfig()
	if cfg.APICallDelay != 250*time.Millisecond {
		t.Errorf("APICallDelay = %v, want 250ms", cfg.APICallDelay)
	}
}

func TestGetEnvSecondsRejectsNegative(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT_SECONDS", "-3")

	cfg := LoadConfig()
	if cfg.HTTPTimeout != 12*time.Second {
		t.Errorf("negative timeout fell through: %v", cfg.HTTPTimeout)
	}
}
