package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fenilmodi00/ipo-agent/models"
	"github.com/fenilmodi00/ipo-agent/shared"
)

// ProvenanceRecorder records the outcome of fetch runs for audit.
type ProvenanceRecorder interface {
	AppendFetchRun(ctx context.Context, run models.FetchRun)
}

// IPOAlertsConfig holds configuration for the IPOAlerts API client
type IPOAlertsConfig struct {
	BaseURL            string
	APIKey             string
	Status             string
	PageLimit          int
	Pages              int
	HTTPRequestTimeout time.Duration
	RequestRateLimit   time.Duration
	MaxRetryAttempts   int
}

// IPOAlertsClient fetches open IPO listings from the IPOAlerts API and
// normalizes the loosely shaped payload into tracked records. Every run
// is recorded in the provenance log with per-page status codes.
type IPOAlertsClient struct {
	config             *IPOAlertsConfig
	httpClientFactory  *shared.HTTPClientFactory
	httpClient         *http.Client
	requestRateLimiter *shared.HTTPRequestRateLimiter
	utilityService     *UtilityService
	provenance         ProvenanceRecorder
}

func NewIPOAlertsClient(config *IPOAlertsConfig, utilityService *UtilityService, provenance ProvenanceRecorder) *IPOAlertsClient {
	httpClientFactory := shared.NewHTTPClientFactory(config.HTTPRequestTimeout)

	return &IPOAlertsClient{
		config:             config,
		httpClientFactory:  httpClientFactory,
		httpClient:         httpClientFactory.CreateOptimizedHTTPClient(config.HTTPRequestTimeout),
		requestRateLimiter: shared.NewHTTPRequestRateLimiter(config.RequestRateLimit),
		utilityService:     utilityService,
		provenance:         provenance,
	}
}

// FetchOpenIPOs calls the configured number of listing pages and returns
// the normalized records together with the fundamentals captured from
// the same payload. Page failures are logged and skipped; only a fully
// failed run surfaces as an empty result.
func (c *IPOAlertsClient) FetchOpenIPOs(ctx context.Context) ([]*models.IPORecord, []*models.Fundamentals, error) {
	logger := logrus.WithFields(logrus.Fields{
		"component": "IPOAlertsClient",
		"method":    "FetchOpenIPOs",
	})

	if c.config.APIKey == "" {
		logger.Warn("IPOAlerts API key not set, skipping fetch")
		return nil, nil, nil
	}

	run := models.FetchRun{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Source:    "ipoalerts",
	}

	var records []*models.IPORecord
	var fundamentals []*models.Fundamentals

	for page := 1; page <= c.config.Pages; page++ {
		c.requestRateLimiter.EnforceRateLimit()

		pageLogger := logger.WithField("page", page)
		pageLogger.Info("Calling IPOAlerts listing page")

		items, statusCode, fetchError := c.fetchPage(ctx, page)
		if statusCode != 0 {
			run.PagesCalled = append(run.PagesCalled, models.PageCall{Page: page, StatusCode: statusCode})
		}
		if fetchError != nil {
			pageLogger.WithError(fetchError).Warn("IPOAlerts page fetch failed")
			continue
		}

		for _, rawItem := range items {
			var item map[string]interface{}
			if err := json.Unmarshal(rawItem, &item); err != nil {
				pageLogger.WithError(err).Warn("Skipping malformed listing item")
				continue
			}

			record, itemFundamentals := c.normalizeItem(item)
			records = append(records, record)
			if itemFundamentals != nil {
				fundamentals = append(fundamentals, itemFundamentals)
			}
		}
	}

	run.Collected = len(records)
	if c.provenance != nil {
		c.provenance.AppendFetchRun(ctx, run)
	}

	logger.WithFields(logrus.Fields{
		"pages_called": len(run.PagesCalled),
		"collected":    run.Collected,
	}).Info("IPOAlerts fetch completed")

	return records, fundamentals, nil
}

// fetchPage performs one listing page call. The returned status code is
// zero when no HTTP response was obtained at all.
func (c *IPOAlertsClient) fetchPage(ctx context.Context, page int) ([]json.RawMessage, int, error) {
	query := url.Values{}
	query.Set("status", c.config.Status)
	query.Set("limit", strconv.Itoa(c.config.PageLimit))
	query.Set("page", strconv.Itoa(page))
	endpoint := fmt.Sprintf("%s/ipos?%s", strings.TrimRight(c.config.BaseURL, "/"), query.Encode())

	httpRequest, requestError := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if requestError != nil {
		return nil, 0, fmt.Errorf("failed to create HTTP request: %w", requestError)
	}
	httpRequest.Header.Set("x-api-key", c.config.APIKey)
	httpRequest.Header.Set("Content-Type", "application/json")

	httpResponse, executionError := shared.ExecuteHTTPRequestWithRetry(c.httpClient, httpRequest, c.config.MaxRetryAttempts)
	if executionError != nil {
		return nil, 0, fmt.Errorf("failed to fetch listing page %d: %w", page, executionError)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode != http.StatusOK {
		return nil, httpResponse.StatusCode, shared.NewServiceError(
			shared.ErrorCategoryNetwork,
			"IPOALERTS_HTTP_STATUS",
			fmt.Sprintf("listing page %d returned status %d", page, httpResponse.StatusCode),
			"IPOAlertsClient",
			"FetchOpenIPOs",
			shared.IsRetryableStatus(httpResponse.StatusCode),
			nil,
		)
	}

	var payload struct {
		Data []json.RawMessage `json:"data"`
	}
	if jsonParseError := json.NewDecoder(httpResponse.Body).Decode(&payload); jsonParseError != nil {
		return nil, httpResponse.StatusCode, fmt.Errorf("failed to parse listing page %d: %w", page, jsonParseError)
	}

	return payload.Data, httpResponse.StatusCode, nil
}

// normalizeItem maps one loosely shaped API item onto the internal
// record shape, trying the known field name variants in priority order.
func (c *IPOAlertsClient) normalizeItem(item map[string]interface{}) (*models.IPORecord, *models.Fundamentals) {
	companyName := stringField(item, "company_name", "name", "company")
	rawSymbol := stringField(item, "symbol")
	slug := stringField(item, "slug", "id")

	key := c.utilityService.ResolveIPOKey(rawSymbol, companyName, slug)

	exchange := stringField(item, "exchange", "market")
	if exchange == "" {
		exchange = "NSE/BSE"
	}

	status := stringField(item, "status")
	if status == "" {
		status = "open"
	}

	record := &models.IPORecord{
		Key:            key,
		CompanyName:    companyName,
		Symbol:         c.utilityService.NormalizeSymbol(rawSymbol),
		Exchange:       exchange,
		PriceBandLow:   floatField(c.utilityService, item, "price_band_low", "price_low", "min_price"),
		PriceBandHigh:  floatField(c.utilityService, item, "price_band_high", "price_high", "max_price"),
		IssueOpenDate:  stringField(item, "open_date", "issue_open_date"),
		IssueCloseDate: stringField(item, "close_date", "issue_close_date"),
		Status:         models.Status(status),
	}

	lotSize := intField(item, "lot_size")
	issueSize := c.utilityService.NormalizeString(stringField(item, "issue_size"))
	prospectusURL := c.utilityService.NormalizeString(stringField(item, "prospectus_url"))

	if lotSize == nil && issueSize == nil && prospectusURL == nil {
		return record, nil
	}

	return record, &models.Fundamentals{
		Key:           key,
		LotSize:       lotSize,
		IssueSize:     issueSize,
		ProspectusURL: prospectusURL,
		UpdatedAt:     time.Now().UTC(),
	}
}

// Cleanup releases pooled HTTP client resources.
func (c *IPOAlertsClient) Cleanup() {
	if c.httpClientFactory != nil {
		c.httpClientFactory.CleanupHTTPClient(c.httpClient)
	}
}

// stringField returns the first non-empty string value among keys.
// Numeric values are rendered to text, mirroring how identifiers arrive
// as numbers in some payload variants.
func stringField(item map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		value, exists := item[key]
		if !exists || value == nil {
			continue
		}
		switch typed := value.(type) {
		case string:
			if trimmed := strings.TrimSpace(typed); trimmed != "" {
				return trimmed
			}
		case float64:
			if typed != 0 {
				return strconv.FormatFloat(typed, 'f', -1, 64)
			}
		}
	}
	return ""
}

// floatField returns the first usable numeric value among keys. Zero
// values fall through to the next candidate key, matching the upstream
// payload convention where zero means "not set".
func floatField(utilityService *UtilityService, item map[string]interface{}, keys ...string) *float64 {
	for _, key := range keys {
		value, exists := item[key]
		if !exists || value == nil {
			continue
		}
		switch typed := value.(type) {
		case float64:
			if typed != 0 {
				parsed := typed
				return &parsed
			}
		case string:
			if parsed := utilityService.ParseCurrencyValue(typed); parsed != nil {
				return parsed
			}
		}
	}
	return nil
}

// intField returns the first usable integer value among keys.
func intField(item map[string]interface{}, keys ...string) *int {
	for _, key := range keys {
		value, exists := item[key]
		if !exists || value == nil {
			continue
		}
		switch typed := value.(type) {
		case float64:
			if typed != 0 {
				parsed := int(typed)
				return &parsed
			}
		case string:
			if parsed, err := strconv.Atoi(strings.TrimSpace(typed)); err == nil && parsed != 0 {
				return &parsed
			}
		}
	}
	return nil
}
