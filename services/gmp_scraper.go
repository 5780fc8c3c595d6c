package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/fenilmodi00/ipo-agent/models"
	"github.com/fenilmodi00/ipo-agent/shared"
)

// InvestorgainConfig holds configuration for the Investorgain GMP source
type InvestorgainConfig struct {
	URL                string
	HTTPRequestTimeout time.Duration
	RequestRateLimit   time.Duration
	MaxRetryAttempts   int
	RenderFallback     bool
}

// InvestorgainSource scrapes the live GMP table from Investorgain. The
// plain HTTP fetch is tried first; when it yields no rows (the table is
// rendered client side on some variants of the page) and the render
// fallback is enabled, a headless browser pass re-fetches the page.
type InvestorgainSource struct {
	config             *InvestorgainConfig
	httpClientFactory  *shared.HTTPClientFactory
	httpClient         *http.Client
	requestRateLimiter *shared.HTTPRequestRateLimiter
	utilityService     *UtilityService
}

func NewInvestorgainSource(config *InvestorgainConfig, utilityService *UtilityService) *InvestorgainSource {
	httpClientFactory := shared.NewHTTPClientFactory(config.HTTPRequestTimeout)

	return &InvestorgainSource{
		config:             config,
		httpClientFactory:  httpClientFactory,
		httpClient:         httpClientFactory.CreateOptimizedHTTPClient(config.HTTPRequestTimeout),
		requestRateLimiter: shared.NewHTTPRequestRateLimiter(config.RequestRateLimit),
		utilityService:     utilityService,
	}
}

// Name identifies this source in readings, health tracking, and metrics.
func (s *InvestorgainSource) Name() string {
	return "investorgain"
}

// FetchReadings returns one GMP reading per company, keyed by the
// company name in key form. An empty map with a nil error means the
// page was reachable but held no parseable rows.
func (s *InvestorgainSource) FetchReadings(ctx context.Context) (map[string]models.GMPReading, error) {
	logger := logrus.WithFields(logrus.Fields{
		"component": "InvestorgainSource",
		"method":    "FetchReadings",
		"url":       s.config.URL,
	})

	s.requestRateLimiter.EnforceRateLimit()

	httpRequest, requestError := http.NewRequestWithContext(ctx, http.MethodGet, s.config.URL, nil)
	if requestError != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", requestError)
	}
	shared.SetBrowserLikeHeaders(httpRequest, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	httpResponse, executionError := shared.ExecuteHTTPRequestWithRetry(s.httpClient, httpRequest, s.config.MaxRetryAttempts)
	if executionError != nil {
		return nil, fmt.Errorf("failed to fetch GMP page: %w", executionError)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode != http.StatusOK {
		return nil, shared.NewServiceError(
			shared.ErrorCategoryNetwork,
			"INVESTORGAIN_HTTP_STATUS",
			fmt.Sprintf("GMP page returned status %d", httpResponse.StatusCode),
			"InvestorgainSource",
			"FetchReadings",
			shared.IsRetryableStatus(httpResponse.StatusCode),
			nil,
		)
	}

	document, parseError := goquery.NewDocumentFromReader(httpResponse.Body)
	if parseError != nil {
		return nil, shared.WrapError(parseError, shared.ErrorCategoryParse, "INVESTORGAIN_HTML_PARSE", "InvestorgainSource", "FetchReadings", false)
	}

	readings := s.parseGMPTable(document)
	logger.WithField("readings", len(readings)).Debug("Parsed GMP table from static HTML")

	if len(readings) == 0 && s.config.RenderFallback {
		logger.Info("Static fetch yielded no GMP rows, retrying with headless render")
		rendered, renderError := s.renderAndParse(ctx)
		if renderError != nil {
			logger.WithError(renderError).Warn("Headless render fallback failed")
			return readings, nil
		}
		readings = rendered
	}

	logger.WithField("readings", len(readings)).Info("Investorgain snapshot complete")
	return readings, nil
}

// parseGMPTable runs the shared table extraction against this page,
// attributing readings to the configured URL.
func (s *InvestorgainSource) parseGMPTable(document *goquery.Document) map[string]models.GMPReading {
	return ParseGenericGMPTable(document.Selection, s.config.URL, s.Name(), s.utilityService)
}

// renderAndParse loads the page in headless Chrome so client-side
// rendered tables become visible, then parses the resulting DOM.
func (s *InvestorgainSource) renderAndParse(ctx context.Context) (map[string]models.GMPReading, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-images", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	chromeCtx, cancelChrome := chromedp.NewContext(allocCtx)
	defer cancelChrome()

	chromeCtx, cancelTimeout := context.WithTimeout(chromeCtx, 30*time.Second)
	defer cancelTimeout()

	var renderedHTML string
	runError := chromedp.Run(chromeCtx,
		chromedp.Navigate(s.config.URL),
		chromedp.WaitVisible("table", chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &renderedHTML, chromedp.ByQuery),
	)
	if runError != nil {
		return nil, fmt.Errorf("chromedp execution failed: %w", runError)
	}

	document, parseError := goquery.NewDocumentFromReader(strings.NewReader(renderedHTML))
	if parseError != nil {
		return nil, fmt.Errorf("failed to parse rendered HTML: %w", parseError)
	}

	return s.parseGMPTable(document), nil
}

// Cleanup releases pooled HTTP client resources.
func (s *InvestorgainSource) Cleanup() {
	if s.httpClientFactory != nil {
		s.httpClientFactory.CleanupHTTPClient(s.httpClient)
	}
}
