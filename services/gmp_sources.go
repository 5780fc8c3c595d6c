package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"

	"github.com/fenilmodi00/ipo-agent/models"
	"github.com/fenilmodi00/ipo-agent/shared"
)

// StrategyGenericTable is the default row-parsing strategy, applied to
// any source URL without a host-specific binding.
const StrategyGenericTable = "generic-table"

// RowStrategy extracts GMP readings from a fetched page. Strategies are
// registered by name and bound to hosts once at startup; sources hold
// their resolved strategy so no per-fetch dispatch happens.
type RowStrategy func(page *goquery.Selection, sourceURL, provider string, utilityService *UtilityService) map[string]models.GMPReading

// ParserRegistry maps strategy names to implementations and hosts to
// strategy names. It ships with the generic table strategy registered.
type ParserRegistry struct {
	mutex      sync.RWMutex
	strategies map[string]RowStrategy
	hosts      map[string]string
}

func NewParserRegistry() *ParserRegistry {
	registry := &ParserRegistry{
		strategies: make(map[string]RowStrategy),
		hosts:      make(map[string]string),
	}
	registry.Register(StrategyGenericTable, ParseGenericGMPTable)
	return registry
}

// Register adds or replaces a named strategy.
func (r *ParserRegistry) Register(name string, strategy RowStrategy) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.strategies[name] = strategy
}

// BindHost pins a host to a named strategy.
func (r *ParserRegistry) BindHost(host, strategyName string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.hosts[strings.ToLower(host)] = strategyName
}

// ResolveForURL returns the strategy for a source URL: the one bound to
// its host when present, the generic table strategy otherwise.
func (r *ParserRegistry) ResolveForURL(sourceURL string) (string, RowStrategy) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	name := StrategyGenericTable
	if parsed, err := url.Parse(sourceURL); err == nil {
		if bound, exists := r.hosts[strings.ToLower(parsed.Host)]; exists {
			if _, known := r.strategies[bound]; known {
				name = bound
			}
		}
	}
	return name, r.strategies[name]
}

// ParseGenericGMPTable is the generic strategy: locate the most likely
// GMP table on the page and read one company/value pair per row.
func ParseGenericGMPTable(page *goquery.Selection, sourceURL, provider string, utilityService *UtilityService) map[string]models.GMPReading {
	table := locateGMPTable(page)
	if table == nil {
		return map[string]models.GMPReading{}
	}
	return extractTableReadings(table, sourceURL, provider, utilityService)
}

// locateGMPTable picks the table to parse. Selection order: the first
// table following a heading that mentions GMP, then any table whose
// header cells mention GMP, premium, or grey market, then the first
// table on the page.
func locateGMPTable(page *goquery.Selection) *goquery.Selection {
	var table *goquery.Selection

	page.Find("h1, h2, h3, h4").EachWithBreak(func(_ int, heading *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(heading.Text()), "gmp") {
			return true
		}
		candidate := heading.NextAllFiltered("table").First()
		if candidate.Length() == 0 {
			candidate = heading.NextAll().Find("table").First()
		}
		if candidate.Length() > 0 {
			table = candidate
			return false
		}
		return true
	})
	if table != nil {
		return table
	}

	candidateTables := page.Find("table")
	candidateTables.EachWithBreak(func(_ int, candidate *goquery.Selection) bool {
		var headerTexts []string
		candidate.Find("th").Each(func(_ int, th *goquery.Selection) {
			headerTexts = append(headerTexts, strings.ToLower(strings.TrimSpace(th.Text())))
		})
		header := strings.Join(headerTexts, " ")
		if strings.Contains(header, "gmp") || strings.Contains(header, "premium") || strings.Contains(header, "grey market") {
			table = candidate
			return false
		}
		return true
	})
	if table != nil {
		return table
	}

	if candidateTables.Length() > 0 {
		return candidateTables.First()
	}
	return nil
}

// extractTableReadings walks table rows, taking the first alphabetic
// cell as the company and the last parseable cell as the GMP value.
// Rows without a parseable value are skipped.
func extractTableReadings(table *goquery.Selection, sourceURL, provider string, utilityService *UtilityService) map[string]models.GMPReading {
	readings := make(map[string]models.GMPReading)
	now := time.Now().UTC()

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, utilityService.NormalizeTextContent(cell.Text()))
		})
		if len(cells) < 2 {
			return
		}

		// Skip the header row itself
		if row.Find("th").Length() > 0 {
			header := strings.ToLower(strings.Join(cells, " "))
			if strings.Contains(header, "company") && (strings.Contains(header, "gmp") || strings.Contains(header, "premium")) {
				return
			}
		}

		company := ""
		for _, cell := range cells {
			if utilityService.ContainsAlphabetic(cell) && !utilityService.IsNumericText(cell) {
				company = cell
				break
			}
		}

		var value *float64
		for i := len(cells) - 1; i >= 0; i-- {
			if parsed := utilityService.ParseCurrencyValue(cells[i]); parsed != nil {
				value = parsed
				break
			}
		}

		if company == "" {
			company = cells[0]
		}
		if value == nil {
			return
		}

		key := utilityService.KeyFromText(company)
		if key == "" {
			return
		}

		readings[key] = models.GMPReading{
			Source:    sourceURL,
			Provider:  provider,
			Value:     *value,
			Timestamp: now,
		}
	})

	return readings
}

// TableSource fetches one extra GMP page with a colly collector and
// parses it with the strategy resolved for its host at startup.
type TableSource struct {
	sourceURL          string
	provider           string
	strategyName       string
	strategy           RowStrategy
	requestTimeout     time.Duration
	requestRateLimiter *shared.HTTPRequestRateLimiter
	utilityService     *UtilityService
}

func NewTableSource(sourceURL string, registry *ParserRegistry, requestTimeout, politenessDelay time.Duration, utilityService *UtilityService) *TableSource {
	strategyName, strategy := registry.ResolveForURL(sourceURL)

	provider := "custom"
	if parsed, err := url.Parse(sourceURL); err == nil && parsed.Host != "" {
		provider = "custom:" + parsed.Host
	}

	return &TableSource{
		sourceURL:          sourceURL,
		provider:           provider,
		strategyName:       strategyName,
		strategy:           strategy,
		requestTimeout:     requestTimeout,
		requestRateLimiter: shared.NewHTTPRequestRateLimiter(politenessDelay),
		utilityService:     utilityService,
	}
}

// Name identifies this source in readings, health tracking, and metrics.
func (s *TableSource) Name() string {
	return s.provider
}

// FetchReadings visits the source URL and extracts readings with the
// resolved strategy. The collector enforces its own request timeout, so
// the context is not threaded into the visit.
func (s *TableSource) FetchReadings(_ context.Context) (map[string]models.GMPReading, error) {
	logger := logrus.WithFields(logrus.Fields{
		"component": "TableSource",
		"method":    "FetchReadings",
		"url":       s.sourceURL,
		"strategy":  s.strategyName,
	})

	s.requestRateLimiter.EnforceRateLimit()

	collector := colly.NewCollector()
	collector.SetRequestTimeout(s.requestTimeout)

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	})

	readings := make(map[string]models.GMPReading)
	collector.OnHTML("html", func(element *colly.HTMLElement) {
		for key, reading := range s.strategy(element.DOM, s.sourceURL, s.provider, s.utilityService) {
			readings[key] = reading
		}
	})

	var responseError error
	collector.OnError(func(response *colly.Response, err error) {
		responseError = err
	})

	if visitError := collector.Visit(s.sourceURL); visitError != nil {
		return nil, fmt.Errorf("failed to fetch GMP source %s: %w", s.sourceURL, visitError)
	}
	if responseError != nil {
		return nil, fmt.Errorf("failed to fetch GMP source %s: %w", s.sourceURL, responseError)
	}

	logger.WithField("readings", len(readings)).Info("Custom GMP source snapshot complete")
	return readings, nil
}
