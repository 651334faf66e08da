package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	requestTimeout    = 10 * time.Second
	requestsPerSecond = 2
	lookbackRange     = "5d"
)

// Client fetches daily bars from a Yahoo-Finance-compatible chart API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        logrus.FieldLogger
}

func NewClient(baseURL string, log logrus.FieldLogger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 5),
		log:        log.WithField("component", "quotes"),
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol string `json:"symbol"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *Client) Current(ctx context.Context, symbol string) (Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Quote{}, ErrNoData
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Quote{}, err
	}

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=1d", c.baseURL, url.PathEscape(symbol), lookbackRange)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WithError(err).WithField("symbol", symbol).Warn("quote request failed")
		return Quote{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Quote{}, ErrNoData
	}
	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("quote provider returned status %d", resp.StatusCode)
	}

	var body chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Quote{}, fmt.Errorf("decode quote response: %w", err)
	}
	if body.Chart.Error != nil {
		c.log.WithFields(logrus.Fields{"symbol": symbol, "code": body.Chart.Error.Code}).Info("provider rejected symbol")
		return Quote{}, ErrNoData
	}
	if len(body.Chart.Result) == 0 || len(body.Chart.Result[0].Indicators.Quote) == 0 {
		return Quote{}, ErrNoData
	}
	return buildQuote(symbol, body)
}

type bar struct {
	ts                     int64
	open, high, low, close float64
	volume                 int64
}

func buildQuote(symbol string, body chartResponse) (Quote, error) {
	result := body.Chart.Result[0]
	series := result.Indicators.Quote[0]

	// The provider pads holidays with nulls; keep only complete bars.
	var bars []bar
	for i, ts := range result.Timestamp {
		if i >= len(series.Close) || series.Close[i] == nil {
			continue
		}
		b := bar{ts: ts, close: *series.Close[i]}
		if i < len(series.Open) && series.Open[i] != nil {
			b.open = *series.Open[i]
		}
		if i < len(series.High) && series.High[i] != nil {
			b.high = *series.High[i]
		}
		if i < len(series.Low) && series.Low[i] != nil {
			b.low = *series.Low[i]
		}
		if i < len(series.Volume) && series.Volume[i] != nil {
			b.volume = *series.Volume[i]
		}
		bars = append(bars, b)
	}
	if len(bars) == 0 {
		return Quote{}, ErrNoData
	}

	var sumHigh, sumLow float64
	var sumVolume int64
	for _, b := range bars {
		sumHigh += b.high
		sumLow += b.low
		sumVolume += b.volume
	}
	n := int64(len(bars))
	latest := bars[len(bars)-1]

	return Quote{
		Symbol:    symbol,
		Date:      time.Unix(latest.ts, 0).UTC().Format("2006-01-02"),
		Open:      decimal.NewFromFloat(latest.open).Round(2),
		High:      decimal.NewFromFloat(latest.high).Round(2),
		Low:       decimal.NewFromFloat(latest.low).Round(2),
		Close:     decimal.NewFromFloat(latest.close).Round(2),
		Volume:    latest.volume,
		AvgHigh:   decimal.NewFromFloat(sumHigh / float64(n)).Round(2),
		AvgLow:    decimal.NewFromFloat(sumLow / float64(n)).Round(2),
		AvgVolume: sumVolume / n,
	}, nil
}
