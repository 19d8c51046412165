package fraud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/phone"
)

const (
	defaultBaseURL              = "https://bdcourier.com/api"
	defaultTimeout              = 8 * time.Second
	checkPath                   = "courier-check"
	summaryKey                  = "summary"
	responseBodyReadLimit int64 = 1024
)

var errAPIKeyRequired = errors.New("fraud check api key is required")

// Client queries the courier-history provider for a phone's parcel record.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	baseURL    string
	apiKey     string
	now        func() time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the provider base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout overrides the per-request timeout. It applies to a copy of the
// HTTP client, whichever order the options are given in.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithClock overrides the clock used to stamp FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds the fraud client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.timeout > 0 {
		httpClient := *client.httpClient
		httpClient.Timeout = client.timeout
		client.httpClient = &httpClient
	}
	return client, nil
}

// CourierRecord is one courier's slice of the delivery history.
type CourierRecord struct {
	Name         string  `json:"name"`
	Total        int     `json:"total"`
	Success      int     `json:"success"`
	Cancelled    int     `json:"cancelled"`
	SuccessRatio float64 `json:"successRatio"`
}

// Signal is the normalized delivery-history summary for one phone.
type Signal struct {
	Phone        string          `json:"phone"`
	Total        int             `json:"totalParcels"`
	Success      int             `json:"successParcels"`
	Cancelled    int             `json:"cancelledParcels"`
	SuccessRatio float64         `json:"successRatio"`
	Breakdown    []CourierRecord `json:"perCourierBreakdown"`
	FetchedAt    time.Time       `json:"fetchedAt"`
}

// HasHistory reports whether the provider knows any parcel for the phone.
func (s Signal) HasHistory() bool {
	return s.Total > 0
}

// Tier buckets the success ratio: new, safe (>=80), caution (50-80), risk (<50).
func (s Signal) Tier() enums.RiskTier {
	switch {
	case !s.HasHistory():
		return enums.RiskTierNew
	case s.SuccessRatio >= 80:
		return enums.RiskTierSafe
	case s.SuccessRatio >= 50:
		return enums.RiskTierCaution
	default:
		return enums.RiskTierRisk
	}
}

// Check looks up the delivery history of a phone. Invalid phones fail before any
// network call; every provider failure surfaces as upstream_unavailable.
func (c *Client) Check(ctx context.Context, rawPhone string) (*Signal, error) {
	if c == nil {
		return nil, unavailable(errors.New("client not configured"), "fraud client not configured")
	}
	canonical, ok := phone.Normalize(rawPhone)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone number is not a valid mobile number").
			WithReason(pkgerrors.ReasonInvalidPhone)
	}

	endpoint := fmt.Sprintf("%s/%s?phone=%s", strings.TrimRight(c.baseURL, "/"), checkPath, url.QueryEscape(canonical))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, unavailable(err, "build courier check request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, unavailable(err, "execute courier check request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, unavailable(fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "courier check request failed")
	}

	var apiResp struct {
		Status      string                     `json:"status"`
		CourierData map[string]json.RawMessage `json:"courierData"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, unavailable(err, "decode courier check response")
	}
	if s := strings.ToLower(strings.TrimSpace(apiResp.Status)); s != "" && s != "success" {
		return nil, unavailable(fmt.Errorf("provider status %q", apiResp.Status), "courier check rejected")
	}

	signal, err := buildSignal(canonical, apiResp.CourierData)
	if err != nil {
		return nil, unavailable(err, "decode courier check payload")
	}
	signal.FetchedAt = c.now().UTC()
	return signal, nil
}

type courierPayload struct {
	Name      string    `json:"name"`
	Total     flexFloat `json:"total_parcel"`
	Success   flexFloat `json:"success_parcel"`
	Cancelled flexFloat `json:"cancelled_parcel"`
	Ratio     flexFloat `json:"success_ratio"`
}

func buildSignal(canonical string, data map[string]json.RawMessage) (*Signal, error) {
	signal := &Signal{Phone: canonical, Breakdown: []CourierRecord{}}

	var summary *courierPayload
	for key, raw := range data {
		var entry courierPayload
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("courier %q: %w", key, err)
		}
		if key == summaryKey {
			summary = &entry
			continue
		}
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			name = key
		}
		signal.Breakdown = append(signal.Breakdown, CourierRecord{
			Name:         name,
			Total:        int(entry.Total),
			Success:      int(entry.Success),
			Cancelled:    int(entry.Cancelled),
			SuccessRatio: float64(entry.Ratio),
		})
	}
	sortRecords(signal.Breakdown)

	if summary != nil {
		signal.Total = int(summary.Total)
		signal.Success = int(summary.Success)
		signal.Cancelled = int(summary.Cancelled)
		signal.SuccessRatio = float64(summary.Ratio)
	} else {
		for _, rec := range signal.Breakdown {
			signal.Total += rec.Total
			signal.Success += rec.Success
			signal.Cancelled += rec.Cancelled
		}
	}
	if signal.Total > 0 && (summary == nil || signal.SuccessRatio == 0) {
		signal.SuccessRatio = ratio(signal.Success, signal.Total)
	}
	return signal, nil
}

func ratio(success, total int) float64 {
	if total <= 0 {
		return 0
	}
	pct := float64(success) * 100 / float64(total)
	return float64(int64(pct*100+0.5)) / 100
}

func unavailable(err error, message string) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message).
		WithReason(pkgerrors.ReasonUpstreamUnavailable)
}
