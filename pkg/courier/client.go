package courier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://portal.packzy.com/api/v1"
	defaultTimeout              = 10 * time.Second
	responseBodyReadLimit int64 = 2048
	providerStatusOK            = 200
)

var errCredentialsRequired = errors.New("courier api key and secret key are required")

// Client talks to the courier's consignment API.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	baseURL    string
	apiKey     string
	secretKey  string
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

// WithBaseURL overrides the courier base URL.
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

// WithClock overrides the clock used to stamp reports.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds the courier client.
func NewClient(apiKey, secretKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	secretKey = strings.TrimSpace(secretKey)
	if apiKey == "" || secretKey == "" {
		return nil, errCredentialsRequired
	}

	client := &Client{
		apiKey:     apiKey,
		secretKey:  secretKey,
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

// ConsignmentRequest is the shipment handed to the courier.
type ConsignmentRequest struct {
	Invoice          string `json:"invoice"`
	RecipientName    string `json:"recipient_name"`
	RecipientPhone   string `json:"recipient_phone"`
	RecipientAddress string `json:"recipient_address"`
	CODAmount        int64  `json:"cod_amount"`
	Note             string `json:"note,omitempty"`
}

// Consignment is the courier's acknowledgement of a created shipment.
type Consignment struct {
	ConsignmentID string
	TrackingCode  string
	Status        string
}

// StatusReport is the outcome of a status poll. Known is false when the
// courier could not be reached or did not recognize the consignment.
type StatusReport struct {
	ConsignmentID string
	Status        string
	Known         bool
	CheckedAt     time.Time
}

// BalanceReport carries the merchant balance held by the courier.
type BalanceReport struct {
	Balance   float64
	Known     bool
	CheckedAt time.Time
}

// CreateConsignment books a shipment. Transport failures and 5xx responses are
// upstream_unavailable; 4xx responses and non-200 body statuses are rejected_by_provider.
func (c *Client) CreateConsignment(ctx context.Context, in ConsignmentRequest) (*Consignment, error) {
	if c == nil {
		return nil, unavailable(errors.New("client not configured"), "courier client not configured")
	}
	if strings.TrimSpace(in.Invoice) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "consignment invoice is required")
	}
	if in.CODAmount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cod amount cannot be negative")
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return nil, unavailable(err, "marshal consignment request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL("create_order"), bytes.NewReader(payload))
	if err != nil {
		return nil, unavailable(err, "build consignment request")
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, unavailable(err, "execute consignment request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*responseBodyReadLimit))
	if err != nil {
		return nil, unavailable(err, "read consignment response")
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, unavailable(statusError(resp.StatusCode, body), "consignment request failed")
	case resp.StatusCode >= 400:
		return nil, rejected(statusError(resp.StatusCode, body), "courier rejected consignment")
	}

	var apiResp struct {
		Status      int    `json:"status"`
		Message     string `json:"message"`
		Consignment struct {
			ConsignmentID json.Number `json:"consignment_id"`
			TrackingCode  string      `json:"tracking_code"`
			Status        string      `json:"status"`
		} `json:"consignment"`
	}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&apiResp); err != nil {
		return nil, unavailable(err, "decode consignment response")
	}
	if apiResp.Status != providerStatusOK {
		return nil, rejected(fmt.Errorf("provider status %d: %s", apiResp.Status, apiResp.Message), "courier rejected consignment")
	}
	id := apiResp.Consignment.ConsignmentID.String()
	if id == "" {
		return nil, rejected(errors.New("missing consignment id"), "courier returned no consignment")
	}

	return &Consignment{
		ConsignmentID: id,
		TrackingCode:  apiResp.Consignment.TrackingCode,
		Status:        apiResp.Consignment.Status,
	}, nil
}

// CheckStatus polls the delivery status of a consignment. It never fails; an
// unreachable courier yields Status "unknown".
func (c *Client) CheckStatus(ctx context.Context, consignmentID string) StatusReport {
	report := StatusReport{ConsignmentID: consignmentID, Status: StatusUnknown}
	if c == nil {
		return report
	}
	report.CheckedAt = c.now().UTC()

	trimmed := strings.TrimSpace(consignmentID)
	if trimmed == "" {
		return report
	}

	var apiResp struct {
		Status         int    `json:"status"`
		DeliveryStatus string `json:"delivery_status"`
	}
	if !c.getJSON(ctx, "status_by_cid/"+url.PathEscape(trimmed), &apiResp) || apiResp.Status != providerStatusOK {
		return report
	}
	status := strings.TrimSpace(apiResp.DeliveryStatus)
	if status == "" || status == StatusUnknown {
		return report
	}
	report.Status = status
	report.Known = true
	return report
}

// CheckBalance fetches the merchant balance. It never fails.
func (c *Client) CheckBalance(ctx context.Context) BalanceReport {
	report := BalanceReport{}
	if c == nil {
		return report
	}
	report.CheckedAt = c.now().UTC()

	var apiResp struct {
		Status         int     `json:"status"`
		CurrentBalance float64 `json:"current_balance"`
	}
	if !c.getJSON(ctx, "get_balance", &apiResp) || apiResp.Status != providerStatusOK {
		return report
	}
	report.Balance = apiResp.CurrentBalance
	report.Known = true
	return report
}

func (c *Client) getJSON(ctx context.Context, path string, out any) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(path), nil)
	if err != nil {
		return false
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false
	}
	return json.NewDecoder(resp.Body).Decode(out) == nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Secret-Key", c.secretKey)
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}

func statusError(status int, body []byte) error {
	msg := body
	if int64(len(msg)) > responseBodyReadLimit {
		msg = msg[:responseBodyReadLimit]
	}
	return fmt.Errorf("status %d: %s", status, strings.TrimSpace(string(msg)))
}

func unavailable(err error, message string) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message).
		WithReason(pkgerrors.ReasonUpstreamUnavailable)
}

func rejected(err error, message string) error {
	return pkgerrors.Wrap(pkgerrors.CodeProviderRejected, err, message).
		WithReason(pkgerrors.ReasonRejectedByProvider)
}
