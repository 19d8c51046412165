package courier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
)

var fixedNow = time.Date(2026, 9, 2, 8, 30, 0, 0, time.UTC)

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient("api-key", "secret-key",
		WithBaseURL("http://courier.test/api/v1/"),
		WithHTTPClient(&http.Client{Transport: rt}),
		WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)
	return client
}

func sampleRequest() ConsignmentRequest {
	return ConsignmentRequest{
		Invoice:          "OD-20260902-0001",
		RecipientName:    "Rahim Uddin",
		RecipientPhone:   "01712345678",
		RecipientAddress: "House 12, Road 4, Dhanmondi, Dhaka",
		CODAmount:        1010,
	}
}

func TestCreateConsignment(t *testing.T) {
	var captured *http.Request
	var payload map[string]any
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		captured = req
		body, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &payload))
		return response(http.StatusOK, `{"status":200,"message":"Consignment has been created successfully.","consignment":{"consignment_id":1424107,"invoice":"OD-20260902-0001","tracking_code":"15BAEB8A","status":"in_review"}}`), nil
	})

	got, err := client.CreateConsignment(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, "http://courier.test/api/v1/create_order", captured.URL.String())
	assert.Equal(t, "api-key", captured.Header.Get("Api-Key"))
	assert.Equal(t, "secret-key", captured.Header.Get("Secret-Key"))
	assert.Equal(t, "OD-20260902-0001", payload["invoice"])
	assert.EqualValues(t, 1010, payload["cod_amount"])

	assert.Equal(t, "1424107", got.ConsignmentID)
	assert.Equal(t, "15BAEB8A", got.TrackingCode)
	assert.Equal(t, StatusInReview, got.Status)
}

func TestCreateConsignmentFailureClassification(t *testing.T) {
	cases := []struct {
		name   string
		rt     roundTripFunc
		reason pkgerrors.Reason
		code   pkgerrors.Code
	}{
		{
			name: "transport",
			rt: func(*http.Request) (*http.Response, error) {
				return nil, errors.New("i/o timeout")
			},
			reason: pkgerrors.ReasonUpstreamUnavailable,
			code:   pkgerrors.CodeDependency,
		},
		{
			name: "server error",
			rt: func(*http.Request) (*http.Response, error) {
				return response(http.StatusServiceUnavailable, "maintenance"), nil
			},
			reason: pkgerrors.ReasonUpstreamUnavailable,
			code:   pkgerrors.CodeDependency,
		},
		{
			name: "client error",
			rt: func(*http.Request) (*http.Response, error) {
				return response(http.StatusUnprocessableEntity, `{"status":422,"errors":{"recipient_phone":["invalid"]}}`), nil
			},
			reason: pkgerrors.ReasonRejectedByProvider,
			code:   pkgerrors.CodeProviderRejected,
		},
		{
			name: "body status",
			rt: func(*http.Request) (*http.Response, error) {
				return response(http.StatusOK, `{"status":400,"message":"Invoice already exists"}`), nil
			},
			reason: pkgerrors.ReasonRejectedByProvider,
			code:   pkgerrors.CodeProviderRejected,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, tc.rt)
			_, err := client.CreateConsignment(context.Background(), sampleRequest())
			require.Error(t, err)
			assert.True(t, pkgerrors.HasReason(err, tc.reason))
			assert.True(t, pkgerrors.IsCode(err, tc.code))
		})
	}
}

func TestCreateConsignmentValidatesInput(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})
	req := sampleRequest()
	req.Invoice = ""
	_, err := client.CreateConsignment(context.Background(), req)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCheckStatus(t *testing.T) {
	var path string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		path = req.URL.Path
		return response(http.StatusOK, `{"status":200,"delivery_status":"delivered"}`), nil
	})

	report := client.CheckStatus(context.Background(), "1424107")
	assert.Equal(t, "/api/v1/status_by_cid/1424107", path)
	assert.True(t, report.Known)
	assert.Equal(t, StatusDelivered, report.Status)
	assert.Equal(t, fixedNow, report.CheckedAt)
}

func TestCheckStatusNeverFails(t *testing.T) {
	cases := map[string]roundTripFunc{
		"transport": func(*http.Request) (*http.Response, error) { return nil, errors.New("reset") },
		"not found": func(*http.Request) (*http.Response, error) {
			return response(http.StatusNotFound, `{}`), nil
		},
		"garbage": func(*http.Request) (*http.Response, error) {
			return response(http.StatusOK, `<html>`), nil
		},
		"unknown status": func(*http.Request) (*http.Response, error) {
			return response(http.StatusOK, `{"status":200,"delivery_status":"unknown"}`), nil
		},
	}
	for name, rt := range cases {
		t.Run(name, func(t *testing.T) {
			report := newTestClient(t, rt).CheckStatus(context.Background(), "99")
			assert.False(t, report.Known)
			assert.Equal(t, StatusUnknown, report.Status)
		})
	}
}

func TestCheckBalance(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/api/v1/get_balance", req.URL.Path)
		return response(http.StatusOK, `{"status":200,"current_balance":2500.5}`), nil
	})
	report := client.CheckBalance(context.Background())
	assert.True(t, report.Known)
	assert.InDelta(t, 2500.5, report.Balance, 0.001)

	down := newTestClient(t, func(*http.Request) (*http.Response, error) { return nil, errors.New("down") })
	assert.False(t, down.CheckBalance(context.Background()).Known)
}

func TestPhaseOf(t *testing.T) {
	assert.Equal(t, PhaseInTransit, PhaseOf(StatusInReview))
	assert.Equal(t, PhaseDelivered, PhaseOf(StatusPartialDelivered))
	assert.Equal(t, PhaseCancelled, PhaseOf(StatusCancelledApprovalPending))
	assert.Equal(t, PhaseUnknown, PhaseOf("lost_in_space"))
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient("key", "")
	assert.Error(t, err)
}

func TestWithTimeoutLeavesCallerClientUntouched(t *testing.T) {
	shared := &http.Client{Timeout: 30 * time.Second}

	for name, opts := range map[string][]Option{
		"timeout first": {WithTimeout(3 * time.Second), WithHTTPClient(shared)},
		"client first":  {WithHTTPClient(shared), WithTimeout(3 * time.Second)},
	} {
		client, err := NewClient("api-key", "secret-key", opts...)
		require.NoError(t, err, name)
		assert.Equal(t, 3*time.Second, client.httpClient.Timeout, name)
		assert.NotSame(t, shared, client.httpClient, name)
	}
	assert.Equal(t, 30*time.Second, shared.Timeout)

	client, err := NewClient("api-key", "secret-key", WithHTTPClient(shared))
	require.NoError(t, err)
	assert.Same(t, shared, client.httpClient)

	client, err = NewClient("api-key", "secret-key")
	require.NoError(t, err)
	assert.Equal(t, defaultTimeout, client.httpClient.Timeout)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}
