package api

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
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

const (
	// DefaultBaseURL is where the backend serves its REST API.
	DefaultBaseURL = "http://localhost:8080/api/v1"
	// DefaultTimeout bounds every round trip.
	DefaultTimeout = 10 * time.Second

	breakerMaxFailures      = 3
	breakerOpenTimeout      = 5 * time.Second
	// parallel refetches after an invalidation all get through a half-open breaker
	breakerHalfOpenRequests = 8
)

// Client talks to the task tracker backend. Every failure is logged, classified
// as an *Error and reported to the Notifier, except for canceled requests.
type Client struct {
	baseURL    string
	httpClient *http.Client
	notifier   Notifier
	breaker    atomic.Pointer[gobreaker.CircuitBreaker]
}

// NewClient creates a Client for the API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, notifier Notifier) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if notifier == nil {
		notifier = LogNotifier{}
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		notifier:   notifier,
	}
	c.breaker.Store(newBreaker())

	return c
}

// newBreaker trips only on transport failures. Any received response, 5xx included,
// counts as success so server errors keep their own classification.
func newBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "taskboard-api",
		MaxRequests: breakerHalfOpenRequests,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > breakerMaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info().Msgf("circuit breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})
}

// SetNotifier replaces the notifier, e.g. once the TUI status bar exists.
func (c *Client) SetNotifier(notifier Notifier) {
	c.notifier = notifier
}

// BaseURL returns the root of the API.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type response struct {
	status int
	body   []byte
}

// do sends one request through the circuit breaker and decodes the (optionally
// {data: ...} wrapped) response into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	return c.send(ctx, method, path, query, body, out, true)
}

func (c *Client) roundTrip(req *http.Request) (*response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &response{status: resp.StatusCode, body: data}, nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body, out any, guarded bool) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var payload []byte

	if body != nil {
		var err error

		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error encoding %s %s request: %w", method, path, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("error building %s %s request: %w", method, path, err)
	}

	requestID := uuid.NewString()

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	logger := log.With().Str("request_id", requestID).Str("method", method).Str("url", target).Logger()
	logger.Debug().Bytes("body", payload).Msg("sending request")

	var resp *response

	if guarded {
		var result interface{}

		result, err = c.breaker.Load().Execute(func() (interface{}, error) {
			return c.roundTrip(req)
		})
		resp, _ = result.(*response)
	} else {
		resp, err = c.roundTrip(req)
	}

	if ctx.Err() != nil {
		logger.Debug().Msg("request cancelled")

		return ErrCanceled
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		logger.Warn().Err(err).Msg("request rejected by circuit breaker")

		return c.fail(&Error{Kind: KindUnavailable, Message: err.Error(), Err: err})
	}

	if resp == nil {
		logger.Error().Err(err).Msg("network error")

		return c.fail(&Error{Kind: KindConnectivity, Message: err.Error(), Err: err})
	}

	if resp.status < 200 || resp.status > 299 {
		logger.Error().Int("status", resp.status).Bytes("body", resp.body).Msg("request failed")

		return c.fail(statusError(resp.status, resp.body))
	}

	logger.Debug().Int("status", resp.status).Msg("request succeeded")

	if errBody, ok := parseErrorBody(resp.body); ok {
		return c.fail(payloadError(resp.status, errBody))
	}

	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}

	if err := decodeEnvelope(resp.body, out); err != nil {
		return fmt.Errorf("error decoding %s %s response: %w", method, path, err)
	}

	return nil
}

func (c *Client) fail(err *Error) error {
	c.notifier.Error(err.Notification())

	return err
}

// decodeEnvelope accepts either a bare value or {"data": value}.
func decodeEnvelope(data []byte, out any) error {
	trimmed := bytes.TrimSpace(data)

	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err == nil {
			if inner, ok := envelope["data"]; ok {
				return json.Unmarshal(inner, out)
			}
		}
	}

	return json.Unmarshal(trimmed, out)
}

// CheckConnection fetches a minimal task list to decide whether the backend is reachable.
// It bypasses the circuit breaker so a retry always reaches the server, and closes
// the breaker again once the server answers.
func (c *Client) CheckConnection(ctx context.Context) bool {
	query := url.Values{}
	query.Set("limit", "1")

	if err := c.send(ctx, http.MethodGet, "/tasks", query, nil, nil, false); err != nil {
		log.Warn().Err(err).Msg("connection check failed")

		return false
	}

	if c.breaker.Load().State() != gobreaker.StateClosed {
		c.breaker.Store(newBreaker())
	}

	return true
}
