package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shipment-sync/internal/apperrors"
	"shipment-sync/internal/util"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrMissingToken is returned before any request is sent when the platform token is empty
var ErrMissingToken = errors.New("api token not configured")

const maxErrorBody = 500

// remote is the shared JSON transport of both platform clients
type remote struct {
	platform string
	baseURL  string
	token    string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
}

type breakerSettings struct {
	failures uint32
	timeout  time.Duration
}

func newRemote(platform, baseURL, token string, timeout time.Duration, bs breakerSettings, logger *zap.Logger) *remote {
	if bs.failures == 0 {
		bs.failures = 5
	}
	r := &remote{
		platform: platform,
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    platform,
		Timeout: bs.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bs.failures
		},
		// only transport errors and 5xx count as failures
		IsSuccessful: func(err error) bool {
			var re *apperrors.RemoteError
			if errors.As(err, &re) {
				return re.StatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("platform", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return r
}

// do sends body as JSON and decodes a JSON answer into out when both are non-nil
func (r *remote) do(ctx context.Context, op, method, path string, body, out any) error {
	if r.token == "" {
		return fmt.Errorf("%s %s: %w", r.platform, op, ErrMissingToken)
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("%s %s: encode request: %w", r.platform, op, err)
		}
	}

	start := time.Now()
	raw, err := r.breaker.Execute(func() (interface{}, error) {
		return r.send(ctx, op, method, path, payload)
	})

	status := "ok"
	if err != nil {
		status = "error"
	}
	util.RemoteCallLatency.WithLabelValues(r.platform, op, status).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return apperrors.Transient(r.platform+" "+op, fmt.Errorf("%w: %v", apperrors.ErrCircuitOpen, err))
		}
		return err
	}

	data, _ := raw.([]byte)
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", r.platform, op, err)
	}
	return nil
}

func (r *remote) send(ctx context.Context, op, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%s %s: build request: %w", r.platform, op, err)
	}
	req.Header.Set("Authorization", "Bearer "+r.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, apperrors.Transient(r.platform+" "+op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Transient(r.platform+" "+op, err)
	}

	r.logger.Debug("Remote response",
		zap.String("platform", r.platform),
		zap.String("operation", op),
		zap.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text := string(data)
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return nil, &apperrors.RemoteError{
			Platform:   r.platform,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Body:       text,
		}
	}
	return data, nil
}

// idString renders a JSON id that may arrive as a string or a number
func idString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
