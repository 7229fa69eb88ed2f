package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/youthperformance/xlens/internal/domain/model"
	"github.com/youthperformance/xlens/pkg/logger"
	"github.com/youthperformance/xlens/pkg/metrics"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPOption applies a configuration option to the HTTPAnalyzer.
type HTTPOption func(*HTTPAnalyzer)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(a *HTTPAnalyzer) {
		if client != nil {
			a.client = client
		}
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(a *HTTPAnalyzer) {
		if timeout > 0 {
			a.timeout = timeout
		}
	}
}

// HTTPAnalyzer calls an external vision service over JSON HTTP.
type HTTPAnalyzer struct {
	url     string
	client  *http.Client
	timeout time.Duration
	logger  logger.Logger
}

// NewHTTPAnalyzer constructs an analyzer against the given endpoint.
func NewHTTPAnalyzer(url string, opts ...HTTPOption) *HTTPAnalyzer {
	a := &HTTPAnalyzer{
		url:     url,
		client:  &http.Client{},
		timeout: defaultHTTPTimeout,
		logger:  logger.Get().Named("oracle"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze posts the request and decodes the analysis. A response that arrives
// but does not parse degrades to a flagged, zero-confidence analysis rather
// than an error: the recording reached the service, we just could not read
// the verdict, and that distinction matters downstream.
func (a *HTTPAnalyzer) Analyze(ctx context.Context, req Request) (*model.OracleAnalysis, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding analysis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building analysis request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := a.client.Do(httpReq)
	metrics.RecordOracleLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordOracleCall("error")
		return nil, fmt.Errorf("calling analysis service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordOracleCall("error")
		return nil, fmt.Errorf("%w: status %d", ErrAnalysisFailed, resp.StatusCode)
	}

	var analysis model.OracleAnalysis
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		metrics.RecordOracleCall("unparseable")
		a.logger.Warn(ctx, "unparseable analysis response",
			logger.String("jumpID", req.JumpID),
			logger.Error(err),
		)
		return &model.OracleAnalysis{
			Flags: []string{"analysis_unparseable"},
		}, nil
	}

	metrics.RecordOracleCall("ok")
	return &analysis, nil
}
