package ai

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"

	"github.com/kapu/trendformats-go/internal/constants"
	"github.com/kapu/trendformats-go/internal/domain"
	"github.com/kapu/trendformats-go/internal/metrics"
	"github.com/kapu/trendformats-go/internal/util"
)

var statusCodePattern = regexp.MustCompile(`\b(5\d{2})\b`)

// ModelManager routes the vision and text tiers to their providers. Each
// provider has its own circuit breaker so an outage in one tier does not
// block the other.
type ModelManager struct {
	vision        Provider
	text          Provider
	visionBreaker *util.CircuitBreaker
	textBreaker   *util.CircuitBreaker
	logger        *zap.Logger
}

type ModelManagerConfig struct {
	Vision  Provider
	Text    Provider
	Metrics *metrics.Metrics
}

func NewModelManager(cfg ModelManagerConfig, logger *zap.Logger) *ModelManager {
	if logger == nil {
		logger = zap.NewNop()
	}

	onChange := func(name string, _, to util.CircuitState) {
		cfg.Metrics.SetBreakerOpen(name, to == util.CircuitStateOpen)
	}

	mm := &ModelManager{
		vision: cfg.Vision,
		text:   cfg.Text,
		logger: logger,
	}
	mm.visionBreaker = mm.newBreaker("llm_vision", cfg.Vision, onChange)
	mm.textBreaker = mm.newBreaker("llm_text", cfg.Text, onChange)

	logger.Info("Model manager initialized",
		zap.Bool("vision", cfg.Vision != nil),
		zap.Bool("text", cfg.Text != nil),
	)
	return mm
}

func (mm *ModelManager) newBreaker(name string, p Provider, onChange util.StateChangeFunc) *util.CircuitBreaker {
	opts := []util.BreakerOption{util.WithStateChange(onChange)}
	if p != nil {
		opts = append(opts, util.WithHealthCheck(func() bool {
			ctx, cancel := context.WithTimeout(context.Background(), constants.CircuitBreakerConfig.HealthCheckTimeout)
			defer cancel()
			return p.Ping(ctx)
		}, constants.CircuitBreakerConfig.HealthCheckInterval))
	}
	return util.NewCircuitBreaker(
		name,
		constants.CircuitBreakerConfig.FailureThreshold,
		constants.CircuitBreakerConfig.ResetTimeout,
		mm.logger,
		opts...,
	)
}

// VisionAvailable reports whether a vision call would be attempted.
func (mm *ModelManager) VisionAvailable() bool {
	return mm.vision != nil && mm.vision.SupportsImages() && mm.visionBreaker.CanExecute()
}

func (mm *ModelManager) TextAvailable() bool {
	return mm.text != nil && mm.textBreaker.CanExecute()
}

// GenerateVision sends a multi-image prompt to the vision provider.
func (mm *ModelManager) GenerateVision(ctx context.Context, req GenerateRequest) (string, *GenerateMetadata, error) {
	if len(req.Images) == 0 {
		return "", nil, domain.ErrNoVisionInput
	}
	if mm.vision == nil || !mm.vision.SupportsImages() {
		return "", nil, domain.ErrModelUnavailable
	}
	return mm.invoke(ctx, mm.vision, mm.visionBreaker, req)
}

// GenerateText sends a text-only prompt to the text provider. Images are dropped.
func (mm *ModelManager) GenerateText(ctx context.Context, req GenerateRequest) (string, *GenerateMetadata, error) {
	if mm.text == nil {
		return "", nil, domain.ErrModelUnavailable
	}
	req.Images = nil
	return mm.invoke(ctx, mm.text, mm.textBreaker, req)
}

func (mm *ModelManager) invoke(ctx context.Context, p Provider, cb *util.CircuitBreaker, req GenerateRequest) (string, *GenerateMetadata, error) {
	if !cb.CanExecute() {
		status := cb.GetStatus()
		mm.logger.Warn("LLM provider unavailable (circuit open)",
			zap.String("provider", p.Name()),
			zap.Int("failure_count", status.FailureCount),
		)
		return "", nil, fmt.Errorf("%s: %w", p.Name(), domain.ErrModelUnavailable)
	}

	result, err := p.Generate(ctx, req)
	if err != nil {
		mm.recordFailure(cb, err)
		return "", nil, fmt.Errorf("%s generate: %w", p.Name(), err)
	}

	cb.RecordSuccess()
	if strings.TrimSpace(result.Text) == "" {
		return "", nil, fmt.Errorf("%s API returned empty response", p.Name())
	}

	return result.Text, &GenerateMetadata{Provider: p.Name(), Model: result.Model}, nil
}

// recordFailure only counts outages (timeouts, 5xx, rate limits); a bad
// request is the caller's problem and leaves the breaker alone.
func (mm *ModelManager) recordFailure(cb *util.CircuitBreaker, err error) {
	if !isServiceFailure(err) {
		return
	}
	timeout := constants.CircuitBreakerConfig.ResetTimeout
	if isRateLimitError(err) {
		timeout = constants.CircuitBreakerConfig.RateLimitTimeout
	}
	cb.RecordFailure(timeout)
}

func (mm *ModelManager) CircuitStatus() []util.CircuitBreakerStatus {
	return []util.CircuitBreakerStatus{mm.visionBreaker.GetStatus(), mm.textBreaker.GetStatus()}
}

func (mm *ModelManager) ResetCircuits() {
	mm.visionBreaker.Reset()
	mm.textBreaker.Reset()
}

func isServiceFailure(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *openai.Error
	if stderrors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == 429
	}

	msg := err.Error()
	if strings.Contains(msg, "timeout") || isRateLimitError(err) {
		return true
	}
	return statusCodePattern.MatchString(msg)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.Error
	if stderrors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}

	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "Rate limit")
}
