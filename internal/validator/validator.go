// Package validator is the optional AI validation step. It can veto or
// re-score a built candidate, never originate one.
package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"signal-scanner/internal/strategy"
)

// Recommendation is the validator's verdict on a candidate.
type Recommendation string

const (
	RecommendProceed Recommendation = "proceed"
	RecommendCaution Recommendation = "caution"
	RecommendSkip    Recommendation = "skip"
)

// Assessment is the validator's response for one candidate.
type Assessment struct {
	Recommendation       Recommendation `json:"recommendation"`
	ConfidenceAdjustment int            `json:"confidence_adjustment"`
	Concerns             []string       `json:"concerns,omitempty"`
	Strengths            []string       `json:"strengths,omitempty"`
}

// Validator assesses built signal candidates.
type Validator interface {
	Validate(ctx context.Context, sig strategy.Signal) (Assessment, error)
}

// HTTPConfig configures the remote validation service client.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPValidator calls a remote validation service. Callers should treat
// a failed call as proceed-with-no-adjustment; a flaky validator must
// never block signal flow.
type HTTPValidator struct {
	cfg    HTTPConfig
	client *http.Client
	log    zerolog.Logger
}

// NewHTTPValidator creates the client.
func NewHTTPValidator(cfg HTTPConfig, logger zerolog.Logger) *HTTPValidator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &HTTPValidator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    logger.With().Str("component", "Validator").Logger(),
	}
}

// Validate posts the candidate and decodes the assessment.
func (v *HTTPValidator) Validate(ctx context.Context, sig strategy.Signal) (Assessment, error) {
	body, err := json.Marshal(sig)
	if err != nil {
		return Assessment{}, fmt.Errorf("marshal candidate: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.BaseURL+"/validate", bytes.NewReader(body))
	if err != nil {
		return Assessment{}, fmt.Errorf("build validate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.cfg.APIKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return Assessment{}, fmt.Errorf("validate %s: %w", sig.Symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Assessment{}, fmt.Errorf("validate %s: status %d", sig.Symbol, resp.StatusCode)
	}

	var out Assessment
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Assessment{}, fmt.Errorf("decode assessment: %w", err)
	}
	if out.Recommendation == "" {
		out.Recommendation = RecommendProceed
	}
	return out, nil
}

var _ Validator = (*HTTPValidator)(nil)
