// Package compliance gates sensitive operations on an external policy
// service. Token creation must be approved before a transaction record
// is ever persisted.
package compliance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cubecore/chainops/internal/domain/errs"
	"github.com/cubecore/chainops/internal/domain/model"
	"github.com/cubecore/chainops/internal/retry"
)

// Request describes the operation under review.
type Request struct {
	UserID  string          `json:"userId"`
	Action  string          `json:"action"`
	Network model.NetworkID `json:"network"`
	Symbol  string          `json:"symbol,omitempty"`
	Amount  string          `json:"amount,omitempty"`
}

// Validator approves or rejects an operation. A rejection surfaces as a
// kinded validation error to the submitter.
type Validator interface {
	Approve(ctx context.Context, req Request) error
}

// HTTPValidator calls the policy service's /v1/screen endpoint.
type HTTPValidator struct {
	baseURL string
	client  *http.Client
}

func NewHTTPValidator(baseURL string) *HTTPValidator {
	return &HTTPValidator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type screenResponse struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
}

func (v *HTTPValidator) Approve(ctx context.Context, req Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode compliance request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/v1/screen", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create compliance request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(httpReq)
	if err != nil {
		// Policy service unreachable blocks the operation but is worth
		// retrying at the caller.
		return retry.Transient(fmt.Errorf("compliance service: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read compliance response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return retry.Transient(fmt.Errorf("compliance service status %d: %s", resp.StatusCode, raw))
	}

	var screened screenResponse
	if err := json.Unmarshal(raw, &screened); err != nil {
		return fmt.Errorf("decode compliance response: %w", err)
	}
	if !screened.Approved {
		return errs.Newf(errs.KindValidation, "compliance rejected %s: %s", req.Action, screened.Reason)
	}
	return nil
}

// AllowAll approves everything. Used in tests and development setups
// without a policy service.
type AllowAll struct{}

func (AllowAll) Approve(ctx context.Context, req Request) error {
	return nil
}
