package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	arkmodel "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
)

var (
	// ErrQuotaExceeded marks a rate-limited or quota-exhausted model call. It is
	// recovered locally by the heuristic fallback and never reaches the client.
	ErrQuotaExceeded = errors.New("language model quota exceeded")
	// ErrAnalysisFailed wraps any other failure of the remote style analysis.
	ErrAnalysisFailed = errors.New("failed to analyze voice style")
	// ErrGenerationFailed wraps any other failure of the remote reply generation.
	ErrGenerationFailed = errors.New("failed to generate response")
)

var quotaCodePrefixes = []string{"ratelimitexceeded", "quotaexceeded", "insufficientquota"}

// ClassifyError tags err with ErrQuotaExceeded when the Ark SDK reports a rate
// limit or exhausted quota. Other errors are returned unchanged.
func ClassifyError(err error) error {
	if err == nil || errors.Is(err, ErrQuotaExceeded) {
		return err
	}
	if isQuotaError(err) {
		return fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
	}
	return err
}

func isQuotaError(err error) bool {
	var apiErr *arkmodel.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return true
		}
		return hasQuotaCode(apiErr.Code)
	}

	var reqErr *arkmodel.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}

	return false
}

func hasQuotaCode(code string) bool {
	normalized := strings.ToLower(strings.TrimSpace(code))
	for _, prefix := range quotaCodePrefixes {
		if strings.HasPrefix(normalized, prefix) {
			return true
		}
	}
	return false
}

// failureKind labels a classified error for metrics.
func failureKind(err error) string {
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		return "quota"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "other"
	}
}
