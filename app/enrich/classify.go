package enrich

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var rateLimitMarkers = []string{"resource_exhausted", "resource exhausted", "quota", "rate limit", "too many requests", "429"}

// classifyError converts a model client error into an Outcome.
func classifyError(err error) Outcome {
	if st, ok := status.FromError(err); ok && st.Code() == codes.ResourceExhausted {
		return Outcome{Status: StatusRateLimited, RetryAfter: retryInfoDelay(st), Err: err}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return Outcome{Status: StatusRateLimited, RetryAfter: parseRetryAfter(apiErr.Header.Get("Retry-After"), time.Now()), Err: err}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return Outcome{Status: StatusRateLimited, Err: err}
		}
	}

	return Outcome{Status: StatusFailed, Err: err}
}

func retryInfoDelay(st *status.Status) time.Duration {
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.RetryInfo); ok && info.GetRetryDelay() != nil {
			return info.GetRetryDelay().AsDuration()
		}
	}
	return 0
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
