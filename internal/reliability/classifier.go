package reliability

import (
	"context"
	"errors"
	"net"
	"strconv"
)

// IsRetryableHTTPStatus classifies retryable HTTP status codes.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// Classification labels a failed model call for metrics and client events.
// Retryable tells the client that sending the same input again may succeed;
// the service itself never retries.
type Classification struct {
	Code      string
	Retryable bool
}

// Classify maps an error and the upstream HTTP status (0 if unknown) to a
// stable code.
func Classify(err error, httpStatus int) Classification {
	switch {
	case err == nil:
		return Classification{Code: "ok"}
	case errors.Is(err, context.Canceled):
		return Classification{Code: "canceled"}
	case errors.Is(err, context.DeadlineExceeded):
		return Classification{Code: "timeout", Retryable: true}
	}

	switch {
	case httpStatus == 429:
		return Classification{Code: "rate_limited", Retryable: true}
	case httpStatus == 401 || httpStatus == 403:
		return Classification{Code: "unauthorized"}
	case httpStatus >= 500:
		return Classification{Code: "upstream_" + strconv.Itoa(httpStatus), Retryable: IsRetryableHTTPStatus(httpStatus)}
	case httpStatus >= 400:
		return Classification{Code: "rejected_" + strconv.Itoa(httpStatus)}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Classification{Code: "timeout", Retryable: true}
		}
		return Classification{Code: "network", Retryable: true}
	}
	return Classification{Code: "unknown"}
}
