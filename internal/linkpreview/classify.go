package linkpreview

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

const (
	MessageLinkContent     = "The URL may be invalid or currently unreachable."
	MessageInvalidResponse = "Invalid response from preview provider"
	MessageTimeout         = "Request timed out: the preview provider did not respond in time"
	MessageNetwork         = "Network error: unable to reach the preview provider"
	MessageBatchFailed     = "Failed to load link previews"
)

// ClassifyStatus maps a non-success HTTP status to a Failure for url.
// body is the response text, used only for statuses without a fixed message.
func ClassifyStatus(url string, status int, body string) *Failure {
	f := &Failure{URL: url}

	switch status {
	case http.StatusBadRequest:
		f.Type = ErrorTypeLinkContentError
		f.Message = "Invalid URL: " + MessageLinkContent
	case http.StatusUnauthorized:
		f.Type = ErrorTypeUnauthorized
		f.Message = "Unauthorized: Please check your API key"
	case http.StatusForbidden:
		f.Type = ErrorTypeForbidden
		f.Message = "Forbidden: API key may be invalid or expired"
	case http.StatusTooManyRequests:
		f.Type = ErrorTypeRateLimited
		f.Message = "Rate Limited: Too many requests. Please wait a moment and try again later."
	default:
		if status >= 500 {
			f.Type = ErrorTypeServerError
			f.Message = "Server error: Peekalink service is temporarily unavailable"
			break
		}
		f.Type = ErrorTypeUnknown
		text := strings.TrimSpace(body)
		if text == "" {
			text = "Request failed"
		}
		f.Message = fmt.Sprintf("HTTP %d: %s", status, text)
	}

	return f
}

// ClassifyTransportError maps an error from the HTTP round trip itself.
func ClassifyTransportError(url string, err error) *Failure {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Failure{URL: url, Type: ErrorTypeTimeout, Message: MessageTimeout}
	}
	return &Failure{URL: url, Type: ErrorTypeNetworkError, Message: MessageNetwork}
}
