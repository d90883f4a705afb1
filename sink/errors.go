package sink

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrClosed is returned when adding to a closed Batcher.
var ErrClosed = errors.New("batcher closed")

// ResponseError is a non-success response from an update endpoint.
type ResponseError struct {
	Status int
	Body   string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("update endpoint returned %d %s: %s", e.Status, http.StatusText(e.Status), e.Body)
}

// retryableStatus reports statuses worth another attempt.
func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
