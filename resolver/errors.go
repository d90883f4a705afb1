package resolver

import (
	"fmt"
	"net/http"
)

// ResponseError carries a non-success response from the resolver service.
type ResponseError struct {
	Status int
	Body   string
	URL    string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("resolver returned %d %s for %s: %s", e.Status, http.StatusText(e.Status), e.URL, e.Body)
}

// retryableStatus reports statuses worth another attempt.
func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
