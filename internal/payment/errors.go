package payment

import (
	"errors"
	"fmt"
)

var (
	ErrGatewayAuth    = errors.New("payment gateway authentication failed")
	ErrGatewayRequest = errors.New("payment gateway request failed")
)

// RequestError is a non-2xx answer from the gateway. It keeps the upstream
// status and body so pass-through endpoints can echo them.
type RequestError struct {
	Operation  string
	StatusCode int
	Body       []byte
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("vasp %s error: status %d: %s", e.Operation, e.StatusCode, string(e.Body))
}

func (e *RequestError) Unwrap() error {
	return ErrGatewayRequest
}
