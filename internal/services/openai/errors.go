package openai

import (
	"errors"
	"fmt"

	gogpt "github.com/sashabaranov/go-openai"

	"scribe/internal/retry"
)

// mapError turns SDK HTTP failures into retry.StatusError so the shared
// backoff can classify them. Other errors pass through wrapped.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *gogpt.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return fmt.Errorf("%s: %w", op, &retry.StatusError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message})
	}
	var reqErr *gogpt.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return fmt.Errorf("%s: %w", op, &retry.StatusError{StatusCode: reqErr.HTTPStatusCode, Body: string(reqErr.Body)})
	}
	return fmt.Errorf("%s: %w", op, err)
}
