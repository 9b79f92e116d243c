package server

import (
	"context"
	"errors"
	"fmt"
)

var errProviderUnavailable = errors.New("provider unavailable")

// unavailable tags a raw provider read failure. Client cancellation is left as is.
func unavailable(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", errProviderUnavailable, err)
}
