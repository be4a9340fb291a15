package gateway

import (
	"context"
	"errors"

	"storefront/internal/logger"
)

// Candidates is an ordered list of backend paths that may serve the same
// logical operation.
type Candidates []string

// Fallback sends req to each candidate path in order and returns the first
// successful response. The caller cannot tell a late success from a first
// try. Nothing is remembered between calls; every call starts at the top.
//
// It stops early on authentication rejection (the session is already
// gone) and when ctx is done. If every candidate fails the result is a
// *FallbackError naming each path.
func (c *Client) Fallback(ctx context.Context, op string, candidates Candidates, req Request) (*Response, error) {
	if len(candidates) == 0 {
		return nil, &FallbackError{Op: op}
	}

	attempts := make([]Attempt, 0, len(candidates))
	for _, path := range candidates {
		req.Path = path
		resp, err := c.Do(ctx, op, req)
		if err == nil {
			if len(attempts) > 0 {
				logger.Info("fallback candidate succeeded", map[string]any{
					"op":     op,
					"path":   path,
					"failed": len(attempts),
				})
			}
			return resp, nil
		}

		if errors.Is(err, ErrUnauthorized) {
			return nil, err
		}

		a := Attempt{Path: path, Err: err}
		var ge *Error
		if errors.As(err, &ge) {
			a.Status = ge.Status
		}
		attempts = append(attempts, a)

		if ctx.Err() != nil {
			break
		}
	}

	return nil, &FallbackError{Op: op, Attempts: attempts}
}
