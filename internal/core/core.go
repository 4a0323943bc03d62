// Package core provides shared timeouts and error types.
package core

import (
	"context"
	"fmt"
	"time"
)

// DefaultQueryTimeout is the default timeout for database queries.
const DefaultQueryTimeout = 30 * time.Second

// DefaultConnectTimeout is the default timeout for connection attempts.
const DefaultConnectTimeout = 10 * time.Second

// ContextWithTimeout creates a context with the default query timeout.
func ContextWithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultQueryTimeout)
}

// ContextWithConnectTimeout creates a context with the default connect timeout.
func ContextWithConnectTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultConnectTimeout)
}

// =============================================================================
// Custom Error Types
// =============================================================================

// ProfileNotFoundError indicates a connection profile was not found.
type ProfileNotFoundError struct {
	ProfileID string
}

func (e *ProfileNotFoundError) Error() string {
	return fmt.Sprintf("connection profile not found: %s", e.ProfileID)
}

// InvalidURIError indicates a connection string failed the scheme check.
type InvalidURIError struct {
	URI string
}

func (e *InvalidURIError) Error() string {
	return fmt.Sprintf("invalid MongoDB URI %q: must start with mongodb:// or mongodb+srv://", e.URI)
}
