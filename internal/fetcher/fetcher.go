// Package fetcher retrieves raw mail items for a user from the provider.
// Implementations return typed errors: an AuthError aborts the whole scan
// run, a TransientError defers it to the next scheduled run.
package fetcher

import (
	"context"

	"github.com/aviralsaxena16/Campus-Companion/internal/model"
)

type Fetcher interface {
	// Fetch returns recent mail items for the user, newest first. An empty
	// inbox is an empty slice, not an error.
	Fetch(ctx context.Context, user *model.User) ([]model.MailItem, error)
}
