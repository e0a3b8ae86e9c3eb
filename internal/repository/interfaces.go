package repository

import (
	"context"

	"github.com/iconidentify/mediagrab/internal/domain"
)

// UserRepository tracks the chat users who have talked to the bot.
type UserRepository interface {
	// Register stores user unless one with the same TelegramID exists.
	// It reports whether a new row was created.
	Register(ctx context.Context, user *domain.User) (bool, error)

	// Get retrieves a user by Telegram ID.
	Get(ctx context.Context, telegramID int64) (*domain.User, error)

	// Count returns the number of registered users.
	Count(ctx context.Context) (int, error)

	// Close releases the underlying storage.
	Close() error
}
