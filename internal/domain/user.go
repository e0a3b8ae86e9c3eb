package domain

import (
	"errors"
	"time"
)

// ErrUserNotFound is returned when a user is not registered.
var ErrUserNotFound = errors.New("user not found")

// User is a chat user who has interacted with the bot.
type User struct {
	ID         int64
	TelegramID int64
	Username   string
	FirstName  string
	CreatedAt  time.Time
}
