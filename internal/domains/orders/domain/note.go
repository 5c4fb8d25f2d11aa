package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderNote is a free-form operator annotation, either internal or customer-visible.
type OrderNote struct {
	ID        string
	OrderID   string
	Author    string
	Body      string
	Internal  bool
	CreatedAt time.Time
}

// NewNote validates and constructs a note for orderID.
func NewNote(orderID, author, body string, internal bool, now time.Time) (OrderNote, error) {
	author = strings.TrimSpace(author)
	if author == "" {
		return OrderNote{}, ErrEmptyActor
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return OrderNote{}, ErrEmptyNote
	}
	return OrderNote{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Author:    author,
		Body:      body,
		Internal:  internal,
		CreatedAt: now,
	}, nil
}
