package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// NotificationData is a typed key/value bag attached to a notification
// (appointment IDs, redirect URLs and similar), stored as JSONB.
type NotificationData map[string]string

// Value implements driver.Valuer.
func (d NotificationData) Value() (driver.Value, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner.
func (d *NotificationData) Scan(src interface{}) error {
	return scanJSON(src, d, "notification data")
}

// Notification is an in-app message delivered to one user.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Message   string           `db:"message" json:"message"`
	Read      bool             `db:"read" json:"read"`
	Data      NotificationData `db:"data" json:"data,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// NotificationFilter narrows notification list queries.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Page       int
	PageSize   int
}
