package models

import "time"

// Post is a demo board entry. AttachmentKey points at an object in S3
// storage and is empty until an attachment upload has been requested.
type Post struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	AttachmentKey string    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
}
