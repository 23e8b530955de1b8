package catalog

import "time"

// Frame is one catalog entry: a published PNG identified by its filename,
// which encodes the platform and acquisition time.
type Frame struct {
	ID         int64     `json:"-"`
	Platform   string    `json:"platform"`
	CapturedAt time.Time `json:"capturedAt"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"-"`
}
