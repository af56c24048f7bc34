package models

// ThreadPost is one post of the account's own timeline, indexed for the
// duration of a single flow run so replies can be threaded without rescanning
// the timeline for every trade.
type ThreadPost struct {
	ID     uint   `gorm:"primaryKey"`
	PostID string `gorm:"uniqueIndex;not null"`
	Text   string `gorm:"not null"`
	// Seq orders posts newest-first: lower is newer.
	Seq int64 `gorm:"index;not null"`
}
