package models

import "time"

// QuestCooldown blocks new quest offers for a faction after a rejection or
// an unaccepted offer. Expired records are removed lazily on read.
type QuestCooldown struct {
	FactionID  string    `bson:"_id"`
	ExpiresAt  time.Time `bson:"expires_at"`
	Rejections int       `bson:"rejections"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func (c *QuestCooldown) ExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
