package models

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// User holds the per-member economy state. Balance never goes negative; the
// repository guards every debit.
type User struct {
	ID        snowflake.ID `bson:"_id"`
	Username  string       `bson:"username"`
	Balance   int64        `bson:"balance"`
	FactionID string       `bson:"faction_id,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}
