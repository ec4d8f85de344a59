package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IRecord is implemented by every document the record store creates.
type IRecord interface {
	Stamp(now time.Time)
	RecordID() primitive.ObjectID
}

// Base carries the store-assigned identity and creation time.
type Base struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Stamp assigns a fresh ID and the creation time, overwriting anything the
// caller supplied. BSON dates hold milliseconds, so the time is truncated to
// keep the returned record equal to the stored one.
func (m *Base) Stamp(now time.Time) {
	m.ID = primitive.NewObjectID()
	m.CreatedAt = now.UTC().Truncate(time.Millisecond)
}

func (m *Base) RecordID() primitive.ObjectID {
	return m.ID
}
