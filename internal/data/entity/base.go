package entity

import (
	"time"

	"github.com/google/uuid"
)

// Base carries the store-assigned identity and audit timestamps. Records are
// never physically deleted, so there is no deleted_at.
type Base struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
