package repositories

import (
	"database/sql"

	"github.com/cliptube/backend/internal/models"
)

// ownerProfileRow buffers the nullable columns of a left-joined user profile.
// A missing relation scans as NULLs and resolves to a nil profile.
type ownerProfileRow struct {
	id       sql.NullString
	username sql.NullString
	fullName sql.NullString
	avatar   sql.NullString
}

func (r *ownerProfileRow) dests() []any {
	return []any{&r.id, &r.username, &r.fullName, &r.avatar}
}

func (r *ownerProfileRow) value() *models.OwnerProfile {
	if !r.id.Valid {
		return nil
	}
	return &models.OwnerProfile{
		ID:       r.id.String,
		Username: r.username.String,
		FullName: r.fullName.String,
		Avatar:   r.avatar.String,
	}
}
