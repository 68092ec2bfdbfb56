package specification

import (
	"time"

	"gorm.io/gorm"
)

type ByContentHash struct {
	Hash string
}

func (s ByContentHash) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("content_hash = ?", s.Hash)
}

// OwnedByUser filters by the caller-supplied user id of memory records.
type OwnedByUser struct {
	UserID string
}

func (s OwnedByUser) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

type BySessionID struct {
	SessionID string
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

// NotExpired keeps cache rows whose expiry is still ahead of Now.
type NotExpired struct {
	Now time.Time
}

func (s NotExpired) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("expires_at >= ?", s.Now)
}
