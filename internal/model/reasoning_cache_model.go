package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type ReasoningCacheEntry struct {
	Id           uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ContentHash  string                      `gorm:"type:char(64);not null;uniqueIndex:idx_reasoning_cache_hash_user"`
	UserId       string                      `gorm:"type:text;not null;default:'';uniqueIndex:idx_reasoning_cache_hash_user"`
	Query        string                      `gorm:"type:text;not null"`
	Result       datatypes.JSON              `gorm:"type:jsonb;not null"`
	Tags         datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Embedding    *pgvector.Vector            `gorm:"type:vector"` // dimensionality follows the configured provider
	HitCount     int                         `gorm:"default:0"`
	TtlSeconds   int64                       `gorm:"not null"`
	LastAccessed time.Time
	ExpiresAt    time.Time `gorm:"not null;index"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (ReasoningCacheEntry) TableName() string {
	return "reasoning_cache_entries"
}
