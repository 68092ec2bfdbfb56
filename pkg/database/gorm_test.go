package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logger.LogLevel
	}{
		{"silent", logger.Silent},
		{" ERROR ", logger.Error},
		{"info", logger.Info},
		{"warn", logger.Warn},
		{"", logger.Warn},
		{"verbose", logger.Warn},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.in), tt.in)
	}
}

func TestNewGormDB_RejectsEmptyDSN(t *testing.T) {
	_, err := NewGormDB("  ", DefaultOptions())
	assert.Error(t, err)
}
