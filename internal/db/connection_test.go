package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"WARN", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"error", gormlogger.Error},
		{"", gormlogger.Error},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, parseLogLevel(test.input), "level %q", test.input)
	}
}

func TestPingWithoutConnection(t *testing.T) {
	assert.Error(t, Ping(nil))
	assert.NoError(t, Close(nil))
}
