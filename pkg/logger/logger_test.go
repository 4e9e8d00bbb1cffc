package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		encoding string
	}{
		{name: "json info", level: "info", encoding: "json"},
		{name: "console debug", level: "debug", encoding: "console"},
		{name: "unknown level falls back", level: "loud", encoding: "json"},
		{name: "unknown encoding falls back", level: "warn", encoding: "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.level, tt.encoding)
			require.NoError(t, err)
			require.NotNil(t, log)
			log.Debug("debug message", StringField("k", "v"))
		})
	}
}

func TestFields(t *testing.T) {
	assert.Equal(t, "id", StringField("id", "N0001").Key)
	assert.Equal(t, int64(3), IntField("attempt", 3).Integer)
	assert.Equal(t, "error", ErrorField(errors.New("boom")).Key)
}

func TestNopDoesNotPanic(t *testing.T) {
	log := NewNop()
	log.With(StringField("run", "1")).Info("ignored")
	assert.NoError(t, log.Sync())
}
