package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{"data dir only", Config{DataDir: "/srv/minidb"}, nil},
		{"explicit busy timeout", Config{DataDir: "/srv/minidb", BusyTimeout: time.Second}, nil},
		{"missing data dir", Config{BusyTimeout: time.Second}, ErrDataDirEmpty},
		{"negative busy timeout", Config{DataDir: "/srv/minidb", BusyTimeout: -time.Second}, ErrInvalidBusyTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConfigEffectiveBusyTimeout(t *testing.T) {
	assert.Equal(t, DefaultBusyTimeout, Config{DataDir: "x"}.EffectiveBusyTimeout())
	assert.Equal(t, 250*time.Millisecond, Config{DataDir: "x", BusyTimeout: 250 * time.Millisecond}.EffectiveBusyTimeout())
}
