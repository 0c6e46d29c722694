package discovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvertiser_StartStop(t *testing.T) {
	adv, err := NewAdvertiser(Config{
		InstanceName: "TestRemote",
		Port:         18000,
		Meta: Metadata{
			DisplayName: "Test Remote",
			LanHost:     "test-host.local",
		},
	})
	require.NoError(t, err)

	if err := adv.Start(); err != nil {
		t.Skipf("no multicast-capable interface: %v", err)
	}

	// Let the responder goroutines spin up before tearing down.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, adv.Stop())
}

func TestAdvertiser_TXT(t *testing.T) {
	adv, err := NewAdvertiser(Config{
		InstanceName: "Remote",
		Port:         8000,
		Meta: Metadata{
			LanHost:   "pi.local",
			TVAddress: "192.168.1.50",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"role=remote",
		"apiPort=8000",
		"lanHost=pi.local",
		"tv=192.168.1.50",
	}, adv.TXT())
}

func TestAdvertiser_ConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "Valid",
			cfg:     Config{InstanceName: "Valid", Port: 8080},
			wantErr: false,
		},
		{
			name:    "Missing Port",
			cfg:     Config{InstanceName: "NoPort", Port: 0},
			wantErr: true,
		},
		{
			name:    "Port Too Large",
			cfg:     Config{InstanceName: "Big", Port: 70000},
			wantErr: true,
		},
		{
			name:    "Missing Name",
			cfg:     Config{InstanceName: "", Port: 8080},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAdvertiser(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
