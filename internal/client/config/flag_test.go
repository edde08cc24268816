package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	// Test cases
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd", "-a", "127.0.0.1:9090", "-t", "tok", "-w", "/tmp/sp", "-r", "5"}, expectPanic: false,
			expected: &Config{ServerEndpointAddr: "127.0.0.1:9090", AccessToken: "tok", SpoolDir: "/tmp/sp", RequestTimeout: 5 * time.Second}},
		{name: "command words are ignored", args: []string{"cmd", "-a", "h:1", "download", "3", "7", "out.bin"}, expectPanic: false,
			expected: &Config{ServerEndpointAddr: "h:1"}},
		{name: "incorrect timeout", args: []string{"cmd", "-r", "abc"}, expectPanic: true, expected: &Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
