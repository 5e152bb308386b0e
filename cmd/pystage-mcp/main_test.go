package main

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr error
	}{
		{
			name: "defaults",
			args: nil,
			want: options{},
		},
		{
			name: "long flags",
			args: []string{"--config", "conf/.pystage.toml", "--verbose"},
			want: options{configPath: "conf/.pystage.toml", verbose: true},
		},
		{
			name: "shorthands",
			args: []string{"-c", "pyproject.toml", "-v"},
			want: options{configPath: "pyproject.toml", verbose: true},
		},
		{
			name:    "help",
			args:    []string{"--help"},
			wantErr: pflag.ErrHelp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseOptions(tt.args)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unknown flag", func(t *testing.T) {
		_, err := parseOptions([]string{"--port", "80"})
		assert.Error(t, err)
	})
}
