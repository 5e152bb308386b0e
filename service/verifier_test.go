package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/pystage/internal/interp"
	"github.com/ludo-technologies/pystage/internal/parser"
)

func parseModule(t *testing.T, src string) *parser.Node {
	t.Helper()
	root, err := parser.ParseModule(context.Background(), []byte(src))
	require.NoError(t, err)
	return root
}

func TestVerifier_Verify(t *testing.T) {
	tests := []struct {
		name      string
		original  string
		converted string
		verified  bool
		wantErr   string
	}{
		{
			name:      "same bindings",
			original:  "x = 1\nif x:\n    y = 2\n",
			converted: "x = 1\ny = 2\n",
			verified:  true,
		},
		{
			name:      "different binding",
			original:  "x = 1\n",
			converted: "x = 2\n",
			wantErr:   "x: 1 != 2",
		},
		{
			name:      "different output",
			original:  "print(1)\n",
			converted: "print(2)\n",
			wantErr:   "<output>",
		},
		{
			name:      "undefined sentinel reads as unbound",
			original:  "if False:\n    y = 1\n",
			converted: "y = rt.Undefined('y')\n",
			verified:  true,
		},
		{
			name:      "same exception",
			original:  "x = [][1]\n",
			converted: "x = [1][3]\n",
			verified:  true,
		},
		{
			name:      "exception lost",
			original:  "x = 1 // 0\n",
			converted: "x = 1\n",
			wantErr:   "original raises ZeroDivisionError",
		},
		{
			name:      "converted module fails",
			original:  "x = 1\n",
			converted: "x = missing\n",
			wantErr:   "converted module fails",
		},
		{
			name:      "unsupported original is skipped",
			original:  "import os\n",
			converted: "import os\n",
		},
		{
			name:      "endless original is skipped",
			original:  "while True:\n    pass\n",
			converted: "x = 1\n",
		},
	}

	v := NewVerifier()
	v.SetMaxSteps(500)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := v.Verify(context.Background(), parseModule(t, tt.original), parseModule(t, tt.converted), "rt")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.verified, outcome.Verified)
			if !tt.verified {
				assert.NotEmpty(t, outcome.Reason)
			}
		})
	}
}

func TestVerifier_DefaultBudget(t *testing.T) {
	assert.Equal(t, interp.DefaultMaxSteps, NewVerifier().maxSteps)
}
