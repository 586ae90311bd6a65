package cmd

import (
	"bytes"
	"testing"

	"github.com/quantmind-br/tkblender/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCompletionCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCompletionCmd(&config.Config{}, testLogger())

	assert.NotNil(t, cmd)
	assert.Contains(t, cmd.Use, "completion")
	assert.ElementsMatch(t, []string{"bash", "zsh", "fish", "powershell"}, cmd.ValidArgs)
}

func TestCompletionCmd_Shells(t *testing.T) {
	tests := []struct {
		shell string
		want  string
	}{
		{"bash", "tkblender"},
		{"zsh", "tkblender"},
		{"fish", "tkblender"},
		{"powershell", "tkblender"},
	}

	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			t.Parallel()
			root := NewRootCmd(&config.Config{}, testLogger(), "test")
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetArgs([]string{"completion", tt.shell})

			require.NoError(t, root.Execute())
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestCompletionCmd_InvalidShell(t *testing.T) {
	t.Parallel()
	root := NewRootCmd(&config.Config{}, testLogger(), "test")
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"completion", "tcsh"})

	assert.Error(t, root.Execute())
}
