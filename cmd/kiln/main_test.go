package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
	}()

	tests := []struct {
		name         string
		pipeline     string
		args         []string
		expectedExit int
	}{
		{
			name: "successful pipeline",
			pipeline: `
jobs:
  hello:
    steps:
      - run: echo hello
`,
			args:         []string{"kiln", "run", "hello"},
			expectedExit: 0,
		},
		{
			name: "failing step",
			pipeline: `
jobs:
  broken:
    steps:
      - run: exit 1
`,
			args:         []string{"kiln", "run", "broken"},
			expectedExit: 1,
		},
		{
			name:         "missing pipeline file",
			args:         []string{"kiln", "run"},
			expectedExit: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			if tt.pipeline != "" {
				path := filepath.Join(tmpDir, "kiln.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tt.pipeline), 0o600))
			}
			t.Chdir(tmpDir)

			os.Args = tt.args
			assert.Equal(t, tt.expectedExit, run())
		})
	}
}
