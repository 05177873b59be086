package shell

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSExecutorRunCapturesOutput(t *testing.T) {
	out, err := NewOSExecutor().Run(context.Background(), "echo", "hi")
	require.NoError(t, err)
	assert.Contains(t, out, "hi")
}

func TestOSExecutorRunReportsFailure(t *testing.T) {
	_, err := NewOSExecutor().Run(context.Background(), "false")
	assert.Error(t, err)
}

func TestAccessibleFalseForMissingFile(t *testing.T) {
	assert.False(t, Accessible(filepath.Join(t.TempDir(), "nope.sh")))
}
