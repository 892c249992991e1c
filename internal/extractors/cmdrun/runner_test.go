package cmdrun

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailable_MissingTool(t *testing.T) {
	err := Available("mmrag-definitely-not-a-real-tool")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolNotFound)
	assert.Contains(t, err.Error(), "mmrag-definitely-not-a-real-tool")
}

func TestAvailable_NoTools(t *testing.T) {
	assert.NoError(t, Available())
}

func TestExec_Run(t *testing.T) {
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not in PATH")
	}

	out, err := Exec{}.Run(context.Background(), "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))
}

func TestExec_RunFailure(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not in PATH")
	}

	_, err := Exec{}.Run(context.Background(), "sh", "-c", "echo broken >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestExec_RunCancelled(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not in PATH")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Exec{}.Run(ctx, "sleep", "5")
	assert.ErrorIs(t, err, context.Canceled)
}
