package procsup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommandCapturesOutput(t *testing.T) {
	res, err := RunCommand(context.Background(), "echo", []string{"hello"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Status)
	assert.Contains(t, res.Output, "hello")
}

func TestRunCommandNonZeroExit(t *testing.T) {
	res, err := RunCommand(context.Background(), "sh", []string{"-c", "exit 3"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Status)
}

func TestRunCommandWithInput(t *testing.T) {
	res, err := RunCommandWithInput(context.Background(), "cat", nil, "piped data", nil)
	require.NoError(t, err)
	assert.Equal(t, "piped data", res.Output)
}

func TestStartProcessAsyncReaping(t *testing.T) {
	super := NewSupervisor()
	h, err := StartProcessAsync(context.Background(), super, "sh", []string{"-c", "sleep 0.01"}, nil, ForkCallbacks{}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, super.ActiveCount())

	err = h.Wait()
	require.NoError(t, err)
	assert.True(t, h.Done())
	assert.Equal(t, 0, h.ExitStatus())
	assert.Equal(t, 0, super.ActiveCount())
}

func TestManyChildrenReapedPromptly(t *testing.T) {
	super := NewSupervisor()
	const n = 50
	handles := make([]*Handle, 0, n)
	for i := 0; i < n; i++ {
		h, err := StartProcessAsync(context.Background(), super, "sh", []string{"-c", "sleep 0.01"}, nil, ForkCallbacks{}, false)
		require.NoError(t, err)
		handles = append(handles, h)
	}
	assert.Equal(t, n, super.ActiveCount())

	for _, h := range handles {
		go h.Wait()
	}

	deadline := time.Now().Add(2 * time.Second)
	for super.ActiveCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 0, super.ActiveCount())
}

func TestKill(t *testing.T) {
	super := NewSupervisor()
	h, err := StartProcessAsync(context.Background(), super, "sleep", []string{"5"}, nil, ForkCallbacks{}, false)
	require.NoError(t, err)

	require.NoError(t, h.Kill())
	err = h.Wait()
	assert.Error(t, err) // killed, non-zero/signal exit
	assert.True(t, h.Done())
}
