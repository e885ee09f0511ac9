package scanner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCancelTokenPauseResume(t *testing.T) {
	token := NewCancelToken()

	assert.True(t, token.Pause())
	assert.True(t, token.Paused())
	// Pausing twice is rejected.
	assert.False(t, token.Pause())

	assert.True(t, token.Resume())
	assert.False(t, token.Paused())
	assert.False(t, token.Resume())
}

func TestCheckpointBlocksWhilePaused(t *testing.T) {
	token := NewCancelToken()
	token.Pause()

	released := make(chan bool, 1)
	go func() {
		released <- token.Checkpoint()
	}()

	select {
	case <-released:
		t.Fatal("checkpoint returned while paused")
	case <-time.After(50 * time.Millisecond):
	}

	token.Resume()

	select {
	case cancelled := <-released:
		assert.False(t, cancelled)
	case <-time.After(time.Second):
		t.Fatal("checkpoint did not release after resume")
	}
}

func TestCancelWakesPausedCheckpoint(t *testing.T) {
	token := NewCancelToken()
	token.Pause()

	released := make(chan bool, 1)
	go func() {
		released <- token.Checkpoint()
	}()

	assert.True(t, token.Cancel("test stop"))

	select {
	case cancelled := <-released:
		assert.True(t, cancelled)
	case <-time.After(time.Second):
		t.Fatal("checkpoint did not release after cancel")
	}
	assert.Equal(t, "test stop", token.Reason())
}

func TestCancelIsIdempotentlyRejected(t *testing.T) {
	token := NewCancelToken()

	assert.True(t, token.Cancel("first"))
	assert.False(t, token.Cancel("second"))
	assert.Equal(t, "first", token.Reason())
	assert.True(t, token.Cancelled())

	// Cancelled tokens cannot be paused or resumed.
	assert.False(t, token.Pause())
	assert.False(t, token.Resume())
	assert.True(t, token.Checkpoint())
}
