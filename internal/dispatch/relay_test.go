package dispatch

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/mapper"
)

func TestRelayEmpty(t *testing.T) {
	r := NewRelay()
	_, ok := r.Take()
	assert.False(t, ok)
}

func TestRelayLatestWins(t *testing.T) {
	r := NewRelay()

	r.Submit([]mapper.Command{{R: 1}})
	r.Submit([]mapper.Command{{R: 2}})
	r.Submit([]mapper.Command{{R: 3}})

	cmds, ok := r.Take()
	require.True(t, ok)
	require.Len(t, cmds, 1)
	assert.Equal(t, 3, cmds[0].R)

	// The cell is drained after a take.
	_, ok = r.Take()
	assert.False(t, ok)
}

func TestRelayCopiesInput(t *testing.T) {
	r := NewRelay()
	src := []mapper.Command{{R: 10, G: 20, B: 30, Brightness: 40}}
	r.Submit(src)
	src[0].R = 99

	cmds, ok := r.Take()
	require.True(t, ok)
	want := []mapper.Command{{R: 10, G: 20, B: 30, Brightness: 40}}
	if diff := cmp.Diff(want, cmds); diff != "" {
		t.Errorf("taken commands mismatch (-want +got):\n%s", diff)
	}
}

func TestRelayNotify(t *testing.T) {
	r := NewRelay()

	select {
	case <-r.wait():
		t.Fatal("wait fired before any submit")
	default:
	}

	r.Submit([]mapper.Command{{R: 1}})
	select {
	case <-r.wait():
	default:
		t.Fatal("wait did not fire after submit")
	}
}

func TestRelaySubmitNeverBlocks(t *testing.T) {
	r := NewRelay()
	// The notify channel has capacity one; repeated submits without a
	// consumer must not block.
	for i := 0; i < 100; i++ {
		r.Submit([]mapper.Command{{R: i}})
	}
	cmds, ok := r.Take()
	require.True(t, ok)
	assert.Equal(t, 99, cmds[0].R)
}
