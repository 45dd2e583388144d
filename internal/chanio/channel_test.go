package chanio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ysingh7/lava/pkg/token"
)

func TestSendRecvRoundTrip(t *testing.T) {
	send, recv := NewChannel("test", 2)
	send.Start()
	recv.Start()

	require.NoError(t, send.Send(token.CmdRun))
	w, err := recv.Recv()
	require.NoError(t, err)
	require.Equal(t, token.CmdRun, w)
}

func TestProbeAndPeekDoNotConsume(t *testing.T) {
	send, recv := NewChannel("test", 1)
	send.Start()
	recv.Start()

	require.False(t, recv.Probe(), "probe true before any send")

	require.NoError(t, send.Send(token.RespDone))

	require.True(t, recv.Probe(), "probe false after send")
	peeked, err := recv.Peek()
	require.NoError(t, err)
	require.Equal(t, token.RespDone, peeked)

	// Peek again: must return the same word, still unconsumed.
	peeked2, err := recv.Peek()
	require.NoError(t, err)
	require.Equal(t, token.RespDone, peeked2)

	got, err := recv.Recv()
	require.NoError(t, err)
	require.Equal(t, token.RespDone, got)
}

func TestSelectorRotatesFairly(t *testing.T) {
	sendA, recvA := NewChannel("a", 1)
	sendB, recvB := NewChannel("b", 1)
	sendA.Start()
	sendB.Start()
	recvA.Start()
	recvB.Start()

	require.NoError(t, sendA.Send(token.RespDone))
	require.NoError(t, sendB.Send(token.RespDone))

	sel := NewSelector()
	cases := []SelectCase{{Port: recvA, Tag: "a"}, {Port: recvB, Tag: "b"}}

	first, err := sel.Select(cases)
	require.NoError(t, err)
	require.Equal(t, "a", first)

	second, err := sel.Select(cases)
	require.NoError(t, err)
	require.Equal(t, "b", second, "fair rotation")
}

func TestSelectorBlocksUntilReady(t *testing.T) {
	send, recv := NewChannel("test", 0)
	send.Start()
	recv.Start()

	sel := NewSelector()
	done := make(chan string, 1)
	go func() {
		tag, err := sel.Select([]SelectCase{{Port: recv, Tag: "only"}})
		if err != nil {
			t.Errorf("select: %v", err)
		}
		done <- tag
	}()

	select {
	case <-done:
		t.Fatal("selector returned before any word was sent")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, send.Send(token.RespDone))

	select {
	case tag := <-done:
		require.Equal(t, "only", tag)
	case <-time.After(time.Second):
		t.Fatal("selector never unblocked")
	}
}
