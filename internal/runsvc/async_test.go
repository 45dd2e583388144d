package runsvc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ysingh7/lava/internal/chanio"
	"github.com/ysingh7/lava/pkg/token"
)

type asyncHarness struct {
	ctrlSend *chanio.SendPort
	ctrlRecv *chanio.RecvPort
	toWorker []*chanio.RecvPort
	fromWkr  []*chanio.SendPort
}

func newAsyncHarness(t *testing.T, workers int) (*asyncHarness, *Async) {
	t.Helper()
	ctrlToSvc, svcFromCtrl := chanio.NewChannel("ctrl->svc", 4)
	svcToCtrl, ctrlFromSvc := chanio.NewChannel("svc->ctrl", 4)

	h := &asyncHarness{ctrlSend: ctrlToSvc, ctrlRecv: ctrlFromSvc}
	base := Base{ID: 0, FromController: svcFromCtrl, ToController: svcToCtrl}

	for i := 0; i < workers; i++ {
		svcToW, wFromSvc := chanio.NewChannel("svc->w", 4)
		wToSvc, svcFromW := chanio.NewChannel("w->svc", 4)
		base.ToWorkers = append(base.ToWorkers, svcToW)
		base.FromWorkers = append(base.FromWorkers, svcFromW)
		h.toWorker = append(h.toWorker, wFromSvc)
		h.fromWkr = append(h.fromWkr, wToSvc)
	}

	d := NewAsync(base)
	return h, d
}

// TestAsyncCollectsFastWorkerFirst drives a run where worker 1 replies
// immediately and worker 0 replies only after a delay; the driver must still
// react to worker 1's response (and keep listening for the controller)
// instead of blocking on worker 0 in channel order.
func TestAsyncCollectsFastWorkerFirst(t *testing.T) {
	h, d := newAsyncHarness(t, 2)
	d.arm()

	go d.run()

	require.NoError(t, h.ctrlSend.Send(token.CmdRun))

	// Worker 0 receives RUN but stays silent for now.
	_, err := h.toWorker[0].Recv()
	require.NoError(t, err)

	// Worker 1 receives RUN and answers immediately.
	_, err = h.toWorker[1].Recv()
	require.NoError(t, err)
	require.NoError(t, h.fromWkr[1].Send(token.PMStatusDone))

	// Give the driver a moment to process worker 1's response; the cycle
	// cannot complete (RespDone upward) until worker 0 also answers.
	time.Sleep(20 * time.Millisecond)
	require.False(t, h.ctrlRecv.Probe(), "driver completed the cycle before every worker answered")

	require.NoError(t, h.fromWkr[0].Send(token.PMStatusDone))

	resp, err := h.ctrlRecv.Recv()
	require.NoError(t, err)
	require.Equal(t, token.RespDone, resp)

	require.NoError(t, h.ctrlSend.Send(token.CmdStop))
	_, err = h.toWorker[0].Recv()
	require.NoError(t, err)
	require.NoError(t, h.fromWkr[0].Send(token.PMStatusTerminated))
	_, err = h.toWorker[1].Recv()
	require.NoError(t, err)
	require.NoError(t, h.fromWkr[1].Send(token.PMStatusTerminated))

	resp, err = h.ctrlRecv.Recv()
	require.NoError(t, err)
	require.Equal(t, token.RespTerminated, resp)
}

// TestAsyncWorkerRequestedStopEscalates proves a worker answering RUN with
// PMReqStop (rather than PMStatusDone) folds the whole cycle into
// RespReqStop upward, the async counterpart of the phased driver's
// reqStop/reqPause translation.
func TestAsyncWorkerRequestedStopEscalates(t *testing.T) {
	h, d := newAsyncHarness(t, 2)
	d.arm()
	go d.run()

	require.NoError(t, h.ctrlSend.Send(token.CmdRun))

	_, err := h.toWorker[0].Recv()
	require.NoError(t, err)
	_, err = h.toWorker[1].Recv()
	require.NoError(t, err)

	require.NoError(t, h.fromWkr[0].Send(token.PMStatusDone))
	require.NoError(t, h.fromWkr[1].Send(token.PMReqStop))

	resp, err := h.ctrlRecv.Recv()
	require.NoError(t, err)
	require.Equal(t, token.RespReqStop, resp)

	require.NoError(t, h.ctrlSend.Send(token.CmdStop))
	_, err = h.toWorker[0].Recv()
	require.NoError(t, err)
	require.NoError(t, h.fromWkr[0].Send(token.PMStatusTerminated))
	_, err = h.toWorker[1].Recv()
	require.NoError(t, err)
	require.NoError(t, h.fromWkr[1].Send(token.PMStatusTerminated))

	resp, err = h.ctrlRecv.Recv()
	require.NoError(t, err)
	require.Equal(t, token.RespTerminated, resp)
}

func TestAsyncPauseAcksImmediatelyWithoutRunning(t *testing.T) {
	h, d := newAsyncHarness(t, 1)
	d.arm()
	go d.run()

	require.NoError(t, h.ctrlSend.Send(token.CmdPause))
	resp, err := h.ctrlRecv.Recv()
	require.NoError(t, err)
	require.Equal(t, token.RespPaused, resp)

	require.NoError(t, h.ctrlSend.Send(token.CmdStop))
	_, err = h.toWorker[0].Recv()
	require.NoError(t, err)
	require.NoError(t, h.fromWkr[0].Send(token.PMStatusTerminated))

	resp, err = h.ctrlRecv.Recv()
	require.NoError(t, err)
	require.Equal(t, token.RespTerminated, resp)
}
