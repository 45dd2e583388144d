package procmodel

import (
	"testing"

	"github.com/ysingh7/lava/internal/chanio"
	"github.com/ysingh7/lava/internal/executable"
	"github.com/ysingh7/lava/pkg/token"
)

func chanioPair(t *testing.T) (*chanio.SendPort, *chanio.RecvPort) {
	t.Helper()
	return chanio.NewChannel("test", 4)
}

func TestReferenceAcksPhasesAndStop(t *testing.T) {
	toWorker, fromService := chanioPair(t)
	toService, fromWorker := chanioPair(t)

	vars := NewVarStore([]executable.VarDescriptor{{ID: 1, Shape: executable.Shape{2}}})
	w := NewReference(0, vars, func(phase token.Word, vs *VarStore) token.Word {
		v := vs.Get(1)
		v.Data[0]++
		return 0
	}, nil)

	ports := &Ports{FromService: fromService, ToService: toService}
	done := make(chan struct{})
	go func() { w.Run(ports); close(done) }()

	send := toWorker
	recv := fromWorker
	send.Start()
	recv.Start()

	_ = send.Send(token.PhaseSPK)
	resp, err := recv.Recv()
	if err != nil || resp != token.PMStatusDone {
		t.Fatalf("spk resp = %v, %v", resp, err)
	}

	_ = send.Send(token.CmdStop)
	resp, err = recv.Recv()
	if err != nil || resp != token.PMStatusTerminated {
		t.Fatalf("stop resp = %v, %v", resp, err)
	}
	<-done

	if vars.Get(1).Data[0] != 1 {
		t.Fatalf("var not updated by phase callback: %v", vars.Get(1).Data)
	}
}

// TestReferenceOnPhaseCanRequestEscalation proves onPhase's return value
// reaches the service-facing channel verbatim instead of always acking
// PMStatusDone, the path a learning-enabled process model uses to ask for
// PRE_LRN_MGMT/POST_LRN_MGMT/LRN or to request PAUSE/STOP itself.
func TestReferenceOnPhaseCanRequestEscalation(t *testing.T) {
	toWorker, fromService := chanioPair(t)
	toService, fromWorker := chanioPair(t)

	vars := NewVarStore([]executable.VarDescriptor{{ID: 1, Shape: executable.Shape{1}}})
	w := NewReference(0, vars, func(phase token.Word, vs *VarStore) token.Word {
		if phase == token.PhaseSPK {
			return token.PMReqPause
		}
		return 0
	}, nil)

	ports := &Ports{FromService: fromService, ToService: toService}
	done := make(chan struct{})
	go func() { w.Run(ports); close(done) }()

	send, recv := toWorker, fromWorker
	send.Start()
	recv.Start()

	_ = send.Send(token.PhaseSPK)
	resp, err := recv.Recv()
	if err != nil || resp != token.PMReqPause {
		t.Fatalf("spk resp = %v, %v, want PMReqPause", resp, err)
	}

	_ = send.Send(token.CmdStop)
	resp, err = recv.Recv()
	if err != nil || resp != token.PMStatusTerminated {
		t.Fatalf("stop resp = %v, %v", resp, err)
	}
	<-done
}

func TestReferenceGetSetRoundTrip(t *testing.T) {
	toWorker, fromService := chanioPair(t)
	toService, fromWorker := chanioPair(t)

	vars := NewVarStore([]executable.VarDescriptor{{ID: 7, Shape: executable.Shape{3}}})
	w := NewReference(0, vars, nil, nil)
	ports := &Ports{FromService: fromService, ToService: toService}
	go w.Run(ports)

	send, recv := toWorker, fromWorker
	send.Start()
	recv.Start()

	// Drive to HOST first (GET/SET only serviced there).
	_ = send.Send(token.PhaseHost)

	_ = send.Send(token.CmdSetData)
	_ = send.Send(token.Word(7))
	_ = send.Send(token.Word(3))
	_ = send.Send(token.Float64ToWord(1))
	_ = send.Send(token.Float64ToWord(2))
	_ = send.Send(token.Float64ToWord(3))

	_ = send.Send(token.CmdGetData)
	_ = send.Send(token.Word(7))
	n, err := recv.Recv()
	if err != nil || n != 3 {
		t.Fatalf("count = %v, %v", n, err)
	}
	for i, want := range []float64{1, 2, 3} {
		w, err := recv.Recv()
		if err != nil || token.WordToFloat64(w) != want {
			t.Fatalf("item %d = %v, %v", i, w, err)
		}
	}

	_ = send.Send(token.CmdStop)
	_, _ = recv.Recv()
}
