package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBandsAreDisjoint(t *testing.T) {
	cases := []Word{CmdRun, CmdPause, CmdStop, CmdGetData, CmdSetData}
	for _, c := range cases {
		assert.True(t, IsCommand(c), "%v: expected command band", c)
		assert.False(t, IsResponse(c) || IsPMResponse(c) || IsPhase(c), "%v: command leaked into another band", c)
	}

	phases := []Word{PhaseSPK, PhasePreMgmt, PhaseLrn, PhasePostMgmt, PhaseHost}
	for _, p := range phases {
		assert.True(t, IsPhase(p), "%v: expected phase band", p)
		assert.False(t, IsCommand(p) || IsResponse(p) || IsPMResponse(p), "%v: phase leaked into another band", p)
	}

	resps := []Word{RespDone, RespPaused, RespTerminated, RespError, RespReqPause, RespReqStop}
	for _, r := range resps {
		assert.True(t, IsResponse(r), "%v: expected response band", r)
		assert.False(t, IsCommand(r) || IsPhase(r) || IsPMResponse(r), "%v: response leaked into another band", r)
	}

	pmResps := []Word{PMStatusDone, PMStatusTerminated, PMStatusError, PMStatusPaused,
		PMReqPreLrnMgmt, PMReqLearning, PMReqPostLrnMgmt, PMReqPause, PMReqStop}
	for _, r := range pmResps {
		assert.True(t, IsPMResponse(r), "%v: expected pm-response band", r)
		assert.False(t, IsCommand(r) || IsPhase(r) || IsResponse(r), "%v: pm-response leaked into another band", r)
	}
}

func TestFloatRoundTrip(t *testing.T) {
	for _, f := range []float64{0, 1, -1, 3.14159, -2.71828} {
		assert.Equal(t, f, WordToFloat64(Float64ToWord(f)), "round trip of %v", f)
	}
}
