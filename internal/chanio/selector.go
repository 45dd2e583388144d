package chanio

import (
	"errors"
	"reflect"

	"github.com/ysingh7/lava/pkg/token"
)

// ErrNoCases is returned when Select is called with an empty case list.
var ErrNoCases = errors.New("chanio: selector has no cases")

// SelectCase pairs a RecvPort with the tag Select should return when that
// port becomes ready.
type SelectCase struct {
	Port *RecvPort
	Tag  string
}

// Selector multiplexes several RecvPorts, blocking until at least one has a
// word ready. It rotates its starting point across calls so that a busy
// port can never starve its neighbors, the same round-robin shim the
// runtime services use to fan a single goroutine across many channels.
type Selector struct {
	offset int
}

// NewSelector returns a ready-to-use Selector.
func NewSelector() *Selector { return &Selector{} }

// Select blocks until one of cases is ready, then returns its tag. Every
// port is first probed without blocking, in rotated order for fairness;
// only when none is ready does Select fall back to a blocking wait.
func (s *Selector) Select(cases []SelectCase) (string, error) {
	n := len(cases)
	if n == 0 {
		return "", ErrNoCases
	}

	for i := 0; i < n; i++ {
		idx := (s.offset + i) % n
		if cases[idx].Port.Probe() {
			s.offset = (idx + 1) % n
			return cases[idx].Tag, nil
		}
	}

	rotated := make([]int, n)
	selCases := make([]reflect.SelectCase, n)
	for i := 0; i < n; i++ {
		idx := (s.offset + i) % n
		rotated[i] = idx
		selCases[i] = reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(cases[idx].Port.l.words),
		}
	}

	chosen, recvVal, ok := reflect.Select(selCases)
	realIdx := rotated[chosen]
	if !ok {
		return "", ErrClosed
	}

	w := recvVal.Interface().(token.Word)
	cases[realIdx].Port.storeBuffered(w)
	s.offset = (realIdx + 1) % n
	return cases[realIdx].Tag, nil
}
