// Package chanio implements the bounded FIFO channel abstraction that every
// endpoint pair (controller<->service, service<->worker) is built from, plus
// the fair Selector used to multiplex several inbound channels.
package chanio

import (
	"errors"
	"sync"

	"github.com/ysingh7/lava/pkg/token"
)

// ErrClosed is returned once the underlying link has been torn down by Join.
var ErrClosed = errors.New("chanio: channel closed")

// ErrWouldBlock is returned by Peek when no word is currently available.
var ErrWouldBlock = errors.New("chanio: would block")

// link is the shared state behind a SendPort/RecvPort pair.
type link struct {
	name  string
	words chan token.Word
}

// SendPort is the write half of a channel. A SendPort must be started
// before Send is called and joined exactly once when its owner is done
// with it.
type SendPort struct {
	l       *link
	mu      sync.Mutex
	started bool
	joined  bool
}

// RecvPort is the read half of a channel. It supports a one-word lookahead
// so Probe and Peek can inspect the next pending word without consuming it.
type RecvPort struct {
	l         *link
	mu        sync.Mutex
	started   bool
	joined    bool
	lookahead *token.Word
}

// NewChannel allocates a bounded channel of the given capacity and returns
// its two endpoints. capacity must be >= 0; 0 yields a synchronous (rendezvous)
// channel.
func NewChannel(name string, capacity int) (*SendPort, *RecvPort) {
	l := &link{name: name, words: make(chan token.Word, capacity)}
	return &SendPort{l: l}, &RecvPort{l: l}
}

// Name returns the channel's name, used by the endpoint-naming convention
// described in SPEC_FULL.md section 6.
func (s *SendPort) Name() string { return s.l.name }

// Name returns the channel's name.
func (r *RecvPort) Name() string { return r.l.name }

// Start arms the send side. Sending before Start is a programmer error
// that Send reports rather than panics on, matching the defensive style
// of the rest of the runtime's lifecycle guards.
func (s *SendPort) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
}

// Send blocks until the word is accepted by the channel's buffer (or a
// receiver, if capacity is 0).
func (s *SendPort) Send(w token.Word) error {
	s.mu.Lock()
	started, joined := s.started, s.joined
	s.mu.Unlock()
	if !started {
		return errors.New("chanio: send on unstarted port " + s.l.name)
	}
	if joined {
		return ErrClosed
	}
	s.l.words <- w
	return nil
}

// Join closes the underlying link. Only one side needs to call Join; the
// other side observes ErrClosed on its next blocking operation.
func (s *SendPort) Join() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.joined {
		return
	}
	s.joined = true
	close(s.l.words)
}

// Start arms the receive side.
func (r *RecvPort) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = true
}

// Recv blocks until a word is available and returns it, consuming any
// previously peeked/probed lookahead value first.
func (r *RecvPort) Recv() (token.Word, error) {
	r.mu.Lock()
	if r.lookahead != nil {
		w := *r.lookahead
		r.lookahead = nil
		r.mu.Unlock()
		return w, nil
	}
	r.mu.Unlock()

	w, ok := <-r.l.words
	if !ok {
		return 0, ErrClosed
	}
	return w, nil
}

// Probe reports, without blocking, whether a word is currently available.
func (r *RecvPort) Probe() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lookahead != nil {
		return true
	}
	select {
	case w, ok := <-r.l.words:
		if !ok {
			return false
		}
		r.lookahead = &w
		return true
	default:
		return false
	}
}

// Peek returns the next word without consuming it. It never blocks: if
// nothing is ready it returns ErrWouldBlock.
func (r *RecvPort) Peek() (token.Word, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lookahead == nil {
		select {
		case w, ok := <-r.l.words:
			if !ok {
				return 0, ErrClosed
			}
			r.lookahead = &w
		default:
			return 0, ErrWouldBlock
		}
	}
	return *r.lookahead, nil
}

// hasBuffered reports whether a lookahead word is already sitting in this
// port, without touching the underlying channel. Used by Selector's fast
// path.
func (r *RecvPort) hasBuffered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookahead != nil
}

// storeBuffered places w into the lookahead slot, used by Selector after it
// wins a reflect.Select race on this port's underlying channel.
func (r *RecvPort) storeBuffered(w token.Word) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookahead = &w
}

// Join marks the receive side as joined. It does not close the underlying
// link; only SendPort.Join does that.
func (r *RecvPort) Join() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.joined {
		return
	}
	r.joined = true
}
