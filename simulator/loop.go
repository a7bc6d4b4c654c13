// Package simulator provides a discrete-event scheduler for running a
// fixed group of cooperating goroutines over a shared virtual clock.
//
// Every participating goroutine is started with Loop.Go() and interacts
// with the loop through its own Proc. Virtual time only advances while
// every live Proc is blocked in Recv, so computations performed between
// receives take zero virtual time unless they are charged explicitly
// with Sleep.
package simulator

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/unixpickle/essentials"
)

// A Mailbox is a uni-directional queue of messages delivered through a
// Loop. It is only safe to use a Mailbox with the Loop that created it.
type Mailbox struct {
	loop    *Loop
	pending []any
}

// A Delivery is a message received from some Mailbox.
type Delivery struct {
	Message any
	Box     *Mailbox
}

// A Timer is a single message send scheduled in the virtual future.
type Timer struct {
	at  float64
	tie float64
	del *Delivery
}

// Time returns the virtual time at which the timer fires.
func (t *Timer) Time() float64 {
	return t.at
}

// timerHeap orders timers by deadline. Equal deadlines are ordered by a
// random tiebreaker assigned at scheduling time, so callers cannot rely
// on an accidental firing order.
type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].tie < h[j].tie
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) { *h = append(*h, x.(*Timer)) }

func (h *timerHeap) Pop() any {
	old := *h
	t := old[len(old)-1]
	*h = old[:len(old)-1]
	return t
}

// A Proc is one goroutine's handle on a Loop. Procs must not be shared
// between goroutines.
type Proc struct {
	loop *Loop

	// Set while the goroutine is blocked in Recv.
	waiting []*Mailbox
	waitCh  chan<- *Delivery
}

// Recv blocks until a message arrives on any of the given mailboxes.
func (p *Proc) Recv(boxes ...*Mailbox) *Delivery {
	ch := make(chan *Delivery, 1)
	p.loop.withWake(func() {
		if p.waiting != nil {
			panic("simulator: Proc is shared between goroutines")
		}
		for _, box := range boxes {
			if box.loop != p.loop {
				panic("simulator: Mailbox belongs to a different Loop")
			}
			if len(box.pending) > 0 {
				msg := box.pending[0]
				essentials.OrderedDelete(&box.pending, 0)
				ch <- &Delivery{Message: msg, Box: box}
				return
			}
		}
		p.waiting = boxes
		p.waitCh = ch
	})
	return <-ch
}

// Schedule arranges for msg to arrive on box after delay virtual
// seconds.
func (p *Proc) Schedule(box *Mailbox, msg any, delay float64) *Timer {
	if box.loop != p.loop {
		panic("simulator: Mailbox belongs to a different Loop")
	}
	var t *Timer
	p.loop.withWake(func() {
		t = &Timer{
			at:  p.loop.now + delay,
			tie: rand.Float64(),
			del: &Delivery{Message: msg, Box: box},
		}
		if math.IsInf(t.at, 0) || math.IsNaN(t.at) {
			panic(fmt.Sprintf("simulator: invalid deadline: %f", t.at))
		}
		heap.Push(&p.loop.timers, t)
	})
	return t
}

// Sleep blocks until delay virtual seconds have elapsed.
func (p *Proc) Sleep(delay float64) {
	box := p.loop.Mailbox()
	p.Schedule(box, nil, delay)
	p.Recv(box)
}

// Now returns the current virtual time.
func (p *Proc) Now() float64 {
	return p.loop.Now()
}

// A Loop is the global scheduler for a simulated system.
type Loop struct {
	mu     sync.Mutex
	timers timerHeap
	procs  []*Proc
	now    float64

	running bool
	wake    chan struct{}
}

// NewLoop creates a Loop whose clock starts at 0.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Mailbox creates a new Mailbox bound to the loop.
func (l *Loop) Mailbox() *Mailbox {
	return &Mailbox{loop: l}
}

// Go starts f in its own goroutine with a fresh Proc.
func (l *Loop) Go(f func(p *Proc)) {
	p := &Proc{loop: l}
	l.mu.Lock()
	l.procs = append(l.procs, p)
	l.mu.Unlock()
	go func() {
		f(p)
		l.withWake(func() {
			for i, q := range l.procs {
				if q == p {
					essentials.UnorderedDelete(&l.procs, i)
					return
				}
			}
			panic("simulator: Proc exited twice")
		})
	}()
}

// Run drives the loop until every Proc has returned.
//
// Run must not be invoked from more than one goroutine at a time.
// It returns an error if every Proc is blocked with no timer left to
// fire.
func (l *Loop) Run() error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		panic("simulator: Loop is already running")
	}
	l.running = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	for range l.wake {
		if cont, err := l.step(); !cont {
			return err
		}
	}
	panic("unreachable")
}

// MustRun is like Run but panics on deadlock.
func (l *Loop) MustRun() {
	if err := l.Run(); err != nil {
		panic(err)
	}
}

// Now returns the current virtual time.
func (l *Loop) Now() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.now
}

// withWake runs f with the loop locked, then nudges Run to take another
// scheduling step.
func (l *Loop) withWake(f func()) {
	l.mu.Lock()
	defer func() {
		l.mu.Unlock()
		select {
		case l.wake <- struct{}{}:
		default:
		}
	}()
	f()
}

// step fires timers until one of them unblocks a Proc.
//
// The first return value is false once the loop should stop, in which
// case the error explains why (nil when every Proc has exited).
func (l *Loop) step() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.procs) == 0 {
		return false, nil
	}

	for _, p := range l.procs {
		if p.waiting == nil {
			// A goroutine is computing in real time; let it reach
			// its next Recv before advancing the clock.
			return true, nil
		}
	}

	for l.timers.Len() > 0 {
		t := heap.Pop(&l.timers).(*Timer)
		if t.at > l.now {
			l.now = t.at
		}
		if l.deliver(t.del) {
			return true, nil
		}
	}

	return false, errors.New("simulator: deadlock: every Proc is blocked in Recv")
}

// deliver hands d to a Proc waiting on its mailbox, or queues it.
// Waiting Procs are tried in random order so concurrent receivers do
// not observe a deterministic preference.
func (l *Loop) deliver(d *Delivery) bool {
	for _, i := range rand.Perm(len(l.procs)) {
		p := l.procs[i]
		for _, box := range p.waiting {
			if box == d.Box {
				p.waitCh <- d
				p.waitCh = nil
				p.waiting = nil
				return true
			}
		}
	}
	d.Box.pending = append(d.Box.pending, d.Message)
	return false
}
