// Package collective implements blocking collective operations over a
// fixed group of simulated participants: scatter, broadcast, gather,
// reduce, and barrier, plus an out-of-band group abort.
//
// Every operation is symmetric: all ranks must call the same
// collectives in the same relative order. Divergent call order across
// ranks is a caller contract violation and is not detected.
package collective

import (
	"github.com/unixpickle/essentials"

	"github.com/parlab/spmd/simulator"
)

// frameOverhead is the modeled wire size, in bytes, of a frame with no
// payload.
const frameOverhead = 16

// A frame is one collective's unit of data movement. The sequence
// number identifies which collective the frame belongs to, so that a
// reordering network cannot leak one collective's payload into the
// next.
type frame struct {
	seq   int
	data  []float64
	abort *AbortError
}

// An inbound pairs a received frame with its sender.
type inbound struct {
	frame  *frame
	source *simulator.Port
}

// Comms is one rank's handle on the group. Each rank holds exactly one
// Comms for the duration of a run; the rank's goroutine is the only one
// that may use it.
type Comms struct {
	// Proc is the rank's handle on the event loop.
	Proc *simulator.Proc

	// Port is the rank's own endpoint.
	Port *simulator.Port

	// Ports holds every rank's endpoint, indexed by rank.
	Ports []*simulator.Port

	// Network carries the group's traffic.
	Network simulator.Network

	rank    int
	seq     int
	pending []inbound
	aborted *AbortError
}

// Spawn creates a Comms for every node and runs f once per rank, each
// in its own goroutine on the loop.
func Spawn(loop *simulator.Loop, network simulator.Network, nodes []*simulator.Node,
	f func(c *Comms)) {
	ports := make([]*simulator.Port, len(nodes))
	for i, node := range nodes {
		ports[i] = node.Port(loop)
	}
	for i := range nodes {
		rank := i
		loop.Go(func(p *simulator.Proc) {
			f(&Comms{
				Proc:    p,
				Port:    ports[rank],
				Ports:   ports,
				Network: network,
				rank:    rank,
			})
		})
	}
}

// Rank returns the calling rank's ordinal, 0 <= Rank() < Size().
func (c *Comms) Rank() int {
	return c.rank
}

// Size returns the number of ranks in the group.
func (c *Comms) Size() int {
	return len(c.Ports)
}

// Wtime returns the rank's virtual clock. Clocks are shared through the
// loop but reads are only ordered across ranks by barriers.
func (c *Comms) Wtime() float64 {
	return c.Proc.Now()
}

// Scatter splits root's send buffer into Size() contiguous blocks and
// delivers block i to rank i. Only root may pass a non-nil send buffer,
// and it must hold exactly block*Size() elements. Every rank receives
// its own block; root's block never touches the network.
func (c *Comms) Scatter(root int, send []float64, block int) ([]float64, error) {
	seq := c.nextSeq()
	if c.rank == root {
		if len(send) != block*len(c.Ports) {
			panic("collective: scatter buffer does not hold one block per rank")
		}
		for r, port := range c.Ports {
			if r == root {
				continue
			}
			c.send(port, &frame{seq: seq, data: send[r*block : (r+1)*block]})
		}
		own := make([]float64, block)
		copy(own, send[root*block:(root+1)*block])
		return own, nil
	}
	f, _, err := c.recv(seq)
	if err != nil {
		return nil, err
	}
	if len(f.data) != block {
		panic("collective: scatter block size mismatch")
	}
	return f.data, nil
}

// Bcast replicates root's buffer to every rank. Non-root ranks pass nil
// and receive a copy of root's buffer; root gets its own buffer back.
func (c *Comms) Bcast(root int, buf []float64) ([]float64, error) {
	seq := c.nextSeq()
	if c.rank == root {
		for r, port := range c.Ports {
			if r == root {
				continue
			}
			c.send(port, &frame{seq: seq, data: buf})
		}
		return buf, nil
	}
	f, _, err := c.recv(seq)
	if err != nil {
		return nil, err
	}
	return f.data, nil
}

// Gather is the inverse of Scatter: rank i's block lands at offset
// i*len(block) in the buffer returned on root. Non-root ranks get nil.
// Every rank must pass a block of the same length.
func (c *Comms) Gather(root int, block []float64) ([]float64, error) {
	seq := c.nextSeq()
	if c.rank != root {
		c.send(c.Ports[root], &frame{seq: seq, data: block})
		return nil, nil
	}
	full := make([]float64, len(block)*len(c.Ports))
	copy(full[root*len(block):], block)
	for i := 0; i < len(c.Ports)-1; i++ {
		f, src, err := c.recv(seq)
		if err != nil {
			return nil, err
		}
		if len(f.data) != len(block) {
			panic("collective: gather block size mismatch")
		}
		copy(full[c.rankOf(src)*len(block):], f.data)
	}
	return full, nil
}

// Reduce combines every rank's vector with fn on root. Non-root ranks
// get nil.
func (c *Comms) Reduce(root int, vec []float64, fn ReduceFn) ([]float64, error) {
	seq := c.nextSeq()
	if c.rank != root {
		c.send(c.Ports[root], &frame{seq: seq, data: vec})
		return nil, nil
	}
	vecs := make([][]float64, len(c.Ports))
	vecs[root] = vec
	for i := 0; i < len(c.Ports)-1; i++ {
		f, src, err := c.recv(seq)
		if err != nil {
			return nil, err
		}
		vecs[c.rankOf(src)] = f.data
	}
	return fn(c.Proc, vecs...), nil
}

// Barrier blocks until every rank has called it: ranks report to rank
// 0, which then releases the group.
func (c *Comms) Barrier() error {
	seq := c.nextSeq()
	if c.rank == 0 {
		for i := 0; i < len(c.Ports)-1; i++ {
			if _, _, err := c.recv(seq); err != nil {
				return err
			}
		}
		for r, port := range c.Ports {
			if r == 0 {
				continue
			}
			c.send(port, &frame{seq: seq})
		}
		return nil
	}
	c.send(c.Ports[0], &frame{seq: seq})
	_, _, err := c.recv(seq)
	return err
}

// Abort terminates the whole group: every peer observes an *AbortError
// from whatever collective it is blocked in, instead of hanging on the
// missing rank. The caller should stop issuing collectives afterwards.
func (c *Comms) Abort(err error) {
	ab := &AbortError{Rank: c.rank, Err: err}
	c.aborted = ab
	for r, port := range c.Ports {
		if r == c.rank {
			continue
		}
		c.send(port, &frame{abort: ab})
	}
}

func (c *Comms) nextSeq() int {
	c.seq++
	return c.seq
}

// send ships a frame to dst. Payloads are copied so a receiver never
// aliases the sender's buffer; the group shares no mutable memory.
func (c *Comms) send(dst *simulator.Port, f *frame) {
	if f.data != nil {
		f.data = append([]float64(nil), f.data...)
	}
	c.Network.Send(c.Proc, &simulator.Packet{
		Source:  c.Port,
		Dest:    dst,
		Payload: f,
		Size:    frameOverhead + 8*float64(len(f.data)),
	})
}

// recv returns the next frame carrying the given sequence number.
// Frames from later collectives are buffered until their turn; abort
// frames short-circuit everything.
func (c *Comms) recv(seq int) (*frame, *simulator.Port, error) {
	if c.aborted != nil {
		return nil, nil, c.aborted
	}
	for i, in := range c.pending {
		if in.frame.seq == seq {
			essentials.OrderedDelete(&c.pending, i)
			return in.frame, in.source, nil
		}
	}
	for {
		pkt := c.Port.Recv(c.Proc)
		f := pkt.Payload.(*frame)
		if f.abort != nil {
			c.aborted = f.abort
			return nil, nil, f.abort
		}
		if f.seq == seq {
			return f, pkt.Source, nil
		}
		c.pending = append(c.pending, inbound{frame: f, source: pkt.Source})
	}
}

func (c *Comms) rankOf(p *simulator.Port) int {
	for i, port := range c.Ports {
		if port == p {
			return i
		}
	}
	panic("unreachable")
}
