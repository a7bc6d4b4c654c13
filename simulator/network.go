package simulator

import (
	"math/rand"
	"sync"

	"github.com/google/uuid"
)

// A Node is a machine on a simulated network.
type Node struct {
	// Hostname uniquely identifies the machine.
	Hostname string
}

// NewNode creates a Node with a unique hostname.
func NewNode() *Node {
	return &Node{Hostname: "sim-" + uuid.NewString()[:8]}
}

// Port creates a communication endpoint attached to the node.
func (n *Node) Port(loop *Loop) *Port {
	return &Port{Node: n, Inbox: loop.Mailbox()}
}

// A Port is a point of communication on a Node. Packets are sent from
// Ports and arrive on Ports.
type Port struct {
	Node *Node

	// Inbox receives *Packet messages.
	Inbox *Mailbox
}

// Recv blocks until the next packet arrives on the port.
func (p *Port) Recv(proc *Proc) *Packet {
	return proc.Recv(p.Inbox).Message.(*Packet)
}

// A Packet is a chunk of data sent between nodes.
type Packet struct {
	Source  *Port
	Dest    *Port
	Payload any

	// Size is the packet's length in bytes, used by networks that
	// model transmission time.
	Size float64
}

// A Network delivers packets between nodes.
type Network interface {
	// Send queues packets for delivery. The packets arrive on their
	// destination ports' inboxes at some later virtual time.
	//
	// Send itself does not block.
	Send(p *Proc, pkts ...*Packet)
}

// A RandomNetwork delivers every packet after a uniformly random delay,
// regardless of size. Packets between the same pair of ports may be
// reordered, which makes it a useful stressor in tests.
type RandomNetwork struct{}

// Send delivers the packets with random delays.
func (RandomNetwork) Send(p *Proc, pkts ...*Packet) {
	for _, pkt := range pkts {
		p.Schedule(pkt.Dest.Inbox, pkt, rand.Float64())
	}
}

// A LinkNetwork models per-machine network interfaces with a fixed
// transfer rate plus a propagation latency. A transfer occupies both
// the sending and the receiving interface for size/rate virtual
// seconds, so packets funneling into or out of one node serialize
// behind each other. Deliveries between a pair of nodes keep their
// send order.
type LinkNetwork struct {
	// Rate is the interface throughput in bytes per virtual second.
	Rate float64

	// Latency is the propagation delay added to every packet.
	Latency float64

	mu   sync.Mutex
	busy map[*Node]float64
}

// NewLinkNetwork creates a LinkNetwork with the given interface rate
// and propagation latency.
func NewLinkNetwork(rate, latency float64) *LinkNetwork {
	return &LinkNetwork{
		Rate:    rate,
		Latency: latency,
		busy:    map[*Node]float64{},
	}
}

// Send schedules the packets behind any transfers already occupying the
// endpoints' interfaces.
func (l *LinkNetwork) Send(p *Proc, pkts ...*Packet) {
	now := p.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, pkt := range pkts {
		start := now
		if t := l.busy[pkt.Source.Node]; t > start {
			start = t
		}
		if t := l.busy[pkt.Dest.Node]; t > start {
			start = t
		}
		done := start + pkt.Size/l.Rate
		l.busy[pkt.Source.Node] = done
		l.busy[pkt.Dest.Node] = done
		p.Schedule(pkt.Dest.Inbox, pkt, done+l.Latency-now)
	}
}
