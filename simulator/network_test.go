package simulator

import "testing"

func TestRandomNetworkExchange(t *testing.T) {
	loop := NewLoop()
	node1 := NewNode()
	node2 := NewNode()
	port1 := node1.Port(loop)
	port2 := node2.Port(loop)
	network := RandomNetwork{}

	loop.Go(func(p *Proc) {
		network.Send(p, &Packet{Source: port1, Dest: port2, Payload: "hi node 2", Size: 8})
		if val := port1.Recv(p).Payload; val != "hi node 1" {
			t.Errorf("unexpected payload: %v", val)
		}
	})
	loop.Go(func(p *Proc) {
		network.Send(p, &Packet{Source: port2, Dest: port1, Payload: "hi node 1", Size: 8})
		if val := port2.Recv(p).Payload; val != "hi node 2" {
			t.Errorf("unexpected payload: %v", val)
		}
	})

	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
}

func TestLinkNetworkSinglePacket(t *testing.T) {
	loop := NewLoop()
	node1 := NewNode()
	node2 := NewNode()
	port1 := node1.Port(loop)
	port2 := node2.Port(loop)
	network := NewLinkNetwork(2.0, 3.0)

	loop.Go(func(p *Proc) {
		network.Send(p, &Packet{Source: port1, Dest: port2, Payload: "data", Size: 124.0})
	})
	loop.Go(func(p *Proc) {
		port2.Recv(p)
		expected := 124.0/2.0 + 3.0
		if p.Now() != expected {
			t.Errorf("expected arrival at %f but got %f", expected, p.Now())
		}
	})

	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
}

func TestLinkNetworkSerializes(t *testing.T) {
	loop := NewLoop()
	node1 := NewNode()
	node2 := NewNode()
	port1 := node1.Port(loop)
	port2 := node2.Port(loop)
	rate, latency := 4.0, 2.0
	network := NewLinkNetwork(rate, latency)

	loop.Go(func(p *Proc) {
		network.Send(p,
			&Packet{Source: port1, Dest: port2, Payload: "first", Size: 120.0},
			&Packet{Source: port1, Dest: port2, Payload: "second", Size: 40.0})
	})
	loop.Go(func(p *Proc) {
		if val := port2.Recv(p).Payload; val != "first" {
			t.Errorf("unexpected payload: %v", val)
		}
		expected := 120.0/rate + latency
		if p.Now() != expected {
			t.Errorf("expected first arrival at %f but got %f", expected, p.Now())
		}
		if val := port2.Recv(p).Payload; val != "second" {
			t.Errorf("unexpected payload: %v", val)
		}
		// The second transfer waits for the shared interface.
		expected = 120.0/rate + 40.0/rate + latency
		if p.Now() != expected {
			t.Errorf("expected second arrival at %f but got %f", expected, p.Now())
		}
	})

	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
}

func TestNodeHostnamesUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		host := NewNode().Hostname
		if seen[host] {
			t.Fatalf("duplicate hostname: %s", host)
		}
		seen[host] = true
	}
}
