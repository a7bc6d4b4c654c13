package collective

import (
	"testing"

	"github.com/parlab/spmd/simulator"
)

// RunGroup stands up a group of the given size on a RandomNetwork and
// runs f on every rank. The random delivery order stresses the
// sequence-number discipline that keeps adjacent collectives apart.
//
// The test fails if the group deadlocks. The loop is returned so
// callers can inspect the final virtual time.
func RunGroup(t *testing.T, ranks int, f func(c *Comms)) *simulator.Loop {
	t.Helper()
	loop := simulator.NewLoop()
	nodes := make([]*simulator.Node, ranks)
	for i := range nodes {
		nodes[i] = simulator.NewNode()
	}
	Spawn(loop, simulator.RandomNetwork{}, nodes, f)
	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
	return loop
}
