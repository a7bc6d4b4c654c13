// Command run_hello brings up a simulated group and has every rank
// print a greeting, followed by a summary from the coordinator.
package main

import (
	"flag"
	"fmt"

	"github.com/parlab/spmd/collective"
	"github.com/parlab/spmd/hello"
	"github.com/parlab/spmd/simulator"
)

func main() {
	ranks := flag.Int("ranks", 4, "number of simulated ranks")
	flag.Parse()

	loop := simulator.NewLoop()
	nodes := make([]*simulator.Node, *ranks)
	for i := range nodes {
		nodes[i] = simulator.NewNode()
	}

	collective.Spawn(loop, simulator.RandomNetwork{}, nodes, func(c *collective.Comms) {
		fmt.Println(hello.Greeting(c))
		if err := c.Barrier(); err != nil {
			fmt.Println("barrier failed:", err)
			return
		}
		if c.Rank() == 0 {
			fmt.Println(hello.Summary(c))
		}
	})
	loop.MustRun()
}
