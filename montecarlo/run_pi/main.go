// Command run_pi estimates π by Monte Carlo sampling across a
// simulated group of ranks.
//
// Usage: run_pi [flags] [samples]
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/unixpickle/essentials"

	"github.com/parlab/spmd/collective"
	"github.com/parlab/spmd/montecarlo"
	"github.com/parlab/spmd/simulator"
)

func main() {
	var ranks int
	var seed int64
	var rate, latency float64
	flag.IntVar(&ranks, "ranks", 4, "number of simulated ranks")
	flag.Int64Var(&seed, "seed", time.Now().UnixNano(), "base RNG seed")
	flag.Float64Var(&rate, "rate", 1e9, "NIC rate in bytes per virtual second")
	flag.Float64Var(&latency, "latency", 1e-4, "per-packet latency in virtual seconds")
	flag.Parse()

	samples := int64(montecarlo.DefaultSamples)
	if flag.NArg() > 0 {
		var err error
		samples, err = strconv.ParseInt(flag.Arg(0), 10, 64)
		if err != nil || samples <= 0 {
			essentials.Die("invalid sample count:", flag.Arg(0))
		}
	}

	loop := simulator.NewLoop()
	nodes := make([]*simulator.Node, ranks)
	for i := range nodes {
		nodes[i] = simulator.NewNode()
	}
	network := simulator.NewLinkNetwork(rate, latency)

	estimates := make([]*montecarlo.Estimate, ranks)
	errs := make([]error, ranks)
	collective.Spawn(loop, network, nodes, func(c *collective.Comms) {
		if c.Rank() == 0 {
			fmt.Println("========================================")
			fmt.Println("Monte Carlo Pi Estimation")
			fmt.Println("========================================")
			fmt.Printf("Total samples: %d\n", samples)
			fmt.Printf("Number of ranks: %d\n", ranks)
			fmt.Printf("Samples per rank: %d\n", samples/int64(ranks))
			fmt.Println("========================================")
		}
		estimates[c.Rank()], errs[c.Rank()] = montecarlo.Run(c, samples, seed)
	})
	loop.MustRun()

	if err := errs[0]; err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	est := estimates[0]
	fmt.Println("========================================")
	fmt.Println("Results")
	fmt.Println("========================================")
	fmt.Printf("Points inside circle: %d\n", est.Inside)
	fmt.Printf("Total points: %d\n", est.Samples)
	fmt.Printf("Pi estimate: %.10f\n", est.Pi)
	fmt.Printf("Absolute error: %.10f\n", est.AbsError)
	fmt.Printf("Relative error: %.6f%%\n", est.RelError)
	fmt.Printf("Execution time: %.6f virtual seconds\n", est.Elapsed)
}
