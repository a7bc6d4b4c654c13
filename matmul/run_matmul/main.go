// Command run_matmul multiplies two random square matrices across a
// simulated group of ranks and reports the coordinator's timing.
//
// Usage: run_matmul [flags] [n]
//
// The optional positional argument is the matrix dimension, default
// 100.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/unixpickle/essentials"

	"github.com/parlab/spmd/collective"
	"github.com/parlab/spmd/matmul"
	"github.com/parlab/spmd/simulator"
)

func main() {
	var ranks int
	var rate, latency float64
	flag.IntVar(&ranks, "ranks", 4, "number of simulated ranks")
	flag.Float64Var(&rate, "rate", 1e9, "NIC rate in bytes per virtual second")
	flag.Float64Var(&latency, "latency", 1e-4, "per-packet latency in virtual seconds")
	flag.Parse()

	n := 100
	if flag.NArg() > 0 {
		var err error
		n, err = strconv.Atoi(flag.Arg(0))
		if err != nil || n <= 0 {
			essentials.Die("invalid matrix dimension:", flag.Arg(0))
		}
	}

	loop := simulator.NewLoop()
	nodes := make([]*simulator.Node, ranks)
	for i := range nodes {
		nodes[i] = simulator.NewNode()
	}
	network := simulator.NewLinkNetwork(rate, latency)

	results := make([]*matmul.Result, ranks)
	errs := make([]error, ranks)
	collective.Spawn(loop, network, nodes, func(c *collective.Comms) {
		if c.Rank() == matmul.CoordinatorRank {
			printBanner(n, ranks)
		}
		results[c.Rank()], errs[c.Rank()] = matmul.Run(c, n)
	})
	loop.MustRun()

	if err := errs[matmul.CoordinatorRank]; err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	res := results[matmul.CoordinatorRank]
	if n <= 10 {
		fmt.Println("Matrix A:")
		fmt.Print(res.A)
		fmt.Println("Matrix B:")
		fmt.Print(res.B)
		fmt.Println("Result matrix C:")
		fmt.Print(res.C)
	}
	fmt.Println("========================================")
	fmt.Println("Results")
	fmt.Println("========================================")
	fmt.Printf("Computation time: %.6f virtual seconds\n", res.Metrics.Elapsed)
	fmt.Printf("Operations: %.2e flops\n", res.Metrics.Flops)
	fmt.Printf("Performance: %.2f GFLOPS\n", res.Metrics.GFlops)
	fmt.Printf("Run ID: %s\n", res.Metrics.RunID)
}

func printBanner(n, ranks int) {
	fmt.Println("========================================")
	fmt.Println("Distributed Matrix Multiplication")
	fmt.Println("========================================")
	fmt.Printf("Matrix size: %d x %d\n", n, n)
	fmt.Printf("Number of ranks: %d\n", ranks)
	if n%ranks == 0 {
		fmt.Printf("Rows per rank: %d\n", n/ranks)
	}
	fmt.Printf("Memory per matrix: %.2f MB\n", float64(n*n*8)/(1024.0*1024.0))
	fmt.Println("========================================")
}
