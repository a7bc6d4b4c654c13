// Package hello is the smallest group program: every rank announces
// itself and its host, and the coordinator prints a summary once the
// group has synchronized.
package hello

import (
	"fmt"

	"github.com/parlab/spmd/collective"
)

// Greeting returns the line a rank prints when the group comes up.
func Greeting(c *collective.Comms) string {
	return fmt.Sprintf("Hello from rank %d of %d on host %s",
		c.Rank(), c.Size(), c.Port.Node.Hostname)
}

// Summary returns the coordinator's closing report. Only rank 0 should
// print it.
func Summary(c *collective.Comms) string {
	return fmt.Sprintf("group of %d ranks up, coordinator on host %s",
		c.Size(), c.Port.Node.Hostname)
}
