package collective

import "fmt"

// An AbortError reports that some rank tore the group down mid-run. It
// is returned by every collective a surviving rank is blocked in or
// calls afterwards.
type AbortError struct {
	// Rank is the ordinal of the rank that called Abort.
	Rank int

	// Err is the failure the aborting rank reported.
	Err error
}

func (a *AbortError) Error() string {
	return fmt.Sprintf("collective: group aborted by rank %d: %v", a.Rank, a.Err)
}

func (a *AbortError) Unwrap() error {
	return a.Err
}
