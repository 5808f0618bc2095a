package selftest

import (
	"fmt"
	"io"
	"strings"
)

// Report aggregates the results of one plugin's tests
type Report struct {
	Plugin  string
	Results []Result
}

// Counts returns how many tests ran and how many ended in each outcome
func (r *Report) Counts() (running, crashed, failed, successful int) {
	running = len(r.Results)
	for _, res := range r.Results {
		switch res.Outcome {
		case Crashed:
			crashed++
		case Failed:
			failed++
		case Successful:
			successful++
		}
	}
	return running, crashed, failed, successful
}

// OK reports whether no test failed or crashed
func (r *Report) OK() bool {
	_, crashed, failed, _ := r.Counts()
	return crashed == 0 && failed == 0
}

// Filter returns the results with the given outcome, in declaration order
func (r *Report) Filter(outcome Outcome) []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Outcome == outcome {
			out = append(out, res)
		}
	}
	return out
}

// String renders the report:
//
//	----- tests for plugin wifi -----
//	running 3 tests:
//	  scan
//	  ...
//	crashed 1 tests:
//	  connect: nil map
//	failed 1 tests:
//	  strength: expected 70
//	successful 1 tests:
//	  scan
//	----- end of tests for plugin wifi -----
func (r *Report) String() string {
	var b strings.Builder
	running, crashed, failed, successful := r.Counts()

	fmt.Fprintf(&b, "----- tests for plugin %s -----\n", r.Plugin)

	fmt.Fprintf(&b, "running %d tests:\n", running)
	for _, res := range r.Results {
		fmt.Fprintf(&b, "  %s\n", res.Name)
	}

	fmt.Fprintf(&b, "crashed %d tests:\n", crashed)
	for _, res := range r.Filter(Crashed) {
		fmt.Fprintf(&b, "  %s: %s\n", res.Name, res.Message)
	}

	fmt.Fprintf(&b, "failed %d tests:\n", failed)
	for _, res := range r.Filter(Failed) {
		fmt.Fprintf(&b, "  %s: %s\n", res.Name, res.Message)
	}

	fmt.Fprintf(&b, "successful %d tests:\n", successful)
	for _, res := range r.Filter(Successful) {
		fmt.Fprintf(&b, "  %s\n", res.Name)
	}

	fmt.Fprintf(&b, "----- end of tests for plugin %s -----\n", r.Plugin)
	return b.String()
}

// WriteTo writes the whole report with one Write call
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write([]byte(r.String()))
	return int64(n), err
}
