package selftest

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/platinummonkey/resetd/pkg/pluginapi"
)

// Outcome is the result class of one test
type Outcome int

const (
	Successful Outcome = iota
	Failed
	Crashed
)

func (o Outcome) String() string {
	switch o {
	case Successful:
		return "successful"
	case Failed:
		return "failed"
	case Crashed:
		return "crashed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is the outcome of one test
type Result struct {
	Name    string
	Outcome Outcome
	// Message is the failure message or the panic value
	Message string
	// Err is the error returned by a failed test
	Err error
	// Stack is set for crashed tests
	Stack string
}

// Run executes every test on its own goroutine and waits for all of them. Results are
// in declaration order.
func Run(plugin string, tests []pluginapi.Test) *Report {
	results := make([]Result, len(tests))

	var wg sync.WaitGroup
	for i, test := range tests {
		wg.Add(1)
		go func(i int, test pluginapi.Test) {
			defer wg.Done()
			results[i] = runIsolated(test)
		}(i, test)
	}
	wg.Wait()

	return &Report{Plugin: plugin, Results: results}
}

// runIsolated runs one test. The test body gets a goroutine of its own so that
// runtime.Goexit inside it is reported instead of unwinding this goroutine.
func runIsolated(test pluginapi.Test) Result {
	result := Result{Name: test.Name}
	if test.Func == nil {
		result.Outcome = Crashed
		result.Message = "test has no function"
		return result
	}

	done := make(chan struct{})
	var (
		err       error
		completed bool
		panicked  bool
		panicVal  any
		stack     []byte
	)

	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				panicked = true
				panicVal = r
				stack = debug.Stack()
			}
		}()
		err = test.Func()
		completed = true
	}()
	<-done

	switch {
	case panicked:
		result.Outcome = Crashed
		result.Message = fmt.Sprint(panicVal)
		result.Stack = string(stack)
	case !completed:
		result.Outcome = Crashed
		result.Message = "test goroutine exited without returning"
	case err != nil:
		result.Outcome = Failed
		result.Message = err.Error()
		result.Err = err
	default:
		result.Outcome = Successful
	}
	return result
}
