package pluginapi

import (
	"fmt"

	"github.com/google/go-cmp/cmp"

	"github.com/platinummonkey/resetd/pkg/variant"
)

// Test is one named plugin self-test. Func returns nil on success.
type Test struct {
	Name string
	Func func() error
}

// NewTest builds a Test
func NewTest(name string, fn func() error) Test {
	return Test{Name: name, Func: fn}
}

// TestError is a failed self-test. Details optionally carries structured data.
type TestError struct {
	Message string
	Details variant.Variant
}

func (e *TestError) Error() string {
	return e.Message
}

// Failf returns a TestError with a formatted message
func Failf(format string, args ...any) error {
	return &TestError{Message: fmt.Sprintf(format, args...)}
}

// Assert fails with msg when cond is false
func Assert(cond bool, msg string) error {
	if cond {
		return nil
	}
	if msg == "" {
		msg = "assertion failed"
	}
	return &TestError{Message: msg}
}

// AssertEqual fails with a diff when want and got differ
func AssertEqual[T any](want, got T, opts ...cmp.Option) error {
	diff := cmp.Diff(want, got, opts...)
	if diff == "" {
		return nil
	}
	return &TestError{
		Message: fmt.Sprintf("values differ (-want +got):\n%s", diff),
		Details: variant.Wrap(variant.NewTuple2(fmt.Sprint(want), fmt.Sprint(got))),
	}
}
