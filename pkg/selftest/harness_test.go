package selftest

import (
	"errors"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/resetd/pkg/pluginapi"
)

func sampleTests() []pluginapi.Test {
	return []pluginapi.Test{
		pluginapi.NewTest("scan", func() error { return nil }),
		pluginapi.NewTest("connect", func() error {
			var m map[string]int
			m["ap"] = 1
			return nil
		}),
		pluginapi.NewTest("strength", func() error {
			return pluginapi.AssertEqual(70, 40)
		}),
		pluginapi.NewTest("disconnect", func() error { return errors.New("not connected") }),
		pluginapi.NewTest("list", func() error { return nil }),
	}
}

func TestRun_Outcomes(t *testing.T) {
	report := Run("wifi", sampleTests())

	require.Len(t, report.Results, 5)
	names := make([]string, 0, len(report.Results))
	for _, r := range report.Results {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"scan", "connect", "strength", "disconnect", "list"}, names)

	running, crashed, failed, successful := report.Counts()
	assert.Equal(t, 5, running)
	assert.Equal(t, 1, crashed)
	assert.Equal(t, 2, failed)
	assert.Equal(t, 2, successful)
	assert.False(t, report.OK())

	connect := report.Results[1]
	assert.Equal(t, Crashed, connect.Outcome)
	assert.Contains(t, connect.Message, "assignment to entry in nil map")
	assert.NotEmpty(t, connect.Stack)

	disconnect := report.Results[3]
	assert.Equal(t, Failed, disconnect.Outcome)
	assert.Equal(t, "not connected", disconnect.Message)
	assert.EqualError(t, disconnect.Err, "not connected")
}

func TestRun_PanicNeverReachesCaller(t *testing.T) {
	assert.NotPanics(t, func() {
		report := Run("audio", []pluginapi.Test{
			pluginapi.NewTest("panic string", func() error { panic("boom") }),
			pluginapi.NewTest("panic error", func() error { panic(errors.New("bad sink")) }),
			pluginapi.NewTest("goexit", func() error {
				runtime.Goexit()
				return nil
			}),
		})
		for _, r := range report.Results {
			assert.Equal(t, Crashed, r.Outcome, r.Name)
		}
		assert.Equal(t, "boom", report.Results[0].Message)
		assert.Equal(t, "bad sink", report.Results[1].Message)
		assert.Contains(t, report.Results[2].Message, "without returning")
	})
}

func TestRun_NilFunc(t *testing.T) {
	report := Run("wifi", []pluginapi.Test{{Name: "missing"}})
	require.Len(t, report.Results, 1)
	assert.Equal(t, Crashed, report.Results[0].Outcome)
}

func TestRun_Empty(t *testing.T) {
	report := Run("wifi", nil)
	running, crashed, failed, successful := report.Counts()
	assert.Zero(t, running+crashed+failed+successful)
	assert.True(t, report.OK())
}

func TestReport_Layout(t *testing.T) {
	out := Run("wifi", sampleTests()).String()

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	assert.Equal(t, "----- tests for plugin wifi -----", lines[0])
	assert.Equal(t, "----- end of tests for plugin wifi -----", lines[len(lines)-1])

	sections := []string{"running 5 tests:", "crashed 1 tests:", "failed 2 tests:", "successful 2 tests:"}
	last := -1
	for _, section := range sections {
		idx := strings.Index(out, section)
		require.NotEqual(t, -1, idx, section)
		assert.Greater(t, idx, last, "section %q out of order", section)
		last = idx
	}

	assert.Contains(t, out, "  disconnect: not connected\n")
	assert.Contains(t, out, "  connect: assignment to entry in nil map\n")

	successful := out[strings.Index(out, "successful 2 tests:"):]
	assert.Less(t, strings.Index(successful, "scan"), strings.Index(successful, "list"))
}

type countingWriter struct {
	writes int
	data   []byte
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.writes++
	c.data = append(c.data, p...)
	return len(p), nil
}

func TestReport_WriteToIsOneWrite(t *testing.T) {
	report := Run("wifi", sampleTests())

	w := &countingWriter{}
	n, err := report.WriteTo(w)
	require.NoError(t, err)
	assert.Equal(t, 1, w.writes)
	assert.Equal(t, int64(len(w.data)), n)
	assert.Equal(t, report.String(), string(w.data))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "successful", Successful.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "crashed", Crashed.String())
	assert.Equal(t, "Outcome(9)", Outcome(9).String())
}
