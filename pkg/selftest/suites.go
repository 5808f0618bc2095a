package selftest

import (
	"slices"

	"github.com/platinummonkey/resetd/pkg/plugins"
)

// FrontendSuffix marks the suite of a frontend test list
const FrontendSuffix = " (frontend)"

// Suites collects backend then frontend test lists. With names given, only plugins
// with one of those names are included.
func Suites(backends []*plugins.BackendFunctions, frontends []*plugins.FrontendFunctions, names ...string) []Suite {
	want := func(name string) bool {
		return len(names) == 0 || slices.Contains(names, name)
	}

	var suites []Suite
	for _, b := range backends {
		if want(b.PluginName) {
			suites = append(suites, Suite{Plugin: b.PluginName, Tests: b.Tests})
		}
	}
	for _, f := range frontends {
		if want(f.PluginName) {
			suites = append(suites, Suite{Plugin: f.PluginName + FrontendSuffix, Tests: f.Tests})
		}
	}
	return suites
}
