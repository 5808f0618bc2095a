package api

import (
	"github.com/platinummonkey/resetd/pkg/plugins"
)

// Registry is the read side of the plugin runtime used by the admin surface
type Registry interface {
	State() plugins.State
	PluginDir() string
	Backends() []*plugins.BackendFunctions
	Frontends() []*plugins.FrontendFunctions
	Errors() []error
}

// PluginInfo describes one bound function table
type PluginInfo struct {
	Name         string   `json:"name" yaml:"name"`
	Capabilities []string `json:"capabilities" yaml:"capabilities"`
	Library      string   `json:"library" yaml:"library"`
	LibraryID    string   `json:"library_id" yaml:"library_id"`
}

// PluginListing is the body of GET /plugins
type PluginListing struct {
	PluginDir string       `json:"plugin_dir" yaml:"plugin_dir"`
	Backends  []PluginInfo `json:"backends" yaml:"backends"`
	Frontends []PluginInfo `json:"frontends" yaml:"frontends"`
	Errors    []string     `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Listing snapshots the registry. It builds the registry when needed.
func Listing(reg Registry) PluginListing {
	listing := PluginListing{
		PluginDir: reg.PluginDir(),
		Backends:  []PluginInfo{},
		Frontends: []PluginInfo{},
	}
	for _, b := range reg.Backends() {
		listing.Backends = append(listing.Backends, info(b.PluginName, b.Capabilities, b.Library))
	}
	for _, f := range reg.Frontends() {
		listing.Frontends = append(listing.Frontends, info(f.PluginName, f.Capabilities, f.Library))
	}
	for _, err := range reg.Errors() {
		listing.Errors = append(listing.Errors, err.Error())
	}
	return listing
}

func info(name string, caps []string, lib *plugins.Handle) PluginInfo {
	pi := PluginInfo{Name: name, Capabilities: caps}
	if pi.Capabilities == nil {
		pi.Capabilities = []string{}
	}
	if lib != nil {
		pi.Library = lib.Path
		pi.LibraryID = lib.ID.String()
	}
	return pi
}
