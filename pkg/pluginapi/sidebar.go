package pluginapi

// SidebarInfo describes the sidebar entry a frontend plugin contributes
type SidebarInfo struct {
	Name     string  `json:"name" yaml:"name"`
	IconName string  `json:"icon_name" yaml:"icon_name"`
	Parent   *string `json:"parent,omitempty" yaml:"parent,omitempty"`
}
