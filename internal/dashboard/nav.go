package dashboard

// Tab is one entry of the top-level navigation.
type Tab struct {
	Label       string   `json:"label"`
	Path        string   `json:"path"`
	Icon        string   `json:"icon"`
	Description string   `json:"description"`
	SubPaths    []string `json:"sub_paths,omitempty"`
}

// Tabs are the declared navigation entries in display order.
var Tabs = []Tab{
	{Label: "Dashboard", Path: "/arbitrage-dashboard", Icon: "BarChart3", Description: "Arbitrage opportunities"},
	{Label: "Calculator", Path: "/arbitrage-calculator", Icon: "Calculator", Description: "Profit analysis"},
	{Label: "Analytics", Path: "/backtest-analysis", Icon: "TrendingUp", Description: "Historical analysis"},
	{Label: "Management", Path: "/market-pair-management", Icon: "Settings2", Description: "Market pairs"},
	{Label: "Settings", Path: "/system-settings", Icon: "Cog", Description: "System configuration", SubPaths: []string{"/api-management"}},
}

// IsActive reports whether t is highlighted for the current path.
func (t Tab) IsActive(path string) bool {
	if t.Path == path {
		return true
	}
	for _, sp := range t.SubPaths {
		if sp == path {
			return true
		}
	}
	return false
}

// ActiveTab returns the tab highlighted for path.
func ActiveTab(path string) (Tab, bool) {
	for _, t := range Tabs {
		if t.IsActive(path) {
			return t, true
		}
	}
	return Tab{}, false
}

// NavItem is a tab with its highlight state resolved.
type NavItem struct {
	Tab
	Active bool `json:"active"`
}

// Nav resolves every tab against path.
func Nav(path string) []NavItem {
	out := make([]NavItem, len(Tabs))
	for i, t := range Tabs {
		out[i] = NavItem{Tab: t, Active: t.IsActive(path)}
	}
	return out
}
