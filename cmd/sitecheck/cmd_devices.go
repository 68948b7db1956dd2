package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tomyan/sitecheck/internal/chrome"
)

// DeviceEntry is a device profile and the projects that use it.
type DeviceEntry struct {
	chrome.DeviceInfo
	Projects []string `json:"projects,omitempty"`
}

type DevicesResult struct {
	Devices []DeviceEntry `json:"devices"`
}

func (r DevicesResult) TextValue() string {
	var b strings.Builder
	for i, d := range r.Devices {
		if i > 0 {
			b.WriteString("\n")
		}
		kind := "desktop"
		if d.Mobile {
			kind = "mobile"
		}
		fmt.Fprintf(&b, "%-16s %4dx%-4d @%gx %-7s", d.Name, d.Width, d.Height, d.DeviceScaleFactor, kind)
		if len(d.Projects) > 0 {
			fmt.Fprintf(&b, " projects: %s", strings.Join(d.Projects, ", "))
		}
	}
	return b.String()
}

func cmdDevices(cfg *Config) int {
	used := map[string][]string{}
	for _, p := range cfg.Run.Projects {
		used[p.DeviceName()] = append(used[p.DeviceName()], p.Name)
	}

	names := make([]string, 0, len(chrome.Devices))
	for name := range chrome.Devices {
		names = append(names, name)
	}
	sort.Strings(names)

	var result DevicesResult
	for _, name := range names {
		d := chrome.Devices[name]
		d.Name = name
		result.Devices = append(result.Devices, DeviceEntry{DeviceInfo: d, Projects: used[name]})
	}
	return outputResult(cfg, result)
}
