package core

import (
	"sort"
	"strings"
)

// StatusMap translates a vendor's native task status vocabulary onto
// TaskStatus. The mapping is total: values it does not know map to Running,
// never to a terminal status.
type StatusMap struct {
	vendor  string
	entries map[string]TaskStatus
}

func NewStatusMap(vendor string, entries map[string]TaskStatus) StatusMap {
	normalized := make(map[string]TaskStatus, len(entries))
	for native, status := range entries {
		key := normalizeNativeStatus(native)
		if key == "" || !status.Valid() {
			continue
		}
		normalized[key] = status
	}
	return StatusMap{vendor: strings.TrimSpace(vendor), entries: normalized}
}

func (m StatusMap) Vendor() string {
	return m.vendor
}

func (m StatusMap) Map(native string) TaskStatus {
	if status, ok := m.entries[normalizeNativeStatus(native)]; ok {
		return status
	}
	return TaskStatusRunning
}

func (m StatusMap) Known(native string) bool {
	_, ok := m.entries[normalizeNativeStatus(native)]
	return ok
}

// NativeStatuses lists the vocabulary in normalized form.
func (m StatusMap) NativeStatuses() []string {
	out := make([]string, 0, len(m.entries))
	for native := range m.entries {
		out = append(out, native)
	}
	sort.Strings(out)
	return out
}

func normalizeNativeStatus(native string) string {
	native = strings.ToUpper(strings.TrimSpace(native))
	native = strings.ReplaceAll(native, "-", "_")
	native = strings.ReplaceAll(native, " ", "_")
	return native
}
