package recorder

import "sort"

// AvailablePorts returns the currently enumerable serial port identifiers,
// deduplicated and sorted. Enumeration failure yields an empty list rather
// than an error: an environment with no ports is not exceptional.
func AvailablePorts() []string {
	ports, err := getPortsList()
	if err != nil {
		return nil
	}
	seen := make(map[string]struct{}, len(ports))
	out := make([]string, 0, len(ports))
	for _, p := range ports {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
