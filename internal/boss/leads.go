package boss

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// NormalizeLeads validates lead times and returns them distinct, descending.
func NormalizeLeads(leads []int) ([]int, error) {
	if len(leads) == 0 {
		return nil, ErrInvalidLeads
	}
	out := make([]int, 0, len(leads))
	for _, l := range leads {
		if l <= 0 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidLeads, l)
		}
		if !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	slices.Sort(out)
	slices.Reverse(out)
	return out, nil
}

// ParseLeads reads the stored comma-separated form. Anything unreadable falls
// back to DefaultLeads.
func ParseLeads(s string) []int {
	if strings.TrimSpace(s) == "" {
		return slices.Clone(DefaultLeads)
	}
	var leads []int
	for _, p := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return slices.Clone(DefaultLeads)
		}
		leads = append(leads, n)
	}
	out, err := NormalizeLeads(leads)
	if err != nil {
		return slices.Clone(DefaultLeads)
	}
	return out
}

// FormatLeads renders leads for storage.
func FormatLeads(leads []int) string {
	parts := make([]string, len(leads))
	for i, l := range leads {
		parts[i] = strconv.Itoa(l)
	}
	return strings.Join(parts, ",")
}
