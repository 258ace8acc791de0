package boss

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrNoDuration means the argument was empty.
	ErrNoDuration = errors.New("duration not given")
	// ErrBadDuration means the argument is not in 1d2h30m form.
	ErrBadDuration = errors.New("bad duration")
)

var reDuration = regexp.MustCompile(`^(?:(\d+)d)?(?:(\d+)h)?(?:(\d+)m)?$`)

// ParseDuration reads "10h", "30m", "1d", "2h30m" or a bare number of
// minutes, returning minutes.
func ParseDuration(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, ErrNoDuration
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, ErrBadDuration
		}
		return n, nil
	}
	m := reDuration.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrBadDuration, s)
	}
	total := 0
	for i, mult := range []int{1440, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadDuration, s)
		}
		total += n * mult
	}
	return total, nil
}

// FormatInterval renders minutes the way admins type them: whole days as
// "Nd", otherwise "NhMm"/"Nh", short values as "Nm".
func FormatInterval(minutes int) string {
	switch {
	case minutes == 0:
		return "0h"
	case minutes >= 1440:
		return fmt.Sprintf("%dd", minutes/1440)
	case minutes >= 60:
		if rem := minutes % 60; rem > 0 {
			return fmt.Sprintf("%dh%dm", minutes/60, rem)
		}
		return fmt.Sprintf("%dh", minutes/60)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// FormatFirst renders an optional first-spawn offset.
func FormatFirst(minutes *int) string {
	if minutes == nil {
		return "—"
	}
	return FormatInterval(*minutes)
}
