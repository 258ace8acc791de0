package clock

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrBadTime is returned when an admin time argument matches no known form.
var ErrBadTime = errors.New("unrecognized time")

var (
	reDateTime = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})\s+(\d{1,2}):(\d{2})`)
	reClock    = regexp.MustCompile(`^(\d{1,2}):(\d{2})`)
)

const (
	layoutShort = "15:04"
	layoutFull  = "02.01.2006 15:04"
)

// ParseRestart reads a restart argument. Empty or "now" means now; "HH:MM"
// means the next occurrence of that wall-clock time (today, or tomorrow when
// today's is not after now); "DD.MM.YYYY HH:MM" is taken literally.
func (z *Zone) ParseRestart(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "now") {
		return now.In(z.loc), nil
	}
	if t, ok, err := z.parseDateTime(s); ok {
		return t, err
	}
	h, m, ok := parseClock(s)
	if !ok {
		return time.Time{}, ErrBadTime
	}
	l := now.In(z.loc)
	t := time.Date(l.Year(), l.Month(), l.Day(), h, m, 0, 0, z.loc)
	if !t.After(l) {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

// ParseKill reads a kill time. "HH:MM" resolves to today, or to yesterday when
// today's would be in the future; "DD.MM.YYYY HH:MM" is taken literally.
// Callers treat a missing argument as now before reaching here.
func (z *Zone) ParseKill(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, ok, err := z.parseDateTime(s); ok {
		return t, err
	}
	h, m, ok := parseClock(s)
	if !ok {
		return time.Time{}, ErrBadTime
	}
	l := now.In(z.loc)
	t := time.Date(l.Year(), l.Month(), l.Day(), h, m, 0, 0, z.loc)
	if t.After(l) {
		t = t.AddDate(0, 0, -1)
	}
	return t, nil
}

// FormatShort renders HH:MM, or "--:--" for an unscheduled value.
func (z *Zone) FormatShort(t *time.Time) string {
	if t == nil {
		return "--:--"
	}
	return t.In(z.loc).Format(layoutShort)
}

// FormatFull renders DD.MM.YYYY HH:MM.
func (z *Zone) FormatFull(t time.Time) string {
	return t.In(z.loc).Format(layoutFull)
}

func (z *Zone) parseDateTime(s string) (time.Time, bool, error) {
	m := reDateTime.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false, nil
	}
	n := atoiAll(m[1:])
	day, month, year, hour, minute := n[0], n[1], n[2], n[3], n[4]
	if hour > 23 || minute > 59 {
		return time.Time{}, true, ErrBadTime
	}
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, z.loc)
	// time.Date normalizes 31.02 into March; reject instead.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, true, ErrBadTime
	}
	return t, true, nil
}

func parseClock(s string) (hour, minute int, ok bool) {
	m := reClock.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	n := atoiAll(m[1:])
	if n[0] > 23 || n[1] > 59 {
		return 0, 0, false
	}
	return n[0], n[1], true
}

func atoiAll(parts []string) []int {
	out := make([]int, len(parts))
	for i, p := range parts {
		out[i], _ = strconv.Atoi(p)
	}
	return out
}
