package notifications

import (
	"time"

	"github.com/albapepper/bosswatch/internal/ledger"
)

// Due reports which alert, if any, is due for an occurrence delta away:
// the appearance (lead 0) when delta is within (−1m, +1m], otherwise the
// first lead L (in the given descending order) with delta within
// [L−1m, L+1m]. At most one alert is due per evaluation.
func Due(delta time.Duration, leads []int) (lead int, ok bool) {
	if delta <= -window {
		return 0, false
	}
	if delta <= window {
		return ledger.Appearance, true
	}
	for _, l := range leads {
		target := time.Duration(l) * time.Minute
		if delta >= target-window && delta <= target+window {
			return l, true
		}
	}
	return 0, false
}
