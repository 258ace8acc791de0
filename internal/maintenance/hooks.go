package maintenance

import (
	"log/slog"

	"github.com/albapepper/bosswatch/internal/boss"
)

// Purger drops cached read responses.
type Purger interface {
	Purge() int
}

// Kicker requests an immediate scheduler cycle.
type Kicker interface {
	Kick()
}

// AfterChange returns the hook to run after every committed mutation, local
// or announced by another process: purge cached reads so the next list is
// fresh, then kick the scheduler so alerts reflect the new anchors now
// instead of on the next tick.
func AfterChange(c Purger, k Kicker, logger *slog.Logger) func(boss.Change) {
	return func(ch boss.Change) {
		purged := 0
		if c != nil {
			purged = c.Purge()
		}
		if k != nil {
			k.Kick()
		}
		logger.Debug("State changed", "kind", ch.Kind, "boss_id", ch.BossID, "cache_purged", purged)
	}
}
