package seed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/albapepper/bosswatch/internal/boss"
)

// Entry is one boss in the catalog file. Durations use the admin syntax
// ("10h", "2h30m", "1d", bare minutes); Chance accepts "50" or "50%".
type Entry struct {
	Name    string `yaml:"name"`
	Chance  string `yaml:"chance"`
	Respawn string `yaml:"respawn"`
	First   string `yaml:"first,omitempty"`
}

// Catalog is the file root.
type Catalog struct {
	Bosses []Entry `yaml:"bosses"`
}

// LoadFile reads a catalog from path.
func LoadFile(path string) (Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a catalog. Unknown keys are rejected.
func Decode(r io.Reader) (Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	return c, nil
}

// Input converts the entry into validated service input.
func (e Entry) Input() (boss.Input, error) {
	chance := 100
	if s := strings.TrimSuffix(strings.TrimSpace(e.Chance), "%"); s != "" {
		if _, err := fmt.Sscanf(s, "%d", &chance); err != nil {
			return boss.Input{}, fmt.Errorf("chance %q: %w", e.Chance, boss.ErrInvalidChance)
		}
	}
	respawn, err := boss.ParseDuration(e.Respawn)
	if err != nil {
		return boss.Input{}, fmt.Errorf("respawn: %w", err)
	}
	in := boss.Input{Name: e.Name, ChancePercent: chance, RespawnMinutes: respawn}
	if strings.TrimSpace(e.First) != "" {
		first, err := boss.ParseDuration(e.First)
		if err != nil {
			return boss.Input{}, fmt.Errorf("first: %w", err)
		}
		in.FirstSpawnMinutes = &first
	}
	return in.Validate()
}

// Seed inserts catalog bosses that are not in the store yet (matched by
// name). With update set, existing bosses get their catalog fields replaced;
// kill state is kept either way.
func Seed(ctx context.Context, svc *boss.Service, c Catalog, update bool, logger *slog.Logger) SeedResult {
	var result SeedResult

	existing, err := svc.Store().ListBosses(ctx)
	if err != nil {
		result.AddErrorf("list bosses: %v", err)
		return result
	}
	byName := make(map[string]boss.Boss, len(existing))
	for _, b := range existing {
		byName[strings.TrimSpace(b.Name)] = b
	}

	for i, e := range c.Bosses {
		in, err := e.Input()
		if err != nil {
			result.AddErrorf("entry %d (%s): %v", i+1, e.Name, err)
			continue
		}
		cur, found := byName[in.Name]
		switch {
		case !found:
			b, err := svc.AddBoss(ctx, in)
			if err != nil {
				result.AddErrorf("add %s: %v", in.Name, err)
				continue
			}
			byName[in.Name] = b
			result.Added++
		case update:
			if _, err := svc.EditBoss(ctx, cur.ID, in); err != nil {
				result.AddErrorf("update %s: %v", in.Name, err)
				continue
			}
			result.Updated++
		default:
			result.Skipped++
		}
	}
	logger.Info("Catalog seeded", "summary", result.Summary())
	return result
}
