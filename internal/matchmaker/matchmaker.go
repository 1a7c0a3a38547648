package matchmaker

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/engine"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/league"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/obslog"
	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/store"
)

// Matchmaker pairs ready players into matches on a fixed cadence. The
// selection policy keeps the schedule even: the pair with the most
// unplayed legs between them goes first, with random tie-breaks so the
// same two players do not monopolize the slot list.
type Matchmaker struct {
	eng     *engine.Engine
	store   store.Store
	guildID string

	interval time.Duration
	kick     chan struct{}
	intn     func(n int) int
}

func New(eng *engine.Engine, st store.Store, guildID string, interval time.Duration) *Matchmaker {
	return &Matchmaker{
		eng:      eng,
		store:    st,
		guildID:  guildID,
		interval: interval,
		kick:     make(chan struct{}, 1),
		intn:     rand.Intn,
	}
}

// TickNow requests an immediate pairing pass, coalescing with any
// already-pending request. Safe from any goroutine.
func (mm *Matchmaker) TickNow() {
	select {
	case mm.kick <- struct{}{}:
	default:
	}
}

// Run drives the pairing loop until the context ends. The first pass
// happens immediately so a restart does not leave queued players
// waiting a full interval.
func (mm *Matchmaker) Run(ctx context.Context) {
	ticker := time.NewTicker(mm.interval)
	defer ticker.Stop()

	mm.tickLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mm.tickLogged(ctx)
		case <-mm.kick:
			mm.tickLogged(ctx)
		}
	}
}

func (mm *Matchmaker) tickLogged(ctx context.Context) {
	if err := mm.Tick(ctx); err != nil {
		obslog.L().Error("matchmaker tick failed", zap.Error(err))
	}
}

// Tick runs one pairing pass: fixtures are topped up for the current
// roster, then the ready pool is drained pair by pair.
func (mm *Matchmaker) Tick(ctx context.Context) error {
	if _, err := mm.eng.GenerateFixtures(ctx, ""); err != nil {
		return err
	}

	gs, err := mm.eng.GuildConfig(ctx, mm.guildID)
	if err != nil {
		return err
	}
	if gs.ResultsChannelID == "" {
		// Nowhere to announce; pairing would strand claimed fixtures.
		mm.auditSkip(ctx, "matchmaking_channel_missing")
		return nil
	}

	pool, err := mm.readyPool(ctx)
	if err != nil {
		return err
	}

	for len(pool) >= 2 {
		fixtures, err := mm.store.UnplayedFixturesAmong(ctx, pool)
		if err != nil {
			return err
		}
		if len(fixtures) == 0 {
			mm.auditSkip(ctx, "matchmaking_no_fixture")
			return nil
		}

		f := mm.pickFixture(fixtures)
		_, err = mm.eng.CreateMatchForFixture(ctx, mm.guildID, f.ID)
		switch {
		case err == nil:
			pool = without(pool, f.PlayerA, f.PlayerB)
		case errors.Is(err, store.ErrFixtureClaimed):
			// Someone else took it between snapshot and claim; their
			// match removes the players from the queue, so just drop
			// them from this pass.
			pool = without(pool, f.PlayerA, f.PlayerB)
		default:
			obslog.L().Warn("pairing failed",
				zap.Int64("fixture_id", f.ID),
				zap.Error(err))
			pool = without(pool, f.PlayerA, f.PlayerB)
		}
	}
	return nil
}

// readyPool is the queue minus anyone already in an open match.
func (mm *Matchmaker) readyPool(ctx context.Context) ([]string, error) {
	queue, err := mm.store.Queue(ctx)
	if err != nil {
		return nil, err
	}
	pool := make([]string, 0, len(queue))
	for _, q := range queue {
		open, err := mm.store.OpenMatchFor(ctx, q.UserID)
		if err != nil {
			return nil, err
		}
		if open == nil {
			pool = append(pool, q.UserID)
		}
	}
	return pool, nil
}

// pickFixture chooses the pair with the most remaining legs, breaking
// ties randomly, then the lowest leg (and ID) of that pair.
func (mm *Matchmaker) pickFixture(fixtures []league.Fixture) *league.Fixture {
	byPair := make(map[string][]league.Fixture)
	for _, f := range fixtures {
		low, high := league.NormalizePair(f.PlayerA, f.PlayerB)
		key := low + "|" + high
		byPair[key] = append(byPair[key], f)
	}

	keys := make([]string, 0, len(byPair))
	for k := range byPair {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best := -1
	var candidates []string
	for _, k := range keys {
		n := len(byPair[k])
		if n > best {
			best = n
			candidates = candidates[:0]
		}
		if n == best {
			candidates = append(candidates, k)
		}
	}
	chosen := byPair[candidates[mm.intn(len(candidates))]]

	sort.Slice(chosen, func(i, j int) bool {
		if chosen[i].Leg != chosen[j].Leg {
			return chosen[i].Leg < chosen[j].Leg
		}
		return chosen[i].ID < chosen[j].ID
	})
	return &chosen[0]
}

func (mm *Matchmaker) auditSkip(ctx context.Context, action string) {
	err := mm.store.AppendAudit(ctx, &league.AuditEntry{Actor: "", Action: action})
	if err != nil {
		obslog.L().Warn("audit append failed", zap.String("action", action), zap.Error(err))
	}
}

func without(pool []string, drop ...string) []string {
	out := pool[:0]
	for _, p := range pool {
		skip := false
		for _, d := range drop {
			if p == d {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, p)
		}
	}
	return out
}
