package notifications

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// dispatch delivers alerts to every subscriber concurrently under one
// DispatchTimeout deadline for the whole fan-out. Each subscriber gets its
// alerts in order; a permanent failure prunes it and a missed deadline drops
// the rest of its batch.
func (s *Scheduler) dispatch(ctx context.Context, subs []string, alerts []Alert) []Delivery {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DispatchTimeout)
	defer cancel()

	var (
		mu         sync.Mutex
		deliveries = make([]Delivery, 0, len(subs))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			d := s.deliver(gctx, sub, alerts)
			mu.Lock()
			deliveries = append(deliveries, d)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return deliveries
}

func (s *Scheduler) deliver(ctx context.Context, sub string, alerts []Alert) Delivery {
	d := Delivery{Subscriber: sub}
	for i, a := range alerts {
		if err := ctx.Err(); err != nil {
			d.Err = err
			d.Dropped = len(alerts) - i
			s.logger.Warn("delivery deadline reached", "subscriber", sub, "dropped", d.Dropped)
			return d
		}
		err := s.sender.Send(ctx, sub, a)
		if err == nil {
			d.Sent++
			continue
		}
		d.Err = err
		if IsPermanent(err) {
			d.Pruned = s.subscribers.Remove(sub)
			s.logger.Warn("subscriber pruned", "subscriber", sub, "error", err)
			return d
		}
		s.logger.Warn("send failed", "subscriber", sub, "boss_id", a.Boss.ID, "lead", a.Lead, "error", err)
	}
	return d
}

// Broadcast sends alerts outside the tick loop (restart announcements,
// admin tests) with the same pruning rules.
func (s *Scheduler) Broadcast(ctx context.Context, alerts []Alert) []Delivery {
	subs := s.subscribers.List()
	if len(subs) == 0 || len(alerts) == 0 {
		return nil
	}
	return s.dispatch(ctx, subs, alerts)
}
