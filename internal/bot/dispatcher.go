package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"
)

const queueSize = 64

// dispatcher shards updates by user id so that one user's updates are handled
// in arrival order while different users proceed in parallel.
type dispatcher struct {
	queues []chan tgbotapi.Update
	handle func(context.Context, tgbotapi.Update)
}

func newDispatcher(workers int, handle func(context.Context, tgbotapi.Update)) *dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &dispatcher{
		queues: make([]chan tgbotapi.Update, workers),
		handle: handle,
	}
	for i := range d.queues {
		d.queues[i] = make(chan tgbotapi.Update, queueSize)
	}
	return d
}

func (d *dispatcher) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, q := range d.queues {
		q := q
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case update := <-q:
					d.handle(ctx, update)
				}
			}
		})
	}
	return g.Wait()
}

func (d *dispatcher) submit(ctx context.Context, update tgbotapi.Update) error {
	q := d.queues[shard(userOf(update), len(d.queues))]
	select {
	case q <- update:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func shard(userID int64, n int) int {
	return int(uint64(userID) % uint64(n))
}

func userOf(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID
	}
	return 0
}
