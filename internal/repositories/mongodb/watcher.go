package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// defaultPollInterval is the re-query cadence when change streams are not
// available (standalone deployments without an oplog).
const defaultPollInterval = 2 * time.Second

// watchCollection starts a coarse change feed for a collection. Each event
// means "something changed, re-read"; consecutive events are coalesced. It
// prefers a change stream and falls back to polling when the deployment does
// not support streams, so observers behave identically either way.
func watchCollection(ctx context.Context, coll *mongo.Collection) (<-chan struct{}, func(), error) {
	events := make(chan struct{}, 1)
	wctx, cancel := context.WithCancel(ctx)

	stream, err := coll.Watch(wctx, mongo.Pipeline{})
	if err != nil {
		go pollLoop(wctx, events)
		return events, cancel, nil
	}

	go func() {
		defer close(events)
		defer stream.Close(context.Background())
		for stream.Next(wctx) {
			notify(events)
		}
	}()
	return events, cancel, nil
}

func pollLoop(ctx context.Context, events chan struct{}) {
	defer close(events)
	ticker := time.NewTicker(defaultPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			notify(events)
		}
	}
}

// notify coalesces: an event already pending makes this one redundant.
func notify(events chan struct{}) {
	select {
	case events <- struct{}{}:
	default:
	}
}
