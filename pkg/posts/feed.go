package posts

import (
	"go.uber.org/zap"

	"launchpad/pkg/docstore"
)

// Feed is a live view of every post, newest first. Like its source it keeps
// only the latest undelivered snapshot.
type Feed struct {
	src     *docstore.Subscription
	updates chan []Post
	done    chan struct{}
}

func newFeed(src *docstore.Subscription, logger *zap.Logger) *Feed {
	f := &Feed{src: src, updates: make(chan []Post, 1), done: make(chan struct{})}
	go f.run(logger)
	return f
}

func (f *Feed) run(logger *zap.Logger) {
	defer close(f.done)
	defer close(f.updates)
	for docs := range f.src.Updates() {
		list, err := docstore.DecodeAll[Post](docs)
		if err != nil {
			logger.Warn("skipping undecodable feed snapshot", zap.Error(err))
			continue
		}
		select {
		case <-f.updates:
		default:
		}
		f.updates <- list
	}
}

// Updates is closed once the feed ends.
func (f *Feed) Updates() <-chan []Post {
	return f.updates
}

func (f *Feed) Close() {
	f.src.Close()
	<-f.done
}

func (f *Feed) Err() error {
	return f.src.Err()
}
