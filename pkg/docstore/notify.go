package docstore

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type notificationConn interface {
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

// changeHub shares one LISTEN connection between every live subscription of
// a store. The connection is opened by the first subscriber and closed when
// the last one leaves.
type changeHub struct {
	connect func(ctx context.Context) (notificationConn, error)
	logger  *zap.Logger

	mu      sync.Mutex
	waiters map[*changeWaiter]struct{}
	run     *hubRun
}

type hubRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// changeWaiter is one subscriber's view of the hub. wake holds at most one
// pending signal; lost receives the error that ended the shared connection.
type changeWaiter struct {
	collection string
	wake       chan struct{}
	lost       chan error
}

func newChangeHub(connect func(ctx context.Context) (notificationConn, error), logger *zap.Logger) *changeHub {
	return &changeHub{
		connect: connect,
		logger:  logger,
		waiters: make(map[*changeWaiter]struct{}),
	}
}

func (h *changeHub) join(ctx context.Context, collection string) (*changeWaiter, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.run == nil {
		conn, err := h.connect(ctx)
		if err != nil {
			return nil, err
		}
		runCtx, cancel := context.WithCancel(context.Background())
		run := &hubRun{cancel: cancel, done: make(chan struct{})}
		h.run = run
		go h.listen(runCtx, run, conn)
	}

	w := &changeWaiter{
		collection: collection,
		wake:       make(chan struct{}, 1),
		lost:       make(chan error, 1),
	}
	h.waiters[w] = struct{}{}
	return w, nil
}

func (h *changeHub) leave(w *changeWaiter) {
	h.mu.Lock()
	delete(h.waiters, w)
	var run *hubRun
	if len(h.waiters) == 0 && h.run != nil {
		run = h.run
		h.run = nil
	}
	h.mu.Unlock()

	if run != nil {
		run.cancel()
		<-run.done
	}
}

func (h *changeHub) listen(ctx context.Context, run *hubRun, conn notificationConn) {
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		conn.Close(closeCtx)
		close(run.done)
	}()

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			h.logger.Warn("change listener failed", zap.Error(err))
			h.drop(run, classify(err))
			return
		}
		h.dispatch(n.Payload)
	}
}

func (h *changeHub) dispatch(collection string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for w := range h.waiters {
		if w.collection != collection {
			continue
		}
		select {
		case w.wake <- struct{}{}:
		default:
		}
	}
}

// drop hands err to every current waiter and detaches them, so the next
// subscriber opens a fresh connection.
func (h *changeHub) drop(run *hubRun, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.run != run {
		return
	}
	h.run = nil
	for w := range h.waiters {
		w.lost <- err
		delete(h.waiters, w)
	}
}
