package worker

import (
	"context"
	"errors"
	"sync"

	"cafeteria-storefront/internal/common/logger"
	"cafeteria-storefront/internal/domain"
)

const (
	inboxSize  = 64
	clientSize = 16
)

var ErrStopped = errors.New("worker stopped")

// Envelope is one inbox entry. From is the page (session) that posted it.
type Envelope struct {
	From string
	Msg  domain.WorkerMessage
}

type HandlerFunc func(ctx context.Context, w *Worker, env Envelope)

// Worker is the background worker shared by every page. All message handling
// happens on the goroutine running Run; pages talk to it only through Post
// and their Client receive channel.
type Worker struct {
	lg    *logger.Logger
	inbox chan Envelope
	done  chan struct{}
	stop  sync.Once

	hmu      sync.RWMutex
	handlers map[domain.MessageType]HandlerFunc

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func New(lg *logger.Logger) *Worker {
	w := &Worker{
		lg:       lg,
		inbox:    make(chan Envelope, inboxSize),
		done:     make(chan struct{}),
		handlers: make(map[domain.MessageType]HandlerFunc),
		clients:  make(map[string]map[*Client]struct{}),
	}
	w.Handle(domain.MsgAdminSettingsChanged, relaySettings)
	w.Handle(domain.MsgShowNotification, showNotification)
	return w
}

// Handle registers h for messages of type t, replacing any previous handler.
func (w *Worker) Handle(t domain.MessageType, h HandlerFunc) {
	w.hmu.Lock()
	w.handlers[t] = h
	w.hmu.Unlock()
}

// Run processes the inbox until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	w.lg.Info("worker_started", nil)
	defer w.stop.Do(func() { close(w.done) })
	for {
		select {
		case <-ctx.Done():
			w.lg.Info("worker_stopped", nil)
			return nil
		case env := <-w.inbox:
			w.dispatch(ctx, env)
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, env Envelope) {
	w.hmu.RLock()
	h, ok := w.handlers[env.Msg.Type]
	w.hmu.RUnlock()
	if !ok {
		w.lg.Debug("worker_message_ignored", map[string]any{"type": env.Msg.Type, "from": env.From})
		return
	}
	h(ctx, w, env)
}

// Ready reports ErrStopped once Run has returned.
func (w *Worker) Ready() error {
	select {
	case <-w.done:
		return ErrStopped
	default:
		return nil
	}
}

// Post queues msg from page. It blocks while the inbox is full.
func (w *Worker) Post(from string, msg domain.WorkerMessage) error {
	select {
	case <-w.done:
		return ErrStopped
	default:
	}
	select {
	case w.inbox <- Envelope{From: from, Msg: msg}:
		return nil
	case <-w.done:
		return ErrStopped
	}
}

// Connect attaches a page client. A page may hold several clients (tabs).
func (w *Worker) Connect(pageID string) *Client {
	c := &Client{pageID: pageID, w: w, ch: make(chan domain.WorkerMessage, clientSize)}
	w.mu.Lock()
	set, ok := w.clients[pageID]
	if !ok {
		set = make(map[*Client]struct{})
		w.clients[pageID] = set
	}
	set[c] = struct{}{}
	w.mu.Unlock()
	return c
}

// Broadcast delivers msg to every connected page.
func (w *Worker) Broadcast(msg domain.WorkerMessage) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, set := range w.clients {
		for c := range set {
			w.deliver(c, msg)
		}
	}
}

// SendTo delivers msg to the clients of one page.
func (w *Worker) SendTo(pageID string, msg domain.WorkerMessage) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	n := 0
	for c := range w.clients[pageID] {
		w.deliver(c, msg)
		n++
	}
	return n
}

// Clients reports how many clients are attached to pageID.
func (w *Worker) Clients(pageID string) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.clients[pageID])
}

// deliver must be called with w.mu held. Slow clients lose messages.
func (w *Worker) deliver(c *Client, msg domain.WorkerMessage) {
	select {
	case c.ch <- msg:
	default:
		w.lg.Warn("worker_client_lagging", nil, map[string]any{"page_id": c.pageID, "type": msg.Type})
	}
}

func (w *Worker) detach(c *Client) {
	w.mu.Lock()
	defer w.mu.Unlock()
	set, ok := w.clients[c.pageID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(w.clients, c.pageID)
	}
	close(c.ch)
}

// Port returns the send side of the channel for pageID.
func (w *Worker) Port(pageID string) Port {
	return Port{w: w, pageID: pageID}
}

func relaySettings(_ context.Context, w *Worker, env Envelope) {
	if env.Msg.Settings == nil {
		w.lg.Warn("worker_settings_missing", nil, map[string]any{"from": env.From})
		return
	}
	w.Broadcast(domain.WorkerMessage{Type: domain.MsgAdminSettingsUpdate, Data: *env.Msg.Settings})
}

func showNotification(_ context.Context, w *Worker, env Envelope) {
	if n := w.SendTo(env.From, domain.WorkerMessage{Type: domain.MsgNotification, Data: env.Msg.Data}); n == 0 {
		w.lg.Debug("notification_undelivered", map[string]any{"page_id": env.From})
	}
}
