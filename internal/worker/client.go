package worker

import (
	"sync"

	"cafeteria-storefront/internal/domain"
)

// Client is one page's receive side of the worker channel.
type Client struct {
	pageID string
	w      *Worker
	ch     chan domain.WorkerMessage
	once   sync.Once
}

func (c *Client) PageID() string { return c.pageID }

func (c *Client) Messages() <-chan domain.WorkerMessage { return c.ch }

func (c *Client) Post(msg domain.WorkerMessage) error { return c.w.Post(c.pageID, msg) }

// Close detaches the client and closes its channel.
func (c *Client) Close() {
	c.once.Do(func() { c.w.detach(c) })
}

// Port posts to the worker on behalf of a page without receiving.
type Port struct {
	w      *Worker
	pageID string
}

func (p Port) Post(msg domain.WorkerMessage) error { return p.w.Post(p.pageID, msg) }

// ShowNotification asks the worker to display n on this page.
func (p Port) ShowNotification(n domain.Notification) error {
	return p.Post(domain.WorkerMessage{Type: domain.MsgShowNotification, Data: n})
}

// SettingsChanged tells the worker the admin settings changed.
func (p Port) SettingsChanged(s domain.AdminSettings) error {
	return p.Post(domain.WorkerMessage{Type: domain.MsgAdminSettingsChanged, Settings: &s})
}
