package service

import (
	"context"
	"errors"
	"sync"
)

type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

func ParsePermission(s string) Permission {
	switch Permission(s) {
	case PermissionGranted:
		return PermissionGranted
	case PermissionDenied:
		return PermissionDenied
	default:
		return PermissionDefault
	}
}

var ErrUnsupported = errors.New("notifications not supported")

// Platform is the notification capability of one page.
type Platform interface {
	Supported() bool
	RegisterWorker(ctx context.Context) error
	Permission() Permission
	RequestPermission(ctx context.Context) Permission
}

// BrowserPlatform mirrors what the browser reports about itself. The browser
// owns the permission prompt and reports the outcome through Report.
type BrowserPlatform struct {
	mu         sync.RWMutex
	supported  bool
	permission Permission
	register   func(ctx context.Context) error
}

func NewBrowserPlatform(supported bool, permission Permission, register func(ctx context.Context) error) *BrowserPlatform {
	return &BrowserPlatform{supported: supported, permission: permission, register: register}
}

func (p *BrowserPlatform) Supported() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.supported
}

func (p *BrowserPlatform) RegisterWorker(ctx context.Context) error {
	if !p.Supported() {
		return ErrUnsupported
	}
	if p.register == nil {
		return nil
	}
	return p.register(ctx)
}

func (p *BrowserPlatform) Permission() Permission {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.permission
}

func (p *BrowserPlatform) RequestPermission(context.Context) Permission {
	return p.Permission()
}

// Report records a permission decision made by the browser.
func (p *BrowserPlatform) Report(supported bool, perm Permission) {
	p.mu.Lock()
	p.supported = supported
	p.permission = perm
	p.mu.Unlock()
}
