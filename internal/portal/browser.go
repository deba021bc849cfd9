package portal

import (
	"context"
	"time"
)

// By names a selector strategy.
type By int

const (
	ByCSS By = iota
	ByXPath
)

// Selector locates elements in the live page.
type Selector struct {
	By    By
	Query string
}

func CSS(q string) Selector   { return Selector{By: ByCSS, Query: q} }
func XPath(q string) Selector { return Selector{By: ByXPath, Query: q} }

// Browser is the automation surface the driver runs against. The production
// implementation is a chromedp session; tests substitute a fake. Handles are
// only valid while the session is open.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	// Find returns the first matching element or an error marked ErrNoElement.
	Find(ctx context.Context, sel Selector) (Element, error)
	// FindAll returns every matching element; zero matches is not an error.
	FindAll(ctx context.Context, sel Selector) ([]Element, error)
	// WaitReady polls until sel matches something or timeout elapses. A false
	// return means the caller should fall back to a fixed settle delay.
	WaitReady(ctx context.Context, sel Selector, timeout time.Duration) bool
	// Settle waits a fixed duration for the page to reach a stable state.
	Settle(ctx context.Context, d time.Duration) error
	// Close tears the session down. Safe to call exactly once per session.
	Close() error
}

// Element is one located control in the active session.
type Element interface {
	Text(ctx context.Context) (string, error)
	Click(ctx context.Context) error
	TagName(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
	SetValue(ctx context.Context, value string) error
	SelectValue(ctx context.Context, value string) error
	SelectLabel(ctx context.Context, label string) error
}

// CredentialProvider supplies portal login credentials when the portal asks
// for them. The default provider has none; the driver logs and proceeds.
type CredentialProvider interface {
	Credentials(ctx context.Context) (username, password string, ok bool)
}

// NoCredentials is the stub provider: authenticated sessions are out of scope.
type NoCredentials struct{}

func (NoCredentials) Credentials(context.Context) (string, string, bool) { return "", "", false }
