// Package headless drives a real browser to a listing page and captures the
// PDF brochure behind its print control.
package headless

import (
	"context"
	"time"
)

// Session is one isolated browser whose downloads land in a single directory.
// Element operations act on the control marked by the last successful Mark.
type Session interface {
	// Open navigates to url and waits up to timeout for the document body.
	Open(url string, timeout time.Duration) error
	// Scroll moves the viewport down by dy pixels.
	Scroll(dy int) error
	// Mark runs a locator script and reports whether it marked a control.
	Mark(script string) (bool, error)
	ScrollIntoView() error
	NativeClick() error
	ScriptClick() error
	// FollowNewTab switches to a tab opened after Open, reporting whether one existed.
	FollowNewTab() (bool, error)
	CurrentURL() (string, error)
	// ReadBlob returns the bytes behind a blob: URL of the current page.
	ReadBlob(blobURL string) ([]byte, error)
	Close() error
}

// SessionFactory launches a session bound to ctx that downloads into downloadDir.
type SessionFactory func(ctx context.Context, downloadDir string) (Session, error)
