package domain

import "time"

// ClickEvent is one recorded redirect. A link owns many events; events are
// immutable once written and are removed with their link.
//
// Every derived field is a pointer: nil means the value could not be
// determined, and partially populated garbage is never stored. VisitorHash
// is an opaque digest; the raw IP it was derived from is never persisted.
type ClickEvent struct {
	ID             int64
	LinkID         int64
	ClickedAt      time.Time
	ReferrerHost   *string
	UARaw          *string
	VisitorHash    *string
	Country        *string
	DeviceCategory *string
	BrowserName    *string
	BrowserVersion *string
	OSName         *string
	OSVersion      *string
	Engine         *string
}

// NewClickEvent creates an event for a link with the server-assigned
// timestamp. Derived fields are filled in by the recorder.
func NewClickEvent(linkID int64) *ClickEvent {
	return &ClickEvent{
		LinkID:    linkID,
		ClickedAt: time.Now().UTC(),
	}
}
