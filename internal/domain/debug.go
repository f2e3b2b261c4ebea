package domain

import (
	"fmt"
	"sync"
)

// FetchDebug collects what happened during one fetch cycle. It is returned
// to the dashboard only when the pipeline fails.
type FetchDebug struct {
	mu sync.Mutex

	Platform        Platform `json:"platform"`
	HashtagsTried   []string `json:"hashtagsTried"`
	Passes          int      `json:"passes"`
	ItemsSeen       int      `json:"itemsSeen"`
	RejectedViews   int      `json:"rejectedViews"`
	RejectedAge     int      `json:"rejectedAge"`
	RejectedContent int      `json:"rejectedContent"`
	RejectedNoID    int      `json:"rejectedNoId"`
	Duplicates      int      `json:"duplicates"`
	Errors          []string `json:"errors"`
}

func NewFetchDebug(platform Platform) *FetchDebug {
	return &FetchDebug{
		Platform:      platform,
		HashtagsTried: []string{},
		Errors:        []string{},
	}
}

func (d *FetchDebug) AddError(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Errors = append(d.Errors, fmt.Sprintf(format, args...))
}

func (d *FetchDebug) AddHashtag(tag string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.HashtagsTried = append(d.HashtagsTried, tag)
}

// Reject bumps the counter for reason.
func (d *FetchDebug) Reject(reason RejectReason) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch reason {
	case RejectViews:
		d.RejectedViews++
	case RejectAge:
		d.RejectedAge++
	case RejectContent:
		d.RejectedContent++
	case RejectNoID:
		d.RejectedNoID++
	case RejectDuplicate:
		d.Duplicates++
	}
}

func (d *FetchDebug) Seen(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ItemsSeen += n
}

type RejectReason string

const (
	RejectNone      RejectReason = ""
	RejectViews     RejectReason = "views"
	RejectAge       RejectReason = "age"
	RejectContent   RejectReason = "content"
	RejectNoID      RejectReason = "no_id"
	RejectDuplicate RejectReason = "duplicate"
)
