package watcher

import (
	"time"

	"github.com/HendryAvila/specgate/internal/specs"
	"github.com/HendryAvila/specgate/internal/validate"
)

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// FileEvent is a change to one markdown file.
type FileEvent struct {
	Path      string
	Type      EventType
	Timestamp time.Time
}

// Result is the outcome of re-validating one spec after a batch of
// changes. Files lists the changed paths that belong to the spec.
type Result struct {
	Spec   *specs.Spec
	Report *validate.SpecReport
	Files  []string
}

// Handler receives each re-validation result. It is called from the
// debouncer goroutine, one result at a time.
type Handler func(Result)
