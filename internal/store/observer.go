package store

import "time"

// List names reported to an Observer.
const (
	ListSubjects   = "subjects"
	ListSemesters  = "semesters"
	ListBackground = "background"
)

// Operation names reported to an Observer.
const (
	OpAdd    = "add"
	OpUpdate = "update"
	OpRemove = "remove"
	OpReset  = "reset"
	OpDerive = "derive"
	OpToggle = "toggle"
	OpClear  = "clear"
	OpImport = "import"
)

// Observer receives store activity, typically for metrics.
type Observer interface {
	RecordMutation(list, op string)
	RecordEntries(list string, n int)
	RecordPersist(key string, duration time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) RecordMutation(string, string)              {}
func (nopObserver) RecordEntries(string, int)                  {}
func (nopObserver) RecordPersist(string, time.Duration, error) {}
