package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DebounceKind names the input a debounce tick belongs to.
type DebounceKind int

const (
	DebounceSearch DebounceKind = iota
	DebounceTreeFilter
	DebounceRelayout
)

func (k DebounceKind) String() string {
	switch k {
	case DebounceSearch:
		return "search"
	case DebounceTreeFilter:
		return "tree_filter"
	default:
		return "relayout"
	}
}

// DebounceTickMsg is delivered when a debounce delay elapses. Only the tick
// carrying the latest generation for its kind is acted on.
type DebounceTickMsg struct {
	Kind  DebounceKind
	Gen   uint64
	Value string
}

// Debouncer coalesces a burst of input events into the last one. Each
// Trigger starts a tea.Tick tagged with a fresh generation; ticks from
// earlier generations are ignored by Fire. It must only be used from the
// bubbletea update loop.
type Debouncer struct {
	kind  DebounceKind
	delay time.Duration
	gen   uint64
}

// NewDebouncer returns a debouncer for kind with the given quiet period.
func NewDebouncer(kind DebounceKind, delay time.Duration) *Debouncer {
	return &Debouncer{kind: kind, delay: delay}
}

// Trigger records an event carrying value and returns the tick command.
// A zero delay fires on the next update.
func (d *Debouncer) Trigger(value string) tea.Cmd {
	d.gen++
	msg := DebounceTickMsg{Kind: d.kind, Gen: d.gen, Value: value}
	if d.delay <= 0 {
		return func() tea.Msg { return msg }
	}
	return tea.Tick(d.delay, func(time.Time) tea.Msg { return msg })
}

// Fire reports whether msg is the latest tick for this debouncer.
func (d *Debouncer) Fire(msg DebounceTickMsg) bool {
	return msg.Kind == d.kind && msg.Gen == d.gen
}

// Cancel invalidates any pending tick.
func (d *Debouncer) Cancel() {
	d.gen++
}

// Delay returns the quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}
