package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/taxa/pkg/detail"
	"github.com/vanderheijden86/taxa/pkg/hierarchy"
	"github.com/vanderheijden86/taxa/pkg/listing"
	"github.com/vanderheijden86/taxa/pkg/model"
)

// TreeUpdatedMsg carries a freshly loaded hierarchy, or the reason it
// could not be loaded.
type TreeUpdatedMsg struct {
	Tree *hierarchy.Tree
	Err  error
}

// ListingLoadedMsg is a successful listing fetch. Its sequence number is
// checked against the gateway before the page is shown.
type ListingLoadedMsg struct {
	listing.Result
}

// ListingErrorMsg is a failed listing fetch.
type ListingErrorMsg struct {
	listing.Result
}

// SlowCheckMsg fires when request Seq has been running for the slow
// threshold.
type SlowCheckMsg struct {
	Seq uint64
}

// FileChangedMsg signals that a watched records file changed on disk.
type FileChangedMsg struct{}

// FilesReloadedMsg reports the outcome of re-importing changed files.
type FilesReloadedMsg struct {
	Err error
}

// DetailLoadedMsg carries the record opened in the detail pane.
type DetailLoadedMsg struct {
	Record model.RecordSummary
	Err    error
}

// LoadTreeCmd fetches the hierarchy from src.
func LoadTreeCmd(ctx context.Context, src listing.Source) tea.Cmd {
	return func() tea.Msg {
		t, err := listing.LoadTree(ctx, src)
		return TreeUpdatedMsg{Tree: t, Err: err}
	}
}

// FetchCmd runs req on the gateway and reports the result as a message.
// Resolution happens in Update so stale results are dropped there.
func FetchCmd(ctx context.Context, g *listing.Gateway, req listing.Request) tea.Cmd {
	return func() tea.Msg {
		res := g.Execute(ctx, req)
		if res.Err != nil {
			return ListingErrorMsg{Result: res}
		}
		return ListingLoadedMsg{Result: res}
	}
}

// SlowCheckCmd schedules the "taking too long" check for seq.
func SlowCheckCmd(after time.Duration, seq uint64) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return SlowCheckMsg{Seq: seq}
	})
}

// WatchChangesCmd waits for the next change notification.
func WatchChangesCmd(changes <-chan struct{}) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return FileChangedMsg{}
	}
}

// ReloadFilesCmd re-imports the records files behind the session.
func ReloadFilesCmd(ctx context.Context, reload func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		if err := reload(ctx); err != nil {
			return FilesReloadedMsg{Err: fmt.Errorf("reloading records: %w", err)}
		}
		return FilesReloadedMsg{}
	}
}

// DetailCmd resolves id against the gateway's current page.
func DetailCmd(ctx context.Context, g *listing.Gateway, id string) tea.Cmd {
	return func() tea.Msg {
		rec, err := detail.Resolve(ctx, g, id)
		return DetailLoadedMsg{Record: rec, Err: err}
	}
}
