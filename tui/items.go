package tui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/sonnes/sessionview/core"
)

type sessionItem struct {
	session core.Session
}

func (i sessionItem) Title() string { return i.session.ID }
func (i sessionItem) Description() string {
	t, err := core.ParseTimestamp(i.session.LastModified)
	if err != nil {
		return "modified " + i.session.LastModified
	}
	return "modified " + t.Local().Format("2006-01-02 15:04")
}
func (i sessionItem) FilterValue() string { return i.session.ID }

func buildSessionItems(in []core.Session) []list.Item {
	items := make([]list.Item, 0, len(in))
	for _, s := range in {
		items = append(items, sessionItem{session: s})
	}
	return items
}

func newListModel() list.Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)
	l.SetStatusBarItemName("session", "sessions")
	return l
}
