package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"numtrack/internal/config"
)

// keyMap mirrors the configured keys for the help view. Dispatch itself
// matches on the raw config strings.
type keyMap struct {
	move   key.Binding
	page   key.Binding
	status key.Binding
	sub    key.Binding
	search key.Binding
	filter key.Binding
	date   key.Binding
	window key.Binding
	clear  key.Binding
	bulk   key.Binding
	bulkSt key.Binding
	rename key.Binding
	edit   key.Binding
	export key.Binding
	help   key.Binding
	quit   key.Binding
}

func newKeyMap(k config.Keymap) keyMap {
	statusKeys := strings.Split(k.StatusKeys, "")
	bind := func(help string, keys ...string) key.Binding {
		return key.NewBinding(key.WithKeys(keys...), key.WithHelp(strings.Join(keys, "/"), help))
	}
	return keyMap{
		move:   bind("move", k.Up, k.Down),
		page:   bind("page", k.PageUp, k.PageDown),
		status: key.NewBinding(key.WithKeys(statusKeys...), key.WithHelp(k.StatusKeys, "done/no/pending/dead/resettle/dup")),
		sub:    bind("sub done/no", k.SubDone, k.SubNo),
		search: bind("search", k.Search),
		filter: bind("status filter", k.Filter),
		date:   bind("date filter", k.DateFilter),
		window: bind("from/to", k.DateFrom, k.DateTo),
		clear:  bind("clear filters", k.ClearFilter),
		bulk:   bind("bulk", k.Bulk),
		bulkSt: bind("bulk status", k.BulkStatus),
		rename: bind("name", k.Rename),
		edit:   bind("edit date", k.EditDate),
		export: bind("export", k.Export),
		help:   bind("more", "?"),
		quit:   bind("quit", k.Quit),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.move, k.status, k.sub, k.search, k.bulk, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.move, k.page, k.status, k.sub},
		{k.search, k.filter, k.date, k.window, k.clear},
		{k.bulk, k.bulkSt, k.rename, k.edit},
		{k.export, k.help, k.quit},
	}
}
