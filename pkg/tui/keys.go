package tui

import "charm.land/bubbles/v2/key"

type keyMap struct {
	Send        key.Binding
	Cancel      key.Binding
	Attach      key.Binding
	Detach      key.Binding
	SwitchFocus key.Binding
	Prev        key.Binding
	Next        key.Binding
	Edit        key.Binding
	Copy        key.Binding
	Export      key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Attach: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "attach image"),
		),
		Detach: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "remove image"),
		),
		SwitchFocus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "plant/message"),
		),
		Prev: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("ctrl+p/n", "select"),
		),
		Next: key.NewBinding(
			key.WithKeys("ctrl+n"),
		),
		Edit: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("ctrl+e", "edit"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", "copy reply"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "export"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the footer for the current mode.
func (k keyMap) ShortHelp(editing, attached bool) []key.Binding {
	send := k.Send
	if editing {
		send.SetHelp("enter", "update")
	}

	bindings := []key.Binding{send}
	if editing {
		bindings = append(bindings, k.Cancel)
	} else {
		bindings = append(bindings, k.Attach)
	}
	if attached {
		bindings = append(bindings, k.SwitchFocus, k.Detach)
	}
	return append(bindings, k.Prev, k.Edit, k.Copy, k.Export, k.Quit)
}
