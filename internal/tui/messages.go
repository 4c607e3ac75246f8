package tui

// Data loading messages.
type queueRefreshedMsg struct {
	err error
}

type itemSelectedMsg struct {
	err error
}

// actionDoneMsg reports the outcome of a remote workflow action. Stale
// responses arrive here too and are dropped without touching the toast.
type actionDoneMsg struct {
	err   error
	label string
}

// searchDoneMsg reports a completed manual-household or campaign search.
type searchDoneMsg struct {
	err error
}
