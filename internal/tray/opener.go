package tray

import tea "github.com/charmbracelet/bubbletea"

// Sender is the part of *tea.Program the opener needs.
type Sender interface {
	Send(msg tea.Msg)
}

// Opener selects a task in a running tray when its reminder is opened.
// Send blocks until the program starts, so it runs off the caller.
type Opener struct {
	Program Sender
}

func (o Opener) Open(taskID int64) {
	if o.Program == nil {
		return
	}
	go o.Program.Send(SelectTaskMsg{TaskID: taskID})
}
