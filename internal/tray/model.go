// Package tray is a terminal stand-in for the system notification shade:
// it lists live reminders and sends the user's responses back to the engine.
package tray

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/reminderd/internal/commands"
	"github.com/sandeepkv93/reminderd/internal/notify"
	"github.com/sandeepkv93/reminderd/internal/views"
)

// ActionSink receives the user's responses to reminders.
type ActionSink interface {
	HandleAction(ctx context.Context, a notify.Action) error
}

type StatusBar struct {
	Text    string
	IsError bool
}

type PaletteState struct {
	Active bool
	Input  string
}

type InboxChangedMsg struct {
	Items []notify.Notification
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

// SelectTaskMsg moves the cursor to a task's reminder.
type SelectTaskMsg struct {
	TaskID int64
}

type AppErrorMsg struct {
	Err error
}

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Snooze   key.Binding
	Dismiss  key.Binding
	Complete key.Binding
	Open     key.Binding
	Palette  key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Snooze:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "snooze")),
		Dismiss:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "dismiss")),
		Complete: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "complete")),
		Open:     key.NewBinding(key.WithKeys("o", "enter"), key.WithHelp("o", "open")),
		Palette:  key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "command")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Snooze, k.Dismiss, k.Complete, k.Open, k.Palette, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Snooze, k.Dismiss, k.Complete, k.Open},
		{k.Palette, k.Help, k.Quit},
	}
}

type Model struct {
	Items    []notify.Notification
	Cursor   int
	Status   StatusBar
	Palette  PaletteState
	ShowHelp bool
	Quitting bool
	Opened   int64

	keys         keyMap
	helpModel    help.Model
	commandInput textinput.Model
	sink         ActionSink
	handlers     commands.Handlers
	changes      <-chan struct{}
	source       *notify.Inbox
}

func NewModel() Model {
	m := Model{keys: defaultKeys()}
	m.helpModel = help.New()
	m.commandInput = textinput.New()
	m.commandInput.Prompt = ":"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 48
	return m
}

// NewModelWithInbox follows inbox and routes key presses to sink. Palette
// commands run through handlers.
func NewModelWithInbox(inbox *notify.Inbox, sink ActionSink, handlers commands.Handlers) Model {
	m := NewModel()
	m.source = inbox
	m.sink = sink
	m.handlers = handlers
	if inbox != nil {
		m.changes = Watch(inbox)
		m.Items = inbox.List()
	}
	return m
}

// Watch signals whenever inbox changes. Bursts collapse into one signal.
func Watch(inbox *notify.Inbox) <-chan struct{} {
	ch := make(chan struct{}, 1)
	inbox.OnChange(func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	})
	return ch
}

func (m Model) Init() tea.Cmd {
	return waitForInboxCmd(m.changes, m.source)
}

func waitForInboxCmd(ch <-chan struct{}, inbox *notify.Inbox) tea.Cmd {
	if ch == nil || inbox == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return InboxChangedMsg{Items: inbox.List()}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if m.Palette.Active {
			return m.handlePaletteKey(typed), nil
		}
		return m.handleKey(typed)
	case InboxChangedMsg:
		m.Items = typed.Items
		m.clampCursor()
		return m, waitForInboxCmd(m.changes, m.source)
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case SelectTaskMsg:
		for i, n := range m.Items {
			if n.Key == typed.TaskID {
				m.Cursor = i
				break
			}
		}
		m.Opened = typed.TaskID
		return m, nil
	case AppErrorMsg:
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.Cursor > 0 {
			m.Cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.Cursor < len(m.Items)-1 {
			m.Cursor++
		}
	case key.Matches(msg, m.keys.Help):
		m.ShowHelp = !m.ShowHelp
	case key.Matches(msg, m.keys.Palette):
		m.Palette = PaletteState{Active: true}
		m.commandInput.SetValue("")
		m.commandInput.Focus()
	case key.Matches(msg, m.keys.Snooze):
		return m.act(notify.ActionSnooze)
	case key.Matches(msg, m.keys.Dismiss):
		return m.act(notify.ActionDismiss)
	case key.Matches(msg, m.keys.Complete):
		return m.act(notify.ActionComplete)
	case key.Matches(msg, m.keys.Open):
		return m.act(notify.ActionOpen)
	}
	return m, nil
}

// act sends the selected reminder's action. Completing is always offered;
// other actions only when the notification carries them.
func (m Model) act(kind notify.ActionKind) (tea.Model, tea.Cmd) {
	selected, ok := m.selected()
	if !ok {
		m.Status = StatusBar{Text: "no reminder selected", IsError: true}
		return m, nil
	}
	action, ok := selected.Action(kind)
	if !ok {
		if kind != notify.ActionComplete {
			m.Status = StatusBar{Text: fmt.Sprintf("%s is not available for this reminder", kind), IsError: true}
			return m, nil
		}
		action = notify.Action{Kind: kind, Payload: selected.Payload}
	}
	if kind == notify.ActionOpen {
		m.Opened = selected.Payload.TaskID
	}
	if m.sink == nil {
		return m, nil
	}
	sink := m.sink
	m.Status = StatusBar{Text: fmt.Sprintf("%s #%d", kind, selected.Payload.TaskID)}
	return m, func() tea.Msg {
		if err := sink.HandleAction(context.Background(), action); err != nil {
			return AppErrorMsg{Err: err}
		}
		return nil
	}
}

func (m Model) selected() (notify.Notification, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.Items) {
		return notify.Notification{}, false
	}
	return m.Items[m.Cursor], true
}

func (m *Model) clampCursor() {
	if m.Cursor >= len(m.Items) {
		m.Cursor = len(m.Items) - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
}

func (m Model) View() string {
	items := make([]views.ReminderItemData, 0, len(m.Items))
	for _, n := range m.Items {
		items = append(items, views.ReminderItemData{TaskID: n.Key, Title: n.Title, Body: n.Body, Ongoing: n.Ongoing})
	}
	detail := ""
	if n, ok := m.selected(); ok {
		actions := make([]string, 0, len(n.Actions))
		for _, a := range n.Actions {
			actions = append(actions, string(a.Kind))
		}
		detail = views.RenderReminderDetail(views.ReminderDetailData{
			Header:  n.Header,
			Title:   n.Title,
			Body:    n.Body,
			Actions: actions,
		})
	}

	footer := m.helpModel.View(m.keys)
	if m.ShowHelp {
		full := m.helpModel
		full.ShowAll = true
		footer = full.View(m.keys)
	}
	status := ""
	if m.Status.Text != "" {
		status = "status: " + m.Status.Text
		if m.Status.IsError {
			status = "status: error: " + m.Status.Text
		}
	}
	return views.RenderApp(views.AppData{
		Header:     fmt.Sprintf("reminderd | %d showing", len(m.Items)),
		ListPane:   views.RenderReminderList(views.ReminderListData{Items: items, Selected: m.Cursor}),
		DetailPane: detail,
		StatusLine: status,
		IsError:    m.Status.IsError,
		Palette:    views.RenderCommandPalette(m.Palette.Active, m.Palette.Input),
		Footer:     strings.TrimSpace(footer),
	})
}
