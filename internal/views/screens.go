package views

import (
	"fmt"
	"strings"
)

type ReminderItemData struct {
	TaskID  int64
	Title   string
	Body    string
	Ongoing bool
	Actions []string
}

type ReminderListData struct {
	Items    []ReminderItemData
	Selected int
}

func RenderReminderList(data ReminderListData) string {
	if len(data.Items) == 0 {
		return "No reminders showing."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Reminders (%d)\n", len(data.Items)))
	for i, item := range data.Items {
		line := fmt.Sprintf("#%d %s", item.TaskID, item.Title)
		if item.Ongoing {
			line += " " + ongoingStyle.Render("[persistent]")
		}
		if i == data.Selected {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

type ReminderDetailData struct {
	Header  string
	Title   string
	Body    string
	Actions []string
}

// RenderReminderDetail shows the selected reminder, its body rendered as
// markdown.
func RenderReminderDetail(data ReminderDetailData) string {
	if data.Title == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(data.Header)
	b.WriteString(": ")
	b.WriteString(data.Title)
	b.WriteString("\n\n")
	if body := RenderMarkdown(data.Body); body != "" {
		b.WriteString(body)
		b.WriteString("\n\n")
	}
	if len(data.Actions) > 0 {
		b.WriteString("actions: ")
		b.WriteString(strings.Join(data.Actions, " | "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("command: :%s", input)
}
