package notify

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Desktop posts through the host's notification tool: notify-send on Linux
// and osascript on macOS. Desktop popups cannot be withdrawn, so Cancel is
// a no-op.
type Desktop struct {
	goos     string
	lookPath func(string) (string, error)
	run      func(name string, args ...string) error
}

func NewDesktop() *Desktop {
	return &Desktop{goos: runtime.GOOS, lookPath: exec.LookPath, run: runCommand}
}

func (d *Desktop) Post(_ int64, n Notification) error {
	title := n.Header + ": " + n.Title
	switch d.goos {
	case "linux":
		args := []string{"--app-name=reminderd"}
		if n.Ongoing {
			args = append(args, "--urgency=critical")
		}
		args = append(args, title, n.Body)
		return d.run("notify-send", args...)
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s" sound name "default"`,
			escapeAppleScript(n.Body), escapeAppleScript(title))
		return d.run("osascript", "-e", script)
	default:
		return nil
	}
}

func (d *Desktop) Cancel(int64) error { return nil }

func (d *Desktop) PermissionGranted() bool {
	var tool string
	switch d.goos {
	case "linux":
		tool = "notify-send"
	case "darwin":
		tool = "osascript"
	default:
		return false
	}
	_, err := d.lookPath(tool)
	return err == nil
}

func runCommand(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
