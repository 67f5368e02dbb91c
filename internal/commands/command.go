package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Type string

const (
	TypeAdd        Type = "add"
	TypeSnooze     Type = "snooze"
	TypeDone       Type = "done"
	TypeReschedule Type = "reschedule"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AddArgs creates a task. When is empty for a task without a reminder.
type AddArgs struct {
	Title string
	When  When
}

// SnoozeArgs pushes a task's reminder out. A zero For uses the preference.
type SnoozeArgs struct {
	TaskID int64
	For    time.Duration
}

type DoneArgs struct {
	TaskID int64
}

type RescheduleArgs struct {
	TaskID int64
	When   When
}

type Command struct {
	Type       Type
	Raw        string
	Add        *AddArgs
	Snooze     *SnoozeArgs
	Done       *DoneArgs
	Reschedule *RescheduleArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, ":") {
		raw = strings.TrimSpace(raw[1:])
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeAdd:
		return parseAdd(input, args)
	case TypeSnooze:
		return parseSnooze(input, args)
	case TypeDone:
		return parseDone(input, args)
	case TypeReschedule:
		return parseReschedule(input, args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseAdd(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "add requires a title"}
	}
	var when When
	mode := strings.ToLower(args[0])
	if mode == "in" || mode == "at" {
		if len(args) < 2 {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "add " + mode + " requires a time"}
		}
		parsed, err := ParseWhen(mode, args[1])
		if err != nil {
			return Command{}, err
		}
		when = parsed
		args = args[2:]
	}
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "add requires a title"}
	}
	return Command{Type: TypeAdd, Raw: raw, Add: &AddArgs{Title: title, When: when}}, nil
}

func parseSnooze(raw string, args []string) (Command, error) {
	if len(args) < 1 || len(args) > 2 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "snooze requires a task id and an optional duration"}
	}
	id, err := parseTaskID(args[0])
	if err != nil {
		return Command{}, err
	}
	out := SnoozeArgs{TaskID: id}
	if len(args) == 2 {
		d, err := time.ParseDuration(args[1])
		if err != nil || d <= 0 {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("invalid snooze duration: %s", args[1])}
		}
		out.For = d
	}
	return Command{Type: TypeSnooze, Raw: raw, Snooze: &out}, nil
}

func parseDone(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "done requires a task id"}
	}
	id, err := parseTaskID(args[0])
	if err != nil {
		return Command{}, err
	}
	return Command{Type: TypeDone, Raw: raw, Done: &DoneArgs{TaskID: id}}, nil
}

func parseReschedule(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "reschedule requires a task id and a time"}
	}
	id, err := parseTaskID(args[0])
	if err != nil {
		return Command{}, err
	}
	var when When
	switch mode := strings.ToLower(args[1]); mode {
	case "off", "none":
		if len(args) != 2 {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "reschedule " + mode + " takes no time"}
		}
		when = When{Mode: WhenOff}
	case "in", "at":
		if len(args) != 3 {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "reschedule " + mode + " requires one time"}
		}
		when, err = ParseWhen(mode, args[2])
		if err != nil {
			return Command{}, err
		}
	default:
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "reschedule expects in, at or off"}
	}
	return Command{Type: TypeReschedule, Raw: raw, Reschedule: &RescheduleArgs{TaskID: id, When: when}}, nil
}

func parseTaskID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(raw, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("invalid task id: %s", raw)}
	}
	return id, nil
}
