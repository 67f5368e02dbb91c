package notify

type Importance string

const (
	ImportanceLow     Importance = "low"
	ImportanceDefault Importance = "default"
	ImportanceHigh    Importance = "high"
)

type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
	VisibilitySecret  Visibility = "secret"
)

// Channel groups reminder notifications so the user can tune them as one.
type Channel struct {
	ID          string
	Name        string
	Description string
	Importance  Importance
	Visibility  Visibility
}

func DefaultChannel() Channel {
	return Channel{
		ID:          "reminders",
		Name:        "Task reminders",
		Description: "Notifications for tasks that are due",
		Importance:  ImportanceHigh,
		Visibility:  VisibilityPublic,
	}
}
