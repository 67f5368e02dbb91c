package storage

// TaskListFilter narrows ListTasks. Deleted tasks are hidden unless
// Deleted is set, in which case only the recycle bin is listed.
type TaskListFilter struct {
	Deleted          bool
	IncludeCompleted bool
	Limit            int
	Offset           int
}
