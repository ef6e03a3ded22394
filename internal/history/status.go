package history

import "github.com/ldi/clipflow/pkg/models"

// Category is the visual bucket a task status renders in.
type Category int

const (
	// CategoryPending is the default bucket. Unrecognized statuses land here too.
	CategoryPending Category = iota
	CategoryProcessing
	CategoryCompleted
	CategoryFailed
)

func (c Category) String() string {
	switch c {
	case CategoryProcessing:
		return "processing"
	case CategoryCompleted:
		return "completed"
	case CategoryFailed:
		return "failed"
	default:
		return "pending"
	}
}

// CategoryFor maps a status to its bucket.
func CategoryFor(status models.TaskStatus) Category {
	switch status {
	case models.TaskStatusCompleted:
		return CategoryCompleted
	case models.TaskStatusProcessing:
		return CategoryProcessing
	case models.TaskStatusFailed:
		return CategoryFailed
	default:
		return CategoryPending
	}
}
