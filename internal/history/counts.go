package history

import "github.com/ldi/clipflow/pkg/models"

// Counts are the aggregate figures shown above the task list.
type Counts struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
}

// Summarize derives Counts from tasks. Statuses outside the known set only
// contribute to Total.
func Summarize(tasks []models.Task) Counts {
	c := Counts{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case models.TaskStatusCompleted:
			c.Completed++
		case models.TaskStatusProcessing:
			c.Processing++
		case models.TaskStatusFailed:
			c.Failed++
		}
	}
	return c
}
