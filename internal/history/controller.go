package history

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ldi/clipflow/pkg/models"
)

const (
	DeletePrompt        = "Are you sure you want to delete this task?"
	DeleteFailedMessage = "Failed to delete task"
	LoadFailedMessage   = "Failed to load tasks"
)

var (
	ErrNotDownloadable = errors.New("task has no downloadable output")
	ErrTaskNotFound    = errors.New("task not found")
)

// Host performs the side effects that belong to whoever presents the history.
type Host interface {
	Confirm(prompt string) bool
	Notify(message string)
	TriggerDownload(ctx context.Context, url, suggestedName string) error
}

// API is the slice of the backend the history needs.
type API interface {
	ListTasks(ctx context.Context, userID string) ([]models.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Controller runs the fetch/derive/mutate cycle of the history view.
type Controller struct {
	api    API
	host   Host
	store  *Store
	userID string
	origin string

	mu     sync.Mutex
	state  State
	errMsg string
}

func NewController(api API, host Host, userID, origin string) *Controller {
	return &Controller{
		api:    api,
		host:   host,
		store:  NewStore(),
		userID: userID,
		origin: origin,
	}
}

// Load fetches the user's tasks and replaces the local list. On failure the
// list is left as it was and the controller moves to StateError.
func (c *Controller) Load(ctx context.Context) error {
	c.setState(StateLoading, "")

	tasks, err := c.api.ListTasks(ctx, c.userID)
	if err != nil {
		c.setState(StateError, fetchMessage(err))
		return fmt.Errorf("failed to load tasks: %w", err)
	}

	c.store.Replace(tasks)
	c.setState(StateReady, "")
	return nil
}

// Retry re-issues the same request Load does.
func (c *Controller) Retry(ctx context.Context) error {
	return c.Load(ctx)
}

// Delete asks for confirmation and deletes the task on the backend. The
// local entry is removed only after the backend accepted the delete. It
// reports whether the task was deleted; a declined prompt is not an error.
func (c *Controller) Delete(ctx context.Context, id string) (bool, error) {
	if !c.host.Confirm(DeletePrompt) {
		return false, nil
	}

	if err := c.api.DeleteTask(ctx, id); err != nil {
		c.host.Notify(DeleteFailedMessage)
		return false, fmt.Errorf("failed to delete task %s: %w", id, err)
	}

	c.store.Remove(id)
	return true, nil
}

// Download hands the task's output to the host. Whatever the host reports
// is returned unchanged.
func (c *Controller) Download(ctx context.Context, t models.Task) error {
	if !t.Downloadable() {
		return ErrNotDownloadable
	}

	u, err := DownloadURL(c.origin, t.OutputFile)
	if err != nil {
		return err
	}
	return c.host.TriggerDownload(ctx, u, DownloadFilename(t.OutputFile))
}

// DownloadByID looks the task up in the local list and downloads it.
func (c *Controller) DownloadByID(ctx context.Context, id string) error {
	t, ok := c.store.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return c.Download(ctx, t)
}

func (c *Controller) Tasks() []models.Task {
	return c.store.Tasks()
}

func (c *Controller) Counts() Counts {
	return Summarize(c.store.Tasks())
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the message describing the last failed load, if any.
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

func (c *Controller) UserID() string {
	return c.userID
}

func (c *Controller) setState(s State, msg string) {
	c.mu.Lock()
	c.state = s
	c.errMsg = msg
	c.mu.Unlock()
}

// httpStatusError is satisfied by errors that carry a non-2xx response code.
type httpStatusError interface {
	HTTPStatus() int
}

// fetchMessage collapses HTTP status failures into the generic message and
// keeps the transport's own message otherwise.
func fetchMessage(err error) string {
	var se httpStatusError
	if errors.As(err, &se) {
		return LoadFailedMessage
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return LoadFailedMessage
}
