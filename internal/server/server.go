package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ldi/clipflow/internal/auth"
	"github.com/ldi/clipflow/internal/db"
	"github.com/ldi/clipflow/internal/logger"
	"github.com/ldi/clipflow/pkg/models"
)

// Server exposes the task API consumed by the history client, plus the
// output files it downloads.
type Server struct {
	store     db.TaskStore
	outputDir string
	engine    *gin.Engine
	server    *http.Server

	authSecret []byte
}

const (
	userIDKey          = "userID"
	createdTaskMessage = "Task created, preparing for processing"
)

func NewServer(store db.TaskStore, outputDir string) *Server {
	s := &Server{store: store, outputDir: outputDir}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	// Output artifacts
	r.Static("/output", s.outputDir)

	api := r.Group("/api")
	api.Use(s.optionalAuth())
	api.GET("/tasks", s.handleTasks)
	api.POST("/tasks", s.handleCreateTask)
	api.GET("/task/:taskId", s.handleTask)
	api.DELETE("/task/:taskId", s.handleDeleteTask)

	return r
}

// SetAuthSecret enables bearer tokens on /api. Requests without an
// Authorization header are still served; a bad token is rejected.
func (s *Server) SetAuthSecret(secret string) {
	s.authSecret = []byte(secret)
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}
	logger.Info("Serving task API on %s (output dir %s)", addr, s.outputDir)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) optionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if len(s.authSecret) == 0 || header == "" {
			c.Next()
			return
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}
		claims, err := auth.ValidateToken(s.authSecret, tokenString)
		if err != nil {
			logger.Debug("Rejected token for %s: %v", c.Request.URL.Path, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Next()
	}
}

// requestUser resolves who the request acts for. An authenticated user wins;
// a userID query naming somebody else is refused.
func requestUser(c *gin.Context, requested string) (string, bool) {
	authed := c.GetString(userIDKey)
	if authed == "" {
		return requested, true
	}
	if requested != "" && requested != authed {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return "", false
	}
	return authed, true
}

func (s *Server) handleTasks(c *gin.Context) {
	userID, ok := requestUser(c, c.Query("userID"))
	if !ok {
		return
	}
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userID is required"})
		return
	}

	tasks, err := s.store.ListTasksByUser(c.Request.Context(), userID)
	if err != nil {
		logger.Error("Failed to fetch tasks for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tasks"})
		return
	}

	logger.Debug("Found %d tasks for user %s", len(tasks), userID)
	c.JSON(http.StatusOK, tasks)
}

type createTaskRequest struct {
	UserID      string          `json:"user_id"`
	Message     string          `json:"message"`
	TaskDetails json.RawMessage `json:"task_details"`
}

// handleCreateTask records a pending task. Processing is left to whatever
// reports progress for it afterwards.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID == "" {
		req.UserID = c.Query("userID")
	}

	userID, ok := requestUser(c, req.UserID)
	if !ok {
		return
	}
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	details, err := taskDetails(req.TaskDetails)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task := &models.Task{
		UserID:      userID,
		Status:      models.TaskStatusPending,
		Message:     req.Message,
		TaskDetails: details,
	}
	if task.Message == "" {
		task.Message = createdTaskMessage
	}

	if err := s.store.CreateTask(c.Request.Context(), task); err != nil {
		logger.Error("Failed to create task for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		return
	}

	logger.Info("Created task %s for user %s", task.ID, userID)
	c.JSON(http.StatusCreated, task)
}

// taskDetails stores task_details as the JSON text it was sent as. A JSON
// string is taken to already hold the encoded details.
func taskDetails(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return "", err
		}
		if encoded != "" && !json.Valid([]byte(encoded)) {
			return "", errors.New("task_details must be valid JSON")
		}
		return encoded, nil
	}
	return trimmed, nil
}

func (s *Server) handleTask(c *gin.Context) {
	task, ok := s.lookupOwned(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	task, ok := s.lookupOwned(c)
	if !ok {
		return
	}

	if err := s.store.DeleteTask(c.Request.Context(), task.ID); err != nil {
		if errors.Is(err, db.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		logger.Error("Failed to delete task %s: %v", task.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete task"})
		return
	}

	logger.Info("Deleted task %s", task.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// lookupOwned loads :taskId and, when the request names a user through its
// token or a userID query parameter, checks that the user owns the task. It
// writes the error response itself.
func (s *Server) lookupOwned(c *gin.Context) (*models.Task, bool) {
	id := c.Param("taskId")
	task, err := s.store.GetTask(c.Request.Context(), id)
	if err != nil {
		logger.Error("Failed to get task %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get task"})
		return nil, false
	}
	if task == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return nil, false
	}
	owner, ok := requestUser(c, c.Query("userID"))
	if !ok {
		return nil, false
	}
	if owner != "" && owner != task.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return nil, false
	}
	return task, true
}
