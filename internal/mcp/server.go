package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ldi/clipflow/internal/db"
	"github.com/ldi/clipflow/internal/history"
	"github.com/ldi/clipflow/pkg/models"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates a new MCP server over a task store.
func NewServer(store db.TaskStore) *server.MCPServer {
	s := server.NewMCPServer("ClipFlow", "0.1.0")

	s.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List a user's video tasks, newest first."),
		mcp.WithString("user_id", mcp.Description("Owner of the tasks"), mcp.Required()),
		mcp.WithString("status", mcp.Description("Filter by status (pending|processing|completed|failed)")),
	), listTasksHandler(store))

	s.AddTool(mcp.NewTool("create_task",
		mcp.WithDescription("Record a new pending task for a user. Processing is reported later through update_task_progress."),
		mcp.WithString("user_id", mcp.Description("Owner of the task"), mcp.Required()),
		mcp.WithString("message", mcp.Description("Initial status message")),
		mcp.WithString("task_details", mcp.Description("JSON object describing the job (inputs, output size, fps)")),
	), createTaskHandler(store))

	s.AddTool(mcp.NewTool("get_task",
		mcp.WithDescription("Get a single task by id."),
		mcp.WithString("id", mcp.Description("Task id"), mcp.Required()),
	), getTaskHandler(store))

	s.AddTool(mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task."),
		mcp.WithString("id", mcp.Description("Task id"), mcp.Required()),
	), deleteTaskHandler(store))

	s.AddTool(mcp.NewTool("task_summary",
		mcp.WithDescription("Count a user's tasks by outcome: total, completed, processing and failed."),
		mcp.WithString("user_id", mcp.Description("Owner of the tasks"), mcp.Required()),
	), taskSummaryHandler(store))

	s.AddTool(mcp.NewTool("update_task_progress",
		mcp.WithDescription("Report progress for a task. Completed tasks must name their output file."),
		mcp.WithString("id", mcp.Description("Task id"), mcp.Required()),
		mcp.WithString("status", mcp.Description("New status (pending|processing|completed|failed)"), mcp.Required()),
		mcp.WithNumber("progress", mcp.Description("Progress percentage (0-100)")),
		mcp.WithString("message", mcp.Description("Human readable progress message")),
		mcp.WithString("output_file", mcp.Description("Output path, e.g. /output/<id>/video.mp4 (required if status=completed)")),
	), updateTaskProgressHandler(store))

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func listTasksHandler(store db.TaskStore) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID := mcp.ParseString(request, "user_id", "")
		if userID == "" {
			return mcp.NewToolResultError("user_id is required"), nil
		}

		tasks, err := store.ListTasksByUser(ctx, userID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if s := mcp.ParseString(request, "status", ""); s != "" {
			status := models.TaskStatus(s)
			if !status.Known() {
				return mcp.NewToolResultError(fmt.Sprintf("unknown status '%s'", s)), nil
			}
			filtered := make([]models.Task, 0, len(tasks))
			for _, t := range tasks {
				if t.Status == status {
					filtered = append(filtered, t)
				}
			}
			tasks = filtered
		}

		return jsonResult(map[string]interface{}{"tasks": tasks})
	}
}

func createTaskHandler(store db.TaskStore) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID := mcp.ParseString(request, "user_id", "")
		if userID == "" {
			return mcp.NewToolResultError("user_id is required"), nil
		}

		details := mcp.ParseString(request, "task_details", "")
		if details != "" && !json.Valid([]byte(details)) {
			return mcp.NewToolResultError("task_details must be valid JSON"), nil
		}

		t := &models.Task{
			UserID:      userID,
			Status:      models.TaskStatusPending,
			Message:     mcp.ParseString(request, "message", "Task created, preparing for processing"),
			TaskDetails: details,
		}
		if err := store.CreateTask(ctx, t); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return jsonResult(t)
	}
}

func getTaskHandler(store db.TaskStore) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")

		t, err := store.GetTask(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if t == nil {
			return mcp.NewToolResultError(fmt.Sprintf("Task with id '%s' not found", id)), nil
		}

		return jsonResult(t)
	}
}

func deleteTaskHandler(store db.TaskStore) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")

		if err := store.DeleteTask(ctx, id); err != nil {
			if errors.Is(err, db.ErrTaskNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("Task with id '%s' not found", id)), nil
			}
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText("Task deleted successfully"), nil
	}
}

func taskSummaryHandler(store db.TaskStore) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID := mcp.ParseString(request, "user_id", "")
		if userID == "" {
			return mcp.NewToolResultError("user_id is required"), nil
		}

		tasks, err := store.ListTasksByUser(ctx, userID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return jsonResult(history.Summarize(tasks))
	}
}

func updateTaskProgressHandler(store db.TaskStore) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")
		update := db.ProgressUpdate{
			Status:     models.TaskStatus(mcp.ParseString(request, "status", "")),
			Progress:   mcp.ParseInt(request, "progress", 0),
			Message:    mcp.ParseString(request, "message", ""),
			OutputFile: mcp.ParseString(request, "output_file", ""),
		}

		t, err := store.UpdateTaskProgress(ctx, id, update)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return jsonResult(t)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
