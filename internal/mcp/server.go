// Package mcp exposes the tracker as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mesh-intelligence/todos/internal/tracker"
	"github.com/mesh-intelligence/todos/pkg/types"
)

// NewServer creates an MCP server with tools for task operations.
func NewServer(tr *tracker.Tracker, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"todos",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("list_tasks",
			mcp.WithDescription("List tasks with optional filters and sort order. The result includes stats over all tasks regardless of filters."),
			mcp.WithString("status",
				mcp.Description("all (default), active, or completed"),
			),
			mcp.WithString("categoryId",
				mcp.Description("Category ID to filter by, or all (default)"),
			),
			mcp.WithString("priority",
				mcp.Description("high, medium, low, or all (default)"),
			),
			mcp.WithString("sortBy",
				mcp.Description("createdAt (default, newest first), dueDate, or priority"),
			),
		),
		handleListTasks(tr),
	)

	s.AddTool(
		mcp.NewTool("add_task",
			mcp.WithDescription("Add a task. Use list_categories to find valid category IDs."),
			mcp.WithString("title",
				mcp.Required(),
				mcp.Description("Task title; must not be blank"),
			),
			mcp.WithString("categoryId",
				mcp.Description("Category ID (default: personal)"),
			),
			mcp.WithString("priority",
				mcp.Description("high, medium (default), or low"),
			),
			mcp.WithString("description",
				mcp.Description("Optional free-form description"),
			),
			mcp.WithString("dueDate",
				mcp.Description("Optional due date (YYYY-MM-DD)"),
			),
		),
		handleAddTask(tr),
	)

	s.AddTool(
		mcp.NewTool("toggle_task",
			mcp.WithDescription("Flip a task between active and completed."),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Task ID"),
			),
		),
		handleToggleTask(tr),
	)

	s.AddTool(
		mcp.NewTool("delete_task",
			mcp.WithDescription("Delete a task permanently."),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Task ID"),
			),
		),
		handleDeleteTask(tr),
	)

	s.AddTool(
		mcp.NewTool("list_categories",
			mcp.WithDescription("List all task categories in display order."),
		),
		handleListCategories(tr),
	)

	return s
}

func handleListTasks(tr *tracker.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		f, err := types.ParseFilters(
			req.GetString("status", ""),
			req.GetString("categoryId", ""),
			req.GetString("priority", ""),
			req.GetString("sortBy", ""),
		)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(tr.Snapshot(f))
	}
}

func handleAddTask(tr *tracker.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title, err := req.RequireString("title")
		if err != nil {
			return mcp.NewToolResultError("title is required"), nil
		}
		nt := types.NewTask{
			Title:       title,
			CategoryID:  req.GetString("categoryId", types.CategoryPersonal),
			Description: req.GetString("description", ""),
			DueDate:     req.GetString("dueDate", ""),
		}
		if p := req.GetString("priority", ""); p != "" {
			if nt.Priority, err = types.ParsePriority(p); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}
		task, ok := tr.Tasks().Add(ctx, nt)
		if !ok {
			return mcp.NewToolResultError("title must not be blank"), nil
		}
		return jsonResult(task)
	}
}

func handleToggleTask(tr *tracker.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}
		task, ok := tr.Tasks().Toggle(ctx, id)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("task %s not found", id)), nil
		}
		return jsonResult(task)
	}
}

func handleDeleteTask(tr *tracker.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}
		if !tr.Tasks().Delete(ctx, id) {
			return mcp.NewToolResultError(fmt.Sprintf("task %s not found", id)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("deleted task %s", id)), nil
	}
}

func handleListCategories(tr *tracker.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(tr.Categories().All())
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
