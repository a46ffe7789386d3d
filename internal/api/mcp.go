package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/followup/internal/extract"
	"github.com/kalambet/followup/internal/friends"
	"github.com/kalambet/followup/internal/ingest"
	"github.com/kalambet/followup/internal/storage"
	"github.com/kalambet/followup/internal/weather"
)

// WeatherClient abstracts the weather lookups behind the MCP tools.
type WeatherClient interface {
	Current(ctx context.Context, location string) (*weather.Current, error)
	Forecast(ctx context.Context, location string, days int) (*weather.Forecast, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store     *storage.Store
	Friends   *friends.Service
	Extractor extract.Service
	Weather   WeatherClient // optional; if nil, the weather tools report an error
	Version   string
}

const recentNotes = 10

func (d MCPDeps) withDefaults() MCPDeps {
	if d.Friends == nil {
		d.Friends = friends.NewService(d.Store)
	}
	if d.Extractor == nil {
		d.Extractor = extract.Heuristic(nil)
	}
	if d.Version == "" {
		d.Version = "dev"
	}
	return d
}

// NewMCPServer creates an MCP server with the followup tools and resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	deps = deps.withDefaults()

	s := server.NewMCPServer(
		"followup",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("followup keeps notes, pulls action items out of them, matches friends by shared interests and reports the weather."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("extract_action_items",
			mcp.WithDescription("Find the action items in a piece of text without saving anything."),
			mcp.WithString("text", mcp.Description("Free-form notes"), mcp.Required()),
			mcp.WithBoolean("detailed", mcp.Description("Include priority, assignee and category for each item")),
		),
		mcpExtract(deps),
	)

	s.AddTool(
		mcp.NewTool("add_note",
			mcp.WithDescription("Save a note. With extract=true its action items are extracted and saved too."),
			mcp.WithString("title", mcp.Description("Note title"), mcp.Required()),
			mcp.WithString("content", mcp.Description("Note body"), mcp.Required()),
			mcp.WithBoolean("extract", mcp.Description("Extract action items right away")),
		),
		mcpAddNote(deps),
	)

	s.AddTool(
		mcp.NewTool("list_action_items",
			mcp.WithDescription("List saved action items, oldest first."),
			mcp.WithBoolean("completed", mcp.Description("Only completed (true) or open (false) items")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of items (default 50)")),
		),
		mcpListItems(deps),
	)

	s.AddTool(
		mcp.NewTool("complete_action_item",
			mcp.WithDescription("Mark an action item as done."),
			mcp.WithString("id", mcp.Description("Action item ID"), mcp.Required()),
		),
		mcpCompleteItem(deps),
	)

	s.AddTool(
		mcp.NewTool("find_matches",
			mcp.WithDescription("Rank other profiles by the interests and activities they share with this one."),
			mcp.WithString("profile_id", mcp.Description("Profile to match for"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of matches (default 10)")),
		),
		mcpFindMatches(deps),
	)

	s.AddTool(
		mcp.NewTool("get_current_weather",
			mcp.WithDescription("Get current weather conditions for a specific location"),
			mcp.WithString("location",
				mcp.Description("City name, state code, and country code (e.g., 'London,UK' or 'New York,NY,US')"),
				mcp.Required()),
		),
		mcpCurrentWeather(deps),
	)

	s.AddTool(
		mcp.NewTool("get_forecast",
			mcp.WithDescription("Get weather forecast for a specific location"),
			mcp.WithString("location",
				mcp.Description("City name, state code, and country code (e.g., 'London,UK' or 'New York,NY,US')"),
				mcp.Required()),
			mcp.WithNumber("days",
				mcp.Description("Number of days to forecast (1-5, default: 5)"),
				mcp.Min(1), mcp.Max(5), mcp.DefaultNumber(5)),
		),
		mcpForecast(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"notes://recent",
			"Recent Notes",
			mcp.WithResourceDescription(fmt.Sprintf("The %d most recently created notes", recentNotes)),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecentNotes(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"action-items://open",
			"Open Action Items",
			mcp.WithResourceDescription("Every action item not yet completed"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceOpenItems(deps),
	)

	return s
}

func mcpExtract(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil || strings.TrimSpace(text) == "" {
			return mcpError("text is required"), nil
		}
		if req.GetBool("detailed", false) {
			return mcpJSON(orEmpty(deps.Extractor.ExtractDetailed(ctx, text)))
		}
		return mcpJSON(orEmpty(deps.Extractor.Extract(ctx, text)))
	}
}

func mcpAddNote(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		in := createNoteRequest{
			Title:   req.GetString("title", ""),
			Content: req.GetString("content", ""),
		}
		in.trim()
		if err := validate.Struct(&in); err != nil {
			return mcpError(validationMessage(err)), nil
		}

		n, err := deps.Store.CreateNote(ctx, in.Title, in.Content)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to save note: %v", err)), nil
		}
		if !req.GetBool("extract", false) {
			return mcpText(fmt.Sprintf("Stored note %s", n.ID)), nil
		}

		items, err := ingest.ExtractNote(ctx, deps.Store, deps.Extractor, n.ID)
		if err != nil {
			return mcpError(fmt.Sprintf("note %s saved but extraction failed: %v", n.ID, err)), nil
		}
		return mcpJSON(map[string]any{"note": n, "action_items": items})
	}
}

func mcpListItems(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var f storage.ActionItemFilter
		if _, ok := req.GetArguments()["completed"]; ok {
			c := req.GetBool("completed", false)
			f.Completed = &c
		}
		limit := req.GetInt("limit", 50)
		if limit <= 0 {
			limit = 50
		}
		if limit > 200 {
			limit = 200
		}

		items, err := deps.Store.ListActionItems(ctx, f, storage.ListOptions{Limit: limit})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list action items: %v", err)), nil
		}
		return mcpJSON(orEmpty(items))
	}
}

func mcpCompleteItem(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		it, err := deps.Store.CompleteActionItem(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("action item %s not found", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to complete action item: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Completed: %s", it.Description)), nil
	}
}

func mcpFindMatches(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("profile_id")
		if err != nil {
			return mcpError("profile_id is required"), nil
		}
		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}

		matches, err := deps.Friends.Matches(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("profile %s not found", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("matching failed: %v", err)), nil
		}
		if len(matches) > limit {
			matches = matches[:limit]
		}
		return mcpJSON(orEmpty(matches))
	}
}

func mcpCurrentWeather(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Weather == nil {
			return mcpError("weather is not configured"), nil
		}
		location, err := req.RequireString("location")
		if err != nil {
			return mcpError("location is required"), nil
		}
		c, err := deps.Weather.Current(ctx, location)
		if err != nil {
			return mcpError(fmt.Sprintf("Error: %v", err)), nil
		}
		return mcpText(weather.FormatCurrent(c)), nil
	}
}

func mcpForecast(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Weather == nil {
			return mcpError("weather is not configured"), nil
		}
		location, err := req.RequireString("location")
		if err != nil {
			return mcpError("location is required"), nil
		}
		f, err := deps.Weather.Forecast(ctx, location, req.GetInt("days", 5))
		if err != nil {
			return mcpError(fmt.Sprintf("Error: %v", err)), nil
		}
		return mcpText(weather.FormatForecast(f)), nil
	}
}

func mcpResourceRecentNotes(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		notes, err := deps.Store.ListNotes(ctx, storage.ListOptions{Limit: recentNotes})
		if err != nil {
			return nil, fmt.Errorf("failed to list notes: %w", err)
		}
		return jsonResource(req.Params.URI, orEmpty(notes))
	}
}

func mcpResourceOpenItems(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		open := false
		items, err := deps.Store.ListActionItems(ctx, storage.ActionItemFilter{Completed: &open}, storage.ListOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to list action items: %w", err)
		}
		return jsonResource(req.Params.URI, orEmpty(items))
	}
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
