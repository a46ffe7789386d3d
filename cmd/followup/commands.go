package main

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/followup/internal/config"
)

type note struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	CreatedAt   string       `json:"created_at"`
	JobID       string       `json:"job_id,omitempty"`
	ActionItems []actionItem `json:"action_items,omitempty"`
}

type actionItem struct {
	ID          string `json:"id"`
	NoteID      string `json:"note_id"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	Priority    string `json:"priority"`
	Assignee    string `json:"assignee"`
	Category    string `json:"category"`
}

type profile struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	City         string   `json:"city"`
	Neighborhood string   `json:"neighborhood"`
	Interests    []string `json:"interests"`
	Activities   []string `json:"activities"`
}

type match struct {
	profile
	MatchScore       int      `json:"match_score"`
	SharedInterests  []string `json:"shared_interests"`
	SharedActivities []string `json:"shared_activities"`
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// --- notes ---

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Manage notes",
}

var notesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a note",
	Long: `Add a note from text, a file or a web page.

Examples:
  followup notes add --title "Standup" --content "- Review PR 42"
  followup notes add --file ./minutes.md --extract
  followup notes add --file ./agenda.pdf
  followup notes add --url https://example.com/retro`,
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		content, _ := cmd.Flags().GetString("content")
		file, _ := cmd.Flags().GetString("file")
		pageURL, _ := cmd.Flags().GetString("url")
		extract, _ := cmd.Flags().GetBool("extract")

		if content == "" && file == "" && pageURL == "" {
			return fmt.Errorf("one of --content, --file, or --url is required")
		}

		path := "/notes/import"
		req := map[string]any{"title": title, "extract": extract}
		switch {
		case content != "":
			if title == "" {
				return fmt.Errorf("--title is required with --content")
			}
			path = "/notes"
			if extract {
				path += "?extract=true"
			}
			req = map[string]any{"title": title, "content": content}
		case pageURL != "":
			req["type"] = "url"
			req["url"] = pageURL
		default:
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			if title == "" {
				req["title"] = filepath.Base(file)
			}
			if strings.EqualFold(filepath.Ext(file), ".pdf") {
				req["type"] = "pdf"
				req["content"] = base64.StdEncoding.EncodeToString(data)
			} else {
				req["type"] = "text"
				req["content"] = string(data)
			}
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var n note
		if err := client.call(cmd.Context(), http.MethodPost, path, req, &n); err != nil {
			return err
		}
		if n.JobID != "" {
			printSuccess("Saved note %s (extraction queued)", n.ID)
		} else {
			printSuccess("Saved note %s", n.ID)
		}
		return nil
	},
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		q := url.Values{}
		q.Set("limit", strconv.Itoa(limit))
		if query != "" {
			q.Set("q", query)
		}
		var notes []note
		if err := client.call(cmd.Context(), http.MethodGet, "/notes?"+q.Encode(), nil, &notes); err != nil {
			return err
		}
		if len(notes) == 0 {
			fmt.Fprintln(stdout, "No notes found.")
			return nil
		}
		for _, n := range notes {
			fmt.Fprintf(stdout, "%s  %s  %s\n", colorize(colorDim, n.ID), colorize(colorBold, n.Title), n.CreatedAt)
		}
		return nil
	},
}

var notesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a note with its action items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var n note
		if err := client.call(cmd.Context(), http.MethodGet, "/notes/"+url.PathEscape(args[0]), nil, &n); err != nil {
			return err
		}
		fmt.Fprintln(stdout, colorize(colorBold, n.Title))
		fmt.Fprintln(stdout, n.Content)
		if len(n.ActionItems) > 0 {
			fmt.Fprintln(stdout)
			for _, it := range n.ActionItems {
				fmt.Fprintln(stdout, itemLine(it))
			}
		}
		return nil
	},
}

var notesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a note and its action items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := client.call(cmd.Context(), http.MethodDelete, "/notes/"+url.PathEscape(args[0]), nil, nil); err != nil {
			return err
		}
		printSuccess("Deleted note %s", args[0])
		return nil
	},
}

var notesExtractCmd = &cobra.Command{
	Use:   "extract <id>",
	Short: "Extract and save action items from a stored note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var items []actionItem
		path := "/notes/" + url.PathEscape(args[0]) + "/extract"
		if err := client.call(cmd.Context(), http.MethodPost, path, nil, &items); err != nil {
			return err
		}
		if len(items) == 0 {
			printWarning("No new action items found")
			return nil
		}
		for _, it := range items {
			fmt.Fprintln(stdout, itemLine(it))
		}
		printSuccess("Saved %d action items", len(items))
		return nil
	},
}

func init() {
	notesAddCmd.Flags().String("title", "", "note title")
	notesAddCmd.Flags().String("content", "", "note text")
	notesAddCmd.Flags().String("file", "", "text, markdown or PDF file to import")
	notesAddCmd.Flags().String("url", "", "web page to import")
	notesAddCmd.Flags().Bool("extract", false, "queue action item extraction")
	notesListCmd.Flags().StringP("query", "q", "", "search title and content")
	notesListCmd.Flags().Int("limit", 20, "maximum number of notes to list")
	notesCmd.AddCommand(notesAddCmd, notesListCmd, notesShowCmd, notesDeleteCmd, notesExtractCmd)
}

// --- action items ---

var itemsCmd = &cobra.Command{
	Use:     "items",
	Aliases: []string{"action-items"},
	Short:   "Manage action items",
}

var itemsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List action items",
	RunE: func(cmd *cobra.Command, args []string) error {
		open, _ := cmd.Flags().GetBool("open")
		done, _ := cmd.Flags().GetBool("done")
		noteID, _ := cmd.Flags().GetString("note")
		limit, _ := cmd.Flags().GetInt("limit")
		if open && done {
			return fmt.Errorf("--open and --done are mutually exclusive")
		}

		q := url.Values{}
		q.Set("limit", strconv.Itoa(limit))
		switch {
		case open:
			q.Set("completed", "false")
		case done:
			q.Set("completed", "true")
		}
		if noteID != "" {
			q.Set("note_id", noteID)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var items []actionItem
		if err := client.call(cmd.Context(), http.MethodGet, "/action-items?"+q.Encode(), nil, &items); err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Fprintln(stdout, "No action items found.")
			return nil
		}
		for _, it := range items {
			fmt.Fprintln(stdout, itemLine(it))
		}
		return nil
	},
}

var itemsAddCmd = &cobra.Command{
	Use:   "add <description>",
	Short: "Add an action item",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := map[string]any{"description": strings.Join(args, " ")}
		for _, f := range []string{"note", "priority", "assignee"} {
			if v, _ := cmd.Flags().GetString(f); v != "" {
				key := f
				if f == "note" {
					key = "note_id"
				}
				req[key] = v
			}
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var it actionItem
		if err := client.call(cmd.Context(), http.MethodPost, "/action-items", req, &it); err != nil {
			return err
		}
		printSuccess("Added %s", it.ID)
		return nil
	},
}

var itemsCompleteCmd = &cobra.Command{
	Use:   "complete <id>",
	Short: "Mark an action item as done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var it actionItem
		path := "/action-items/" + url.PathEscape(args[0]) + "/complete"
		if err := client.call(cmd.Context(), http.MethodPut, path, nil, &it); err != nil {
			return err
		}
		printSuccess("Completed: %s", it.Description)
		return nil
	},
}

var itemsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an action item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := client.call(cmd.Context(), http.MethodDelete, "/action-items/"+url.PathEscape(args[0]), nil, nil); err != nil {
			return err
		}
		printSuccess("Deleted action item %s", args[0])
		return nil
	},
}

func init() {
	itemsListCmd.Flags().Bool("open", false, "only items not yet completed")
	itemsListCmd.Flags().Bool("done", false, "only completed items")
	itemsListCmd.Flags().String("note", "", "only items extracted from this note")
	itemsListCmd.Flags().Int("limit", 50, "maximum number of items to list")
	itemsAddCmd.Flags().String("note", "", "link the item to a note")
	itemsAddCmd.Flags().String("priority", "", "priority marker, e.g. HIGH or P1")
	itemsAddCmd.Flags().String("assignee", "", "who owns the item")
	itemsCmd.AddCommand(itemsListCmd, itemsAddCmd, itemsCompleteCmd, itemsDeleteCmd)
}

// --- extract ---

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Print the action items in some text without saving them",
	Long: `Print the action items in some text without saving them.

Examples:
  followup extract --text "TODO: renew passport"
  followup extract --file ./minutes.md --detailed`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, _ := cmd.Flags().GetString("text")
		file, _ := cmd.Flags().GetString("file")
		detailed, _ := cmd.Flags().GetBool("detailed")

		if text == "" && file == "" {
			return fmt.Errorf("one of --text or --file is required")
		}
		if file != "" {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			text = string(data)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		req := map[string]any{"text": text, "detailed": detailed}
		if detailed {
			var resp struct {
				Items []struct {
					Text     string `json:"text"`
					Priority string `json:"priority"`
					Assignee string `json:"assignee"`
					Category string `json:"category"`
				} `json:"items"`
			}
			if err := client.call(cmd.Context(), http.MethodPost, "/extract", req, &resp); err != nil {
				return err
			}
			return printJSON(resp.Items)
		}

		var resp struct {
			Items []string `json:"items"`
		}
		if err := client.call(cmd.Context(), http.MethodPost, "/extract", req, &resp); err != nil {
			return err
		}
		if len(resp.Items) == 0 {
			printWarning("No action items found")
			return nil
		}
		for _, it := range resp.Items {
			fmt.Fprintf(stdout, "- %s\n", it)
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().String("text", "", "text to scan")
	extractCmd.Flags().String("file", "", "file to scan")
	extractCmd.Flags().Bool("detailed", false, "include priority, assignee and category")
}

// --- profiles ---

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage friend-finder profiles",
}

var profilesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			return fmt.Errorf("--name is required")
		}
		bio, _ := cmd.Flags().GetString("bio")
		city, _ := cmd.Flags().GetString("city")
		hood, _ := cmd.Flags().GetString("neighborhood")
		interests, _ := cmd.Flags().GetString("interests")
		activities, _ := cmd.Flags().GetString("activities")
		availability, _ := cmd.Flags().GetString("availability")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var p profile
		err = client.call(cmd.Context(), http.MethodPost, "/profiles", map[string]any{
			"name":         name,
			"bio":          bio,
			"city":         city,
			"neighborhood": hood,
			"interests":    splitList(interests),
			"activities":   splitList(activities),
			"availability": splitList(availability),
		}, &p)
		if err != nil {
			return err
		}
		printSuccess("Created profile %s", p.ID)
		return nil
	},
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		for _, f := range []string{"city", "interest", "activity"} {
			if v, _ := cmd.Flags().GetString(f); v != "" {
				q.Set(f, v)
			}
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var ps []profile
		if err := client.call(cmd.Context(), http.MethodGet, "/profiles?"+q.Encode(), nil, &ps); err != nil {
			return err
		}
		if len(ps) == 0 {
			fmt.Fprintln(stdout, "No profiles found.")
			return nil
		}
		for _, p := range ps {
			fmt.Fprintf(stdout, "%s  %s  %s\n", colorize(colorDim, p.ID), colorize(colorBold, p.Name), p.City)
		}
		return nil
	},
}

var profilesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a profile as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var p any
		if err := client.call(cmd.Context(), http.MethodGet, "/profiles/"+url.PathEscape(args[0]), nil, &p); err != nil {
			return err
		}
		return printJSON(p)
	},
}

var profilesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := client.call(cmd.Context(), http.MethodDelete, "/profiles/"+url.PathEscape(args[0]), nil, nil); err != nil {
			return err
		}
		printSuccess("Deleted profile %s", args[0])
		return nil
	},
}

func init() {
	profilesAddCmd.Flags().String("name", "", "display name")
	profilesAddCmd.Flags().String("bio", "", "short bio")
	profilesAddCmd.Flags().String("city", "", "city")
	profilesAddCmd.Flags().String("neighborhood", "", "neighborhood")
	profilesAddCmd.Flags().String("interests", "", "comma-separated interests")
	profilesAddCmd.Flags().String("activities", "", "comma-separated activities")
	profilesAddCmd.Flags().String("availability", "", "comma-separated availability slots")
	profilesListCmd.Flags().String("city", "", "filter by city")
	profilesListCmd.Flags().String("interest", "", "filter by interest")
	profilesListCmd.Flags().String("activity", "", "filter by activity")
	profilesCmd.AddCommand(profilesAddCmd, profilesListCmd, profilesShowCmd, profilesDeleteCmd)
}

var matchesCmd = &cobra.Command{
	Use:   "matches <profileID>",
	Short: "Rank potential friends for a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var ms []match
		path := fmt.Sprintf("/profiles/%s/matches?limit=%d", url.PathEscape(args[0]), limit)
		if err := client.call(cmd.Context(), http.MethodGet, path, nil, &ms); err != nil {
			return err
		}
		if len(ms) == 0 {
			fmt.Fprintln(stdout, "No matches yet.")
			return nil
		}
		for _, m := range ms {
			shared := append(append([]string{}, m.SharedInterests...), m.SharedActivities...)
			fmt.Fprintf(stdout, "%2d  %s  %s  %s\n", m.MatchScore, colorize(colorBold, m.Name),
				colorize(colorDim, m.ID), strings.Join(shared, ", "))
		}
		return nil
	},
}

var connectCmd = &cobra.Command{
	Use:   "connect <senderID> <receiverID>",
	Short: "Send a connection request",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var c struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		err = client.call(cmd.Context(), http.MethodPost, "/connections", map[string]string{
			"sender_id":   args[0],
			"receiver_id": args[1],
		}, &c)
		if err != nil {
			return err
		}
		printSuccess("Connection %s is %s", c.ID, c.Status)
		return nil
	},
}

func init() {
	matchesCmd.Flags().Int("limit", 10, "maximum number of matches")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(stdout, "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
}
