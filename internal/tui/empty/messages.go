// Package empty holds the summaries and next steps shown when a listing
// comes back empty.
package empty

import (
	"fmt"

	"github.com/taskhub/taskhub-cli/internal/output"
)

// Message is an empty-state summary with suggested follow-ups.
type Message struct {
	Title string
	Body  string
	Next  []output.Breadcrumb
}

// Options renders the message into a response: Title and Body become the
// summary, Next the breadcrumbs.
func (m Message) Options() []output.ResponseOption {
	summary := m.Title
	if m.Body != "" {
		summary += ". " + m.Body
	}
	opts := []output.ResponseOption{output.WithSummary(summary)}
	if len(m.Next) > 0 {
		opts = append(opts, output.WithBreadcrumbs(m.Next...))
	}
	return opts
}

// NoWorkspaces is the onboarding state: the user belongs to no workspace.
func NoWorkspaces() Message {
	return Message{
		Title: "No workspaces yet",
		Body:  "Create one or join with an invite link",
		Next: []output.Breadcrumb{
			{Action: "create", Cmd: `taskhub workspaces create --name "<name>"`, Description: "Create your first workspace"},
			{Action: "join", Cmd: "taskhub invite join <token>", Description: "Join a workspace you were invited to"},
		},
	}
}

// NoProjects is shown for a workspace without projects.
func NoProjects(workspaceID string) Message {
	return Message{
		Title: "No projects found",
		Next: []output.Breadcrumb{{
			Action:      "create",
			Cmd:         fmt.Sprintf(`taskhub projects create --workspace %s --name "<name>"`, workspaceID),
			Description: "Create a project",
		}},
	}
}

// NoTasks is shown for a project without tasks.
func NoTasks(projectID string) Message {
	return Message{
		Title: "No tasks found",
		Next: []output.Breadcrumb{{
			Action:      "create",
			Cmd:         fmt.Sprintf(`taskhub tasks create --project %s --title "<title>"`, projectID),
			Description: "Add the first task",
		}},
	}
}

// NoComments is shown for a task without comments.
func NoComments(taskID string) Message {
	return Message{
		Title: "No comments yet",
		Next: []output.Breadcrumb{{
			Action:      "comment",
			Cmd:         fmt.Sprintf(`taskhub comments add %s "<text>"`, taskID),
			Description: "Start the discussion",
		}},
	}
}

// NoActivity is shown when a feed has no entries.
func NoActivity() Message {
	return Message{Title: "No activity yet"}
}

// NoMatches is shown when filters exclude everything. It suggests
// dropping the filters.
func NoMatches(cmd string) Message {
	return Message{
		Title: "Nothing matches these filters",
		Next: []output.Breadcrumb{{
			Action:      "clear",
			Cmd:         cmd,
			Description: "List without filters",
		}},
	}
}

// BeyondLastPage is shown when --page is past the end.
func BeyondLastPage(totalPages int) Message {
	return Message{
		Title: "No items on this page",
		Body:  fmt.Sprintf("There are %d pages", totalPages),
	}
}
