package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rushi-auxo/fivetran-mcp/internal/config"
	"github.com/rushi-auxo/fivetran-mcp/internal/jira"
	"github.com/rushi-auxo/fivetran-mcp/internal/result"
)

// JiraAPI is the subset of *jira.Client the tools use.
type JiraAPI interface {
	CreateIssue(ctx context.Context, projectKey, summary, description, issueType string) (json.RawMessage, error)
	SearchText(ctx context.Context, keyword string, maxResults int) ([]jira.IssueSummary, error)
	SearchJQL(ctx context.Context, jql string, maxResults int) ([]jira.IssueSummary, error)
	AddComment(ctx context.Context, issueKey, comment string) (json.RawMessage, error)
	ListTransitions(ctx context.Context, issueKey string) ([]jira.Transition, error)
	TransitionByName(ctx context.Context, issueKey, status string) (*jira.TransitionOutcome, error)
	TransitionByID(ctx context.Context, issueKey, transitionID string) (*jira.TransitionOutcome, error)
	Assign(ctx context.Context, issueKey, accountID string) (*jira.AssignOutcome, error)
	GetIssue(ctx context.Context, issueKey string) (json.RawMessage, error)
}

// JiraDeps bundles what the Jira server needs. TransitionMode selects the
// transition_issue schema: config.TransitionByName or config.TransitionByID.
type JiraDeps struct {
	Jira           JiraAPI
	TransitionMode string
	Logger         *slog.Logger
}

type jiraTools struct {
	jira JiraAPI
}

// NewJira builds the Jira server.
func NewJira(deps JiraDeps) *Server {
	s := newServer("Jira MCP Server",
		"Tools for Jira issues: create, search, comment, transition and assign. Read a full issue from jira://{issue_key}.",
		deps.Logger)
	t := &jiraTools{jira: deps.Jira}

	s.addTools(
		server.ServerTool{Tool: createIssueTool(), Handler: t.handleCreateIssue},
		server.ServerTool{Tool: searchTextTool(), Handler: t.handleSearchText},
		server.ServerTool{Tool: searchJQLTool(), Handler: t.handleSearchJQL},
		server.ServerTool{Tool: addCommentTool(), Handler: t.handleAddComment},
		server.ServerTool{Tool: listTransitionsTool(), Handler: t.handleListTransitions},
		t.transitionTool(deps.TransitionMode),
		server.ServerTool{Tool: assignIssueTool(), Handler: t.handleAssignIssue},
	)
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate("jira://{issue_key}", "jira_issue",
			mcp.WithTemplateDescription("Fetch a Jira issue"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		t.readIssue,
	)
	return s
}

// transitionTool picks the transition_issue variant for mode.
func (t *jiraTools) transitionTool(mode string) server.ServerTool {
	if mode == config.TransitionByID {
		return server.ServerTool{Tool: transitionByIDTool(), Handler: t.handleTransitionByID}
	}
	return server.ServerTool{Tool: transitionByNameTool(), Handler: t.handleTransitionByName}
}

func createIssueTool() mcp.Tool {
	return mcp.NewTool("create_jira_issue",
		mcp.WithDescription("Create a Jira issue in the given project."),
		mcp.WithString("project_key", mcp.Required(), mcp.Description("Project key, e.g. OPS")),
		mcp.WithString("summary", mcp.Required(), mcp.Description("Issue summary")),
		mcp.WithString("description", mcp.Description("Issue description"), mcp.DefaultString("")),
		mcp.WithString("issue_type", mcp.Description("Issue type name"), mcp.DefaultString(jira.DefaultIssueType)),
	)
}

func searchTextTool() mcp.Tool {
	return mcp.NewTool("search_issues_text",
		mcp.WithDescription("Search Jira issues by keyword in summary or description."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("keyword", mcp.Required(), mcp.Description("Text to search for")),
		mcp.WithNumber("max_results", mcp.DefaultNumber(jira.DefaultMaxResults)),
	)
}

func searchJQLTool() mcp.Tool {
	return mcp.NewTool("search_issues_jql",
		mcp.WithDescription("Search Jira issues with a raw JQL query."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("jql", mcp.Required(), mcp.Description(`JQL query, e.g. project = OPS AND status = "In Progress"`)),
		mcp.WithNumber("max_results", mcp.DefaultNumber(jira.DefaultMaxResults)),
	)
}

func addCommentTool() mcp.Tool {
	return mcp.NewTool("add_jira_comment",
		mcp.WithDescription("Add a comment to a Jira issue."),
		mcp.WithString("issue_key", mcp.Required(), mcp.Description("Issue key, e.g. OPS-12")),
		mcp.WithString("comment", mcp.Required(), mcp.Description("Comment text")),
	)
}

func listTransitionsTool() mcp.Tool {
	return mcp.NewTool("list_transitions_steps",
		mcp.WithDescription("List all possible transitions for a Jira issue with their names and IDs."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("issue_key", mcp.Required(), mcp.Description("Issue key, e.g. OPS-12")),
	)
}

func transitionByNameTool() mcp.Tool {
	return mcp.NewTool("transition_issue",
		mcp.WithDescription("Transition a Jira issue to a new status by name, e.g. 'In Progress' or 'Done'. Matching is case-insensitive."),
		mcp.WithString("issue_key", mcp.Required(), mcp.Description("Issue key, e.g. OPS-12")),
		mcp.WithString("status", mcp.Required(), mcp.Description("Target status name")),
	)
}

func transitionByIDTool() mcp.Tool {
	return mcp.NewTool("transition_issue",
		mcp.WithDescription("Transition a Jira issue using a transition ID from list_transitions_steps."),
		mcp.WithString("issue_key", mcp.Required(), mcp.Description("Issue key, e.g. OPS-12")),
		mcp.WithString("transition_id", mcp.Required(), mcp.Description("Transition ID")),
	)
}

func assignIssueTool() mcp.Tool {
	return mcp.NewTool("assign_issue",
		mcp.WithDescription("Assign a Jira issue to a user."),
		mcp.WithString("issue_key", mcp.Required(), mcp.Description("Issue key, e.g. OPS-12")),
		mcp.WithString("assignee", mcp.Required(), mcp.Description("Atlassian account ID")),
	)
}

type createIssueArgs struct {
	ProjectKey  string `json:"project_key"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	IssueType   string `json:"issue_type"`
}

func (t *jiraTools) handleCreateIssue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args createIssueArgs
	if err := req.BindArguments(&args); err != nil {
		return invalidArgs(err), nil
	}
	if res := requireArgs("project_key", args.ProjectKey, "summary", args.Summary); res != nil {
		return res, nil
	}
	issue, err := t.jira.CreateIssue(ctx, args.ProjectKey, args.Summary, args.Description, args.IssueType)
	return toolResult(result.Of(issue, err))
}

type searchArgs struct {
	Keyword    string `json:"keyword"`
	JQL        string `json:"jql"`
	MaxResults int    `json:"max_results"`
}

func (t *jiraTools) handleSearchText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := searchArgs{MaxResults: jira.DefaultMaxResults}
	if err := req.BindArguments(&args); err != nil {
		return invalidArgs(err), nil
	}
	if res := requireArgs("keyword", args.Keyword); res != nil {
		return res, nil
	}
	issues, err := t.jira.SearchText(ctx, args.Keyword, args.MaxResults)
	return toolResult(result.Of(issues, err))
}

func (t *jiraTools) handleSearchJQL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := searchArgs{MaxResults: jira.DefaultMaxResults}
	if err := req.BindArguments(&args); err != nil {
		return invalidArgs(err), nil
	}
	if res := requireArgs("jql", args.JQL); res != nil {
		return res, nil
	}
	issues, err := t.jira.SearchJQL(ctx, args.JQL, args.MaxResults)
	return toolResult(result.Of(issues, err))
}

type issueArgs struct {
	IssueKey     string `json:"issue_key"`
	Comment      string `json:"comment"`
	Status       string `json:"status"`
	TransitionID string `json:"transition_id"`
	Assignee     string `json:"assignee"`
}

func (t *jiraTools) handleAddComment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args issueArgs
	if err := req.BindArguments(&args); err != nil {
		return invalidArgs(err), nil
	}
	if res := requireArgs("issue_key", args.IssueKey, "comment", args.Comment); res != nil {
		return res, nil
	}
	comment, err := t.jira.AddComment(ctx, args.IssueKey, args.Comment)
	return toolResult(result.Of(comment, err))
}

func (t *jiraTools) handleListTransitions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args issueArgs
	if err := req.BindArguments(&args); err != nil {
		return invalidArgs(err), nil
	}
	if res := requireArgs("issue_key", args.IssueKey); res != nil {
		return res, nil
	}
	transitions, err := t.jira.ListTransitions(ctx, args.IssueKey)
	return toolResult(result.Of(transitions, err))
}

func (t *jiraTools) handleTransitionByName(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args issueArgs
	if err := req.BindArguments(&args); err != nil {
		return invalidArgs(err), nil
	}
	if res := requireArgs("issue_key", args.IssueKey, "status", args.Status); res != nil {
		return res, nil
	}
	outcome, err := t.jira.TransitionByName(ctx, args.IssueKey, args.Status)
	return toolResult(result.Of(outcome, err))
}

func (t *jiraTools) handleTransitionByID(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args issueArgs
	if err := req.BindArguments(&args); err != nil {
		return invalidArgs(err), nil
	}
	if res := requireArgs("issue_key", args.IssueKey, "transition_id", args.TransitionID); res != nil {
		return res, nil
	}
	outcome, err := t.jira.TransitionByID(ctx, args.IssueKey, args.TransitionID)
	return toolResult(result.Of(outcome, err))
}

func (t *jiraTools) handleAssignIssue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args issueArgs
	if err := req.BindArguments(&args); err != nil {
		return invalidArgs(err), nil
	}
	if res := requireArgs("issue_key", args.IssueKey, "assignee", args.Assignee); res != nil {
		return res, nil
	}
	outcome, err := t.jira.Assign(ctx, args.IssueKey, args.Assignee)
	return toolResult(result.Of(outcome, err))
}

func (t *jiraTools) readIssue(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	key := templateArg(req, "issue_key", "jira")
	if key == "" {
		return resourceJSON(req.Params.URI, result.Fail[json.RawMessage](result.Invalid("issue_key is required")))
	}
	issue, err := t.jira.GetIssue(ctx, key)
	return resourceJSON(req.Params.URI, result.Of(issue, err))
}
