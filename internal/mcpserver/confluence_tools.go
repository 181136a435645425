package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rushi-auxo/fivetran-mcp/internal/confluence"
	"github.com/rushi-auxo/fivetran-mcp/internal/github"
	"github.com/rushi-auxo/fivetran-mcp/internal/result"
)

// ConfluenceAPI is the subset of *confluence.Client the tools use.
type ConfluenceAPI interface {
	SummarizePage(ctx context.Context, pageID string) (string, error)
	CreatePage(ctx context.Context, body, format string) (json.RawMessage, error)
	ListSpaces(ctx context.Context, limit int) ([]confluence.SpaceSummary, error)
}

// GitHubAPI is the subset of *github.Client the tools use.
type GitHubAPI interface {
	ListPullRequests(ctx context.Context, owner, repo, state string) ([]github.PullRequestSummary, error)
	CreatePullRequest(ctx context.Context, owner, repo string, pr github.PullRequest) (json.RawMessage, error)
	CommentOnPullRequest(ctx context.Context, owner, repo string, number int, body string) (json.RawMessage, error)
	ReviewPullRequest(ctx context.Context, owner, repo string, number int, body, event string) (json.RawMessage, error)
	GetUser(ctx context.Context, username string) (json.RawMessage, error)
}

// ConfluenceDeps bundles what the Confluence server needs.
type ConfluenceDeps struct {
	Confluence ConfluenceAPI
	GitHub     GitHubAPI
	Logger     *slog.Logger
}

type confluenceTools struct {
	conf ConfluenceAPI
	gh   GitHubAPI
}

// NewConfluence builds the Confluence/GitHub server.
func NewConfluence(deps ConfluenceDeps) *Server {
	s := newServer("Confluence MCP",
		"Tools for Confluence pages and spaces and GitHub pull requests. Read GitHub user profiles from github://{username}.",
		deps.Logger)
	t := &confluenceTools{conf: deps.Confluence, gh: deps.GitHub}

	s.addTools(
		server.ServerTool{Tool: summarizePageTool(), Handler: t.handleSummarizePage},
		server.ServerTool{Tool: createPageTool(), Handler: t.handleCreatePage},
		server.ServerTool{Tool: navigateSpacesTool(), Handler: t.handleNavigateSpaces},
		server.ServerTool{Tool: listPullRequestsTool(), Handler: t.handleListPullRequests},
		server.ServerTool{Tool: createPullRequestTool(), Handler: t.handleCreatePullRequest},
		server.ServerTool{Tool: commentOnPullRequestTool(), Handler: t.handleCommentOnPullRequest},
		server.ServerTool{Tool: reviewPullRequestTool(), Handler: t.handleReviewPullRequest},
	)
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate("github://{username}", "github_user_profile",
			mcp.WithTemplateDescription("Fetch a GitHub user profile"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		t.readUserProfile,
	)
	return s
}

// --- Confluence ---

func summarizePageTool() mcp.Tool {
	return mcp.NewTool("summarize_page",
		mcp.WithDescription("Fetch and summarize a Confluence page by ID."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("page_id", mcp.Required(), mcp.Description("Confluence page ID")),
	)
}

func createPageTool() mcp.Tool {
	return mcp.NewTool("create_page",
		mcp.WithDescription(`Create a new Confluence page in the configured space.
The title is generated from the current date and time. The body can be any
text (conversation, JSON, etc.).`),
		mcp.WithString("body", mcp.Required(), mcp.Description("Page content")),
		mcp.WithString("format",
			mcp.Description("storage stores the body as-is; markdown renders it to XHTML first"),
			mcp.Enum(confluence.FormatStorage, confluence.FormatMarkdown),
			mcp.DefaultString(confluence.FormatStorage),
		),
	)
}

func navigateSpacesTool() mcp.Tool {
	return mcp.NewTool("navigate_spaces",
		mcp.WithDescription("List spaces available in Confluence."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithNumber("limit", mcp.Description("Maximum number of spaces"), mcp.DefaultNumber(confluence.DefaultSpaceLimit)),
	)
}

type summarizePageArgs struct {
	PageID string `json:"page_id"`
}

func (t *confluenceTools) handleSummarizePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args summarizePageArgs
	if err := req.BindArguments(&args); err != nil {
		return invalidArgs(err), nil
	}
	if res := requireArgs("page_id", args.PageID); res != nil {
		return res, nil
	}
	text, err := t.conf.SummarizePage(ctx, args.PageID)
	return textResult(result.Of(text, err))
}

type createPageArgs struct {
	Body   string `json:"body"`
	Format string `json:"format"`
}

func (t *confluenceTools) handleCreatePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args createPageArgs
	if err := req.BindArguments(&args); err != nil {
		return invalidArgs(err), nil
	}
	page, err := t.conf.CreatePage(ctx, args.Body, args.Format)
	return toolResult(result.Of(page, err))
}

type navigateSpacesArgs struct {
	Limit int `json:"limit"`
}

func (t *confluenceTools) handleNavigateSpaces(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := navigateSpacesArgs{Limit: confluence.DefaultSpaceLimit}
	if err := req.BindArguments(&args); err != nil {
		return invalidArgs(err), nil
	}
	spaces, err := t.conf.ListSpaces(ctx, args.Limit)
	return toolResult(result.Of(spaces, err))
}

// --- GitHub ---

func listPullRequestsTool() mcp.Tool {
	return mcp.NewTool("list_pull_requests",
		mcp.WithDescription("List pull requests in a repo (default: open)."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Repository owner (org or user)")),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository name")),
		mcp.WithString("state", mcp.Enum(github.States...), mcp.DefaultString("open")),
	)
}

func createPullRequestTool() mcp.Tool {
	return mcp.NewTool("create_pull_request",
		mcp.WithDescription("Create a pull request from head into base."),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Repository owner (org or user)")),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository name")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Pull request title")),
		mcp.WithString("head", mcp.Required(), mcp.Description("Branch where your changes are (e.g. feature-branch)")),
		mcp.WithString("base", mcp.Required(), mcp.Description("Branch you want to merge into (e.g. main)")),
		mcp.WithString("body", mcp.Description("Pull request description (markdown)"), mcp.DefaultString("")),
	)
}

func commentOnPullRequestTool() mcp.Tool {
	return mcp.NewTool("comment_on_pull_request",
		mcp.WithDescription("Add a comment to a pull request."),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Repository owner (org or user)")),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository name")),
		mcp.WithNumber("pr_number", mcp.Required(), mcp.Description("Pull request number")),
		mcp.WithString("body", mcp.Required(), mcp.Description("Comment text (markdown)")),
	)
}

func reviewPullRequestTool() mcp.Tool {
	return mcp.NewTool("review_pull_request",
		mcp.WithDescription("Review a pull request. event can be COMMENT, APPROVE or REQUEST_CHANGES."),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Repository owner (org or user)")),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository name")),
		mcp.WithNumber("pr_number", mcp.Required(), mcp.Description("Pull request number")),
		mcp.WithString("body", mcp.Required(), mcp.Description("Review text (markdown)")),
		mcp.WithString("event", mcp.Enum(github.ReviewEvents...), mcp.DefaultString("COMMENT")),
	)
}

// repoArgs is shared by the pull request tools.
type repoArgs struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

type listPullRequestsArgs struct {
	repoArgs
	State string `json:"state"`
}

func (t *confluenceTools) handleListPullRequests(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args listPullRequestsArgs
	if err := req.BindArguments(&args); err != nil {
		return invalidArgs(err), nil
	}
	if res := requireArgs("owner", args.Owner, "repo", args.Repo); res != nil {
		return res, nil
	}
	prs, err := t.gh.ListPullRequests(ctx, args.Owner, args.Repo, args.State)
	return toolResult(result.Of(prs, err))
}

type createPullRequestArgs struct {
	repoArgs
	Title string `json:"title"`
	Head  string `json:"head"`
	Base  string `json:"base"`
	Body  string `json:"body"`
}

func (t *confluenceTools) handleCreatePullRequest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args createPullRequestArgs
	if err := req.BindArguments(&args); err != nil {
		return invalidArgs(err), nil
	}
	if res := requireArgs("owner", args.Owner, "repo", args.Repo, "title", args.Title, "head", args.Head, "base", args.Base); res != nil {
		return res, nil
	}
	pr, err := t.gh.CreatePullRequest(ctx, args.Owner, args.Repo, github.PullRequest{
		Title: args.Title,
		Head:  args.Head,
		Base:  args.Base,
		Body:  args.Body,
	})
	return toolResult(result.Of(pr, err))
}

type prCommentArgs struct {
	repoArgs
	PRNumber int    `json:"pr_number"`
	Body     string `json:"body"`
	Event    string `json:"event"`
}

func (a prCommentArgs) check() *mcp.CallToolResult {
	if res := requireArgs("owner", a.Owner, "repo", a.Repo, "body", a.Body); res != nil {
		return res
	}
	if a.PRNumber <= 0 {
		return errorResult(result.Invalid("pr_number must be a positive integer"))
	}
	return nil
}

func (t *confluenceTools) handleCommentOnPullRequest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args prCommentArgs
	if err := req.BindArguments(&args); err != nil {
		return invalidArgs(err), nil
	}
	if res := args.check(); res != nil {
		return res, nil
	}
	comment, err := t.gh.CommentOnPullRequest(ctx, args.Owner, args.Repo, args.PRNumber, args.Body)
	return toolResult(result.Of(comment, err))
}

func (t *confluenceTools) handleReviewPullRequest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args prCommentArgs
	if err := req.BindArguments(&args); err != nil {
		return invalidArgs(err), nil
	}
	if res := args.check(); res != nil {
		return res, nil
	}
	review, err := t.gh.ReviewPullRequest(ctx, args.Owner, args.Repo, args.PRNumber, args.Body, args.Event)
	return toolResult(result.Of(review, err))
}

func (t *confluenceTools) readUserProfile(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	username := templateArg(req, "username", "github")
	if username == "" {
		return resourceJSON(req.Params.URI, result.Fail[json.RawMessage](result.Invalid("username is required")))
	}
	user, err := t.gh.GetUser(ctx, username)
	return resourceJSON(req.Params.URI, result.Of(user, err))
}
