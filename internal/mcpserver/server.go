// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes didact tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/didact/internal/dispatch"
	"github.com/starford/didact/internal/models"
	"github.com/starford/didact/internal/tutorial"
)

const linkFormatURI = "didact://link-format"

// Server wraps the MCP server with didact tools.
type Server struct {
	mcp *server.MCPServer
	svc *tutorial.Service
}

// New creates a new MCP server with all didact tools registered.
func New(svc *tutorial.Service, version string) *Server {
	s := &Server{svc: svc}
	if version == "" {
		version = "dev"
	}

	s.mcp = server.NewMCPServer(
		"Didact",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_tutorials",
		mcp.WithDescription("List registered tutorials with their category and source URI."),
		mcp.WithString("category", mcp.Description("Optional category to list (empty for all)")),
	), s.listTutorials)

	s.mcp.AddTool(mcp.NewTool("register_tutorial",
		mcp.WithDescription("Register a tutorial under a name and category. "+
			"The (name, category) pair must be unique."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Display name")),
		mcp.WithString("uri", mcp.Required(), mcp.Description("File path or http(s) URL of the tutorial")),
		mcp.WithString("category", mcp.Description("Category shown in the tutorial tree")),
	), s.registerTutorial)

	s.mcp.AddTool(mcp.NewTool("open_tutorial",
		mcp.WithDescription("Open a tutorial by URI, or by registered name and category, "+
			"and return its outline and action links."),
		mcp.WithString("uri", mcp.Description("File path or URL of the tutorial")),
		mcp.WithString("name", mcp.Description("Registered name, used when uri is empty")),
		mcp.WithString("category", mcp.Description("Registered category")),
	), s.openTutorial)

	s.mcp.AddTool(mcp.NewTool("get_tree",
		mcp.WithDescription("Return the fully expanded category, tutorial and heading tree with time estimates."),
	), s.getTree)

	s.mcp.AddTool(mcp.NewTool("list_actions",
		mcp.WithDescription("List the action links of a tutorial (the open one when uri is empty)."),
		mcp.WithString("uri", mcp.Description("Tutorial URI")),
		mcp.WithString("kind", mcp.Description("Filter by kind"), mcp.Enum("all", "command", "requirement")),
	), s.listActions)

	s.mcp.AddTool(mcp.NewTool("dispatch_action",
		mcp.WithDescription("Run one action link of a tutorial, selected by index or by its didact:// href. "+
			"Read the link format first via get_link_format or the "+linkFormatURI+" resource."),
		mcp.WithString("uri", mcp.Description("Tutorial URI (the open one when empty)")),
		mcp.WithNumber("index", mcp.Description("Action index in document order")),
		mcp.WithString("href", mcp.Description("didact:// link, used when index is absent")),
	), s.dispatchAction)

	s.mcp.AddTool(mcp.NewTool("run_tutorial",
		mcp.WithDescription("Run actions of a tutorial in order; failures do not stop the run. "+
			"Without indexes every command link runs."),
		mcp.WithString("uri", mcp.Description("Tutorial URI (the open one when empty)")),
		mcp.WithArray("indexes", mcp.Description("Action indexes to run"), mcp.Items(map[string]any{"type": "number"})),
	), s.runTutorial)

	s.mcp.AddTool(mcp.NewTool("validate_requirements",
		mcp.WithDescription("Probe every requirement link of a tutorial and report which are unsatisfied."),
		mcp.WithString("uri", mcp.Description("Tutorial URI (the open one when empty)")),
	), s.validateRequirements)

	s.mcp.AddTool(mcp.NewTool("get_link_format",
		mcp.WithDescription("Returns the didact tutorial and action link format. "+
			"Call this before writing tutorials or dispatching hrefs."),
	), s.getLinkFormat)

	s.mcp.AddResource(
		mcp.NewResource(linkFormatURI, "Didact Link Format",
			mcp.WithResourceDescription("How tutorials embed executable didact:// action links."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLinkFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listTutorials(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := req.GetString("category", "")
	items, err := s.svc.Registry().List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := []models.Tutorial{}
	for _, t := range items {
		if category == "" || t.Category == category {
			out = append(out, t)
		}
	}
	return jsonResult(out)
}

func (s *Server) registerTutorial(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	uri, err := req.RequireString("uri")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	category := req.GetString("category", "")
	if err := s.svc.Register(ctx, name, uri, category); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("registered: %s (%s)", name, category)), nil
}

// docSummary is the document view returned to MCP clients.
type docSummary struct {
	URI      string           `json:"uri"`
	Title    string           `json:"title"`
	Headings []models.Heading `json:"headings"`
	Warnings []string         `json:"warnings,omitempty"`
	Actions  []models.Action  `json:"actions"`
}

func (s *Server) openTutorial(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri := req.GetString("uri", "")
	name := req.GetString("name", "")

	var (
		doc *tutorial.Document
		err error
	)
	switch {
	case uri != "":
		doc, err = s.svc.Open(ctx, uri)
	case name != "":
		doc, err = s.svc.Start(ctx, name, req.GetString("category", ""))
	default:
		return mcp.NewToolResultError("uri or name is required"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(docSummary{
		URI:      doc.URI,
		Title:    doc.Title,
		Headings: doc.Headings,
		Warnings: doc.Warnings,
		Actions:  doc.Actions,
	})
}

func (s *Server) getTree(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodes, err := s.svc.Tree().Expand(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(nodes)
}

func (s *Server) listActions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri := req.GetString("uri", "")
	var (
		list []models.Action
		err  error
	)
	switch kind := req.GetString("kind", "all"); kind {
	case "command":
		list, err = s.svc.Commands(ctx, uri)
	case "requirement":
		list, err = s.svc.Requirements(ctx, uri)
	case "all", "":
		var doc *tutorial.Document
		if uri == "" {
			doc = s.svc.Current()
			if doc == nil {
				return mcp.NewToolResultError("no tutorial open"), nil
			}
		} else {
			doc, err = s.svc.Load(ctx, uri)
		}
		if doc != nil {
			list = doc.Actions
		}
	default:
		return mcp.NewToolResultError("unknown kind: " + kind), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(list)
}

func (s *Server) dispatchAction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri := req.GetString("uri", "")
	args := req.GetArguments()

	var (
		o   dispatch.Outcome
		err error
	)
	if raw, ok := args["index"]; ok {
		idx, ok := raw.(float64)
		if !ok {
			return mcp.NewToolResultError("index must be a number"), nil
		}
		o, err = s.svc.Dispatch(ctx, uri, int(idx))
	} else {
		href := req.GetString("href", "")
		if href == "" {
			return mcp.NewToolResultError("index or href is required"), nil
		}
		o, err = s.svc.DispatchLink(ctx, uri, href)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, _ := jsonResult(o)
	res.IsError = o.State == dispatch.Failed
	return res, nil
}

func (s *Server) runTutorial(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var indexes []int
	if raw, ok := req.GetArguments()["indexes"].([]any); ok {
		for _, v := range raw {
			f, ok := v.(float64)
			if !ok {
				return mcp.NewToolResultError("indexes must be numbers"), nil
			}
			indexes = append(indexes, int(f))
		}
	}
	outcomes, err := s.svc.Run(ctx, req.GetString("uri", ""), indexes)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(outcomes)
}

func (s *Server) validateRequirements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	o, err := s.svc.ValidateAll(ctx, req.GetString("uri", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summary, ok := o.Result.(dispatch.ValidationSummary)
	if !ok {
		return jsonResult(o)
	}
	if len(summary.Unsatisfied) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("all %d requirements satisfied", summary.Total)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d of %d requirements satisfied; unsatisfied: %s",
		summary.Satisfied, summary.Total, strings.Join(summary.Unsatisfied, ", "))), nil
}

func (s *Server) getLinkFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(LinkFormatContract), nil
}

func (s *Server) readLinkFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      linkFormatURI,
			MIMEType: "text/markdown",
			Text:     LinkFormatContract,
		},
	}, nil
}
