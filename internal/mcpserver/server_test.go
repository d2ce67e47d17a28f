package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/didact/internal/dispatch"
	"github.com/starford/didact/internal/fetcher"
	"github.com/starford/didact/internal/models"
	"github.com/starford/didact/internal/probe"
	"github.com/starford/didact/internal/registry"
	"github.com/starford/didact/internal/settings"
	"github.com/starford/didact/internal/testutil"
	"github.com/starford/didact/internal/tutorial"
)

const sample = `# Sample

## Tools {time=4}

<span id="sh-req">unknown</span>

[Shell](didact://?commandId=didact.requirementCheck&text=sh-req$$echo%20hello$$hello)
[Missing](didact://?commandId=didact.requirementCheck&text=no-req$$echo%20nope$$absent)
[Commands](didact://?commandId=didact.gatherAllCommands)
`

func testServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	p := testutil.WriteFile(t, dir, "sample.didact.md", sample)

	disp := dispatch.New()
	if err := disp.RegisterBuiltins(dispatch.Backends{Prober: probe.New("", 5*time.Second, nil)}); err != nil {
		t.Fatal(err)
	}
	reg := registry.New(settings.NewMemory(), "")
	svc := tutorial.NewService(reg, fetcher.New(5*time.Second), disp, nil, nil)
	if err := svc.RegisterCapabilities(); err != nil {
		t.Fatal(err)
	}
	return New(svc, "test"), p
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_tutorials":
		result, err = srv.listTutorials(ctx, req)
	case "register_tutorial":
		result, err = srv.registerTutorial(ctx, req)
	case "open_tutorial":
		result, err = srv.openTutorial(ctx, req)
	case "get_tree":
		result, err = srv.getTree(ctx, req)
	case "list_actions":
		result, err = srv.listActions(ctx, req)
	case "dispatch_action":
		result, err = srv.dispatchAction(ctx, req)
	case "run_tutorial":
		result, err = srv.runTutorial(ctx, req)
	case "validate_requirements":
		result, err = srv.validateRequirements(ctx, req)
	case "get_link_format":
		result, err = srv.getLinkFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestRegisterAndList(t *testing.T) {
	srv, p := testServer(t)

	r := callTool(t, srv, "register_tutorial", map[string]interface{}{
		"name": "Sample", "uri": p, "category": "Demo",
	})
	if r.IsError {
		t.Fatalf("register: %s", resultText(r))
	}
	r = callTool(t, srv, "register_tutorial", map[string]interface{}{
		"name": "Sample", "uri": p, "category": "Demo",
	})
	if !r.IsError {
		t.Error("expected duplicate registration to fail")
	}

	var list []models.Tutorial
	if err := json.Unmarshal([]byte(resultText(callTool(t, srv, "list_tutorials", map[string]interface{}{}))), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].SourceURI != p {
		t.Errorf("list = %+v", list)
	}

	r = callTool(t, srv, "list_tutorials", map[string]interface{}{"category": "Other"})
	if strings.TrimSpace(resultText(r)) != "[]" {
		t.Errorf("filtered list = %q", resultText(r))
	}
}

func TestOpenByName(t *testing.T) {
	srv, p := testServer(t)
	callTool(t, srv, "register_tutorial", map[string]interface{}{"name": "Sample", "uri": p, "category": "Demo"})

	r := callTool(t, srv, "open_tutorial", map[string]interface{}{"name": "Sample", "category": "Demo"})
	if r.IsError {
		t.Fatalf("open: %s", resultText(r))
	}
	var doc docSummary
	if err := json.Unmarshal([]byte(resultText(r)), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Sample" || len(doc.Actions) != 3 {
		t.Errorf("doc = %+v", doc)
	}

	if r := callTool(t, srv, "open_tutorial", map[string]interface{}{}); !r.IsError {
		t.Error("expected error without uri or name")
	}
}

func TestListActionsByKind(t *testing.T) {
	srv, p := testServer(t)

	var reqs []models.Action
	r := callTool(t, srv, "list_actions", map[string]interface{}{"uri": p, "kind": "requirement"})
	if err := json.Unmarshal([]byte(resultText(r)), &reqs); err != nil {
		t.Fatal(err)
	}
	if len(reqs) != 2 {
		t.Errorf("requirements = %d", len(reqs))
	}

	if r := callTool(t, srv, "list_actions", map[string]interface{}{}); !r.IsError {
		t.Error("expected error with no open tutorial")
	}
}

func TestDispatchAction(t *testing.T) {
	srv, p := testServer(t)

	r := callTool(t, srv, "dispatch_action", map[string]interface{}{"uri": p, "index": float64(0)})
	var o dispatch.Outcome
	if err := json.Unmarshal([]byte(resultText(r)), &o); err != nil {
		t.Fatal(err)
	}
	if r.IsError || o.Requirement == nil || !o.Requirement.Satisfied {
		t.Errorf("outcome = %+v", o)
	}

	r = callTool(t, srv, "dispatch_action", map[string]interface{}{
		"uri":  p,
		"href": "didact://?commandId=didact.unknownThing",
	})
	if !r.IsError {
		t.Error("expected failed outcome to be flagged")
	}

	if r := callTool(t, srv, "dispatch_action", map[string]interface{}{"uri": p}); !r.IsError {
		t.Error("expected error without index or href")
	}
}

func TestRunTutorial(t *testing.T) {
	srv, p := testServer(t)
	r := callTool(t, srv, "run_tutorial", map[string]interface{}{
		"uri":     p,
		"indexes": []any{float64(0), float64(2)},
	})
	var outcomes []dispatch.Outcome
	if err := json.Unmarshal([]byte(resultText(r)), &outcomes); err != nil {
		t.Fatalf("%v: %s", err, resultText(r))
	}
	if len(outcomes) != 2 || outcomes[1].Capability != "didact.gatherAllCommands" {
		t.Errorf("outcomes = %+v", outcomes)
	}
}

func TestValidateRequirements(t *testing.T) {
	srv, p := testServer(t)
	r := callTool(t, srv, "validate_requirements", map[string]interface{}{"uri": p})
	text := resultText(r)
	if !strings.Contains(text, "1 of 2") || !strings.Contains(text, "no-req") {
		t.Errorf("validate = %q", text)
	}
}

func TestGetTreeAndFormat(t *testing.T) {
	srv, p := testServer(t)
	callTool(t, srv, "register_tutorial", map[string]interface{}{"name": "Sample", "uri": p, "category": "Demo"})

	text := resultText(callTool(t, srv, "get_tree", map[string]interface{}{}))
	if !strings.Contains(text, `"(~4 mins)"`) {
		t.Errorf("tree = %s", text)
	}
	if !strings.Contains(resultText(callTool(t, srv, "get_link_format", nil)), "didact://?commandId=") {
		t.Error("link format missing syntax")
	}
}
