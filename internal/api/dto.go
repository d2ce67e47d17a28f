package api

import (
	"github.com/starford/didact/internal/dispatch"
	"github.com/starford/didact/internal/models"
	"github.com/starford/didact/internal/tree"
	"github.com/starford/didact/internal/tutorial"
)

// RegisterTutorialRequest is the request body for registering a tutorial.
type RegisterTutorialRequest struct {
	Name     string `json:"name" example:"Camel Quickstart" validate:"required"`
	URI      string `json:"uri" example:"/home/me/tutorials/camel.didact.md" validate:"required"`
	Category string `json:"category" example:"Integration"`
}

// OpenRequest opens a tutorial by URI, or by its registered name and category.
type OpenRequest struct {
	URI      string `json:"uri,omitempty" example:"https://example.com/intro.didact.md"`
	Name     string `json:"name,omitempty" example:"Camel Quickstart"`
	Category string `json:"category,omitempty" example:"Integration"`
}

// DispatchRequest selects one action of a tutorial, by index or by href.
// An empty URI means the current tutorial.
type DispatchRequest struct {
	URI   string `json:"uri,omitempty"`
	Index *int   `json:"index,omitempty" example:"2"`
	Href  string `json:"href,omitempty" example:"didact://?commandId=didact.startTerminalWithName&text=camel"`
}

// RunRequest runs several actions of a tutorial in order. No indexes means
// every command link.
type RunRequest struct {
	URI     string `json:"uri,omitempty"`
	Indexes []int  `json:"indexes,omitempty" example:"0,2,3"`
}

// RunResponse lists the outcome of each dispatched action.
type RunResponse struct {
	Outcomes []dispatch.Outcome `json:"outcomes" validate:"required"`
	Failed   int                `json:"failed" example:"1"`
}

// ExecuteRequest invokes a capability directly.
type ExecuteRequest struct {
	URI        string            `json:"uri,omitempty"`
	Capability string            `json:"capability" example:"didact.requirementCheck" validate:"required"`
	Params     []string          `json:"params,omitempty" example:"mvn-req,mvn -v,Apache Maven"`
	Named      map[string]string `json:"named,omitempty"`
}

// ScaffoldRequest points at a project description JSON file.
type ScaffoldRequest struct {
	URI         string `json:"uri,omitempty"`
	ProjectFile string `json:"projectFile" example:"project.json" validate:"required"`
}

// TerminalRequest names a terminal.
type TerminalRequest struct {
	Name string `json:"name" example:"camel" validate:"required"`
}

// SendRequest is text to send to a terminal, followed by a newline.
type SendRequest struct {
	Text string `json:"text" example:"mvn package" validate:"required"`
}

// TutorialListResponse wraps every registration.
type TutorialListResponse struct {
	Tutorials []models.Tutorial `json:"tutorials" validate:"required"`
}

// TreeResponse is the fully expanded tutorial tree.
type TreeResponse struct {
	Nodes []*tree.Node `json:"nodes" validate:"required"`
}

// Document is the parsed tutorial response type (aliased from the domain layer).
type Document = tutorial.Document

// ActionListResponse wraps action links of a tutorial.
type ActionListResponse struct {
	Actions []models.Action `json:"actions" validate:"required"`
}

// TerminalListResponse lists live terminal names.
type TerminalListResponse struct {
	Terminals []string `json:"terminals" validate:"required"`
}

// TerminalOutputResponse is the retained tail of a terminal's output.
type TerminalOutputResponse struct {
	Name   string `json:"name" example:"camel" validate:"required"`
	Output string `json:"output" validate:"required"`
}
