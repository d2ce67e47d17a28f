// Package actions finds didact:// action links in a tutorial tree.
//
// A link has the form
//
//	didact://?commandId=didact.sendNamedTerminalAString&text=Term$$ls%20-la
//
// where commandId names the capability and text carries the positional
// parameters separated by "$$". Any other query parameter is kept as a named
// parameter (projectFilePath, completion, error, ...).
package actions

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/starford/didact/internal/markup"
	"github.com/starford/didact/internal/models"
)

const (
	// Scheme is the URI scheme of action links.
	Scheme = "didact"
	// Prefix namespaces every built-in capability.
	Prefix = "didact."

	legacyPrefix = "vscode.didact."
	paramSep     = "$$"
)

// Capability names understood by the dispatcher.
const (
	ScaffoldProject            = "didact.scaffoldProject"
	RequirementCheck           = "didact.requirementCheck"
	ExtensionRequirementCheck  = "didact.extensionRequirementCheck"
	WorkspaceFolderExistsCheck = "didact.workspaceFolderExistsCheck"
	CreateWorkspaceFolder      = "didact.createWorkspaceFolder"
	StartTerminalWithName      = "didact.startTerminalWithName"
	SendNamedTerminalAString   = "didact.sendNamedTerminalAString"
	SendNamedTerminalCtrlC     = "didact.sendNamedTerminalCtrlC"
	CloseNamedTerminal         = "didact.closeNamedTerminal"
	ValidateAllRequirements    = "didact.validateAllRequirements"
	GatherAllRequirements      = "didact.gatherAllRequirements"
	GatherAllCommands          = "didact.gatherAllCommands"
	OpenTutorial               = "didact.openTutorial"
	StartDidact                = "didact.startDidact"
	RegisterTutorial           = "didact.registerTutorial"
	RefreshView                = "didact.refreshView"
)

var requirementCapabilities = map[string]struct{}{
	RequirementCheck:           {},
	ExtensionRequirementCheck:  {},
	WorkspaceFolderExistsCheck: {},
}

// IsRequirement reports whether capability is a requirement probe.
func IsRequirement(capability string) bool {
	_, ok := requirementCapabilities[capability]
	return ok
}

// IsActionLink reports whether href uses the didact scheme.
func IsActionLink(href string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(href)), Scheme+":")
}

// ParseLink decodes a didact:// href into an action. Index is left zero.
func ParseLink(href, linkText string) (models.Action, error) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return models.Action{}, fmt.Errorf("actions: parse %q: %w", href, err)
	}
	if !strings.EqualFold(u.Scheme, Scheme) {
		return models.Action{}, fmt.Errorf("actions: %q is not a %s link", href, Scheme)
	}
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return models.Action{}, fmt.Errorf("actions: parse query of %q: %w", href, err)
	}

	a := models.Action{
		Capability: NormalizeCapability(q.Get("commandId")),
		LinkText:   linkText,
		Href:       href,
		Kind:       models.KindCommand,
	}
	if a.Capability == "" {
		// didact://didact.startTerminalWithName?text=... carries the id in the host.
		a.Capability = NormalizeCapability(u.Host)
	}
	if text, ok := q["text"]; ok && len(text) > 0 {
		a.Params = strings.Split(text[0], paramSep)
	}
	for k, v := range q {
		if k == "commandId" || k == "text" || len(v) == 0 {
			continue
		}
		if a.Named == nil {
			a.Named = make(map[string]string)
		}
		a.Named[k] = v[0]
	}
	if IsRequirement(a.Capability) {
		a.Kind = models.KindRequirement
	}
	return a, nil
}

// NormalizeCapability trims the id and maps legacy "vscode.didact." ids onto
// the didact namespace.
func NormalizeCapability(id string) string {
	id = strings.TrimSpace(id)
	if rest, ok := strings.CutPrefix(id, legacyPrefix); ok {
		return Prefix + rest
	}
	return id
}

// Extract returns every action link in document order. Links that fail to
// parse are returned in bad, keyed by their position among action links, so
// the caller can report them against the link.
func Extract(root *markup.Element) (found []models.Action, bad map[int]error) {
	idx := 0
	root.Walk(func(el *markup.Element) bool {
		if el.Tag != "a" {
			return true
		}
		href := el.Attrs["href"]
		if !IsActionLink(href) {
			return true
		}
		a, err := ParseLink(href, el.TextContent())
		if err != nil {
			if bad == nil {
				bad = make(map[int]error)
			}
			bad[idx] = err
			a = models.Action{Href: href, LinkText: el.TextContent(), Kind: models.KindCommand}
		}
		a.Index = idx
		idx++
		found = append(found, a)
		return false
	})
	return found, bad
}

// GatherCommands returns the command links: every action that is not a
// requirement probe, whatever capability it targets.
func GatherCommands(root *markup.Element) []models.Action {
	all, _ := Extract(root)
	return Commands(all)
}

// GatherRequirements returns only requirement-check links.
func GatherRequirements(root *markup.Element) []models.Action {
	all, _ := Extract(root)
	return Requirements(all)
}

// Commands filters actions down to non-requirement links, preserving order.
func Commands(all []models.Action) []models.Action {
	var out []models.Action
	for _, a := range all {
		if a.Kind != models.KindRequirement {
			out = append(out, a)
		}
	}
	return out
}

// Requirements filters actions down to requirement probes, preserving order.
func Requirements(all []models.Action) []models.Action {
	var out []models.Action
	for _, a := range all {
		if a.Kind == models.KindRequirement {
			out = append(out, a)
		}
	}
	return out
}

// LinkIndex maps each action link element to its index, for decorating a
// rendered tree.
func LinkIndex(root *markup.Element) map[*markup.Element]int {
	out := make(map[*markup.Element]int)
	idx := 0
	root.Walk(func(el *markup.Element) bool {
		if el.Tag == "a" && IsActionLink(el.Attrs["href"]) {
			out[el] = idx
			idx++
			return false
		}
		return true
	})
	return out
}
