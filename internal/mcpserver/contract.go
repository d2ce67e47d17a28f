package mcpserver

// LinkFormatContract describes how tutorials embed executable actions, for
// LLM consumers that write or run didact tutorials.
const LinkFormatContract = `# Didact Tutorial Format

A didact tutorial is a Markdown (*.didact.md) or AsciiDoc (*.didact.adoc)
document whose links can run actions.

## Action links

` + "```" + `
didact://?commandId=<capability>&text=<p1>$$<p2>$$...&<name>=<value>
` + "```" + `

- ` + "`commandId`" + ` names the capability. The ` + "`vscode.`" + ` prefix is optional:
  ` + "`vscode.didact.startTerminalWithName`" + ` and ` + "`didact.startTerminalWithName`" + ` are the same.
- ` + "`text`" + ` holds positional parameters separated by ` + "`$$`" + `. URL-encode spaces (%20).
- Other query keys are named parameters. ` + "`completion`" + ` replaces the success
  notice and ` + "`error`" + ` prefixes the failure notice.

## Capabilities

| Capability | Parameters |
|---|---|
| didact.requirementCheck | id, command, expected text |
| didact.extensionRequirementCheck | id, extension id |
| didact.workspaceFolderExistsCheck | id |
| didact.createWorkspaceFolder | |
| didact.scaffoldProject | project JSON path (or projectFilePath=) |
| didact.startTerminalWithName | terminal |
| didact.sendNamedTerminalAString | terminal, text |
| didact.sendNamedTerminalCtrlC | terminal |
| didact.closeNamedTerminal | terminal |
| didact.validateAllRequirements | |
| didact.gatherAllRequirements | |
| didact.gatherAllCommands | |
| didact.openTutorial | tutorial URI |
| didact.startDidact | name, category |
| didact.registerTutorial | name, URI, category |
| didact.refreshView | |

Relative paths resolve against the tutorial that contains the link.

## Requirements

A requirement link probes the environment and updates the element whose id
is its first parameter:

` + "```" + `markdown
Maven: <span id="mvn-req">unknown</span>

[Check](didact://?commandId=didact.requirementCheck&text=mvn-req$$mvn%20-v$$Apache%20Maven)
` + "```" + `

## Time estimates

Mark a section with its estimated minutes. The tree shows "(~N mins)" per
heading and the total per tutorial.

- Markdown: ` + "`## Build {time=10}`" + `
- AsciiDoc: ` + "`[role=\"time=10\"]`" + ` on the section

## Frontmatter

An optional YAML block sets ` + "`title`" + `, ` + "`name`" + ` and ` + "`category`" + `:

` + "```" + `markdown
---
title: Camel Quickstart
category: Integration
---
` + "```" + `
`
