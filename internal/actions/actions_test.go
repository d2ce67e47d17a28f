package actions

import (
	"testing"

	"github.com/starford/didact/internal/markup"
	"github.com/starford/didact/internal/models"
)

func tree(t *testing.T, src string) *markup.Element {
	t.Helper()
	root, err := markup.NewMarkdown().Convert([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	return root
}

func TestParseLink_PositionalParams(t *testing.T) {
	a, err := ParseLink("didact://?commandId=vscode.didact.sendNamedTerminalAString&text=Term$$ls%20-la$$x", "run ls")
	if err != nil {
		t.Fatal(err)
	}
	if a.Capability != SendNamedTerminalAString {
		t.Errorf("capability = %q", a.Capability)
	}
	want := []string{"Term", "ls -la", "x"}
	if len(a.Params) != len(want) {
		t.Fatalf("params = %v", a.Params)
	}
	for i := range want {
		if a.Params[i] != want[i] {
			t.Errorf("param %d = %q, want %q", i, a.Params[i], want[i])
		}
	}
	if a.Kind != models.KindCommand || a.LinkText != "run ls" {
		t.Errorf("action = %+v", a)
	}
}

func TestParseLink_NamedAndRequirement(t *testing.T) {
	a, err := ParseLink("didact://?commandId=didact.requirementCheck&text=mvn-status$$mvn%20--version$$Apache%20Maven&error=Install%20Maven", "check")
	if err != nil {
		t.Fatal(err)
	}
	if a.Kind != models.KindRequirement || a.RequirementID() != "mvn-status" {
		t.Errorf("action = %+v", a)
	}
	if a.Named["error"] != "Install Maven" {
		t.Errorf("named = %v", a.Named)
	}
}

func TestParseLink_HostForm(t *testing.T) {
	a, err := ParseLink("didact://didact.closeNamedTerminal?text=T1", "")
	if err != nil {
		t.Fatal(err)
	}
	if a.Capability != CloseNamedTerminal || len(a.Params) != 1 || a.Params[0] != "T1" {
		t.Errorf("action = %+v", a)
	}
}

func TestGather_OneCommandOneRequirement(t *testing.T) {
	root := tree(t, "# T\n\n"+
		"[Start](didact://?commandId=didact.startTerminalWithName&text=T1)\n\n"+
		"Maven: <span id=\"req\">unknown</span>\n\n"+
		"[Check](didact://?commandId=didact.requirementCheck&text=req$$true)\n\n"+
		"[Docs](https://example.com)\n")

	cmds := GatherCommands(root)
	reqs := GatherRequirements(root)
	if len(cmds) != 1 || cmds[0].Capability != StartTerminalWithName {
		t.Errorf("commands = %+v", cmds)
	}
	if len(reqs) != 1 || reqs[0].Capability != RequirementCheck {
		t.Errorf("requirements = %+v", reqs)
	}
	if cmds[0].Index != 0 || reqs[0].Index != 1 {
		t.Errorf("indexes = %d, %d", cmds[0].Index, reqs[0].Index)
	}
	if all, _ := Extract(root); len(all) != 2 {
		t.Errorf("extract = %d actions, want 2", len(all))
	}
}

func TestGather_NoLinks(t *testing.T) {
	root := tree(t, "# Nothing here\n\nJust [a link](https://example.com).\n")
	if got := GatherCommands(root); len(got) != 0 {
		t.Errorf("commands = %v", got)
	}
	if got := GatherRequirements(root); len(got) != 0 {
		t.Errorf("requirements = %v", got)
	}
}

func TestExtract_BadLinkKeepsPosition(t *testing.T) {
	root := tree(t, "[ok](didact://?commandId=a.b)\n\n[bad](didact://?commandId=a.b&text=%zz)\n\n[ok2](didact://?commandId=c.d)\n")
	found, bad := Extract(root)
	if len(found) != 3 {
		t.Fatalf("found = %d", len(found))
	}
	if _, ok := bad[1]; !ok || len(bad) != 1 {
		t.Errorf("bad = %v", bad)
	}
	if found[2].Index != 2 || found[2].Capability != "c.d" {
		t.Errorf("third = %+v", found[2])
	}
}

func TestLinkIndexMatchesExtract(t *testing.T) {
	root := tree(t, "[a](didact://?commandId=a.b) [b](https://x.io) [c](didact://?commandId=c.d)\n")
	idx := LinkIndex(root)
	if len(idx) != 2 {
		t.Fatalf("index = %v", idx)
	}
	for el, i := range idx {
		want := map[string]int{"a": 0, "c": 1}[el.TextContent()]
		if i != want {
			t.Errorf("%s -> %d, want %d", el.TextContent(), i, want)
		}
	}
}
