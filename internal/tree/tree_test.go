package tree

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/starford/didact/internal/models"
	"github.com/starford/didact/internal/registry"
	"github.com/starford/didact/internal/settings"
)

type fakeSource struct {
	headings map[string][]models.Heading
	calls    int
}

func (f *fakeSource) Headings(_ context.Context, uri string) ([]models.Heading, error) {
	f.calls++
	h, ok := f.headings[uri]
	if !ok {
		return nil, errors.New("unreachable")
	}
	return h, nil
}

func est(v float64) *float64 { return &v }

func setup(t *testing.T) (*Tree, *registry.Registry, *fakeSource) {
	t.Helper()
	ctx := context.Background()
	reg := registry.New(settings.NewMemory(), registry.DefaultKey)
	for _, r := range [][3]string{
		{"Camel Intro", "camel.didact.md", "Camel"},
		{"Kafka Basics", "kafka.didact.adoc", "Streaming"},
		{"Plain", "plain.didact.md", "Camel"},
		{"Broken", "gone.didact.md", "Camel"},
	} {
		if err := reg.Register(ctx, r[0], r[1], r[2]); err != nil {
			t.Fatal(err)
		}
	}
	src := &fakeSource{headings: map[string][]models.Heading{
		"camel.didact.md": {
			{Title: "Setup", Level: 2, TimeEstimate: est(5)},
			{Title: "No time", Level: 2},
			{Title: "Run", Level: 2, TimeEstimate: est(2.5)},
			{Title: "Run", Level: 3, TimeEstimate: est(1)},
		},
		"kafka.didact.adoc": {{Title: "Start", Level: 2, TimeEstimate: est(10)}},
		"plain.didact.md":   {{Title: "Only", Level: 1}},
	}}
	return New(reg, src, nil), reg, src
}

func labels(ns []*Node) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Label
	}
	return out
}

func TestChildren_Lazy(t *testing.T) {
	tr, _, src := setup(t)
	ctx := context.Background()

	cats, err := tr.Children(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := labels(cats); len(got) != 2 || got[0] != "Camel" || got[1] != "Streaming" {
		t.Fatalf("categories = %v", got)
	}
	if src.calls != 0 {
		t.Errorf("category layer fetched %d documents", src.calls)
	}

	tuts, err := tr.Children(ctx, cats[0])
	if err != nil {
		t.Fatal(err)
	}
	if got := labels(tuts); len(got) != 3 {
		t.Fatalf("tutorials = %v", got)
	}
	byName := map[string]*Node{}
	for _, n := range tuts {
		byName[n.Label] = n
	}
	if !byName["Camel Intro"].Expandable || byName["Camel Intro"].TimeLabel != "(~8.5 mins)" {
		t.Errorf("camel node = %+v", byName["Camel Intro"])
	}
	if byName["Plain"].Expandable {
		t.Error("tutorial without estimated headings must not be expandable")
	}
	if byName["Broken"].Expandable {
		t.Error("unreachable tutorial must not be expandable")
	}
}

func TestChildren_HeadingsFilteredAndDeduplicated(t *testing.T) {
	tr, _, _ := setup(t)
	ctx := context.Background()
	cats, _ := tr.Children(ctx, nil)
	tuts, _ := tr.Children(ctx, cats[0])
	heads, err := tr.Children(ctx, tuts[0])
	if err != nil {
		t.Fatal(err)
	}
	got := labels(heads)
	if len(got) != 2 || got[0] != "Setup" || got[1] != "Run" {
		t.Errorf("headings = %v", got)
	}
	if heads[0].TimeLabel != "(~5 mins)" || heads[0].Kind != KindHeading {
		t.Errorf("heading = %+v", heads[0])
	}
}

func TestFindAndParent(t *testing.T) {
	tr, _, _ := setup(t)
	ctx := context.Background()
	if _, err := tr.Expand(ctx); err != nil {
		t.Fatal(err)
	}

	h := tr.FindHeadingNode("Camel", "Camel Intro", "Run")
	if h == nil {
		t.Fatal("heading not found")
	}
	p := tr.Parent(h)
	if p == nil || p.Kind != KindTutorial || p.Label != "Camel Intro" {
		t.Fatalf("parent of heading = %+v", p)
	}
	gp := tr.Parent(p)
	if gp == nil || gp.Kind != KindCategory || gp.Label != "Camel" {
		t.Errorf("parent of tutorial = %+v", gp)
	}
	if tr.Parent(gp) != nil {
		t.Error("category has no parent")
	}
	if tr.FindTutorialNode("Camel", "Kafka Basics") != nil {
		t.Error("tutorial found in wrong category")
	}
	if tr.FindCategoryNode("camel") != nil {
		t.Error("category lookup is exact")
	}
}

func TestRefreshRebuildsCategories(t *testing.T) {
	tr, reg, _ := setup(t)
	ctx := context.Background()
	if _, err := tr.Expand(ctx); err != nil {
		t.Fatal(err)
	}
	stale := tr.FindHeadingNode("Camel", "Camel Intro", "Setup")

	if err := reg.Register(ctx, "New One", "new.didact.md", "Fresh"); err != nil {
		t.Fatal(err)
	}
	if err := tr.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if tr.FindCategoryNode("Fresh") == nil {
		t.Error("new category missing after refresh")
	}
	if tr.FindTutorialNode("Camel", "Camel Intro") != nil {
		t.Error("refresh should discard deeper layers until expanded")
	}

	cats, _ := tr.Children(ctx, nil)
	if _, err := tr.Children(ctx, cats[0]); err != nil {
		t.Fatal(err)
	}
	if p := tr.Parent(stale); p == nil || p.Label != "Camel Intro" {
		t.Errorf("stale heading parent = %+v", p)
	}
}

func TestKindString(t *testing.T) {
	if KindTutorial.String() != "tutorial" {
		t.Error(KindTutorial.String())
	}
}

func TestKindJSONRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindCategory, KindTutorial, KindHeading} {
		data, err := json.Marshal(Node{Kind: k, Label: "x"})
		if err != nil {
			t.Fatal(err)
		}
		var n Node
		if err := json.Unmarshal(data, &n); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if n.Kind != k {
			t.Errorf("kind = %v, want %v", n.Kind, k)
		}
	}
	var k Kind
	if err := k.UnmarshalText([]byte("folder")); err == nil {
		t.Error("unknown kind should fail")
	}
}

func TestExpandFetchesEachTutorialOnce(t *testing.T) {
	tr, _, src := setup(t)
	if _, err := tr.Expand(context.Background()); err != nil {
		t.Fatal(err)
	}
	// Four registered tutorials, each resolved to a URI.
	if src.calls != 4 {
		t.Errorf("document loads = %d, want 4", src.calls)
	}
	if tr.FindHeadingNode("Camel", "Camel Intro", "Setup") == nil {
		t.Error("headings missing after expand")
	}
}
