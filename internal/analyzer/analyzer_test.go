package analyzer

import (
	"bytes"
	"context"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codellm-devkit/swiftdiagram-go/internal/output"
	"github.com/codellm-devkit/swiftdiagram-go/pkg/schema"
)

func testdata(t *testing.T, sub string) string {
	t.Helper()
	_, file, _, _ := runtime.Caller(0)
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", "..", "testdata", sub))
}

func TestAnalyze_Sample(t *testing.T) {
	an := New(Options{
		Recursive:    true,
		MaxDepth:     -1,
		ExcludedDirs: []string{"Generated"},
	})

	res, err := an.Analyze(context.Background(), testdata(t, "sample"))
	require.NoError(t, err)
	assert.Empty(t, res.Issues)

	g := res.Graph
	for _, name := range []string{
		"Describable", "Base", "Derived", "Gear", "GearSize",
		"Workshop", "Engine", "DeepThing", "Innermost", "Widget",
	} {
		_, ok := g.NodeFor(name)
		assert.True(t, ok, "missing node %s", name)
	}
	_, ok := g.NodeFor("Machine")
	assert.False(t, ok, "excluded dir leaked into the graph")

	// Widget esiste solo come extension: placeholder extension-only con la
	// conformance dichiarata dalla extension.
	widget, _ := g.NodeFor("Widget")
	require.NotNil(t, widget)
	assert.Equal(t, schema.KindExtensionOnly, widget.Kind)

	// La extension "public extension Gear" allarga l'accesso del tipo.
	gear, _ := g.NodeFor("Gear")
	require.NotNil(t, gear)
	assert.Equal(t, schema.AccessPublic, gear.AccessLevel)

	wantEdges := []schema.Relationship{
		{Kind: schema.RelInheritance, Source: "Derived", Target: "Base"},
		{Kind: schema.RelConformance, Source: "Base", Target: "Describable"},
		{Kind: schema.RelConformance, Source: "Derived", Target: "Codable"},
		{Kind: schema.RelConformance, Source: "Widget", Target: "Codable"},
		{Kind: schema.RelComposition, Source: "Derived", Target: "Gear"},
		{Kind: schema.RelComposition, Source: "Engine", Target: "Gear"},
		{Kind: schema.RelComposition, Source: "DeepThing", Target: "Gear"},
		{Kind: schema.RelDependency, Source: "Derived", Target: "Workshop"},
	}
	all := g.AllEdges()
	set := make(map[schema.Relationship]bool, len(all))
	for _, e := range all {
		set[e] = true
	}
	for _, e := range wantEdges {
		assert.True(t, set[e], "missing edge %+v", e)
	}
}

func TestAnalyze_MaxDepthPrunesNestedDirs(t *testing.T) {
	an := New(Options{Recursive: true, MaxDepth: 1, ExcludedDirs: []string{"Generated"}})

	res, err := an.Analyze(context.Background(), testdata(t, "sample"))
	require.NoError(t, err)

	_, ok := res.Graph.NodeFor("DeepThing")
	assert.True(t, ok)
	_, ok = res.Graph.NodeFor("Innermost")
	assert.False(t, ok)
}

func TestAnalyze_Deterministic(t *testing.T) {
	opts := Options{Recursive: true, MaxDepth: -1, ExcludedDirs: []string{"Generated"}}
	root := testdata(t, "sample")

	encode := func(an *Analyzer) []byte {
		res, err := an.Analyze(context.Background(), root)
		require.NoError(t, err)
		doc := output.BuildDocument(res.Graph, res.Root, "test", res.Issues, false)
		var buf bytes.Buffer
		require.NoError(t, output.Encode(&buf, doc, true))
		return buf.Bytes()
	}

	// Stesso analyzer due volte (la seconda passa dalla cache) e un analyzer
	// fresco: output byte-identico.
	an := New(opts)
	first := encode(an)
	assert.Equal(t, first, encode(an))
	assert.Equal(t, first, encode(New(opts)))
}

func TestAnalyze_MalformedFileIsRecoverable(t *testing.T) {
	an := New(Options{Recursive: true, MaxDepth: -1})

	res, err := an.Analyze(context.Background(), testdata(t, "malformed"))
	require.NoError(t, err)

	// Il file rotto produce una issue e zero dichiarazioni, il fratello sano
	// resta nel grafo.
	require.Len(t, res.Issues, 1)
	assert.Equal(t, schema.CodeMalformedSource, res.Issues[0].Code)
	assert.Equal(t, "warning", res.Issues[0].Severity)

	_, ok := res.Graph.NodeFor("Fine")
	assert.True(t, ok)
	_, ok = res.Graph.NodeFor("Broken")
	assert.False(t, ok)
}

func TestAnalyze_RootNotFound(t *testing.T) {
	an := New(Options{})
	_, err := an.Analyze(context.Background(), testdata(t, "does-not-exist"))
	require.ErrorIs(t, err, schema.ErrPathNotFound)
}

func TestFilterByKind(t *testing.T) {
	types := []schema.TypeInfo{
		{Name: "A", Kind: schema.KindClass},
		{Name: "P", Kind: schema.KindProtocol},
		{Name: "S", Kind: schema.KindStruct},
	}

	assert.Len(t, FilterByKind(types, nil), 3)

	got := FilterByKind(types, []string{"class", "protocol"})
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Name)
	assert.Equal(t, "P", got[1].Name)
}
