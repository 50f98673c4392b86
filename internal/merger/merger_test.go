package merger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codellm-devkit/swiftdiagram-go/pkg/schema"
)

func primary(kind schema.TypeKind, qualified, file string, line int) schema.RawDecl {
	return schema.RawDecl{
		Kind:          kind,
		Name:          simpleName(qualified),
		QualifiedName: qualified,
		File:          file,
		Line:          line,
		AccessLevel:   schema.AccessInternal,
	}
}

func extension(target, file string, line int) schema.RawDecl {
	return schema.RawDecl{
		Kind:        schema.KindExtension,
		Name:        target,
		File:        file,
		Line:        line,
		AccessLevel: schema.AccessInternal,
	}
}

func TestMerge_ExtensionBeforePrimary(t *testing.T) {
	// L'ordine dei file mette la extension prima della primaria: il merge a
	// due passate deve comunque fonderle in un solo record.
	ext := extension("Widget", "A.swift", 1)
	ext.ColonList = []string{"Codable"}
	ext.Members = []schema.Member{{Name: "encodeExtra", Kind: schema.MemberMethod}}

	prim := primary(schema.KindClass, "Widget", "Widget.swift", 3)
	prim.Members = []schema.Member{{Name: "label", Kind: schema.MemberProperty}}

	res := Merge([]schema.RawDecl{ext, prim})
	require.Len(t, res.ByName, 1)

	rec := res.ByName["Widget"]
	require.NotNil(t, rec)
	assert.True(t, rec.HasPrimary)
	assert.Equal(t, schema.KindClass, rec.Type.Kind)
	assert.Equal(t, "Widget.swift", rec.Type.Location.File)
	assert.Equal(t, []string{"Codable"}, rec.ColonList)

	// I membri della primaria precedono quelli della extension.
	require.Len(t, rec.Type.Members, 2)
	assert.Equal(t, "label", rec.Type.Members[0].Name)
	assert.Equal(t, "encodeExtra", rec.Type.Members[1].Name)
}

func TestMerge_ExtensionOnly(t *testing.T) {
	ext := extension("Widget", "Extra.swift", 9)
	ext.Members = []schema.Member{{Name: "payload", Kind: schema.MemberProperty}}

	res := Merge([]schema.RawDecl{ext})
	rec, ok := res.Lookup("Widget")
	require.True(t, ok)
	assert.False(t, rec.HasPrimary)
	assert.Equal(t, schema.KindExtensionOnly, rec.Type.Kind)
	assert.Equal(t, "Extra.swift", rec.Type.Location.File)
	assert.Equal(t, 9, rec.Type.Location.Line)
	require.Len(t, rec.Type.Members, 1)
}

func TestMerge_SimpleNameTargetResolution(t *testing.T) {
	prim := primary(schema.KindStruct, "Outer.Inner", "Outer.swift", 5)
	ext := extension("Inner", "Ext.swift", 1)
	ext.Members = []schema.Member{{Name: "helper", Kind: schema.MemberMethod}}

	res := Merge([]schema.RawDecl{prim, ext})
	require.Len(t, res.ByName, 1)
	rec := res.ByName["Outer.Inner"]
	require.NotNil(t, rec)
	require.Len(t, rec.Type.Members, 1)
}

func TestMerge_AmbiguousSimpleNameCreatesPlaceholder(t *testing.T) {
	a := primary(schema.KindStruct, "Outer.Inner", "A.swift", 1)
	b := primary(schema.KindStruct, "Other.Inner", "B.swift", 1)
	ext := extension("Inner", "Ext.swift", 1)

	res := Merge([]schema.RawDecl{a, b, ext})
	require.Len(t, res.ByName, 3)
	rec, ok := res.ByName["Inner"]
	require.True(t, ok)
	assert.Equal(t, schema.KindExtensionOnly, rec.Type.Kind)

	// Il nome semplice ambiguo non risolve nemmeno in Lookup.
	_, ok = res.Lookup("Missing")
	assert.False(t, ok)
}

func TestMerge_AccessLevel(t *testing.T) {
	prim := primary(schema.KindStruct, "Gear", "Gear.swift", 1)

	implicit := extension("Gear", "A.swift", 1)

	explicit := extension("Gear", "B.swift", 1)
	explicit.AccessLevel = schema.AccessPublic
	explicit.AccessExplicit = true

	res := Merge([]schema.RawDecl{prim, implicit, explicit})
	rec := res.ByName["Gear"]
	require.NotNil(t, rec)

	// Solo l'accesso esplicito della extension partecipa al merge, e vince il
	// livello meno restrittivo.
	assert.Equal(t, schema.AccessPublic, rec.Type.AccessLevel)
}

func TestMerge_DuplicatePrimary(t *testing.T) {
	first := primary(schema.KindClass, "Dup", "A.swift", 2)
	first.Members = []schema.Member{{Name: "a", Kind: schema.MemberProperty}}

	second := primary(schema.KindStruct, "Dup", "B.swift", 7)
	second.Members = []schema.Member{{Name: "b", Kind: schema.MemberProperty}}
	second.ColonList = []string{"Codable"}

	res := Merge([]schema.RawDecl{first, second})
	rec := res.ByName["Dup"]
	require.NotNil(t, rec)

	// La prima primaria resta autoritativa per kind e posizione.
	assert.Equal(t, schema.KindClass, rec.Type.Kind)
	assert.Equal(t, "A.swift", rec.Type.Location.File)
	assert.Equal(t, []string{"Codable"}, rec.ColonList)
	require.Len(t, rec.Type.Members, 2)
}

func TestMerge_ExtensionOrderCommutative(t *testing.T) {
	prim := primary(schema.KindClass, "Widget", "A.swift", 1)
	b := extension("Widget", "B.swift", 1)
	b.ColonList = []string{"Codable", "Equatable"}
	b.Members = []schema.Member{{Name: "fromB", Kind: schema.MemberMethod}}
	c := extension("Widget", "C.swift", 1)
	c.ColonList = []string{"Equatable", "Sendable"}
	c.Members = []schema.Member{{Name: "fromC", Kind: schema.MemberMethod}}

	abc := Merge([]schema.RawDecl{prim, b, c}).ByName["Widget"]
	acb := Merge([]schema.RawDecl{prim, c, b}).ByName["Widget"]

	// La colon-list fusa è un set: stesso contenuto in entrambi gli ordini.
	assert.ElementsMatch(t, abc.ColonList, acb.ColonList)
	assert.Len(t, abc.ColonList, 3)

	names := func(rec *Record) []string {
		out := make([]string, 0, len(rec.Type.Members))
		for _, m := range rec.Type.Members {
			out = append(out, m.Name)
		}
		return out
	}
	assert.ElementsMatch(t, names(abc), names(acb))
}

func TestMerge_TypeRefsDeduped(t *testing.T) {
	prim := primary(schema.KindClass, "Hub", "Hub.swift", 1)
	prim.TypeRefs = []string{"Spoke", "Rim"}
	ext := extension("Hub", "Ext.swift", 1)
	ext.TypeRefs = []string{"Rim", "Axle"}

	res := Merge([]schema.RawDecl{prim, ext})
	assert.Equal(t, []string{"Axle", "Rim", "Spoke"}, res.ByName["Hub"].TypeRefs)
}
