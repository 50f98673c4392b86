package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codellm-devkit/swiftdiagram-go/pkg/schema"
)

func TestSanitize_CommentsAndStrings(t *testing.T) {
	src := `let a = "class Fake {" // class Another
/* block /* nested */ still comment */
let b = """
struct Multi {}
"""
let c = "interp \(Gear(teeth: 3)) end"`

	out := sanitize(src)

	// Stessa lunghezza e stessi newline: la numerazione delle righe regge.
	require.Equal(t, len(src), len(out))
	require.Equal(t, strings.Count(src, "\n"), strings.Count(out, "\n"))

	assert.NotContains(t, out, "Fake")
	assert.NotContains(t, out, "Another")
	assert.NotContains(t, out, "still comment")
	assert.NotContains(t, out, "Multi")
	assert.NotContains(t, out, "Gear")
	assert.Contains(t, out, "let a =")
	assert.Contains(t, out, "let c =")
}

func TestExtractFile_Declarations(t *testing.T) {
	src := `import Foundation

@MainActor
public final class Counter<Value>: Base, Codable {
    public var total: Value
    static let zero = 0

    init(total: Value) {
        self.total = total
        let helper = Formatter()
    }

    func bump() {
        let g = Gauge()
    }

    struct Snapshot {
        let at: Date
    }
}

enum Mode: String {
    case on, off
    case auto
}

extension Counter.Snapshot {
    func pretty() -> String { return "snap" }
}

protocol Marker {}
`
	decls, err := ExtractFile("Counter.swift", []byte(src))
	require.NoError(t, err)
	require.Len(t, decls, 5)

	counter := decls[0]
	assert.Equal(t, schema.KindClass, counter.Kind)
	assert.Equal(t, "Counter", counter.QualifiedName)
	assert.Equal(t, schema.AccessPublic, counter.AccessLevel)
	assert.True(t, counter.AccessExplicit)
	assert.Equal(t, []string{"MainActor"}, counter.Attributes)
	assert.Equal(t, []string{"Value"}, counter.GenericParameters)
	assert.Equal(t, []string{"Base", "Codable"}, counter.ColonList)
	assert.Equal(t, 4, counter.Line)

	names := make([]string, 0, len(counter.Members))
	for _, m := range counter.Members {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"total", "zero", "init", "bump"}, names)
	assert.Equal(t, "Value", counter.Members[0].TypeName)
	assert.Equal(t, schema.MemberMethod, counter.Members[2].Kind)

	// I riferimenti vengono raccolti nei body e ordinati.
	assert.Equal(t, []string{"Formatter", "Gauge"}, counter.TypeRefs)

	snapshot := decls[1]
	assert.Equal(t, schema.KindStruct, snapshot.Kind)
	assert.Equal(t, "Counter.Snapshot", snapshot.QualifiedName)

	mode := decls[2]
	assert.Equal(t, schema.KindEnum, mode.Kind)
	assert.Equal(t, []string{"String"}, mode.ColonList)
	var cases []string
	for _, m := range mode.Members {
		require.Equal(t, schema.MemberCase, m.Kind)
		cases = append(cases, m.Name)
	}
	assert.Equal(t, []string{"on", "off", "auto"}, cases)

	ext := decls[3]
	assert.Equal(t, schema.KindExtension, ext.Kind)
	assert.Equal(t, "Counter.Snapshot", ext.Name)
	require.Len(t, ext.Members, 1)
	assert.Equal(t, "pretty", ext.Members[0].Name)

	assert.Equal(t, schema.KindProtocol, decls[4].Kind)
}

func TestExtractFile_MultilineHeader(t *testing.T) {
	src := `public class Wide:
    Base,
    Codable
{
    var x: Int = 0
}
`
	decls, err := ExtractFile("Wide.swift", []byte(src))
	require.NoError(t, err)
	require.Len(t, decls, 1)

	assert.Equal(t, "Wide", decls[0].Name)
	assert.Equal(t, 1, decls[0].Line)
	assert.Equal(t, []string{"Base", "Codable"}, decls[0].ColonList)
}

func TestExtractFile_LocalTypesIgnored(t *testing.T) {
	src := `class Outer {
    func run() {
        struct Local {}
        let x = 1
    }
}
`
	decls, err := ExtractFile("Outer.swift", []byte(src))
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Equal(t, "Outer", decls[0].Name)
}

func TestExtractFile_ClassModifierIsNotADecl(t *testing.T) {
	src := `class Registry {
    class func shared() -> Registry { return Registry() }
    class var count: Int { return 0 }
}
`
	decls, err := ExtractFile("Registry.swift", []byte(src))
	require.NoError(t, err)
	require.Len(t, decls, 1)

	reg := decls[0]
	require.Len(t, reg.Members, 2)
	assert.Equal(t, "shared", reg.Members[0].Name)
	assert.Equal(t, schema.MemberMethod, reg.Members[0].Kind)
	assert.Equal(t, "count", reg.Members[1].Name)
	assert.Equal(t, schema.MemberProperty, reg.Members[1].Kind)
}

func TestExtractFile_WhereClauseCutFromColonList(t *testing.T) {
	src := `struct Box<T>: Sequence where T: Equatable {
    var items: [T] = []
}
`
	decls, err := ExtractFile("Box.swift", []byte(src))
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Equal(t, []string{"T"}, decls[0].GenericParameters)
	assert.Equal(t, []string{"Sequence"}, decls[0].ColonList)
}

func TestExtractFile_Malformed(t *testing.T) {
	_, err := ExtractFile("Broken.swift", []byte("class Broken {\n  func oops() {\n"))
	var me *schema.MalformedSourceError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "Broken.swift", me.File)

	_, err = ExtractFile("Extra.swift", []byte("class X {}\n}\n"))
	require.ErrorAs(t, err, &me)
}

func TestExtractFile_InvalidUTF8(t *testing.T) {
	_, err := ExtractFile("Bin.swift", []byte{0xff, 0xfe, 'a'})
	var me *schema.MalformedSourceError
	require.ErrorAs(t, err, &me)
}
