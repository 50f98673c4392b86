// Package output gestisce la serializzazione JSON del grafo delle relazioni.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/codellm-devkit/swiftdiagram-go/pkg/graph"
	"github.com/codellm-devkit/swiftdiagram-go/pkg/schema"
)

// DefaultFileName è il nome del file quando l'output è una directory.
const DefaultFileName = "diagram.json"

// Metadata descrive il run che ha prodotto il documento.
//
// I campi sono in ordine alfabetico di chiave JSON: insieme alle struct dello
// schema garantisce chiavi ordinate a ogni livello del documento senza un
// marshaler custom.
type Metadata struct {
	EdgeCount   int            `json:"edgeCount"`
	GeneratedAt string         `json:"generatedAt,omitempty"`
	Issues      []schema.Issue `json:"issues"`
	NodeCount   int            `json:"nodeCount"`
	Root        string         `json:"root"`
	Tool        string         `json:"tool"`
	Version     string         `json:"version"`
}

// Document è la forma serializzata completa: metadata più i nodi, ciascuno
// con i suoi archi uscenti.
type Document struct {
	Metadata Metadata     `json:"metadata"`
	Nodes    []graph.Node `json:"nodes"`
}

// Config configura il writer.
type Config struct {
	OutputPath string // file o directory di destinazione (vuoto = stdout)
	Indent     bool   // indentazione a due spazi
	Timestamp  bool   // se false, generatedAt viene omesso (output riproducibile)
}

// BuildDocument assembla il documento da un grafo completo. I nodi escono già
// nell'ordine stabile del grafo.
func BuildDocument(g *graph.Graph, root, version string, issues []schema.Issue, timestamp bool) *Document {
	if issues == nil {
		issues = []schema.Issue{}
	}
	doc := &Document{
		Metadata: Metadata{
			EdgeCount: g.EdgeCount(),
			Issues:    issues,
			NodeCount: g.NodeCount(),
			Root:      root,
			Tool:      "swiftdiagram-go",
			Version:   version,
		},
		Nodes: g.AllNodes(),
	}
	if timestamp {
		doc.Metadata.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	}
	return doc
}

// Write serializza il documento sulla destinazione configurata. Un path che
// termina con separatore o senza estensione .json viene trattato da
// directory e riceve il file di default.
func Write(doc *Document, cfg Config) error {
	if cfg.OutputPath == "" {
		return Encode(os.Stdout, doc, cfg.Indent)
	}

	path := cfg.OutputPath
	if filepath.Ext(path) != ".json" {
		path = filepath.Join(path, DefaultFileName)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	return Encode(f, doc, cfg.Indent)
}

// Encode scrive il documento su un writer arbitrario. Usato anche dal server
// del viewer per la risposta dell'API.
func Encode(w io.Writer, doc *Document, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	// I caratteri speciali nelle signature non devono essere escaped
	enc.SetEscapeHTML(false)

	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// Decode rilegge un documento serializzato. Usato nei test di round-trip e
// da chi consuma l'output a valle.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return &doc, nil
}
