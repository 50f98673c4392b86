// Package graph contiene il RelationshipGraph: nodi deduplicati per nome
// qualificato e archi deduplicati per terna (source, target, kind).
package graph

import (
	"sort"

	"github.com/codellm-devkit/swiftdiagram-go/pkg/schema"
)

type edgeKey struct {
	source string
	target string
	kind   schema.RelationKind
}

// Graph è un valore puramente in-memory: nessun I/O, nessuno stato sul
// filesystem. Costruito una volta per run e immutabile dopo la costruzione
// per convenzione dei chiamanti.
type Graph struct {
	nodes map[string]*schema.TypeInfo
	edges map[edgeKey]schema.Relationship
}

// New crea un grafo vuoto.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*schema.TypeInfo),
		edges: make(map[edgeKey]schema.Relationship),
	}
}

// InsertNode inserisce un nodo. Idempotente: un nome qualificato già presente
// è un no-op, non un errore.
func (g *Graph) InsertNode(t schema.TypeInfo) {
	if _, ok := g.nodes[t.Name]; ok {
		return
	}
	c := t
	g.nodes[t.Name] = &c
}

// InsertEdge inserisce un arco. Idempotente sulla terna (source, target, kind).
func (g *Graph) InsertEdge(r schema.Relationship) {
	k := edgeKey{source: r.Source, target: r.Target, kind: r.Kind}
	if _, ok := g.edges[k]; ok {
		return
	}
	g.edges[k] = r
}

// NodeFor ritorna il nodo per nome qualificato. I chiamanti devono gestire
// il caso assente: gli archi possono riferire target fuori dallo scan.
func (g *Graph) NodeFor(name string) (*schema.TypeInfo, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// NodeCount ritorna il numero di nodi.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount ritorna il numero di archi.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Node accoppia un TypeInfo con i suoi archi uscenti, per il serializer e il
// viewer.
type Node struct {
	Relationships []schema.Relationship `json:"relationships"`
	Type          schema.TypeInfo       `json:"type"`
}

// AllNodes produce le coppie (TypeInfo, archi uscenti) in ordine stabile:
// nodi per nome qualificato, archi per kind e poi per target. Due run su
// input identico producono sequenze identiche.
func (g *Graph) AllNodes() []Node {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	outgoing := make(map[string][]schema.Relationship, len(g.nodes))
	for _, e := range g.edges {
		outgoing[e.Source] = append(outgoing[e.Source], e)
	}

	out := make([]Node, 0, len(names))
	for _, name := range names {
		edges := outgoing[name]
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].Kind != edges[j].Kind {
				return edges[i].Kind < edges[j].Kind
			}
			return edges[i].Target < edges[j].Target
		})
		if edges == nil {
			edges = []schema.Relationship{}
		}
		out = append(out, Node{Type: *g.nodes[name], Relationships: edges})
	}
	return out
}

// AllEdges produce tutti gli archi ordinati per (source, kind, target).
func (g *Graph) AllEdges() []schema.Relationship {
	out := make([]schema.Relationship, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Target < out[j].Target
	})
	return out
}
