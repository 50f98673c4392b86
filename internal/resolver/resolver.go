// Package resolver trasforma i record fusi in nodi e archi: classifica le
// colon-list in inheritance/conformance e deriva composition e dependency
// dai membri e dai riferimenti nei body.
package resolver

import (
	"regexp"

	"github.com/codellm-devkit/swiftdiagram-go/internal/merger"
	"github.com/codellm-devkit/swiftdiagram-go/pkg/schema"
)

// Resolve produce i nodi finali (record fusi più nodi sintetici per i target
// mai dichiarati nello scan) e gli archi dedotti. L'ordine di ritorno è
// deterministico ma non significativo: il grafo riordina in fase di lettura.
func Resolve(merged *merger.Result) ([]schema.TypeInfo, []schema.Relationship) {
	r := &resolver{
		merged:    merged,
		edgeSet:   make(map[schema.Relationship]struct{}),
		pairs:     make(map[pair]struct{}),
		synthetic: make(map[string]*schema.TypeInfo),
	}

	records := merged.Ordered()
	for _, rec := range records {
		r.resolveColonList(rec)
	}
	for _, rec := range records {
		r.resolveComposition(rec)
	}
	// Le dependency si aggiungono per ultime: solo tra coppie che non hanno
	// già un arco più forte.
	for _, rec := range records {
		r.resolveDependency(rec)
	}

	nodes := make([]schema.TypeInfo, 0, len(records)+len(r.synthetic))
	for _, rec := range records {
		nodes = append(nodes, normalize(rec.Type))
	}
	for _, name := range r.syntheticOrder {
		nodes = append(nodes, normalize(*r.synthetic[name]))
	}
	return nodes, r.edges
}

type pair struct {
	source string
	target string
}

type resolver struct {
	merged         *merger.Result
	edges          []schema.Relationship
	edgeSet        map[schema.Relationship]struct{}
	pairs          map[pair]struct{}
	synthetic      map[string]*schema.TypeInfo
	syntheticOrder []string
}

// resolveColonList classifica ogni voce della colon-list di un record e
// registra l'arco e il nodo sintetico eventualmente necessario.
func (r *resolver) resolveColonList(rec *merger.Record) {
	hasInheritance := false
	for i, entry := range rec.ColonList {
		target, resolved := r.merged.Lookup(entry)
		if resolved && target == rec {
			continue
		}

		kind := classify(rec, target, resolved, i == 0, hasInheritance)

		targetName := entry
		if resolved {
			targetName = target.Type.Name
		}

		switch kind {
		case schema.RelInheritance:
			hasInheritance = true
			rec.Type.InheritedTypes = append(rec.Type.InheritedTypes, targetName)
			if !resolved {
				r.ensureSynthetic(targetName, schema.KindClass)
			}
		case schema.RelConformance:
			rec.Type.ConformedProtocols = append(rec.Type.ConformedProtocols, targetName)
			if !resolved {
				r.ensureSynthetic(targetName, schema.KindProtocol)
			}
		}
		r.addEdge(schema.Relationship{Kind: kind, Source: rec.Type.Name, Target: targetName})
	}
}

// classify decide se una voce della colon-list è una superclasse o una
// conformance. La politica è isolata qui: è il punto di estensione naturale
// se in futuro servisse distinguere i typealias di protocol composition.
//
// Regole: una voce risolta a una class è ereditarietà quando il dichiarante è
// class o actor e non ha già una superclasse; una voce non risolta in prima
// posizione di una class o actor è trattata da superclasse presunta; tutto il
// resto è conformance.
func classify(src *merger.Record, target *merger.Record, resolved, first, hasInheritance bool) schema.RelationKind {
	classLike := src.Type.Kind == schema.KindClass || src.Type.Kind == schema.KindActor
	if !classLike || hasInheritance {
		return schema.RelConformance
	}
	if resolved {
		if target.Type.Kind == schema.KindClass {
			return schema.RelInheritance
		}
		return schema.RelConformance
	}
	if first {
		return schema.RelInheritance
	}
	return schema.RelConformance
}

// typeNameRe estrae i nomi di tipo candidati da un'annotazione di tipo
// ("[Widget]", "Dictionary<String, Gear>", "Widget?").
var typeNameRe = regexp.MustCompile(`\b[A-Z]\w*\b`)

// resolveComposition deriva un arco composition per ogni tipo dichiarato di
// una stored property che risolve a un tipo noto dello scan.
func (r *resolver) resolveComposition(rec *merger.Record) {
	for _, m := range rec.Type.Members {
		if m.Kind != schema.MemberProperty || m.TypeName == "" {
			continue
		}
		for _, name := range typeNameRe.FindAllString(m.TypeName, -1) {
			target, ok := r.merged.Lookup(name)
			if !ok || target == rec {
				continue
			}
			r.addEdge(schema.Relationship{
				Kind:   schema.RelComposition,
				Source: rec.Type.Name,
				Target: target.Type.Name,
			})
		}
	}
}

// resolveDependency deriva un arco dependency per ogni riferimento nei body
// che risolve a un tipo noto, purché tra la coppia non esista già un arco di
// qualunque kind.
func (r *resolver) resolveDependency(rec *merger.Record) {
	for _, name := range rec.TypeRefs {
		target, ok := r.merged.Lookup(name)
		if !ok || target == rec {
			continue
		}
		if _, busy := r.pairs[pair{source: rec.Type.Name, target: target.Type.Name}]; busy {
			continue
		}
		r.addEdge(schema.Relationship{
			Kind:   schema.RelDependency,
			Source: rec.Type.Name,
			Target: target.Type.Name,
		})
	}
}

func (r *resolver) addEdge(e schema.Relationship) {
	if _, ok := r.edgeSet[e]; ok {
		return
	}
	r.edgeSet[e] = struct{}{}
	r.pairs[pair{source: e.Source, target: e.Target}] = struct{}{}
	r.edges = append(r.edges, e)
}

// ensureSynthetic crea (una sola volta) il nodo placeholder per un target mai
// dichiarato nello scan. Il primo uso decide il kind.
func (r *resolver) ensureSynthetic(name string, kind schema.TypeKind) {
	if _, ok := r.synthetic[name]; ok {
		return
	}
	r.synthetic[name] = &schema.TypeInfo{
		Name: name,
		Kind: kind,
	}
	r.syntheticOrder = append(r.syntheticOrder, name)
}

// normalize garantisce che le slice sempre-presenti del JSON siano [] e mai
// null.
func normalize(t schema.TypeInfo) schema.TypeInfo {
	if t.ConformedProtocols == nil {
		t.ConformedProtocols = []string{}
	}
	if t.InheritedTypes == nil {
		t.InheritedTypes = []string{}
	}
	if t.Members == nil {
		t.Members = []schema.Member{}
	}
	return t
}
