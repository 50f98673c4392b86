// Package merger fonde le dichiarazioni grezze cross-file: una dichiarazione
// primaria più tutte le sue extension diventano un singolo record canonico.
package merger

import (
	"sort"

	"github.com/codellm-devkit/swiftdiagram-go/pkg/schema"
)

// Record è lo stato fuso di un tipo logico. ColonList e TypeRefs restano
// grezzi: la classificazione in inheritance/conformance e gli archi derivati
// sono responsabilità del resolver.
type Record struct {
	Type       schema.TypeInfo
	ColonList  []string
	TypeRefs   []string
	HasPrimary bool
}

// Result indicizza i record fusi per nome qualificato e per nome semplice.
type Result struct {
	ByName map[string]*Record

	// names preserva l'ordine di prima registrazione per l'iterazione
	// deterministica.
	names []string

	// simple mappa nome semplice -> nomi qualificati che lo portano.
	simple map[string][]string
}

// Ordered ritorna i record nell'ordine di prima registrazione: primarie in
// ordine file-poi-riga, poi gli eventuali record extension-only.
func (r *Result) Ordered() []*Record {
	out := make([]*Record, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.ByName[name])
	}
	return out
}

// Lookup risolve un nome contro i record fusi: prima il match esatto sul nome
// qualificato, poi il match univoco sul nome semplice. Un nome semplice
// ambiguo non risolve.
func (r *Result) Lookup(name string) (*Record, bool) {
	if rec, ok := r.ByName[name]; ok {
		return rec, true
	}
	if quals := r.simple[name]; len(quals) == 1 {
		return r.ByName[quals[0]], true
	}
	return nil, false
}

// Merge esegue il fold a due passate: prima tutte le dichiarazioni primarie
// (l'ordine di input, file poi riga, decide quale primaria duplicata è
// autoritativa), poi tutte le extension. Così una extension trova sempre la
// sua primaria anche se compare prima nell'ordine dei file.
func Merge(decls []schema.RawDecl) *Result {
	res := &Result{
		ByName: make(map[string]*Record),
		simple: make(map[string][]string),
	}

	for i := range decls {
		d := &decls[i]
		if !d.Kind.IsPrimary() {
			continue
		}
		res.mergePrimary(d)
	}
	for i := range decls {
		d := &decls[i]
		if d.Kind != schema.KindExtension {
			continue
		}
		res.mergeExtension(d)
	}

	for _, rec := range res.ByName {
		sort.Strings(rec.TypeRefs)
		rec.TypeRefs = dedupSorted(rec.TypeRefs)
	}
	return res
}

func (res *Result) mergePrimary(d *schema.RawDecl) {
	rec, ok := res.ByName[d.QualifiedName]
	if !ok {
		rec = res.register(d.QualifiedName, simpleName(d.QualifiedName))
	}

	if rec.HasPrimary {
		// Primaria duplicata: la prima vista resta autoritativa per kind,
		// posizione e accesso, le successive contribuiscono solo membri e
		// colon-list.
		rec.appendFrom(d)
		return
	}

	rec.HasPrimary = true
	rec.Type.Kind = d.Kind
	rec.Type.AccessLevel = d.AccessLevel
	rec.Type.Location = schema.Location{File: d.File, Line: d.Line}
	rec.Type.GenericParameters = d.GenericParameters
	rec.appendFrom(d)
}

func (res *Result) mergeExtension(d *schema.RawDecl) {
	rec := res.targetOf(d)
	rec.appendFrom(d)

	// Una extension contribuisce al livello di accesso solo quando lo
	// dichiara esplicitamente; quello implicito non restringe né allarga.
	if d.AccessExplicit {
		rec.Type.AccessLevel = schema.LeastRestrictive(rec.Type.AccessLevel, d.AccessLevel)
	}
}

// targetOf risolve il tipo esteso da una extension: match esatto sul nome
// qualificato, poi match univoco sul nome semplice, altrimenti viene creato
// un record extension-only sintetico.
func (res *Result) targetOf(d *schema.RawDecl) *Record {
	if rec, ok := res.ByName[d.Name]; ok {
		return rec
	}
	if quals := res.simple[simpleName(d.Name)]; len(quals) == 1 {
		return res.ByName[quals[0]]
	}

	rec := res.register(d.Name, simpleName(d.Name))
	rec.Type.Kind = schema.KindExtensionOnly
	rec.Type.AccessLevel = d.AccessLevel
	rec.Type.Location = schema.Location{File: d.File, Line: d.Line}
	return rec
}

func (res *Result) register(qualified, simple string) *Record {
	rec := &Record{
		Type: schema.TypeInfo{Name: qualified},
	}
	res.ByName[qualified] = rec
	res.names = append(res.names, qualified)
	res.simple[simple] = append(res.simple[simple], qualified)
	return rec
}

// appendFrom accumula membri, attributi, colon-list e riferimenti di una
// dichiarazione nel record fuso. Nessuna deduplicazione dei membri: un
// metodo ridefinito in una extension compare due volte, come nel sorgente.
func (rec *Record) appendFrom(d *schema.RawDecl) {
	rec.Type.Members = append(rec.Type.Members, d.Members...)
	rec.Type.Attributes = appendUnique(rec.Type.Attributes, d.Attributes)
	rec.ColonList = appendUnique(rec.ColonList, d.ColonList)
	rec.TypeRefs = append(rec.TypeRefs, d.TypeRefs...)
}

func simpleName(qualified string) string {
	for i := len(qualified) - 1; i >= 0; i-- {
		if qualified[i] == '.' {
			return qualified[i+1:]
		}
	}
	return qualified
}

// appendUnique accoda gli elementi non ancora presenti preservando l'ordine
// testuale di prima apparizione.
func appendUnique(dst, src []string) []string {
	for _, s := range src {
		found := false
		for _, d := range dst {
			if d == s {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, s)
		}
	}
	return dst
}

func dedupSorted(s []string) []string {
	if len(s) == 0 {
		return s
	}
	out := s[:1]
	for _, v := range s[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
