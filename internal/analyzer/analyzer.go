// Package analyzer orchestra la pipeline completa: walk, estrazione
// parallela per-file, merge delle extension, risoluzione delle relazioni e
// costruzione del grafo.
package analyzer

import (
	"context"
	"errors"
	"os"
	"runtime"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/codellm-devkit/swiftdiagram-go/internal/extractor"
	"github.com/codellm-devkit/swiftdiagram-go/internal/merger"
	"github.com/codellm-devkit/swiftdiagram-go/internal/resolver"
	"github.com/codellm-devkit/swiftdiagram-go/internal/walker"
	"github.com/codellm-devkit/swiftdiagram-go/pkg/graph"
	"github.com/codellm-devkit/swiftdiagram-go/pkg/schema"
)

// cacheSize è il numero di file tenuti nella cache delle dichiarazioni. Serve
// soprattutto in serve mode, dove ogni richiesta rianalizza la radice.
const cacheSize = 1024

// Options controlla un run di analisi.
type Options struct {
	Recursive    bool
	MaxDepth     int // negativo = nessun limite
	ExcludedDirs []string
	UseGitignore bool

	// Parallelism limita l'estrazione concorrente. Zero o negativo usa
	// runtime.NumCPU.
	Parallelism int
}

// Result è l'esito di un run: il grafo, i nodi risolti e la diagnostica
// per-file non fatale, nell'ordine di visita del walker.
type Result struct {
	Root   string
	Graph  *graph.Graph
	Types  []schema.TypeInfo
	Issues []schema.Issue
}

// cacheKey identifica il contenuto di un file: un file riscritto cambia
// mtime o size e invalida la entry.
type cacheKey struct {
	path  string
	mtime int64
	size  int64
}

// Analyzer esegue run ripetibili sulla stessa radice riusando le estrazioni
// dei file non cambiati.
type Analyzer struct {
	opts  Options
	cache *lru.Cache[cacheKey, []schema.RawDecl]
}

// New crea un Analyzer con le opzioni date.
func New(opts Options) *Analyzer {
	cache, _ := lru.New[cacheKey, []schema.RawDecl](cacheSize)
	return &Analyzer{opts: opts, cache: cache}
}

// Analyze esegue la pipeline sulla radice. Fallisce solo per radice
// inesistente o contesto cancellato: i problemi per-file diventano Issue e il
// run produce comunque il grafo parziale.
func (a *Analyzer) Analyze(ctx context.Context, root string) (*Result, error) {
	files, err := walker.Walk(root, walker.Options{
		Recursive:    a.opts.Recursive,
		MaxDepth:     a.opts.MaxDepth,
		ExcludedDirs: a.opts.ExcludedDirs,
		UseGitignore: a.opts.UseGitignore,
	})
	if err != nil {
		return nil, err
	}

	decls, issues, err := a.extractAll(ctx, files)
	if err != nil {
		return nil, err
	}

	merged := merger.Merge(decls)
	nodes, edges := resolver.Resolve(merged)

	g := graph.New()
	for _, n := range nodes {
		g.InsertNode(n)
	}
	for _, e := range edges {
		g.InsertEdge(e)
	}

	return &Result{Root: root, Graph: g, Types: nodes, Issues: issues}, nil
}

type fileResult struct {
	decls []schema.RawDecl
	issue *schema.Issue
}

// extractAll estrae i file in parallelo su buffer per-indice e ricompone nel
// ordine del walker: la concorrenza non deve toccare il determinismo.
func (a *Analyzer) extractAll(ctx context.Context, files []string) ([]schema.RawDecl, []schema.Issue, error) {
	buf := make([]fileResult, len(files))

	eg, ctx := errgroup.WithContext(ctx)
	limit := a.opts.Parallelism
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	eg.SetLimit(limit)

	for i, path := range files {
		i, path := i, path
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			buf[i] = a.extractOne(path)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	var decls []schema.RawDecl
	var issues []schema.Issue
	for _, fr := range buf {
		decls = append(decls, fr.decls...)
		if fr.issue != nil {
			issues = append(issues, *fr.issue)
		}
	}
	return decls, issues, nil
}

func (a *Analyzer) extractOne(path string) fileResult {
	var key cacheKey
	if info, err := os.Stat(path); err == nil {
		key = cacheKey{path: path, mtime: info.ModTime().UnixNano(), size: info.Size()}
		if decls, ok := a.cache.Get(key); ok {
			return fileResult{decls: decls}
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		ue := &schema.UnreadableFileError{File: path, Err: err}
		return fileResult{issue: &schema.Issue{
			Code:     schema.CodeUnreadableFile,
			File:     path,
			Message:  ue.Error(),
			Severity: "warning",
		}}
	}

	decls, err := extractor.ExtractFile(path, data)
	if err != nil {
		var me *schema.MalformedSourceError
		if errors.As(err, &me) {
			return fileResult{issue: &schema.Issue{
				Code:     schema.CodeMalformedSource,
				File:     path,
				Message:  me.Reason,
				Severity: "warning",
			}}
		}
		return fileResult{issue: &schema.Issue{
			Code:     schema.CodeMalformedSource,
			File:     path,
			Message:  err.Error(),
			Severity: "warning",
		}}
	}

	if key.path != "" {
		a.cache.Add(key, decls)
	}
	return fileResult{decls: decls}
}

// FilterByKind filtra i nodi per kind. È un filtro di sola presentazione per
// il listing: il grafo viene sempre costruito su tutti i tipi.
func FilterByKind(types []schema.TypeInfo, kinds []string) []schema.TypeInfo {
	if len(kinds) == 0 {
		return types
	}
	want := make(map[schema.TypeKind]struct{}, len(kinds))
	for _, k := range kinds {
		want[schema.TypeKind(k)] = struct{}{}
	}
	var out []schema.TypeInfo
	for _, t := range types {
		if _, ok := want[t.Kind]; ok {
			out = append(out, t)
		}
	}
	return out
}
