// Package walker enumera i file sorgente candidati sotto un path radice.
package walker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/codellm-devkit/swiftdiagram-go/pkg/schema"
)

const sourceExt = ".swift"

// Options controlla il comportamento del walker.
type Options struct {
	// Recursive abilita la discesa nelle sottodirectory. Se false, solo i
	// figli diretti della radice vengono visitati.
	Recursive bool

	// MaxDepth è la profondità massima misurata dalla radice (radice = 0).
	// I file oltre MaxDepth sono saltati e una directory al confine non
	// viene attraversata. Un valore negativo significa nessun limite.
	MaxDepth int

	// ExcludedDirs contiene i nomi di directory da escludere: confronto
	// esatto e case-sensitive sul segmento di path.
	ExcludedDirs []string

	// UseGitignore applica in aggiunta i pattern di un eventuale .gitignore
	// nella radice.
	UseGitignore bool
}

// Walk produces a deterministic, depth-first listing of candidate source
// files: siblings in lexicographic order so repeated runs over an unchanged
// tree yield identical orderings.
//
// I symlink non vengono seguiti (previene ricorsione infinita); un path che
// esiste ma non è né file né directory viene saltato in silenzio. Una radice
// inesistente fallisce con schema.ErrPathNotFound prima di ogni traversal.
func Walk(root string, opts Options) ([]string, error) {
	info, err := os.Lstat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", schema.ErrPathNotFound, root)
		}
		return nil, err
	}

	// Radice file: visita solo quel file.
	if info.Mode().IsRegular() {
		if isSourceFile(root) {
			return []string{root}, nil
		}
		return nil, nil
	}
	if !info.IsDir() {
		// Device node, socket, symlink: saltato.
		return nil, nil
	}

	w := &walker{root: root, opts: opts, excluded: make(map[string]struct{})}
	for _, d := range opts.ExcludedDirs {
		d = strings.TrimSpace(d)
		if d != "" {
			w.excluded[d] = struct{}{}
		}
	}
	if opts.UseGitignore {
		// Un .gitignore assente o illeggibile non è un errore.
		if ign, err := gitignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
			w.ignore = ign
		}
	}

	var files []string
	if err := w.walkDir(root, 0, &files); err != nil {
		return nil, err
	}
	return files, nil
}

type walker struct {
	root     string
	opts     Options
	excluded map[string]struct{}
	ignore   *gitignore.GitIgnore
}

// walkDir visita dir (a profondità depth) in ordine lessicografico.
func (w *walker) walkDir(dir string, depth int, files *[]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		// Directory illeggibile: saltata, il run continua sugli altri rami.
		return nil
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.Type()&fs.ModeSymlink != 0 {
			continue
		}

		if entry.IsDir() {
			if !w.opts.Recursive {
				continue
			}
			if _, skip := w.excluded[entry.Name()]; skip {
				continue
			}
			if w.ignored(path, true) {
				continue
			}
			// Una directory oltre il confine di profondità non viene
			// attraversata: i file al di sotto sono quindi saltati.
			if w.opts.MaxDepth >= 0 && depth+1 > w.opts.MaxDepth {
				continue
			}
			if err := w.walkDir(path, depth+1, files); err != nil {
				return err
			}
			continue
		}

		if !entry.Type().IsRegular() {
			continue
		}
		if !isSourceFile(path) {
			continue
		}
		if w.ignored(path, false) {
			continue
		}
		*files = append(*files, path)
	}
	return nil
}

func (w *walker) ignored(path string, isDir bool) bool {
	if w.ignore == nil {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if isDir {
		rel += "/"
	}
	return w.ignore.MatchesPath(rel)
}

func isSourceFile(path string) bool {
	return strings.HasSuffix(path, sourceExt)
}
