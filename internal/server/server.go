// Package server espone il viewer del grafo: una pagina statica embedded e
// una API JSON che rianalizza la radice a ogni richiesta (la cache delle
// dichiarazioni rende economico il caso "niente è cambiato").
package server

import (
	"context"
	_ "embed"
	"net/http"
	"strings"
	"time"

	"github.com/codellm-devkit/swiftdiagram-go/internal/analyzer"
	"github.com/codellm-devkit/swiftdiagram-go/internal/output"
)

//go:embed viewer.html
var viewerHTML []byte

// Server incapsula l'http.Server del viewer.
type Server struct {
	httpServer *http.Server
	analyzer   *analyzer.Analyzer
	root       string
	version    string
}

// New costruisce il server sull'indirizzo dato (es. ":8019").
func New(addr string, an *analyzer.Analyzer, root, version string) *Server {
	s := &Server{
		analyzer: an,
		root:     root,
		version:  version,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleViewer)
	mux.HandleFunc("/api/graph", s.handleGraph)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           cors(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Addr ritorna l'indirizzo di ascolto configurato.
func (s *Server) Addr() string { return s.httpServer.Addr }

// Start blocca fino a Shutdown o errore di listen.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown chiude il server drenando le richieste in corso.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(viewerHTML)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	res, err := s.analyzer.Analyze(r.Context(), s.root)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	doc := output.BuildDocument(res.Graph, res.Root, s.version, res.Issues, true)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := output.Encode(w, doc, true); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// cors permette al viewer di essere servito da un'origine diversa dall'API
// (sviluppo della pagina in locale contro un server già in esecuzione).
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
