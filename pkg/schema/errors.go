package schema

import (
	"errors"
	"fmt"
)

// ErrPathNotFound indica che il path radice non esiste: è l'unica condizione
// fatale, segnalata prima di qualsiasi traversal.
var ErrPathNotFound = errors.New("path not found")

// MalformedSourceError indica un file che non può essere decodificato come
// testo o la cui struttura a graffe non si bilancia mai. Recuperabile: il
// file contribuisce zero dichiarazioni e il run continua.
type MalformedSourceError struct {
	File   string
	Reason string
}

func (e *MalformedSourceError) Error() string {
	return fmt.Sprintf("malformed source %s: %s", e.File, e.Reason)
}

// UnreadableFileError indica un errore di permessi o I/O nella lettura di un
// file selezionato. Stessa politica di recupero di MalformedSourceError.
type UnreadableFileError struct {
	File string
	Err  error
}

func (e *UnreadableFileError) Error() string {
	return fmt.Sprintf("unreadable file %s: %v", e.File, e.Err)
}

func (e *UnreadableFileError) Unwrap() error { return e.Err }
