package extractor

// sanitize ritorna una copia del sorgente in cui il contenuto di commenti e
// literal stringa è sostituito da spazi, preservando i newline e quindi la
// numerazione delle righe. Il testo dichiarazione-like citato in un commento
// o in una stringa non può così produrre falsi positivi nel scanner.
//
// Gestisce commenti di linea, commenti a blocco annidati (il linguaggio
// analizzato li permette), stringhe semplici con escape, stringhe multilinea
// """ e l'interpolazione \( ... ) con parentesi bilanciate.
func sanitize(src string) string {
	const (
		stCode = iota
		stLineComment
		stBlockComment
		stString
		stMultiline
		stInterp
	)

	out := []byte(src)
	blank := func(i int) {
		if out[i] != '\n' {
			out[i] = ' '
		}
	}

	state := stCode
	retState := stCode // stato a cui tornare dopo un'interpolazione
	blockDepth := 0
	interpDepth := 0

	n := len(src)
	for i := 0; i < n; {
		c := src[i]
		switch state {
		case stCode:
			switch {
			case c == '/' && i+1 < n && src[i+1] == '/':
				blank(i)
				blank(i + 1)
				state = stLineComment
				i += 2
			case c == '/' && i+1 < n && src[i+1] == '*':
				blank(i)
				blank(i + 1)
				blockDepth = 1
				state = stBlockComment
				i += 2
			case c == '"' && i+2 < n && src[i+1] == '"' && src[i+2] == '"':
				blank(i)
				blank(i + 1)
				blank(i + 2)
				state = stMultiline
				i += 3
			case c == '"':
				blank(i)
				state = stString
				i++
			default:
				i++
			}

		case stLineComment:
			if c == '\n' {
				state = stCode
			} else {
				blank(i)
			}
			i++

		case stBlockComment:
			switch {
			case c == '/' && i+1 < n && src[i+1] == '*':
				blank(i)
				blank(i + 1)
				blockDepth++
				i += 2
			case c == '*' && i+1 < n && src[i+1] == '/':
				blank(i)
				blank(i + 1)
				blockDepth--
				if blockDepth == 0 {
					state = stCode
				}
				i += 2
			default:
				blank(i)
				i++
			}

		case stString:
			switch {
			case c == '\\' && i+1 < n && src[i+1] == '(':
				blank(i)
				blank(i + 1)
				interpDepth = 1
				retState = stString
				state = stInterp
				i += 2
			case c == '\\' && i+1 < n:
				blank(i)
				blank(i + 1)
				i += 2
			case c == '"':
				blank(i)
				state = stCode
				i++
			case c == '\n':
				// Stringa non terminata: best-effort, si torna al codice.
				state = stCode
				i++
			default:
				blank(i)
				i++
			}

		case stMultiline:
			switch {
			case c == '"' && i+2 < n && src[i+1] == '"' && src[i+2] == '"':
				blank(i)
				blank(i + 1)
				blank(i + 2)
				state = stCode
				i += 3
			case c == '\\' && i+1 < n && src[i+1] == '(':
				blank(i)
				blank(i + 1)
				interpDepth = 1
				retState = stMultiline
				state = stInterp
				i += 2
			default:
				blank(i)
				i++
			}

		case stInterp:
			// Il contenuto dell'interpolazione è codice ma viene comunque
			// oscurato: non può contenere dichiarazioni di tipo.
			switch c {
			case '(':
				interpDepth++
			case ')':
				interpDepth--
			}
			blank(i)
			i++
			if interpDepth == 0 {
				state = retState
			}
		}
	}

	return string(out)
}
