// Package extractor produce i declaration record grezzi da un singolo file
// sorgente, senza costruire un syntax tree completo: scan strutturale
// best-effort tollerante della sintassi del linguaggio analizzato.
package extractor

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/codellm-devkit/swiftdiagram-go/pkg/schema"
)

// ExtractFile estrae la sequenza ordinata di dichiarazioni da un file.
// Un file che non decodifica come UTF-8 o la cui struttura a graffe non si
// bilancia produce un MalformedSourceError e zero record: la tolleranza al
// fallimento parziale è responsabilità del chiamante.
func ExtractFile(path string, src []byte) ([]schema.RawDecl, error) {
	if !utf8.Valid(src) {
		return nil, &schema.MalformedSourceError{File: path, Reason: "not valid UTF-8 text"}
	}

	s := &scanner{
		file: path,
		refs: make(map[*schema.RawDecl]map[string]struct{}),
	}
	lines := strings.Split(sanitize(string(src)), "\n")
	for i, line := range lines {
		if err := s.scanLine(line, i+1); err != nil {
			return nil, err
		}
	}
	if len(s.scopes) != 0 {
		return nil, &schema.MalformedSourceError{File: path, Reason: "brace nesting never balances"}
	}

	out := make([]schema.RawDecl, 0, len(s.decls))
	for _, d := range s.decls {
		if set := s.refs[d]; len(set) > 0 {
			names := make([]string, 0, len(set))
			for name := range set {
				names = append(names, name)
			}
			sort.Strings(names)
			d.TypeRefs = names
		}
		out = append(out, *d)
	}
	return out, nil
}

// ============================================================================
// Scanner
// ============================================================================

// openScope è uno scope aperto da una graffa. decl è nil per gli scope che
// non sono corpi di tipo (body di funzioni, closure, accessor).
type openScope struct {
	decl *schema.RawDecl
}

// pendingHeader accumula l'header di una dichiarazione multilinea (generics o
// colon-list spezzati su più righe) in attesa della graffa di apertura.
type pendingHeader struct {
	decl   *schema.RawDecl
	header string
}

type scanner struct {
	file         string
	decls        []*schema.RawDecl
	scopes       []openScope
	refs         map[*schema.RawDecl]map[string]struct{}
	pendingAttrs []string
	pending      *pendingHeader
}

func (s *scanner) scanLine(line string, n int) error {
	t := strings.TrimSpace(line)

	if s.pending != nil {
		s.pending.header += " " + t
		if idx := strings.Index(s.pending.header, "{"); idx >= 0 {
			d := s.pending.decl
			finishHeader(d, s.pending.header[:idx])
			s.register(d)
			s.pending = nil
			return s.braces(line, d)
		}
		return s.braces(line, nil)
	}

	// Attributo su riga propria: si applica alla prossima dichiarazione.
	if name, ok := standaloneAttribute(t); ok {
		s.pendingAttrs = append(s.pendingAttrs, name)
		return nil
	}

	if d, rest, ok := s.matchDecl(t, n); ok {
		s.pendingAttrs = nil
		if idx := strings.Index(rest, "{"); idx >= 0 {
			finishHeader(d, rest[:idx])
			s.register(d)
			return s.braces(line, d)
		}
		s.pending = &pendingHeader{decl: d, header: rest}
		return nil
	}

	if top := s.top(); top != nil && top.decl != nil {
		s.matchMember(t, n, top.decl)
	} else if enc := s.enclosingType(); enc != nil {
		// Dentro un body: raccogli i nomi di tipo riferiti (euristica per
		// gli archi dependency, falsi negativi accettabili).
		s.collectRefs(t, enc)
	}

	if t != "" {
		s.pendingAttrs = nil
	}
	return s.braces(line, nil)
}

// braces processa le graffe della riga. La prima graffa aperta viene legata
// alla dichiarazione appena riconosciuta, le successive aprono scope anonimi.
func (s *scanner) braces(line string, bind *schema.RawDecl) error {
	for _, r := range line {
		switch r {
		case '{':
			s.scopes = append(s.scopes, openScope{decl: bind})
			bind = nil
		case '}':
			if len(s.scopes) == 0 {
				return &schema.MalformedSourceError{File: s.file, Reason: "unbalanced closing brace"}
			}
			s.scopes = s.scopes[:len(s.scopes)-1]
		}
	}
	return nil
}

func (s *scanner) top() *openScope {
	if len(s.scopes) == 0 {
		return nil
	}
	return &s.scopes[len(s.scopes)-1]
}

// enclosingType ritorna la dichiarazione di tipo più interna che racchiude la
// posizione corrente, o nil fuori da ogni tipo.
func (s *scanner) enclosingType() *schema.RawDecl {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if s.scopes[i].decl != nil {
			return s.scopes[i].decl
		}
	}
	return nil
}

// inTypeContext è true quando ogni scope aperto è il corpo di un tipo: le
// dichiarazioni locali dentro i body di funzione non vengono registrate.
func (s *scanner) inTypeContext() bool {
	for _, sc := range s.scopes {
		if sc.decl == nil {
			return false
		}
	}
	return true
}

// register assegna il nome qualificato dal nesting path e archivia il record.
func (s *scanner) register(d *schema.RawDecl) {
	segments := make([]string, 0, len(s.scopes)+1)
	for _, sc := range s.scopes {
		if sc.decl != nil {
			segments = append(segments, sc.decl.Name)
		}
	}
	segments = append(segments, d.Name)
	d.QualifiedName = strings.Join(segments, ".")
	s.decls = append(s.decls, d)
}

// ============================================================================
// Riconoscimento delle dichiarazioni
// ============================================================================

var (
	attrRe   = regexp.MustCompile(`^@([A-Za-z_]\w*)(\([^)]*\))?\s*`)
	accessRe = regexp.MustCompile(`^(open|public|internal|fileprivate|private)(\(set\))?\s+`)

	// Modificatori che possono precedere una dichiarazione di tipo.
	declModRe = regexp.MustCompile(`^(final|indirect|dynamic|required|convenience)\s+`)

	// Modificatori che possono precedere un membro.
	memberModRe = regexp.MustCompile(`^(static|class|final|override|lazy|weak|unowned|indirect|required|convenience|dynamic|mutating|nonmutating|nonisolated|optional|prefix|postfix|infix)\s+`)

	identRe  = regexp.MustCompile(`^[A-Za-z_]\w*`)
	dottedRe = regexp.MustCompile(`^[A-Za-z_]\w*(?:\.[A-Za-z_]\w*)*`)

	capIdentRe = regexp.MustCompile(`\b[A-Z]\w*\b`)
)

func standaloneAttribute(t string) (string, bool) {
	m := attrRe.FindStringSubmatch(t)
	if m == nil {
		return "", false
	}
	rest := strings.TrimSpace(t[len(m[0]):])
	if rest != "" {
		return "", false
	}
	return m[1], true
}

// matchDecl riconosce l'inizio di una dichiarazione di tipo (o extension) e
// ritorna il record parziale più il testo dell'header dopo il nome.
func (s *scanner) matchDecl(t string, line int) (*schema.RawDecl, string, bool) {
	if !s.inTypeContext() {
		return nil, "", false
	}

	rest := t
	attrs := append([]string(nil), s.pendingAttrs...)
	access := schema.AccessInternal
	explicit := false

	for {
		if m := attrRe.FindStringSubmatch(rest); m != nil {
			attrs = append(attrs, m[1])
			rest = rest[len(m[0]):]
			continue
		}
		if m := accessRe.FindStringSubmatch(rest); m != nil {
			if m[2] == "" { // private(set) restringe solo il setter
				access = schema.AccessLevel(m[1])
				explicit = true
			}
			rest = rest[len(m[0]):]
			continue
		}
		if m := declModRe.FindStringSubmatch(rest); m != nil {
			rest = rest[len(m[0]):]
			continue
		}
		break
	}

	kw, after := splitWord(rest)
	after = strings.TrimSpace(after)
	var kind schema.TypeKind
	switch kw {
	case "class":
		// "class" è anche un modificatore di membro (class func, class var).
		next, _ := splitWord(after)
		switch next {
		case "func", "var", "let", "final", "override", "subscript":
			return nil, "", false
		}
		kind = schema.KindClass
	case "struct":
		kind = schema.KindStruct
	case "protocol":
		kind = schema.KindProtocol
	case "enum":
		kind = schema.KindEnum
	case "actor":
		kind = schema.KindActor
	case "extension":
		kind = schema.KindExtension
	default:
		return nil, "", false
	}

	var name string
	if kind == schema.KindExtension {
		// Il target di una extension può essere un nome puntato (Foo.Bar).
		name = dottedRe.FindString(after)
	} else {
		name = identRe.FindString(after)
	}
	if name == "" {
		return nil, "", false
	}

	d := &schema.RawDecl{
		Kind:           kind,
		Name:           name,
		File:           s.file,
		Line:           line,
		AccessLevel:    access,
		AccessExplicit: explicit,
		Attributes:     dedup(attrs),
	}
	return d, after[len(name):], true
}

// finishHeader analizza il testo tra il nome e la graffa di apertura: lista
// dei parametri generici e colon-list grezza di superclasse/protocolli.
func finishHeader(d *schema.RawDecl, header string) {
	header = strings.TrimSpace(header)

	if strings.HasPrefix(header, "<") {
		params, rest := splitGenerics(header)
		d.GenericParameters = params
		header = strings.TrimSpace(rest)
	}

	if idx := topLevelColon(header); idx >= 0 {
		clause := header[idx+1:]
		if w := strings.Index(clause, " where "); w >= 0 {
			clause = clause[:w]
		}
		d.ColonList = parseColonList(clause)
	}
}

// splitGenerics separa "<A, B: Proto>" in nomi di parametro e resto.
func splitGenerics(s string) ([]string, string) {
	depth := 0
	end := -1
	for i, r := range s {
		switch r {
		case '<':
			depth++
		case '>':
			depth--
			if depth == 0 {
				end = i
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return nil, ""
	}

	var params []string
	for _, part := range splitTopLevel(s[1:end]) {
		if name := identRe.FindString(strings.TrimSpace(part)); name != "" {
			params = append(params, name)
		}
	}
	return params, s[end+1:]
}

// topLevelColon trova il ':' fuori da generics, tuple e parentesi.
func topLevelColon(s string) int {
	depth := 0
	for i, r := range s {
		switch r {
		case '<', '(', '[':
			depth++
		case '>', ')', ']':
			depth--
		case ':':
			if depth <= 0 {
				return i
			}
		}
	}
	return -1
}

// parseColonList spezza la colon-list "Base, Proto, Other<T>" nei singoli
// nomi, ignorando virgole annidate in generics o tuple e scartando gli
// argomenti generici. L'ordine testuale viene preservato.
func parseColonList(clause string) []string {
	var out []string
	for _, part := range splitTopLevel(clause) {
		part = strings.TrimSpace(part)
		// Attributi come "@unchecked Sendable" precedono il nome.
		for {
			m := attrRe.FindStringSubmatch(part)
			if m == nil {
				break
			}
			part = strings.TrimSpace(part[len(m[0]):])
		}
		if name := dottedRe.FindString(part); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// splitTopLevel divide una lista separata da virgole rispettando parentesi e
// generics annidati.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '<', '(', '[':
			depth++
		case '>', ')', ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// ============================================================================
// Membri e riferimenti
// ============================================================================

// matchMember riconosce stored property, metodi, case di enum e forme affini
// alla profondità del corpo del tipo corrente.
func (s *scanner) matchMember(t string, line int, owner *schema.RawDecl) {
	rest := t
	access := schema.AccessInternal
	for {
		if m := attrRe.FindStringSubmatch(rest); m != nil {
			rest = rest[len(m[0]):]
			continue
		}
		if m := accessRe.FindStringSubmatch(rest); m != nil {
			if m[2] == "" {
				access = schema.AccessLevel(m[1])
			}
			rest = rest[len(m[0]):]
			continue
		}
		if m := memberModRe.FindStringSubmatch(rest); m != nil {
			rest = rest[len(m[0]):]
			continue
		}
		break
	}

	kw, after := declWord(rest)
	switch kw {
	case "let", "var":
		name := identRe.FindString(strings.TrimSpace(after))
		if name == "" || name == "_" {
			return
		}
		annotation := strings.TrimSpace(after[strings.Index(after, name)+len(name):])
		typeText, initText := splitAnnotation(annotation)
		owner.Members = append(owner.Members, schema.Member{
			AccessLevel: access,
			Kind:        schema.MemberProperty,
			Line:        line,
			Name:        name,
			Signature:   signatureOf(t),
			TypeName:    typeText,
		})
		if initText != "" {
			s.collectRefs(initText, owner)
		}

	case "func":
		name := funcName(after)
		if name == "" {
			return
		}
		owner.Members = append(owner.Members, schema.Member{
			AccessLevel: access,
			Kind:        schema.MemberMethod,
			Line:        line,
			Name:        name,
			Signature:   signatureOf(t),
		})

	case "init":
		owner.Members = append(owner.Members, schema.Member{
			AccessLevel: access,
			Kind:        schema.MemberMethod,
			Line:        line,
			Name:        "init",
			Signature:   signatureOf(t),
		})

	case "subscript":
		owner.Members = append(owner.Members, schema.Member{
			AccessLevel: access,
			Kind:        schema.MemberMethod,
			Line:        line,
			Name:        "subscript",
			Signature:   signatureOf(t),
		})

	case "case":
		if owner.Kind != schema.KindEnum {
			return
		}
		for _, part := range splitTopLevel(after) {
			name := identRe.FindString(strings.TrimSpace(part))
			if name == "" {
				continue
			}
			owner.Members = append(owner.Members, schema.Member{
				AccessLevel: owner.AccessLevel,
				Kind:        schema.MemberCase,
				Line:        line,
				Name:        name,
			})
		}

	case "associatedtype":
		name := identRe.FindString(strings.TrimSpace(after))
		if name == "" {
			return
		}
		owner.Members = append(owner.Members, schema.Member{
			AccessLevel: access,
			Kind:        schema.MemberAssociatedType,
			Line:        line,
			Name:        name,
			Signature:   signatureOf(t),
		})

	case "typealias":
		name := identRe.FindString(strings.TrimSpace(after))
		if name == "" {
			return
		}
		owner.Members = append(owner.Members, schema.Member{
			AccessLevel: access,
			Kind:        schema.MemberTypealias,
			Line:        line,
			Name:        name,
			Signature:   signatureOf(t),
		})
	}
}

// splitAnnotation separa ": Tipo = init" in testo del tipo dichiarato e testo
// dell'inizializzatore, rispettando parentesi e generics.
func splitAnnotation(s string) (typeText, initText string) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "=") {
		return "", strings.TrimSpace(strings.TrimPrefix(s, "="))
	}
	if !strings.HasPrefix(s, ":") {
		return "", ""
	}
	s = s[1:]
	depth := 0
	for i, r := range s {
		switch r {
		case '<', '(', '[':
			depth++
		case '>', ')', ']':
			depth--
		case '=':
			if depth == 0 {
				return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
			}
		case '{':
			if depth == 0 {
				return strings.TrimSpace(s[:i]), ""
			}
		}
	}
	return strings.TrimSpace(s), ""
}

func (s *scanner) collectRefs(text string, owner *schema.RawDecl) {
	for _, name := range capIdentRe.FindAllString(text, -1) {
		if isSystemType(name) {
			continue
		}
		set := s.refs[owner]
		if set == nil {
			set = make(map[string]struct{})
			s.refs[owner] = set
		}
		set[name] = struct{}{}
	}
}

// ============================================================================
// Helper
// ============================================================================

func splitWord(s string) (string, string) {
	s = strings.TrimSpace(s)
	for i, r := range s {
		if r == ' ' || r == '\t' {
			return s[:i], s[i:]
		}
	}
	return s, ""
}

// declWord isola la keyword iniziale fermandosi al primo carattere non
// alfabetico: riconosce anche "init?(...)" e "subscript(...)" dove la keyword
// non è separata da spazio.
func declWord(s string) (string, string) {
	s = strings.TrimSpace(s)
	for i, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return s[:i], s[i:]
		}
	}
	return s, ""
}

// funcName estrae il nome della funzione, fermandosi a '(' o '<'. Copre
// anche gli operatori dichiarati come funzioni.
func funcName(s string) string {
	s = strings.TrimSpace(s)
	for i, r := range s {
		if r == '(' || r == '<' || r == ' ' {
			return s[:i]
		}
	}
	return s
}

// signatureOf ritorna la riga della dichiarazione troncata prima del corpo.
func signatureOf(t string) string {
	if idx := strings.Index(t, "{"); idx >= 0 {
		t = t[:idx]
	}
	return strings.TrimSpace(t)
}

func dedup(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(names))
	out := names[:0]
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// isSystemType filtra i tipi builtin e di framework che non devono produrre
// riferimenti: riduce il rumore dell'euristica dependency.
func isSystemType(name string) bool {
	switch name {
	case "String", "Character", "Int", "Int8", "Int16", "Int32", "Int64",
		"UInt", "UInt8", "UInt16", "UInt32", "UInt64",
		"Float", "Double", "Bool", "Void", "Any", "AnyObject", "AnyClass",
		"Self", "Data", "Date", "URL", "UUID", "Error", "Result",
		"Array", "Dictionary", "Set", "Optional", "Range", "ClosedRange",
		"CGFloat", "CGPoint", "CGSize", "CGRect",
		"NSObject", "NSError", "NSLock",
		"Task", "MainActor", "Sendable",
		"Codable", "Decodable", "Encodable",
		"Identifiable", "Equatable", "Hashable", "Comparable",
		"CustomStringConvertible", "CaseIterable", "RawRepresentable",
		"Never":
		return true
	}
	return false
}
