// Package schema definisce i tipi del data model per l'output dell'analyzer Swift.
package schema

// ============================================================================
// Kind e Access Level
// ============================================================================

// TypeKind rappresenta la forma di dichiarazione di un tipo nominale.
type TypeKind string

const (
	KindClass    TypeKind = "class"
	KindStruct   TypeKind = "struct"
	KindProtocol TypeKind = "protocol"
	KindEnum     TypeKind = "enum"
	KindActor    TypeKind = "actor"

	// KindExtension è la forma di dichiarazione di un blocco extension;
	// non compare mai come kind di un TypeInfo finale.
	KindExtension TypeKind = "extension"

	// KindExtensionOnly marca un placeholder sintetico: il tipo base non è
	// mai dichiarato nello scan, esistono solo extension che lo estendono.
	KindExtensionOnly TypeKind = "extension-only"
)

// IsPrimary ritorna true per le forme che stabiliscono un TypeInfo canonico.
func (k TypeKind) IsPrimary() bool {
	switch k {
	case KindClass, KindStruct, KindProtocol, KindEnum, KindActor:
		return true
	}
	return false
}

// AccessLevel rappresenta un livello di visibilità del linguaggio analizzato.
type AccessLevel string

const (
	AccessPrivate     AccessLevel = "private"
	AccessFileprivate AccessLevel = "fileprivate"
	AccessInternal    AccessLevel = "internal" // default del linguaggio
	AccessPublic      AccessLevel = "public"
	AccessOpen        AccessLevel = "open"
)

// accessRank ordina i livelli dal più restrittivo al meno restrittivo.
func accessRank(a AccessLevel) int {
	switch a {
	case AccessPrivate:
		return 0
	case AccessFileprivate:
		return 1
	case AccessInternal:
		return 2
	case AccessPublic:
		return 3
	case AccessOpen:
		return 4
	}
	return -1
}

// LeastRestrictive ritorna il livello meno restrittivo tra i due.
// Un livello vuoto o sconosciuto non vince mai.
func LeastRestrictive(a, b AccessLevel) AccessLevel {
	if accessRank(b) > accessRank(a) {
		return b
	}
	return a
}

// ============================================================================
// TypeInfo
// ============================================================================

// Location è la posizione della dichiarazione primaria (o della prima
// extension se una primaria non esiste nello scan).
type Location struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// Member è una stored property, un metodo o un case aggregato da tutte le
// dichiarazioni dello stesso tipo logico.
//
// I campi sono dichiarati in ordine alfabetico di chiave JSON: il serializer
// esterno garantisce chiavi ordinate e encoding/json emette i campi
// nell'ordine di dichiarazione.
type Member struct {
	AccessLevel AccessLevel `json:"accessLevel"`
	Kind        string      `json:"kind"` // property|method|case|associatedtype|typealias
	Line        int         `json:"line,omitempty"`
	Name        string      `json:"name"`
	Signature   string      `json:"signature,omitempty"`
	TypeName    string      `json:"type,omitempty"` // tipo dichiarato, usato per le composition
}

const (
	MemberProperty       = "property"
	MemberMethod         = "method"
	MemberCase           = "case"
	MemberAssociatedType = "associatedtype"
	MemberTypealias      = "typealias"
)

// TypeInfo è la rappresentazione canonica di un tipo logico: la dichiarazione
// primaria più tutte le sue extension, già fuse. Esattamente un TypeInfo per
// nome qualificato; le extension non creano mai un secondo nodo.
type TypeInfo struct {
	AccessLevel        AccessLevel `json:"accessLevel"`
	Attributes         []string    `json:"attributes,omitempty"`
	ConformedProtocols []string    `json:"conformedProtocols"`
	GenericParameters  []string    `json:"genericParameters,omitempty"`
	InheritedTypes     []string    `json:"inheritedTypes"`
	Kind               TypeKind    `json:"kind"`
	Location           Location    `json:"location"`
	Members            []Member    `json:"members"`
	Name               string      `json:"name"` // nome qualificato dal nesting path
}

// Synthetic ritorna true per i nodi creati per riferimenti mai dichiarati
// nello scan (target esterni e tipi extension-only).
func (t *TypeInfo) Synthetic() bool {
	return t.Location.File == "" || t.Kind == KindExtensionOnly
}

// ============================================================================
// Relationship
// ============================================================================

// RelationKind classifica un arco del grafo.
type RelationKind string

const (
	RelInheritance RelationKind = "inheritance"
	RelConformance RelationKind = "conformance"
	RelComposition RelationKind = "composition"
	RelDependency  RelationKind = "dependency"
)

// Relationship è un arco orientato tra due tipi, identificato dalla terna
// (source, target, kind). Il target può riferire un nodo assente dallo scan.
type Relationship struct {
	Kind   RelationKind `json:"kind"`
	Source string       `json:"source"`
	Target string       `json:"target"`
}

// ============================================================================
// Declaration record (output grezzo per-file dell'extractor)
// ============================================================================

// RawDecl è il record grezzo di una singola dichiarazione, prodotto
// dall'extractor prima del merge cross-file. Per kind "extension" il campo
// Name contiene il nome del tipo target.
type RawDecl struct {
	Kind              TypeKind
	Name              string // nome semplice (extension: nome target, anche puntato)
	QualifiedName     string // Name qualificato dai tipi che lo racchiudono
	File              string
	Line              int // 1-based, linea del keyword
	AccessLevel       AccessLevel
	AccessExplicit    bool // true se il livello è scritto nel sorgente
	Attributes        []string
	GenericParameters []string
	ColonList         []string // nomi grezzi dopo i due punti, non risolti
	Members           []Member
	TypeRefs          []string // nomi di tipo riferiti nei body (euristica dependency)
}

// ============================================================================
// Issue (diagnostica per-file, non fatale)
// ============================================================================

// Issue rappresenta una condizione raccolta durante l'analisi e riportata
// accanto al risultato parziale.
type Issue struct {
	Code     string `json:"code"`
	File     string `json:"file,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // error|warning|info
}

const (
	CodeMalformedSource = "MALFORMED_SOURCE"
	CodeUnreadableFile  = "UNREADABLE_FILE"
)
