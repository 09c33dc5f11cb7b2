package analyzer

// Token is an identifier on a line.
type Token struct {
	Name string

	// Column is the byte column of the first byte.
	Column int

	// Kind is the declaration kind when the token is declared here, or "".
	Kind string
}

// End returns the column just past the token.
func (t Token) End() int {
	return t.Column + len(t.Name)
}

// Declaration kinds.
const (
	KindFunction = "function"
	KindVariable = "variable"
	KindClass    = "class"
	KindType     = "type"
	KindKeyword  = "keyword"
	KindName     = "identifier"
)

// declarators maps a keyword to the kind of the identifier following it.
var declarators = map[string]string{
	"function":  KindFunction,
	"func":      KindFunction,
	"def":       KindFunction,
	"var":       KindVariable,
	"let":       KindVariable,
	"const":     KindVariable,
	"class":     KindClass,
	"interface": KindType,
	"type":      KindType,
	"enum":      KindType,
	"struct":    KindType,
}

// keywords are never indexed as identifiers.
var keywords = map[string]bool{
	"break": true, "case": true, "catch": true, "continue": true,
	"default": true, "delete": true, "do": true, "else": true,
	"export": true, "extends": true, "false": true, "finally": true,
	"for": true, "if": true, "import": true, "in": true,
	"instanceof": true, "new": true, "null": true, "return": true,
	"switch": true, "this": true, "throw": true, "true": true,
	"try": true, "typeof": true, "undefined": true, "void": true,
	"while": true, "with": true, "yield": true, "async": true, "await": true,
}

func isKeyword(name string) bool {
	_, decl := declarators[name]
	return decl || keywords[name]
}

func isIdentStart(b byte) bool {
	return b == '_' || b == '$' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b >= 0x80
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

// scanLine returns the identifiers of one line. Quoted strings and the rest
// of the line after "//" or "#" are skipped. A string left open at the end
// of the line ends there.
func scanLine(line string) []Token {
	var tokens []Token
	pending := ""
	for i := 0; i < len(line); {
		b := line[i]
		switch {
		case b == '"' || b == '\'' || b == '`':
			i++
			for i < len(line) && line[i] != b {
				if line[i] == '\\' {
					i++
				}
				i++
			}
			i++
			pending = ""
		case b == '/' && i+1 < len(line) && line[i+1] == '/', b == '#':
			return tokens
		case isIdentStart(b):
			start := i
			for i < len(line) && isIdentPart(line[i]) {
				i++
			}
			name := line[start:i]
			if kind, ok := declarators[name]; ok {
				pending = kind
				continue
			}
			if keywords[name] {
				pending = ""
				continue
			}
			tokens = append(tokens, Token{Name: name, Column: start, Kind: pending})
			pending = ""
		case b >= '0' && b <= '9':
			for i < len(line) && isIdentPart(line[i]) {
				i++
			}
			pending = ""
		case b == ' ' || b == '\t' || b == '*':
			// Whitespace, and the "*" of generator functions, keep a
			// pending declarator.
			i++
		default:
			i++
			pending = ""
		}
	}
	return tokens
}

// identAt returns the bounds of the identifier that contains column col or
// ends at it, and false when there is none.
func identAt(line string, col int) (int, int, bool) {
	start := min(col, len(line))
	for start > 0 && isIdentPart(line[start-1]) {
		start--
	}
	end := min(col, len(line))
	for end < len(line) && isIdentPart(line[end]) {
		end++
	}
	if start == end || !isIdentStart(line[start]) {
		return 0, 0, false
	}
	return start, end, true
}
