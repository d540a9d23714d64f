package pathexpr

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenWord
	tokenDot
	tokenLBracket
	tokenRBracket
	tokenTilde
)

type token struct {
	typ     tokenType
	literal string
	pos     int
}

func lex(input string) ([]token, error) {
	tokens := make([]token, 0, len(input)/2+1)
	pos := 0

	for pos < len(input) {
		if isWordChar(input[pos]) {
			start := pos
			for pos < len(input) && isWordChar(input[pos]) {
				pos++
			}
			tokens = append(tokens, token{typ: tokenWord, literal: input[start:pos], pos: start})
			continue
		}

		switch input[pos] {
		case '.':
			tokens = append(tokens, token{typ: tokenDot, pos: pos})
		case '[':
			tokens = append(tokens, token{typ: tokenLBracket, pos: pos})
		case ']':
			tokens = append(tokens, token{typ: tokenRBracket, pos: pos})
		case '~':
			tokens = append(tokens, token{typ: tokenTilde, pos: pos})
		default:
			return nil, syntaxError("unexpected character %q at position %d", input[pos], pos)
		}
		pos++
	}

	tokens = append(tokens, token{typ: tokenEOF, pos: len(input)})
	return tokens, nil
}

// isWordChar matches the characters allowed in field names: ASCII letters,
// digits and underscore.
func isWordChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
