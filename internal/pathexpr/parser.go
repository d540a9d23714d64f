package pathexpr

import (
	"strconv"
	"strings"
)

// Selector refines which part of a field value a segment addresses.
type Selector uint8

const (
	SelectNone Selector = iota
	SelectIndex
	SelectLast
	SelectWildcard
)

// Segment is one dotted component of a path.
type Segment struct {
	Name     string
	Selector Selector
	Index    int // only meaningful for SelectIndex
}

func (s Segment) String() string {
	switch s.Selector {
	case SelectIndex:
		return s.Name + "[" + strconv.Itoa(s.Index) + "]"
	case SelectLast:
		return s.Name + "[~]"
	case SelectWildcard:
		return s.Name + "[]"
	default:
		return s.Name
	}
}

// Path is a parsed path expression. The empty path addresses the root.
type Path []Segment

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, seg := range p {
		parts[i] = seg.String()
	}
	return strings.Join(parts, ".")
}

// Parent splits p into the path of its container and its final segment.
// It must not be called on the empty path.
func (p Path) Parent() (Path, Segment) {
	return p[:len(p)-1], p[len(p)-1]
}

func (p Path) HasWildcard() bool {
	for _, seg := range p {
		if seg.Selector == SelectWildcard {
			return true
		}
	}
	return false
}

// Parse compiles a dotted path expression. Surrounding whitespace is
// ignored; an empty expression yields the root path.
func Parse(input string) (Path, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Path{}, nil
	}

	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}

	state := parserState{tokens: tokens}
	var path Path
	for {
		seg, err := state.parseSegment()
		if err != nil {
			return nil, err
		}
		path = append(path, seg)

		switch tok := state.advance(); tok.typ {
		case tokenEOF:
			return path, nil
		case tokenDot:
			continue
		default:
			return nil, syntaxError("expected '.' at position %d", tok.pos)
		}
	}
}

// MustParse is like Parse but panics on error. It is meant for static
// expressions.
func MustParse(input string) Path {
	path, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return path
}

// ParseList compiles a comma separated list of path expressions.
func ParseList(input string) ([]Path, error) {
	var paths []Path
	for _, part := range strings.Split(input, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		path, err := Parse(part)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

type parserState struct {
	tokens []token
	pos    int
}

func (p *parserState) current() token {
	return p.tokens[p.pos]
}

func (p *parserState) advance() token {
	tok := p.tokens[p.pos]
	if tok.typ != tokenEOF {
		p.pos++
	}
	return tok
}

func (p *parserState) parseSegment() (Segment, error) {
	name := p.advance()
	if name.typ != tokenWord {
		return Segment{}, syntaxError("expected field name at position %d", name.pos)
	}

	seg := Segment{Name: name.literal}
	if p.current().typ != tokenLBracket {
		return seg, nil
	}
	open := p.advance()

	switch tok := p.advance(); tok.typ {
	case tokenRBracket:
		seg.Selector = SelectWildcard
		return seg, nil
	case tokenTilde:
		seg.Selector = SelectLast
	case tokenWord:
		if !isDigits(tok.literal) {
			return Segment{}, syntaxError("invalid selector %q at position %d", tok.literal, tok.pos)
		}
		index, err := strconv.Atoi(tok.literal)
		if err != nil {
			return Segment{}, syntaxError("index %q out of range at position %d", tok.literal, tok.pos)
		}
		seg.Selector = SelectIndex
		seg.Index = index
	default:
		return Segment{}, syntaxError("invalid selector at position %d", tok.pos)
	}

	if closing := p.advance(); closing.typ != tokenRBracket {
		return Segment{}, syntaxError("unterminated selector opened at position %d", open.pos)
	}
	return seg, nil
}
