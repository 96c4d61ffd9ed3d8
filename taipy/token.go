package taipy

import (
	"fmt"
	"strconv"
	"strings"
)

type TokenKind int

const (
	EOF TokenKind = iota
	NEWLINE
	INDENT
	DEDENT
	NAME
	INT
	STRING

	// keywords
	DEF
	CLASS
	IF
	ELIF
	ELSE
	WHILE
	FOR
	IN
	RETURN
	PASS
	GLOBAL
	TRUE
	FALSE
	NONE
	AND
	OR
	NOT
	IS

	// punctuation
	PLUS
	MINUS
	STAR
	SLASHSLASH
	PERCENT
	ASSIGN
	EQL
	NEQ
	LT
	LE
	GT
	GE
	LPAREN
	RPAREN
	COLON
	COMMA
	DOT
	ARROW
)

var keywords = map[string]TokenKind{
	"def":    DEF,
	"class":  CLASS,
	"if":     IF,
	"elif":   ELIF,
	"else":   ELSE,
	"while":  WHILE,
	"for":    FOR,
	"in":     IN,
	"return": RETURN,
	"pass":   PASS,
	"global": GLOBAL,
	"True":   TRUE,
	"False":  FALSE,
	"None":   NONE,
	"and":    AND,
	"or":     OR,
	"not":    NOT,
	"is":     IS,
}

var punctuations = []struct {
	text string
	kind TokenKind
}{
	// longest first
	{"//", SLASHSLASH},
	{"==", EQL},
	{"!=", NEQ},
	{"<=", LE},
	{">=", GE},
	{"->", ARROW},
	{"+", PLUS},
	{"-", MINUS},
	{"*", STAR},
	{"%", PERCENT},
	{"=", ASSIGN},
	{"<", LT},
	{">", GT},
	{"(", LPAREN},
	{")", RPAREN},
	{":", COLON},
	{",", COMMA},
	{".", DOT},
}

func (k TokenKind) String() string {
	switch k {
	case EOF:
		return "end of input"
	case NEWLINE:
		return "newline"
	case INDENT:
		return "indent"
	case DEDENT:
		return "dedent"
	case NAME:
		return "name"
	case INT:
		return "integer"
	case STRING:
		return "string"
	}
	for text, kind := range keywords {
		if kind == k {
			return text
		}
	}
	for _, p := range punctuations {
		if p.kind == k {
			return p.text
		}
	}
	return fmt.Sprintf("token(%d)", int(k))
}

type Token struct {
	Kind TokenKind
	Pos  Pos
	Text string
}

type lexer struct {
	src         string
	off         int
	line        int
	col         int
	tokens      []Token
	indents     []int
	depth       int
	lineStart   bool
	lineHasToks bool
}

func tokenize(src string) ([]Token, error) {
	l := &lexer{
		src:       src,
		line:      1,
		col:       1,
		indents:   []int{0},
		lineStart: true,
	}
	if err := l.run(); err != nil {
		return nil, err
	}
	return l.tokens, nil
}

func (l *lexer) pos() Pos {
	return Pos{Line: l.line, Col: l.col}
}

func (l *lexer) errorf(pos Pos, format string, args ...any) error {
	return &SourceError{
		Pos: pos,
		Msg: fmt.Sprintf(format, args...),
	}
}

func (l *lexer) advance(n int) {
	for range n {
		if l.src[l.off] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.off++
	}
}

func (l *lexer) emit(kind TokenKind, pos Pos, text string) {
	l.tokens = append(l.tokens, Token{
		Kind: kind,
		Pos:  pos,
		Text: text,
	})
	if kind != NEWLINE && kind != INDENT && kind != DEDENT {
		l.lineHasToks = true
	}
}

func (l *lexer) newline(pos Pos) {
	if l.lineHasToks {
		l.emit(NEWLINE, pos, "")
	}
	l.lineHasToks = false
	l.lineStart = true
}

func (l *lexer) indentation() error {
	width := 0
	i := l.off
	for ; i < len(l.src); i++ {
		switch l.src[i] {
		case ' ':
			width++
			continue
		case '\t':
			width = (width/8 + 1) * 8
			continue
		}
		break
	}
	// blank or comment-only lines do not affect indentation
	if i >= len(l.src) || l.src[i] == '\n' || l.src[i] == '#' || l.src[i] == '\r' {
		l.advance(i - l.off)
		return nil
	}
	l.advance(i - l.off)
	l.lineStart = false
	pos := l.pos()

	top := l.indents[len(l.indents)-1]
	switch {
	case width > top:
		l.indents = append(l.indents, width)
		l.emit(INDENT, pos, "")
	case width < top:
		for width < l.indents[len(l.indents)-1] {
			l.indents = l.indents[:len(l.indents)-1]
			l.emit(DEDENT, pos, "")
		}
		if width != l.indents[len(l.indents)-1] {
			return l.errorf(pos, "unindent does not match any outer indentation level")
		}
	}
	return nil
}

func isNameStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func (l *lexer) run() error {
	for {
		if l.lineStart && l.depth == 0 {
			if err := l.indentation(); err != nil {
				return err
			}
		}
		if l.off >= len(l.src) {
			break
		}

		pos := l.pos()
		c := l.src[l.off]
		rest := l.src[l.off:]

		switch {

		case c == ' ' || c == '\t' || c == '\r':
			l.advance(1)

		case c == '#':
			for l.off < len(l.src) && l.src[l.off] != '\n' {
				l.advance(1)
			}

		case c == '\n':
			l.advance(1)
			if l.depth == 0 {
				l.newline(pos)
			}

		case c == '\\' && strings.HasPrefix(rest, "\\\n"):
			l.advance(2)

		case isDigit(c):
			start := l.off
			for l.off < len(l.src) && isDigit(l.src[l.off]) {
				l.advance(1)
			}
			if l.off < len(l.src) && isNameStart(l.src[l.off]) {
				return l.errorf(pos, "invalid integer literal")
			}
			l.emit(INT, pos, l.src[start:l.off])

		case isNameStart(c):
			start := l.off
			for l.off < len(l.src) && (isNameStart(l.src[l.off]) || isDigit(l.src[l.off])) {
				l.advance(1)
			}
			word := l.src[start:l.off]
			if kind, ok := keywords[word]; ok {
				l.emit(kind, pos, word)
			} else {
				l.emit(NAME, pos, word)
			}

		case c == '"' || c == '\'':
			s, err := l.string(pos, c)
			if err != nil {
				return err
			}
			l.emit(STRING, pos, s)

		default:
			matched := false
			for _, p := range punctuations {
				if strings.HasPrefix(rest, p.text) {
					l.advance(len(p.text))
					switch p.kind {
					case LPAREN:
						l.depth++
					case RPAREN:
						if l.depth == 0 {
							return l.errorf(pos, "unmatched )")
						}
						l.depth--
					}
					l.emit(p.kind, pos, p.text)
					matched = true
					break
				}
			}
			if !matched {
				return l.errorf(pos, "unexpected character %q", c)
			}

		}
	}

	if l.depth > 0 {
		return l.errorf(l.pos(), "unclosed (")
	}
	pos := l.pos()
	if l.lineHasToks {
		l.emit(NEWLINE, pos, "")
	}
	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		l.emit(DEDENT, pos, "")
	}
	l.emit(EOF, pos, "")
	return nil
}

func (l *lexer) string(pos Pos, quote byte) (string, error) {
	l.advance(1)
	var b strings.Builder
	for {
		if l.off >= len(l.src) || l.src[l.off] == '\n' {
			return "", l.errorf(pos, "unterminated string")
		}
		c := l.src[l.off]
		l.advance(1)
		if c == quote {
			return b.String(), nil
		}
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if l.off >= len(l.src) {
			return "", l.errorf(pos, "unterminated string")
		}
		e := l.src[l.off]
		l.advance(1)
		switch e {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case '\\', '"', '\'':
			b.WriteByte(e)
		default:
			return "", l.errorf(pos, "unknown escape %s", strconv.QuoteRune(rune(e)))
		}
	}
}
