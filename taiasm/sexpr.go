package taiasm

import (
	"errors"
	"fmt"
	"strings"
)

var ErrSyntax = errors.New("syntax error")

type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

type Error struct {
	Pos Pos
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Pos, e.Msg)
}

func (e *Error) Unwrap() error {
	return ErrSyntax
}

type node struct {
	pos    Pos
	atom   string
	quoted bool
	list   []*node
	isList bool
	start  int
	end    int
}

func (n *node) head() string {
	if !n.isList || len(n.list) == 0 || n.list[0].isList {
		return ""
	}
	return n.list[0].atom
}

func (n *node) isAtom() bool {
	return !n.isList && !n.quoted
}

type reader struct {
	src  string
	off  int
	line int
	col  int
}

func (r *reader) pos() Pos {
	return Pos{Line: r.line, Col: r.col}
}

func (r *reader) errorf(pos Pos, format string, args ...any) error {
	return &Error{
		Pos: pos,
		Msg: fmt.Sprintf(format, args...),
	}
}

func (r *reader) advance() byte {
	c := r.src[r.off]
	r.off++
	if c == '\n' {
		r.line++
		r.col = 1
	} else {
		r.col++
	}
	return c
}

func (r *reader) skipSpace() error {
	for r.off < len(r.src) {
		c := r.src[r.off]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			r.advance()
		case strings.HasPrefix(r.src[r.off:], ";;"):
			for r.off < len(r.src) && r.src[r.off] != '\n' {
				r.advance()
			}
		case strings.HasPrefix(r.src[r.off:], "(;"):
			pos := r.pos()
			end := strings.Index(r.src[r.off:], ";)")
			if end < 0 {
				return r.errorf(pos, "unterminated block comment")
			}
			for range end + 2 {
				r.advance()
			}
		default:
			return nil
		}
	}
	return nil
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '(', ')', '"', ';':
		return true
	}
	return false
}

// readForms reads all top-level forms of src.
func readForms(src string) ([]*node, error) {
	r := &reader{
		src:  src,
		line: 1,
		col:  1,
	}
	var forms []*node
	for {
		if err := r.skipSpace(); err != nil {
			return nil, err
		}
		if r.off >= len(r.src) {
			return forms, nil
		}
		form, err := r.read()
		if err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}
}

func (r *reader) read() (*node, error) {
	pos := r.pos()
	start := r.off
	c := r.src[r.off]

	switch {

	case c == '(':
		r.advance()
		n := &node{
			pos:    pos,
			isList: true,
			start:  start,
		}
		for {
			if err := r.skipSpace(); err != nil {
				return nil, err
			}
			if r.off >= len(r.src) {
				return nil, r.errorf(pos, "unclosed list")
			}
			if r.src[r.off] == ')' {
				r.advance()
				n.end = r.off
				return n, nil
			}
			elem, err := r.read()
			if err != nil {
				return nil, err
			}
			n.list = append(n.list, elem)
		}

	case c == ')':
		return nil, r.errorf(pos, "unexpected )")

	case c == '"':
		r.advance()
		var b strings.Builder
		for {
			if r.off >= len(r.src) {
				return nil, r.errorf(pos, "unterminated string")
			}
			c := r.advance()
			if c == '"' {
				break
			}
			if c != '\\' {
				b.WriteByte(c)
				continue
			}
			if r.off >= len(r.src) {
				return nil, r.errorf(pos, "unterminated string")
			}
			switch e := r.advance(); e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '"', '\\', '\'':
				b.WriteByte(e)
			default:
				return nil, r.errorf(pos, "bad escape \\%c", e)
			}
		}
		return &node{
			pos:    pos,
			atom:   b.String(),
			quoted: true,
			start:  start,
			end:    r.off,
		}, nil

	}

	for r.off < len(r.src) && !isDelimiter(r.src[r.off]) {
		r.advance()
	}
	if r.off == start {
		return nil, r.errorf(pos, "unexpected %q", c)
	}
	return &node{
		pos:   pos,
		atom:  r.src[start:r.off],
		start: start,
		end:   r.off,
	}, nil
}
