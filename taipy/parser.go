package taipy

import (
	"strconv"
)

type parser struct {
	tokens []Token
	pos    int
}

// Parse parses a snippet into top-level statements.
func Parse(src string) ([]Stmt, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{
		tokens: tokens,
	}
	var stmts []Stmt
	for p.peek().Kind != EOF {
		stmt, err := p.stmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) peekAt(n int) Token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *parser) next() Token {
	tok := p.tokens[p.pos]
	if tok.Kind != EOF {
		p.pos++
	}
	return tok
}

func (p *parser) accept(kind TokenKind) bool {
	if p.peek().Kind == kind {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(kind TokenKind) (Token, error) {
	tok := p.peek()
	if tok.Kind != kind {
		return tok, p.unexpected(kind.String())
	}
	return p.next(), nil
}

func (p *parser) unexpected(want string) error {
	tok := p.peek()
	got := tok.Kind.String()
	if tok.Kind == NAME || tok.Kind == INT {
		got = strconv.Quote(tok.Text)
	}
	return errorAt(tok.Pos, "expecting %s, got %s", want, got)
}

func (p *parser) stmt() (Stmt, error) {
	switch p.peek().Kind {
	case DEF:
		return p.funcDef()
	case CLASS:
		return p.classDef()
	case IF:
		return p.ifStmt()
	case WHILE:
		return p.whileStmt()
	case FOR:
		return p.forStmt()
	}
	stmt, err := p.simpleStmt()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(NEWLINE); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *parser) simpleStmt() (Stmt, error) {
	tok := p.peek()
	switch tok.Kind {

	case PASS:
		p.next()
		return &Pass{Pos: tok.Pos}, nil

	case RETURN:
		p.next()
		ret := &Return{Pos: tok.Pos}
		if p.peek().Kind != NEWLINE {
			value, err := p.expr()
			if err != nil {
				return nil, err
			}
			ret.Value = value
		}
		return ret, nil

	case GLOBAL:
		p.next()
		name, err := p.expect(NAME)
		if err != nil {
			return nil, err
		}
		return &Global{Pos: tok.Pos, Name: name.Text}, nil

	case NAME:
		if p.peekAt(1).Kind == COLON {
			return p.varDef()
		}

	}

	x, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.accept(ASSIGN) {
		switch x.(type) {
		case *Name, *Attr:
		default:
			return nil, errorAt(x.Position(), "cannot assign to expression")
		}
		value, err := p.expr()
		if err != nil {
			return nil, err
		}
		return &Assign{
			Pos:    tok.Pos,
			Target: x,
			Value:  value,
		}, nil
	}
	return &ExprStmt{
		Pos: tok.Pos,
		X:   x,
	}, nil
}

func (p *parser) typeRef() (TypeRef, error) {
	tok := p.peek()
	switch tok.Kind {
	case NAME:
		p.next()
		return TypeRef{Pos: tok.Pos, Name: tok.Text}, nil
	case NONE:
		p.next()
		return TypeRef{Pos: tok.Pos, Name: "None"}, nil
	case STRING:
		// forward reference
		p.next()
		return TypeRef{Pos: tok.Pos, Name: tok.Text}, nil
	}
	return TypeRef{}, p.unexpected("type")
}

func (p *parser) varDef() (*VarDef, error) {
	name := p.next()
	p.next() // colon
	decl, err := p.typeRef()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(ASSIGN); err != nil {
		return nil, err
	}
	value, err := p.expr()
	if err != nil {
		return nil, err
	}
	return &VarDef{
		Pos:   name.Pos,
		Name:  name.Text,
		Decl:  decl,
		Value: value,
	}, nil
}

// block parses ':' followed by an indented suite or a single simple statement.
func (p *parser) block() ([]Stmt, error) {
	if _, err := p.expect(COLON); err != nil {
		return nil, err
	}
	if !p.accept(NEWLINE) {
		stmt, err := p.simpleStmt()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(NEWLINE); err != nil {
			return nil, err
		}
		return []Stmt{stmt}, nil
	}
	if _, err := p.expect(INDENT); err != nil {
		return nil, err
	}
	var stmts []Stmt
	for !p.accept(DEDENT) {
		if p.peek().Kind == EOF {
			return nil, p.unexpected("dedent")
		}
		stmt, err := p.stmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func (p *parser) funcDef() (*FuncDef, error) {
	def := p.next()
	name, err := p.expect(NAME)
	if err != nil {
		return nil, err
	}
	fn := &FuncDef{
		Pos:  def.Pos,
		Name: name.Text,
	}
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	for p.peek().Kind != RPAREN {
		if len(fn.Params) > 0 {
			if _, err := p.expect(COMMA); err != nil {
				return nil, err
			}
		}
		paramName, err := p.expect(NAME)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(COLON); err != nil {
			return nil, err
		}
		decl, err := p.typeRef()
		if err != nil {
			return nil, err
		}
		fn.Params = append(fn.Params, Param{
			Pos:  paramName.Pos,
			Name: paramName.Text,
			Decl: decl,
		})
	}
	p.next()
	if p.accept(ARROW) {
		result, err := p.typeRef()
		if err != nil {
			return nil, err
		}
		fn.Result = &result
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

func (p *parser) classDef() (*ClassDef, error) {
	class := p.next()
	name, err := p.expect(NAME)
	if err != nil {
		return nil, err
	}
	def := &ClassDef{
		Pos:  class.Pos,
		Name: name.Text,
	}
	if p.accept(LPAREN) {
		if p.peek().Kind == NAME {
			def.Super = p.next().Text
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	for _, stmt := range body {
		switch stmt := stmt.(type) {
		case *VarDef:
			def.Fields = append(def.Fields, stmt)
		case *FuncDef:
			def.Methods = append(def.Methods, stmt)
		case *Pass:
		default:
			return nil, errorAt(stmt.Position(), "only attributes and methods are allowed in a class body")
		}
	}
	return def, nil
}

func (p *parser) ifStmt() (*If, error) {
	tok := p.next()
	cond, err := p.expr()
	if err != nil {
		return nil, err
	}
	then, err := p.block()
	if err != nil {
		return nil, err
	}
	stmt := &If{
		Pos:  tok.Pos,
		Cond: cond,
		Then: then,
	}
	switch p.peek().Kind {
	case ELIF:
		elif, err := p.ifStmt()
		if err != nil {
			return nil, err
		}
		stmt.Else = []Stmt{elif}
	case ELSE:
		p.next()
		els, err := p.block()
		if err != nil {
			return nil, err
		}
		stmt.Else = els
	}
	return stmt, nil
}

func (p *parser) whileStmt() (*While, error) {
	tok := p.next()
	cond, err := p.expr()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &While{
		Pos:  tok.Pos,
		Cond: cond,
		Body: body,
	}, nil
}

func (p *parser) forStmt() (*For, error) {
	tok := p.next()
	name, err := p.expect(NAME)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(IN); err != nil {
		return nil, err
	}
	iter, err := p.expr()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	v := &Name{Name: name.Text}
	v.Pos = name.Pos
	return &For{
		Pos:  tok.Pos,
		Var:  v,
		Iter: iter,
		Body: body,
	}, nil
}

func (p *parser) expr() (Expr, error) {
	return p.orExpr()
}

func newBinary(op string, pos Pos, x, y Expr) *Binary {
	b := &Binary{
		Op: op,
		X:  x,
		Y:  y,
	}
	b.Pos = pos
	return b
}

func (p *parser) orExpr() (Expr, error) {
	x, err := p.andExpr()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == OR {
		tok := p.next()
		y, err := p.andExpr()
		if err != nil {
			return nil, err
		}
		x = newBinary("or", tok.Pos, x, y)
	}
	return x, nil
}

func (p *parser) andExpr() (Expr, error) {
	x, err := p.notExpr()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == AND {
		tok := p.next()
		y, err := p.notExpr()
		if err != nil {
			return nil, err
		}
		x = newBinary("and", tok.Pos, x, y)
	}
	return x, nil
}

func (p *parser) notExpr() (Expr, error) {
	if p.peek().Kind == NOT {
		tok := p.next()
		x, err := p.notExpr()
		if err != nil {
			return nil, err
		}
		u := &Unary{Op: "not", X: x}
		u.Pos = tok.Pos
		return u, nil
	}
	return p.comparison()
}

var comparisonOps = map[TokenKind]string{
	EQL: "==",
	NEQ: "!=",
	LT:  "<",
	LE:  "<=",
	GT:  ">",
	GE:  ">=",
	IS:  "is",
}

func (p *parser) comparison() (Expr, error) {
	x, err := p.arith()
	if err != nil {
		return nil, err
	}
	op, ok := comparisonOps[p.peek().Kind]
	if !ok {
		return x, nil
	}
	tok := p.next()
	y, err := p.arith()
	if err != nil {
		return nil, err
	}
	if _, ok := comparisonOps[p.peek().Kind]; ok {
		return nil, errorAt(p.peek().Pos, "chained comparisons are not supported")
	}
	return newBinary(op, tok.Pos, x, y), nil
}

func (p *parser) arith() (Expr, error) {
	x, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch p.peek().Kind {
		case PLUS:
			op = "+"
		case MINUS:
			op = "-"
		default:
			return x, nil
		}
		tok := p.next()
		y, err := p.term()
		if err != nil {
			return nil, err
		}
		x = newBinary(op, tok.Pos, x, y)
	}
}

func (p *parser) term() (Expr, error) {
	x, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch p.peek().Kind {
		case STAR:
			op = "*"
		case SLASHSLASH:
			op = "//"
		case PERCENT:
			op = "%"
		default:
			return x, nil
		}
		tok := p.next()
		y, err := p.unary()
		if err != nil {
			return nil, err
		}
		x = newBinary(op, tok.Pos, x, y)
	}
}

func (p *parser) unary() (Expr, error) {
	if p.peek().Kind != MINUS {
		return p.postfix()
	}
	tok := p.next()
	// negative literals are folded so that the smallest int is expressible
	if p.peek().Kind == INT {
		lit, err := p.intLit(p.next(), true)
		if err != nil {
			return nil, err
		}
		lit.Pos = tok.Pos
		return p.postfixOf(lit)
	}
	x, err := p.unary()
	if err != nil {
		return nil, err
	}
	u := &Unary{Op: "-", X: x}
	u.Pos = tok.Pos
	return u, nil
}

func (p *parser) intLit(tok Token, negative bool) (*IntLit, error) {
	text := tok.Text
	if negative {
		text = "-" + text
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, errorAt(tok.Pos, "integer literal %s out of range", text)
	}
	lit := &IntLit{Value: v}
	lit.Pos = tok.Pos
	return lit, nil
}

func (p *parser) args() ([]Expr, error) {
	var args []Expr
	for p.peek().Kind != RPAREN {
		if len(args) > 0 {
			if _, err := p.expect(COMMA); err != nil {
				return nil, err
			}
		}
		arg, err := p.expr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	p.next()
	return args, nil
}

func (p *parser) postfix() (Expr, error) {
	x, err := p.atom()
	if err != nil {
		return nil, err
	}
	return p.postfixOf(x)
}

func (p *parser) postfixOf(x Expr) (Expr, error) {
	for {
		switch p.peek().Kind {

		case DOT:
			p.next()
			name, err := p.expect(NAME)
			if err != nil {
				return nil, err
			}
			if p.accept(LPAREN) {
				args, err := p.args()
				if err != nil {
					return nil, err
				}
				call := &MethodCall{
					Recv:   x,
					Method: name.Text,
					Args:   args,
				}
				call.Pos = name.Pos
				x = call
				continue
			}
			attr := &Attr{
				X:    x,
				Name: name.Text,
			}
			attr.Pos = name.Pos
			x = attr

		case LPAREN:
			fn, ok := x.(*Name)
			if !ok {
				return nil, errorAt(p.peek().Pos, "only named functions can be called")
			}
			p.next()
			args, err := p.args()
			if err != nil {
				return nil, err
			}
			call := &Call{
				Func: fn.Name,
				Args: args,
			}
			call.Pos = fn.Pos
			x = call

		default:
			return x, nil
		}
	}
}

func (p *parser) atom() (Expr, error) {
	tok := p.peek()
	switch tok.Kind {

	case INT:
		p.next()
		return p.intLit(tok, false)

	case STRING:
		p.next()
		lit := &StrLit{Value: tok.Text}
		lit.Pos = tok.Pos
		return lit, nil

	case TRUE, FALSE:
		p.next()
		lit := &BoolLit{Value: tok.Kind == TRUE}
		lit.Pos = tok.Pos
		return lit, nil

	case NONE:
		p.next()
		lit := &NoneLit{}
		lit.Pos = tok.Pos
		return lit, nil

	case NAME:
		p.next()
		name := &Name{Name: tok.Text}
		name.Pos = tok.Pos
		return name, nil

	case LPAREN:
		p.next()
		x, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return x, nil

	}
	return nil, p.unexpected("expression")
}
