package taipy

import (
	"errors"
	"testing"
)

func TestTokenize(t *testing.T) {
	tokens, err := tokenize("if x:\n    y = 1 # one\n\n    z = (1 +\n  2)\nw\n")
	if err != nil {
		t.Fatal(err)
	}
	var kinds []TokenKind
	for _, tok := range tokens {
		kinds = append(kinds, tok.Kind)
	}
	want := []TokenKind{
		IF, NAME, COLON, NEWLINE,
		INDENT, NAME, ASSIGN, INT, NEWLINE,
		NAME, ASSIGN, LPAREN, INT, PLUS, INT, RPAREN, NEWLINE,
		DEDENT, NAME, NEWLINE,
		EOF,
	}
	if len(kinds) != len(want) {
		t.Fatalf("got %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestTokenizeString(t *testing.T) {
	tokens, err := tokenize(`'a\tb' "c\"d"`)
	if err != nil {
		t.Fatal(err)
	}
	if tokens[0].Text != "a\tb" || tokens[1].Text != `c"d` {
		t.Fatalf("got %q %q", tokens[0].Text, tokens[1].Text)
	}
}

func TestTokenizeErrors(t *testing.T) {
	for _, src := range []string{
		"'abc",
		"x = 1)",
		"(1 + 2",
		"if x:\n    y\n  z\n",
		"12ab",
		"x ? y",
		`"\q"`,
	} {
		_, err := tokenize(src)
		if !errors.Is(err, ErrSource) {
			t.Errorf("%q: got %v", src, err)
		}
	}
}

func TestParsePrecedence(t *testing.T) {
	stmts, err := Parse("1 + 2 * 3 < 10 and not x or y\n")
	if err != nil {
		t.Fatal(err)
	}
	or, ok := stmts[0].(*ExprStmt).X.(*Binary)
	if !ok || or.Op != "or" {
		t.Fatalf("got %#v", stmts[0])
	}
	and := or.X.(*Binary)
	if and.Op != "and" {
		t.Fatalf("got %s", and.Op)
	}
	lt := and.X.(*Binary)
	if lt.Op != "<" {
		t.Fatalf("got %s", lt.Op)
	}
	plus := lt.X.(*Binary)
	if plus.Op != "+" || plus.Y.(*Binary).Op != "*" {
		t.Fatalf("got %#v", plus)
	}
	if not := and.Y.(*Unary); not.Op != "not" {
		t.Fatalf("got %s", not.Op)
	}
}

func TestParseNegativeLiteral(t *testing.T) {
	stmts, err := Parse("-1073741824\n")
	if err != nil {
		t.Fatal(err)
	}
	lit, ok := stmts[0].(*ExprStmt).X.(*IntLit)
	if !ok || lit.Value != -1073741824 {
		t.Fatalf("got %#v", stmts[0].(*ExprStmt).X)
	}
}

func TestParseDefinitions(t *testing.T) {
	stmts, err := Parse(`
class Point(object):
    x : int = 0
    y : int = 0

    def sum(self: "Point") -> int:
        return self.x + self.y

def f(a: int, b: Point) -> int:
    if a > 0: return a
    elif a == 0:
        return b.sum()
    else:
        pass
    return 0

for i in range(0, 3):
    print(i)
`)
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 3 {
		t.Fatalf("got %d", len(stmts))
	}
	class := stmts[0].(*ClassDef)
	if class.Name != "Point" || class.Super != "object" || len(class.Fields) != 2 || len(class.Methods) != 1 {
		t.Fatalf("got %+v", class)
	}
	if class.Methods[0].Params[0].Decl.Name != "Point" {
		t.Fatalf("got %+v", class.Methods[0].Params)
	}
	fn := stmts[1].(*FuncDef)
	if fn.Name != "f" || len(fn.Params) != 2 || fn.Result.Name != "int" || len(fn.Body) != 2 {
		t.Fatalf("got %+v", fn)
	}
	ifStmt := fn.Body[0].(*If)
	elif := ifStmt.Else[0].(*If)
	if len(elif.Else) != 1 {
		t.Fatalf("got %+v", elif)
	}
	loop := stmts[2].(*For)
	if loop.Var.Name != "i" {
		t.Fatalf("got %+v", loop)
	}
	if call := loop.Iter.(*Call); call.Func != "range" || len(call.Args) != 2 {
		t.Fatalf("got %+v", call)
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		"x : = 1\n",
		"def f(:\n",
		"1 = 2\n",
		"a < b < c\n",
		"f()()\n",
		"if x\n  pass\n",
		"class C:\n    print(1)\n",
		"x.\n",
		"def f():\n",
		"99999999999999999999\n",
	} {
		_, err := Parse(src)
		if !errors.Is(err, ErrSource) {
			t.Errorf("%q: got %v", src, err)
		}
	}
}

func TestSourceErrorPosition(t *testing.T) {
	_, err := Parse("x = 1\ny = )\n")
	var se *SourceError
	if !errors.As(err, &se) {
		t.Fatalf("got %v", err)
	}
	if se.Pos.Line != 2 || se.Pos.Col != 5 {
		t.Fatalf("got %v", se.Pos)
	}
}
