// Package parser implements corvid's parser: recursive-descent over
// statements and indentation-delimited blocks, Pratt-style precedence
// climbing over expressions. Grounded on the teacher's pkg/parser (two-
// token lookahead, error accumulation, the curTok/peekTok naming) but
// restructured around a pre-tokenized slice rather than a live lexer,
// since INDENT/DEDENT bookkeeping is easier to reason about as a fixed
// stream than as a pull-based cursor.
package parser

import (
	"fmt"
	"strconv"

	"github.com/kristofer/corvid/pkg/ast"
	"github.com/kristofer/corvid/pkg/lexer"
)

type Parser struct {
	toks    []lexer.Token
	pos     int
	errors  []string
}

func New(src string) (*Parser, error) {
	l := lexer.New(src)
	toks, err := l.Tokenize()
	if err != nil {
		return nil, err
	}
	return &Parser{toks: toks}, nil
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) peek() lexer.Token {
	if p.pos+1 < len(p.toks) {
		return p.toks[p.pos+1]
	}
	return p.toks[len(p.toks)-1]
}
func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) at(tt lexer.TokenType) bool { return p.cur().Type == tt }

func (p *Parser) expect(tt lexer.TokenType) (lexer.Token, error) {
	if !p.at(tt) {
		return lexer.Token{}, fmt.Errorf("parser: line %d: expected %s, got %s %q", p.cur().Line, tt, p.cur().Type, p.cur().Literal)
	}
	return p.advance(), nil
}

// Errors returns the non-fatal diagnostics collected during Parse. Parse
// records none (every parse error is returned from Parse and stops it), so
// the slice is always empty.
func (p *Parser) Errors() []string { return p.errors }

// Parse consumes the whole token stream into a Program.
func (p *Parser) Parse() (*ast.Program, error) {
	prog := &ast.Program{}
	for !p.at(lexer.EOF) {
		if p.at(lexer.NEWLINE) {
			p.advance()
			continue
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, stmt)
	}
	return prog, nil
}

// parseBlock consumes ":" NEWLINE INDENT stmt+ DEDENT, the shape every
// compound statement's body takes.
func (p *Parser) parseBlock() ([]ast.Stmt, error) {
	if _, err := p.expect(lexer.COLON); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.NEWLINE); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.INDENT); err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for !p.at(lexer.DEDENT) && !p.at(lexer.EOF) {
		if p.at(lexer.NEWLINE) {
			p.advance()
			continue
		}
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	if p.at(lexer.DEDENT) {
		p.advance()
	}
	return stmts, nil
}

func (p *Parser) parseStatement() (ast.Stmt, error) {
	switch p.cur().Type {
	case lexer.CLASS:
		return p.parseClassDef()
	case lexer.DEF:
		return p.parseFunctionDef()
	case lexer.IF:
		return p.parseIf()
	case lexer.WHILE:
		return p.parseWhile()
	case lexer.FOR:
		return p.parseFor()
	case lexer.RETURN:
		p.advance()
		if p.at(lexer.NEWLINE) || p.at(lexer.EOF) {
			return &ast.Return{}, p.endOfStmt()
		}
		v, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		return &ast.Return{Value: v}, p.endOfStmt()
	case lexer.PASS:
		p.advance()
		return &ast.Pass{}, p.endOfStmt()
	case lexer.BREAK:
		p.advance()
		return &ast.Break{}, p.endOfStmt()
	case lexer.CONTINUE:
		p.advance()
		return &ast.Continue{}, p.endOfStmt()
	case lexer.GLOBAL:
		p.advance()
		var names []string
		for {
			tok, err := p.expect(lexer.NAME)
			if err != nil {
				return nil, err
			}
			names = append(names, tok.Literal)
			if !p.at(lexer.COMMA) {
				break
			}
			p.advance()
		}
		return &ast.Global{Names: names}, p.endOfStmt()
	default:
		return p.parseExprOrAssignStmt()
	}
}

func (p *Parser) endOfStmt() error {
	if p.at(lexer.NEWLINE) {
		p.advance()
		return nil
	}
	if p.at(lexer.EOF) || p.at(lexer.DEDENT) {
		return nil
	}
	return fmt.Errorf("parser: line %d: expected end of statement, got %q", p.cur().Line, p.cur().Literal)
}

func (p *Parser) parseExprOrAssignStmt() (ast.Stmt, error) {
	expr, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if p.at(lexer.ASSIGN) {
		p.advance()
		value, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		return &ast.Assign{Target: expr, Value: value}, p.endOfStmt()
	}
	return &ast.ExprStmt{X: expr}, p.endOfStmt()
}

func (p *Parser) parseClassDef() (ast.Stmt, error) {
	p.advance()
	name, err := p.expect(lexer.NAME)
	if err != nil {
		return nil, err
	}
	var bases []string
	if p.at(lexer.LPAREN) {
		p.advance()
		for !p.at(lexer.RPAREN) {
			b, err := p.expect(lexer.NAME)
			if err != nil {
				return nil, err
			}
			bases = append(bases, b.Literal)
			if p.at(lexer.COMMA) {
				p.advance()
			}
		}
		p.advance()
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ClassDef{Name: name.Literal, Bases: bases, Body: body}, nil
}

func (p *Parser) parseFunctionDef() (ast.Stmt, error) {
	p.advance()
	name, err := p.expect(lexer.NAME)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var params []string
	var defaults []ast.Expr
	for !p.at(lexer.RPAREN) {
		pn, err := p.expect(lexer.NAME)
		if err != nil {
			return nil, err
		}
		params = append(params, pn.Literal)
		if p.at(lexer.ASSIGN) {
			p.advance()
			d, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			defaults = append(defaults, d)
		}
		if p.at(lexer.COMMA) {
			p.advance()
		}
	}
	p.advance()
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	fn := &ast.FunctionDef{Name: name.Literal, Params: params, Defaults: defaults, Body: body}
	fn.IsGenerator = containsYield(body)
	return fn, nil
}

func containsYield(stmts []ast.Stmt) bool {
	for _, s := range stmts {
		switch v := s.(type) {
		case *ast.ExprStmt:
			if _, ok := v.X.(*ast.Yield); ok {
				return true
			}
		case *ast.Assign:
			if _, ok := v.Value.(*ast.Yield); ok {
				return true
			}
		case *ast.If:
			if containsYield(v.Body) || containsYield(v.Else) {
				return true
			}
		case *ast.While:
			if containsYield(v.Body) {
				return true
			}
		case *ast.For:
			if containsYield(v.Body) {
				return true
			}
		}
	}
	return false
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	p.advance()
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	node := &ast.If{Cond: cond, Body: body}
	switch p.cur().Type {
	case lexer.ELIF:
		elif, err := p.parseIf()
		if err != nil {
			return nil, err
		}
		node.Else = []ast.Stmt{elif}
	case lexer.ELSE:
		p.advance()
		elseBody, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		node.Else = elseBody
	}
	return node, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	p.advance()
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.While{Cond: cond, Body: body}, nil
}

func (p *Parser) parseFor() (ast.Stmt, error) {
	p.advance()
	name, err := p.expect(lexer.NAME)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.IN); err != nil {
		return nil, err
	}
	iter, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.For{Var: name.Literal, Iter: iter, Body: body}, nil
}

// --- Expressions: Pratt precedence climbing ---

const (
	precLowest = iota
	precOr
	precAnd
	precNot
	precCompare
	precBitOr
	precBitXor
	precBitAnd
	precShift
	precAdd
	precMul
	precUnary
	precPow
	precPostfix
)

func precedenceOf(tt lexer.TokenType) int {
	switch tt {
	case lexer.OR:
		return precOr
	case lexer.AND:
		return precAnd
	case lexer.EQ, lexer.NE, lexer.LT, lexer.LE, lexer.GT, lexer.GE:
		return precCompare
	case lexer.PIPE:
		return precBitOr
	case lexer.CARET:
		return precBitXor
	case lexer.AMP:
		return precBitAnd
	case lexer.LSHIFT, lexer.RSHIFT:
		return precShift
	case lexer.PLUS, lexer.MINUS:
		return precAdd
	case lexer.STAR, lexer.SLASH, lexer.DSLASH, lexer.PERCENT:
		return precMul
	case lexer.DSTAR:
		return precPow
	case lexer.LPAREN, lexer.LBRACKET, lexer.DOT:
		return precPostfix
	default:
		return precLowest
	}
}

func (p *Parser) parseExpr(minPrec int) (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		prec := precedenceOf(p.cur().Type)
		if prec <= minPrec {
			break
		}
		op := p.advance()
		nextMin := prec
		if op.Type == lexer.DSTAR {
			nextMin = prec - 1 // right-associative
		}
		right, err := p.parseExpr(nextMin)
		if err != nil {
			return nil, err
		}
		left = makeBinary(op, left, right)
	}
	return left, nil
}

func makeBinary(op lexer.Token, left, right ast.Expr) ast.Expr {
	switch op.Type {
	case lexer.AND:
		return &ast.BoolOp{Op: "and", Left: left, Right: right}
	case lexer.OR:
		return &ast.BoolOp{Op: "or", Left: left, Right: right}
	case lexer.EQ, lexer.NE, lexer.LT, lexer.LE, lexer.GT, lexer.GE:
		return &ast.Compare{Op: op.Literal, Left: left, Right: right}
	default:
		return &ast.Binary{Op: op.Literal, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	switch p.cur().Type {
	case lexer.MINUS, lexer.PLUS, lexer.TILDE:
		op := p.advance()
		x, err := p.parseExpr(precUnary)
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: op.Literal, X: x}, nil
	case lexer.NOT:
		p.advance()
		x, err := p.parseExpr(precNot)
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: "not", X: x}, nil
	case lexer.YIELD:
		p.advance()
		if p.at(lexer.NEWLINE) || p.at(lexer.EOF) {
			return &ast.Yield{}, nil
		}
		v, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		return &ast.Yield{Value: v}, nil
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Type {
		case lexer.DOT:
			p.advance()
			name, err := p.expect(lexer.NAME)
			if err != nil {
				return nil, err
			}
			expr = &ast.Attribute{X: expr, Name: name.Literal}
		case lexer.LPAREN:
			p.advance()
			var args []ast.Expr
			for !p.at(lexer.RPAREN) {
				a, err := p.parseExpr(0)
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if p.at(lexer.COMMA) {
					p.advance()
				}
			}
			p.advance()
			expr = &ast.Call{Fn: expr, Args: args}
		case lexer.LBRACKET:
			p.advance()
			idx, err := p.parseSubscript()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RBRACKET); err != nil {
				return nil, err
			}
			expr = &ast.Subscript{X: expr, Index: idx}
		default:
			return expr, nil
		}
	}
}

// parseSubscript handles both plain indices and Python-style `a:b:c` slices.
func (p *Parser) parseSubscript() (ast.Expr, error) {
	var start, stop, step ast.Expr
	var err error
	isSlice := false

	if !p.at(lexer.COLON) {
		start, err = p.parseExpr(0)
		if err != nil {
			return nil, err
		}
	}
	if p.at(lexer.COLON) {
		isSlice = true
		p.advance()
		if !p.at(lexer.COLON) && !p.at(lexer.RBRACKET) {
			stop, err = p.parseExpr(0)
			if err != nil {
				return nil, err
			}
		}
		if p.at(lexer.COLON) {
			p.advance()
			if !p.at(lexer.RBRACKET) {
				step, err = p.parseExpr(0)
				if err != nil {
					return nil, err
				}
			}
		}
	}
	if isSlice {
		return &ast.Slice{Start: start, Stop: stop, Step: step}, nil
	}
	return start, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.cur()
	switch tok.Type {
	case lexer.INT:
		p.advance()
		return &ast.IntLit{Value: tok.Literal}, nil
	case lexer.FLOAT:
		p.advance()
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, fmt.Errorf("parser: line %d: bad float literal %q", tok.Line, tok.Literal)
		}
		return &ast.FloatLit{Value: f}, nil
	case lexer.STRING:
		p.advance()
		return &ast.StringLit{Value: tok.Literal}, nil
	case lexer.TRUE:
		p.advance()
		return &ast.BoolLit{Value: true}, nil
	case lexer.FALSE:
		p.advance()
		return &ast.BoolLit{Value: false}, nil
	case lexer.NONE:
		p.advance()
		return &ast.NoneLit{}, nil
	case lexer.NAME:
		p.advance()
		return &ast.Name{Value: tok.Literal}, nil
	case lexer.LPAREN:
		p.advance()
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return e, nil
	case lexer.LBRACKET:
		p.advance()
		var elems []ast.Expr
		for !p.at(lexer.RBRACKET) {
			e, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if p.at(lexer.COMMA) {
				p.advance()
			}
		}
		p.advance()
		return &ast.ListLit{Elems: elems}, nil
	case lexer.LBRACE:
		p.advance()
		d := &ast.DictLit{}
		for !p.at(lexer.RBRACE) {
			k, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.COLON); err != nil {
				return nil, err
			}
			v, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			d.Keys = append(d.Keys, k)
			d.Values = append(d.Values, v)
			if p.at(lexer.COMMA) {
				p.advance()
			}
		}
		p.advance()
		return d, nil
	default:
		return nil, fmt.Errorf("parser: line %d: unexpected token %s %q", tok.Line, tok.Type, tok.Literal)
	}
}
