// Package operand implements the operand parser (C3): addressing-mode
// recognition over a token stream, including the register/condition
// disambiguation spec.md §4.3 rule 5 and §9 require.
package operand

import (
	"fmt"
	"strings"

	"github.com/felipesanches/tlcs900asm/internal/asmerr"
	"github.com/felipesanches/tlcs900asm/internal/eval"
	"github.com/felipesanches/tlcs900asm/internal/lexer"
	"github.com/felipesanches/tlcs900asm/internal/regtab"
)

// Mode is the addressing mode of an Operand (spec §3).
type Mode int

const (
	Immediate Mode = iota
	Register
	RegIndirect
	PostInc
	PreDec
	Indexed
	Direct
	IndexedReg
	Condition
)

func (m Mode) String() string {
	switch m {
	case Immediate:
		return "Immediate"
	case Register:
		return "Register"
	case RegIndirect:
		return "RegIndirect"
	case PostInc:
		return "PostInc"
	case PreDec:
		return "PreDec"
	case Indexed:
		return "Indexed"
	case Direct:
		return "Direct"
	case IndexedReg:
		return "IndexedReg"
	case Condition:
		return "Condition"
	default:
		return "Unknown"
	}
}

// Operand is a tagged record populated according to Mode (spec §3).
type Operand struct {
	Mode       Mode
	Size       regtab.Size
	Reg        string
	IndexReg   string
	Value      int64
	ValueKnown bool
	IsConstant bool
	AddrSize   int // 0 (auto), 8, 16, or 24
	SymbolName string
	Condition  uint8
}

// Parser parses the comma-separated operand list following a mnemonic.
type Parser struct {
	eval *eval.Evaluator
}

// New creates an operand Parser backed by the given expression evaluator.
func New(e *eval.Evaluator) *Parser {
	return &Parser{eval: e}
}

// ParseOperands splits tokens (everything after the mnemonic, up to but
// not including the terminating newline/EOF) on top-level commas and
// parses each group into an Operand.
func (p *Parser) ParseOperands(tokens []lexer.Token) ([]Operand, error) {
	groups := splitOperands(tokens)
	operands := make([]Operand, 0, len(groups))
	for i, group := range groups {
		var next []lexer.Token
		if i+1 < len(groups) {
			next = groups[i+1]
		}
		op, err := p.parseOne(group, next)
		if err != nil {
			return nil, err
		}
		operands = append(operands, op)
	}
	return operands, nil
}

func splitOperands(tokens []lexer.Token) [][]lexer.Token {
	var groups [][]lexer.Token
	var cur []lexer.Token
	depth := 0
	for _, t := range tokens {
		if t.Type == lexer.TokenEOF || t.Type == lexer.TokenNewline {
			break
		}
		switch t.Type {
		case lexer.TokenLParen:
			depth++
		case lexer.TokenRParen:
			depth--
		}
		if t.Type == lexer.TokenComma && depth == 0 {
			groups = append(groups, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	if len(cur) > 0 || len(groups) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

func terminate(group []lexer.Token) []lexer.Token {
	return append(append([]lexer.Token{}, group...), lexer.Token{Type: lexer.TokenEOF})
}

func (p *Parser) parseOne(group, next []lexer.Token) (Operand, error) {
	if len(group) == 0 {
		return Operand{}, fmt.Errorf("empty operand")
	}
	first := group[0]

	switch first.Type {
	case lexer.TokenHash:
		return p.parseImmediate(group[1:])
	case lexer.TokenLParen:
		return p.parseParenthesised(group)
	case lexer.TokenIdentifier:
		return p.parseIdentifierOperand(group, next)
	default:
		return p.parseImmediate(group)
	}
}

func (p *Parser) parseImmediate(tokens []lexer.Token) (Operand, error) {
	res, err := p.eval.Eval(terminate(tokens))
	if err != nil {
		return Operand{}, err
	}
	return Operand{Mode: Immediate, Value: res.Value, ValueKnown: res.Known, IsConstant: res.IsConstant}, nil
}

func (p *Parser) parseIdentifierOperand(group, next []lexer.Token) (Operand, error) {
	name := group[0].Literal
	isReg := regtab.IsRegister(name)
	isCond := regtab.IsCondition(name)

	if isReg && isCond && regtab.IsAmbiguous(name) {
		if looksLikeOperandStart(next) {
			isCond = false
		} else {
			isReg = false
		}
	}

	if len(group) == 1 && isReg {
		entry, _ := regtab.Lookup(name)
		return Operand{Mode: Register, Size: entry.Size, Reg: strings.ToUpper(name)}, nil
	}
	if len(group) == 1 && isCond {
		code, _ := regtab.LookupCondition(name)
		return Operand{Mode: Condition, Condition: code, Reg: strings.ToUpper(name)}, nil
	}

	res, err := p.eval.Eval(terminate(group))
	if err != nil {
		return Operand{}, err
	}
	op := Operand{Mode: Immediate, Value: res.Value, ValueKnown: res.Known, IsConstant: res.IsConstant}
	if len(group) == 1 {
		op.SymbolName = name
	}
	return op, nil
}

// looksLikeOperandStart implements spec §4.3 rule 5: "if next operand
// begins with (, #, $, a number, or a register, treat as Register; else
// Condition."
func looksLikeOperandStart(next []lexer.Token) bool {
	if len(next) == 0 {
		return false
	}
	t := next[0]
	switch t.Type {
	case lexer.TokenLParen, lexer.TokenHash, lexer.TokenDollar, lexer.TokenNumber:
		return true
	case lexer.TokenIdentifier:
		return regtab.IsRegister(t.Literal)
	}
	return false
}

func (p *Parser) parseParenthesised(group []lexer.Token) (Operand, error) {
	if len(group) < 2 || group[len(group)-1].Type != lexer.TokenRParen {
		return Operand{}, fmt.Errorf("malformed parenthesised operand")
	}
	inner := group[1 : len(group)-1]
	if len(inner) == 0 {
		return Operand{}, fmt.Errorf("empty parenthesised operand")
	}

	// (-reg) — PreDec
	if inner[0].Type == lexer.TokenMinus && len(inner) == 2 && inner[1].Type == lexer.TokenIdentifier && regtab.IsRegister(inner[1].Literal) {
		entry, _ := regtab.Lookup(inner[1].Literal)
		return Operand{Mode: PreDec, Size: entry.Size, Reg: strings.ToUpper(inner[1].Literal)}, nil
	}

	// (reg) or (reg+) or (reg+expr) or (reg-expr) or (reg+indexreg)
	if inner[0].Type == lexer.TokenIdentifier && regtab.IsRegister(inner[0].Literal) {
		entry, _ := regtab.Lookup(inner[0].Literal)
		reg := strings.ToUpper(inner[0].Literal)

		if len(inner) == 1 {
			return Operand{Mode: RegIndirect, Size: entry.Size, Reg: reg}, nil
		}
		if len(inner) == 2 && inner[1].Type == lexer.TokenPlus {
			return Operand{Mode: PostInc, Size: entry.Size, Reg: reg}, nil
		}
		if inner[1].Type == lexer.TokenPlus || inner[1].Type == lexer.TokenMinus {
			rest := inner[2:]
			if inner[1].Type == lexer.TokenPlus && len(rest) == 1 && rest[0].Type == lexer.TokenIdentifier && regtab.IsRegister(rest[0].Literal) {
				return Operand{Mode: IndexedReg, Size: entry.Size, Reg: reg, IndexReg: strings.ToUpper(rest[0].Literal)}, nil
			}
			exprTokens := rest
			addrSize := 0
			if n := len(exprTokens); n >= 2 && exprTokens[n-2].Type == lexer.TokenColon && exprTokens[n-1].Type == lexer.TokenNumber {
				sz, err := parseAddrSizeSuffix(exprTokens[n-1].Literal)
				if err != nil {
					return Operand{}, err
				}
				addrSize = sz
				exprTokens = exprTokens[:n-2]
			}
			if inner[1].Type == lexer.TokenMinus {
				exprTokens = append([]lexer.Token{{Type: lexer.TokenMinus, Pos: inner[1].Pos}}, exprTokens...)
			}
			res, err := p.eval.Eval(terminate(exprTokens))
			if err != nil {
				return Operand{}, err
			}
			return Operand{
				Mode: Indexed, Size: entry.Size, Reg: reg,
				Value: res.Value, ValueKnown: res.Known, IsConstant: res.IsConstant, AddrSize: addrSize,
			}, nil
		}
		return Operand{}, fmt.Errorf("malformed indexed operand")
	}

	// (expr) with optional :8|:16|:24 suffix — Direct.
	exprTokens := inner
	addrSize := 0
	if n := len(exprTokens); n >= 2 && exprTokens[n-2].Type == lexer.TokenColon && exprTokens[n-1].Type == lexer.TokenNumber {
		sz, err := parseAddrSizeSuffix(exprTokens[n-1].Literal)
		if err != nil {
			return Operand{}, err
		}
		addrSize = sz
		exprTokens = exprTokens[:n-2]
	}
	res, err := p.eval.Eval(terminate(exprTokens))
	if err != nil {
		return Operand{}, err
	}
	return Operand{Mode: Direct, Value: res.Value, ValueKnown: res.Known, IsConstant: res.IsConstant, AddrSize: addrSize}, nil
}

func parseAddrSizeSuffix(lit string) (int, error) {
	switch lit {
	case "8":
		return 8, nil
	case "16":
		return 16, nil
	case "24":
		return 24, nil
	}
	return 0, fmt.Errorf("invalid address-size suffix %q, expected 8, 16, or 24", lit)
}

// ErrUnsupported reports an operand shape the encoder cannot represent,
// distinct from a parse failure.
func ErrUnsupported(pos asmerr.Position, detail string) error {
	return asmerr.New(pos, asmerr.KindUnsupportedOperandCombo, detail)
}
