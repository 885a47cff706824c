/*
formula.go - Whitelisted arithmetic formulas for formula-type components

PURPOSE:
  Formula components compute their amount from an expression such as
  "BASIC * 0.075" or "(GROSS_SO_FAR - BASIC) / 2". Expressions are parsed
  by govaluate, then every token is checked against a small grammar:

    numbers, BASIC, GROSS_SO_FAR, + - * /, unary minus, parentheses

  Anything else (comparisons, logical operators, strings, functions,
  other identifiers) fails at compile time. Nothing reaches Evaluate
  that isn't plain arithmetic over the two inputs.

INPUTS:
  BASIC        - employee basic salary, minor units
  GROSS_SO_FAR - basic + non-deduction lines computed before this one

CACHING:
  Compiled expressions are cached by formula text. Definitions compile
  on construction, so runs only hit the cache.

FAILURES:
  Every failure is a *FormulaError (unwraps to ErrFormulaEvaluation):
    malformed          parse error or disallowed token
    unknown_identifier identifier other than BASIC / GROSS_SO_FAR
    division_by_zero   result is infinite
    non_finite         result is NaN

SEE ALSO:
  - calculator.go: Supplies the inputs and rounds the result
*/
package payroll

import (
	"fmt"
	"math"
	"sync"

	"github.com/Knetic/govaluate"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/money"
)

const (
	VarBasic      = "BASIC"
	VarGrossSoFar = "GROSS_SO_FAR"
)

var allowedOperators = map[string]bool{"+": true, "-": true, "*": true, "/": true}

// FormulaInputs are the only values a formula can read.
type FormulaInputs struct {
	Basic      money.Amount
	GrossSoFar money.Amount
}

func (in FormulaInputs) parameters() map[string]interface{} {
	return map[string]interface{}{
		VarBasic:      float64(in.Basic),
		VarGrossSoFar: float64(in.GrossSoFar),
	}
}

// FormulaEngine compiles and caches formulas. Safe for concurrent use.
type FormulaEngine struct {
	mu       sync.RWMutex
	compiled map[string]*govaluate.EvaluableExpression
}

var defaultFormulas = NewFormulaEngine()

func NewFormulaEngine() *FormulaEngine {
	return &FormulaEngine{compiled: make(map[string]*govaluate.EvaluableExpression)}
}

// Compile parses and whitelists formula, caching the result.
func (f *FormulaEngine) Compile(formula string) (*govaluate.EvaluableExpression, error) {
	f.mu.RLock()
	expr, ok := f.compiled[formula]
	f.mu.RUnlock()
	if ok {
		return expr, nil
	}

	expr, err := govaluate.NewEvaluableExpression(formula)
	if err != nil {
		return nil, &FormulaError{Formula: formula, Reason: FormulaMalformed, Detail: err.Error()}
	}
	if err := checkTokens(formula, expr.Tokens()); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.compiled[formula] = expr
	f.mu.Unlock()
	return expr, nil
}

// Evaluate runs formula and rounds the result half-up to minor units.
// The sign is not checked here.
func (f *FormulaEngine) Evaluate(formula string, in FormulaInputs) (money.Amount, error) {
	expr, err := f.Compile(formula)
	if err != nil {
		return 0, err
	}

	result, err := expr.Evaluate(in.parameters())
	if err != nil {
		return 0, &FormulaError{Formula: formula, Reason: FormulaMalformed, Detail: err.Error()}
	}

	value, ok := result.(float64)
	if !ok {
		return 0, &FormulaError{Formula: formula, Reason: FormulaMalformed, Detail: fmt.Sprintf("result %v is not a number", result)}
	}
	switch {
	case math.IsInf(value, 0):
		return 0, &FormulaError{Formula: formula, Reason: FormulaDivisionByZero}
	case math.IsNaN(value):
		return 0, &FormulaError{Formula: formula, Reason: FormulaNonFinite}
	}

	amount, ok := money.FromDecimalChecked(decimal.NewFromFloat(value))
	if !ok {
		return 0, &FormulaError{Formula: formula, Reason: FormulaNonFinite, Detail: fmt.Sprintf("result %g overflows minor units", value)}
	}
	return amount, nil
}

// Len reports how many formulas are cached.
func (f *FormulaEngine) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.compiled)
}

func checkTokens(formula string, tokens []govaluate.ExpressionToken) error {
	if len(tokens) == 0 {
		return &FormulaError{Formula: formula, Reason: FormulaMalformed, Detail: "empty expression"}
	}
	for _, tok := range tokens {
		switch tok.Kind {
		case govaluate.NUMERIC, govaluate.CLAUSE, govaluate.CLAUSE_CLOSE:
		case govaluate.VARIABLE:
			name := fmt.Sprint(tok.Value)
			if name != VarBasic && name != VarGrossSoFar {
				return &FormulaError{Formula: formula, Reason: FormulaUnknownIdentifier, Detail: name}
			}
		case govaluate.MODIFIER:
			op := fmt.Sprint(tok.Value)
			if !allowedOperators[op] {
				return &FormulaError{Formula: formula, Reason: FormulaMalformed, Detail: fmt.Sprintf("operator %s not allowed", op)}
			}
		case govaluate.PREFIX:
			if op := fmt.Sprint(tok.Value); op != "-" {
				return &FormulaError{Formula: formula, Reason: FormulaMalformed, Detail: fmt.Sprintf("prefix %s not allowed", op)}
			}
		default:
			return &FormulaError{Formula: formula, Reason: FormulaMalformed, Detail: fmt.Sprintf("token %v not allowed", tok.Value)}
		}
	}
	return nil
}
