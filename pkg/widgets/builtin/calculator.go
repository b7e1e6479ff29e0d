package builtin

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/goliatone/go-localhtml/internal/hydrate"
	"github.com/goliatone/go-localhtml/pkg/widgets"
)

// CalculatorState is the persisted calculator display.
type CalculatorState struct {
	Display string `json:"display"`
}

var calculatorDecoder = hydrate.NewDecoder[CalculatorState]()

const calculatorChars = "0123456789+-*/.() "

// Calculator evaluates arithmetic typed into its display.
type Calculator struct {
	*base
	state CalculatorState
}

func newCalculator(cfg widgets.Config) (widgets.Widget, error) {
	state, err := calculatorDecoder.Decode(hydrate.Context{Kind: cfg.Kind, ID: cfg.ID}, cfg.ContentData)
	if err != nil {
		return nil, err
	}
	return &Calculator{base: newBase(cfg), state: state}, nil
}

// Display returns the current display text.
func (c *Calculator) Display() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Display
}

// Press appends input to the display.
func (c *Calculator) Press(input string) {
	c.mu.Lock()
	c.state.Display += input
	c.mu.Unlock()
	c.changed()
}

// Clear empties the display.
func (c *Calculator) Clear() {
	c.mu.Lock()
	c.state.Display = ""
	c.mu.Unlock()
	c.changed()
}

// Evaluate replaces the display with the value of its expression. Invalid
// input or non-finite results leave the display unchanged.
func (c *Calculator) Evaluate() (string, error) {
	c.mu.Lock()
	input := c.state.Display
	c.mu.Unlock()

	result, err := evalArithmetic(input)
	if err != nil {
		return "", fmt.Errorf("calculator: %w", err)
	}
	c.mu.Lock()
	c.state.Display = result
	c.mu.Unlock()
	c.changed()
	return result, nil
}

func (c *Calculator) ContentData() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return encode(c.log, c.state)
}

func evalArithmetic(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("empty expression")
	}
	for _, r := range input {
		if !strings.ContainsRune(calculatorChars, r) {
			return "", fmt.Errorf("invalid character %q", r)
		}
	}
	out, err := expr.Eval(input, nil)
	if err != nil {
		return "", err
	}
	return formatNumber(out)
}

func formatNumber(v any) (string, error) {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n), nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	case float64:
		if math.IsInf(n, 0) || math.IsNaN(n) {
			return "", fmt.Errorf("result is not a number")
		}
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unexpected result %T", v)
	}
}
