package builtin

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-localhtml/internal/hydrate"
	"github.com/goliatone/go-localhtml/pkg/widgets"
)

// FormulaRow is one evaluated formula.
type FormulaRow struct {
	Eq    string `json:"eq"`
	Value string `json:"value"`
}

// FormulaState is the persisted formula widget content.
type FormulaState struct {
	EqText  string       `json:"eqText"`
	History []FormulaRow `json:"history"`
	Height  int          `json:"height"`
}

var formulaDecoder = hydrate.NewDecoder(
	hydrate.WithDefaults(func() FormulaState { return FormulaState{History: []FormulaRow{}} }),
	hydrate.WithPostHook[FormulaState](func(_ hydrate.Context, s *FormulaState) error {
		if s.History == nil {
			s.History = []FormulaRow{}
		}
		return nil
	}),
)

var diceTerm = regexp.MustCompile(`(?i)(\d*)d(\d+)`)

const (
	maxDice  = 100
	maxSides = 1000
)

// Formula evaluates dice formulas such as "2d6+3" and keeps a history.
type Formula struct {
	*base
	intn  func(int) int
	state FormulaState
}

func (s *settings) newFormula(cfg widgets.Config) (widgets.Widget, error) {
	state, err := formulaDecoder.Decode(hydrate.Context{Kind: cfg.Kind, ID: cfg.ID}, cfg.ContentData)
	if err != nil {
		return nil, err
	}
	return &Formula{base: newBase(cfg), intn: s.intn, state: state}, nil
}

// Calc rolls and evaluates eq, records it and returns the rendered value,
// e.g. "[4, 2]+3 = 9".
func (f *Formula) Calc(eq string) (string, error) {
	value, err := rollFormula(eq, f.intn)
	if err != nil {
		return "", fmt.Errorf("formula: %w", err)
	}
	f.mu.Lock()
	f.state.EqText = eq
	f.state.History = append(f.state.History, FormulaRow{Eq: eq, Value: value})
	f.mu.Unlock()
	f.changed()
	return value, nil
}

// ClearHistory drops recorded rows and keeps the current formula text.
func (f *Formula) ClearHistory() {
	f.mu.Lock()
	f.state.History = []FormulaRow{}
	f.mu.Unlock()
	f.changed()
}

// History returns the recorded rows, oldest first.
func (f *Formula) History() []FormulaRow {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FormulaRow(nil), f.state.History...)
}

func (f *Formula) ContentData() any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return encode(f.log, f.state)
}

func rollFormula(eq string, intn func(int) int) (string, error) {
	eq = strings.TrimSpace(eq)
	if eq == "" {
		return "", fmt.Errorf("empty formula")
	}

	var rollErr error
	var shown strings.Builder
	var numeric strings.Builder
	last := 0
	for _, m := range diceTerm.FindAllStringSubmatchIndex(eq, -1) {
		shown.WriteString(eq[last:m[0]])
		numeric.WriteString(eq[last:m[0]])
		count := 1
		if m[3] > m[2] {
			count, _ = strconv.Atoi(eq[m[2]:m[3]])
		}
		sides, _ := strconv.Atoi(eq[m[4]:m[5]])
		if count < 1 || count > maxDice || sides < 1 || sides > maxSides {
			rollErr = fmt.Errorf("unsupported dice %q", eq[m[0]:m[1]])
			break
		}
		rolls := make([]string, count)
		total := 0
		for i := range rolls {
			v := intn(sides) + 1
			total += v
			rolls[i] = strconv.Itoa(v)
		}
		shown.WriteString("[" + strings.Join(rolls, ", ") + "]")
		numeric.WriteString(strconv.Itoa(total))
		last = m[1]
	}
	if rollErr != nil {
		return "", rollErr
	}
	shown.WriteString(eq[last:])
	numeric.WriteString(eq[last:])

	result, err := evalArithmetic(numeric.String())
	if err != nil {
		return "", err
	}
	return shown.String() + " = " + result, nil
}
