package builtin

import (
	"fmt"

	"github.com/goliatone/go-localhtml/internal/hydrate"
	"github.com/goliatone/go-localhtml/pkg/widgets"
)

// DiceRoll is one recorded roll.
type DiceRoll struct {
	Sides int `json:"sides"`
	Value int `json:"value"`
}

// DiceboxState is the persisted roll history.
type DiceboxState struct {
	History []DiceRoll `json:"history"`
}

var diceboxDecoder = hydrate.NewDecoder(
	hydrate.WithPostHook[DiceboxState](func(_ hydrate.Context, s *DiceboxState) error {
		if s.History == nil {
			s.History = []DiceRoll{}
		}
		return nil
	}),
)

// Dicebox rolls single dice and records the results.
type Dicebox struct {
	*base
	intn  func(int) int
	state DiceboxState
}

func (s *settings) newDicebox(cfg widgets.Config) (widgets.Widget, error) {
	state, err := diceboxDecoder.Decode(hydrate.Context{Kind: cfg.Kind, ID: cfg.ID}, cfg.ContentData)
	if err != nil {
		return nil, err
	}
	return &Dicebox{base: newBase(cfg), intn: s.intn, state: state}, nil
}

// Roll rolls one die with sides faces, records and returns the value.
func (d *Dicebox) Roll(sides int) (int, error) {
	if sides < 1 {
		return 0, fmt.Errorf("dicebox: invalid die d%d", sides)
	}
	value := d.intn(sides) + 1
	d.mu.Lock()
	d.state.History = append(d.state.History, DiceRoll{Sides: sides, Value: value})
	d.mu.Unlock()
	d.changed()
	return value, nil
}

// Clear drops the roll history.
func (d *Dicebox) Clear() {
	d.mu.Lock()
	d.state.History = []DiceRoll{}
	d.mu.Unlock()
	d.changed()
}

func (d *Dicebox) ContentData() any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return encode(d.log, d.state)
}
