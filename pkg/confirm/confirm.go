// Package confirm abstracts the yes/no prompt shown before destructive edits.
package confirm

// Prompts shown before destructive operations.
const (
	PromptRemovePage   = "Are you sure you want to remove this page?"
	PromptRemoveWidget = "Are you sure you want to remove this widget?"
	PromptClear        = "Are you sure you want to clear the document?"
	PromptImport       = "Any unsaved changes will be lost. Proceed?"
)

// Confirmer answers a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// Func adapts a function to Confirmer.
type Func func(prompt string) bool

// Confirm calls f. A nil Func declines.
func (f Func) Confirm(prompt string) bool {
	if f == nil {
		return false
	}
	return f(prompt)
}

// Always accepts every prompt.
var Always Confirmer = Func(func(string) bool { return true })

// Never declines every prompt.
var Never Confirmer = Func(func(string) bool { return false })

// Ask asks c, treating a nil Confirmer as Always.
func Ask(c Confirmer, prompt string) bool {
	if c == nil {
		return true
	}
	return c.Confirm(prompt)
}
