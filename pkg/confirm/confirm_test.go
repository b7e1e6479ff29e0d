package confirm

import "testing"

func TestAsk(t *testing.T) {
	if !Ask(nil, PromptClear) {
		t.Fatalf("nil confirmer should accept")
	}
	if !Ask(Always, PromptClear) || Ask(Never, PromptClear) {
		t.Fatalf("unexpected canned answers")
	}
	var seen string
	c := Func(func(prompt string) bool {
		seen = prompt
		return false
	})
	if Ask(c, PromptRemovePage) || seen != PromptRemovePage {
		t.Fatalf("expected prompt forwarded and declined, saw %q", seen)
	}
	if Func(nil).Confirm("x") {
		t.Fatalf("nil func should decline")
	}
}
