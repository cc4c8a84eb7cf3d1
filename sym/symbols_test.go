package sym

import (
	"testing"
	"unicode/utf8"
)

func TestSymbolToCommandAndCommandToSymbolAreBidirectional(t *testing.T) {
	for symbol, cmd := range SymbolToCommand {
		got, ok := CommandToSymbol[cmd]
		if !ok {
			t.Errorf("SymbolToCommand has %q → %q, but CommandToSymbol has no entry for %q", symbol, cmd, cmd)
			continue
		}
		if got != symbol {
			t.Errorf("bidirectional mismatch: SymbolToCommand[%q] = %q, but CommandToSymbol[%q] = %q", symbol, cmd, cmd, got)
		}
	}
	if len(SymbolToCommand) != len(CommandToSymbol) {
		t.Errorf("map size mismatch: %d vs %d", len(SymbolToCommand), len(CommandToSymbol))
	}
}

func TestCommandDescriptionsCoversAllCommands(t *testing.T) {
	for cmd := range CommandToSymbol {
		if _, ok := CommandDescriptions[cmd]; !ok {
			t.Errorf("CommandDescriptions missing entry for command %q", cmd)
		}
	}
}

func TestGlyphsAreSingleRune(t *testing.T) {
	for symbol := range SymbolToCommand {
		if n := utf8.RuneCountInString(symbol); n != 1 {
			t.Errorf("glyph %q has %d runes, want 1", symbol, n)
		}
	}
}

func TestFor(t *testing.T) {
	if got := For("upsert"); got != Upsert {
		t.Errorf("For(upsert) = %q, want %q", got, Upsert)
	}
	if got := For("unknown"); got != Pipeline {
		t.Errorf("For(unknown) = %q, want %q", got, Pipeline)
	}
}
