// Package sym defines canonical glyphs for modx operations and system markers.
// These glyphs are stable across log output, CLI help text and documentation.
package sym

// Modification kinds.
const (
	Insert  = "⊕" // insert: add new documents
	Remove  = "⊖" // remove: delete documents by key
	Update  = "⊛" // update: merge a patch into existing documents
	Replace = "⊘" // replace: swap the body of existing documents
	Upsert  = "⊜" // upsert: update if matched, insert otherwise
	Lookup  = "⌕" // lookup: point read by key
)

// System infrastructure symbols.
const (
	AM       = "≡" // configuration
	DB       = "⊔" // database/storage layer
	Pipeline = "⋙" // batched modification pipeline
	Filter   = "⧩" // write filter
)

// CommandToSymbol maps operation names to their glyphs.
var CommandToSymbol = map[string]string{
	"insert":  Insert,
	"remove":  Remove,
	"update":  Update,
	"replace": Replace,
	"upsert":  Upsert,
	"lookup":  Lookup,
}

// SymbolToCommand maps glyphs to operation names.
var SymbolToCommand = map[string]string{
	Insert:  "insert",
	Remove:  "remove",
	Update:  "update",
	Replace: "replace",
	Upsert:  "upsert",
	Lookup:  "lookup",
}

// CommandDescriptions provides one-line explanations used in CLI help.
var CommandDescriptions = map[string]string{
	"insert":  "Insert: add new documents, the engine assigns missing keys",
	"remove":  "Remove: delete documents identified by key (and revision)",
	"update":  "Update: merge a patch into existing documents",
	"replace": "Replace: swap the body of existing documents",
	"upsert":  "Upsert: update the matched document or insert a new one",
	"lookup":  "Lookup: read a single document by key",
}

// For returns the glyph for an operation name, or Pipeline when unknown.
func For(command string) string {
	if s, ok := CommandToSymbol[command]; ok {
		return s
	}
	return Pipeline
}
