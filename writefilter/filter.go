// Package writefilter decides which documents a modification pipeline must
// leave untouched. Filtered rows are copied through unchanged.
package writefilter

import (
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/teranos/modx/am"
	"github.com/teranos/modx/document"
	"github.com/teranos/modx/logger"
	"github.com/teranos/modx/modify"
)

// Rules select documents to skip. A document matching any rule is skipped.
type Rules struct {
	// KeyPrefixes skips documents whose key starts with any prefix.
	KeyPrefixes []string
	// Attribute and Values skip documents whose Attribute renders to one of
	// Values. Strings compare as-is, other values as compact JSON.
	Attribute string
	Values    []string
}

// RulesFromConfig returns the rules of cfg, or empty rules when the filter
// is disabled.
func RulesFromConfig(cfg am.WriteFilterConfig) Rules {
	if !cfg.Enabled {
		return Rules{}
	}
	return Rules{
		KeyPrefixes: append([]string(nil), cfg.KeyPrefixes...),
		Attribute:   cfg.Attribute,
		Values:      append([]string(nil), cfg.Values...),
	}
}

// Empty reports whether the rules match nothing.
func (r Rules) Empty() bool {
	return len(r.KeyPrefixes) == 0 && (r.Attribute == "" || len(r.Values) == 0)
}

// Skip implements modify.WriteFilter.
func (r Rules) Skip(doc document.Value, key string) bool {
	if key != "" {
		for _, p := range r.KeyPrefixes {
			if strings.HasPrefix(key, p) {
				return true
			}
		}
	}
	if r.Attribute == "" || len(r.Values) == 0 || !doc.IsObject() {
		return false
	}
	attr := doc.Get(r.Attribute)
	if attr.IsNone() {
		return false
	}
	rendered := attr.String()
	if attr.IsString() {
		rendered = attr.StringValue()
	}
	for _, v := range r.Values {
		if v == rendered {
			return true
		}
	}
	return false
}

// KeyPrefix skips documents whose key has one of prefixes.
func KeyPrefix(prefixes ...string) modify.WriteFilter {
	return Rules{KeyPrefixes: prefixes}
}

// AttributeIn skips documents whose attribute equals one of values.
func AttributeIn(attribute string, values ...string) modify.WriteFilter {
	return Rules{Attribute: attribute, Values: values}
}

// Filter is a write filter whose rules can be swapped while pipelines run.
type Filter struct {
	rules  atomic.Pointer[Rules]
	logger *zap.SugaredLogger
}

// New returns a filter starting with rules.
func New(rules Rules, log *zap.SugaredLogger) *Filter {
	f := &Filter{logger: logger.AddFilterSymbol(logger.OrGlobal(log))}
	f.Set(rules)
	return f
}

// NewFromConfig returns a filter configured from cfg.
func NewFromConfig(cfg am.WriteFilterConfig, log *zap.SugaredLogger) *Filter {
	return New(RulesFromConfig(cfg), log)
}

// Set replaces the active rules.
func (f *Filter) Set(rules Rules) {
	f.rules.Store(&rules)
}

// Rules returns the active rules.
func (f *Filter) Rules() Rules {
	return *f.rules.Load()
}

// Skip implements modify.WriteFilter.
func (f *Filter) Skip(doc document.Value, key string) bool {
	if f.rules.Load().Skip(doc, key) {
		f.logger.Debugw("Write filtered", logger.FieldKey, key)
		return true
	}
	return false
}

// OnReload is an am.ReloadCallback that swaps in the reloaded rules.
func (f *Filter) OnReload(cfg *am.Config) error {
	rules := RulesFromConfig(cfg.WriteFilter)
	f.Set(rules)
	f.logger.Infow("Write filter reloaded",
		"key_prefixes", len(rules.KeyPrefixes),
		"attribute", rules.Attribute,
		"values", len(rules.Values))
	return nil
}

// Watch subscribes f to configuration reloads.
func (f *Filter) Watch(w *am.ConfigWatcher) {
	w.OnReload(f.OnReload)
}
