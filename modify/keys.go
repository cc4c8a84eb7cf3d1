package modify

import "github.com/teranos/modx/document"

// ExtractKeyAndRevision reads the key, and optionally the revision, that
// identifies an existing document.
//
// A string value is itself the key. An object must carry a string _key. When
// wantRevision is set, a present non-null _rev must be a string; an absent or
// null _rev yields an empty revision.
func ExtractKeyAndRevision(doc document.Value, wantRevision bool) (key, rev string, err error) {
	switch {
	case doc.IsString():
		return doc.StringValue(), "", nil
	case doc.IsObject():
		k := doc.Get(document.KeyAttribute)
		if k.IsNone() {
			return "", "", NewErrorf(CodeDocumentKeyMissing, "expected _key to be a string attribute in document")
		}
		if !k.IsString() {
			return "", "", NewErrorf(CodeDocumentTypeInvalid, "expected _key to be a string, got %s", k.Type())
		}
		if !wantRevision {
			return k.StringValue(), "", nil
		}
		r := doc.Get(document.RevAttribute)
		switch {
		case r.IsNone(), r.IsNull():
			return k.StringValue(), "", nil
		case r.IsString():
			return k.StringValue(), r.StringValue(), nil
		}
		return "", "", NewErrorf(CodeDocumentRevBad, "expected _rev to be a string, got %s", r.Type())
	}
	return "", "", NewErrorf(CodeDocumentTypeInvalid, "expected document to be a string or an object, got %s", doc.Type())
}

// BuildKeyDocument returns {_key, _rev}. _rev is null, meaning "no revision
// check", when ignoreRevision is set or rev is empty.
func BuildKeyDocument(key, rev string, ignoreRevision bool) document.Value {
	out := document.NewObject()
	out.Set(document.KeyAttribute, document.String(key))
	if ignoreRevision || rev == "" {
		out.Set(document.RevAttribute, document.Null())
	} else {
		out.Set(document.RevAttribute, document.String(rev))
	}
	return out
}

// keyHint returns the key a value refers to without validating it. It feeds
// the write filter, which runs before key extraction.
func keyHint(doc document.Value) string {
	if doc.IsString() {
		return doc.StringValue()
	}
	return doc.Get(document.KeyAttribute).StringValue()
}

// ShouldBypass reports whether doc must skip storage application. It is
// always false unless cfg.ConsultWriteFilter is set.
func ShouldBypass(cfg OperationConfig, filter WriteFilter, doc document.Value, key string) bool {
	if !cfg.ConsultWriteFilter || filter == nil {
		return false
	}
	return filter.Skip(doc, key)
}
