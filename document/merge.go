package document

// Merge applies patch on top of base and returns a new object. Neither input
// is modified.
//
// With keepNull unset, null attributes in patch remove the attribute from the
// result instead of storing null. With mergeObjects set, object-valued
// attributes present in both are merged recursively; otherwise the patch
// value replaces the base value.
func Merge(base, patch Value, keepNull, mergeObjects bool) Value {
	if !patch.IsObject() {
		return patch.Clone()
	}
	out := NewObject()
	if base.IsObject() {
		for k, item := range base.obj {
			out.obj[k] = item.Clone()
		}
	}
	for k, item := range patch.obj {
		if item.IsNull() && !keepNull {
			delete(out.obj, k)
			continue
		}
		existing, ok := out.obj[k]
		if mergeObjects && ok && existing.IsObject() && item.IsObject() {
			out.obj[k] = Merge(existing, item, keepNull, mergeObjects)
			continue
		}
		out.obj[k] = item.Clone()
	}
	return out
}

// Overlay returns a copy of doc with every field of fields set on top.
// Unlike Merge, null values in fields are stored as null.
func Overlay(doc, fields Value) Value {
	out := NewObject()
	if doc.IsObject() {
		for k, item := range doc.obj {
			out.obj[k] = item
		}
	}
	if fields.IsObject() {
		for k, item := range fields.obj {
			out.obj[k] = item
		}
	}
	return out
}
