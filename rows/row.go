// Package rows provides concrete rows, row sources and output sinks for the
// modification pipeline.
//
// Rows use a fixed register layout. Input files name the roles of each row:
//
//	{"doc": {"_key": "a", "n": 1}, "key": "a"}
//
// or, without roles, carry the document itself on each line.
package rows

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/teranos/modx/document"
	"github.com/teranos/modx/errors"
	"github.com/teranos/modx/modify"
)

// Register layout.
const (
	RegDocument modify.RegisterID = iota
	RegKey
	RegInsert
	RegUpdate
	RegNew
	RegOld
	NumRegisters
)

// Role names as they appear in input and output files.
const (
	RoleDocument = "doc"
	RoleKey      = "key"
	RoleInsert   = "insert"
	RoleUpdate   = "update"
	RoleNew      = "new"
	RoleOld      = "old"
)

var roleRegisters = map[string]modify.RegisterID{
	RoleDocument: RegDocument,
	RoleKey:      RegKey,
	RoleInsert:   RegInsert,
	RoleUpdate:   RegUpdate,
	RoleNew:      RegNew,
	RoleOld:      RegOld,
}

var registerRoles = func() map[modify.RegisterID]string {
	out := make(map[modify.RegisterID]string, len(roleRegisters))
	for role, reg := range roleRegisters {
		out[reg] = role
	}
	return out
}()

// Registers returns the role mapping for this layout. The Key role is bound
// only when bindKey is set, since a bound Key role always takes precedence
// over the document's own _key.
func Registers(bindKey bool) modify.Registers {
	regs := modify.Registers{
		Document:  RegDocument,
		Key:       modify.NoRegister,
		Insert:    RegInsert,
		Update:    RegUpdate,
		OutputNew: RegNew,
		OutputOld: RegOld,
	}
	if bindKey {
		regs.Key = RegKey
	}
	return regs
}

// Row is an immutable register slice.
type Row struct {
	values []document.Value
}

// NewRow returns a row whose registers hold values in order.
func NewRow(values ...document.Value) Row {
	out := make([]document.Value, NumRegisters)
	copy(out, values)
	return Row{values: out}
}

// DocumentRow returns a row holding doc in the Document register.
func DocumentRow(doc document.Value) Row {
	return NewRow(doc)
}

// FromRoles builds a row from an object whose fields name roles.
func FromRoles(obj document.Value) (Row, error) {
	if !obj.IsObject() {
		return Row{}, errors.NewInvalidRequestError("row must be an object of roles, got %s", obj.Type())
	}
	row := NewRow()
	for _, name := range obj.Keys() {
		reg, ok := roleRegisters[name]
		if !ok {
			return Row{}, errors.WithHintf(
				errors.NewInvalidRequestError("unknown role %q", name),
				"valid roles: %s", strings.Join(RoleNames(), ", "))
		}
		row.values[reg] = obj.Get(name)
	}
	return row, nil
}

// Value implements modify.Row.
func (r Row) Value(reg modify.RegisterID) document.Value {
	if reg < 0 || int(reg) >= len(r.values) {
		return document.None()
	}
	return r.values[reg]
}

// With returns a copy of r with reg set to v.
func (r Row) With(reg modify.RegisterID, v document.Value) Row {
	size := len(r.values)
	if int(reg) >= size {
		size = int(reg) + 1
	}
	out := make([]document.Value, size)
	copy(out, r.values)
	out[reg] = v
	return Row{values: out}
}

// Roles returns the row as an object of role name to value. Unset
// registers are omitted.
func (r Row) Roles() document.Value {
	obj := document.NewObject()
	for reg, v := range r.values {
		if name, ok := registerRoles[modify.RegisterID(reg)]; ok {
			obj.Set(name, v)
		}
	}
	return obj
}

// MarshalJSON encodes the row's roles.
func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Roles())
}

// snapshot copies any modify.Row into the fixed layout.
func snapshot(row modify.Row) Row {
	if r, ok := row.(Row); ok {
		return r
	}
	out := NewRow()
	for reg := modify.RegisterID(0); reg < NumRegisters; reg++ {
		out.values[reg] = row.Value(reg)
	}
	return out
}

// RoleNames returns the recognised role names in sorted order.
func RoleNames() []string {
	names := make([]string, 0, len(roleRegisters))
	for name := range roleRegisters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
