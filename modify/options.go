package modify

import "github.com/teranos/modx/document"

// OperationConfig is resolved once per pipeline instance and never mutated
// afterwards. It is forwarded to the gateway with every request.
type OperationConfig struct {
	WaitForSync            bool
	KeepNull               bool
	MergeObjects           bool
	IgnoreRevs             bool
	IsRestore              bool
	Overwrite              bool
	ReturnOld              bool
	ReturnNew              bool
	IgnoreErrors           bool
	IgnoreDocumentNotFound bool
	ConsultWriteFilter     bool
	IsReplace              bool
}

// DefaultOperationConfig returns the options a statement gets when it
// specifies none.
func DefaultOperationConfig() OperationConfig {
	return OperationConfig{
		MergeObjects: true,
		IgnoreRevs:   true,
	}
}

// Silent reports whether neither old nor new documents are requested. Silent
// pipelines forward applied rows unchanged.
func (c OperationConfig) Silent() bool {
	return !c.ReturnOld && !c.ReturnNew
}

// RegisterID addresses one value slot of a Row.
type RegisterID int

// NoRegister marks an unbound role.
const NoRegister RegisterID = -1

// Registers maps pipeline roles to row registers.
type Registers struct {
	// Document is the main input: the document to write, the key-bearing
	// value for remove, or the existing match for upsert.
	Document RegisterID
	// Key optionally carries the key (and revision) for update and replace.
	Key RegisterID
	// Insert and Update carry the two upsert branches.
	Insert RegisterID
	Update RegisterID
	// OutputNew and OutputOld receive the returnNew/returnOld documents.
	OutputNew RegisterID
	OutputOld RegisterID
}

// UnboundRegisters returns a mapping with every role unbound.
func UnboundRegisters() Registers {
	return Registers{
		Document:  NoRegister,
		Key:       NoRegister,
		Insert:    NoRegister,
		Update:    NoRegister,
		OutputNew: NoRegister,
		OutputOld: NoRegister,
	}
}

// value reads reg from row, returning None for unbound roles.
func value(row Row, reg RegisterID) document.Value {
	if reg == NoRegister {
		return document.None()
	}
	return row.Value(reg)
}
