package modify

import "fmt"

// Kind selects the per-row modification strategy.
type Kind uint8

const (
	KindInsert Kind = iota
	KindRemove
	KindReplace
	KindUpdate
	KindUpsert
)

func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindRemove:
		return "remove"
	case KindReplace:
		return "replace"
	case KindUpdate:
		return "update"
	case KindUpsert:
		return "upsert"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind maps an operation name to its Kind.
func ParseKind(name string) (Kind, bool) {
	for k := KindInsert; k <= KindUpsert; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// OperationTag records what happened to one input row during collection.
type OperationTag uint8

const (
	// TagApplyReturn: submitted, consume the next entry of the single result.
	TagApplyReturn OperationTag = iota
	// TagApplyInsert: submitted to the upsert insert accumulator.
	TagApplyInsert
	// TagApplyUpdate: submitted to the upsert update accumulator.
	TagApplyUpdate
	// TagCopyRow: bypassed storage, forward unchanged.
	TagCopyRow
	// TagSkipRow: failed pre-validation, produces no output.
	TagSkipRow
)

func (t OperationTag) String() string {
	switch t {
	case TagApplyReturn:
		return "apply-return"
	case TagApplyInsert:
		return "apply-insert"
	case TagApplyUpdate:
		return "apply-update"
	case TagCopyRow:
		return "copy-row"
	case TagSkipRow:
		return "skip-row"
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

// target names the accumulator and result sequence a tag consumes from.
type target uint8

const (
	targetReturn target = iota
	targetInsert
	targetUpdate
	numTargets
)

func (t target) String() string {
	switch t {
	case targetReturn:
		return "return"
	case targetInsert:
		return "insert"
	case targetUpdate:
		return "update"
	}
	return "none"
}

// targetOf reports the result sequence a tag consumes from. Tags that
// bypass storage have no target.
func targetOf(tag OperationTag) (target, bool) {
	switch tag {
	case TagApplyReturn:
		return targetReturn, true
	case TagApplyInsert:
		return targetInsert, true
	case TagApplyUpdate:
		return targetUpdate, true
	}
	return 0, false
}
