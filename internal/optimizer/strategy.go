package optimizer

// PostFlag annotates a strategy entry the way spec.md §3 describes: a
// strategy entry's postFlag "may include MustBeDone or MarkLastRun".
type PostFlag uint8

const (
	PostFlagNone PostFlag = 0
	PostFlagMustBeDone PostFlag = 1 << iota
	PostFlagMarkLastRun
)

// Entry is one node of a Strategy: either Run (a primitive optimization) or
// Group (a named sub-strategy), per spec.md §9's tagged-variant encoding,
// which replaces the source's sentinel-terminated C array literals.
type Entry struct {
	OptID    OptID
	Guard    Guard
	PostFlag PostFlag

	// Sub is non-nil iff this entry is a Group (spec.md: "Group: an
	// optimization identifier that, instead of naming a pass, names a
	// sub-strategy").
	Sub Strategy
}

func (e Entry) IsGroup() bool { return e.Sub != nil }

// Strategy is an ordered, possibly recursive list of entries. The sentinel
// `endOpts` of the source has no representation here: a Strategy simply
// ends when its slice is exhausted (spec.md §4.1 "Termination").
type Strategy []Entry

// Run builds a primitive-optimization entry.
func Run(id OptID, guard Guard, flags PostFlag) Entry {
	return Entry{OptID: id, Guard: guard, PostFlag: flags}
}

// Group builds a group entry naming a sub-strategy.
func Group(id OptID, guard Guard, flags PostFlag, sub Strategy) Entry {
	return Entry{OptID: id, Guard: guard, PostFlag: flags, Sub: sub}
}

// EachLocalAnalysisPassGroupID is the well-known group id the orchestrator
// recognizes for the special re-entry rule of spec.md §4.1 step 4: this
// group's body re-enters up to 5 times while any sub-pass still has blocks
// pending.
const EachLocalAnalysisPassGroupID OptID = -1

// maxLocalAnalysisIterations is the 5-iteration cap from spec.md §4.1 /
// §9, taken from original_source/compiler/optimizer/OMROptimizer.cpp's
// loop counter rather than re-derived (see DESIGN.md).
const maxLocalAnalysisIterations = 5
