package versioncache

import "fmt"

// TextChange is a single replayable edit: DeleteLength bytes at Pos were
// replaced by InsertedText.
type TextChange struct {
	Pos          int
	DeleteLength int
	InsertedText string
}

// ChangeRange returns the span this change touched.
func (c TextChange) ChangeRange() ChangeRange {
	return ChangeRange{Start: c.Pos, OldLength: c.DeleteLength, NewLength: len(c.InsertedText)}
}

// String returns a compact description of the change.
func (c TextChange) String() string {
	return fmt.Sprintf("change@%d -%d +%q", c.Pos, c.DeleteLength, c.InsertedText)
}

// ChangeRange describes a contiguous span that differs between two versions:
// OldLength bytes at Start in the old text became NewLength bytes at Start in
// the new text.
type ChangeRange struct {
	Start     int
	OldLength int
	NewLength int
}

// Unchanged is the range reported between a version and itself.
var Unchanged = ChangeRange{}

// OldEnd returns the end of the span in the old text.
func (r ChangeRange) OldEnd() int {
	return r.Start + r.OldLength
}

// NewEnd returns the end of the span in the new text.
func (r ChangeRange) NewEnd() int {
	return r.Start + r.NewLength
}

// IsUnchanged reports whether the range describes no change.
func (r ChangeRange) IsUnchanged() bool {
	return r.OldLength == 0 && r.NewLength == 0
}

// String returns the range as "[start,oldEnd)->[start,newEnd)".
func (r ChangeRange) String() string {
	return fmt.Sprintf("[%d,%d)->[%d,%d)", r.Start, r.OldEnd(), r.Start, r.NewEnd())
}

// Compose returns the single range equivalent to applying first and then
// second. second is expressed in the coordinates of the text first produced.
// The result covers both spans; overlapping and adjacent spans merge.
func Compose(first, second ChangeRange) ChangeRange {
	oldStart := min(first.Start, second.Start)
	oldEnd := max(first.OldEnd(), first.OldEnd()+(second.OldEnd()-first.NewEnd()))
	newEnd := max(second.NewEnd(), second.NewEnd()+(first.NewEnd()-second.OldEnd()))
	return ChangeRange{
		Start:     oldStart,
		OldLength: oldEnd - oldStart,
		NewLength: newEnd - oldStart,
	}
}

// ComposeAll folds an ordered list of ranges with Compose.
// An empty list yields Unchanged.
func ComposeAll(ranges []ChangeRange) ChangeRange {
	if len(ranges) == 0 {
		return Unchanged
	}
	acc := ranges[0]
	for _, r := range ranges[1:] {
		acc = Compose(acc, r)
	}
	return acc
}
