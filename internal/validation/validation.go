package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/activitytracker/internal/constants"
	"github.com/julianstephens/activitytracker/internal/models"
	"github.com/julianstephens/activitytracker/internal/utils"
)

// Severity ranks a conflict
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Conflict represents a detected problem in the activity log
type Conflict struct {
	Type        constants.ConflictType
	Severity    Severity
	Description string
	Items       []string // Activity labels involved
	EntryIDs    []string // IDs of entries involved (for auto-fixing)
	Positions   []int    // Zero-based positions in the log
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// FixAction represents an action taken during auto-fix
type FixAction struct {
	Action         string
	SourceConflict Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// HasErrors returns true if any conflict is more severe than a warning
func (vr *ValidationResult) HasErrors() bool {
	for _, c := range vr.Conflicts {
		if c.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Count returns how many conflicts of type t were found
func (vr *ValidationResult) Count(t constants.ConflictType) int {
	n := 0
	for _, c := range vr.Conflicts {
		if c.Type == t {
			n++
		}
	}
	return n
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, conflict := range vr.Conflicts {
		if conflict.Severity == SeverityWarning {
			fmt.Fprintf(&b, "- [warning] %s\n", conflict.Description)
			continue
		}
		fmt.Fprintf(&b, "- %s\n", conflict.Description)
	}
	return b.String()
}

// Validator checks activity logs for conflicts
type Validator struct {
	ts *utils.Timestamps
}

// New creates a new Validator using the default timestamp rules
func New() *Validator {
	return &Validator{ts: utils.Default()}
}

// NewWith creates a Validator that parses with ts
func NewWith(ts *utils.Timestamps) *Validator {
	if ts == nil {
		ts = utils.Default()
	}
	return &Validator{ts: ts}
}

// ValidateInputs checks raw, possibly malformed entries. Inputs with bad
// timestamps are reported and the rest go through ValidateEntries.
func (v *Validator) ValidateInputs(inputs []models.EntryInput) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	var entries []models.ActivityEntry
	var positions []int
	for i, in := range inputs {
		bad := v.badTimestamps(in)
		if len(bad) > 0 {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        constants.ConflictInvalidTimestamp,
				Severity:    SeverityError,
				Description: fmt.Sprintf("Entry %d (%q) has invalid %s", i+1, in.Activity, strings.Join(bad, " and ")),
				Items:       []string{in.Activity},
				EntryIDs:    nonEmpty(in.ID),
				Positions:   []int{i},
			})
			continue
		}
		e, err := models.NewActivityEntryWith(v.ts, in)
		if err != nil {
			continue
		}
		entries = append(entries, e)
		positions = append(positions, i)
	}

	inner := v.validate(entries, positions)
	result.Conflicts = append(result.Conflicts, inner.Conflicts...)
	return result
}

// ValidateEntries checks constructed entries for conflicts
func (v *Validator) ValidateEntries(entries []models.ActivityEntry) ValidationResult {
	positions := make([]int, len(entries))
	for i := range entries {
		positions[i] = i
	}
	return v.validate(entries, positions)
}

func (v *Validator) validate(entries []models.ActivityEntry, positions []int) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	// Duplicate IDs, reported in order of first occurrence
	idPositions := make(map[string][]int)
	var idOrder []string
	for i, e := range entries {
		if e.ID() == "" {
			continue
		}
		if _, seen := idPositions[e.ID()]; !seen {
			idOrder = append(idOrder, e.ID())
		}
		idPositions[e.ID()] = append(idPositions[e.ID()], i)
	}
	for _, id := range idOrder {
		idx := idPositions[id]
		if len(idx) < 2 {
			continue
		}
		var items []string
		var pos []int
		for _, i := range idx {
			items = append(items, entries[i].Activity())
			pos = append(pos, positions[i])
		}
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:        constants.ConflictDuplicateEntryID,
			Severity:    SeverityError,
			Description: fmt.Sprintf("Duplicate entry ID: %s (positions: %v)", id, humanPositions(pos)),
			Items:       items,
			EntryIDs:    []string{id},
			Positions:   pos,
		})
	}

	for i, e := range entries {
		if e.IsNegative() {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        constants.ConflictNegativeDuration,
				Severity:    SeverityError,
				Description: fmt.Sprintf("Entry %q stops before it starts (%s > %s)", e.Activity(), e.Start(), e.Stop()),
				Items:       []string{e.Activity()},
				EntryIDs:    nonEmpty(e.ID()),
				Positions:   []int{positions[i]},
			})
		}
		if strings.TrimSpace(e.Activity()) == "" {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        constants.ConflictEmptyActivity,
				Severity:    SeverityWarning,
				Description: fmt.Sprintf("Entry %d (%s) has no activity label", positions[i]+1, e.Start()),
				EntryIDs:    nonEmpty(e.ID()),
				Positions:   []int{positions[i]},
			})
		}
	}

	// Overlaps: sweep entries sorted by start
	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return spanStart(entries[order[a]]).Before(spanStart(entries[order[b]]))
	})
	for a := 0; a < len(order); a++ {
		first := entries[order[a]]
		for b := a + 1; b < len(order); b++ {
			second := entries[order[b]]
			if !spanStart(second).Before(spanStop(first)) {
				break
			}
			if !first.Overlaps(second) {
				continue
			}
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:     constants.ConflictOverlappingEntries,
				Severity: SeverityError,
				Description: fmt.Sprintf("Entries %q (%s - %s) and %q (%s - %s) overlap",
					first.Activity(), first.Start(), first.Stop(),
					second.Activity(), second.Start(), second.Stop()),
				Items:     []string{first.Activity(), second.Activity()},
				EntryIDs:  append(nonEmpty(first.ID()), nonEmpty(second.ID())...),
				Positions: []int{positions[order[a]], positions[order[b]]},
			})
		}
	}

	return result
}

// AutoFixDuplicateEntries keeps the first entry of each duplicated ID and
// drops the later ones. It returns the surviving entries in their original
// order along with a description of what was removed.
func AutoFixDuplicateEntries(conflicts []Conflict, entries []models.ActivityEntry) ([]models.ActivityEntry, []FixAction) {
	actions := []FixAction{}
	duplicated := make(map[string]Conflict)
	for _, c := range conflicts {
		if c.Type == constants.ConflictDuplicateEntryID && len(c.EntryIDs) == 1 {
			duplicated[c.EntryIDs[0]] = c
		}
	}
	if len(duplicated) == 0 {
		return entries, actions
	}

	kept := make([]models.ActivityEntry, 0, len(entries))
	seen := make(map[string]bool)
	removed := make(map[string]int)
	for _, e := range entries {
		if _, dup := duplicated[e.ID()]; dup && seen[e.ID()] {
			removed[e.ID()]++
			continue
		}
		seen[e.ID()] = true
		kept = append(kept, e)
	}

	for _, c := range conflicts {
		id := ""
		if len(c.EntryIDs) == 1 {
			id = c.EntryIDs[0]
		}
		if c.Type != constants.ConflictDuplicateEntryID || removed[id] == 0 {
			continue
		}
		actions = append(actions, FixAction{
			Action:         fmt.Sprintf("Removed %d duplicate entr(ies) with ID %s (kept the first)", removed[id], id),
			SourceConflict: c,
		})
	}
	return kept, actions
}

// Helper functions

func (v *Validator) badTimestamps(in models.EntryInput) []string {
	var bad []string
	if !v.ts.IsValidText(in.Start) {
		bad = append(bad, fmt.Sprintf("start %q", in.Start))
	}
	if !v.ts.IsValidText(in.Stop) {
		bad = append(bad, fmt.Sprintf("stop %q", in.Stop))
	}
	return bad
}

func spanStart(e models.ActivityEntry) time.Time {
	if e.IsNegative() {
		return e.StopTime()
	}
	return e.StartTime()
}

func spanStop(e models.ActivityEntry) time.Time {
	if e.IsNegative() {
		return e.StartTime()
	}
	return e.StopTime()
}

func humanPositions(pos []int) []int {
	out := make([]int, len(pos))
	for i, p := range pos {
		out[i] = p + 1
	}
	return out
}

func nonEmpty(id string) []string {
	if id == "" {
		return nil
	}
	return []string{id}
}
