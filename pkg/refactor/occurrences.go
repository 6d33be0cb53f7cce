package refactor

import (
	"fmt"
	"sort"

	"github.com/mamaar/constprop/pkg/types"
)

// unrewritable marks positions that require a compile-time constant
// expression; a reference to a non-final field cannot stand there.
const unrewritable = types.InAnnotation | types.InCaseLabel | types.InEnumArgs

// Aggregator collects equivalent occurrences over a root set
type Aggregator struct {
	finder OccurrenceFinder
}

func NewAggregator(finder OccurrenceFinder) *Aggregator {
	return &Aggregator{finder: finder}
}

// Collect queries every root in order and unions the results by position.
// Occurrences in field initializers are kept apart for the existing-field
// check. The query for each root runs to completion before the next.
func (a *Aggregator) Collect(lit *types.Literal, rs *types.RootSet) (*types.OccurrenceSet, error) {
	set := &types.OccurrenceSet{Selected: lit}
	if rs.Empty() {
		return set, nil
	}

	seen := make(map[string]bool)
	for _, root := range rs.Roots {
		found, err := a.finder.FindOccurrencesOf(lit, root)
		if err != nil {
			return nil, fmt.Errorf("searching %s: %w", root.Name, err)
		}
		for _, occ := range found {
			key := occ.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			if occ.Context&unrewritable != 0 {
				continue
			}
			if occ.Context.Has(types.InFieldInit) {
				set.FieldInitializers = append(set.FieldInitializers, occ)
			} else {
				set.Sites = append(set.Sites, occ)
			}
		}
	}

	sortByPosition(set.Sites)
	sortByPosition(set.FieldInitializers)
	return set, nil
}

func sortByPosition(lits []*types.Literal) {
	sort.Slice(lits, func(i, j int) bool {
		if lits[i].File != lits[j].File {
			return lits[i].File < lits[j].File
		}
		return lits[i].Start < lits[j].Start
	})
}
