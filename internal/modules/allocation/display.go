package allocation

import "github.com/opto-ai/opto/internal/modules/reference"

// BuildDisplay reshapes an allocation into dashboard groups. Each category
// change is after minus before; group totals and changes are sums over the
// group's categories.
func BuildDisplay(table *reference.Table, before, after Allocation) DisplayAllocation {
	return DisplayAllocation{
		Private: buildGroup(table, reference.GroupPrivate, before, after),
		Public:  buildGroup(table, reference.GroupPublic, before, after),
	}
}

func buildGroup(table *reference.Table, group reference.Group, before, after Allocation) DisplayGroup {
	keys := table.GroupKeys(group)
	out := DisplayGroup{Categories: make([]DisplayCategory, 0, len(keys))}

	var total, previous float64
	for _, key := range keys {
		info, _ := table.DisplayInfo(key)
		value := after[key]
		total += value
		previous += before[key]

		out.Categories = append(out.Categories, DisplayCategory{
			Key:    key,
			Name:   info.Name,
			Value:  round1(value),
			Change: round1(value - before[key]),
		})
	}
	out.Total = round1(total)
	out.Change = round1(total - previous)
	return out
}

// Flatten turns a display shape back into a flat allocation keyed by asset
func (d DisplayAllocation) Flatten() Allocation {
	out := make(Allocation)
	for _, group := range []DisplayGroup{d.Private, d.Public} {
		for _, c := range group.Categories {
			out[c.Key] = c.Value
		}
	}
	return out
}
