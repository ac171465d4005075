package deck

import (
	"fmt"
	"sort"
	"strings"
)

// Summary renders the deck as an operator-facing tree: rail, resource
// name, kind and absolute origin coordinates. Diagnostic only; nothing
// on the wire depends on this format.
func (d *Deck) Summary() string {
	rails := make([]int, 0, len(d.byRail))
	for rail := range d.byRail {
		rails = append(rails, rail)
	}
	sort.Ints(rails)

	var b strings.Builder
	fmt.Fprintf(&b, "Rail  Resource                  Kind       Position\n")
	for _, rail := range rails {
		top := d.byRail[rail]
		pos, err := d.absolute(top)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "%4d  %-25s %-10s %s\n", rail, top.name, top.kind, pos)
		occupied := make([]int, 0, len(top.slots))
		for slot, child := range top.slots {
			if child != nil {
				occupied = append(occupied, slot)
			}
		}
		for i, slot := range occupied {
			child := top.slots[slot]
			childPos, err := d.absolute(child)
			if err != nil {
				continue
			}
			connector := "├──"
			if i == len(occupied)-1 {
				connector = "└──"
			}
			fmt.Fprintf(&b, "      %s [%d] %-18s %-10s %s\n", connector, slot, child.name, child.kind, childPos)
		}
	}
	return b.String()
}
