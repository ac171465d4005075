package deck

import (
	"fmt"
	"strconv"
	"strings"
)

// Site is one addressable well or tip position. Row and Col are 1-based;
// row 1 is "A".
type Site struct {
	Resource string
	Row      int
	Col      int
}

// Label renders the site back to its "A1" form.
func (s Site) Label() string {
	return fmt.Sprintf("%c%d", 'A'+s.Row-1, s.Col)
}

// ParseLabel parses a single site label such as "A1" or "H12".
func ParseLabel(label string) (row, col int, err error) {
	if len(label) < 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrAddress, label)
	}
	r := label[0]
	if r < 'A' || r > 'Z' {
		return 0, 0, fmt.Errorf("%w: %q", ErrAddress, label)
	}
	n, convErr := strconv.Atoi(label[1:])
	if convErr != nil || n < 1 {
		return 0, 0, fmt.Errorf("%w: %q", ErrAddress, label)
	}
	return int(r-'A') + 1, n, nil
}

// ExpandRange expands a site spec into ordered labels. A spec is either
// a single label ("A1") or an inclusive rectangle ("A1:C1"). Expansion
// is column-major (column-then-row: A1, B1, C1, A2, ...) to match the
// device's channel addressing convention; the resulting order fixes
// channel assignment downstream and must not change.
func ExpandRange(spec string) ([]string, error) {
	first, rest, ranged := strings.Cut(spec, ":")
	r1, c1, err := ParseLabel(first)
	if err != nil {
		return nil, err
	}
	if !ranged {
		return []string{spec}, nil
	}
	r2, c2, err := ParseLabel(rest)
	if err != nil {
		return nil, err
	}
	if r2 < r1 || c2 < c1 {
		return nil, fmt.Errorf("%w: inverted range %q", ErrAddress, spec)
	}
	var labels []string
	for col := c1; col <= c2; col++ {
		for row := r1; row <= r2; row++ {
			labels = append(labels, fmt.Sprintf("%c%d", 'A'+row-1, col))
		}
	}
	return labels, nil
}

// Sites resolves a site spec against a named resource into ordered Sites.
func (d *Deck) Sites(name, spec string) ([]Site, error) {
	r, err := d.Lookup(name)
	if err != nil {
		return nil, err
	}
	if r.kind == KindTrash {
		if spec != "" {
			return nil, fmt.Errorf("%w: trash %q has no labeled sites", ErrAddress, name)
		}
		return []Site{{Resource: name, Row: 1, Col: 1}}, nil
	}
	if r.grid == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotSited, name)
	}
	labels, err := ExpandRange(spec)
	if err != nil {
		return nil, err
	}
	sites := make([]Site, 0, len(labels))
	for _, label := range labels {
		row, col, err := ParseLabel(label)
		if err != nil {
			return nil, err
		}
		if row > r.grid.Rows || col > r.grid.Cols {
			return nil, fmt.Errorf("%w: %q outside %dx%d grid of %q",
				ErrAddress, label, r.grid.Rows, r.grid.Cols, name)
		}
		sites = append(sites, Site{Resource: name, Row: row, Col: col})
	}
	return sites, nil
}

// Resolve returns the absolute coordinates for a site spec, in spec
// order. The order is the channel assignment order.
func (d *Deck) Resolve(name, spec string) ([]Site, []Coord, error) {
	sites, err := d.Sites(name, spec)
	if err != nil {
		return nil, nil, err
	}
	r, err := d.Lookup(name)
	if err != nil {
		return nil, nil, err
	}
	origin, err := d.absolute(r)
	if err != nil {
		return nil, nil, err
	}
	coords := make([]Coord, len(sites))
	for i, site := range sites {
		if r.grid != nil {
			coords[i] = origin.Add(r.grid.sitePosition(site.Row, site.Col))
		} else {
			coords[i] = origin
		}
	}
	return sites, coords, nil
}
