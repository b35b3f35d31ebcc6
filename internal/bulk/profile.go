package bulk

import "strings"

// Profile describes one known column layout of a unit inventory export.
// Each field lists the accepted header names, compared case-insensitively.
type Profile struct {
	Name     string
	BlockLot []string
	Block    []string
	Lot      []string
	Project  []string
	Phase    []string
	UnitType []string
	Price    []string
	Dues     []string
}

// splitLot reports whether block and lot come from separate columns.
func (p Profile) splitLot() bool {
	return len(p.BlockLot) == 0
}

func (p Profile) required() [][]string {
	req := [][]string{p.Project, p.Price}
	if p.splitLot() {
		return append(req, p.Block, p.Lot)
	}

	return append(req, p.BlockLot)
}

// profiles is tried in order; the first whose required columns are all present wins.
var profiles = []Profile{
	{
		Name:     "inventory",
		BlockLot: []string{"block/lot", "block-lot", "unit", "unit code"},
		Project:  []string{"project", "development"},
		Phase:    []string{"phase"},
		UnitType: []string{"type", "unit type", "model"},
		Price:    []string{"price", "selling price", "tcp", "total contract price"},
		Dues:     []string{"monthly dues", "association dues", "dues"},
	},
	{
		Name:     "block-lot",
		Block:    []string{"block", "blk"},
		Lot:      []string{"lot"},
		Project:  []string{"project", "development"},
		Phase:    []string{"phase"},
		UnitType: []string{"type", "unit type", "model"},
		Price:    []string{"price", "selling price", "tcp", "total contract price"},
		Dues:     []string{"monthly dues", "association dues", "dues"},
	},
}

// colIndex maps lower-cased header names to their column.
type colIndex map[string]int

func newColIndex(row []string) colIndex {
	cols := make(colIndex, len(row))

	for i, cell := range row {
		name := strings.ToLower(strings.TrimSpace(cell))
		if _, dup := cols[name]; name != "" && !dup {
			cols[name] = i
		}
	}

	return cols
}

// find returns the column of the first alias present, or -1.
func (c colIndex) find(aliases []string) int {
	for _, a := range aliases {
		if i, ok := c[a]; ok {
			return i
		}
	}

	return -1
}

func (c colIndex) matches(p *Profile) bool {
	for _, aliases := range p.required() {
		if c.find(aliases) < 0 {
			return false
		}
	}

	return true
}
