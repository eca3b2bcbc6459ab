package dynastar

// moves lists candidate displacements in expansion order: stay, the four axis
// moves, then the four diagonals. Frontier ties resolve in this order.
var moves = [...]Cell{
	{0, 0},
	{0, 1}, {0, -1}, {1, 0}, {-1, 0},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

// Neighbors returns the cells reachable from c in one move, including c itself.
// A neighbor must satisfy 0 < row < size and 0 < col < size, so row 0 and
// column 0 are never offered as moves even though they are valid start or
// goal cells.
func Neighbors(c Cell, size int) []Cell {
	out := make([]Cell, 0, len(moves))
	for _, m := range moves {
		n := c.Add(m.Row, m.Col)
		if 0 < n.Row && n.Row < size && 0 < n.Col && n.Col < size {
			out = append(out, n)
		}
	}
	return out
}
