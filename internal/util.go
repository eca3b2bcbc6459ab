// Package internal holds helpers shared by the search code.
package internal

import "slices"

// ReconstructPath follows predecessor links from current back to start and
// returns the walk in start-to-current order. Predecessor maps only grow, so
// the walk is bounded by len(cameFrom)+1 hops; a broken chain stops at the
// last reachable node.
func ReconstructPath[NodeType comparable](
	cameFrom map[NodeType]NodeType,
	current NodeType,
	start NodeType,
) []NodeType {
	path := make([]NodeType, 0, 8)
	path = append(path, current)
	for hops := 0; current != start && hops <= len(cameFrom); hops++ {
		previousNode, exists := cameFrom[current]
		if !exists {
			break
		}
		path = append(path, previousNode)
		current = previousNode
	}
	slices.Reverse(path)
	return path
}
