package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconstructPath(t *testing.T) {
	t.Parallel()

	t.Run("start equals current", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, []int{7}, ReconstructPath(map[int]int{}, 7, 7))
	})

	t.Run("follows chain", func(t *testing.T) {
		t.Parallel()
		came := map[int]int{2: 1, 3: 2, 4: 3}
		assert.Equal(t, []int{1, 2, 3, 4}, ReconstructPath(came, 4, 1))
	})

	t.Run("stops at broken chain", func(t *testing.T) {
		t.Parallel()
		came := map[int]int{4: 3}
		assert.Equal(t, []int{3, 4}, ReconstructPath(came, 4, 1))
	})

	t.Run("terminates on cycle", func(t *testing.T) {
		t.Parallel()
		came := map[int]int{2: 3, 3: 2}
		path := ReconstructPath(came, 2, 1)
		assert.LessOrEqual(t, len(path), len(came)+2)
	})
}
