package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot(t *testing.T) {
	var s Snapshot[[]string]

	v, ok := s.Load()
	assert.False(t, ok)
	assert.Nil(t, v)

	s.Store([]string{"a"})
	v, ok = s.Load()
	assert.True(t, ok)
	assert.Equal(t, []string{"a"}, v)
}
