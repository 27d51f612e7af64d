package fsmutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPending(t *testing.T) {
	assert.True(t, SetPending(1, "report"))
	assert.False(t, SetPending(1, "codes"))
	ClearPending(1, "codes")
	assert.False(t, SetPending(1, "report"))
	ClearPending(1, "report")
	assert.True(t, SetPending(1, "codes"))
	ClearPending(1, "codes")
}

func TestStore(t *testing.T) {
	type st struct{ Step int }
	s := NewStore[st]()
	assert.Nil(t, s.Get(5))
	s.Set(5, &st{Step: 2})
	assert.Equal(t, 2, s.Get(5).Step)
	assert.Equal(t, 2, s.Delete(5).Step)
	assert.Nil(t, s.Delete(5))
}

func TestIsCancelText(t *testing.T) {
	for _, s := range []string{"إلغاء", " الغاء ", "/cancel", "Cancel"} {
		assert.True(t, IsCancelText(s), s)
	}
	assert.False(t, IsCancelText("نعم"))
}

func TestParseID(t *testing.T) {
	id, ok := ParseID("unit_open_42", "unit_open_")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	_, ok = ParseID("unit_open_", "unit_open_")
	assert.False(t, ok)
	_, ok = ParseID("unit_open_4x", "unit_open_")
	assert.False(t, ok)
	_, ok = ParseID("lesson_4", "unit_open_")
	assert.False(t, ok)
}
