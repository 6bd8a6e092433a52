package cellmapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnName_Known(t *testing.T) {
	cases := map[int]string{
		0:     "A",
		1:     "B",
		25:    "Z",
		26:    "AA",
		27:    "AB",
		51:    "AZ",
		52:    "BA",
		701:   "ZZ",
		702:   "AAA",
		16383: "XFD",
	}
	for idx, want := range cases {
		assert.Equal(t, want, ColumnName(idx), "ColumnName(%d)", idx)
		got, ok := ColumnIndex(want)
		require.True(t, ok, want)
		assert.Equal(t, idx, got, "ColumnIndex(%q)", want)
	}
	assert.Equal(t, "", ColumnName(-1))
}

// Обратимость и строгая монотонность на первых двух "разрядах".
func TestColumnName_RoundTripAndOrder(t *testing.T) {
	prev := ""
	for i := 0; i <= 701; i++ {
		name := ColumnName(i)
		got, ok := ColumnIndex(name)
		require.True(t, ok, name)
		require.Equal(t, i, got, name)
		if prev != "" {
			less := len(prev) < len(name) || (len(prev) == len(name) && prev < name)
			require.True(t, less, "%s должна идти раньше %s", prev, name)
		}
		prev = name
	}
}

func TestColumnIndex_Invalid(t *testing.T) {
	for _, in := range []string{"", "A1", "1", "Ä", "A-B"} {
		_, ok := ColumnIndex(in)
		assert.False(t, ok, in)
	}
	got, ok := ColumnIndex("ab")
	require.True(t, ok)
	assert.Equal(t, 27, got)
}

func TestSplitRef(t *testing.T) {
	col, row, ok := SplitRef("b12")
	require.True(t, ok)
	assert.Equal(t, "B", col)
	assert.Equal(t, 12, row)

	for _, bad := range []string{"", "B", "12", "B0", "B012", "1B", "B-1", "B1.5"} {
		_, _, ok := SplitRef(bad)
		assert.False(t, ok, bad)
	}

	assert.Equal(t, "AB", ColumnOfRef("AB12"))
	assert.Equal(t, "C7", CellName(2, 7))

	ref, ok := normalizeRef(" aa3 ")
	require.True(t, ok)
	assert.Equal(t, "AA3", ref)
}
