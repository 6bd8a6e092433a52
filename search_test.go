package cellmapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyMatcher_Fuzzy(t *testing.T) {
	km := newKeyMatcher("lignes_mobiles")

	// в обе стороны: и "шире", и "уже" искомого имени
	assert.True(t, km.fuzzy("lignesMobiles"))
	assert.True(t, km.fuzzy("mobiles"))
	assert.True(t, km.fuzzy("Lignes-Mobile"))
	assert.True(t, km.fuzzy("toutes_lignes_mobiles"))

	assert.False(t, km.fuzzy("fixes"))
	// слишком короткая форма не считается вхождением
	assert.False(t, km.fuzzy("li"))
	assert.False(t, km.fuzzy(""))

	assert.True(t, km.exact("lignes_mobiles"))
	assert.False(t, km.exact("lignesMobiles"))
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "lignesmobile", normalizeKey("Lignes_Mobiles"))
	assert.Equal(t, "prixht", normalizeKey("prix HT"))
	assert.Equal(t, "s", normalizeKey("s"))
	assert.Equal(t, "", normalizeKey("_-"))
}

func TestSearchTree_OrderAndDepth(t *testing.T) {
	data := map[string]interface{}{
		"b": map[string]interface{}{"target": "from-b"},
		"a": map[string]interface{}{
			"deep": map[string]interface{}{"target": "from-a-deep"},
		},
		"list": []interface{}{
			map[string]interface{}{"target": "from-list"},
		},
	}
	byKey := func(key string, _ interface{}, _ int) bool { return key == "target" }

	// ключи обходятся по алфавиту, поиск в глубину: "a" раньше "b"
	m, ok := searchTree(data, 0, byKey)
	require.True(t, ok)
	assert.Equal(t, "from-a-deep", m.value)
	assert.Equal(t, []string{"a", "deep", "target"}, m.path)
	assert.Equal(t, 2, m.depth)

	// предел глубины 2 отсекает a.deep.target
	m, ok = searchTree(data, 2, byKey)
	require.True(t, ok)
	assert.Equal(t, "from-b", m.value)

	// ключи внутри элементов списка на глубине 2
	onlyList := map[string]interface{}{"list": data["list"]}
	m, ok = searchTree(onlyList, 0, byKey)
	require.True(t, ok)
	assert.Equal(t, []string{"list", "0", "target"}, m.path)

	// индексы списков предикату не предлагаются
	_, ok = searchTree(onlyList, 0, func(key string, _ interface{}, _ int) bool { return key == "0" })
	assert.False(t, ok)
}

func TestFindKey(t *testing.T) {
	item := map[string]interface{}{"Numero_Ligne": "06", "forfait": "Pro"}

	k, ok := findKey(item, "forfait")
	require.True(t, ok)
	assert.Equal(t, "forfait", k)

	k, ok = findKey(item, "numeroLigne")
	require.True(t, ok)
	assert.Equal(t, "Numero_Ligne", k)

	_, ok = findKey(item, "prix")
	assert.False(t, ok)
}
