package cellmapper

import (
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// shallowDepth ограничивает поиск ключами объектов, лежащих прямо под корнем.
	shallowDepth = 2
	// DefaultSearchDepth — предел вложенности для поиска массивов.
	DefaultSearchDepth = 32
	// minContainsLen — минимальная длина более короткой формы для совпадения по вхождению.
	minContainsLen = 3
)

// treeMatch — найденный узел дерева.
type treeMatch struct {
	key   string
	value interface{}
	path  []string
	depth int
}

// matchFunc решает, подходит ли запись объекта key: value на глубине depth.
// Ключи корневого объекта имеют глубину 0.
type matchFunc func(key string, value interface{}, depth int) bool

// searchTree — обход в глубину (pre-order) с ограничением глубины.
// Ключи объектов обходятся в отсортированном порядке, чтобы результат
// не зависел от порядка итерации map. Элементы списков обходятся,
// но сами индексы предикату не предлагаются.
func searchTree(root interface{}, maxDepth int, pred matchFunc) (treeMatch, bool) {
	if maxDepth <= 0 {
		maxDepth = DefaultSearchDepth
	}
	var walk func(node interface{}, path []string, depth int) (treeMatch, bool)
	walk = func(node interface{}, path []string, depth int) (treeMatch, bool) {
		if depth >= maxDepth {
			return treeMatch{}, false
		}
		switch n := node.(type) {
		case map[string]interface{}:
			for _, k := range sortedKeys(n) {
				v := n[k]
				p := appendPath(path, k)
				if pred(k, v, depth) {
					return treeMatch{key: k, value: v, path: p, depth: depth}, true
				}
				if m, ok := walk(v, p, depth+1); ok {
					return m, true
				}
			}
		case []interface{}:
			for i, v := range n {
				if m, ok := walk(v, appendPath(path, strconv.Itoa(i)), depth+1); ok {
					return m, true
				}
			}
		}
		return treeMatch{}, false
	}
	return walk(root, nil, 0)
}

func appendPath(path []string, seg string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, seg)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// exactKey — предикат для поверхностного поиска: ключ внутри объекта верхнего уровня.
// Записи со значением nil пропускаются, поиск идёт дальше.
func exactKey(field string) matchFunc {
	return func(key string, value interface{}, depth int) bool {
		return depth == 1 && key == field && value != nil
	}
}

// keyMatcher сравнивает имена, которые экстрактор мог записать по-разному:
// регистр, "_", "-", пробелы и одно окончание множественного числа не учитываются.
// Совпадение — равенство нормализованных форм или вхождение одной в другую.
type keyMatcher struct {
	want string
	norm string
}

func newKeyMatcher(name string) keyMatcher {
	return keyMatcher{want: name, norm: normalizeKey(name)}
}

func (km keyMatcher) exact(key string) bool { return key == km.want }

func (km keyMatcher) fuzzy(key string) bool {
	if km.norm == "" {
		return false
	}
	nk := normalizeKey(key)
	if nk == "" {
		return false
	}
	if nk == km.norm {
		return true
	}
	short, long := nk, km.norm
	if utf8.RuneCountInString(short) > utf8.RuneCountInString(long) {
		short, long = long, short
	}
	if utf8.RuneCountInString(short) < minContainsLen {
		return false
	}
	return strings.Contains(long, short)
}

func normalizeKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case '_', '-', ' ', '.':
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()
	if len(out) > 1 && strings.HasSuffix(out, "s") {
		out = out[:len(out)-1]
	}
	return out
}

// listValue — предикат "значение является списком".
func listValue(v interface{}) bool {
	_, ok := v.([]interface{})
	return ok
}

// findKey ищет в объекте item ключ, соответствующий name: сначала точно, потом нестрого.
func findKey(item map[string]interface{}, name string) (string, bool) {
	if _, ok := item[name]; ok {
		return name, true
	}
	km := newKeyMatcher(name)
	for _, k := range sortedKeys(item) {
		if km.fuzzy(k) {
			return k, true
		}
	}
	return "", false
}
