package cellmapper

// Located — найденный в данных список для массива.
type Located struct {
	Key   string
	Path  []string
	Items []interface{}
	Fuzzy bool
}

// Locator находит список для arrayId где угодно в дереве данных.
// Экстрактор называет повторяющиеся структуры как придётся, поэтому
// сначала ищется точный ключ на любой глубине, и только потом — нестрогий.
type Locator struct {
	MaxDepth int
}

// NewLocator создаёт поисковик с пределом глубины maxDepth (0 — DefaultSearchDepth).
func NewLocator(maxDepth int) *Locator {
	return &Locator{MaxDepth: maxDepth}
}

// Locate возвращает первый подходящий список в порядке обхода в глубину.
func (l *Locator) Locate(data interface{}, arrayID string) (Located, bool) {
	if data == nil || arrayID == "" {
		return Located{}, false
	}
	km := newKeyMatcher(arrayID)
	exact := func(key string, v interface{}, _ int) bool { return listValue(v) && km.exact(key) }
	if m, ok := searchTree(data, l.MaxDepth, exact); ok {
		return Located{Key: m.key, Path: m.path, Items: m.value.([]interface{})}, true
	}
	fuzzy := func(key string, v interface{}, _ int) bool { return listValue(v) && km.fuzzy(key) }
	if m, ok := searchTree(data, l.MaxDepth, fuzzy); ok {
		return Located{Key: m.key, Path: m.path, Items: m.value.([]interface{}), Fuzzy: true}, true
	}
	return Located{}, false
}

// ProjectedCell — значение подполя элемента массива в конкретной ячейке.
type ProjectedCell struct {
	Ref      string
	Subfield string
	// Key — ключ, под которым значение реально лежит в элементе (может отличаться от Subfield).
	Key   string
	Value interface{}
}

// ProjectedRow — одна строка проекции массива.
type ProjectedRow struct {
	Index int
	Row   int
	Cells []ProjectedCell
}

// Projection — результат проекции массива на лист.
type Projection struct {
	Mapping ArrayMapping
	Located Located
	Found   bool
	Rows    []ProjectedRow
}

// ProjectArray проецирует элементы списка на строки startRow+i.
// Для каждого подполя ячейка выдаётся всегда, даже пустая.
// Пустой или ненайденный список даёт ноль строк. max_rows ограничивает число строк.
// Колонки, которые нельзя разобрать, пропускаются.
func (l *Locator) ProjectArray(data interface{}, am ArrayMapping) Projection {
	p := Projection{Mapping: am}
	loc, ok := l.Locate(data, am.ArrayID)
	if !ok {
		return p
	}
	p.Located, p.Found = loc, true

	items := loc.Items
	if limit := am.RowLimit(); limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	subfields := am.Subfields()
	for i, item := range items {
		row := am.StartRow + i
		pr := ProjectedRow{Index: i, Row: row}
		obj, _ := item.(map[string]interface{})
		for _, sf := range subfields {
			colIdx, ok := ColumnIndex(am.ColumnMapping[sf])
			if !ok {
				continue
			}
			cell := ProjectedCell{Ref: CellName(colIdx, row), Subfield: sf, Key: sf}
			if obj != nil {
				if k, ok := findKey(obj, sf); ok {
					cell.Key = k
					cell.Value = obj[k]
				}
			}
			pr.Cells = append(pr.Cells, cell)
		}
		p.Rows = append(p.Rows, pr)
	}
	return p
}

// VisibleRowCount — число строк для отображения счётчика.
// Для max_rows это уже ограниченное число строк; для empty_first_col —
// строки до первой, у которой пуста самая левая привязанная колонка.
func VisibleRowCount(p Projection) int {
	if p.Mapping.StopCondition != StopEmptyFirstCol {
		return len(p.Rows)
	}
	n := 0
	for _, r := range p.Rows {
		if len(r.Cells) == 0 || isBlank(r.Cells[0].Value) {
			break
		}
		n++
	}
	return n
}
