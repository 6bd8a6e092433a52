package cellmapper

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
)

// ErrCellNotMapped — правка ячейки, к которой не привязано ни одно поле.
var ErrCellNotMapped = errors.New("ячейка не привязана к полю")

// Sheet — уже разобранный лист шаблона. Cells разрежен и может содержать
// адреса за пределами Rows×Cols: размеры — только подсказка.
type Sheet struct {
	Name  string            `json:"name"`
	Rows  int               `json:"rows"`
	Cols  int               `json:"cols"`
	Cells map[string]string `json:"cells"`
}

// GridCell — привязанная ячейка с разрешённым значением.
type GridCell struct {
	Ref       string
	FieldPath string
	Value     interface{}
	Display   string
	// Path — где значение лежит в данных; для ячеек массива — путь к списку.
	Path        []string
	IsArrayCell bool
	ArrayID     string
	Subfield    string
	// Key — фактический ключ подполя в элементе массива.
	Key      string
	RowIndex int
}

// Filled — у ячейки есть непустое значение.
func (c GridCell) Filled() bool { return !isBlank(c.Value) }

// Collision — ячейка, которую проекция массива перезаписала поверх скалярного поля.
type Collision struct {
	Ref        string
	FieldPath  string
	ArrayID    string
	Subfield   string
	ArrayOwner bool
}

// Grid — индекс привязанных ячеек одного листа.
type Grid struct {
	Sheet       Sheet
	Cells       map[string]GridCell
	Projections []Projection
	Collisions  []Collision

	scalarFields []string
}

// Projector собирает Grid из привязок и данных и проводит правки обратно в данные.
type Projector struct {
	resolver *Resolver
	locator  *Locator
	logger   *slog.Logger
}

// NewProjector создаёт проектор. logger может быть nil.
func NewProjector(resolver *Resolver, locator *Locator, logger *slog.Logger) *Projector {
	if resolver == nil {
		resolver = NewResolver(nil)
	}
	if locator == nil {
		locator = NewLocator(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Projector{resolver: resolver, locator: locator, logger: logger}
}

// Resolver возвращает резолвер проектора.
func (p *Projector) Resolver() *Resolver { return p.resolver }

// Locator возвращает поисковик массивов проектора.
func (p *Projector) Locator() *Locator { return p.locator }

// Project строит индекс ячеек листа: сначала скалярные поля, затем массивы.
// При совпадении адресов побеждает массив; совпадение фиксируется в Collisions.
func (p *Projector) Project(sheet Sheet, set *MappingSet, data interface{}) *Grid {
	g := &Grid{Sheet: sheet, Cells: map[string]GridCell{}}
	if set == nil {
		return g
	}

	scalar := set.Sheet(sheet.Name)
	g.scalarFields = scalar.Fields()
	for _, field := range g.scalarFields {
		res := p.resolver.Resolve(data, field)
		for _, raw := range scalar[field] {
			ref, ok := normalizeRef(raw)
			if !ok {
				p.logger.Debug("пропущена некорректная ячейка", "sheet", sheet.Name, "field", field, "ref", raw)
				continue
			}
			g.Cells[ref] = GridCell{
				Ref:       ref,
				FieldPath: field,
				Value:     res.Value,
				Display:   FormatValue(res.Value),
				Path:      res.Path,
				RowIndex:  -1,
			}
		}
	}

	for _, am := range set.ArraysOn(sheet.Name) {
		proj := p.locator.ProjectArray(data, am)
		if !proj.Found {
			p.logger.Debug("массив не найден в данных", "sheet", sheet.Name, "array", am.ArrayID)
		} else if proj.Located.Fuzzy {
			p.logger.Debug("массив найден по похожему ключу", "array", am.ArrayID, "key", proj.Located.Key)
		}
		g.Projections = append(g.Projections, proj)
		for _, row := range proj.Rows {
			for _, pc := range row.Cells {
				if prev, ok := g.Cells[pc.Ref]; ok {
					c := Collision{Ref: pc.Ref, FieldPath: prev.FieldPath, ArrayID: am.ArrayID, Subfield: pc.Subfield, ArrayOwner: prev.IsArrayCell}
					g.Collisions = append(g.Collisions, c)
					p.logger.Debug("ячейка перезаписана массивом", "sheet", sheet.Name, "ref", pc.Ref, "field", prev.FieldPath, "array", am.ArrayID)
				}
				g.Cells[pc.Ref] = GridCell{
					Ref:         pc.Ref,
					FieldPath:   am.ArrayID + "[" + strconv.Itoa(row.Index) + "]." + pc.Subfield,
					Value:       pc.Value,
					Display:     FormatValue(pc.Value),
					Path:        proj.Located.Path,
					IsArrayCell: true,
					ArrayID:     am.ArrayID,
					Subfield:    pc.Subfield,
					Key:         pc.Key,
					RowIndex:    row.Index,
				}
			}
		}
	}
	return g
}

// Cell возвращает привязанную ячейку.
func (g *Grid) Cell(ref string) (GridCell, bool) {
	if r, ok := normalizeRef(ref); ok {
		ref = r
	}
	c, ok := g.Cells[ref]
	return c, ok
}

// Display возвращает текст ячейки: значение поля для привязанных,
// исходный текст листа для остальных.
func (g *Grid) Display(ref string) (text string, mapped bool) {
	if c, ok := g.Cell(ref); ok {
		return c.Display, true
	}
	if r, ok := normalizeRef(ref); ok {
		ref = r
	}
	return g.Sheet.Cells[ref], false
}

// DisplayCell — клетка матрицы для отрисовки.
type DisplayCell struct {
	Ref         string
	Text        string
	Mapped      bool
	Filled      bool
	FieldPath   string
	IsArrayCell bool
}

// Extent — размеры матрицы: максимум из подсказок листа и реально встречающихся адресов.
func (g *Grid) Extent() (rows, cols int) {
	rows, cols = g.Sheet.Rows, g.Sheet.Cols
	grow := func(ref string) {
		col, row, ok := SplitRef(ref)
		if !ok {
			return
		}
		ci, _ := ColumnIndex(col)
		if row > rows {
			rows = row
		}
		if ci+1 > cols {
			cols = ci + 1
		}
	}
	for ref := range g.Sheet.Cells {
		grow(ref)
	}
	for ref := range g.Cells {
		grow(ref)
	}
	return rows, cols
}

// Rows строит матрицу для отрисовки (строки сверху вниз, колонки слева направо).
func (g *Grid) Rows() [][]DisplayCell {
	rows, cols := g.Extent()
	out := make([][]DisplayCell, rows)
	for r := 0; r < rows; r++ {
		line := make([]DisplayCell, cols)
		for c := 0; c < cols; c++ {
			ref := CellName(c, r+1)
			dc := DisplayCell{Ref: ref}
			if gc, ok := g.Cells[ref]; ok {
				dc.Text = gc.Display
				dc.Mapped = true
				dc.Filled = gc.Filled()
				dc.FieldPath = gc.FieldPath
				dc.IsArrayCell = gc.IsArrayCell
			} else {
				dc.Text = g.Sheet.Cells[ref]
			}
			line[c] = dc
		}
		out[r] = line
	}
	return out
}

// Completion — доля заполненных привязанных полей.
type Completion struct {
	Filled int
	Total  int
	Ratio  float64
}

// Completion считает заполненность по различным полям: каждое скалярное поле
// и каждая пара массив.подполе считаются один раз. Подполе массива заполнено,
// если значение есть хотя бы в одной строке. Поле, все ячейки которого
// перекрыты массивом, не учитывается.
func (g *Grid) Completion() Completion {
	filled := map[string]bool{}
	for _, c := range g.Cells {
		key := c.FieldPath
		if c.IsArrayCell {
			key = c.ArrayID + "." + c.Subfield
		}
		filled[key] = filled[key] || c.Filled()
	}
	for _, proj := range g.Projections {
		for sf := range proj.Mapping.ColumnMapping {
			key := proj.Mapping.ArrayID + "." + sf
			if _, ok := filled[key]; !ok {
				filled[key] = false
			}
		}
	}
	out := Completion{Total: len(filled)}
	for _, ok := range filled {
		if ok {
			out.Filled++
		}
	}
	if out.Total > 0 {
		out.Ratio = float64(out.Filled) / float64(out.Total)
	}
	return out
}

// Unfilled возвращает привязанные поля без значения, по алфавиту.
func (g *Grid) Unfilled() []string {
	seen := map[string]bool{}
	for _, c := range g.Cells {
		if c.IsArrayCell || c.Filled() {
			continue
		}
		seen[c.FieldPath] = true
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Edit записывает value в данные по привязке ячейки ref и возвращает новое дерево.
// Скалярная ячейка пишется туда, где значение было найдено (или по самому fieldPath,
// если не найдено); ячейка массива меняет свой элемент списка.
func (p *Projector) Edit(g *Grid, data interface{}, ref string, value interface{}) (interface{}, error) {
	c, ok := g.Cell(ref)
	if !ok {
		return data, fmt.Errorf("%s!%s: %w", g.Sheet.Name, ref, ErrCellNotMapped)
	}
	if !c.IsArrayCell {
		path := c.Path
		if len(path) == 0 {
			path = splitPath(c.FieldPath)
		}
		return SetIn(data, path, value), nil
	}
	path := make([]string, 0, len(c.Path)+2)
	path = append(path, c.Path...)
	path = append(path, strconv.Itoa(c.RowIndex), c.Key)
	return SetIn(data, path, value), nil
}
