package cellmapper

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidTransition — событие недопустимо в текущем состоянии конструктора.
	ErrInvalidTransition = errors.New("недопустимый переход")
	// ErrFieldMappedElsewhere — поле уже привязано на другом листе.
	ErrFieldMappedElsewhere = errors.New("поле уже привязано на другом листе")
	// ErrInvalidCellRef — адрес ячейки не разбирается.
	ErrInvalidCellRef = errors.New("некорректный адрес ячейки")
	// ErrUnknownSheet — лист отсутствует в шаблоне.
	ErrUnknownSheet = errors.New("лист не найден")
)

// TransitionError описывает отклонённое событие.
type TransitionError struct {
	Machine string
	State   fmt.Stringer
	Event   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: событие %s в состоянии %s: %v", e.Machine, e.Event, e.State, ErrInvalidTransition)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// -----------------------------
// Скалярный конструктор
// -----------------------------

// ScalarState — состояние скалярного конструктора.
type ScalarState int

const (
	// ScalarPickSheet — лист не выбран.
	ScalarPickSheet ScalarState = iota
	// ScalarIdle — лист выбран, поле нет.
	ScalarIdle
	// ScalarFieldSelected — поле выбрано, клики по ячейкам привязывают его.
	ScalarFieldSelected
)

func (s ScalarState) String() string {
	switch s {
	case ScalarPickSheet:
		return "PickSheet"
	case ScalarIdle:
		return "Idle"
	case ScalarFieldSelected:
		return "FieldSelected"
	default:
		return fmt.Sprintf("ScalarState(%d)", int(s))
	}
}

// ScalarBuilder — конечный автомат привязки полей к ячейкам.
// Выбор поля "липкий": после клика по ячейке поле остаётся выбранным,
// пока не выбрано другое поле, не снят выбор или не сменился лист.
// Изменения сразу попадают в MappingSet.
type ScalarBuilder struct {
	set    *MappingSet
	sheets map[string]bool

	state   ScalarState
	sheet   string
	field   string
	current ScalarMapping
}

// NewScalarBuilder создаёт конструктор поверх set. sheets — допустимые листы
// (пустой список — без проверки).
func NewScalarBuilder(set *MappingSet, sheets []string) *ScalarBuilder {
	return &ScalarBuilder{set: set, sheets: sheetSet(sheets)}
}

func sheetSet(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

func (b *ScalarBuilder) State() ScalarState { return b.state }
func (b *ScalarBuilder) Sheet() string      { return b.sheet }
func (b *ScalarBuilder) Field() string      { return b.field }

// Mapping возвращает привязки текущего листа (живые, не копию).
func (b *ScalarBuilder) Mapping() ScalarMapping { return b.current }

func (b *ScalarBuilder) reject(event string) error {
	return &TransitionError{Machine: "scalar", State: b.state, Event: event}
}

func (b *ScalarBuilder) load(sheet string) error {
	if b.sheets != nil && !b.sheets[sheet] {
		return fmt.Errorf("%q: %w", sheet, ErrUnknownSheet)
	}
	b.sheet = sheet
	b.field = ""
	b.current = b.set.Sheet(sheet)
	if b.current == nil {
		b.current = ScalarMapping{}
	}
	b.state = ScalarIdle
	return nil
}

func (b *ScalarBuilder) persist() {
	b.set.SetSheet(b.sheet, b.current)
}

// SelectSheet: PickSheet → Idle.
func (b *ScalarBuilder) SelectSheet(name string) error {
	if b.state != ScalarPickSheet {
		return b.reject("SelectSheet")
	}
	return b.load(name)
}

// SwitchSheet сохраняет привязки текущего листа и переходит к другому: Idle|FieldSelected → Idle.
func (b *ScalarBuilder) SwitchSheet(name string) error {
	if b.state == ScalarPickSheet {
		return b.reject("SwitchSheet")
	}
	if b.sheets != nil && !b.sheets[name] {
		return fmt.Errorf("%q: %w", name, ErrUnknownSheet)
	}
	b.persist()
	return b.load(name)
}

// SelectField: Idle|FieldSelected → FieldSelected.
func (b *ScalarBuilder) SelectField(field string) error {
	if b.state == ScalarPickSheet {
		return b.reject("SelectField")
	}
	field = strings.TrimSpace(field)
	if field == "" {
		return b.reject("SelectField")
	}
	if other, ok := b.set.SheetOfField(field); ok && other != b.sheet {
		return fmt.Errorf("%s (лист %s): %w", field, other, ErrFieldMappedElsewhere)
	}
	b.field = field
	b.state = ScalarFieldSelected
	return nil
}

// ClearSelection: FieldSelected → Idle.
func (b *ScalarBuilder) ClearSelection() error {
	if b.state != ScalarFieldSelected {
		return b.reject("ClearSelection")
	}
	b.field = ""
	b.state = ScalarIdle
	return nil
}

// ClickCell применяет правило переключения к выбранному полю: FieldSelected → FieldSelected.
func (b *ScalarBuilder) ClickCell(ref string) (CellRefs, error) {
	if b.state != ScalarFieldSelected {
		return nil, b.reject("ClickCell")
	}
	norm, ok := normalizeRef(ref)
	if !ok {
		return nil, fmt.Errorf("%q: %w", ref, ErrInvalidCellRef)
	}
	refs := b.current.Toggle(b.field, norm)
	b.persist()
	return refs, nil
}

// RemoveRef явно снимает ячейку с поля, не меняя состояния.
func (b *ScalarBuilder) RemoveRef(field, ref string) error {
	if b.state == ScalarPickSheet {
		return b.reject("RemoveRef")
	}
	if norm, ok := normalizeRef(ref); ok {
		ref = norm
	}
	b.current.RemoveRef(field, ref)
	b.persist()
	return nil
}

// Unmap снимает привязку поля целиком.
func (b *ScalarBuilder) Unmap(field string) error {
	if b.state == ScalarPickSheet {
		return b.reject("Unmap")
	}
	b.current.Remove(field)
	b.persist()
	return nil
}

// FinishSheet завершает лист и возвращает его привязки: Idle|FieldSelected → PickSheet.
func (b *ScalarBuilder) FinishSheet() (SheetMapping, error) {
	if b.state == ScalarPickSheet {
		return SheetMapping{}, b.reject("FinishSheet")
	}
	b.persist()
	out := SheetMapping{SheetName: b.sheet, Mapping: b.current.Clone()}
	b.sheet, b.field, b.current = "", "", nil
	b.state = ScalarPickSheet
	return out, nil
}

// -----------------------------
// Конструктор массивов
// -----------------------------

// ArrayState — состояние конструктора массивов.
type ArrayState int

const (
	// ArrayIdle — массив не выбран.
	ArrayIdle ArrayState = iota
	// ArrayFieldChosen — массив выбран, настраиваются лист, строка начала и условие остановки.
	ArrayFieldChosen
	// ArrayRowFieldSelected — выбрано подполе, клик по ячейке задаёт его колонку.
	ArrayRowFieldSelected
)

func (s ArrayState) String() string {
	switch s {
	case ArrayIdle:
		return "Idle"
	case ArrayFieldChosen:
		return "ArrayFieldChosen"
	case ArrayRowFieldSelected:
		return "RowFieldSelected"
	default:
		return fmt.Sprintf("ArrayState(%d)", int(s))
	}
}

// ArrayBuilder — конечный автомат привязки массива. Черновик попадает
// в MappingSet только на Commit.
type ArrayBuilder struct {
	set    *MappingSet
	sheets map[string]bool

	state    ArrayState
	draft    ArrayMapping
	subfield string
}

// NewArrayBuilder создаёт конструктор массивов поверх set.
func NewArrayBuilder(set *MappingSet, sheets []string) *ArrayBuilder {
	return &ArrayBuilder{set: set, sheets: sheetSet(sheets)}
}

func (b *ArrayBuilder) State() ArrayState   { return b.state }
func (b *ArrayBuilder) Subfield() string    { return b.subfield }
func (b *ArrayBuilder) Draft() ArrayMapping { return b.draft.Clone() }

func (b *ArrayBuilder) reject(event string) error {
	return &TransitionError{Machine: "array", State: b.state, Event: event}
}

// ChooseArray начинает (или продолжает) настройку массива: Idle → ArrayFieldChosen.
// Если массив с таким id уже привязан к листу, черновик стартует с его копии.
func (b *ArrayBuilder) ChooseArray(arrayID, sheet string) error {
	if b.state != ArrayIdle {
		return b.reject("ChooseArray")
	}
	arrayID = strings.TrimSpace(arrayID)
	if arrayID == "" {
		return b.reject("ChooseArray")
	}
	if b.sheets != nil && !b.sheets[sheet] {
		return fmt.Errorf("%q: %w", sheet, ErrUnknownSheet)
	}
	if am, ok := b.set.Array(arrayID, sheet); ok {
		b.draft = am.Clone()
	} else {
		b.draft = ArrayMapping{
			ArrayID:       arrayID,
			SheetName:     sheet,
			StartRow:      1,
			StopCondition: StopEmptyFirstCol,
			ColumnMapping: map[string]string{},
		}
	}
	b.subfield = ""
	b.state = ArrayFieldChosen
	return nil
}

// Configure задаёт строку начала и условие остановки. Значения не проверяются:
// ошибки настройки ловит проверка при сохранении.
func (b *ArrayBuilder) Configure(startRow int, stop StopCondition, maxRows *int) error {
	if b.state == ArrayIdle {
		return b.reject("Configure")
	}
	b.draft.StartRow = startRow
	b.draft.StopCondition = stop
	b.draft.MaxRows = nil
	if maxRows != nil {
		n := *maxRows
		b.draft.MaxRows = &n
	}
	return nil
}

// SelectSubfield: ArrayFieldChosen|RowFieldSelected → RowFieldSelected.
func (b *ArrayBuilder) SelectSubfield(name string) error {
	if b.state == ArrayIdle {
		return b.reject("SelectSubfield")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return b.reject("SelectSubfield")
	}
	b.subfield = name
	b.state = ArrayRowFieldSelected
	return nil
}

// DeselectSubfield: RowFieldSelected → ArrayFieldChosen.
func (b *ArrayBuilder) DeselectSubfield() error {
	if b.state != ArrayRowFieldSelected {
		return b.reject("DeselectSubfield")
	}
	b.subfield = ""
	b.state = ArrayFieldChosen
	return nil
}

// ClickCell назначает выбранному подполю колонку ячейки (номер строки отбрасывается).
// Повторный клик в ту же колонку снимает назначение, как у скалярных полей.
// Возвращает назначенную колонку ("" — если назначение снято).
func (b *ArrayBuilder) ClickCell(ref string) (string, error) {
	if b.state != ArrayRowFieldSelected {
		return "", b.reject("ClickCell")
	}
	col := strings.ToUpper(ColumnOfRef(ref))
	if _, ok := ColumnIndex(col); !ok {
		return "", fmt.Errorf("%q: %w", ref, ErrInvalidCellRef)
	}
	if b.draft.ColumnMapping == nil {
		b.draft.ColumnMapping = map[string]string{}
	}
	if b.draft.ColumnMapping[b.subfield] == col {
		delete(b.draft.ColumnMapping, b.subfield)
		return "", nil
	}
	b.draft.ColumnMapping[b.subfield] = col
	return col, nil
}

// RemoveColumn явно снимает колонку подполя.
func (b *ArrayBuilder) RemoveColumn(subfield string) error {
	if b.state == ArrayIdle {
		return b.reject("RemoveColumn")
	}
	delete(b.draft.ColumnMapping, subfield)
	return nil
}

// Commit кладёт черновик в MappingSet: ArrayFieldChosen|RowFieldSelected → Idle.
func (b *ArrayBuilder) Commit() (ArrayMapping, error) {
	if b.state == ArrayIdle {
		return ArrayMapping{}, b.reject("Commit")
	}
	out := b.draft.Clone()
	b.set.SetArray(out)
	b.reset()
	return out.Clone(), nil
}

// Cancel отбрасывает черновик.
func (b *ArrayBuilder) Cancel() {
	b.reset()
}

// Remove удаляет уже сохранённый массив: допустимо только в Idle.
func (b *ArrayBuilder) Remove(arrayID, sheet string) (bool, error) {
	if b.state != ArrayIdle {
		return false, b.reject("Remove")
	}
	return b.set.RemoveArray(arrayID, sheet), nil
}

func (b *ArrayBuilder) reset() {
	b.draft = ArrayMapping{}
	b.subfield = ""
	b.state = ArrayIdle
}
