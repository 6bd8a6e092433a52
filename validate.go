package cellmapper

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrEmptyMappingSet — сохранять нечего: нет ни полей, ни массивов.
	ErrEmptyMappingSet = errors.New("набор привязок пуст: привяжите хотя бы одно поле или массив")
	// ErrInvalidMapping — набор привязок содержит ошибки настройки.
	ErrInvalidMapping = errors.New("некорректная настройка привязок")
)

// ConfigError — одна ошибка настройки, понятная пользователю.
type ConfigError struct {
	Scope   string // "лист Tarifs", "массив lignes (лист Tarifs)"
	Field   string // поле или параметр, к которому относится ошибка
	Message string
}

func (e ConfigError) Error() string {
	var b strings.Builder
	if e.Scope != "" {
		b.WriteString(e.Scope)
		b.WriteString(": ")
	}
	if e.Field != "" {
		b.WriteString(e.Field)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// ValidationErrors — все ошибки настройки, найденные при сохранении.
// errors.Is(err, ErrInvalidMapping) для неё истинно.
type ValidationErrors []ConfigError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%v:\n  - %s", ErrInvalidMapping, strings.Join(msgs, "\n  - "))
}

func (v ValidationErrors) Is(target error) bool { return target == ErrInvalidMapping }

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func mappingValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("column", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			if s != strings.ToUpper(s) {
				return false
			}
			_, ok := ColumnIndex(s)
			return ok
		})
		v.RegisterStructValidation(arrayMappingRules, ArrayMapping{})
		validate = v
	})
	return validate
}

// arrayMappingRules — перекрёстное правило: max_rows требует maxRows.
func arrayMappingRules(sl validator.StructLevel) {
	am := sl.Current().Interface().(ArrayMapping)
	if am.StopCondition == StopMaxRows && am.MaxRows == nil {
		sl.ReportError(am.MaxRows, "maxRows", "MaxRows", "required_for_max_rows", "")
	}
}

func arrayScope(am ArrayMapping) string {
	return fmt.Sprintf("массив %s (лист %s)", am.ArrayID, am.SheetName)
}

func validateArray(am ArrayMapping) ValidationErrors {
	err := mappingValidator().Struct(am)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ValidationErrors{{Scope: arrayScope(am), Message: err.Error()}}
	}
	var out ValidationErrors
	for _, fe := range verrs {
		out = append(out, ConfigError{Scope: arrayScope(am), Field: jsonFieldName(fe), Message: arrayMessage(fe)})
	}
	return out
}

func jsonFieldName(fe validator.FieldError) string {
	switch fe.StructField() {
	case "ArrayID":
		return "arrayId"
	case "SheetName":
		return "sheetName"
	case "StartRow":
		return "startRow"
	case "StopCondition":
		return "stopCondition"
	case "MaxRows":
		return "maxRows"
	}
	if strings.HasPrefix(fe.StructField(), "ColumnMapping") {
		return "columnMapping" + strings.TrimPrefix(fe.StructField(), "ColumnMapping")
	}
	return fe.Field()
}

func arrayMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required_for_max_rows":
		return "для условия max_rows нужно указать maxRows"
	case "oneof":
		return fmt.Sprintf("условие остановки %q не поддерживается (empty_first_col или max_rows)", fe.Value())
	case "column":
		return fmt.Sprintf("некорректная колонка %q", fe.Value())
	case "min":
		switch fe.StructField() {
		case "StartRow":
			return "строка начала должна быть не меньше 1"
		case "MaxRows":
			return "maxRows должно быть не меньше 1"
		case "ColumnMapping":
			return "не привязано ни одной колонки"
		}
	case "required":
		if strings.HasPrefix(fe.StructField(), "ColumnMapping") {
			return "пустое имя подполя"
		}
		return "обязательное значение"
	}
	return fmt.Sprintf("не прошло проверку %s", fe.Tag())
}

// ValidateMappingSet проверяет набор привязок на границе сохранения.
// sheets — имена листов шаблона (nil — без проверки имён).
// Возвращает ErrEmptyMappingSet, ValidationErrors или nil.
func ValidateMappingSet(set *MappingSet, sheets []string) error {
	if set == nil || set.IsEmpty() {
		return ErrEmptyMappingSet
	}
	known := sheetSet(sheets)
	var errs ValidationErrors

	seenSheet := map[string]bool{}
	fieldSheets := map[string][]string{}
	for _, sm := range set.SheetMappings {
		scope := "лист " + sm.SheetName
		if err := mappingValidator().Struct(sm); err != nil {
			errs = append(errs, ConfigError{Scope: "набор привязок", Field: "sheetName", Message: "не задан лист"})
			continue
		}
		if seenSheet[sm.SheetName] {
			errs = append(errs, ConfigError{Scope: scope, Message: "лист встречается в наборе несколько раз"})
		}
		seenSheet[sm.SheetName] = true
		if known != nil && !known[sm.SheetName] {
			errs = append(errs, ConfigError{Scope: scope, Message: "листа нет в шаблоне"})
		}
		for _, field := range sm.Mapping.Fields() {
			fieldSheets[field] = append(fieldSheets[field], sm.SheetName)
			refs := sm.Mapping[field]
			if len(refs) == 0 {
				errs = append(errs, ConfigError{Scope: scope, Field: field, Message: "поле не привязано ни к одной ячейке"})
			}
			for _, ref := range refs {
				if _, ok := normalizeRef(ref); !ok {
					errs = append(errs, ConfigError{Scope: scope, Field: field, Message: fmt.Sprintf("некорректный адрес ячейки %q", ref)})
				}
			}
		}
	}

	fields := make([]string, 0, len(fieldSheets))
	for f := range fieldSheets {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		if on := fieldSheets[f]; len(on) > 1 {
			errs = append(errs, ConfigError{Scope: "набор привязок", Field: f, Message: "поле привязано на нескольких листах: " + strings.Join(on, ", ")})
		}
	}

	for _, am := range set.ArrayMappings {
		if verrs := validateArray(am); len(verrs) > 0 {
			errs = append(errs, verrs...)
			continue
		}
		if known != nil && !known[am.SheetName] {
			errs = append(errs, ConfigError{Scope: arrayScope(am), Field: "sheetName", Message: "листа нет в шаблоне"})
		}
		errs = append(errs, arrayCollisions(am, set.Sheet(am.SheetName))...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// arrayOverlap — скалярная ячейка в колонке массива на строке startRow или ниже.
type arrayOverlap struct {
	Field    string
	Subfield string
	Col      string
	Ref      string
	Row      int
}

// arrayOverlaps ищет скалярные ячейки в колонках массива ниже его начала.
// Для max_rows учитываются только строки в пределах лимита.
func arrayOverlaps(am ArrayMapping, scalar ScalarMapping) []arrayOverlap {
	cols := map[string]string{}
	for sf, col := range am.ColumnMapping {
		cols[col] = sf
	}
	last := 0
	if limit := am.RowLimit(); limit > 0 {
		last = am.StartRow + limit - 1
	}
	var out []arrayOverlap
	for _, field := range scalar.Fields() {
		for _, raw := range scalar[field] {
			col, row, ok := SplitRef(raw)
			if !ok {
				continue
			}
			sf, hit := cols[col]
			if !hit || row < am.StartRow || (last > 0 && row > last) {
				continue
			}
			out = append(out, arrayOverlap{Field: field, Subfield: sf, Col: col, Ref: raw, Row: row})
		}
	}
	return out
}

// arrayCollisions — перекрытия, которые точно случатся при любых данных:
// весь диапазон max_rows или строка начала массива без верхней границы.
// Ячейки ниже строки начала у empty_first_col перекрываются только при длинном
// списке и попадают в предупреждения координатора.
func arrayCollisions(am ArrayMapping, scalar ScalarMapping) ValidationErrors {
	bounded := am.RowLimit() > 0
	var out ValidationErrors
	for _, o := range arrayOverlaps(am, scalar) {
		if !bounded && o.Row != am.StartRow {
			continue
		}
		out = append(out, ConfigError{
			Scope:   arrayScope(am),
			Field:   o.Subfield,
			Message: fmt.Sprintf("колонка %s перекрывает ячейку %s поля %s", o.Col, o.Ref, o.Field),
		})
	}
	return out
}
