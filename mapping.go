package cellmapper

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// StopCondition — правило, ограничивающее число заполняемых строк массива.
type StopCondition string

const (
	StopEmptyFirstCol StopCondition = "empty_first_col"
	StopMaxRows       StopCondition = "max_rows"
)

// SheetMapping — скалярные привязки одного листа.
type SheetMapping struct {
	SheetName string        `json:"sheetName" validate:"required"`
	Mapping   ScalarMapping `json:"mapping"`
}

// ArrayMapping — привязка повторяющейся структуры к вертикальному диапазону строк:
// элемент списка i пишется в строку StartRow+i, подполя — в свои колонки.
type ArrayMapping struct {
	ArrayID       string            `json:"arrayId" validate:"required"`
	SheetName     string            `json:"sheetName" validate:"required"`
	StartRow      int               `json:"startRow" validate:"min=1"`
	StopCondition StopCondition     `json:"stopCondition" validate:"required,oneof=empty_first_col max_rows"`
	MaxRows       *int              `json:"maxRows,omitempty" validate:"omitempty,min=1"`
	ColumnMapping map[string]string `json:"columnMapping" validate:"min=1,dive,keys,required,endkeys,column"`
}

// RowLimit возвращает предел строк для max_rows (0 — без предела).
func (am ArrayMapping) RowLimit() int {
	if am.StopCondition == StopMaxRows && am.MaxRows != nil && *am.MaxRows > 0 {
		return *am.MaxRows
	}
	return 0
}

// Subfields возвращает подполя, упорядоченные по колонкам (слева направо), затем по имени.
func (am ArrayMapping) Subfields() []string {
	out := make([]string, 0, len(am.ColumnMapping))
	for k := range am.ColumnMapping {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		ci, oki := ColumnIndex(am.ColumnMapping[out[i]])
		cj, okj := ColumnIndex(am.ColumnMapping[out[j]])
		if oki != okj {
			return oki
		}
		if ci != cj {
			return ci < cj
		}
		return out[i] < out[j]
	})
	return out
}

// Clone возвращает независимую копию.
func (am ArrayMapping) Clone() ArrayMapping {
	out := am
	if am.MaxRows != nil {
		n := *am.MaxRows
		out.MaxRows = &n
	}
	out.ColumnMapping = make(map[string]string, len(am.ColumnMapping))
	for k, v := range am.ColumnMapping {
		out.ColumnMapping[k] = v
	}
	return out
}

// MappingSet — полный набор привязок шаблона: скалярные по листам и массивы.
// Именно в этой форме он сохраняется и читается генератором документов.
type MappingSet struct {
	SheetMappings []SheetMapping `json:"sheetMappings"`
	ArrayMappings []ArrayMapping `json:"arrayMappings"`
}

// IsEmpty — нет ни одной скалярной привязки и ни одного массива.
func (s *MappingSet) IsEmpty() bool {
	for _, sm := range s.SheetMappings {
		if len(sm.Mapping) > 0 {
			return false
		}
	}
	return len(s.ArrayMappings) == 0
}

// Sheet возвращает скалярные привязки листа (nil, если их нет).
func (s *MappingSet) Sheet(name string) ScalarMapping {
	for _, sm := range s.SheetMappings {
		if sm.SheetName == name {
			return sm.Mapping
		}
	}
	return nil
}

// SetSheet заменяет скалярные привязки листа. Пустая привязка убирает лист из набора.
func (s *MappingSet) SetSheet(name string, m ScalarMapping) {
	for i, sm := range s.SheetMappings {
		if sm.SheetName != name {
			continue
		}
		if len(m) == 0 {
			s.SheetMappings = append(s.SheetMappings[:i], s.SheetMappings[i+1:]...)
			return
		}
		s.SheetMappings[i].Mapping = m
		return
	}
	if len(m) > 0 {
		s.SheetMappings = append(s.SheetMappings, SheetMapping{SheetName: name, Mapping: m})
	}
}

// SheetOfField возвращает лист, на котором привязано поле.
func (s *MappingSet) SheetOfField(field string) (string, bool) {
	for _, sm := range s.SheetMappings {
		if _, ok := sm.Mapping[field]; ok {
			return sm.SheetName, true
		}
	}
	return "", false
}

// MappedFields — объединение привязанных полей по всем листам.
func (s *MappingSet) MappedFields() map[string]struct{} {
	out := map[string]struct{}{}
	for _, sm := range s.SheetMappings {
		for f := range sm.Mapping {
			out[f] = struct{}{}
		}
	}
	return out
}

// ArraysOn возвращает массивы, привязанные к листу, в порядке добавления.
func (s *MappingSet) ArraysOn(sheet string) []ArrayMapping {
	var out []ArrayMapping
	for _, am := range s.ArrayMappings {
		if am.SheetName == sheet {
			out = append(out, am)
		}
	}
	return out
}

// Array ищет массив по идентификатору и листу.
func (s *MappingSet) Array(arrayID, sheet string) (ArrayMapping, bool) {
	for _, am := range s.ArrayMappings {
		if am.ArrayID == arrayID && am.SheetName == sheet {
			return am, true
		}
	}
	return ArrayMapping{}, false
}

// SetArray добавляет массив или заменяет существующий с тем же ArrayID и листом.
func (s *MappingSet) SetArray(am ArrayMapping) {
	for i, cur := range s.ArrayMappings {
		if cur.ArrayID == am.ArrayID && cur.SheetName == am.SheetName {
			s.ArrayMappings[i] = am
			return
		}
	}
	s.ArrayMappings = append(s.ArrayMappings, am)
}

// RemoveArray удаляет массив. Возвращает false, если его не было.
func (s *MappingSet) RemoveArray(arrayID, sheet string) bool {
	for i, cur := range s.ArrayMappings {
		if cur.ArrayID == arrayID && cur.SheetName == sheet {
			s.ArrayMappings = append(s.ArrayMappings[:i], s.ArrayMappings[i+1:]...)
			return true
		}
	}
	return false
}

// Clone возвращает глубокую копию набора.
func (s *MappingSet) Clone() MappingSet {
	out := MappingSet{
		SheetMappings: make([]SheetMapping, 0, len(s.SheetMappings)),
		ArrayMappings: make([]ArrayMapping, 0, len(s.ArrayMappings)),
	}
	for _, sm := range s.SheetMappings {
		out.SheetMappings = append(out.SheetMappings, SheetMapping{SheetName: sm.SheetName, Mapping: sm.Mapping.Clone()})
	}
	for _, am := range s.ArrayMappings {
		out.ArrayMappings = append(out.ArrayMappings, am.Clone())
	}
	return out
}

// ParseMappingSet разбирает сохранённый набор привязок.
func ParseMappingSet(b []byte) (MappingSet, error) {
	var s MappingSet
	if err := json.Unmarshal(b, &s); err != nil {
		return MappingSet{}, fmt.Errorf("разбор набора привязок: %w", err)
	}
	return s, nil
}

// LoadMappingSet читает набор привязок из JSON-файла.
func LoadMappingSet(path string) (MappingSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return MappingSet{}, err
	}
	return ParseMappingSet(b)
}
