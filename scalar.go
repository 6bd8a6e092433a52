package cellmapper

import (
	"encoding/json"
	"fmt"
	"sort"
)

// CellRefs — одна или несколько ячеек, в которые пишется одно и то же значение.
// В JSON одна ссылка пишется строкой ("A1"), несколько — массивом (["A1","B1"]).
type CellRefs []string

func (c CellRefs) MarshalJSON() ([]byte, error) {
	if len(c) == 1 {
		return json.Marshal(c[0])
	}
	return json.Marshal([]string(c))
}

func (c *CellRefs) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*c = CellRefs{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("ожидалась ячейка или список ячеек: %w", err)
	}
	*c = CellRefs(many)
	return nil
}

// Contains сообщает, есть ли ref среди ссылок.
func (c CellRefs) Contains(ref string) bool {
	return c.indexOf(ref) >= 0
}

func (c CellRefs) indexOf(ref string) int {
	for i, r := range c {
		if r == ref {
			return i
		}
	}
	return -1
}

// ScalarMapping — привязка полей к ячейкам одного листа: fieldPath → ячейки.
type ScalarMapping map[string]CellRefs

// Toggle применяет клик по ячейке ref к полю field:
//   - поле не привязано → привязка к одной ячейке;
//   - клик по другой ячейке → ячейка добавляется в конец списка;
//   - клик по уже привязанной ячейке → она снимается; если ячеек не осталось,
//     привязка удаляется целиком.
//
// Возвращает итоговые ссылки поля (nil, если привязки больше нет).
func (m ScalarMapping) Toggle(field, ref string) CellRefs {
	refs := m[field]
	if i := refs.indexOf(ref); i >= 0 {
		next := make(CellRefs, 0, len(refs)-1)
		next = append(next, refs[:i]...)
		next = append(next, refs[i+1:]...)
		if len(next) == 0 {
			delete(m, field)
			return nil
		}
		m[field] = next
		return next
	}
	next := make(CellRefs, 0, len(refs)+1)
	next = append(next, refs...)
	next = append(next, ref)
	m[field] = next
	return next
}

// RemoveRef снимает ячейку ref с поля, не добавляя её, если её там нет.
func (m ScalarMapping) RemoveRef(field, ref string) bool {
	if !m[field].Contains(ref) {
		return false
	}
	m.Toggle(field, ref)
	return true
}

// Remove удаляет привязку поля целиком.
func (m ScalarMapping) Remove(field string) {
	delete(m, field)
}

// Refs возвращает ячейки поля.
func (m ScalarMapping) Refs(field string) CellRefs {
	return m[field]
}

// Fields возвращает привязанные поля в алфавитном порядке.
func (m ScalarMapping) Fields() []string {
	out := make([]string, 0, len(m))
	for f := range m {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// FieldAt возвращает поле, к которому привязана ячейка ref.
func (m ScalarMapping) FieldAt(ref string) (string, bool) {
	for _, f := range m.Fields() {
		if m[f].Contains(ref) {
			return f, true
		}
	}
	return "", false
}

// Clone возвращает независимую копию.
func (m ScalarMapping) Clone() ScalarMapping {
	out := make(ScalarMapping, len(m))
	for f, refs := range m {
		out[f] = append(CellRefs(nil), refs...)
	}
	return out
}
