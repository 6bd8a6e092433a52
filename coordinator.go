package cellmapper

import (
	"fmt"
	"sort"
	"strings"
)

// Coordinator следит за привязками по всем листам: какие поля ещё не привязаны,
// какие можно выбирать на листе и можно ли сохранять набор.
type Coordinator struct {
	fields []string
	sheets []string
	set    *MappingSet
}

// NewCoordinator создаёт координатор. fields — настроенный список полей шаблона,
// sheets — листы шаблона.
func NewCoordinator(set *MappingSet, fields, sheets []string) *Coordinator {
	return &Coordinator{fields: fields, sheets: sheets, set: set}
}

// Fields возвращает настроенный список полей.
func (c *Coordinator) Fields() []string { return c.fields }

// RemainingFields — настроенные поля, не привязанные ни на одном листе, в исходном порядке.
func (c *Coordinator) RemainingFields() []string {
	mapped := c.set.MappedFields()
	var out []string
	for _, f := range c.fields {
		if _, ok := mapped[f]; !ok {
			out = append(out, f)
		}
	}
	return out
}

// SelectableFields — поля, которые можно выбрать на листе sheet:
// все, кроме привязанных на других листах.
func (c *Coordinator) SelectableFields(sheet string) []string {
	var out []string
	for _, f := range c.fields {
		if on, ok := c.set.SheetOfField(f); ok && on != sheet {
			continue
		}
		out = append(out, f)
	}
	return out
}

// CanSave — есть хотя бы одна скалярная привязка или один массив.
// Полное покрытие полей не требуется.
func (c *Coordinator) CanSave() bool {
	return !c.set.IsEmpty()
}

// Validate — проверка на границе сохранения.
func (c *Coordinator) Validate() error {
	return ValidateMappingSet(c.set, c.sheets)
}

// Warnings — неблокирующие замечания: непривязанные поля, ячейки,
// на которые претендуют несколько полей одного листа, и скалярные ячейки
// под массивом без верхней границы строк.
func (c *Coordinator) Warnings() []string {
	var out []string
	if rest := c.RemainingFields(); len(rest) > 0 {
		out = append(out, fmt.Sprintf("не привязано полей: %d из %d (%s)", len(rest), len(c.fields), strings.Join(rest, ", ")))
	}
	for _, sm := range c.set.SheetMappings {
		owners := map[string][]string{}
		for _, f := range sm.Mapping.Fields() {
			for _, ref := range sm.Mapping[f] {
				if norm, ok := normalizeRef(ref); ok {
					owners[norm] = append(owners[norm], f)
				}
			}
		}
		refs := make([]string, 0, len(owners))
		for ref, fs := range owners {
			if len(fs) > 1 {
				refs = append(refs, ref)
			}
		}
		sort.Strings(refs)
		for _, ref := range refs {
			out = append(out, fmt.Sprintf("лист %s, ячейка %s: несколько полей (%s)", sm.SheetName, ref, strings.Join(owners[ref], ", ")))
		}
	}
	for _, am := range c.set.ArrayMappings {
		if am.RowLimit() > 0 {
			continue
		}
		for _, o := range arrayOverlaps(am, c.set.Sheet(am.SheetName)) {
			if o.Row == am.StartRow {
				continue
			}
			out = append(out, fmt.Sprintf("лист %s, ячейка %s: поле %s окажется под массивом %s, если в нём больше %d строк",
				am.SheetName, o.Ref, o.Field, am.ArrayID, o.Row-am.StartRow))
		}
	}
	return out
}
