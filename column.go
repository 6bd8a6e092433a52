package cellmapper

import (
	"strconv"
	"strings"
)

// ColumnName переводит индекс колонки (с нуля) в буквенное имя Excel:
// 0 → A, 25 → Z, 26 → AA, 701 → ZZ. Биективная система по основанию 26,
// нулевой цифры нет. Для отрицательного индекса возвращает пустую строку.
func ColumnName(i int) string {
	if i < 0 {
		return ""
	}
	var buf [16]byte
	n := len(buf)
	for i >= 0 {
		n--
		buf[n] = byte('A' + i%26)
		i = i/26 - 1
	}
	return string(buf[n:])
}

// ColumnIndex — обратное к ColumnName. Регистр не важен.
func ColumnIndex(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	idx := 0
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c < 'A' || c > 'Z' {
			return 0, false
		}
		idx = idx*26 + int(c-'A') + 1
		if idx > 1<<40 {
			return 0, false
		}
	}
	return idx - 1, true
}

// ColumnOfRef отрезает номер строки от адреса ячейки: "AB12" → "AB".
func ColumnOfRef(ref string) string {
	return strings.TrimRight(strings.TrimSpace(ref), "0123456789")
}

// SplitRef разбирает адрес ячейки на колонку и номер строки (с единицы).
// ok=false для всего, что нельзя было бы построить через ColumnName.
func SplitRef(ref string) (col string, row int, ok bool) {
	ref = strings.TrimSpace(ref)
	col = ColumnOfRef(ref)
	if col == "" || col == ref {
		return "", 0, false
	}
	if _, valid := ColumnIndex(col); !valid {
		return "", 0, false
	}
	digits := ref[len(col):]
	if digits[0] == '0' {
		return "", 0, false
	}
	row, err := strconv.Atoi(digits)
	if err != nil || row < 1 {
		return "", 0, false
	}
	return strings.ToUpper(col), row, true
}

// CellName собирает адрес из индекса колонки (с нуля) и строки (с единицы).
func CellName(colIdx, row int) string {
	return ColumnName(colIdx) + strconv.Itoa(row)
}

// normalizeRef приводит адрес к каноническому виду ("b5" → "B5").
func normalizeRef(ref string) (string, bool) {
	col, row, ok := SplitRef(ref)
	if !ok {
		return "", false
	}
	return col + strconv.Itoa(row), true
}
