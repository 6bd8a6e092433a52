package cellmapper

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// SheetLoader читает листы шаблона xlsx.
type SheetLoader struct {
	logger *slog.Logger
}

// NewSheetLoader создаёт загрузчик. logger может быть nil — тогда slog.Default().
func NewSheetLoader(logger *slog.Logger) *SheetLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &SheetLoader{logger: logger}
}

// LoadSheets читает книгу xlsx загрузчиком с логгером по умолчанию.
func LoadSheets(path string) ([]Sheet, error) {
	return NewSheetLoader(nil).Load(path)
}

// Load читает книгу xlsx и возвращает разреженное содержимое всех листов.
func (l *SheetLoader) Load(path string) ([]Sheet, error) {
	l.logger.Info("📊 Загрузка шаблона", "path", path)
	startTime := time.Now()

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("открытие шаблона %s: %w", path, err)
	}
	defer f.Close()

	sheets, err := l.FromFile(f)
	if err != nil {
		return nil, err
	}
	l.logger.Info("✅ Шаблон загружен", "sheets", len(sheets), "duration", time.Since(startTime))
	return sheets, nil
}

// FromFile превращает открытую книгу в листы. Пустые ячейки пропускаются;
// Rows/Cols берутся из размеров листа и расширяются по фактическим данным.
func (l *SheetLoader) FromFile(f *excelize.File) ([]Sheet, error) {
	var out []Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("чтение листа %s: %w", name, err)
		}
		sh := Sheet{Name: name, Cells: map[string]string{}}
		sh.Rows, sh.Cols = l.sheetDimension(f, name)
		for rIdx, row := range rows {
			for cIdx, v := range row {
				if strings.TrimSpace(v) == "" {
					continue
				}
				sh.Cells[CellName(cIdx, rIdx+1)] = v
				if rIdx+1 > sh.Rows {
					sh.Rows = rIdx + 1
				}
				if cIdx+1 > sh.Cols {
					sh.Cols = cIdx + 1
				}
			}
		}
		l.logger.Debug("лист прочитан", "sheet", name, "cells", len(sh.Cells))
		out = append(out, sh)
	}
	return out, nil
}

// SheetsFromFile — FromFile с логгером по умолчанию.
func SheetsFromFile(f *excelize.File) ([]Sheet, error) {
	return NewSheetLoader(nil).FromFile(f)
}

// sheetDimension разбирает диапазон вида "A1:F40". Ошибки не критичны — вернётся 0.
func (l *SheetLoader) sheetDimension(f *excelize.File, sheet string) (rows, cols int) {
	dim, err := f.GetSheetDimension(sheet)
	if err != nil || dim == "" {
		return 0, 0
	}
	parts := strings.Split(dim, ":")
	col, row, err := excelize.CellNameToCoordinates(parts[len(parts)-1])
	if err != nil {
		l.logger.Debug("не удалось разобрать размеры листа", "sheet", sheet, "dimension", dim)
		return 0, 0
	}
	return row, col
}
