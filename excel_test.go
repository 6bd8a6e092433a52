package cellmapper_test

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/xuri/excelize/v2"

	"github.com/nikitaxru/cellmapper"
)

// ExcelSuite — сьют тестов чтения листов шаблона xlsx
type ExcelSuite struct {
	suite.Suite
}

func TestExcelSuite(t *testing.T) {
	suite.Run(t, new(ExcelSuite))
}

// TestLoadSheets — все листы в порядке книги, пустые ячейки пропущены
func (s *ExcelSuite) TestLoadSheets() {
	tmpTemplate := filepath.Join(s.T().TempDir(), "template.xlsx")

	f := excelize.NewFile()
	_ = f.SetSheetName("Sheet1", "Tarifs")
	_ = f.SetCellValue("Tarifs", "A1", "Offre")
	_ = f.SetCellValue("Tarifs", "B1", "Prix")
	_ = f.SetCellValue("Tarifs", "C3", "   ")
	_ = f.SetCellValue("Tarifs", "D4", 12.5)
	_, err := f.NewSheet("Client")
	s.Require().NoError(err)
	_ = f.SetCellValue("Client", "B2", "Nom")
	s.Require().NoError(f.SaveAs(tmpTemplate), "save template")

	sheets, err := cellmapper.LoadSheets(tmpTemplate)
	s.Require().NoError(err)
	s.Require().Len(sheets, 2)

	tarifs := sheets[0]
	s.Assert().Equal("Tarifs", tarifs.Name)
	s.Assert().Equal(map[string]string{"A1": "Offre", "B1": "Prix", "D4": "12.5"}, tarifs.Cells)
	s.Assert().GreaterOrEqual(tarifs.Rows, 4)
	s.Assert().GreaterOrEqual(tarifs.Cols, 4)

	client := sheets[1]
	s.Assert().Equal("Client", client.Name)
	s.Assert().Equal("Nom", client.Cells["B2"])
}

// TestLoadSheets_Missing — отсутствующий файл даёт ошибку
func (s *ExcelSuite) TestLoadSheets_Missing() {
	_, err := cellmapper.LoadSheets(filepath.Join(s.T().TempDir(), "absent.xlsx"))
	s.Assert().Error(err)
}

// TestLoaderLogger — загрузчик пишет в переданный логгер, а не в глобальный
func (s *ExcelSuite) TestLoaderLogger() {
	tmpTemplate := filepath.Join(s.T().TempDir(), "template.xlsx")
	f := excelize.NewFile()
	_ = f.SetCellValue("Sheet1", "A1", "Offre")
	s.Require().NoError(f.SaveAs(tmpTemplate), "save template")

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sheets, err := cellmapper.NewSheetLoader(logger).Load(tmpTemplate)
	s.Require().NoError(err)
	s.Require().Len(sheets, 1)
	s.Assert().Equal("Offre", sheets[0].Cells["A1"])
	s.Assert().Contains(logs.String(), "Шаблон загружен")
	s.Assert().Contains(logs.String(), "sheet=Sheet1")
}
