package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/xuri/excelize/v2"

	"github.com/nikitaxru/cellmapper"
)

// CLISuite — сьют тестов команд cellmapper на временной книге
type CLISuite struct {
	suite.Suite
	dir      string
	template string
	data     string
	mapping  string
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLISuite))
}

func (s *CLISuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.T().Setenv("LOG_LEVEL", "debug")
	s.T().Setenv("LOG_FORMAT", "text")
	s.T().Setenv("CELLMAPPER_PROFILE", "")
	s.T().Setenv("CELLMAPPER_STORE_DSN", "")
	s.T().Setenv("DATABASE_URL", "")
	s.T().Setenv("CELLMAPPER_STORE_PATH", filepath.Join(s.dir, "mappings.json"))

	s.template = filepath.Join(s.dir, "devis.xlsx")
	f := excelize.NewFile()
	_ = f.SetSheetName("Sheet1", "Tarifs")
	_ = f.SetCellValue("Tarifs", "A1", "Client")
	_ = f.SetCellValue("Tarifs", "A4", "Numéro")
	s.Require().NoError(f.SaveAs(s.template), "save template")

	s.data = s.write("data.json", "```json\n{\"client\": {\"nom\": \"ACME\"}, \"lignes\": [{\"numero\": \"0601\"}]}\n```")
	s.mapping = s.write("mapping.json", `{
  "sheetMappings": [{"sheetName": "Tarifs", "mapping": {"client_nom": "B1"}}],
  "arrayMappings": [{"arrayId": "lignes", "sheetName": "Tarifs", "startRow": 5,
    "stopCondition": "empty_first_col", "columnMapping": {"numero": "A"}}]
}`)
}

func (s *CLISuite) write(name, content string) string {
	path := filepath.Join(s.dir, name)
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run выполняет команду и возвращает stdout, stderr и ошибку.
func (s *CLISuite) run(args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

// TestResolve — для каждого поля печатается ступень, путь и значение
func (s *CLISuite) TestResolve() {
	out, _, err := s.run("resolve", "client_nom", "inconnu", "-d", s.data)
	s.Require().NoError(err)
	s.Assert().Contains(out, "ПОЛЕ")
	s.Assert().Regexp(`client_nom\s+underscore\s+client\.nom\s+ACME`, out)
	s.Assert().Regexp(`inconnu\s+none`, out)
}

// TestValidate — корректный набор проходит, лист вне шаблона даёт ошибку
func (s *CLISuite) TestValidate() {
	out, logs, err := s.run("validate", s.template, "-m", s.mapping)
	s.Require().NoError(err)
	s.Assert().Contains(out, "набор привязок корректен")
	s.Assert().Contains(logs, "Шаблон загружен")

	bad := s.write("bad.json", `{"sheetMappings": [{"sheetName": "Inconnu", "mapping": {"x": "A1"}}]}`)
	out, _, err = s.run("validate", s.template, "-m", bad)
	s.Require().Error(err)
	s.Assert().ErrorIs(err, cellmapper.ErrInvalidMapping)
	s.Assert().Contains(out, "ошибка:")
	s.Assert().Contains(out, "листа нет в шаблоне")

	_, _, err = s.run("validate", s.template)
	s.Assert().Error(err, "без --mapping и --id набора нет")
}

// TestRender — значения в скобках, строки массива под заголовком, итог заполнения
func (s *CLISuite) TestRender() {
	out, _, err := s.run("render", s.template, "-m", s.mapping, "-d", s.data, "-s", "Tarifs")
	s.Require().NoError(err)
	s.Assert().Contains(out, "== Tarifs ==")
	s.Assert().Contains(out, "[ACME]")
	s.Assert().Contains(out, "[0601]")
	s.Assert().Contains(out, "заполнено: 2 из 2")
	s.Assert().Contains(out, "массив lignes: ключ lignes, строк 1")
}

// TestSaveAndList — набор сохраняется в файловое хранилище и виден в списке
func (s *CLISuite) TestSaveAndList() {
	out, _, err := s.run("save", s.template, "-m", s.mapping, "--id", "devis-telecom")
	s.Require().NoError(err)
	s.Assert().Equal("devis-telecom\n", out)

	out, _, err = s.run("list")
	s.Require().NoError(err)
	s.Assert().Equal("devis-telecom\n", out)

	_, _, err = s.run("save", s.template)
	s.Assert().Error(err)
}
