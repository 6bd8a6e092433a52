package cellmapper_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/nikitaxru/cellmapper"
)

// BuilderSuite — сьют тестов конечных автоматов привязки
type BuilderSuite struct {
	suite.Suite
	set    *cellmapper.MappingSet
	sheets []string
}

func (s *BuilderSuite) SetupTest() {
	s.set = &cellmapper.MappingSet{}
	s.sheets = []string{"Tarifs", "Client"}
}

func TestBuilderSuite(t *testing.T) {
	suite.Run(t, new(BuilderSuite))
}

func (s *BuilderSuite) requireTransitionError(err error) {
	s.Require().Error(err)
	s.Assert().ErrorIs(err, cellmapper.ErrInvalidTransition)
	var te *cellmapper.TransitionError
	s.Assert().True(errors.As(err, &te))
}

// TestScalarFlow — выбор листа, поля, клики по ячейкам и завершение листа
func (s *BuilderSuite) TestScalarFlow() {
	b := cellmapper.NewScalarBuilder(s.set, s.sheets)
	s.Assert().Equal(cellmapper.ScalarPickSheet, b.State())

	// до выбора листа клики и выбор поля отклоняются
	_, err := b.ClickCell("A1")
	s.requireTransitionError(err)
	s.requireTransitionError(b.SelectField("offre.nom"))

	s.Assert().ErrorIs(b.SelectSheet("Inconnu"), cellmapper.ErrUnknownSheet)
	s.Require().NoError(b.SelectSheet("Tarifs"))
	s.Assert().Equal(cellmapper.ScalarIdle, b.State())

	_, err = b.ClickCell("A1")
	s.requireTransitionError(err)

	s.Require().NoError(b.SelectField("offre.nom"))
	s.Assert().Equal(cellmapper.ScalarFieldSelected, b.State())

	refs, err := b.ClickCell("a1")
	s.Require().NoError(err)
	s.Assert().Equal(cellmapper.CellRefs{"A1"}, refs)

	// выбор поля липкий: второй клик добавляет ячейку к тому же полю
	refs, err = b.ClickCell("D4")
	s.Require().NoError(err)
	s.Assert().Equal(cellmapper.CellRefs{"A1", "D4"}, refs)
	s.Assert().Equal("offre.nom", b.Field())

	// изменения сразу видны в наборе
	s.Assert().Equal(cellmapper.CellRefs{"A1", "D4"}, s.set.Sheet("Tarifs")["offre.nom"])

	_, err = b.ClickCell("nope")
	s.Assert().ErrorIs(err, cellmapper.ErrInvalidCellRef)

	s.Require().NoError(b.ClearSelection())
	s.Assert().Equal(cellmapper.ScalarIdle, b.State())
	s.requireTransitionError(b.ClearSelection())

	sm, err := b.FinishSheet()
	s.Require().NoError(err)
	s.Assert().Equal("Tarifs", sm.SheetName)
	s.Assert().Equal(cellmapper.CellRefs{"A1", "D4"}, sm.Mapping["offre.nom"])
	s.Assert().Equal(cellmapper.ScalarPickSheet, b.State())

	_, err = b.FinishSheet()
	s.requireTransitionError(err)
}

// TestScalarFieldMappedElsewhere — поле, привязанное на другом листе, выбрать нельзя
func (s *BuilderSuite) TestScalarFieldMappedElsewhere() {
	b := cellmapper.NewScalarBuilder(s.set, s.sheets)
	s.Require().NoError(b.SelectSheet("Tarifs"))
	s.Require().NoError(b.SelectField("client.nom"))
	_, err := b.ClickCell("B2")
	s.Require().NoError(err)

	s.Require().NoError(b.SwitchSheet("Client"))
	s.Assert().Equal("Client", b.Sheet())
	s.Assert().Equal(cellmapper.ScalarIdle, b.State())
	s.Assert().ErrorIs(b.SelectField("client.nom"), cellmapper.ErrFieldMappedElsewhere)

	// на своём листе поле снова выбирается
	s.Require().NoError(b.SwitchSheet("Tarifs"))
	s.Require().NoError(b.SelectField("client.nom"))
	s.Assert().Equal(cellmapper.CellRefs{"B2"}, b.Mapping()["client.nom"])
}

// TestScalarUnmap — снятие ячейки и привязки поля; пустой лист уходит из набора
func (s *BuilderSuite) TestScalarUnmap() {
	b := cellmapper.NewScalarBuilder(s.set, s.sheets)
	s.Require().NoError(b.SelectSheet("Tarifs"))
	s.Require().NoError(b.SelectField("prix"))
	_, _ = b.ClickCell("B1")
	_, _ = b.ClickCell("B2")

	s.Require().NoError(b.RemoveRef("prix", "b1"))
	s.Assert().Equal(cellmapper.CellRefs{"B2"}, s.set.Sheet("Tarifs")["prix"])

	s.Require().NoError(b.Unmap("prix"))
	s.Assert().Nil(s.set.Sheet("Tarifs"))
	s.Assert().True(s.set.IsEmpty())
}

// TestArrayFlow — настройка массива, назначение колонок и фиксация черновика
func (s *BuilderSuite) TestArrayFlow() {
	b := cellmapper.NewArrayBuilder(s.set, s.sheets)
	s.Assert().Equal(cellmapper.ArrayIdle, b.State())

	_, err := b.ClickCell("B5")
	s.requireTransitionError(err)
	_, err = b.Commit()
	s.requireTransitionError(err)

	s.Require().NoError(b.ChooseArray("lignes", "Tarifs"))
	s.Assert().Equal(cellmapper.ArrayFieldChosen, b.State())
	s.Assert().Equal(1, b.Draft().StartRow)
	s.Assert().Equal(cellmapper.StopEmptyFirstCol, b.Draft().StopCondition)
	s.requireTransitionError(b.ChooseArray("autre", "Tarifs"))

	n := 10
	s.Require().NoError(b.Configure(5, cellmapper.StopMaxRows, &n))

	// клик без выбранного подполя отклоняется
	_, err = b.ClickCell("B5")
	s.requireTransitionError(err)

	s.Require().NoError(b.SelectSubfield("numero"))
	col, err := b.ClickCell("b5")
	s.Require().NoError(err)
	s.Assert().Equal("B", col)

	// номер строки не важен, повторный клик в ту же колонку снимает её
	col, err = b.ClickCell("B42")
	s.Require().NoError(err)
	s.Assert().Equal("", col)
	_, ok := b.Draft().ColumnMapping["numero"]
	s.Assert().False(ok)

	_, err = b.ClickCell("B5")
	s.Require().NoError(err)
	s.Require().NoError(b.SelectSubfield("forfait"))
	_, err = b.ClickCell("C5")
	s.Require().NoError(err)
	s.Assert().Equal(cellmapper.ArrayRowFieldSelected, b.State())

	// черновик не попадает в набор до фиксации
	s.Assert().Empty(s.set.ArrayMappings)

	am, err := b.Commit()
	s.Require().NoError(err)
	s.Assert().Equal(cellmapper.ArrayIdle, b.State())
	s.Assert().Equal(map[string]string{"numero": "B", "forfait": "C"}, am.ColumnMapping)
	s.Assert().Equal(5, am.StartRow)
	s.Require().NotNil(am.MaxRows)
	s.Assert().Equal(10, *am.MaxRows)

	stored, ok := s.set.Array("lignes", "Tarifs")
	s.Require().True(ok)
	s.Assert().Equal(am, stored)
}

// TestArrayEditExistingAndCancel — повторный выбор массива продолжает сохранённую настройку
func (s *BuilderSuite) TestArrayEditExistingAndCancel() {
	s.set.SetArray(cellmapper.ArrayMapping{
		ArrayID:       "lignes",
		SheetName:     "Tarifs",
		StartRow:      5,
		StopCondition: cellmapper.StopEmptyFirstCol,
		ColumnMapping: map[string]string{"numero": "B"},
	})
	b := cellmapper.NewArrayBuilder(s.set, s.sheets)

	s.Require().NoError(b.ChooseArray("lignes", "Tarifs"))
	s.Assert().Equal(5, b.Draft().StartRow)
	s.Require().NoError(b.RemoveColumn("numero"))
	s.Assert().Empty(b.Draft().ColumnMapping)

	b.Cancel()
	s.Assert().Equal(cellmapper.ArrayIdle, b.State())
	stored, _ := s.set.Array("lignes", "Tarifs")
	s.Assert().Equal("B", stored.ColumnMapping["numero"], "отменённый черновик не трогает набор")

	s.Require().NoError(b.ChooseArray("lignes", "Tarifs"))
	_, err := b.Remove("lignes", "Tarifs")
	s.requireTransitionError(err)
	b.Cancel()

	removed, err := b.Remove("lignes", "Tarifs")
	s.Require().NoError(err)
	s.Assert().True(removed)
	s.Assert().Empty(s.set.ArrayMappings)

	s.Assert().ErrorIs(b.ChooseArray("lignes", "Inconnu"), cellmapper.ErrUnknownSheet)
	s.requireTransitionError(b.SelectSubfield("x"))
}
