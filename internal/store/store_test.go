package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/nikitaxru/cellmapper"
)

type FileStoreSuite struct {
	suite.Suite
	path string
	ctx  context.Context
}

func (s *FileStoreSuite) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "nested", "mappings.json")
	s.ctx = context.Background()
}

func sampleSet() cellmapper.MappingSet {
	maxRows := 2
	return cellmapper.MappingSet{
		SheetMappings: []cellmapper.SheetMapping{{
			SheetName: "Tarifs",
			Mapping: cellmapper.ScalarMapping{
				"nom":  {"A1"},
				"prix": {"B1", "B2"},
			},
		}},
		ArrayMappings: []cellmapper.ArrayMapping{{
			ArrayID:       "lignes",
			SheetName:     "Tarifs",
			StartRow:      5,
			StopCondition: cellmapper.StopMaxRows,
			MaxRows:       &maxRows,
			ColumnMapping: map[string]string{"numero": "B", "forfait": "C"},
		}},
	}
}

func (s *FileStoreSuite) TestSaveAndLoad() {
	st := NewFile(s.path)
	s.Require().NoError(st.SaveMappingSet(s.ctx, "tpl-1", sampleSet()))

	got, err := st.LoadMappingSet(s.ctx, "tpl-1")
	s.Require().NoError(err)
	s.Assert().Equal(sampleSet(), got)
}

func (s *FileStoreSuite) TestReopenReadsFromDisk() {
	s.Require().NoError(NewFile(s.path).SaveMappingSet(s.ctx, "tpl-1", sampleSet()))

	reopened := NewFile(s.path)
	got, err := reopened.LoadMappingSet(s.ctx, "tpl-1")
	s.Require().NoError(err)
	s.Assert().Equal(cellmapper.CellRefs{"B1", "B2"}, got.SheetMappings[0].Mapping["prix"])
	s.Require().NotNil(got.ArrayMappings[0].MaxRows)
	s.Assert().Equal(2, *got.ArrayMappings[0].MaxRows)
}

func (s *FileStoreSuite) TestLastWriterWins() {
	st := NewFile(s.path)
	s.Require().NoError(st.SaveMappingSet(s.ctx, "tpl-1", sampleSet()))

	second := cellmapper.MappingSet{SheetMappings: []cellmapper.SheetMapping{{
		SheetName: "Autre",
		Mapping:   cellmapper.ScalarMapping{"client": {"D4"}},
	}}}
	s.Require().NoError(st.SaveMappingSet(s.ctx, "tpl-1", second))

	got, err := NewFile(s.path).LoadMappingSet(s.ctx, "tpl-1")
	s.Require().NoError(err)
	s.Assert().Equal(second.SheetMappings, got.SheetMappings)
	s.Assert().Empty(got.ArrayMappings)
}

func (s *FileStoreSuite) TestLoadedCopyIsIndependent() {
	st := NewFile(s.path)
	s.Require().NoError(st.SaveMappingSet(s.ctx, "tpl-1", sampleSet()))

	got, err := st.LoadMappingSet(s.ctx, "tpl-1")
	s.Require().NoError(err)
	got.SheetMappings[0].Mapping["nom"] = cellmapper.CellRefs{"Z9"}

	again, err := st.LoadMappingSet(s.ctx, "tpl-1")
	s.Require().NoError(err)
	s.Assert().Equal(cellmapper.CellRefs{"A1"}, again.SheetMappings[0].Mapping["nom"])
}

func (s *FileStoreSuite) TestNotFound() {
	_, err := NewFile(s.path).LoadMappingSet(s.ctx, "absent")
	s.Assert().ErrorIs(err, ErrNotFound)
	s.Assert().ErrorIs(NewFile(s.path).Delete(s.ctx, "absent"), ErrNotFound)
}

func (s *FileStoreSuite) TestListAndDelete() {
	st := NewFile(s.path)
	for _, id := range []string{"b", "a", "c"} {
		s.Require().NoError(st.SaveMappingSet(s.ctx, id, sampleSet()))
	}
	ids, err := st.List(s.ctx)
	s.Require().NoError(err)
	s.Assert().Equal([]string{"a", "b", "c"}, ids)

	s.Require().NoError(st.Delete(s.ctx, "b"))
	ids, err = NewFile(s.path).List(s.ctx)
	s.Require().NoError(err)
	s.Assert().Equal([]string{"a", "c"}, ids)
}

func (s *FileStoreSuite) TestEmptyIDRejected() {
	s.Assert().Error(NewFile(s.path).SaveMappingSet(s.ctx, "  ", sampleSet()))
}

func (s *FileStoreSuite) TestCorruptFile() {
	s.Require().NoError(os.MkdirAll(filepath.Dir(s.path), 0o755))
	s.Require().NoError(os.WriteFile(s.path, []byte("{not json"), 0o644))

	_, err := NewFile(s.path).List(s.ctx)
	s.Assert().Error(err)
}

func TestFileStoreSuite(t *testing.T) {
	suite.Run(t, new(FileStoreSuite))
}
