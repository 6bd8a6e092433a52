package cellmapper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// MappingSaver — внешнее хранилище наборов привязок.
type MappingSaver interface {
	SaveMappingSet(ctx context.Context, id string, set MappingSet) error
}

// Option настраивает Session.
type Option func(*Session)

// WithProfile задаёт профиль домена (алиасы, вычисляемые поля, список полей).
func WithProfile(p *Profile) Option {
	return func(s *Session) { s.profile = p }
}

// WithLogger задаёт логгер.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithSearchDepth ограничивает глубину поиска массивов.
func WithSearchDepth(n int) Option {
	return func(s *Session) { s.searchDepth = n }
}

// WithMappingSet начинает сессию с ранее сохранённого набора.
func WithMappingSet(set MappingSet) Option {
	return func(s *Session) { s.set = set.Clone() }
}

// WithFields переопределяет список полей шаблона из профиля.
func WithFields(fields []string) Option {
	return func(s *Session) { s.fields = append([]string(nil), fields...) }
}

// WithTemplateID задаёт идентификатор, под которым набор сохраняется.
func WithTemplateID(id string) Option {
	return func(s *Session) { s.templateID = id }
}

// Session — одна сессия редактирования: свои копии листов, данных и привязок.
// Сессия однопоточная; сетка пересчитывается целиком при каждом запросе,
// поэтому после любой правки она всегда актуальна. До Save ничего не пишется.
type Session struct {
	ID string

	templateID  string
	sheets      []Sheet
	data        interface{}
	set         MappingSet
	fields      []string
	profile     *Profile
	searchDepth int
	logger      *slog.Logger

	projector *Projector
	scalar    *ScalarBuilder
	array     *ArrayBuilder
	coord     *Coordinator
}

// NewSession создаёт сессию над уже разобранными листами и извлечёнными данными.
func NewSession(sheets []Sheet, data interface{}, opts ...Option) *Session {
	s := &Session{ID: uuid.NewString(), data: cloneTree(data)}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.profile == nil {
		s.profile = &Profile{}
	}
	if s.fields == nil {
		s.fields = s.profile.AllFields()
	}
	if s.templateID == "" {
		s.templateID = s.ID
	}
	s.logger = s.logger.With("session", s.ID)

	s.sheets = make([]Sheet, len(sheets))
	names := make([]string, len(sheets))
	for i, sh := range sheets {
		cells := make(map[string]string, len(sh.Cells))
		for ref, v := range sh.Cells {
			if norm, ok := normalizeRef(ref); ok {
				ref = norm
			}
			cells[ref] = v
		}
		s.sheets[i] = Sheet{Name: sh.Name, Rows: sh.Rows, Cols: sh.Cols, Cells: cells}
		names[i] = sh.Name
	}

	s.projector = NewProjector(NewResolver(s.profile), NewLocator(s.searchDepth), s.logger)
	s.scalar = NewScalarBuilder(&s.set, names)
	s.array = NewArrayBuilder(&s.set, names)
	s.coord = NewCoordinator(&s.set, s.fields, names)
	return s
}

// TemplateID — идентификатор записи в хранилище.
func (s *Session) TemplateID() string { return s.templateID }

// Sheets возвращает листы сессии.
func (s *Session) Sheets() []Sheet { return s.sheets }

// SheetNames возвращает имена листов в порядке шаблона.
func (s *Session) SheetNames() []string {
	out := make([]string, len(s.sheets))
	for i, sh := range s.sheets {
		out[i] = sh.Name
	}
	return out
}

// Sheet ищет лист по имени.
func (s *Session) Sheet(name string) (Sheet, bool) {
	for _, sh := range s.sheets {
		if sh.Name == name {
			return sh, true
		}
	}
	return Sheet{}, false
}

// Data — текущее дерево данных (с учётом правок).
func (s *Session) Data() interface{} { return s.data }

// MappingSet возвращает копию текущего набора привязок.
func (s *Session) MappingSet() MappingSet { return s.set.Clone() }

func (s *Session) Scalar() *ScalarBuilder    { return s.scalar }
func (s *Session) Array() *ArrayBuilder      { return s.array }
func (s *Session) Coordinator() *Coordinator { return s.coord }
func (s *Session) Projector() *Projector     { return s.projector }

// Resolve ищет значение поля в текущих данных.
func (s *Session) Resolve(field string) Resolution {
	return s.projector.Resolver().Resolve(s.data, field)
}

// Grid строит сетку листа по текущим привязкам и данным.
func (s *Session) Grid(sheet string) (*Grid, error) {
	sh, ok := s.Sheet(sheet)
	if !ok {
		return nil, fmt.Errorf("%q: %w", sheet, ErrUnknownSheet)
	}
	return s.projector.Project(sh, &s.set, s.data), nil
}

// EditCell записывает значение привязанной ячейки в данные сессии.
func (s *Session) EditCell(sheet, ref string, value interface{}) error {
	g, err := s.Grid(sheet)
	if err != nil {
		return err
	}
	next, err := s.projector.Edit(g, s.data, ref, value)
	if err != nil {
		return err
	}
	s.data = next
	s.logger.Debug("ячейка изменена", "sheet", sheet, "ref", ref)
	return nil
}

// Save проверяет набор привязок и передаёт его хранилищу.
// Побеждает последняя запись: слияния версий нет.
func (s *Session) Save(ctx context.Context, saver MappingSaver) error {
	if err := s.coord.Validate(); err != nil {
		s.logger.Warn("набор привязок не прошёл проверку", "error", err)
		return err
	}
	for _, w := range s.coord.Warnings() {
		s.logger.Info("предупреждение", "warning", w)
	}
	if err := saver.SaveMappingSet(ctx, s.templateID, s.set.Clone()); err != nil {
		return fmt.Errorf("сохранение набора привязок %s: %w", s.templateID, err)
	}
	s.logger.Info("набор привязок сохранён",
		"template", s.templateID,
		"sheets", len(s.set.SheetMappings),
		"arrays", len(s.set.ArrayMappings),
	)
	return nil
}
