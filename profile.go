package cellmapper

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	expro "github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"
)

// Profile — настройки предметной области: список полей шаблона,
// таблица алиасов и вычисляемые поля. Резолвер сам ничего о домене не знает.
//
// Пример YAML:
//
//	name: telecom
//	fields: [client_nom, client_siret, total_ht]
//	aliases:
//	  client_nom: [client.raison_sociale, societe.nom]
//	computed:
//	  total_ttc: num(field("total_ht")) * 1.2
type Profile struct {
	Name     string              `yaml:"name"`
	Fields   []string            `yaml:"fields"`
	Aliases  map[string][]string `yaml:"aliases"`
	Computed map[string]string   `yaml:"computed"`

	programs map[string]*vm.Program
}

// ParseProfile разбирает YAML и компилирует вычисляемые поля.
func ParseProfile(b []byte) (*Profile, error) {
	p := &Profile{}
	if err := yaml.Unmarshal(b, p); err != nil {
		return nil, fmt.Errorf("разбор профиля: %w", err)
	}
	if err := p.Compile(); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadProfile читает профиль из файла.
func LoadProfile(path string) (*Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := ParseProfile(b)
	if err != nil {
		return nil, fmt.Errorf("профиль %s: %w", path, err)
	}
	return p, nil
}

// Compile компилирует выражения вычисляемых полей. Вызывается автоматически
// из ParseProfile; профили, собранные в коде, нужно компилировать явно.
func (p *Profile) Compile() error {
	p.programs = make(map[string]*vm.Program, len(p.Computed))
	env := computedEnv(nil, nil)
	names := make([]string, 0, len(p.Computed))
	for name := range p.Computed {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		program, err := expro.Compile(p.Computed[name], expro.Env(env))
		if err != nil {
			return fmt.Errorf("вычисляемое поле %s: %w", name, err)
		}
		p.programs[name] = program
	}
	return nil
}

// AllFields — поля профиля плюс вычисляемые, без повторов, в исходном порядке.
func (p *Profile) AllFields() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, f := range p.Fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	names := make([]string, 0, len(p.Computed))
	for name := range p.Computed {
		if _, ok := seen[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return append(out, names...)
}

func (p *Profile) evalComputed(r *Resolver, data interface{}, field string) (interface{}, bool) {
	program, ok := p.programs[field]
	if !ok {
		return nil, false
	}
	out, err := expro.Run(program, computedEnv(r, data))
	if err != nil || out == nil {
		return nil, false
	}
	return out, true
}

// computedEnv — функции, доступные в выражениях. field() смотрит только
// статические ступени резолвера, так что вычисляемое поле не может сослаться на себя.
func computedEnv(r *Resolver, data interface{}) map[string]interface{} {
	lookup := func(path string) (interface{}, bool) {
		if r == nil {
			return nil, false
		}
		res := r.resolveStatic(data, path)
		return res.Value, res.Found
	}
	return map[string]interface{}{
		"field": func(path string) interface{} {
			v, _ := lookup(path)
			return v
		},
		"exists": func(path string) bool {
			_, ok := lookup(path)
			return ok
		},
		"join": func(path, sep string) string {
			v, ok := lookup(path)
			if !ok {
				return ""
			}
			arr, ok := v.([]interface{})
			if !ok {
				return FormatValue(v)
			}
			parts := make([]string, 0, len(arr))
			for _, it := range arr {
				parts = append(parts, FormatValue(it))
			}
			return strings.Join(parts, sep)
		},
		"num": toNumber,
	}
}

// toNumber понимает числа JSON и строки вида "1 234,50" или "99.90 €".
func toNumber(v interface{}) float64 {
	switch vv := v.(type) {
	case float64:
		return vv
	case int:
		return float64(vv)
	case int64:
		return float64(vv)
	case string:
		s := strings.Map(func(r rune) rune {
			switch {
			case r >= '0' && r <= '9', r == '-', r == '.':
				return r
			case r == ',':
				return '.'
			}
			return -1
		}, vv)
		f, _ := strconv.ParseFloat(s, 64)
		return f
	default:
		return 0
	}
}
