package cellmapper

import (
	"strconv"
	"strings"
)

// Tier — ступень, на которой резолвер нашёл значение.
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierDotted
	TierUnderscore
	TierAlias
	TierShallow
	TierComputed
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierDotted:
		return "dotted"
	case TierUnderscore:
		return "underscore"
	case TierAlias:
		return "alias"
	case TierShallow:
		return "shallow"
	case TierComputed:
		return "computed"
	default:
		return "none"
	}
}

// Resolution — результат поиска значения поля.
// Path указывает, где значение реально лежит в дереве (nil для вычисляемых полей).
type Resolution struct {
	Value interface{}
	Path  []string
	Tier  Tier
	Found bool
}

// Resolver ищет значение поля в произвольном JSON-дереве, пробуя ступени по порядку:
// точный ключ верхнего уровня, путь через точки, путь с "_" → ".", таблица алиасов,
// поверхностный поиск по вложенным объектам, вычисляемые поля профиля.
// Промах — это просто Found=false, ошибок и паник резолвер не порождает.
type Resolver struct {
	profile *Profile
}

// NewResolver создаёт резолвер. profile может быть nil — тогда алиасов нет.
func NewResolver(profile *Profile) *Resolver {
	if profile == nil {
		profile = &Profile{}
	}
	return &Resolver{profile: profile}
}

// Profile возвращает профиль, с которым работает резолвер.
func (r *Resolver) Profile() *Profile { return r.profile }

// Value — короткая форма Resolve.
func (r *Resolver) Value(data interface{}, fieldPath string) (interface{}, bool) {
	res := r.Resolve(data, fieldPath)
	return res.Value, res.Found
}

// Resolve находит значение fieldPath в data.
func (r *Resolver) Resolve(data interface{}, fieldPath string) Resolution {
	res := r.resolveStatic(data, fieldPath)
	if res.Found {
		return res
	}
	if v, ok := r.profile.evalComputed(r, data, fieldPath); ok {
		return Resolution{Value: v, Tier: TierComputed, Found: true}
	}
	return Resolution{}
}

// resolveStatic — ступени 1–5, без вычисляемых полей.
func (r *Resolver) resolveStatic(data interface{}, fieldPath string) Resolution {
	fieldPath = strings.TrimSpace(fieldPath)
	if fieldPath == "" || data == nil {
		return Resolution{}
	}

	// 1. точный ключ верхнего уровня
	if m, ok := data.(map[string]interface{}); ok {
		if v, ok := m[fieldPath]; ok && v != nil {
			return Resolution{Value: v, Path: []string{fieldPath}, Tier: TierExact, Found: true}
		}
	}

	// 2. путь через точки
	if segs := splitPath(fieldPath); len(segs) > 1 {
		if v, ok := drill(data, segs); ok {
			return Resolution{Value: v, Path: segs, Tier: TierDotted, Found: true}
		}
	}

	// 3. плоский путь client_nom → client.nom
	if strings.Contains(fieldPath, "_") {
		segs := splitPath(strings.ReplaceAll(fieldPath, "_", "."))
		if v, ok := drill(data, segs); ok {
			return Resolution{Value: v, Path: segs, Tier: TierUnderscore, Found: true}
		}
	}

	// 4. алиасы профиля, первый непустой кандидат
	for _, cand := range r.profile.Aliases[fieldPath] {
		segs := splitPath(cand)
		if v, ok := drill(data, segs); ok {
			return Resolution{Value: v, Path: segs, Tier: TierAlias, Found: true}
		}
	}

	// 5. ключ внутри любого объекта верхнего уровня
	if m, ok := searchTree(data, shallowDepth, exactKey(fieldPath)); ok && m.value != nil {
		return Resolution{Value: m.value, Path: m.path, Tier: TierShallow, Found: true}
	}
	return Resolution{}
}

// splitPath режет путь на сегменты. Понимает и "a.0.b", и "a[0].b".
func splitPath(path string) []string {
	var segs []string
	rest := strings.TrimSpace(path)
	for rest != "" {
		seg, tail := nextSeg(rest)
		if len(tail) >= len(rest) {
			break
		}
		if strings.HasPrefix(seg, "[") && strings.HasSuffix(seg, "]") {
			seg = seg[1 : len(seg)-1]
		}
		if seg != "" {
			segs = append(segs, seg)
		}
		rest = tail
	}
	return segs
}

func nextSeg(path string) (seg string, tail string) {
	if path == "" {
		return "", ""
	}
	if path[0] == '[' {
		if i := strings.Index(path, "]"); i >= 0 {
			seg = path[:i+1]
			if i+1 < len(path) && path[i+1] == '.' {
				tail = path[i+2:]
			} else {
				tail = path[i+1:]
			}
			return
		}
		// незакрытая скобка: остаток — обычный ключ
		return path[1:], ""
	}
	i := 0
	for i < len(path) && path[i] != '.' && path[i] != '[' {
		i++
	}
	seg = path[:i]
	if i < len(path) && path[i] == '.' {
		tail = path[i+1:]
	} else {
		tail = path[i:]
	}
	return
}

// drill проходит по сегментам. Сегмент — ключ объекта, либо индекс,
// если текущий узел — список, а сегмент — десятичное число.
// nil на любом шаге (включая конечный) — промах.
func drill(v interface{}, segs []string) (interface{}, bool) {
	if len(segs) == 0 {
		return nil, false
	}
	cur := v
	for _, seg := range segs {
		switch node := cur.(type) {
		case map[string]interface{}:
			nv, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = nv
		case []interface{}:
			i, ok := listIndex(seg)
			if !ok || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
		if cur == nil {
			return nil, false
		}
	}
	return cur, true
}

func listIndex(seg string) (int, bool) {
	if seg == "" {
		return 0, false
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] < '0' || seg[i] > '9' {
			return 0, false
		}
	}
	i, err := strconv.Atoi(seg)
	if err != nil {
		return 0, false
	}
	return i, true
}

// SetNestedValue возвращает новое дерево, в котором по пути path записано value.
// Исходное дерево не меняется: копируются только узлы вдоль пути,
// всё остальное разделяется с оригиналом. Недостающие узлы создаются пустыми объектами.
func SetNestedValue(data interface{}, path string, value interface{}) interface{} {
	return SetIn(data, splitPath(path), value)
}

// SetIn — то же, что SetNestedValue, но по уже разобранным сегментам.
func SetIn(data interface{}, segs []string, value interface{}) interface{} {
	if len(segs) == 0 {
		return value
	}
	seg, rest := segs[0], segs[1:]
	if list, ok := data.([]interface{}); ok {
		if i, ok := listIndex(seg); ok && i < len(list) {
			out := make([]interface{}, len(list))
			copy(out, list)
			out[i] = SetIn(list[i], rest, value)
			return out
		}
	}
	src, _ := data.(map[string]interface{})
	out := make(map[string]interface{}, len(src)+1)
	for k, v := range src {
		out[k] = v
	}
	out[seg] = SetIn(src[seg], rest, value)
	return out
}

// joinPath собирает сегменты обратно в точечный путь.
func joinPath(segs []string) string {
	return strings.Join(segs, ".")
}
