package cellmapper

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// fenceRx вырезает JSON, обёрнутый в тройные кавычки ```json ... ```.
var fenceRx = regexp.MustCompile("(?s)```[a-zA-Z]*\\n(.*?)```")

func sanitizeJSONBlock(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	m := fenceRx.FindStringSubmatch(s)
	if len(m) >= 2 {
		return strings.TrimSpace(m[1])
	}
	return s
}

// ParseExtracted собирает дерево данных из ответов экстрактора.
// Каждый ответ может быть обёрнут в ```json```; пустые ответы пропускаются.
// Несколько ответов сливаются: вложенные объекты объединяются, при конфликте
// побеждает более поздний ответ. Ответ, который не является JSON, — ошибка.
func ParseExtracted(outputs ...string) (interface{}, error) {
	var root interface{}
	for i, s := range outputs {
		s = strings.TrimSpace(sanitizeJSONBlock(s))
		if s == "" {
			continue
		}
		var v interface{}
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, fmt.Errorf("ответ %d: %w", i+1, err)
		}
		root = mergeTrees(root, deepNormalize(v))
	}
	return root, nil
}

// deepNormalize подчищает ключи объектов (пробелы по краям), чтобы
// "nom " и "nom" не расходились при поиске.
func deepNormalize(v interface{}) interface{} {
	switch vv := v.(type) {
	case []interface{}:
		for i := range vv {
			vv[i] = deepNormalize(vv[i])
		}
		return vv
	case map[string]interface{}:
		out := make(map[string]interface{}, len(vv))
		for k, val := range vv {
			out[strings.TrimSpace(k)] = deepNormalize(val)
		}
		return out
	default:
		return vv
	}
}

// mergeTrees возвращает новое дерево: b поверх a. Объекты сливаются рекурсивно,
// всё остальное из b заменяет a.
func mergeTrees(a, b interface{}) interface{} {
	am, aok := a.(map[string]interface{})
	bm, bok := b.(map[string]interface{})
	if !aok || !bok {
		if b == nil {
			return a
		}
		return b
	}
	out := make(map[string]interface{}, len(am)+len(bm))
	for k, v := range am {
		out[k] = v
	}
	for k, v := range bm {
		out[k] = mergeTrees(am[k], v)
	}
	return out
}

// cloneTree копирует объекты и списки дерева; скаляры разделяются.
func cloneTree(v interface{}) interface{} {
	switch n := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(n))
		for k, item := range n {
			out[k] = cloneTree(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(n))
		for i, item := range n {
			out[i] = cloneTree(item)
		}
		return out
	default:
		return v
	}
}
