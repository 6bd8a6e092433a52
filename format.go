package cellmapper

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FormatValue приводит значение из данных к тексту ячейки.
// Списки строк склеиваются через ", ", прочие коллекции пишутся как JSON.
func FormatValue(v interface{}) string {
	switch vv := v.(type) {
	case nil:
		return ""
	case string:
		return vv
	case float64:
		if vv == float64(int64(vv)) {
			return strconv.FormatInt(int64(vv), 10)
		}
		return strconv.FormatFloat(vv, 'f', -1, 64)
	case bool:
		if vv {
			return "true"
		}
		return "false"
	case json.Number:
		return vv.String()
	case []interface{}:
		strs := make([]string, len(vv))
		for i, it := range vv {
			s, ok := it.(string)
			if !ok {
				b, _ := json.Marshal(vv)
				return string(b)
			}
			strs[i] = s
		}
		return strings.Join(strs, ", ")
	case map[string]interface{}:
		b, _ := json.Marshal(vv)
		return string(b)
	default:
		return fmt.Sprintf("%v", vv)
	}
}

// isBlank — значение отсутствует или даёт пустой текст.
func isBlank(v interface{}) bool {
	return strings.TrimSpace(FormatValue(v)) == ""
}
