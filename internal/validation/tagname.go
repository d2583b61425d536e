package validation

import (
	"reflect"
	"strings"
)

// jsonFieldName はエラーのフィールド名をJSONのキー名に揃える。
func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" || name == "" {
		return f.Name
	}
	return name
}
