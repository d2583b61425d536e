// Package validation はリクエスト本文の構造体検証を提供する。
package validation

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/enthub/internal/model"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator は共有の validator インスタンスを返す。初回呼び出し時に生成する。
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)
	})
	return validate
}

// Struct は validate タグに従って s を検証する。
// 失敗したフィールドは model.ValidationErrors にまとめて返す。
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return model.NewValidationError("", err.Error())
	}

	out := make(model.ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, model.NewValidationError(fe.Field(), message(fe)))
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "必須項目です"
	case "max":
		return fmt.Sprintf("%s文字以内で指定してください", fe.Param())
	case "url":
		return "URL形式で指定してください"
	default:
		return fmt.Sprintf("%s の検証に失敗しました", fe.Tag())
	}
}
