package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/user/moviesearch/internal/config"
	"github.com/user/moviesearch/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 错误信息使用 json 字段名
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// ValidateMovieInput 校验创建/更新请求体
func ValidateMovieInput(in *model.MovieInput) error {
	if in == nil {
		return invalid("body", "is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return invalid("title", "is required")
	}
	if strings.TrimSpace(in.Overview) == "" {
		return invalid("overview", "is required")
	}
	return translateValidation(validate.Struct(in))
}

// ValidateSearchQuery 校验 prompt 长度与 limit 范围
func ValidateSearchQuery(q model.SearchQuery, cfg config.SearchConfig) error {
	if strings.TrimSpace(q.Prompt) == "" {
		return invalid("prompt", "is required")
	}
	if err := validate.Var(q.Prompt, fmt.Sprintf("max=%d", cfg.PromptMaxLength)); err != nil {
		return invalid("prompt", "must be at most %d characters", cfg.PromptMaxLength)
	}
	if err := validate.Var(q.Limit, fmt.Sprintf("gte=%d,lte=%d", cfg.LimitMin, cfg.LimitMax)); err != nil {
		return invalid("limit", "must be between %d and %d", cfg.LimitMin, cfg.LimitMax)
	}
	return nil
}

func translateValidation(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return invalid("body", "%v", err)
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		msg := "failed " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: msg})
	}
	return out
}
