package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/user/moviesearch/internal/repository"
)

var (
	ErrNotFound      = errors.New("movie not found")
	ErrConflict      = errors.New("movie with the same title already exists")
	ErrProvider      = errors.New("embedding provider unavailable")
	ErrStore         = errors.New("document store failure")
	ErrConfiguration = errors.New("vector search is not configured")
)

// FieldError 单个字段的校验失败
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 输入校验失败，在任何 I/O 之前返回
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: fmt.Sprintf(format, args...)}}}
}

// storeError 将仓库错误映射到服务层错误
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicateTitle):
		return ErrConflict
	case errors.Is(err, repository.ErrIndexNotFound), errors.Is(err, repository.ErrDimensionMismatch):
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	default:
		return fmt.Errorf("%w: %s: %v", ErrStore, op, err)
	}
}

// providerError 向量服务的任何失败都视为不可用，不做本地重试
func providerError(err error) error {
	return fmt.Errorf("%w: %v", ErrProvider, err)
}
