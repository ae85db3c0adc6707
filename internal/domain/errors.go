package domain

import (
	"errors"
	"fmt"
)

// ErrNoData 空请求体
var ErrNoData = errors.New("no metrics data provided")

// MissingFieldError 缺失必填字段
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}
