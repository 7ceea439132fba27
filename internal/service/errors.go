package service

import (
	"errors"
	"net/http"
)

// Error 业务错误，携带对外的 HTTP 状态码与提示信息
// Handler 层统一转换为 {"detail": message} 响应；
// Detail 非空时以结构化对象作为 detail 输出（如预测额度耗尽）。
type Error struct {
	Status  int
	Message string
	Detail  any
}

func (e *Error) Error() string { return e.Message }

// NewError 创建业务错误
func NewError(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// 常用构造
func errBadRequest(message string) *Error   { return NewError(http.StatusBadRequest, message) }
func errUnauthorized(message string) *Error { return NewError(http.StatusUnauthorized, message) }
func errForbidden(message string) *Error    { return NewError(http.StatusForbidden, message) }
func errNotFound(message string) *Error     { return NewError(http.StatusNotFound, message) }

// AsError 提取业务错误；非业务错误返回 nil
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}
