package errcode

import (
	"errors"
	"fmt"
)

// Kind 标识业务错误的类别，边界层据此映射 HTTP 状态码。
type Kind int

const (
	KindUnexpected Kind = iota
	KindConflict
	KindUnauthorized
	KindNotFound
	KindNotFoundOrForbidden
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindNotFoundOrForbidden:
		return "not_found_or_forbidden"
	case KindValidation:
		return "validation_failed"
	default:
		return "unexpected"
	}
}

// Error 是服务层抛出的类型化错误。Message 可直接返回给调用方，Cause 只用于日志。
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is 按类别比较，使 errors.Is(err, errcode.ErrConflict) 成立。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// 用于 errors.Is 的哨兵值，仅比较 Kind。
var (
	ErrConflict            = &Error{Kind: KindConflict}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrNotFoundOrForbidden = &Error{Kind: KindNotFoundOrForbidden}
	ErrValidation          = &Error{Kind: KindValidation}
	ErrUnexpected          = &Error{Kind: KindUnexpected}
)

func Conflict(msg string) *Error     { return &Error{Kind: KindConflict, Message: msg} }
func Unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }
func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }

// NotFoundOrForbidden 合并“不存在”与“无权操作”，避免向非所有者泄露资源是否存在。
func NotFoundOrForbidden(msg string) *Error {
	return &Error{Kind: KindNotFoundOrForbidden, Message: msg}
}

// Validation 构造字段校验失败错误，fields 为字段名到原因的映射。
func Validation(msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

// Unexpected 包装底层错误，对外只暴露通用信息。
func Unexpected(cause error) *Error {
	return &Error{Kind: KindUnexpected, Message: "internal error", Cause: cause}
}

// KindOf 返回错误链中第一个 *Error 的类别；非类型化错误视为 Unexpected。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}
