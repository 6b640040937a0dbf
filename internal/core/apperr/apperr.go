// Package apperr 业务错误分类，transport 层按 Kind 映射 HTTP 状态码。
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindInvalidID
	KindUnauthenticated
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindInvalidState
	KindLastAdmin
	KindSelfRevoke
	KindNoChange
)

var kindNames = map[Kind]string{
	KindInternal:        "Internal",
	KindInvalidInput:    "InvalidInput",
	KindInvalidID:       "InvalidId",
	KindUnauthenticated: "Unauthenticated",
	KindUnauthorized:    "Unauthorized",
	KindForbidden:       "Forbidden",
	KindNotFound:        "NotFound",
	KindConflict:        "Conflict",
	KindInvalidState:    "InvalidState",
	KindLastAdmin:       "LastAdminGuard",
	KindSelfRevoke:      "SelfRevoke",
	KindNoChange:        "NoChange",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// Status 对应的 HTTP 状态码
func (k Kind) Status() int {
	switch k {
	case KindInvalidInput, KindInvalidID, KindInvalidState, KindLastAdmin, KindSelfRevoke, KindNoChange:
		return http.StatusBadRequest
	case KindUnauthenticated, KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error 统一错误对象：Msg 面向调用方，Err 为内部原因（不直接暴露）
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(k Kind, msg string) error { return &Error{Kind: k, Msg: msg} }

func InvalidInput(msg string) error    { return newErr(KindInvalidInput, msg) }
func InvalidID(msg string) error       { return newErr(KindInvalidID, msg) }
func Unauthenticated(msg string) error { return newErr(KindUnauthenticated, msg) }
func Unauthorized(msg string) error    { return newErr(KindUnauthorized, msg) }
func Forbidden(msg string) error       { return newErr(KindForbidden, msg) }
func NotFound(msg string) error        { return newErr(KindNotFound, msg) }
func Conflict(msg string) error        { return newErr(KindConflict, msg) }
func InvalidState(msg string) error    { return newErr(KindInvalidState, msg) }
func LastAdmin(msg string) error       { return newErr(KindLastAdmin, msg) }
func SelfRevoke(msg string) error      { return newErr(KindSelfRevoke, msg) }
func NoChange(msg string) error        { return newErr(KindNoChange, msg) }
func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf 非 *Error 一律视为 Internal
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

func Is(err error, k Kind) bool { return err != nil && KindOf(err) == k }

// Message 取面向调用方的文案
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Msg != "" {
		return ae.Msg
	}
	return http.StatusText(http.StatusInternalServerError)
}
