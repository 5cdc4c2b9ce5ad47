package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind тип ошибки, по которому вызывающая сторона решает, что делать дальше
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation_error"
	KindNotFound         ErrorKind = "not_found"
	KindAcquisition      ErrorKind = "acquisition_failure"
	KindSummarization    ErrorKind = "summarization_failed"
	KindStoreUnavailable ErrorKind = "store_unavailable"
	KindNotInitialized   ErrorKind = "not_initialized"
	KindMatchFailed      ErrorKind = "match_failed"
	KindTimeout          ErrorKind = "timeout"
	KindInternal         ErrorKind = "internal_error"
)

// AppError ошибка приложения с типом и исходной причиной
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error реализует интерфейс error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap возвращает исходную причину
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError создает ошибку заданного типа
func NewError(kind ErrorKind, message string, cause error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: cause}
}

func NewValidationError(message string, cause error) *AppError {
	return NewError(KindValidation, message, cause)
}

func NewNotFoundError(message string, cause error) *AppError {
	return NewError(KindNotFound, message, cause)
}

func NewAcquisitionError(message string, cause error) *AppError {
	return NewError(KindAcquisition, message, cause)
}

func NewStoreUnavailableError(message string, cause error) *AppError {
	return NewError(KindStoreUnavailable, message, cause)
}

func NewMatchFailedError(message string, cause error) *AppError {
	return NewError(KindMatchFailed, message, cause)
}

// ErrNotInitialized возвращается при запросе к хранилищу до первого заполнения
var ErrNotInitialized = NewError(KindNotInitialized, "хранилище сегментов не инициализировано", nil)

// KindOf возвращает тип ошибки. Истекший контекст считается таймаутом,
// ошибки без типа относятся к KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}

// IsKind проверяет тип ошибки
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// Classify оборачивает err в AppError: истекший контекст становится таймаутом,
// уже типизированные ошибки возвращаются как есть, остальные получают kind.
func Classify(err error, kind ErrorKind, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindTimeout, message+": превышено время ожидания", err)
	}
	return NewError(kind, message, err)
}
