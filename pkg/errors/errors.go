package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	CodeBotError   = "BOT_ERROR"
	CodeAPIError   = "API_ERROR"
	CodeValidation = "VALIDATION_ERROR"
	CodeCache      = "CACHE_ERROR"
	CodeService    = "SERVICE_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeScrape     = "SCRAPE_ERROR"
)

type BotError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *BotError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *BotError) Unwrap() error {
	return e.Cause
}

func NewBotError(message, code string, statusCode int, context map[string]any) *BotError {
	return &BotError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Context:    context,
	}
}

func (e *BotError) WithCause(cause error) *BotError {
	e.Cause = cause
	return e
}

type APIError struct {
	*BotError
}

func NewAPIError(message string, statusCode int, context map[string]any) *APIError {
	return &APIError{
		BotError: &BotError{
			Message:    message,
			Code:       CodeAPIError,
			StatusCode: statusCode,
			Context:    context,
		},
	}
}

type ValidationError struct {
	*BotError
	Field string
	Value interface{}
}

func NewValidationError(message, field string, value interface{}) *ValidationError {
	return &ValidationError{
		BotError: &BotError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: http.StatusBadRequest,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

type CacheError struct {
	*BotError
	Operation string
	Key       string
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		BotError: &BotError{
			Message:    message,
			Code:       CodeCache,
			StatusCode: http.StatusInternalServerError,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}

type ServiceError struct {
	*BotError
	Service   string
	Operation string
}

func NewServiceError(message, service, operation string, cause error) *ServiceError {
	return &ServiceError{
		BotError: &BotError{
			Message:    message,
			Code:       CodeService,
			StatusCode: http.StatusInternalServerError,
			Context: map[string]any{
				"service":   service,
				"operation": operation,
			},
			Cause: cause,
		},
		Service:   service,
		Operation: operation,
	}
}

// NotFoundError reports that the page was fetched but the expected node was absent.
type NotFoundError struct {
	*BotError
	Resource string
}

func NewNotFoundError(message, resource string) *NotFoundError {
	return &NotFoundError{
		BotError: &BotError{
			Message:    message,
			Code:       CodeNotFound,
			StatusCode: http.StatusNotFound,
			Context: map[string]any{
				"resource": resource,
			},
		},
		Resource: resource,
	}
}

// ScrapeError reports a page whose layout no longer matches the extractor.
type ScrapeError struct {
	*BotError
	URL      string
	Selector string
}

func NewScrapeError(message, url, selector string, cause error) *ScrapeError {
	return &ScrapeError{
		BotError: &BotError{
			Message:    message,
			Code:       CodeScrape,
			StatusCode: http.StatusBadGateway,
			Context: map[string]any{
				"url":      url,
				"selector": selector,
			},
			Cause: cause,
		},
		URL:      url,
		Selector: selector,
	}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return stderrors.As(err, &nf)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return stderrors.As(err, &ve)
}

// StatusCode returns the HTTP status carried by a typed error, 500 otherwise.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var nf *NotFoundError
	if stderrors.As(err, &nf) {
		return nf.StatusCode
	}
	var ve *ValidationError
	if stderrors.As(err, &ve) {
		return ve.StatusCode
	}
	var se *ScrapeError
	if stderrors.As(err, &se) {
		return se.StatusCode
	}
	var ae *APIError
	if stderrors.As(err, &ae) && ae.StatusCode > 0 {
		return ae.StatusCode
	}
	var be *BotError
	if stderrors.As(err, &be) && be.StatusCode > 0 {
		return be.StatusCode
	}
	return http.StatusInternalServerError
}
