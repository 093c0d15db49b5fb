package view

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/dwarvesf/paywatch/internal/types/apperror"
)

type Response[T any] struct {
	Data    T          `json:"data"`
	Message string     `json:"message,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Kind    string      `json:"kind"`
	Message string      `json:"message"`
	Fields  []FieldItem `json:"fields,omitempty"`
}

type FieldItem struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ErrorResponse documents the error envelope for swagger.
type ErrorResponse struct {
	Data    interface{} `json:"data"`
	Message string      `json:"message,omitempty"`
	Error   ErrorBody   `json:"error"`
}

type MessageResponse struct {
	Data    string `json:"data"`
	Message string `json:"message,omitempty"`
}

// CreateResponse builds the envelope every endpoint returns. Only the kind
// and public message of err are exposed. When err carries validation errors
// and payload is the request struct, field names follow its json tags.
func CreateResponse[T any](data T, err error, payload interface{}, message string) Response[T] {
	resp := Response[T]{
		Data:    data,
		Message: message,
	}
	if err == nil {
		return resp
	}

	body := &ErrorBody{
		Kind:    string(apperror.KindOf(err)),
		Message: apperror.PublicMessage(err),
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		var appErr *apperror.Error
		if !errors.As(err, &appErr) {
			body.Kind = string(apperror.KindInvalidInput)
			body.Message = "request validation failed"
		}
		for _, fe := range verrs {
			body.Fields = append(body.Fields, FieldItem{
				Field: jsonFieldName(payload, fe.StructField()),
				Rule:  fe.Tag(),
			})
		}
	}
	resp.Error = body

	return resp
}

func jsonFieldName(payload interface{}, structField string) string {
	if payload == nil {
		return structField
	}
	t := reflect.TypeOf(payload)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return structField
	}

	f, ok := t.FieldByName(structField)
	if !ok {
		return structField
	}
	name := strings.Split(f.Tag.Get("json"), ",")[0]
	if name == "" || name == "-" {
		return structField
	}
	return name
}
