package services

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/falkordb/falkordb-mcp/core/domain"
	"github.com/falkordb/falkordb-mcp/core/infrastructure/falkordb"
	apperrors "github.com/falkordb/falkordb-mcp/core/shared/errors"
)

// newValidator returns a validator that knows the cypher_params tag.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("cypher_params", validateCypherParams)
	return v
}

func validateCypherParams(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Map {
		return false
	}
	for _, key := range field.MapKeys() {
		if key.Kind() != reflect.String || !falkordb.ValidParamName(key.String()) {
			return false
		}
	}
	return true
}

// normalizeRequest trims the query and fills the default graph, then
// validates. The returned error is a 400 AppError.
func normalizeRequest(v *validator.Validate, req domain.QueryRequest, defaultGraph string) (domain.QueryRequest, error) {
	req.Query = strings.TrimSpace(req.Query)
	req.GraphName = strings.TrimSpace(req.GraphName)
	if req.GraphName == "" {
		req.GraphName = defaultGraph
	}
	if req.Parameters == nil {
		req.Parameters = map[string]any{}
	}

	if err := v.Struct(req); err != nil {
		return req, validationError(err)
	}
	return req, nil
}

func validationError(err error) error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.Validation(err.Error())
	}
	for _, fe := range errs {
		switch {
		case fe.Field() == "Query" && fe.Tag() == "required":
			return apperrors.NewAppError(apperrors.ErrCodeMissingQuery, "Query is required", nil)
		case fe.Tag() == "cypher_params":
			return apperrors.Validation("Parameter names must be valid identifiers")
		}
	}
	return apperrors.Validation(errs.Error())
}
