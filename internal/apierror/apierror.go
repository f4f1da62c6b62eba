// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}

// LineaError points a business rule failure at the request line (1-based)
// and product that caused it.
type LineaError struct {
	Detail     string  `json:"detail"`
	Codigo     string  `json:"codigo"`
	Linea      int     `json:"linea,omitempty"`
	ProductoID *string `json:"producto_id,omitempty"`
}

func NewLinea(codigo, msg string, linea int, productoID *string) *LineaError {
	return &LineaError{Detail: msg, Codigo: codigo, Linea: linea, ProductoID: productoID}
}
