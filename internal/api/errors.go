package api

// APIError is the JSON body of every failed request.
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

const (
	ErrorCodeInternalServerError = "INTERNAL_SERVER_ERROR"
	ErrorCodeValidation          = "VALIDATION_ERROR"
	ErrorCodeValueOutOfRange     = "VALUE_OUT_OF_RANGE"
	ErrorCodeNotFound            = "NOT_FOUND"
)
