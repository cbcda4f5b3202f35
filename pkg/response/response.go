// Package response holds the error envelope shared by middleware and
// handlers.
package response

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func Error(code, message string, details any) ErrorBody {
	return ErrorBody{Code: code, Message: message, Details: details}
}
