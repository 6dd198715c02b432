package models

// ErrorResponse is the body of every non-2xx reply from this service.
type ErrorResponse struct {
	Error string `json:"error"`
}
