package types

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	// Code distinguishes failures callers must treat differently, such as an ambiguous payment outcome.
	Code string `json:"code,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
