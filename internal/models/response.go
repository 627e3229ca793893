package models

// APIResponse is the envelope used by every endpoint except /search.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

func NewSuccessResponse(data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Error:   message,
	}
}

// NewValidationErrorResponse carries per-field messages keyed by JSON field name.
func NewValidationErrorResponse(errors map[string]string) APIResponse {
	return APIResponse{
		Success: false,
		Error:   "Validation failed",
		Errors:  errors,
	}
}

// SearchResponse is the bare shape the mobile client reads from GET /search.
type SearchResponse struct {
	Users []*Developer `json:"users"`
}

// RegisterResponse is returned by POST /devs. Token authorises later edits of the profile.
type RegisterResponse struct {
	Developer *Developer `json:"developer"`
	Token     string     `json:"token,omitempty"`
}
