package dto

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// ListResponse wraps any paged collection. Skip/Limit echo the effective
// values after clamping so clients can page without re-deriving them.
type ListResponse struct {
	Data  interface{} `json:"data"`
	Total int64       `json:"total"`
	Skip  int         `json:"skip"`
	Limit int         `json:"limit"`
}
