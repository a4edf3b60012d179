package funnerlife

import "fmt"

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("funnerlife api: %d %s", e.StatusCode, e.Message)
}
