package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/sakif/feedclient/internal/apperror"
)

// errorBody covers the error shapes the feed servers answer with:
//
//	{"detail": "Username already registered"}
//	{"detail": [{"loc": ["body", "content"], "msg": "field required"}]}
//	{"error": "validation_error", "message": "content is required", "field": "content"}
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Field   string          `json:"field"`
}

type validationItem struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// decodeError builds the *apperror.HTTPError for a non-2xx response. A body
// that is not JSON leaves Message empty; the raw bytes stay in Body.
func decodeError(status int, data []byte) error {
	e := &apperror.HTTPError{Status: status, Body: data}

	var b errorBody
	if err := json.Unmarshal(data, &b); err != nil {
		return e
	}
	e.Field = b.Field

	var detail string
	var items []validationItem
	switch {
	case len(b.Detail) == 0:
	case json.Unmarshal(b.Detail, &detail) == nil:
		e.Message = detail
	case json.Unmarshal(b.Detail, &items) == nil && len(items) > 0:
		e.Message = items[0].Msg
		if n := len(items[0].Loc); n > 0 && e.Field == "" {
			e.Field = fmt.Sprint(items[0].Loc[n-1])
		}
	}

	if e.Message == "" {
		e.Message = b.Message
	}
	if e.Message == "" {
		e.Message = b.Error
	}
	return e
}
