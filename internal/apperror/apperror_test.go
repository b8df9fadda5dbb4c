package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{"NotFound", NotFound("post", "7"), ErrNotFound, true},
		{"ValidationFailed", ValidationFailed("content", "content is required"), ErrValidation, true},
		{"Conflict", Conflict("follow", "3"), ErrConflict, true},
		{"Forbidden", Forbidden("only the author can change this post"), ErrForbidden, true},
		{"Unauthorized", Unauthorized("unknown user"), ErrUnauthorized, true},
		{"NotFound is not a validation error", NotFound("post", "7"), ErrValidation, false},
		{"HTTPError 401", &HTTPError{Status: http.StatusUnauthorized}, ErrUnauthorized, true},
		{"wrapped HTTPError 404", fmt.Errorf("api: getting post 7: %w", &HTTPError{Status: http.StatusNotFound}), ErrNotFound, true},
		{"HTTPError 503", &HTTPError{Status: http.StatusServiceUnavailable}, ErrServer, true},
		{"HTTPError 418 counts as a client error", &HTTPError{Status: http.StatusTeapot}, ErrValidation, true},
		{"HTTPError 500 is not a 401", &HTTPError{Status: http.StatusInternalServerError}, ErrUnauthorized, false},
		{"Transport", Transport("dispatch: GET /posts", errors.New("connection refused")), ErrTransport, true},
		{"Transport keeps the cause", Transport("dispatch: GET /posts", errContextGone), errContextGone, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

var errContextGone = errors.New("context gone")

func TestAppErrorMessage(t *testing.T) {
	err := NotFound("comment", "12")
	if got, want := err.Error(), "comment not found with id 12"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if err.Unwrap() != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), ErrNotFound)
	}
	if v := ValidationFailed("username", "username is required"); v.Field != "username" {
		t.Errorf("Field = %q, want %q", v.Field, "username")
	}
}

func TestHTTPErrorMessage(t *testing.T) {
	tests := []struct {
		err  *HTTPError
		want string
	}{
		{&HTTPError{Status: 404}, "http 404: Not Found"},
		{&HTTPError{Status: 400, Message: "content is required"}, "http 400: content is required"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusOK, nil},
		{http.StatusNoContent, nil},
		{http.StatusBadRequest, ErrValidation},
		{http.StatusUnprocessableEntity, ErrValidation},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusConflict, ErrConflict},
		{http.StatusInternalServerError, ErrServer},
		{http.StatusBadGateway, ErrServer},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			if got := Classify(tt.status); got != tt.want {
				t.Errorf("Classify(%d) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"transport", Transport("dispatch", errors.New("dial tcp: refused")), MsgTransport},
		{"unauthorized", &HTTPError{Status: 401, Message: "token expired"}, MsgUnauthorized},
		{"forbidden hides server text", &HTTPError{Status: 403, Message: "not your post"}, MsgForbidden},
		{"not found", &HTTPError{Status: 404}, MsgNotFound},
		{"server hides server text", &HTTPError{Status: 500, Message: "db exploded"}, MsgServer},
		{"validation uses server text", &HTTPError{Status: 400, Message: "username already taken", Field: "username"}, "username already taken"},
		{"validation without text", &HTTPError{Status: 400}, MsgUnknown},
		{"conflict uses server text", &HTTPError{Status: 409, Message: "already following"}, "already following"},
		{"app validation", ValidationFailed("content", "content is required"), "content is required"},
		{"unclassified", errors.New("boom"), MsgUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusAndFieldOf(t *testing.T) {
	err := fmt.Errorf("api: signup: %w", &HTTPError{Status: 400, Field: "username"})

	if got := StatusOf(err); got != 400 {
		t.Errorf("StatusOf() = %d, want 400", got)
	}
	if got := FieldOf(err); got != "username" {
		t.Errorf("FieldOf() = %q, want %q", got, "username")
	}
	if got := FieldOf(ValidationFailed("content", "too long")); got != "content" {
		t.Errorf("FieldOf(AppError) = %q, want %q", got, "content")
	}
	if got := StatusOf(errors.New("plain")); got != 0 {
		t.Errorf("StatusOf(plain) = %d, want 0", got)
	}
}
