package domain

import "encoding/json"

type StateKind int

const (
	StateIdle StateKind = iota
	StateLoading
	StateSuccess
	StateError
)

func (k StateKind) String() string {
	switch k {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// ViewState is what a screen renders: idle, loading, success with data, or
// error with a message. The zero value is Idle.
type ViewState[T any] struct {
	kind    StateKind
	data    T
	message string
}

func Idle[T any]() ViewState[T] {
	return ViewState[T]{kind: StateIdle}
}

func Loading[T any]() ViewState[T] {
	return ViewState[T]{kind: StateLoading}
}

func Success[T any](data T) ViewState[T] {
	return ViewState[T]{kind: StateSuccess, data: data}
}

func Failure[T any](message string) ViewState[T] {
	return ViewState[T]{kind: StateError, message: message}
}

func (s ViewState[T]) Kind() StateKind {
	return s.kind
}

// Data returns the payload; ok is false unless the state is Success.
func (s ViewState[T]) Data() (T, bool) {
	return s.data, s.kind == StateSuccess
}

func (s ViewState[T]) Message() string {
	return s.message
}

// Match calls exactly one handler for the state's variant.
func Match[T, R any](
	s ViewState[T],
	onIdle func() R,
	onLoading func() R,
	onSuccess func(T) R,
	onError func(string) R,
) R {
	switch s.kind {
	case StateLoading:
		return onLoading()
	case StateSuccess:
		return onSuccess(s.data)
	case StateError:
		return onError(s.message)
	default:
		return onIdle()
	}
}

func (s ViewState[T]) MarshalJSON() ([]byte, error) {
	out := struct {
		State   string `json:"state"`
		Data    any    `json:"data,omitempty"`
		Message string `json:"message,omitempty"`
	}{State: s.kind.String(), Message: s.message}

	if s.kind == StateSuccess {
		out.Data = s.data
	}
	return json.Marshal(out)
}

// MapState converts the payload of a Success state and keeps every other
// variant as is.
func MapState[T, U any](s ViewState[T], f func(T) U) ViewState[U] {
	switch s.kind {
	case StateSuccess:
		return Success(f(s.data))
	case StateError:
		return Failure[U](s.message)
	case StateLoading:
		return Loading[U]()
	default:
		return Idle[U]()
	}
}
