package domain

import "net/http"

// Verb is the request class the rate limiter counts against.
type Verb string

const (
	VerbRead   Verb = "read"
	VerbWrite  Verb = "write"
	VerbDelete Verb = "delete"
)

func ClassifyMethod(method string) Verb {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return VerbRead
	case http.MethodDelete:
		return VerbDelete
	default:
		return VerbWrite
	}
}
