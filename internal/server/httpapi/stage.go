package httpapi

import "net/http"

// Stage is one named step of the request pipeline.
type Stage interface {
	Name() string
	Wrap(next http.Handler) http.Handler
}

// chain wraps h so that stages run in the order given.
func chain(h http.Handler, stages ...Stage) http.Handler {
	for i := len(stages) - 1; i >= 0; i-- {
		h = stages[i].Wrap(h)
	}
	return h
}
