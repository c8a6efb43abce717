package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/kanji-guesser/go-server/internal/game"
)

// result is what a handler produces: either success or failure.
type result interface{ isResult() }

// success is a successful response.
type success struct {
	status int
	body   any
}

// failure carries an error to be classified by render.
type failure struct{ err error }

func (success) isResult() {}
func (failure) isResult() {}

type errorBody struct {
	Error string `json:"error"`
}

// handlerFunc is a handler that returns its outcome instead of writing it.
type handlerFunc func(r *http.Request) result

// handle adapts h to http.HandlerFunc; every response goes through render.
func (s *Server) handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, r, h(r))
	}
}

func render(w http.ResponseWriter, r *http.Request, res result) {
	switch v := res.(type) {
	case success:
		writeJSON(w, v.status, v.body)
	case failure:
		status, msg := classify(v.err)
		if status == http.StatusInternalServerError {
			log.Error().Err(v.err).
				Str("req_id", chimw.GetReqID(r.Context())).
				Str("path", r.URL.Path).
				Msg("request failed")
		}
		writeJSON(w, status, errorBody{Error: msg})
	default:
		panic(fmt.Sprintf("httpserver: unknown result %T", res))
	}
}

// classify maps domain errors to a status code and client-facing message.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, game.ErrNotFound):
		return http.StatusNotFound, game.ErrNotFound.Error()
	case errors.Is(err, game.ErrPlayerNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, game.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, game.ErrForbidden):
		return http.StatusForbidden, err.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}
