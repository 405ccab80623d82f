package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func pathParam(r *http.Request, param string) string {
	return chi.URLParam(r, param)
}
