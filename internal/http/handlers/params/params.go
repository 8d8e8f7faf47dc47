// Package params разбирает параметры пути и запроса, общие для обработчиков.
package params

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
)

// ErrInvalidID параметр пути не является положительным целым.
var ErrInvalidID = errors.New("invalid id")

// ID читает положительный целочисленный параметр пути name.
func ID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

// Page читает limit и offset из строки запроса. Некорректные значения заменяются нулями.
func Page(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	limit, _ = strconv.Atoi(q.Get("limit"))
	offset, _ = strconv.Atoi(q.Get("offset"))
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
