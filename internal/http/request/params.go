package request

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// RouteIntParam returns an URL route parameter as int.
func RouteIntParam(r *http.Request, param string) int {
	vars := mux.Vars(r)
	value, err := strconv.Atoi(vars[param])
	if err != nil {
		return 0
	}

	if value < 0 {
		return 0
	}

	return value
}

// QueryIntParam returns a query string parameter as int, or the default
// when the parameter is absent or malformed.
func QueryIntParam(r *http.Request, param string, defaultValue int) int {
	value, err := strconv.Atoi(r.URL.Query().Get(param))
	if err != nil {
		return defaultValue
	}

	if value < 0 {
		return defaultValue
	}

	return value
}

// QueryStringParam returns a query string parameter, or the default when
// the parameter is absent.
func QueryStringParam(r *http.Request, param, defaultValue string) string {
	if value := r.URL.Query().Get(param); value != "" {
		return value
	}
	return defaultValue
}
