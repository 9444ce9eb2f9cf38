package handler

import (
	"context"
	"net/http"

	"tradingjournal/src/model"
)

type exceptionLister interface {
	Latest(ctx context.Context, limit int) ([]model.Exception, error)
}

// ListExceptionsHandler shows the most recent captured failures to admins.
func ListExceptionsHandler(repo exceptionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _, ok := pagination(w, r, 50, 500)
		if !ok {
			return
		}
		list, err := repo.Latest(r.Context(), limit)
		if err != nil {
			internalError(w, r, "ListExceptions", err, nil)
			return
		}
		if list == nil {
			list = []model.Exception{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}
