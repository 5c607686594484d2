package handler

import (
	"net/http"

	"github.com/tedkulp/cartulary-go/internal/middleware"
	"github.com/tedkulp/cartulary-go/internal/model"
)

// currentUser builds the model.User the core's access predicate needs
// from the auth middleware's context values — just enough to evaluate
// CanAccess without a database round trip on every request.
func currentUser(r *http.Request) model.User {
	return model.User{
		ID:          middleware.UserIDFromContext(r.Context()),
		IsSuperuser: middleware.IsSuperuserFromContext(r.Context()),
	}
}
