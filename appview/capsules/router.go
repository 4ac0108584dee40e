package capsules

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"memorylane.app/core/appview/middleware"
)

func (c *Capsules) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.AuthMiddleware(c.Sessions))

	r.Get("/", c.list)
	r.Post("/", c.create)
	r.Post("/assistant", c.assist)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", c.content)
		r.Post("/unlock", c.manualUnlock)
		r.Post("/react", c.react)
		r.Post("/comments", c.comment)
		r.Post("/collaborators", c.collaborate)
		r.Post("/media", c.addMedia)
	})

	return r
}
