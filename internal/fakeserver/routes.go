package fakeserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler returns the router serving the token server and the storage
// node under the same origin.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(s.withTraceID)
	router.Use(s.withLogging)

	// token server
	router.Get("/1.0/sync/1.5", s.getToken)

	// storage node, Hawk signed
	router.Group(func(r chi.Router) {
		r.Use(s.withHawk)
		r.Use(s.withStorageHeaders)

		r.Get("/1.5/{uid}/info/configuration", s.getInfoConfiguration)
		r.Get("/1.5/{uid}/info/collections", s.getInfoCollections)

		r.Delete("/1.5/{uid}", s.deleteAll)
		r.Delete("/1.5/{uid}/storage", s.deleteAll)

		r.Get("/1.5/{uid}/storage/{collection}", s.getCollection)
		r.Post("/1.5/{uid}/storage/{collection}", s.postCollection)
		r.Delete("/1.5/{uid}/storage/{collection}", s.deleteCollection)

		r.Get("/1.5/{uid}/storage/{collection}/{id}", s.getRecord)
		r.Put("/1.5/{uid}/storage/{collection}/{id}", s.putRecord)
	})

	return router
}
