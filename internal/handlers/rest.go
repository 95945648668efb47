package handlers

import (
	"github.com/Brownie44l1/webby/internal/request"
	"github.com/Brownie44l1/webby/internal/response"
	"github.com/Brownie44l1/webby/internal/router"
)

// Resource is a REST collection. Index and Create act on the collection,
// Show, Update and Destroy on a member addressed below the route prefix.
type Resource interface {
	Index(w *response.Response, r *request.Request)
	Show(w *response.Response, r *request.Request)
	Create(w *response.Response, r *request.Request)
	Update(w *response.Response, r *request.Request)
	Destroy(w *response.Response, r *request.Request)
}

// NopResource implements every Resource method as a no-op. Embed it and
// override the methods a resource supports; the rest answer 501.
type NopResource struct{}

func (NopResource) Index(*response.Response, *request.Request)   {}
func (NopResource) Show(*response.Response, *request.Request)    {}
func (NopResource) Create(*response.Response, *request.Request)  {}
func (NopResource) Update(*response.Response, *request.Request)  {}
func (NopResource) Destroy(*response.Response, *request.Request) {}

// RESTHandler dispatches requests to res by method. Register it with
// request.MethodREST.
func RESTHandler(res Resource) router.Handler {
	return func(w *response.Response, r *request.Request) {
		w.SetStatus(response.StatusNotImplemented)

		switch r.Method {
		case request.MethodDelete:
			res.Destroy(w, r)
		case request.MethodGet:
			if r.Path == r.Route {
				res.Index(w, r)
			} else {
				res.Show(w, r)
			}
		case request.MethodPost:
			res.Create(w, r)
		case request.MethodPut:
			res.Update(w, r)
		}
	}
}
