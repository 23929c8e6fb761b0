package routerhelper

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// RouteGroup registers httprouter handles under a common path prefix.
type RouteGroup struct {
	r      *httprouter.Router
	prefix string
}

func NewRouteGroup(r *httprouter.Router, prefix string) *RouteGroup {
	return &RouteGroup{r: r, prefix: prefix}
}

func (g *RouteGroup) Group(path string) *RouteGroup {
	return NewRouteGroup(g.r, g.subPath(path))
}

func (g *RouteGroup) subPath(path string) string {
	return g.prefix + path
}

func (g *RouteGroup) Handle(method, path string, handle httprouter.Handle) {
	g.r.Handle(method, g.subPath(path), handle)
}

func (g *RouteGroup) Handler(method, path string, handler http.Handler) {
	g.r.Handler(method, g.subPath(path), handler)
}

func (g *RouteGroup) GET(path string, handle httprouter.Handle) {
	g.Handle(http.MethodGet, path, handle)
}

func (g *RouteGroup) POST(path string, handle httprouter.Handle) {
	g.Handle(http.MethodPost, path, handle)
}

func (g *RouteGroup) DELETE(path string, handle httprouter.Handle) {
	g.Handle(http.MethodDelete, path, handle)
}
