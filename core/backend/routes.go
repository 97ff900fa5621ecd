package backend

import (
	"net/http"

	"github.com/apiforge-io/apiforge/core"
	"github.com/apiforge-io/apiforge/core/access"
	"github.com/apiforge-io/apiforge/core/schema"
	"github.com/apiforge-io/apiforge/core/store"
)

// RouteSpec describes one externally visible route of a collection, as
// computed from its route settings. This is the contract API clients
// and the generated documentation rely on.
type RouteSpec struct {
	Operation core.Operation `json:"operation"`
	Method    string         `json:"method"`
	Path      string         `json:"path"`
	Enabled   bool           `json:"enabled"`
	Private   bool           `json:"private"`
}

// Routes computes the five route specs of a collection. A custom path
// overrides the slug per operation; absent settings mean enabled and
// public.
func Routes(c *schema.Collection) []RouteSpec {
	specs := make([]RouteSpec, 0, len(core.Operations))
	for _, op := range core.Operations {
		rc := c.Route(op)
		path := "/api/" + c.Path(op)
		if op == core.OperationGetOne || op == core.OperationPut || op == core.OperationDelete {
			path += "/{item_id}"
		}
		specs = append(specs, RouteSpec{
			Operation: op,
			Method:    op.Method(),
			Path:      path,
			Enabled:   rc.Enabled,
			Private:   rc.IsPrivate,
		})
	}
	return specs
}

// resolveCollection finds the collection whose effective path segment
// for the given operation matches the requested one. Because custom
// paths are configured per operation, the same URL segment can resolve
// to different collections for different operations.
func resolveCollection(state store.State, pathSegment string, op core.Operation) (*schema.Collection, bool) {
	for i := range state.Collections {
		if state.Collections[i].Path(op) == pathSegment {
			return &state.Collections[i], true
		}
	}
	return nil, false
}

// checkRouteAccess gates a data-plane request against the operation's
// route configuration. A disabled route behaves as if it does not exist
// at all, so it yields 404 rather than 403. A private route demands the
// operation's API key and yields 401 otherwise.
func (b *Backend) checkRouteAccess(w http.ResponseWriter, r *http.Request, c *schema.Collection, op core.Operation) bool {
	rc := c.Route(op)
	if !rc.Enabled {
		writeNotFound(w, "Collection not found")
		return false
	}
	if rc.IsPrivate && !access.Authorized(r, rc.APIKey) {
		writeError(w, http.StatusUnauthorized, "Invalid or missing API key", codeUnauthorized)
		return false
	}
	return true
}
