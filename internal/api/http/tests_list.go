// internal/api/http/tests_list.go
package http

import (
	"net/http"
	"strings"

	"github.com/coursekit/coursekit-lms/internal/course"
)

// ListTestsHandler returns test summaries for authoring: binding a TEST
// content item starts with finding the test id. Routed behind authoring:write;
// summaries carry no answer keys either way.
func ListTestsHandler(st course.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := course.TestListOpts{
			Q: strings.TrimSpace(r.URL.Query().Get("q")),
		}
		opts.Limit, opts.Offset = pageParams(r)

		out, err := st.ListTests(r.Context(), opts)
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}
