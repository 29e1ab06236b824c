// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteCreated(w, resource)
//	httputil.WriteNoContent(w)
//
// Error responses:
//
//	httputil.WriteBadRequest(w, "invalid input")
//	httputil.WriteUnauthorized(w, "token expired")
//	httputil.WriteForbidden(w, "insufficient permissions")
//
// # Request Parsing
//
// JSON parsing:
//
//	var req createEventRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // error response already written
//	}
//
// Path and query parameters:
//
//	id, ok := httputil.ParsePathInt64OrError(w, mux.Vars(r), "id")
//	stammIDs, err := httputil.ParseQueryInt64List(r, "stamm")
//	confirmed, err := httputil.ParseQueryBool(r, "confirmed", false)
//
// # Related Packages
//
//   - pkg/middleware: authentication, request ids, access logging
package httputil
