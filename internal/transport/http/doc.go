// Package http implements the HTTP handlers of the rainflow service. It
// is a thin layer between the chi router and the service layer.
//
// # Architecture Principles
//
// Handlers in this package follow these principles:
//
//	1. Thin handlers - minimal logic, delegate to services
//	2. HTTP-only concerns - request decoding, validation, response formatting
//	3. Error transformation - every error goes through the shared ErrorHandler
//
// # Request Flow
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → Engine
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Handler Structure
//
// Each handler follows this pattern:
//
//	func (h *Handler) HandleSomething(w http.ResponseWriter, r *http.Request) {
//	    var req domain.Request
//	    if err := render.DecodeJSON(r.Body, &req); err != nil {
//	        h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
//	        return
//	    }
//	    if err := h.validator.ValidateStruct(&req); err != nil {
//	        h.errorHandler.HandleError(w, r, err)
//	        return
//	    }
//
//	    result, err := h.service.DoSomething(r.Context(), req)
//	    if err != nil {
//	        h.errorHandler.HandleError(w, r, err)
//	        return
//	    }
//	    render.JSON(w, r, result)
//	}
//
// Errors are rendered as RFC 7807 problem details.
package http
