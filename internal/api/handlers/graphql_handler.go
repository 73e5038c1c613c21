package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/isdelr/goodcontent-auth/internal/auth"
	"github.com/isdelr/goodcontent-auth/internal/graph"
	"github.com/rs/zerolog/log"
)

const maxGraphQLBody = 1 << 20

// GraphQLHandler serves the GraphQL endpoint.
type GraphQLHandler struct {
	schema graphql.Schema
}

// NewGraphQLHandler creates a new GraphQLHandler.
func NewGraphQLHandler(schema graphql.Schema) *GraphQLHandler {
	return &GraphQLHandler{schema: schema}
}

// Serve executes a query sent as a JSON body or, for GET, as URL
// parameters. Executed operations always answer 200 with errors in the
// payload.
func (h *GraphQLHandler) Serve(w http.ResponseWriter, r *http.Request) {
	var req graph.Request
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if vars := q.Get("variables"); vars != "" {
			if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
				http.Error(w, "Invalid variables", http.StatusBadRequest)
				return
			}
		}
	default:
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxGraphQLBody)).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}
	if strings.TrimSpace(req.Query) == "" {
		http.Error(w, "Missing query", http.StatusBadRequest)
		return
	}

	result := graph.Execute(r.Context(), h.schema, &httpExchange{w: w, r: r}, req)
	if result.HasErrors() {
		log.Debug().Str("operation", req.OperationName).Interface("errors", result.Errors).Msg("GraphQL operation returned errors")
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// httpExchange exposes a request and its pending response to resolvers.
// Cookies queued here land in the header before the body is written.
type httpExchange struct {
	w       http.ResponseWriter
	r       *http.Request
	cookies map[string]string
}

func (e *httpExchange) Cookies() map[string]string {
	if e.cookies == nil {
		e.cookies = auth.ParseCookies(strings.Join(e.r.Header.Values("Cookie"), "; "))
	}
	return e.cookies
}

func (e *httpExchange) Header(name string) string {
	return e.r.Header.Get(name)
}

func (e *httpExchange) SetCookie(header string) {
	e.w.Header().Add("Set-Cookie", header)
}
