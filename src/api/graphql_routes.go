package api

import (
	_ "embed"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	graphql "github.com/graph-gophers/graphql-go"

	"campus-community/src/auth"
	"campus-community/src/directory"
)

const maxRequestBytes = 1 << 20

//go:embed schema.graphql
var schemaSDL string

type GraphQLRoutes struct {
	schema   *graphql.Schema
	verifier CredentialVerifier
	logger   *slog.Logger
}

// NewGraphQLRoutes parses the directory schema against backend. It panics if
// the resolvers do not match the schema.
func NewGraphQLRoutes(backend Backend, verifier CredentialVerifier, logger *slog.Logger) *GraphQLRoutes {
	root := &rootResolver{backend: backend, logger: logger}
	return &GraphQLRoutes{
		schema:   graphql.MustParseSchema(schemaSDL, root, graphql.MaxDepth(8)),
		verifier: verifier,
		logger:   logger,
	}
}

func (r *GraphQLRoutes) handleGraphQL(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse(directory.CodeBadUserInput, "method not allowed"))
		return
	}

	var body directory.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxRequestBytes)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse(directory.CodeBadUserInput, "invalid JSON body"))
		return
	}
	if strings.TrimSpace(body.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse(directory.CodeBadUserInput, "query is required"))
		return
	}
	var vars map[string]any
	if len(body.Variables) > 0 {
		if err := json.Unmarshal(body.Variables, &vars); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse(directory.CodeBadUserInput, "variables must be a JSON object"))
			return
		}
	}

	viewerID, err := r.viewer(req)
	if err != nil {
		writeJSON(w, http.StatusOK, errorResponse(directory.CodeUnauthenticated, "session expired, log in again"))
		return
	}

	resp := r.schema.Exec(withViewer(req.Context(), viewerID), body.Query, body.OperationName, vars)
	status := http.StatusOK
	for _, qe := range resp.Errors {
		// Errors without a resolver error come from parsing or validation.
		if qe.ResolverError != nil {
			continue
		}
		status = http.StatusBadRequest
		if qe.Extensions == nil {
			qe.Extensions = map[string]any{"code": directory.CodeBadUserInput}
		}
	}
	if status != http.StatusOK {
		r.logger.Debug("graphql request rejected", "operation", body.OperationName, "error", resp.Errors[0].Message)
	}
	writeJSON(w, status, resp)
}

// viewer returns "" for anonymous requests and an error for unusable
// credentials.
func (r *GraphQLRoutes) viewer(req *http.Request) (string, error) {
	return requestViewer(req, r.verifier)
}

func requestViewer(req *http.Request, verifier CredentialVerifier) (string, error) {
	header := strings.TrimSpace(req.Header.Get("Authorization"))
	if header == "" {
		return "", nil
	}
	token := auth.BearerToken(header)
	if token == "" || verifier == nil {
		return "", auth.ErrInvalidCredential
	}
	return verifier.UserID(token)
}

func errorResponse(code, msg string) directory.Response {
	return directory.Response{Errors: []directory.ResponseError{{
		Message:    msg,
		Extensions: &directory.ErrorExtensions{Code: code},
	}}}
}
