package server

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/vango-dev/vroute/internal/errors"
	"github.com/vango-dev/vroute/pkg/router"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

type matchResponse struct {
	Pathname  string            `json:"pathname"`
	Pattern   string            `json:"pattern,omitempty"`
	Match     *router.Match     `json:"match,omitempty"`
	Selection *router.Selection `json:"selection,omitempty"`
}

type generateRequest struct {
	Pattern string            `json:"pattern"`
	Params  map[string]string `json:"params"`
}

type generateResponse struct {
	Path string `json:"path"`
}

type routesResponse struct {
	Routes []router.Route `json:"routes"`
}

type locationResponse struct {
	router.State
	Href string `json:"href"`
	Code string `json:"code,omitempty"`
}

type navigateRequest struct {
	To        string         `json:"to,omitempty"`
	Href      string         `json:"href,omitempty"`
	Replace   bool           `json:"replace,omitempty"`
	State     any            `json:"state,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
	Canonical bool           `json:"canonical,omitempty"`
}

type goRequest struct {
	Delta int `json:"delta"`
}

// handleMatch serves GET /api/match?path=. With a pattern parameter it
// matches that one pattern; otherwise it selects from the route table.
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pathname := q.Get("path")
	if pathname == "" {
		writeError(w, http.StatusBadRequest, errors.New("E140").WithDetail("path is required"))
		return
	}

	pattern := q.Get("pattern")
	if pattern == "" {
		sel, err := s.router.Resolve(pathname)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, errors.FromError(err, "E201"))
			return
		}
		if sel == nil {
			writeError(w, http.StatusNotFound, errors.New("E205").WithDetail("no route matches "+pathname))
			return
		}
		writeJSON(w, http.StatusOK, matchResponse{Pathname: pathname, Selection: sel})
		return
	}

	opts, err := matchOptions(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("E140").Wrap(err))
		return
	}
	match, err := s.router.Matcher().Match(pathname, pattern, opts)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, errors.FromError(err, "E201"))
		return
	}
	writeJSON(w, http.StatusOK, matchResponse{Pathname: pathname, Pattern: pattern, Match: match})
}

func matchOptions(q map[string][]string) (router.Options, error) {
	var opts router.Options
	flags := map[string]*bool{
		"exact":     &opts.Exact,
		"strict":    &opts.Strict,
		"sensitive": &opts.Sensitive,
	}
	for name, dst := range flags {
		values, ok := q[name]
		if !ok || len(values) == 0 {
			continue
		}
		v, err := strconv.ParseBool(values[0])
		if err != nil {
			return opts, stderrors.New(name + " must be a boolean")
		}
		*dst = v
	}
	return opts, nil
}

// handleGenerate serves POST /api/generate.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Pattern == "" {
		writeError(w, http.StatusBadRequest, errors.New("E140").WithDetail("pattern is required"))
		return
	}

	path, err := s.router.Matcher().GeneratePath(req.Pattern, req.Params)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, errors.FromError(err, "E201"))
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{Path: path})
}

// handleRoutes serves GET /api/routes.
func (s *Server) handleRoutes(w http.ResponseWriter, _ *http.Request) {
	routes := s.router.Routes()
	if routes == nil {
		routes = []router.Route{}
	}
	writeJSON(w, http.StatusOK, routesResponse{Routes: routes})
}

// handleLocation serves GET /api/location.
func (s *Server) handleLocation(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.location())
}

// handleNavigate serves POST /api/navigate.
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	to := req.To
	switch {
	case to != "" && req.Href != "":
		writeError(w, http.StatusBadRequest, errors.New("E140").WithDetail("to and href are exclusive"))
		return
	case req.Href != "":
		to = s.router.History().ParseHref(req.Href)
	}

	var opts []router.NavigateOption
	if req.Replace {
		opts = append(opts, router.WithReplace())
	}
	if req.State != nil {
		opts = append(opts, router.WithState(req.State))
	}
	if len(req.Params) > 0 {
		opts = append(opts, router.WithParams(req.Params))
	}
	if req.Canonical {
		opts = append(opts, router.WithCanonicalPath())
	}

	if err := s.router.Navigate(to, opts...); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("E140").WithDetail("invalid navigation target").Wrap(err))
		return
	}
	writeJSON(w, http.StatusOK, s.location())
}

// handleGo serves POST /api/go.
func (s *Server) handleGo(w http.ResponseWriter, r *http.Request) {
	var req goRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	s.router.Go(req.Delta)
	writeJSON(w, http.StatusOK, s.location())
}

func (s *Server) location() locationResponse {
	state := s.router.State()
	resp := locationResponse{
		State: state,
		Href:  s.router.History().CreateHref(state.Location),
	}
	if err := s.router.Err(); err != nil {
		resp.Code = errors.FromError(err, "E201").Code
	}
	return resp
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("E140").WithDetail("invalid JSON body").Wrap(err))
		return false
	}
	if err := dec.Decode(&struct{}{}); !stderrors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, errors.New("E140").WithDetail("trailing data after JSON body"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err *errors.CodedError) {
	resp := errorResponse{
		Code:    err.Code,
		Message: err.Message,
		Detail:  err.Detail,
	}
	if err.Wrapped != nil {
		resp.Detail = err.Wrapped.Error()
		if err.Detail != "" {
			resp.Detail = err.Detail + ": " + resp.Detail
		}
	}
	writeJSON(w, status, resp)
}
