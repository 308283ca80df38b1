package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"mime"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"todoweb/internal/result"
	"todoweb/internal/todo"
)

//go:embed templates/*.html
var templateFS embed.FS

var listTmpl = template.Must(template.New("todos.html").Funcs(template.FuncMap{
	"date": func(t time.Time) string { return t.Format("2006-01-02") },
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}).ParseFS(templateFS, "templates/todos.html"))

type Server struct {
	todos  *todo.Handler
	export *result.Exporter
	log    zerolog.Logger
}

func New(h *todo.Handler, ex *result.Exporter, log zerolog.Logger) *Server {
	return &Server{todos: h, export: ex, log: log}
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/todos", http.StatusFound)
	}).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/todos", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/todos", s.handleMutate).Methods(http.MethodPost)
	r.HandleFunc("/api/todos", s.handleListJSON).Methods(http.MethodGet)
	r.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)

	var h http.Handler = r
	h = hlog.RequestIDHandler("req_id", "X-Request-Id")(h)
	h = hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	})(h)
	return hlog.NewHandler(s.log)(h)
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(sctx)
	}()
	s.log.Info().Str("addr", addr).Msg("listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	res := s.todos.ListTodos(r.Context())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := listTmpl.Execute(w, res); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("render todos")
	}
}

func (s *Server) handleListJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.todos.ListTodos(r.Context()))
}

func (s *Server) handleMutate(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		writeErr(w, http.StatusBadRequest, "Invalid form submission")
		return
	}
	if err := s.todos.Apply(r.Context(), todo.ParseMutation(r.PostForm)); err != nil {
		writeErr(w, todo.StatusCode(err), todo.PublicMessage(err))
		return
	}
	http.Redirect(w, r, "/todos", http.StatusSeeOther)
}

const maxFormMemory = 1 << 20

// parseForm fills r.PostForm for both urlencoded and multipart bodies.
func parseForm(r *http.Request) error {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "multipart/form-data" {
		return r.ParseMultipartForm(maxFormMemory)
	}
	return r.ParseForm()
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	b, err := s.export.Export(r.Context(), format)
	if err != nil {
		if errors.Is(err, result.ErrUnknownFormat) {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		hlog.FromRequest(r).Error().Err(err).Msg("export failed")
		writeErr(w, http.StatusInternalServerError, "Export failed")
		return
	}
	w.Header().Set("Content-Type", result.ContentType(format))
	_, _ = w.Write(b)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
