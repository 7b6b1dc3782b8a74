package api

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/abelzeko/ecms-bot/internal/entities"
	"github.com/abelzeko/ecms-bot/internal/heuristics"
	"github.com/abelzeko/ecms-bot/internal/metrics"
	"github.com/abelzeko/ecms-bot/internal/uploads"
	"github.com/abelzeko/ecms-bot/internal/usecases"
)

//go:embed templates/*.html
var templateFS embed.FS

const maxUploadBytes = 32 << 20

// Form defaults used when a numeric field is empty or not a number
const (
	defaultPH   = 7.0
	defaultNDVI = 0.3
)

// ServerOptions configures the HTTP dashboard
type ServerOptions struct {
	SubmitRate  float64 // submissions per second across all clients, 0 disables limiting
	SubmitBurst int
	CORSOrigins []string
	MapZoom     int
}

// Server is the HTTP dashboard over the monitoring use case
type Server struct {
	useCase *usecases.MonitoringUseCase
	uploads *uploads.Store
	limiter *rate.Limiter
	opts    ServerOptions
	pages   map[string]*template.Template
}

// NewServer parses the page templates and builds the dashboard
func NewServer(useCase *usecases.MonitoringUseCase, store *uploads.Store, opts ServerOptions) (*Server, error) {
	funcs := template.FuncMap{
		"base":  filepath.Base,
		"stamp": func(t time.Time) string { return t.Format("2006-01-02 15:04:05") },
	}

	pages := make(map[string]*template.Template)
	for _, name := range []string{"dashboard", "waste", "drainage", "chemical", "forest"} {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, eris.Wrapf(err, "failed to parse %s template", name)
		}
		pages[name] = tmpl
	}

	s := &Server{
		useCase: useCase,
		uploads: store,
		opts:    opts,
		pages:   pages,
	}
	if opts.SubmitRate > 0 {
		burst := opts.SubmitBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.SubmitRate), burst)
	}
	if s.opts.MapZoom == 0 {
		s.opts.MapZoom = 6
	}
	return s, nil
}

// Router returns the HTTP handler for the dashboard
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleDashboard)
	r.Get("/waste", s.handleWastePage)
	r.Get("/drainage", s.handleDrainagePage)
	r.Get("/chemical", s.handleChemicalPage)
	r.Get("/forest", s.handleForestPage)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/waste", s.handleWasteSubmit)
		r.Post("/drainage", s.handleDrainageSubmit)
		r.Post("/chemical", s.handleChemicalSubmit)
		r.Post("/forest", s.handleForestSubmit)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/counts", s.handleCounts)
		r.Get("/records/{kind}", s.handleRecords)
		r.Get("/drainage/markers", s.handleMarkers)
	})

	r.Get("/uploads/{name}", s.handleUpload)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			http.Error(w, "too many submissions, slow down", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// pageData is the view model shared by every page
type pageData struct {
	Title        string
	Active       string
	Error        string
	Result       []string
	Counts       entities.Counts
	Records      any
	ShowRecords  bool
	Markers      []usecases.Marker
	FlowStatuses []entities.FlowStatus
	Image        string
}

func (s *Server) render(w http.ResponseWriter, status int, page string, data pageData) {
	data.Active = page
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.pages[page].ExecuteTemplate(w, "layout", data); err != nil {
		zap.L().Error("failed to render page", zap.String("page", page), zap.Error(err))
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	counts, err := s.useCase.Counts(r.Context())
	if err != nil {
		s.render(w, http.StatusInternalServerError, "dashboard", pageData{Title: "Dashboard — Analytics", Error: "Could not load counts."})
		return
	}
	s.render(w, http.StatusOK, "dashboard", pageData{Title: "Dashboard — Analytics", Counts: counts})
}

// withRecords loads the records table when the page asks for it
func (s *Server) withRecords(r *http.Request, kind entities.RecordKind, data pageData) (pageData, error) {
	if r.URL.Query().Get("records") == "" {
		return data, nil
	}
	records, err := s.useCase.Records(r.Context(), kind)
	if err != nil {
		return data, err
	}
	data.Records = records
	data.ShowRecords = true
	return data, nil
}

func (s *Server) renderModule(w http.ResponseWriter, r *http.Request, status int, kind entities.RecordKind, data pageData) {
	data, err := s.withRecords(r, kind, data)
	if err != nil {
		data.Error = "Could not load records."
		status = http.StatusInternalServerError
	}
	s.render(w, status, string(kind), data)
}

const (
	wasteTitle    = "Waste Management — Image Classification (MVP)"
	drainageTitle = "Drainage & Waterborne Disease Risk"
	chemicalTitle = "Chemical Waste — Safety & Neutralization"
	forestTitle   = "Forest Cover Monitoring (MVP)"
)

func (s *Server) handleWastePage(w http.ResponseWriter, r *http.Request) {
	s.renderModule(w, r, http.StatusOK, entities.KindWaste, pageData{Title: wasteTitle})
}

func (s *Server) handleWasteSubmit(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: wasteTitle}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		data.Error = "Please upload an image of waste."
		s.renderModule(w, r, http.StatusBadRequest, entities.KindWaste, data)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		data.Error = "Please upload an image of waste."
		s.renderModule(w, r, http.StatusBadRequest, entities.KindWaste, data)
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		data.Error = "Could not read the upload."
		s.renderModule(w, r, http.StatusBadRequest, entities.KindWaste, data)
		return
	}

	sub, err := s.useCase.SubmitWaste(r.Context(), header.Filename, raw)
	if err != nil {
		var decodeErr *heuristics.DecodeError
		if errors.As(err, &decodeErr) {
			data.Error = "The uploaded file is not a readable image."
			s.renderModule(w, r, http.StatusUnprocessableEntity, entities.KindWaste, data)
			return
		}
		data.Error = "Could not save the waste record."
		s.renderModule(w, r, http.StatusInternalServerError, entities.KindWaste, data)
		return
	}

	data.Result = strings.Split(usecases.FormatWasteSubmission(sub), "\n")
	data.Image = "/uploads/" + filepath.Base(sub.Observation.SourceReference)
	s.renderModule(w, r, http.StatusOK, entities.KindWaste, data)
}

func (s *Server) drainagePage(r *http.Request, data pageData) (pageData, error) {
	data.Title = drainageTitle
	data.FlowStatuses = entities.FlowStatuses
	markers, err := s.useCase.DrainageMarkers(r.Context())
	if err != nil {
		return data, err
	}
	data.Markers = markers
	return data, nil
}

func (s *Server) renderDrainage(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	data, err := s.drainagePage(r, data)
	if err != nil {
		data.Error = "Could not load drainage records."
		status = http.StatusInternalServerError
	}
	s.render(w, status, "drainage", data)
}

func (s *Server) handleDrainagePage(w http.ResponseWriter, r *http.Request) {
	s.renderDrainage(w, r, http.StatusOK, pageData{})
}

func (s *Server) handleDrainageSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderDrainage(w, r, http.StatusBadRequest, pageData{Error: "Invalid form."})
		return
	}

	flow, ok := entities.ParseFlowStatus(r.PostFormValue("flow_status"))
	if !ok {
		s.renderDrainage(w, r, http.StatusBadRequest, pageData{Error: "Flow status must be normal, slow, blocked or stagnant."})
		return
	}

	sub, err := s.useCase.SubmitDrainage(r.Context(), usecases.DrainageInput{
		Location:          r.PostFormValue("location"),
		FlowStatus:        flow,
		PopulationDensity: formFloat(r, "population", defaultPopulation),
	})
	if err != nil {
		s.renderDrainage(w, r, http.StatusInternalServerError, pageData{Error: "Could not save the drainage record."})
		return
	}

	s.renderDrainage(w, r, http.StatusOK, pageData{Result: strings.Split(usecases.FormatDrainageSubmission(sub), "\n")})
}

func (s *Server) handleChemicalPage(w http.ResponseWriter, r *http.Request) {
	s.renderModule(w, r, http.StatusOK, entities.KindChemical, pageData{Title: chemicalTitle})
}

func (s *Server) handleChemicalSubmit(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: chemicalTitle}
	if err := r.ParseForm(); err != nil {
		data.Error = "Invalid form."
		s.renderModule(w, r, http.StatusBadRequest, entities.KindChemical, data)
		return
	}

	obs, err := s.useCase.SubmitChemical(r.Context(), r.PostFormValue("chemical_name"), formFloat(r, "ph", defaultPH))
	if err != nil {
		data.Error = "Could not save the chemical record."
		s.renderModule(w, r, http.StatusInternalServerError, entities.KindChemical, data)
		return
	}

	data.Result = strings.Split(usecases.FormatChemicalSubmission(obs), "\n")
	s.renderModule(w, r, http.StatusOK, entities.KindChemical, data)
}

func (s *Server) handleForestPage(w http.ResponseWriter, r *http.Request) {
	s.renderModule(w, r, http.StatusOK, entities.KindForest, pageData{Title: forestTitle})
}

func (s *Server) handleForestSubmit(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: forestTitle}
	if err := r.ParseForm(); err != nil {
		data.Error = "Invalid form."
		s.renderModule(w, r, http.StatusBadRequest, entities.KindForest, data)
		return
	}

	obs, err := s.useCase.SubmitForest(r.Context(), formFloat(r, "ndvi", defaultNDVI))
	if err != nil {
		data.Error = "Could not save the forest record."
		s.renderModule(w, r, http.StatusInternalServerError, entities.KindForest, data)
		return
	}

	data.Result = strings.Split(usecases.FormatForestSubmission(obs), "\n")
	s.renderModule(w, r, http.StatusOK, entities.KindForest, data)
}

// formFloat coerces a form field, falling back to def when empty, invalid or
// not finite
func formFloat(r *http.Request, field string, def float64) float64 {
	v := strings.TrimSpace(r.PostFormValue(field))
	if v == "" {
		return def
	}
	f, err := heuristics.ParseNumber(v)
	if err != nil {
		return def
	}
	return f
}

func (s *Server) handleCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.useCase.Counts(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	kind, ok := entities.ParseRecordKind(chi.URLParam(r, "kind"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown record kind"})
		return
	}

	records, err := s.useCase.Records(r.Context(), kind)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"kind": kind, "records": records})
}

func (s *Server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	markers, err := s.useCase.DrainageMarkers(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage unavailable"})
		return
	}

	body, err := MarkersGeoJSON(markers)
	if err != nil {
		zap.L().Error("failed to encode markers", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "encoding failed"})
		return
	}

	center := s.useCase.DefaultCoordinate()
	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("X-Map-Center", strconv.FormatFloat(center.Lat, 'f', -1, 64)+","+strconv.FormatFloat(center.Lng, 'f', -1, 64))
	w.Header().Set("X-Map-Zoom", strconv.Itoa(s.opts.MapZoom))
	w.WriteHeader(http.StatusOK)
	w.Write(body) //nolint:errcheck
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	f, err := s.uploads.Open(chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, uploads.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		zap.L().Error("failed to open upload", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// writeJSON encodes v before writing the status so an encoding failure
// still produces a valid 500 response
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
		status = http.StatusInternalServerError
		body = []byte(`{"error":"encoding failed"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		zap.L().Error("failed to write response", zap.Error(err))
	}
}
