package web

import (
	"context"
	"embed"
	"encoding/base64"
	"errors"
	"html/template"
	log "log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"doula/internal/session"
	"doula/internal/survey"
)

//go:embed templates/*.html
var templateFS embed.FS

type SurveyStore interface {
	Save(ctx context.Context, r survey.Response) error
	Get(ctx context.Context, id string) (survey.Response, error)
	List(ctx context.Context, limit int) ([]survey.Response, error)
}

type Options struct {
	Addr           string
	LogoPath       string
	AllowedOrigins []string

	// Media maps a public name under /media/ to a file on disk.
	Media map[string]string
}

// Server is the browser surface. Tracker and Trigger are nil for the
// standalone questionnaire.
type Server struct {
	opt     Options
	tracker *session.Tracker
	trigger func() bool
	store   SurveyStore

	engine *gin.Engine
	hub    *hub
}

func New(opt Options, store SurveyStore, tracker *session.Tracker, trigger func() bool) *Server {
	s := &Server{
		opt:     opt,
		tracker: tracker,
		trigger: trigger,
		store:   store,
	}
	if tracker != nil {
		s.hub = newHub(tracker)
	}
	s.engine = s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())
	engine.SetTrustedProxies(nil)

	origins := s.opt.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"OPTIONS", "GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	engine.SetHTMLTemplate(template.Must(template.New("").Funcs(template.FuncMap{
		"answer":  func(a survey.Answers, id string) string { return a.Get(id) },
		"checked": func(a survey.Answers, id, v string) bool { return slices.Contains(a[id], v) },
	}).ParseFS(templateFS, "templates/*.html")))

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	if s.tracker != nil {
		engine.GET("/", s.index)
		engine.GET("/ws", s.hub.serve)
	} else {
		engine.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/questionnaire") })
	}
	engine.GET("/media/:name", s.media)
	engine.GET("/questionnaire", s.questionnaire)
	engine.POST("/questionnaire", s.submit)

	api := engine.Group("/api")
	api.GET("/health", s.health)
	api.GET("/responses", s.responses)
	api.GET("/responses/:id", s.response)
	if s.trigger != nil {
		api.POST("/trigger", s.triggerHandler)
	}

	return engine
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opt.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Web server listening", "addr", s.opt.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.hub != nil {
		s.hub.close()
	}
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type page struct {
	Title    string
	Logo     string
	LogoMime string

	State      session.State
	CanTrigger bool

	Subtitle string
	Thanks   string
	Sections []survey.Section
	Answers  survey.Answers
	Saved    bool
	Error    string
}

func (s *Server) newPage(title string) page {
	p := page{Title: title}
	p.Logo, p.LogoMime = loadLogo(s.opt.LogoPath)
	return p
}

// loadLogo returns the file base64 encoded, or empty strings when it is
// missing.
func loadLogo(path string) (string, string) {
	if path == "" {
		return "", ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", ""
	}
	typ := mime.TypeByExtension(filepath.Ext(path))
	if typ == "" {
		typ = http.DetectContentType(data)
	}
	return base64.StdEncoding.EncodeToString(data), typ
}

func (s *Server) index(c *gin.Context) {
	p := s.newPage("AI Doula")
	p.State = s.tracker.State()
	p.CanTrigger = s.trigger != nil
	c.HTML(http.StatusOK, "index.html", p)
}

func (s *Server) questionnairePage() page {
	p := s.newPage(survey.Title)
	p.Subtitle = survey.Subtitle
	p.Thanks = survey.Thanks
	p.Sections = survey.Catalog
	return p
}

func (s *Server) questionnaire(c *gin.Context) {
	c.HTML(http.StatusOK, "questionnaire.html", s.questionnairePage())
}

func (s *Server) submit(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, "bad form: %v", err)
		return
	}

	p := s.questionnairePage()
	answers, err := survey.Validate(survey.FromForm(c.Request.PostForm))
	if err != nil {
		p.Answers = survey.FromForm(c.Request.PostForm)
		p.Error = err.Error()
		c.HTML(http.StatusBadRequest, "questionnaire.html", p)
		return
	}

	r := survey.NewResponse(answers)
	if err := s.store.Save(c.Request.Context(), r); err != nil {
		log.Error("Failed to save questionnaire", "err", err)
		p.Answers = answers
		p.Error = "Could not save your answers, please try again."
		c.HTML(http.StatusInternalServerError, "questionnaire.html", p)
		return
	}

	log.Info("Questionnaire saved", "id", r.ID, "answers", len(answers))
	p.Saved = true
	c.HTML(http.StatusOK, "questionnaire.html", p)
}

func (s *Server) responses(c *gin.Context) {
	list, err := s.store.List(c.Request.Context(), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if list == nil {
		list = []survey.Response{}
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) response(c *gin.Context) {
	r, err := s.store.Get(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, survey.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, r)
	}
}

func (s *Server) health(c *gin.Context) {
	h := gin.H{"status": "ok"}
	if s.tracker != nil {
		h["session"] = s.tracker.Snapshot()
	}
	c.JSON(http.StatusOK, h)
}

func (s *Server) triggerHandler(c *gin.Context) {
	if (s.tracker != nil && s.tracker.Active()) || !s.trigger() {
		c.JSON(http.StatusConflict, gin.H{"error": "assistant is busy"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "triggered"})
}

func (s *Server) media(c *gin.Context) {
	path, ok := s.opt.Media[c.Param("name")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown media"})
		return
	}
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "media not available"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.File(path)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start),
		)
	}
}
