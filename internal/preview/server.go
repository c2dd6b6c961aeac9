package preview

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ivlev/story2video/internal/engine"
	"github.com/ivlev/story2video/internal/session"
)

// Tracker keeps the latest render status per composition.
type Tracker struct {
	mu       sync.RWMutex
	statuses map[string]engine.Status
}

func NewTracker() *Tracker {
	return &Tracker{statuses: make(map[string]engine.Status)}
}

// Update is an engine.StatusFunc.
func (t *Tracker) Update(s engine.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statuses[s.ID] = s
}

func (t *Tracker) Get(id string) (engine.Status, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.statuses[id]
	return s, ok
}

// ResultFunc looks up the live render result of a composition.
type ResultFunc func(id string) (*engine.RenderResult, bool)

// Server exposes render progress and the finished video over HTTP.
type Server struct {
	tracker    *Tracker
	results    ResultFunc
	dispatcher *session.Dispatcher
	project    string
	router     *gin.Engine
}

// NewServer builds the router. project is used when a request names none.
func NewServer(tracker *Tracker, results ResultFunc, dispatcher *session.Dispatcher, project string) *Server {
	s := &Server{
		tracker:    tracker,
		results:    results,
		dispatcher: dispatcher,
		project:    project,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/status", s.statusHandler)
	router.GET("/video", s.videoHandler)
	router.GET("/download", s.downloadHandler)
	router.POST("/resume/:project", s.resumeHandler)
	s.router = router
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) projectID(c *gin.Context) string {
	if id := c.Query("project"); id != "" {
		return id
	}
	return s.project
}

type statusResponse struct {
	ID      string    `json:"id"`
	Phase   string    `json:"phase"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
	URL     string    `json:"url,omitempty"`
	MIME    string    `json:"mime,omitempty"`
	Frames  int       `json:"frames,omitempty"`
}

func (s *Server) statusHandler(c *gin.Context) {
	id := s.projectID(c)
	st, ok := s.tracker.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no render for " + id})
		return
	}

	resp := statusResponse{ID: id, Phase: st.Phase.String(), Message: st.Message, At: st.At}
	if res, ok := s.live(id); ok && st.Phase == engine.PhaseComplete {
		resp.URL = res.URL
		resp.MIME = res.MIME
		resp.Frames = res.Frames
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) live(id string) (*engine.RenderResult, bool) {
	res, ok := s.results(id)
	if !ok || res.Released() {
		return nil, false
	}
	return res, true
}

func (s *Server) videoHandler(c *gin.Context) {
	res, ok := s.live(s.projectID(c))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "video not ready"})
		return
	}
	c.Header("Content-Disposition", "inline")
	c.Header("Content-Type", mimeType(res))
	c.File(res.Path)
}

func (s *Server) downloadHandler(c *gin.Context) {
	res, ok := s.live(s.projectID(c))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "video not ready"})
		return
	}
	c.Header("Content-Type", mimeType(res))
	c.FileAttachment(res.Path, res.FileName)
}

func mimeType(res *engine.RenderResult) string {
	base, _, _ := strings.Cut(res.MIME, ";")
	return base
}

func (s *Server) resumeHandler(c *gin.Context) {
	project := c.Param("project")
	if s.dispatcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "resume is not enabled"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	if err := s.dispatcher.Request(ctx, project); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"project": project, "status": "queued"})
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[*] Preview server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
