// Package api provides the REST API for driving an ideamachine session
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/james-see/ideamachine/pkg/device"
	"github.com/james-see/ideamachine/pkg/performance"
	"github.com/james-see/ideamachine/pkg/rig"
	"github.com/james-see/ideamachine/pkg/theory"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Idea Machine API
// @version 1.0
// @description API for playing chords on an Idea Machine session
// @host localhost:8080
// @BasePath /api/v1

// Server serves the API for one rig
type Server struct {
	rig *rig.Rig
	log logrus.FieldLogger
}

// New creates an API server for r
func New(r *rig.Rig, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{rig: r, log: log.WithField("component", "api")}
}

// Handler returns the HTTP handler with CORS applied
func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(s.engine())
}

// StartServer serves the API on the specified port until ctx is done
func (s *Server) StartServer(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.WithField("port", port).Info("API listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}

func (s *Server) engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests())

	r.GET("/health", s.healthCheck)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", s.healthCheck)
		v1.GET("/state", s.getState)
		v1.GET("/controls", s.listControls)
		v1.GET("/chord", s.computeChord)
		v1.GET("/devices", s.listDevices)
		v1.PUT("/devices/:role", s.selectDevice)
		v1.POST("/midi/enable", s.enableMIDI)

		play := v1.Group("", s.requireMIDI())
		play.POST("/controls/:key/on", s.controlOn)
		play.POST("/controls/:key/off", s.controlOff)
		play.POST("/notes/:note/on", s.noteOn)
		play.POST("/notes/:note/off", s.noteOff)
		play.PUT("/voicing", s.setVoicing)
		play.PUT("/sticky", s.setSticky)
		play.PUT("/chord-type", s.setChordType)
		play.POST("/panic", s.releaseAll)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	return r
}

// requireMIDI rejects performance input until MIDI is enabled
func (s *Server) requireMIDI() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.rig.Live() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": device.ErrUnavailable.Error() + ": retry with POST /api/v1/midi/enable",
			})
			return
		}
		c.Next()
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		}).Debug("request")
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API and whether MIDI is enabled
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "ideamachine",
		"session":   s.rig.Session().ID(),
		"midiReady": s.rig.Ready(),
	})
}

// getState godoc
// @Summary Current performance state
// @Tags performance
// @Produce json
// @Success 200 {object} StateResponse
// @Router /state [get]
func (s *Server) getState(c *gin.Context) {
	c.JSON(http.StatusOK, newStateResponse(s.rig.Session().State()))
}

// listControls godoc
// @Summary List chord-type and extension controls
// @Tags performance
// @Produce json
// @Success 200 {array} ControlResponse
// @Router /controls [get]
func (s *Server) listControls(c *gin.Context) {
	st := s.rig.Session().State()
	out := make([]ControlResponse, 0)
	for _, ctl := range s.rig.Registry().Controls() {
		out = append(out, newControlResponse(ctl, st))
	}
	c.JSON(http.StatusOK, out)
}

// controlOn godoc
// @Summary Press a control
// @Description The key is a shortcut key, a label, a chord type or an extension name
// @Tags performance
// @Produce json
// @Param key path string true "Control"
// @Success 200 {object} StateResponse
// @Failure 404 {object} map[string]string
// @Router /controls/{key}/on [post]
func (s *Server) controlOn(c *gin.Context) {
	s.control(c, true)
}

// controlOff godoc
// @Summary Release a control
// @Tags performance
// @Produce json
// @Param key path string true "Control"
// @Success 200 {object} StateResponse
// @Failure 404 {object} map[string]string
// @Router /controls/{key}/off [post]
func (s *Server) controlOff(c *gin.Context) {
	s.control(c, false)
}

func (s *Server) control(c *gin.Context, on bool) {
	ctl, ok := s.rig.Registry().Find(c.Param("key"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown control %q", c.Param("key"))})
		return
	}
	var ev performance.Event = performance.ControlOff{Control: ctl}
	if on {
		ev = performance.ControlOn{Control: ctl}
	}
	s.apply(c, ev)
}

// noteOn godoc
// @Summary Play the chord for a note
// @Tags performance
// @Produce json
// @Param note path string true "Note name (C#3) or number (49)"
// @Success 200 {object} StateResponse
// @Failure 400 {object} map[string]string
// @Router /notes/{note}/on [post]
func (s *Server) noteOn(c *gin.Context) {
	s.note(c, true)
}

// noteOff godoc
// @Summary Stop the chord for a note
// @Tags performance
// @Produce json
// @Param note path string true "Note name (C#3) or number (49)"
// @Success 200 {object} StateResponse
// @Failure 400 {object} map[string]string
// @Router /notes/{note}/off [post]
func (s *Server) noteOff(c *gin.Context) {
	s.note(c, false)
}

func (s *Server) note(c *gin.Context, on bool) {
	n, err := theory.ParseNote(c.Param("note"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var ev performance.Event = performance.NoteOff{Note: n}
	if on {
		ev = performance.NoteOn{Note: n}
	}
	s.apply(c, ev)
}

// VoicingRequest sets the voicing
type VoicingRequest struct {
	Value *float64 `json:"value" binding:"required"`
}

// setVoicing godoc
// @Summary Set the voicing (0-1)
// @Tags performance
// @Accept json
// @Produce json
// @Param request body VoicingRequest true "Voicing"
// @Success 200 {object} StateResponse
// @Failure 400 {object} map[string]string
// @Router /voicing [put]
func (s *Server) setVoicing(c *gin.Context) {
	var req VoicingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.apply(c, performance.SetVoicing{Value: *req.Value})
}

// StickyRequest sets sticky mode
type StickyRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// setSticky godoc
// @Summary Enable or disable sticky chord types
// @Tags performance
// @Accept json
// @Produce json
// @Param request body StickyRequest true "Sticky mode"
// @Success 200 {object} StateResponse
// @Failure 400 {object} map[string]string
// @Router /sticky [put]
func (s *Server) setSticky(c *gin.Context) {
	var req StickyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.apply(c, performance.SetSticky{Enabled: *req.Enabled})
}

// ChordTypeRequest selects a chord type
type ChordTypeRequest struct {
	ChordType string `json:"chordType"`
}

// setChordType godoc
// @Summary Select a chord type directly
// @Description An empty or NONE chord type plays single notes
// @Tags performance
// @Accept json
// @Produce json
// @Param request body ChordTypeRequest true "Chord type"
// @Success 200 {object} StateResponse
// @Failure 400 {object} map[string]string
// @Router /chord-type [put]
func (s *Server) setChordType(c *gin.Context) {
	var req ChordTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ct, err := theory.ParseChordType(req.ChordType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.apply(c, performance.SetChordType{ChordType: ct})
}

// releaseAll godoc
// @Summary Release every sounding chord
// @Tags performance
// @Produce json
// @Success 200 {object} StateResponse
// @Router /panic [post]
func (s *Server) releaseAll(c *gin.Context) {
	s.apply(c, performance.Panic{})
}

// computeChord godoc
// @Summary Compute a chord without playing it
// @Tags theory
// @Produce json
// @Param root query string true "Root note"
// @Param type query string false "Chord type (default MAJ)"
// @Param ext query string false "Comma-separated extensions"
// @Param voicing query number false "Voicing 0-1"
// @Success 200 {object} ChordResponse
// @Failure 400 {object} map[string]string
// @Router /chord [get]
func (s *Server) computeChord(c *gin.Context) {
	var q struct {
		Root    string  `form:"root" binding:"required"`
		Type    string  `form:"type"`
		Ext     string  `form:"ext"`
		Voicing float64 `form:"voicing"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	root, err := theory.ParseNote(q.Root)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ct := theory.Maj
	if q.Type != "" {
		if ct, err = theory.ParseChordType(q.Type); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	var exts theory.ExtensionSet
	if q.Ext != "" {
		for _, name := range strings.Split(q.Ext, ",") {
			e, err := theory.ParseExtension(name)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			exts = exts.With(e)
		}
	}
	chord := theory.ComputeChord(root, ct, exts, q.Voicing)
	c.JSON(http.StatusOK, ChordResponse{
		ChordType:  ct.String(),
		Extensions: extensionNames(exts),
		Voicing:    theory.ClampVoicing(q.Voicing),
		Chord:      newChordJSON(chord),
	})
}

// listDevices godoc
// @Summary List MIDI ports and the current selection
// @Tags devices
// @Produce json
// @Success 200 {object} DevicesResponse
// @Failure 503 {object} map[string]string
// @Router /devices [get]
func (s *Server) listDevices(c *gin.Context) {
	snap, err := s.rig.Devices()
	if err != nil {
		s.deviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, DevicesResponse{Snapshot: snap, Selection: s.rig.Selection()})
}

// SelectRequest picks a device for a role
type SelectRequest struct {
	ID string `json:"id"`
}

// selectDevice godoc
// @Summary Select the device for a role
// @Description Role is controller, daw or output. An empty id clears the role.
// @Tags devices
// @Accept json
// @Produce json
// @Param role path string true "Role"
// @Param request body SelectRequest true "Device"
// @Success 200 {object} rig.Selection
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /devices/{role} [put]
func (s *Server) selectDevice(c *gin.Context) {
	role, err := rig.ParseRole(c.Param("role"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.rig.Select(c.Request.Context(), role, req.ID); err != nil {
		s.deviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.rig.Selection())
}

// enableMIDI godoc
// @Summary Retry enabling MIDI access
// @Tags devices
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]string
// @Router /midi/enable [post]
func (s *Server) enableMIDI(c *gin.Context) {
	if err := s.rig.EnableMIDI(c.Request.Context()); err != nil {
		s.deviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"midiReady": true})
}

func (s *Server) deviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, device.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, device.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) apply(c *gin.Context, ev performance.Event) {
	st, err := s.rig.Session().Apply(c.Request.Context(), ev)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, newStateResponse(st))
}
