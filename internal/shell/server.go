// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_shell

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/rapidaai/meetscribe/config"
	internal_session "github.com/rapidaai/meetscribe/internal/session"
	internal_store "github.com/rapidaai/meetscribe/internal/store"
	"github.com/rapidaai/meetscribe/pkg/commons"
	"github.com/rapidaai/meetscribe/pkg/events"
)

// Server is the host-shell surface: the UI (tray, window, web view) talks
// to the core exclusively through this HTTP/WebSocket API.
type Server struct {
	logger     commons.Logger
	cfg        *config.AppConfig
	store      internal_store.Store
	controller *internal_session.Controller
	bus        *events.Bus

	// reconfigure rebuilds the transcription/summarization backends after
	// a settings update. Optional.
	reconfigure func(ctx context.Context) error
}

// NewServer wires the shell server. reconfigure may be nil.
func NewServer(
	logger commons.Logger,
	cfg *config.AppConfig,
	store internal_store.Store,
	controller *internal_session.Controller,
	bus *events.Bus,
	reconfigure func(ctx context.Context) error,
) *Server {
	return &Server{
		logger:      logger,
		cfg:         cfg,
		store:       store,
		controller:  controller,
		bus:         bus,
		reconfigure: reconfigure,
	}
}

// Engine builds the gin engine with all routes registered.
func (s *Server) Engine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	apiv1 := engine.Group("v1")
	{
		apiv1.GET("/meetings", s.listMeetings)
		apiv1.GET("/meetings/search", s.searchMeetings)
		apiv1.GET("/meetings/:id", s.getMeeting)
		apiv1.DELETE("/meetings/:id", s.deleteMeeting)
		apiv1.POST("/meetings/:id/summary", s.regenerateSummary)
		apiv1.GET("/meetings/:id/action-items", s.actionItems)

		apiv1.POST("/recording/start", s.startRecording)
		apiv1.POST("/recording/stop", s.stopRecording)
		apiv1.GET("/recording/status", s.recordingStatus)

		apiv1.GET("/settings", s.getSettings)
		apiv1.PUT("/settings", s.updateSettings)

		apiv1.GET("/stream", s.stream)
	}
	return engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler: s.Engine(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("shell api listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shell api shutdown: %w", err)
	}
	return <-errCh
}

func (s *Server) listMeetings(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	meetings, err := s.store.ListMeetings(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"meetings": meetings})
}

func (s *Server) getMeeting(c *gin.Context) {
	meetingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meeting id"})
		return
	}

	meeting, err := s.store.GetMeeting(c.Request.Context(), meetingID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	transcript, err := s.store.GetTranscript(c.Request.Context(), meetingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"meeting": meeting, "transcript": transcript})
}

func (s *Server) deleteMeeting(c *gin.Context) {
	meetingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meeting id"})
		return
	}

	if err := s.store.DeleteMeeting(c.Request.Context(), meetingID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) searchMeetings(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}

	meetings, err := s.store.SearchMeetings(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"meetings": meetings})
}

func (s *Server) regenerateSummary(c *gin.Context) {
	meetingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meeting id"})
		return
	}

	summary, err := s.controller.RegenerateSummary(c.Request.Context(), meetingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (s *Server) actionItems(c *gin.Context) {
	meetingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meeting id"})
		return
	}

	items, err := s.controller.ActionItems(c.Request.Context(), meetingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if items == nil {
		items = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"actionItems": items})
}

type startRecordingRequest struct {
	Title string `json:"title"`
}

func (s *Server) startRecording(c *gin.Context) {
	var req startRecordingRequest
	_ = c.ShouldBindJSON(&req) // body is optional

	if err := s.controller.Start(c.Request.Context(), req.Title); err != nil {
		if errors.Is(err, internal_session.ErrStreamUnavailable) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.controller.Status())
}

func (s *Server) stopRecording(c *gin.Context) {
	if err := s.controller.Stop(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.controller.Status())
}

func (s *Server) recordingStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.controller.Status())
}

func (s *Server) getSettings(c *gin.Context) {
	settings, err := s.store.GetSettings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (s *Server) updateSettings(c *gin.Context) {
	var settings map[string]string
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected a string map"})
		return
	}

	for key, value := range settings {
		if err := s.store.SetSetting(c.Request.Context(), key, value); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	if s.reconfigure != nil {
		if err := s.reconfigure(c.Request.Context()); err != nil {
			s.logger.Errorf("backend reconfiguration after settings update failed: %v", err)
			c.JSON(http.StatusOK, gin.H{"updated": true, "warning": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}
