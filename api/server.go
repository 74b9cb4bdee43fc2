package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"assistant-home-control/assistant"
	"assistant-home-control/device_registry"
	"assistant-home-control/device_state"
	"assistant-home-control/dispatcher"
	"assistant-home-control/interpreter"
	"assistant-home-control/listener"
)

// Pipeline reports where the voice pipeline is.
type Pipeline interface {
	State() listener.State
}

type Server struct {
	echo       *echo.Echo
	address    string
	store      *device_state.Store
	registry   device_registry.Interface
	assistant  assistant.Interface
	dispatcher dispatcher.Interface
	pipeline   Pipeline
}

type Config struct {
	Address    string
	Store      *device_state.Store
	Registry   device_registry.Interface
	Assistant  assistant.Interface
	Dispatcher dispatcher.Interface
	// Pipeline is optional; without it /api/status reports "disabled".
	Pipeline Pipeline
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Status string `json:"status"`
	Reply  string `json:"reply"`
}

type relayRequest struct {
	State string `json:"state"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Store == nil {
		return nil, fmt.Errorf("store is nil")
	}

	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is nil")
	}

	if cfg.Assistant == nil {
		return nil, fmt.Errorf("assistant is nil")
	}

	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is nil")
	}

	s := &Server{
		echo:       echo.New(),
		address:    cfg.Address,
		store:      cfg.Store,
		registry:   cfg.Registry,
		assistant:  cfg.Assistant,
		dispatcher: cfg.Dispatcher,
		pipeline:   cfg.Pipeline,
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug().Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).Msg("request")

			return nil
		},
	}))

	s.echo.GET("/api/states", s.handleStates)
	s.echo.GET("/api/devices", s.handleDevices)
	s.echo.GET("/api/status", s.handleStatus)
	s.echo.POST("/api/chat", s.handleChat)
	s.echo.POST("/api/devices/:ip/relay/:relay", s.handleRelay)

	return s, nil
}

// Handler exposes the routes without a listener.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("address", s.address).Msg("http api listening")

	err := s.echo.Start(s.address)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleStates(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleDevices(c echo.Context) error {
	devices, err := s.registry.List()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	if devices == nil {
		devices = []device_registry.Device{}
	}

	return c.JSON(http.StatusOK, devices)
}

func (s *Server) handleStatus(c echo.Context) error {
	if s.pipeline == nil {
		return c.JSON(http.StatusOK, statusResponse{Status: "disabled"})
	}

	return c.JSON(http.StatusOK, statusResponse{Status: s.pipeline.State().String()})
}

// handleChat runs a typed command through the same path as a spoken one,
// without touching the voice pipeline's state.
func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "No message provided"})
	}

	outcome, err := s.assistant.HandleText(c.Request().Context(), msg)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, chatResponse{Status: "ok", Reply: outcome.Reply})
}

func (s *Server) handleRelay(c echo.Context) error {
	ip := c.Param("ip")

	relay, err := strconv.Atoi(c.Param("relay"))
	if err != nil || relay < 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid relay"})
	}

	var req relayRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	var kind interpreter.ActionKind
	switch device_state.RelayState(req.State) {
	case device_state.On:
		kind = interpreter.TurnOn
	case device_state.Off:
		kind = interpreter.TurnOff
	default:
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid state"})
	}

	device, ok, err := s.registry.Get(ip)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	if !ok || !device.HasRelay(relay) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "Device not found"})
	}

	results := s.dispatcher.DispatchAll(c.Request().Context(), []interpreter.ActionRequest{
		{Kind: kind, Device: ip, Relay: relay},
	})

	s.dispatcher.Refresh(results)

	if !results[0].OK() {
		return c.JSON(http.StatusBadGateway, errorResponse{Error: "Failed to communicate with the device"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": results[0].Message})
}
