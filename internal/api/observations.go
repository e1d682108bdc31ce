package api

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/psrio/pkg/psrfits"
)

// Server exposes an ObservationStore as a read-only JSON API.
type Server struct {
	store *ObservationStore
}

func NewServer(store *ObservationStore) *Server {
	return &Server{store: store}
}

func (s *Server) Register(e *echo.Echo) {
	e.Use(requestID)
	e.GET("/v1/observations", s.handleList)
	e.GET("/v1/observations/:name", s.handleGet)
	e.DELETE("/v1/observations/:name", s.handleEvict)
	e.GET("/v1/observations/:name/history", s.handleHistory)
	e.GET("/v1/observations/:name/pulse", s.handlePulse)
}

func (s *Server) handleList(c *echo.Context) error {
	names, err := s.store.List()
	if err != nil {
		return writeErr(c, err)
	}
	out := ObservationList{Object: "list", Data: make([]ObservationListItem, 0, len(names))}
	for _, n := range names {
		out.Data = append(out.Data, ObservationListItem{Name: n, Object: "observation", Loaded: s.store.cached(n)})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleGet(c *echo.Context) error {
	rec, err := s.store.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		return writeErr(c, err)
	}
	var d *psrfits.Descriptor
	if err := rec.withFile(func(f *psrfits.File) error {
		d = f.Descriptor()
		return nil
	}); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, ObservationResponse{
		ID:         rec.id,
		Object:     "observation",
		Name:       rec.name,
		Descriptor: d,
	})
}

func (s *Server) handleEvict(c *echo.Context) error {
	name := c.Param("name")
	if !s.store.Evict(name) {
		return writeNotFound(c, "observation not loaded")
	}
	return c.JSON(http.StatusOK, EvictResponse{Name: name, Object: "observation", Evicted: true})
}

func (s *Server) handleHistory(c *echo.Context) error {
	rec, err := s.store.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		return writeErr(c, err)
	}
	var entries []psrfits.HistoryEntry
	if err := rec.withFile(func(f *psrfits.File) error {
		entries = f.Descriptor().History.Entries()
		return nil
	}); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, HistoryResponse{Object: "history", Name: rec.name, Data: entries})
}

func (s *Server) handlePulse(c *echo.Context) error {
	rec, err := s.store.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		return writeErr(c, err)
	}
	var q [5]int
	for i, p := range []struct {
		name string
		def  int
	}{{"subint", 0}, {"pol", 0}, {"chan", 0}, {"start", 0}, {"count", 0}} {
		if q[i], err = intParam(c, p.name, p.def); err != nil {
			return writeErr(c, err)
		}
	}
	sub, pol, ch, start, n := q[0], q[1], q[2], q[3], q[4]

	var samples []float64
	err = rec.withFile(func(f *psrfits.File) error {
		if n == 0 {
			n = f.Descriptor().NrBins - start
		}
		var err error
		samples, err = f.ReadPulse(sub, pol, ch, start, n)
		return err
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, PulseResponse{
		Object:  "pulse",
		Name:    rec.name,
		Subint:  sub,
		Pol:     pol,
		Chan:    ch,
		Start:   start,
		Samples: samples,
	})
}
