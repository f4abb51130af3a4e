// Package api serves simulations, cluster statistics and charts over HTTP.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/san-kum/episim/internal/casedata"
	"github.com/san-kum/episim/internal/dynamo"
	"github.com/san-kum/episim/internal/epi"
	"github.com/san-kum/episim/internal/experiment"
	"github.com/san-kum/episim/internal/export"
	"github.com/san-kum/episim/internal/metrics"
	"github.com/san-kum/episim/internal/sim"
)

const (
	defaultTopCounties = 10
	defaultTrendWindow = 7
)

type Server struct {
	router *gin.Engine
	exp    *experiment.Experiment
}

func NewServer(exp *experiment.Experiment) *Server {
	s := &Server{router: gin.New(), exp: exp}
	s.router.Use(gin.Logger(), gin.Recovery())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/simulate", s.simulate)
		v1.GET("/clusters", s.listClusters)
		v1.GET("/clusters/:id", s.getCluster)
		v1.GET("/chart", s.chart)
		v1.GET("/cases", s.cases)
	}
}

func (s *Server) Handler() http.Handler { return s.router }

type simulateQuery struct {
	Beta       *float64 `form:"beta"`
	Gamma      *float64 `form:"gamma"`
	Proportion *float64 `form:"proportion"`
	Efficacy   *float64 `form:"efficacy"`
	Segments   []string `form:"segment"`
}

type seriesResponse struct {
	Summary metrics.Summary `json:"summary"`
	Points  []sim.Point     `json:"points"`
}

type simulateResponse struct {
	Params   experiment.Params `json:"params"`
	Segments []epi.SegmentID   `json:"segments"`
	Before   seriesResponse    `json:"before"`
	After    seriesResponse    `json:"after"`
}

// params overlays the query on the configured defaults. Segments may repeat
// or be comma separated.
func (s *Server) params(c *gin.Context) (experiment.Params, error) {
	var q simulateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return experiment.Params{}, fmt.Errorf("%w: %v", dynamo.ErrInvalidParameter, err)
	}
	p := s.exp.Params()
	if q.Beta != nil {
		p.Beta = *q.Beta
	}
	if q.Gamma != nil {
		p.Gamma = *q.Gamma
	}
	if q.Proportion != nil {
		p.Proportion = *q.Proportion
	}
	if q.Efficacy != nil {
		p.Efficacy = *q.Efficacy
	}
	if len(q.Segments) > 0 {
		p.Segments = nil
		for _, raw := range q.Segments {
			for _, id := range strings.Split(raw, ",") {
				if id = strings.TrimSpace(id); id != "" {
					p.Segments = append(p.Segments, epi.SegmentID(id))
				}
			}
		}
	}
	return p, nil
}

func (s *Server) simulate(c *gin.Context) {
	p, err := s.params(c)
	if err != nil {
		abort(c, err)
		return
	}
	cmp, err := s.exp.Compare(c.Request.Context(), p)
	if err != nil {
		abort(c, err)
		return
	}
	before, after := cmp.Summaries()
	c.JSON(http.StatusOK, simulateResponse{
		Params:   cmp.Params,
		Segments: cmp.Segments,
		Before:   seriesResponse{Summary: before, Points: cmp.Before.Points()},
		After:    seriesResponse{Summary: after, Points: cmp.After.Points()},
	})
}

func (s *Server) chart(c *gin.Context) {
	p, err := s.params(c)
	if err != nil {
		abort(c, err)
		return
	}
	cmp, err := s.exp.Compare(c.Request.Context(), p)
	if err != nil {
		abort(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteHTML(&buf, "SIR model: before vs after vaccination", cmp.Series()...); err != nil {
		abort(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) listClusters(c *gin.Context) {
	t := s.exp.Table()
	if t == nil {
		c.JSON(http.StatusOK, gin.H{"clusters": []epi.SegmentID{}})
		return
	}
	all, err := t.Summary("")
	if err != nil {
		abort(c, err)
		return
	}
	resp := gin.H{"clusters": t.Clusters(), "summary": all}
	if d, ok := t.LatestDate(); ok {
		resp["latest_date"] = d.Format("2006-01-02")
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getCluster(c *gin.Context) {
	t := s.exp.Table()
	id := epi.SegmentID(c.Param("id"))
	if t == nil {
		abort(c, fmt.Errorf("%w: %q, no case data loaded", dynamo.ErrUnknownSegment, id))
		return
	}

	n := defaultTopCounties
	if raw := c.Query("top"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			abort(c, fmt.Errorf("%w: top: %v", dynamo.ErrInvalidParameter, err))
			return
		}
		n = v
	}

	summary, err := t.Summary(id)
	if err != nil {
		abort(c, err)
		return
	}
	top, err := t.TopCounties(id, n)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary, "top_counties": top})
}

type casesResponse struct {
	Points     []casedata.CasePoint `json:"points"`
	NewCases   []float64            `json:"new_cases"`
	LatestDate string               `json:"latest_date,omitempty"`
	Window     int                  `json:"window"`
	Declining  *bool                `json:"declining,omitempty"`
}

// cases serves the national confirmed-case series. declining is left out
// when the series is shorter than two windows.
func (s *Server) cases(c *gin.Context) {
	ts := s.exp.Cases()
	if ts == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no case series loaded"})
		return
	}

	window := defaultTrendWindow
	if raw := c.Query("window"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			abort(c, fmt.Errorf("%w: window=%q, want a positive integer", dynamo.ErrInvalidParameter, raw))
			return
		}
		window = v
	}

	resp := casesResponse{Points: ts.Points(), NewCases: ts.NewCases(), Window: window}
	if resp.NewCases == nil {
		resp.NewCases = []float64{}
	}
	if n := len(resp.Points); n > 0 {
		resp.LatestDate = resp.Points[n-1].Date.Format("2006-01-02")
	}
	if d, err := ts.Declining(window); err == nil {
		resp.Declining = &d
	}
	c.JSON(http.StatusOK, resp)
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dynamo.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, dynamo.ErrUnknownSegment):
		return http.StatusNotFound
	case errors.Is(err, dynamo.ErrNumericalInstability):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
