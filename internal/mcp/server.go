// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the live inspection feed and history as read-only tools for AI assistants.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/visionqc/visionqc/internal/history"
	"github.com/visionqc/visionqc/internal/observability"
	"github.com/visionqc/visionqc/internal/session"
	"github.com/visionqc/visionqc/pkg/models"
)

// AlertSource lists the active alerts, oldest first.
type AlertSource interface {
	List() []observability.Alert
}

// SessionSource exposes the current user context.
type SessionSource interface {
	User() *models.User
	State() session.State
}

// Deps are the services the tools read from. Any field may be nil; the
// matching tool then reports that it is unavailable.
type Deps struct {
	Stats   observability.StatsSource
	Alerts  AlertSource
	History []models.InspectionRecord
	Session SessionSource
	Reports observability.ReportCalculator
}

// Server wraps the dashboard services and exposes them as MCP tools.
type Server struct {
	server *gomcp.Server
	deps   Deps
}

// NewServer creates a new MCP server over deps.
func NewServer(deps Deps, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{deps: deps}
	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "visionqc", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type getStatsInput struct{}

type statsOutput struct {
	TotalInspected int     `json:"total_inspected"`
	PassCount      int     `json:"pass_count"`
	FailCount      int     `json:"fail_count"`
	PassRate       string  `json:"pass_rate"`
	AvgLatency     float64 `json:"avg_latency_seconds"`
	Uptime         string  `json:"uptime"`
}

type listAlertsInput struct{}

type alertOutput struct {
	ID        string `json:"id"`
	Severity  string `json:"severity"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

type listAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

type listInspectionsInput struct {
	Query  string `json:"query,omitempty" jsonschema:"match the record id or defect type, case-insensitive"`
	Camera string `json:"camera,omitempty" jsonschema:"camera station: all, 1 or 2"`
	Result string `json:"result,omitempty" jsonschema:"verdict: all, pass or fail"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of records to return, 0 for all"`
}

type inspectionOutput struct {
	ID         string `json:"id"`
	Timestamp  string `json:"timestamp"`
	Camera     string `json:"camera"`
	Result     string `json:"result"`
	Confidence int    `json:"confidence"`
	DefectType string `json:"defect_type,omitempty"`
}

type listInspectionsOutput struct {
	Records []inspectionOutput `json:"records"`
	Count   int                `json:"count"`
}

type getSessionInput struct{}

type sessionOutput struct {
	State    string `json:"state"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

type getReportInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type reportOutput struct {
	Ticks            int            `json:"ticks"`
	AlertsRaised     int            `json:"alerts_raised"`
	AlertsBySeverity map[string]int `json:"alerts_by_severity"`
	AlertsDismissed  int            `json:"alerts_dismissed"`
	AlertsExpired    int            `json:"alerts_expired"`
	Logins           int            `json:"logins"`
	CameraToggles    int            `json:"camera_toggles"`
	EventCount       int            `json:"event_count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_stats",
		Description: "Get the live inspection statistics: totals, pass and fail counts, pass rate, latency and uptime.",
	}, s.handleGetStats)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_alerts",
		Description: "List the active quality alerts, oldest first.",
	}, s.handleListAlerts)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_inspections",
		Description: "List inspection history records with optional query, camera and result filters.",
	}, s.handleListInspections)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_session",
		Description: "Get the session state and the logged-in user, if any.",
	}, s.handleGetSession)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_report",
		Description: "Summarize recorded dashboard activity from the event log.",
	}, s.handleGetReport)
}

// --- Tool handlers ---

func (s *Server) handleGetStats(_ context.Context, _ *gomcp.CallToolRequest, _ getStatsInput) (*gomcp.CallToolResult, statsOutput, error) {
	if s.deps.Stats == nil {
		return errorResult("statistics not available"), statsOutput{}, nil
	}
	st := s.deps.Stats.Snapshot()
	return nil, statsOutput{
		TotalInspected: st.TotalInspected,
		PassCount:      st.PassCount,
		FailCount:      st.FailCount,
		PassRate:       st.PassRateString(),
		AvgLatency:     st.AvgLatency,
		Uptime:         st.Uptime,
	}, nil
}

func (s *Server) handleListAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ listAlertsInput) (*gomcp.CallToolResult, listAlertsOutput, error) {
	if s.deps.Alerts == nil {
		return errorResult("alert queue not available"), listAlertsOutput{Alerts: []alertOutput{}}, nil
	}
	alerts := s.deps.Alerts.List()
	out := listAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:        a.ID,
			Severity:  string(a.Severity),
			Title:     a.Title,
			Message:   a.Message,
			CreatedAt: a.CreatedAt.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}

func (s *Server) handleListInspections(_ context.Context, _ *gomcp.CallToolRequest, input listInspectionsInput) (*gomcp.CallToolResult, listInspectionsOutput, error) {
	empty := listInspectionsOutput{Records: []inspectionOutput{}}

	cam, err := history.ParseCamera(input.Camera)
	if err != nil {
		return errorResult(err.Error()), empty, nil
	}
	res, err := history.ParseResult(input.Result)
	if err != nil {
		return errorResult(err.Error()), empty, nil
	}
	if input.Limit < 0 {
		return errorResult("limit must not be negative"), empty, nil
	}

	rows := history.Filter{Query: input.Query, Camera: cam, Result: res}.Apply(s.deps.History)
	if input.Limit > 0 && len(rows) > input.Limit {
		rows = rows[:input.Limit]
	}

	out := listInspectionsOutput{
		Records: make([]inspectionOutput, len(rows)),
		Count:   len(rows),
	}
	for i, r := range rows {
		out.Records[i] = inspectionOutput{
			ID:         r.ID,
			Timestamp:  r.Timestamp.Format(time.RFC3339),
			Camera:     r.Camera,
			Result:     string(r.Result),
			Confidence: r.Confidence,
			DefectType: r.DefectType,
		}
	}
	return nil, out, nil
}

func (s *Server) handleGetSession(_ context.Context, _ *gomcp.CallToolRequest, _ getSessionInput) (*gomcp.CallToolResult, sessionOutput, error) {
	if s.deps.Session == nil {
		return errorResult("session not available"), sessionOutput{}, nil
	}
	out := sessionOutput{State: s.deps.Session.State().String()}
	if u := s.deps.Session.User(); u != nil {
		out.Email = u.Email
		out.Username = u.Username
		out.Role = string(u.Role)
	}
	return nil, out, nil
}

func (s *Server) handleGetReport(_ context.Context, _ *gomcp.CallToolRequest, input getReportInput) (*gomcp.CallToolResult, reportOutput, error) {
	empty := reportOutput{AlertsBySeverity: map[string]int{}}
	if s.deps.Reports == nil {
		return errorResult("report calculator not available (event log may be disabled)"), empty, nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}
	sinceTime, err := parseSince(sinceStr)
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), empty, nil
	}

	r, err := s.deps.Reports.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating report: %s", err)), empty, nil
	}
	return nil, reportOutput{
		Ticks:            r.Ticks,
		AlertsRaised:     r.AlertsRaised,
		AlertsBySeverity: r.AlertsBySeverity,
		AlertsDismissed:  r.AlertsDismissed,
		AlertsExpired:    r.AlertsExpired,
		Logins:           r.Logins,
		CameraToggles:    r.CameraToggles,
		EventCount:       r.EventCount,
	}, nil
}

// --- Helpers ---

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// parseSince parses a human-friendly duration string like "7d", "30d", or "24h"
// into the corresponding time in the past.
func parseSince(s string) (time.Time, error) {
	now := time.Now().UTC()

	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]
	var num int
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
