package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/visionqc/visionqc/internal/history"
	"github.com/visionqc/visionqc/internal/observability"
	"github.com/visionqc/visionqc/internal/random"
	"github.com/visionqc/visionqc/internal/session"
	"github.com/visionqc/visionqc/pkg/models"
)

// --- Fake implementations ---

type fakeStats struct{ stats observability.Stats }

func (f fakeStats) Snapshot() observability.Stats { return f.stats }

type fakeAlerts struct{ alerts []observability.Alert }

func (f fakeAlerts) List() []observability.Alert { return f.alerts }

type fakeSession struct {
	user  *models.User
	state session.State
}

func (f fakeSession) User() *models.User   { return f.user }
func (f fakeSession) State() session.State { return f.state }

type fakeReports struct{ report *observability.Report }

func (f fakeReports) Calculate(time.Time) (*observability.Report, error) { return f.report, nil }

// --- Test helpers ---

var testNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func sampleHistory() []models.InspectionRecord {
	return history.Generate(testNow, history.DefaultRecords, random.NewSequence([]int{5}, nil))
}

// callTool connects a client to the server over in-memory transports and
// calls a tool.
func callTool(t *testing.T, srv *Server, toolName string, args map[string]any) *gomcp.CallToolResult {
	t.Helper()

	ctx := context.Background()
	client := gomcp.NewClient(&gomcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)

	t1, t2 := gomcp.NewInMemoryTransports()
	go func() {
		_ = srv.MCPServer().Run(ctx, t1)
	}()

	cs, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer cs.Close()

	result, err := cs.CallTool(ctx, &gomcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("call tool %s: %v", toolName, err)
	}
	return result
}

// decode reads the tool output from structured content, falling back to the
// text content.
func decode(t *testing.T, result *gomcp.CallToolResult, out any) {
	t.Helper()
	if result.StructuredContent != nil {
		data, _ := json.Marshal(result.StructuredContent)
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("unmarshalling structured content: %v", err)
		}
		return
	}
	text := extractText(result)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		t.Fatalf("unmarshalling text content: %v (text was: %s)", err, text)
	}
}

// --- Tests ---

func TestGetStats(t *testing.T) {
	srv := NewServer(Deps{Stats: fakeStats{observability.DefaultStats()}}, "test")

	result := callTool(t, srv, "get_stats", map[string]any{})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}

	var out statsOutput
	decode(t, result, &out)
	if out.TotalInspected != 1247 || out.PassCount != 1226 || out.FailCount != 21 {
		t.Errorf("unexpected counters %+v", out)
	}
	if out.PassRate != "98.3" {
		t.Errorf("expected pass rate 98.3, got %s", out.PassRate)
	}
	if out.Uptime != "99.7%" {
		t.Errorf("expected uptime 99.7%%, got %s", out.Uptime)
	}
}

func TestGetStatsUnavailable(t *testing.T) {
	srv := NewServer(Deps{}, "test")

	result := callTool(t, srv, "get_stats", map[string]any{})
	if !result.IsError {
		t.Fatal("expected error when stats source is nil")
	}
	if extractText(result) == "" {
		t.Fatal("expected error message in result")
	}
}

func TestListAlerts(t *testing.T) {
	alerts := fakeAlerts{alerts: []observability.Alert{
		{ID: "a1", Severity: observability.SeverityError, Title: observability.AnomalyTitle, Message: observability.AnomalyMessage, CreatedAt: testNow},
		{ID: "a2", Severity: observability.SeverityWarning, Title: observability.LowConfidenceTitle, CreatedAt: testNow},
	}}
	srv := NewServer(Deps{Alerts: alerts}, "test")

	result := callTool(t, srv, "list_alerts", map[string]any{})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}

	var out listAlertsOutput
	decode(t, result, &out)
	if out.Count != 2 {
		t.Fatalf("expected 2 alerts, got %d", out.Count)
	}
	if out.Alerts[0].ID != "a1" || out.Alerts[0].Severity != "error" {
		t.Errorf("unexpected first alert %+v", out.Alerts[0])
	}
	if out.Alerts[1].Title != observability.LowConfidenceTitle {
		t.Errorf("unexpected second title %q", out.Alerts[1].Title)
	}
}

func TestListAlertsEmpty(t *testing.T) {
	srv := NewServer(Deps{Alerts: fakeAlerts{}}, "test")

	result := callTool(t, srv, "list_alerts", map[string]any{})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}
	var out listAlertsOutput
	decode(t, result, &out)
	if out.Count != 0 {
		t.Errorf("expected 0 alerts, got %d", out.Count)
	}
}

func TestListInspectionsAll(t *testing.T) {
	srv := NewServer(Deps{History: sampleHistory()}, "test")

	result := callTool(t, srv, "list_inspections", map[string]any{})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}
	var out listInspectionsOutput
	decode(t, result, &out)
	if out.Count != history.DefaultRecords {
		t.Errorf("expected %d records, got %d", history.DefaultRecords, out.Count)
	}
}

func TestListInspectionsWithFilter(t *testing.T) {
	srv := NewServer(Deps{History: sampleHistory()}, "test")

	result := callTool(t, srv, "list_inspections", map[string]any{"result": "fail"})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}
	var out listInspectionsOutput
	decode(t, result, &out)
	if out.Count != 2 {
		t.Fatalf("expected 2 failed records, got %d", out.Count)
	}
	for _, r := range out.Records {
		if r.Result != string(models.ResultFail) || r.DefectType != history.DefectBottleDamage {
			t.Errorf("unexpected record %+v", r)
		}
	}

	result = callTool(t, srv, "list_inspections", map[string]any{"camera": "1", "limit": 2})
	decode(t, result, &out)
	if out.Count != 2 {
		t.Fatalf("expected limit to cap at 2, got %d", out.Count)
	}
	for _, r := range out.Records {
		if r.Camera != history.StationLabel(1) {
			t.Errorf("unexpected camera %q", r.Camera)
		}
	}
}

func TestListInspectionsInvalidFilter(t *testing.T) {
	srv := NewServer(Deps{History: sampleHistory()}, "test")

	result := callTool(t, srv, "list_inspections", map[string]any{"camera": "9"})
	if !result.IsError {
		t.Fatal("expected error for unknown camera")
	}
}

func TestGetSession(t *testing.T) {
	user := &models.User{Email: "admin@example.com", Role: models.RoleAdmin, Username: "系统管理员"}
	srv := NewServer(Deps{Session: fakeSession{user: user, state: session.StateAuthenticated}}, "test")

	result := callTool(t, srv, "get_session", map[string]any{})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}
	var out sessionOutput
	decode(t, result, &out)
	if out.State != session.StateAuthenticated.String() {
		t.Errorf("expected state %s, got %s", session.StateAuthenticated, out.State)
	}
	if out.Email != user.Email || out.Role != "admin" {
		t.Errorf("unexpected user %+v", out)
	}
}

func TestGetSessionAnonymous(t *testing.T) {
	srv := NewServer(Deps{Session: fakeSession{state: session.StateAnonymous}}, "test")

	result := callTool(t, srv, "get_session", map[string]any{})
	var out sessionOutput
	decode(t, result, &out)
	if out.State != session.StateAnonymous.String() || out.Email != "" {
		t.Errorf("expected anonymous session, got %+v", out)
	}
}

func TestGetReport(t *testing.T) {
	reports := fakeReports{report: &observability.Report{
		Ticks:            12,
		AlertsRaised:     3,
		AlertsBySeverity: map[string]int{"error": 1, "warning": 2},
		Logins:           1,
		EventCount:       20,
	}}
	srv := NewServer(Deps{Reports: reports}, "test")

	result := callTool(t, srv, "get_report", map[string]any{"since": "24h"})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}
	var out reportOutput
	decode(t, result, &out)
	if out.Ticks != 12 || out.AlertsRaised != 3 || out.EventCount != 20 {
		t.Errorf("unexpected report %+v", out)
	}
	if out.AlertsBySeverity["warning"] != 2 {
		t.Errorf("expected 2 warnings, got %d", out.AlertsBySeverity["warning"])
	}
}

func TestGetReportDisabled(t *testing.T) {
	srv := NewServer(Deps{}, "test")

	result := callTool(t, srv, "get_report", map[string]any{})
	if !result.IsError {
		t.Fatal("expected error when report calculator is nil")
	}
}

func TestParseSince(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"7d", false},
		{"30d", false},
		{"24h", false},
		{"", true},
		{"x", true},
		{"7x", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := parseSince(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseSince(%q) error = %v, wantErr = %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

// extractText extracts the text from the first TextContent in a CallToolResult.
func extractText(result *gomcp.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(*gomcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}
