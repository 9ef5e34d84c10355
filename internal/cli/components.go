package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/visionqc/visionqc/internal/camera"
	"github.com/visionqc/visionqc/internal/observability"
	"github.com/visionqc/visionqc/pkg/models"
)

// cardVariant tints a stat card border.
type cardVariant int

const (
	variantDefault cardVariant = iota
	variantSuccess
	variantWarning
	variantError
)

// Style definitions.
var (
	colorPrimary = lipgloss.Color("62")
	colorSuccess = lipgloss.Color("42")
	colorWarning = lipgloss.Color("214")
	colorError   = lipgloss.Color("196")
	colorMuted   = lipgloss.Color("241")
	colorBorder  = lipgloss.Color("240")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(colorPrimary).
			Padding(0, 1)

	heroStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("24")).
			Padding(0, 2)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	valueStyle = lipgloss.NewStyle().Bold(true)
	helpStyle  = lipgloss.NewStyle().Foreground(colorMuted)

	navItemStyle   = lipgloss.NewStyle().Padding(0, 1)
	navActiveStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(colorPrimary)
)

func variantColor(v cardVariant) lipgloss.Color {
	switch v {
	case variantSuccess:
		return colorSuccess
	case variantWarning:
		return colorWarning
	case variantError:
		return colorError
	default:
		return colorBorder
	}
}

// statCard is one tile of the statistics row.
type statCard struct {
	title    string
	value    string
	subtitle string
	trend    string
	variant  cardVariant
}

func (c statCard) render(width int) string {
	var b strings.Builder
	b.WriteString(mutedStyle.Render(c.title))
	b.WriteString("\n")
	b.WriteString(valueStyle.Render(c.value))
	if c.subtitle != "" {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(c.subtitle))
	}
	if c.trend != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(colorSuccess).Render(c.trend))
	}
	style := panelStyle.BorderForeground(variantColor(c.variant))
	if width > 0 {
		style = style.Width(width)
	}
	return style.Render(b.String())
}

func statusColor(s camera.Status) lipgloss.Color {
	switch s {
	case camera.StatusOnline:
		return colorSuccess
	case camera.StatusWarning:
		return colorWarning
	default:
		return colorError
	}
}

// renderStatusIndicator draws a colored dot followed by an optional label.
func renderStatusIndicator(s camera.Status, label string) string {
	dot := lipgloss.NewStyle().Foreground(statusColor(s)).Render("●")
	if label == "" {
		return dot
	}
	return dot + " " + label
}

func severityColor(s observability.AlertSeverity) lipgloss.Color {
	switch s {
	case observability.SeveritySuccess:
		return colorSuccess
	case observability.SeverityWarning:
		return colorWarning
	default:
		return colorError
	}
}

func severityIcon(s observability.AlertSeverity) string {
	switch s {
	case observability.SeveritySuccess:
		return "✔"
	case observability.SeverityWarning:
		return "!"
	default:
		return "✖"
	}
}

// renderAlertBanner draws one alert as a full-width colored strip.
func renderAlertBanner(a observability.Alert, width int) string {
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("230")).
		Background(severityColor(a.Severity)).
		Padding(0, 1)
	if width > 0 {
		style = style.Width(width)
	}
	text := fmt.Sprintf("%s %s  %s", severityIcon(a.Severity), lipgloss.NewStyle().Bold(true).Render(a.Title), a.Message)
	return style.Render(text)
}

// renderAlertStack draws every alert, oldest first.
func renderAlertStack(alerts []observability.Alert, width int) string {
	if len(alerts) == 0 {
		return ""
	}
	lines := make([]string, len(alerts))
	for i, a := range alerts {
		lines[i] = renderAlertBanner(a, width)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Navigation pages.
const (
	pageDashboard = iota
	pageHistory
	pageMonitoring
	pageUsers
	pageSettings
	pageCount
)

var navItems = [pageCount]string{
	pageDashboard:  "实时检测",
	pageHistory:    "历史记录",
	pageMonitoring: "系统监控",
	pageUsers:      "用户管理",
	pageSettings:   "系统设置",
}

// renderNavigation draws the sidebar: brand, system status, page list,
// current user and the logout hint.
func renderNavigation(active int, user *models.User) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("VisionQC"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("NeXtGen"))
	b.WriteString("\n\n")

	b.WriteString("系统状态 ")
	b.WriteString(renderStatusIndicator(camera.StatusOnline, ""))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("所有设备运行正常"))
	b.WriteString("\n\n")

	for i, name := range navItems {
		style := navItemStyle
		if i == active {
			style = navActiveStyle
		}
		b.WriteString(style.Render(name))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if user != nil {
		b.WriteString(user.Username)
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(user.Email))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render("ctrl+l 退出登录"))
	return panelStyle.Width(22).Render(b.String())
}

// formatThousands renders n with comma grouping.
func formatThousands(n int) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
