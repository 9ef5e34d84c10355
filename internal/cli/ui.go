package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/visionqc/visionqc/pkg/models"
)

// navWidth is the horizontal space taken by the sidebar.
const navWidth = 26

// appModel routes between the login screen and the navigated pages. The
// dashboard, history and login sub-models keep their own state across page
// switches.
type appModel struct {
	feed   *liveFeed
	user   *models.User
	page   int
	width  int
	height int

	login     loginModel
	dashboard dashboardModel
	history   historyModel
}

func newAppModel(feed *liveFeed) appModel {
	m := appModel{
		feed:      feed,
		login:     newLoginModel(),
		dashboard: newDashboardModel(feed),
		history:   newHistoryModel(History),
	}
	if Session != nil {
		m.user = Session.User()
	}
	return m
}

func (m appModel) authenticated() bool {
	return m.user != nil
}

// Init arms the feed for a restored session. Anonymous apps arm it on login.
func (m appModel) Init() tea.Cmd {
	if m.authenticated() {
		return startFeed
	}
	return nil
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		inner := tea.WindowSizeMsg{Width: msg.Width - navWidth, Height: msg.Height}
		m.dashboard = update(m.dashboard, inner)
		m.history = update(m.history, inner)
		m.login = update(m.login, msg)
		return m, nil

	case feedStartMsg:
		if m.authenticated() {
			m.feed.start()
		}
		return m, nil

	case statsChangedMsg, alertsChangedMsg, cameraChangedMsg:
		m.dashboard = update(m.dashboard, msg)
		return m, nil

	case loginResultMsg:
		m.login = update(m.login, msg)
		if msg.err != nil {
			m.feed.queue.ShowError(loginFailedTitle, loginFailureMessage(msg.err))
		} else {
			u := msg.user
			m.user = &u
			m.page = pageDashboard
			m.login = newLoginModel()
			m.feed.start()
			m.feed.queue.ShowSuccess(loginOKTitle, loginOKMessage)
		}
		return m.refresh(), nil

	case tea.KeyMsg:
		if !m.authenticated() {
			next, cmd := m.login.Update(msg)
			m.login = next.(loginModel)
			return m, cmd
		}
		return m.handleKey(msg)
	}
	return m, nil
}

// update forwards msg to a sub-model that never returns commands for it.
func update[M tea.Model](sub M, msg tea.Msg) M {
	next, _ := sub.Update(msg)
	return next.(M)
}

func (m appModel) refresh() appModel {
	m.dashboard = m.dashboard.refresh()
	return m
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The search box swallows every key except ctrl+c.
	if m.page == pageHistory && m.history.searching && msg.String() != "ctrl+c" {
		m.history = update(m.history, msg)
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "]":
		m.page = (m.page + 1) % pageCount
		return m, nil
	case "[":
		m.page = (m.page - 1 + pageCount) % pageCount
		return m, nil
	case "ctrl+l":
		if Session != nil {
			if err := Session.Logout(); err != nil {
				Logger.Error().Err(err).Msg("clearing session")
			}
		}
		m.feed.stop()
		m.user = nil
		m.page = pageDashboard
		return m.refresh(), nil
	}

	var cmd tea.Cmd
	switch m.page {
	case pageDashboard:
		var next tea.Model
		next, cmd = m.dashboard.Update(msg)
		m.dashboard = next.(dashboardModel)
	case pageHistory:
		var next tea.Model
		next, cmd = m.history.Update(msg)
		m.history = next.(historyModel)
	}
	return m, cmd
}

func (m appModel) View() string {
	if !m.authenticated() {
		view := m.login.View()
		if banners := renderAlertStack(m.feed.queue.List(), 0); banners != "" {
			view = lipgloss.JoinVertical(lipgloss.Left, banners, view)
		}
		if m.width > 0 {
			return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, view)
		}
		return view
	}

	var content string
	switch m.page {
	case pageDashboard:
		content = m.dashboard.View()
	case pageHistory:
		content = m.history.View()
		if banners := renderAlertStack(m.feed.queue.List(), 0); banners != "" {
			content = lipgloss.JoinVertical(lipgloss.Left, banners, content)
		}
	case pageMonitoring:
		content = m.monitoringView()
	case pageUsers:
		content = m.usersView()
	case pageSettings:
		content = m.settingsView()
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, renderNavigation(m.page, m.user), content)
	return body + "\n" + helpStyle.Render("[/]: switch page | ctrl+l: logout | q: quit")
}

func (m appModel) monitoringView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(navItems[pageMonitoring]))
	b.WriteString("\n\n")

	stats := m.feed.sim.Snapshot()
	fmt.Fprintf(&b, "  %-10s %d\n", "模拟周期", m.feed.sim.Ticks())
	fmt.Fprintf(&b, "  %-10s %s\n", "总检测数", formatThousands(stats.TotalInspected))
	fmt.Fprintf(&b, "  %-10s %s%%\n", "合格率", stats.PassRateString())
	fmt.Fprintf(&b, "  %-10s %d\n\n", "活动告警", m.feed.queue.Len())

	b.WriteString(headerStyle.Render("工位状态"))
	b.WriteString("\n")
	for _, c := range m.feed.cameras.Snapshots() {
		state := "空闲"
		if c.Detecting {
			state = "检测中"
		}
		fmt.Fprintf(&b, "  %s  %s  %s  polls=%d\n", renderStatusIndicator(c.Status, c.Status.Label()), c.Title, state, c.Polls)
	}
	return panelStyle.Render(b.String())
}

func (m appModel) usersView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(navItems[pageUsers]))
	b.WriteString("\n\n")
	if m.user != nil {
		fmt.Fprintf(&b, "  %-6s %s\n", "用户名", m.user.Username)
		fmt.Fprintf(&b, "  %-6s %s\n", "邮箱", m.user.Email)
		fmt.Fprintf(&b, "  %-6s %s\n", "角色", m.user.Role)
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("  用户管理功能开发中"))
	return panelStyle.Render(b.String())
}

func (m appModel) settingsView() string {
	cfg := currentConfig()
	var b strings.Builder
	b.WriteString(titleStyle.Render(navItems[pageSettings]))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "  %-24s %s\n", "log_level", cfg.LogLevel)
	fmt.Fprintf(&b, "  %-24s %s\n", "alert_dismiss_after", cfg.AlertDismissAfter)
	fmt.Fprintf(&b, "  %-24s %s\n", "simulator.interval", cfg.Simulator.Interval)
	fmt.Fprintf(&b, "  %-24s %g\n", "simulator.fail_probability", cfg.Simulator.FailProbability)
	fmt.Fprintf(&b, "  %-24s %t\n", "simulator.enforce_bounds", cfg.Simulator.EnforceBounds)
	fmt.Fprintf(&b, "  %-24s %s\n", "cameras.poll_interval", cfg.Cameras.Interval)
	fmt.Fprintf(&b, "  %-24s %d\n", "history_records", cfg.HistoryRecords)
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("  编辑 visionqc.yaml 修改设置"))
	return panelStyle.Render(b.String())
}

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Full-screen application with login, dashboard and history",
	Long: `Launch the full VisionQC application. Without a stored session the
login screen is shown first (demo account: admin@example.com / admin123).

Switch pages with [ and ], log out with ctrl+l, and quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		feed := newLiveFeed(nil)
		return runFeedProgram(feed, newAppModel(feed))
	},
}

func init() {
	rootCmd.AddCommand(uiCmd)
}
