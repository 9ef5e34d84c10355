package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/visionqc/visionqc/internal/camera"
	"github.com/visionqc/visionqc/internal/history"
	"github.com/visionqc/visionqc/internal/observability"
)

// Texts of the dashboard quick actions.
const (
	startAllTitle   = "操作成功"
	startAllMessage = "所有工位检测已启动"
	exportTitle     = "导出成功"
)

// passRateTarget is the pass rate below which the card turns amber.
const passRateTarget = 98.0

// Change notifications sent from the feed observers. The model re-reads the
// feed on receipt, so a late message never shows stale state.
type (
	statsChangedMsg  struct{}
	alertsChangedMsg struct{}
	cameraChangedMsg struct{}
)

// feedStartMsg arms the feed timers from inside the program loop, after
// bindFeed has registered the observers.
type feedStartMsg struct{}

func startFeed() tea.Msg { return feedStartMsg{} }

type dashboardModel struct {
	feed     *liveFeed
	selected int
	width    int
	height   int

	// standalone models quit on q; embedded ones leave that to the app.
	standalone bool

	stats   observability.Stats
	alerts  []observability.Alert
	cameras []camera.Snapshot
}

func newDashboardModel(feed *liveFeed) dashboardModel {
	m := dashboardModel{feed: feed}
	return m.refresh()
}

// bindFeed forwards feed changes to send. send must not block the caller:
// observers fire inside Update when a key mutates the feed.
func bindFeed(feed *liveFeed, send func(tea.Msg)) {
	feed.sim.OnTick(func(observability.TickResult) { send(statsChangedMsg{}) })
	feed.queue.OnChange(func() { send(alertsChangedMsg{}) })
	for _, mon := range feed.cameras.Monitors() {
		mon.OnChange(func(camera.Snapshot) { send(cameraChangedMsg{}) })
	}
}

func (m dashboardModel) refresh() dashboardModel {
	m.stats = m.feed.sim.Snapshot()
	m.alerts = m.feed.queue.List()
	m.cameras = m.feed.cameras.Snapshots()
	return m
}

func (m dashboardModel) Init() tea.Cmd {
	if m.standalone {
		return startFeed
	}
	return nil
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case feedStartMsg:
		m.feed.start()
		return m, nil

	case statsChangedMsg:
		m.stats = m.feed.sim.Snapshot()
		return m, nil

	case alertsChangedMsg:
		m.alerts = m.feed.queue.List()
		return m, nil

	case cameraChangedMsg:
		m.cameras = m.feed.cameras.Snapshots()
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	monitors := m.feed.cameras.Monitors()

	switch msg.String() {
	case "q", "esc", "ctrl+c":
		if m.standalone || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case "left", "h":
		if len(monitors) > 0 {
			m.selected = (m.selected - 1 + len(monitors)) % len(monitors)
		}
	case "right", "l", "tab":
		if len(monitors) > 0 {
			m.selected = (m.selected + 1) % len(monitors)
		}
	case " ", "enter":
		if m.selected < len(monitors) {
			monitors[m.selected].Toggle()
		}
	case "s":
		m.feed.cameras.StartAll()
		m.feed.queue.ShowSuccess(startAllTitle, startAllMessage)
	case "p":
		m.feed.cameras.StopAll()
	case "x":
		if len(m.alerts) > 0 {
			m.feed.queue.Remove(m.alerts[0].ID)
		}
	case "e":
		path, err := exportTodayReport(time.Now())
		if err != nil {
			m.feed.queue.ShowError("导出失败", err.Error())
		} else {
			m.feed.queue.ShowSuccess(exportTitle, path)
		}
	}
	return m.refresh(), nil
}

// exportTodayReport writes the history records as CSV into the data
// directory and returns the file path.
func exportTodayReport(now time.Time) (string, error) {
	dir := BasePath
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, fmt.Sprintf("visionqc_report_%s.csv", now.Format("20060102")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating report: %w", err)
	}
	if err := history.WriteCSV(f, History); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing report: %w", err)
	}
	return path, nil
}

func (m dashboardModel) View() string {
	width := m.width
	if width == 0 {
		width = 100
	}

	sections := []string{
		heroStyle.Width(width - 2).Render("慧眼质控云 —— AI驱动的新一代工业质检平台\n实时监控生产线质量状态 • 智能缺陷识别"),
	}
	if banners := renderAlertStack(m.alerts, width-2); banners != "" {
		sections = append(sections, banners)
	}
	sections = append(sections,
		m.renderStats(width),
		m.renderCameras(width),
		m.renderPanels(width),
		helpStyle.Render("←/→: select camera | space: toggle | s: start all | p: pause all | x: dismiss alert | e: export report"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m dashboardModel) statCards() []statCard {
	s := m.stats
	rateVariant := variantSuccess
	if s.PassRate() < passRateTarget {
		rateVariant = variantWarning
	}
	return []statCard{
		{title: "总检测数", value: formatThousands(s.TotalInspected)},
		{title: "合格产品", value: formatThousands(s.PassCount), variant: variantSuccess},
		{title: "不合格产品", value: fmt.Sprintf("%d", s.FailCount), variant: variantError},
		{title: "合格率", value: s.PassRateString() + "%", subtitle: "目标: ≥98%", trend: "+0.3% vs 昨日", variant: rateVariant},
		{title: "平均延迟", value: fmt.Sprintf("%gs", s.AvgLatency), subtitle: "目标: ≤2s", variant: variantSuccess},
		{title: "系统正常运行时间", value: s.Uptime, variant: variantSuccess},
	}
}

func (m dashboardModel) renderStats(width int) string {
	cards := m.statCards()
	perRow := 6
	if width < 120 {
		perRow = 3
	}
	cardWidth := width/perRow - 2

	var rows []string
	for i := 0; i < len(cards); i += perRow {
		end := i + perRow
		if end > len(cards) {
			end = len(cards)
		}
		rendered := make([]string, 0, perRow)
		for _, c := range cards[i:end] {
			rendered = append(rendered, c.render(cardWidth))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m dashboardModel) renderCameras(width int) string {
	if len(m.cameras) == 0 {
		return mutedStyle.Render("  No cameras configured.")
	}
	colWidth := width/len(m.cameras) - 4
	views := make([]string, len(m.cameras))
	for i, c := range m.cameras {
		views[i] = renderCameraView(c, i == m.selected, colWidth)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, views...)
}

func renderCameraView(c camera.Snapshot, selected bool, width int) string {
	var b strings.Builder
	title := c.Title
	if c.Active {
		title += " ★"
	}
	b.WriteString(headerStyle.Render(title))
	b.WriteString("  ")
	b.WriteString(renderStatusIndicator(c.Status, c.Status.Label()))
	b.WriteString("\n\n")

	if c.Detecting {
		b.WriteString("  ◐ 检测中...\n")
		b.WriteString(fmt.Sprintf("  %s 正常 98%%   %s 缺陷 85%%\n\n",
			lipgloss.NewStyle().Foreground(colorSuccess).Render("▣"),
			lipgloss.NewStyle().Foreground(colorError).Render("▣")))
		b.WriteString(fmt.Sprintf("  检测数 %s   合格率 %s   FPS %s\n", "1,247", "98.3%", "15.2"))
		b.WriteString("\n  [暂停检测]")
	} else {
		b.WriteString(mutedStyle.Render("  点击开始检测"))
		b.WriteString("\n\n\n\n  [开始检测]")
	}

	style := panelStyle
	if selected {
		style = activePanelStyle
	}
	if width > 0 {
		style = style.Width(width)
	}
	return style.Render(b.String())
}

func (m dashboardModel) renderPanels(width int) string {
	colWidth := width/3 - 4

	quick := headerStyle.Render("快速操作") + "\n" +
		"  [s] 启动所有检测\n" +
		"  [p] 暂停所有检测\n" +
		"  [e] 导出今日报告"

	live := headerStyle.Render("实时状态") + "\n" +
		fmt.Sprintf("  %-8s %s\n", "FPS", "15.2") +
		fmt.Sprintf("  %-8s %s\n", "CPU", "45%") +
		fmt.Sprintf("  %-8s %s\n", "内存", "2.1/8GB") +
		fmt.Sprintf("  %-8s %s", "磁盘", "127GB")

	overview := headerStyle.Render("今日概览") + "\n" +
		fmt.Sprintf("  %-8s %s\n", "开始时间", "08:00") +
		fmt.Sprintf("  %-8s %s\n", "运行时长", "6h 32m") +
		fmt.Sprintf("  %-8s %s\n", "平均产能", "190件/h") +
		fmt.Sprintf("  %-8s %s", "预计完成", "17:30")

	return lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Width(colWidth).Render(quick),
		panelStyle.Width(colWidth).Render(live),
		panelStyle.Width(colWidth).Render(overview),
	)
}

// runFeedProgram runs model full-screen with the feed bound to it, then
// disarms every timer. The model arms the feed itself by answering
// feedStartMsg.
func runFeedProgram(feed *liveFeed, model tea.Model) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	defer feed.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	bindFeed(feed, func(msg tea.Msg) { go p.Send(msg) })
	feed.serveMetrics(ctx, metricsAddr)

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("running dashboard: %w", err)
	}
	return nil
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Live inspection dashboard without login",
	Long: `Launch the real-time detection dashboard directly: statistics cards,
camera stations, quick actions and stacked quality alerts.

Select a camera with the arrow keys and toggle detection with space.
Use 'visionqc ui' for the full application with login and history.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		feed := newLiveFeed(nil)
		m := newDashboardModel(feed)
		m.standalone = true
		return runFeedProgram(feed, m)
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
