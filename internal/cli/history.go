package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/visionqc/visionqc/internal/history"
	"github.com/visionqc/visionqc/pkg/models"
)

const (
	historyEmptyTitle = "未找到匹配的记录"
	historyEmptyHint  = "请尝试调整筛选条件"
)

// historyModel browses the inspection history with a search box and the
// camera and result selectors.
type historyModel struct {
	records   []models.InspectionRecord
	filter    history.Filter
	cursor    int
	searching bool
	width     int
	height    int
}

func newHistoryModel(records []models.InspectionRecord) historyModel {
	return historyModel{
		records: records,
		filter:  history.Filter{Camera: history.All, Result: history.All},
	}
}

func (m historyModel) visible() []models.InspectionRecord {
	return m.filter.Apply(m.records)
}

func (m historyModel) Init() tea.Cmd {
	return nil
}

func (m historyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKey(msg), nil
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m historyModel) handleSearchKey(msg tea.KeyMsg) historyModel {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc:
		m.searching = false
	case tea.KeyBackspace:
		m.filter.Query = dropLastRune(m.filter.Query)
	case tea.KeyRunes, tea.KeySpace:
		m.filter.Query += string(msg.Runes)
	}
	m.cursor = 0
	return m
}

func (m historyModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "/":
		m.searching = true
	case "c":
		m.filter.Camera = nextChoice(history.CameraChoices(), m.filter.Camera)
		m.cursor = 0
	case "r":
		m.filter.Result = nextChoice(history.ResultChoices(), m.filter.Result)
		m.cursor = 0
	case "backspace":
		m.filter = history.Filter{Camera: history.All, Result: history.All}
		m.cursor = 0
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.visible())-1 {
			m.cursor++
		}
	}
	return m, nil
}

// nextChoice returns the value after current in choices, wrapping around.
func nextChoice(choices []string, current string) string {
	for i, c := range choices {
		if c == current {
			return choices[(i+1)%len(choices)]
		}
	}
	return choices[0]
}

func choiceLabel(v, allLabel string) string {
	if v == "" || v == history.All {
		return allLabel
	}
	return v
}

func (m historyModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("检测历史记录"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("查看和管理历史检测数据"))
	b.WriteString("\n\n")

	search := m.filter.Query
	if search == "" && !m.searching {
		search = mutedStyle.Render("搜索ID或缺陷类型...")
	}
	if m.searching {
		search += "▌"
	}
	filters := headerStyle.Render("筛选条件") + "\n" +
		fmt.Sprintf("  搜索 [/]: %s\n", search) +
		fmt.Sprintf("  检测工位 [c]: %s   检测结果 [r]: %s", choiceLabel(m.filter.Camera, "全部工位"), choiceLabel(m.filter.Result, "全部结果"))
	b.WriteString(panelStyle.Render(filters))
	b.WriteString("\n")

	rows := m.visible()
	b.WriteString(headerStyle.Render(fmt.Sprintf("检测记录 (%d)", len(rows))))
	b.WriteString("\n")

	if len(rows) == 0 {
		b.WriteString(panelStyle.Render(valueStyle.Render(historyEmptyTitle) + "\n" + mutedStyle.Render(historyEmptyHint)))
		b.WriteString("\n")
	} else {
		for i, rec := range rows {
			b.WriteString(renderHistoryRow(rec, i == m.cursor))
			b.WriteString("\n")
		}
	}

	b.WriteString(helpStyle.Render("/: search | c: camera | r: result | backspace: clear | j/k: move"))
	return b.String()
}

func renderHistoryRow(rec models.InspectionRecord, selected bool) string {
	resultColor := colorSuccess
	if !rec.Passed() {
		resultColor = colorError
	}
	defect := ""
	if rec.DefectType != "" {
		defect = "  缺陷类型: " + rec.DefectType
	}
	line := fmt.Sprintf("%-26s %s  %s  %s  置信度: %d%%%s",
		rec.ID,
		rec.Timestamp.Format("2006-01-02 15:04:05"),
		rec.Camera,
		lipgloss.NewStyle().Foreground(resultColor).Render(string(rec.Result)),
		rec.Confidence,
		defect,
	)
	if selected {
		return navActiveStyle.Render(line)
	}
	return navItemStyle.Render(line)
}

// --- Commands ---

var (
	historyQuery      string
	historyCamera     string
	historyResult     string
	historyJSON       bool
	historyOut        string
	historyThumbnails string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and export the detection history",
}

// historySelection resolves the filter flags against History.
func historySelection() ([]models.InspectionRecord, error) {
	cam, err := history.ParseCamera(historyCamera)
	if err != nil {
		return nil, err
	}
	res, err := history.ParseResult(historyResult)
	if err != nil {
		return nil, err
	}
	f := history.Filter{Query: historyQuery, Camera: cam, Result: res}
	return f.Apply(History), nil
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List detection records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := historySelection()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if historyJSON {
			data, err := json.MarshalIndent(rows, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting history as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		if len(rows) == 0 {
			fmt.Fprintf(out, "%s\n%s\n", historyEmptyTitle, historyEmptyHint)
			return nil
		}
		return writeHistoryTable(out, rows)
	},
}

func writeHistoryTable(w io.Writer, rows []models.InspectionRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tCAMERA\tRESULT\tCONFIDENCE\tDEFECT")
	for _, rec := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d%%\t%s\n",
			rec.ID, rec.Timestamp.Format("2006-01-02 15:04"), rec.Camera, rec.Result, rec.Confidence, rec.DefectType)
	}
	return tw.Flush()
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export detection records as CSV",
	Long: `Export the filtered detection records as CSV to --out, or stdout when
--out is empty. With --thumbnails, a PNG preview is written per record.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := historySelection()
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if historyOut != "" {
			f, err := os.Create(historyOut)
			if err != nil {
				return fmt.Errorf("creating %s: %w", historyOut, err)
			}
			defer f.Close()
			w = f
		}
		if err := history.WriteCSV(w, rows); err != nil {
			return err
		}

		if historyThumbnails != "" {
			paths, err := history.ExportThumbnails(historyThumbnails, rows)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d thumbnails to %s\n", len(paths), historyThumbnails)
		}
		if historyOut != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d records to %s\n", len(rows), historyOut)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{historyListCmd, historyExportCmd} {
		c.Flags().StringVar(&historyQuery, "query", "", "Match record id or defect type")
		c.Flags().StringVar(&historyCamera, "camera", history.All, "Camera station: all, 1 or 2")
		c.Flags().StringVar(&historyResult, "result", history.All, "Result: all, pass or fail")
	}
	historyListCmd.Flags().BoolVar(&historyJSON, "json", false, "Output as JSON")
	historyExportCmd.Flags().StringVarP(&historyOut, "out", "o", "", "Output file (default stdout)")
	historyExportCmd.Flags().StringVar(&historyThumbnails, "thumbnails", "", "Directory for PNG thumbnails")

	historyCmd.AddCommand(historyListCmd, historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}
