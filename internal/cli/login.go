package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/visionqc/visionqc/internal/session"
	"github.com/visionqc/visionqc/pkg/models"
)

// Login notification texts.
const (
	loginOKTitle       = "登录成功"
	loginOKMessage     = "欢迎回到 VisionQC NeXtGen 系统"
	loginFailedTitle   = "登录失败"
	loginFailedMessage = "邮箱或密码错误，请重试"
	loginErrorMessage  = "系统错误，请稍后重试"
)

const (
	fieldEmail = iota
	fieldPassword
	fieldCount
)

// loginResultMsg carries the outcome of a login attempt back to the model.
type loginResultMsg struct {
	user models.User
	err  error
}

type loginModel struct {
	email    string
	password string
	focus    int
	loading  bool
	width    int
}

func newLoginModel() loginModel {
	return loginModel{}
}

func (m loginModel) Init() tea.Cmd {
	return nil
}

func (m loginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case loginResultMsg:
		m.loading = false
		if msg.err != nil {
			m.password = ""
			m.focus = fieldPassword
		}
		return m, nil

	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyTab, tea.KeyDown:
			m.focus = (m.focus + 1) % fieldCount
		case tea.KeyShiftTab, tea.KeyUp:
			m.focus = (m.focus - 1 + fieldCount) % fieldCount
		case tea.KeyBackspace:
			m.setField(dropLastRune(m.field()))
		case tea.KeyEnter:
			if m.focus == fieldEmail {
				m.focus = fieldPassword
				return m, nil
			}
			m.loading = true
			return m, submitLogin(m.email, m.password)
		case tea.KeyRunes, tea.KeySpace:
			m.setField(m.field() + string(msg.Runes))
		}
	}
	return m, nil
}

func (m loginModel) field() string {
	if m.focus == fieldEmail {
		return m.email
	}
	return m.password
}

func (m *loginModel) setField(v string) {
	if m.focus == fieldEmail {
		m.email = v
	} else {
		m.password = v
	}
}

func dropLastRune(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(r[:len(r)-1])
}

// submitLogin runs the attempt against the shared Session. Credentials are
// compared exactly as typed.
func submitLogin(email, password string) tea.Cmd {
	return func() tea.Msg {
		if Session == nil {
			return loginResultMsg{err: fmt.Errorf("session not initialized")}
		}
		user, err := Session.Login(context.Background(), email, password)
		return loginResultMsg{user: user, err: err}
	}
}

func (m loginModel) View() string {
	input := func(label, value, placeholder string, focused bool) string {
		style := panelStyle.Width(36)
		if focused {
			style = activePanelStyle.Width(36)
		}
		if value == "" {
			value = mutedStyle.Render(placeholder)
		}
		return label + "\n" + style.Render(value)
	}

	button := "[ 登录 ]"
	if m.loading {
		button = "[ 登录中... ]"
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render("VisionQC NeXtGen"),
		mutedStyle.Render("慧眼质控云 —— AI驱动的新一代工业质检平台"),
		"",
		valueStyle.Render("用户登录"),
		mutedStyle.Render("请输入您的登录凭据以访问系统"),
		"",
		input("邮箱地址", m.email, "admin@example.com", m.focus == fieldEmail),
		input("密码", strings.Repeat("•", len([]rune(m.password))), "请输入密码", m.focus == fieldPassword),
		"",
		button,
		"",
		mutedStyle.Render("演示账户: admin@example.com / admin123"),
		helpStyle.Render("tab: next field | enter: submit | ctrl+c: quit"),
	)
	return panelStyle.Padding(1, 3).Render(body)
}

// loginFailureMessage maps a login error to the notification text.
func loginFailureMessage(err error) string {
	if errors.Is(err, session.ErrInvalidCredentials) {
		return loginFailedMessage
	}
	return loginErrorMessage
}

// --- Commands ---

var (
	loginEmail    string
	loginPassword string
	whoamiJSON    bool
)

// promptInput reads one line from r after printing prompt to w, without
// its line ending.
func promptInput(r *bufio.Reader, w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and persist the session",
	Long: `Log in with an email and password. Missing values are prompted for on
stdin. On success the user is written to session.yaml in the data directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Session == nil {
			return fmt.Errorf("session not initialized")
		}

		reader := bufio.NewReader(cmd.InOrStdin())
		email, password := loginEmail, loginPassword
		var err error
		if email == "" {
			if email, err = promptInput(reader, cmd.OutOrStdout(), "邮箱地址: "); err != nil {
				return err
			}
		}
		if password == "" {
			if password, err = promptInput(reader, cmd.OutOrStdout(), "密码: "); err != nil {
				return err
			}
		}

		user, err := Session.Login(cmd.Context(), email, password)
		if err != nil {
			return fmt.Errorf("%s: %s: %w", loginFailedTitle, loginFailureMessage(err), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", loginOKTitle, user.Username, user.Role)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the persisted session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Session == nil {
			return fmt.Errorf("session not initialized")
		}
		if err := Session.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "已退出登录")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Session == nil {
			return fmt.Errorf("session not initialized")
		}
		user := Session.User()
		if whoamiJSON {
			data, err := json.MarshalIndent(struct {
				State string       `json:"state"`
				User  *models.User `json:"user,omitempty"`
			}{Session.State().String(), user}, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting session as JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}
		if user == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> role=%s\n", user.Username, user.Email, user.Role)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Login email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Login password")
	whoamiCmd.Flags().BoolVar(&whoamiJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}
