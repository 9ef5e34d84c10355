package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/visionqc/visionqc/internal/session"
)

func typeText(m loginModel, s string) loginModel {
	for _, r := range s {
		next, _ := m.Update(runeKey(string(r)))
		m = next.(loginModel)
	}
	return m
}

func TestLoginModel_TypingAndFocus(t *testing.T) {
	m := typeText(newLoginModel(), "admin@example.com")
	if m.email != "admin@example.com" {
		t.Fatalf("email = %q", m.email)
	}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(loginModel)
	if m.focus != fieldPassword {
		t.Fatalf("expected password focus after tab, got %d", m.focus)
	}
	m = typeText(m, "admin1234")
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	m = next.(loginModel)
	if m.password != "admin123" {
		t.Errorf("password = %q after backspace", m.password)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m = next.(loginModel)
	if m.focus != fieldEmail {
		t.Errorf("expected email focus after shift+tab, got %d", m.focus)
	}
}

func TestLoginModel_EnterOnEmailMovesFocus(t *testing.T) {
	m := typeText(newLoginModel(), "a@b.c")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(loginModel)
	if cmd != nil {
		t.Error("enter on the email field should not submit")
	}
	if m.focus != fieldPassword {
		t.Errorf("expected password focus, got %d", m.focus)
	}
}

func TestLoginModel_SubmitSuccess(t *testing.T) {
	withTestEnv(t)
	m := newLoginModel()
	m.email, m.password, m.focus = "admin@example.com", "admin123", fieldPassword

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(loginModel)
	if !m.loading {
		t.Error("expected loading while the attempt runs")
	}
	if cmd == nil {
		t.Fatal("expected a login command")
	}
	if !strings.Contains(m.View(), "登录中...") {
		t.Error("loading view should show 登录中...")
	}

	// Keys are ignored while loading.
	next, _ = m.Update(runeKey("z"))
	if next.(loginModel).password != "admin123" {
		t.Error("typing while loading changed the password")
	}

	res, ok := cmd().(loginResultMsg)
	if !ok {
		t.Fatalf("expected loginResultMsg, got %T", cmd())
	}
	if res.err != nil {
		t.Fatalf("login failed: %v", res.err)
	}
	if res.user.Username != "系统管理员" {
		t.Errorf("unexpected user %+v", res.user)
	}
	if !Session.Authenticated() {
		t.Error("expected the shared session to be authenticated")
	}
}

func TestLoginModel_SubmitFailure(t *testing.T) {
	withTestEnv(t)
	m := newLoginModel()
	m.email, m.password, m.focus = "admin@example.com", "wrong", fieldPassword

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(loginModel)
	res := cmd().(loginResultMsg)
	if !errors.Is(res.err, session.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", res.err)
	}

	next, _ = m.Update(res)
	m = next.(loginModel)
	if m.loading {
		t.Error("expected loading cleared after the result")
	}
	if m.password != "" || m.focus != fieldPassword {
		t.Errorf("expected password cleared and focused, got %q focus %d", m.password, m.focus)
	}
	if m.email != "admin@example.com" {
		t.Error("email should be kept after a failed attempt")
	}
}

func TestLoginModel_EmailComparedExactly(t *testing.T) {
	withTestEnv(t)
	m := newLoginModel()
	m.email, m.password, m.focus = " admin@example.com ", "admin123", fieldPassword

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	res := cmd().(loginResultMsg)
	if !errors.Is(res.err, session.ErrInvalidCredentials) {
		t.Fatalf("padded email: got %v, want ErrInvalidCredentials", res.err)
	}
}

func TestLoginModel_CtrlCQuits(t *testing.T) {
	_, cmd := newLoginModel().Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("expected tea.QuitMsg, got %T", cmd())
	}
}

func TestLoginModel_View(t *testing.T) {
	m := newLoginModel()
	m.password = "secret"
	view := m.View()
	for _, want := range []string{"用户登录", "请输入您的登录凭据以访问系统", "邮箱地址", "密码", "[ 登录 ]", "演示账户: admin@example.com / admin123", "••••••"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Contains(view, "secret") {
		t.Error("password rendered in clear text")
	}
}

func TestLoginFailureMessage(t *testing.T) {
	if got := loginFailureMessage(session.ErrInvalidCredentials); got != loginFailedMessage {
		t.Errorf("invalid credentials message = %q", got)
	}
	if got := loginFailureMessage(fmt.Errorf("wrapped: %w", session.ErrInvalidCredentials)); got != loginFailedMessage {
		t.Errorf("wrapped invalid credentials message = %q", got)
	}
	if got := loginFailureMessage(errors.New("disk full")); got != loginErrorMessage {
		t.Errorf("system error message = %q", got)
	}
}

func TestLoginCommand_Flags(t *testing.T) {
	withTestEnv(t)

	out, err := runCommand(t, "", "login", "--email", "admin@example.com", "--password", "admin123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, loginOKTitle) || !strings.Contains(out, "系统管理员") {
		t.Errorf("unexpected output %q", out)
	}
	if !Session.Authenticated() {
		t.Error("expected session authenticated")
	}
}

func TestLoginCommand_Prompts(t *testing.T) {
	withTestEnv(t)

	out, err := runCommand(t, "admin@example.com\nadmin123\n", "login")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "邮箱地址: ") || !strings.Contains(out, "密码: ") {
		t.Errorf("expected prompts in output, got %q", out)
	}
	if !Session.Authenticated() {
		t.Error("expected session authenticated")
	}
}

func TestLoginCommand_InvalidCredentials(t *testing.T) {
	withTestEnv(t)

	_, err := runCommand(t, "", "login", "--email", "admin@example.com", "--password", "nope")
	if err == nil {
		t.Fatal("expected error for invalid credentials")
	}
	if !errors.Is(err, session.ErrInvalidCredentials) {
		t.Errorf("expected wrapped ErrInvalidCredentials, got %v", err)
	}
	if !strings.Contains(err.Error(), loginFailedMessage) {
		t.Errorf("expected user-facing message in %q", err.Error())
	}
	if Session.Authenticated() {
		t.Error("session should stay anonymous")
	}
}

func TestWhoamiAndLogout(t *testing.T) {
	withTestEnv(t)

	out, err := runCommand(t, "", "whoami")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if !strings.Contains(out, "Not logged in.") {
		t.Errorf("expected anonymous output, got %q", out)
	}

	if _, err := runCommand(t, "", "login", "--email", "admin@example.com", "--password", "admin123"); err != nil {
		t.Fatalf("login: %v", err)
	}

	out, err = runCommand(t, "", "whoami", "--json")
	if err != nil {
		t.Fatalf("whoami --json: %v", err)
	}
	var got struct {
		State string `json:"state"`
		User  struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("parsing whoami JSON: %v (%s)", err, out)
	}
	if got.State != session.StateAuthenticated.String() || got.User.Role != "admin" {
		t.Errorf("unexpected whoami JSON %+v", got)
	}

	if _, err := runCommand(t, "", "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if Session.Authenticated() {
		t.Error("expected anonymous session after logout")
	}
}

func TestSessionCommands_NotInitialized(t *testing.T) {
	withTestEnv(t)
	Session = nil

	for _, args := range [][]string{{"login", "--email", "a", "--password", "b"}, {"logout"}, {"whoami"}} {
		if _, err := runCommand(t, "", args...); err == nil {
			t.Errorf("%v: expected error without a session", args)
		}
	}
}

func TestPromptInput_KeepsSpacesDropsLineEnding(t *testing.T) {
	var out bytes.Buffer
	got, err := promptInput(bufio.NewReader(strings.NewReader(" pass word \r\nnext\n")), &out, "密码: ")
	if err != nil {
		t.Fatal(err)
	}
	if got != " pass word " {
		t.Errorf("promptInput() = %q, want the line without its ending", got)
	}
	if out.String() != "密码: " {
		t.Errorf("prompt = %q", out.String())
	}
}
