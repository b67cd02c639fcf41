package repl

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme styles the prompt, the edited line and error labels.
type Theme struct {
	User   lipgloss.Style
	Cwd    lipgloss.Style
	OK     lipgloss.Style
	Failed lipgloss.Style

	Command  lipgloss.Style
	Flag     lipgloss.Style
	Operator lipgloss.Style
	String   lipgloss.Style
	Trigger  lipgloss.Style
	Query    lipgloss.Style

	Banner lipgloss.Style
	Error  lipgloss.Style
}

// ThemeByName returns a named theme. Unknown names get the plain theme.
func ThemeByName(name string) Theme {
	switch name {
	case "dracula":
		fg := func(c string) lipgloss.Style {
			return lipgloss.NewStyle().Foreground(lipgloss.Color(c)).TabWidth(lipgloss.NoTabConversion)
		}
		return Theme{
			User:     fg("#bd93f9").Bold(true),
			Cwd:      fg("#8be9fd"),
			OK:       fg("#50fa7b").Bold(true),
			Failed:   fg("#ff5555").Bold(true),
			Command:  fg("#50fa7b").Bold(true),
			Flag:     fg("#8be9fd"),
			Operator: fg("#ff79c6"),
			String:   fg("#f1fa8c"),
			Trigger:  fg("#ffb86c").Bold(true),
			Query:    fg("#8be9fd"),
			Banner:   fg("#8be9fd"),
			Error:    fg("#ff5555").Bold(true),
		}
	default:
		plain := lipgloss.NewStyle().TabWidth(lipgloss.NoTabConversion)
		return Theme{
			User: plain, Cwd: plain, OK: plain, Failed: plain,
			Command: plain, Flag: plain, Operator: plain, String: plain, Trigger: plain, Query: plain,
			Banner: plain, Error: plain,
		}
	}
}

// Prompt renders "user cwd ❯". The arrow reflects the last exit code.
func (t Theme) Prompt(username, cwd, home string, lastCode int) string {
	arrow := t.OK.Render("❯")
	if lastCode != 0 {
		arrow = t.Failed.Render("❯")
	}
	return t.User.Render(username) + " " + t.Cwd.Render(abbreviateHome(cwd, home)) + " " + arrow + " "
}

// abbreviateHome replaces a leading home directory with ~.
func abbreviateHome(cwd, home string) string {
	if home == "" || home == "/" {
		return cwd
	}
	if cwd == home {
		return "~"
	}
	if rest, ok := strings.CutPrefix(cwd, home+string(filepath.Separator)); ok {
		return "~" + string(filepath.Separator) + rest
	}
	return cwd
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "fool"
}
