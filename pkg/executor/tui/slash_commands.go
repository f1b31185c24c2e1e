package tui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

// slashCommand is one registered /command.
type slashCommand struct {
	name        string
	aliases     []string
	description string
	run         func(m *model, args []string) tea.Cmd
}

// slashCommands is the ordered registry rendered by /help.
var slashCommands = []slashCommand{
	{
		name:        "status",
		description: "Show session and plan status",
		run: func(m *model, _ []string) tea.Cmd {
			block := renderStatus(m.agent.Status())
			m.appendBlock(block)
			m.lastReply = block
			return nil
		},
	},
	{
		name:        "verify",
		description: "Run lint, type checks, and tests",
		run: func(m *model, _ []string) tea.Cmd {
			return m.verifyCmd(false)
		},
	},
	{
		name:        "commit",
		description: "Commit changes (/commit [message])",
		run: func(m *model, args []string) tea.Cmd {
			return m.commitCmd(strings.Join(args, " "))
		},
	},
	{
		name:        "copy",
		description: "Copy the last diff or reply to the clipboard",
		run: func(m *model, _ []string) tea.Cmd {
			m.copyToClipboard()
			return nil
		},
	},
	{
		name:        "help",
		description: "List available commands",
		// run is assigned in init; referencing renderHelp here would form
		// an initialization cycle, since renderHelp reads slashCommands.
	},
	{
		name:        "quit",
		aliases:     []string{"exit"},
		description: "Exit the chat",
		run: func(m *model, _ []string) tea.Cmd {
			m.shouldQuit = true
			return nil
		},
	},
}

func init() {
	for i := range slashCommands {
		if slashCommands[i].name == "help" {
			slashCommands[i].run = func(m *model, _ []string) tea.Cmd {
				m.appendBlock(renderHelp())
				return nil
			}
		}
	}
}

// parseSlashCommand splits input of the form "/name arg arg" into its name
// and arguments. ok is false for anything that is not a slash command.
func parseSlashCommand(input string) (string, []string, bool) {
	if !strings.HasPrefix(input, "/") {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// findSlashCommand resolves a command by name or alias.
func findSlashCommand(name string) *slashCommand {
	for i := range slashCommands {
		cmd := &slashCommands[i]
		if cmd.name == name {
			return cmd
		}
		for _, alias := range cmd.aliases {
			if alias == name {
				return cmd
			}
		}
	}
	return nil
}

// runSlashCommand executes a parsed slash command, reporting unknown names
// into the transcript.
func (m *model) runSlashCommand(name string, args []string) tea.Cmd {
	cmd := findSlashCommand(name)
	if cmd == nil {
		m.appendLine(errorStyle.Render(fmt.Sprintf("Unknown command: /%s (try /help)", name)))
		return nil
	}
	return cmd.run(m, args)
}

// copyToClipboard copies the most recent diff, falling back to the last
// reply when no diff has been produced yet.
func (m *model) copyToClipboard() {
	text, what := m.lastDiff, "last diff"
	if text == "" {
		text, what = m.lastReply, "last reply"
	}
	if text == "" {
		m.appendLine(dimStyle.Render("Nothing to copy yet."))
		return
	}
	if err := clipboard.WriteAll(text); err != nil {
		m.appendLine(errorStyle.Render("Copy failed: " + err.Error()))
		return
	}
	m.appendLine(successStyle.Render("Copied " + what + " to clipboard."))
}

// renderHelp lists the registered commands with their descriptions.
func renderHelp() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Commands"))
	b.WriteString("\n")
	for _, cmd := range slashCommands {
		name := "/" + cmd.name
		for _, alias := range cmd.aliases {
			name += ", /" + alias
		}
		b.WriteString(fmt.Sprintf("  %-16s %s\n", name, cmd.description))
	}
	b.WriteString(dimStyle.Render("  Anything else is classified and either dispatched or planned."))
	return strings.TrimRight(b.String(), "\n")
}
