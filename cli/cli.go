package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/kate8382/error-logger-viewer/capture"
	"github.com/kate8382/error-logger-viewer/core"
	"github.com/kate8382/error-logger-viewer/errorapi"
	"github.com/kate8382/error-logger-viewer/models"
)

const commandTimeout = 30 * time.Second

// CLI is the interactive operator console. All commands go through one
// errorapi.API, so switching modes switches every later command.
type CLI struct {
	rl       *readline.Instance
	out      io.Writer
	running  bool
	api      *errorapi.API
	reporter *capture.Reporter
	config   *Config
}

// NewCLI creates a console reading from the terminal
func NewCLI(api *errorapi.API, reporter *capture.Reporter, config *Config) (*CLI, error) {
	// Create readline instance; ignore Ctrl+C
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          promptFor(api.Mode()),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %v", err)
	}

	c := newCLI(api, reporter, config, rl.Stdout())
	c.rl = rl
	return c, nil
}

func newCLI(api *errorapi.API, reporter *capture.Reporter, config *Config, out io.Writer) *CLI {
	if out == nil {
		out = os.Stdout
	}
	return &CLI{
		out:      out,
		running:  true,
		api:      api,
		reporter: reporter,
		config:   config,
	}
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("list",
			readline.PcItem("--filter"),
			readline.PcItem("--sort",
				readline.PcItem(models.FieldTimestamp),
				readline.PcItem(models.FieldStatus),
				readline.PcItem(models.FieldType),
			),
			readline.PcItem("--order",
				readline.PcItem(core.OrderAsc),
				readline.PcItem(core.OrderDesc),
			),
		),
		readline.PcItem("show"),
		readline.PcItem("add"),
		readline.PcItem("status"),
		readline.PcItem("comment"),
		readline.PcItem("delete"),
		readline.PcItem("mode",
			readline.PcItem(string(errorapi.ModeRemote)),
			readline.PcItem(string(errorapi.ModeLocal)),
		),
		readline.PcItem("flush"),
		readline.PcItem("servers"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}

func promptFor(mode errorapi.Mode) string {
	return fmt.Sprintf("[%s]> ", mode)
}

// Start runs the CLI loop
func (c *CLI) Start() {
	defer c.rl.Close()
	c.printWelcome()

	for c.running {
		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				fmt.Fprintln(c.out, "\n⚠ Ctrl+C detected. Please use 'exit' or 'quit' command to exit gracefully.")
				continue
			}
			// EOF or other error; exit
			break
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		c.runCommand(input)
		c.rl.SetPrompt(promptFor(c.api.Mode()))
	}
}

// printWelcome prints initial banner
func (c *CLI) printWelcome() {
	PrintBanner(c.out, "Error Logger - Operator Console")
	fmt.Fprintf(c.out, "\nMode: %s\n", c.api.Mode())
	fmt.Fprintln(c.out, "Type 'help' for available commands")
}

// runCommand handles one command, recording a panic before it ends the console.
func (c *CLI) runCommand(input string) {
	if c.reporter != nil {
		defer c.reporter.Recover(context.Background())
	}
	c.handleCommand(input)
}

// handleCommand routes user commands
func (c *CLI) handleCommand(input string) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch cmd {
	case "help", "h", "?":
		c.showHelp()
	case "list", "ls":
		c.listRecords(ctx, args)
	case "show", "get":
		if len(args) != 1 {
			fmt.Fprintln(c.out, "Usage: show <id>")
			return
		}
		c.showRecord(ctx, args[0])
	case "add":
		if len(args) < 2 {
			fmt.Fprintln(c.out, "Usage: add <type> <message>")
			return
		}
		c.addRecord(ctx, args[0], strings.Join(args[1:], " "))
	case "status":
		if len(args) != 2 {
			fmt.Fprintf(c.out, "Usage: status <id> <%s>\n", statusChoices())
			return
		}
		c.setStatus(ctx, args[0], args[1])
	case "comment":
		if len(args) < 1 {
			fmt.Fprintln(c.out, "Usage: comment <id> [text]")
			return
		}
		c.setComment(ctx, args[0], strings.Join(args[1:], " "))
	case "delete", "del", "rm":
		if len(args) != 1 {
			fmt.Fprintln(c.out, "Usage: delete <id>")
			return
		}
		c.deleteRecord(ctx, args[0])
	case "mode":
		c.handleMode(args)
	case "flush":
		c.flushPending(ctx)
	case "servers":
		c.listServers()
	case "clear":
		fmt.Fprint(c.out, "\033[H\033[2J")
	case "exit", "quit", "q":
		fmt.Fprintln(c.out, "\nShutting down...")
		c.running = false
	default:
		fmt.Fprintf(c.out, "Unknown command: %s. Type 'help' for available commands.\n", cmd)
	}
}

// showHelp prints available commands
func (c *CLI) showHelp() {
	fmt.Fprintln(c.out)
	PrintBanner(c.out, "Available Commands")
	fmt.Fprintln(c.out)

	commands := [][]string{
		{"help, h, ?", "Show this help message"},
		{"", ""},
		{"RECORDS:", ""},
		{"list [--filter T] [--sort F] [--order asc|desc]", "List records"},
		{"show <id>", "Show a record"},
		{"add <type> <message>", "Record a new error"},
		{"status <id> <status>", "Set status (" + statusChoices() + ")"},
		{"comment <id> [text]", "Set or clear the comment"},
		{"delete <id>", "Delete a record"},
		{"", ""},
		{"STORAGE:", ""},
		{"mode [remote|local]", "Show or switch the storage mode"},
		{"flush", "Resend errors that could not be delivered"},
		{"servers", "List configured servers"},
		{"", ""},
		{"SYSTEM:", ""},
		{"clear", "Clear screen"},
		{"exit, quit, q", "Exit the program"},
	}

	for _, cmd := range commands {
		if cmd[0] != "" {
			fmt.Fprintf(c.out, "  %-50s %s\n", cmd[0], cmd[1])
		} else {
			fmt.Fprintln(c.out)
		}
	}
}

// parseListArgs reads --filter, --sort and --order, in "--flag value" or
// "--flag=value" form.
func parseListArgs(args []string) (core.QueryOptions, error) {
	var opts core.QueryOptions
	for i := 0; i < len(args); i++ {
		name, value, hasValue := strings.Cut(args[i], "=")
		if !hasValue {
			if i+1 >= len(args) {
				return opts, fmt.Errorf("missing value for %s", name)
			}
			i++
			value = args[i]
		}

		switch name {
		case "--filter", "-f":
			opts.Filter = value
		case "--sort", "-s":
			opts.Sort = value
		case "--order", "-o":
			value = strings.ToLower(value)
			if value != core.OrderAsc && value != core.OrderDesc {
				return opts, fmt.Errorf("order must be %s or %s", core.OrderAsc, core.OrderDesc)
			}
			opts.Order = value
		default:
			return opts, fmt.Errorf("unknown option %s", name)
		}
	}
	return opts, nil
}

// listRecords lists records
func (c *CLI) listRecords(ctx context.Context, args []string) {
	opts, err := parseListArgs(args)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		fmt.Fprintln(c.out, "Usage: list [--filter T] [--sort F] [--order asc|desc]")
		return
	}

	records, err := c.api.List(ctx, opts)
	if err != nil {
		c.printError(err)
		return
	}

	if len(records) == 0 {
		fmt.Fprintln(c.out, "No errors recorded.")
		return
	}

	fmt.Fprintln(c.out)
	PrintBanner(c.out, fmt.Sprintf("Total Errors: %d", len(records)))
	fmt.Fprintln(c.out)

	fmt.Fprintf(c.out, "%-36s %-16s %-11s %-24s %s\n", "ID", "Type", "Status", "Timestamp", "Message")
	fmt.Fprintln(c.out, strings.Repeat("-", 120))

	for _, r := range records {
		fmt.Fprintf(c.out, "%-36s %-16s %-11s %-24s %s\n",
			r.ID,
			truncate(r.Type, 16),
			r.Status,
			truncate(r.Timestamp, 24),
			truncate(oneLine(r.Message), 40),
		)
	}
}

// showRecord shows record details
func (c *CLI) showRecord(ctx context.Context, id string) {
	rec, err := c.api.Get(ctx, id)
	if err != nil {
		c.printError(err)
		return
	}

	fmt.Fprintln(c.out)
	PrintBanner(c.out, "Error "+rec.ID)
	fmt.Fprintf(c.out, "  %-10s %s\n", "Type:", rec.Type)
	fmt.Fprintf(c.out, "  %-10s %s\n", "Status:", rec.Status)
	fmt.Fprintf(c.out, "  %-10s %s\n", "Time:", rec.Timestamp)
	if rec.CreatedAt != nil {
		fmt.Fprintf(c.out, "  %-10s %s\n", "Created:", rec.CreatedAt.Local().Format(time.DateTime))
	}
	if rec.UpdatedAt != nil {
		fmt.Fprintf(c.out, "  %-10s %s\n", "Updated:", rec.UpdatedAt.Local().Format(time.DateTime))
	}
	if rec.Comment != "" {
		fmt.Fprintf(c.out, "  %-10s %s\n", "Comment:", rec.Comment)
	}
	fmt.Fprintf(c.out, "  %-10s %s\n", "Message:", rec.Message)

	for _, key := range rec.ExtraKeys() {
		fmt.Fprintf(c.out, "  %-10s %s\n", key+":", string(rec.Extra[key]))
	}
}

// addRecord records a new error. When the store cannot be reached the record
// is kept for 'flush'.
func (c *CLI) addRecord(ctx context.Context, typ, message string) {
	draft := models.ErrorRecord{
		Type:      typ,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}

	var rec models.ErrorRecord
	var err error
	if c.reporter != nil {
		rec, err = c.reporter.Submit(ctx, draft)
	} else {
		rec, err = c.api.Create(ctx, draft)
	}
	if err != nil {
		c.printError(err)
		if c.reporter != nil && !errors.Is(err, core.ErrValidation) {
			fmt.Fprintf(c.out, "Kept for later (%d pending); run 'flush' to resend.\n", c.reporter.Pending().Len())
		}
		return
	}
	fmt.Fprintf(c.out, "✓ Recorded %s\n", rec.ID)
}

// setStatus sends the whole record back with a new status
func (c *CLI) setStatus(ctx context.Context, id, status string) {
	s := models.Status(strings.ToLower(status))
	if _, ok := s.Rank(); !ok {
		fmt.Fprintf(c.out, "Error: status must be one of %s\n", statusChoices())
		return
	}
	c.editRecord(ctx, id, func(rec *models.ErrorRecord) { rec.Status = s })
}

// setComment sends the whole record back with a new comment
func (c *CLI) setComment(ctx context.Context, id, text string) {
	c.editRecord(ctx, id, func(rec *models.ErrorRecord) { rec.Comment = text })
}

func (c *CLI) editRecord(ctx context.Context, id string, edit func(*models.ErrorRecord)) {
	rec, err := c.api.Get(ctx, id)
	if err != nil {
		c.printError(err)
		return
	}
	edit(&rec)
	if _, err := c.api.Update(ctx, id, rec); err != nil {
		c.printError(err)
		return
	}
	fmt.Fprintf(c.out, "✓ Updated %s\n", id)
}

// deleteRecord deletes a record
func (c *CLI) deleteRecord(ctx context.Context, id string) {
	if err := c.api.Delete(ctx, id); err != nil {
		c.printError(err)
		return
	}
	fmt.Fprintf(c.out, "✓ Deleted %s\n", id)
}

// handleMode shows or switches the storage mode
func (c *CLI) handleMode(args []string) {
	if len(args) == 0 {
		fmt.Fprintf(c.out, "Mode: %s\n", c.api.Mode())
		return
	}
	mode, err := errorapi.ParseMode(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if err := c.api.SetMode(mode); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "✓ Mode: %s\n", mode)
}

// flushPending resends buffered errors
func (c *CLI) flushPending(ctx context.Context) {
	if c.reporter == nil {
		fmt.Fprintln(c.out, "Nothing to flush.")
		return
	}
	sent, err := c.reporter.Flush(ctx)
	left := c.reporter.Pending().Len()
	if err != nil {
		fmt.Fprintf(c.out, "Sent %d, %d still pending: %v\n", sent, left, err)
		return
	}
	fmt.Fprintf(c.out, "✓ Sent %d pending errors\n", sent)
}

// listServers lists configured servers
func (c *CLI) listServers() {
	if c.config == nil || len(c.config.Servers) == 0 {
		fmt.Fprintln(c.out, "No servers configured.")
		return
	}
	for _, name := range c.config.ServerNames() {
		server := c.config.Servers[name]
		marker := " "
		if name == c.config.DefaultServer {
			marker = "*"
		}
		fmt.Fprintf(c.out, "%s %-12s %-30s %s\n", marker, name, server.URL, server.Description)
	}
}

func (c *CLI) printError(err error) {
	var recErr *core.RecordError
	if errors.As(err, &recErr) && recErr.Err == nil {
		fmt.Fprintf(c.out, "Error: %s\n", recErr.Message)
		return
	}
	fmt.Fprintf(c.out, "Error: %v\n", err)
}

func statusChoices() string {
	names := make([]string, len(models.StatusOrder))
	for i, s := range models.StatusOrder {
		names[i] = string(s)
	}
	return strings.Join(names, "|")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate shortens a string to a maximum length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
