package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/jot"
	"github.com/hpungsan/jot/internal/mcp"
	"github.com/hpungsan/jot/internal/ops"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(svc *ops.Service) *cli.App {
	app := &cli.App{
		Name:    "jot",
		Usage:   "Context-aware notes for your repositories",
		Version: Version,
		Commands: []*cli.Command{
			addCmd(svc),
			getCmd(svc),
			updateCmd(svc),
			rmCmd(svc),
			searchCmd(svc),
			expiringCmd(svc),
			cleanupCmd(svc),
			contextsCmd(svc),
			contextCmd(svc),
			contextRmCmd(svc),
			exportCmd(svc),
			importCmd(svc),
			serveCmd(svc),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// Shared flags. A flag value holds parse state, so each command gets its own.
func contextFlag() cli.Flag {
	return &cli.StringFlag{Name: "context", Aliases: []string{"c"}, Usage: "Context name"}
}

func contextIDFlag() cli.Flag {
	return &cli.Int64Flag{Name: "context-id", Usage: "Context id"}
}

func ttlFlag() cli.Flag {
	return &cli.IntFlag{Name: "ttl", Usage: "Days until expiry (0 = never)"}
}

// addCmd creates the add command.
func addCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Record a jot (message from arguments or stdin)",
		ArgsUsage: "[message...]",
		Flags: []cli.Flag{
			contextFlag(),
			contextIDFlag(),
			&cli.StringFlag{Name: "tags", Aliases: []string{"t"}, Usage: "Comma-separated tags"},
			&cli.StringSliceFlag{Name: "meta", Usage: "Metadata key=value (repeatable)"},
			ttlFlag(),
		},
		Action: func(c *cli.Context) error {
			message, err := messageArg(c)
			if err != nil {
				return outputError(err)
			}

			input := ops.CreateJotInput{
				Message:     message,
				ContextName: c.String("context"),
				Tags:        parseTags(c.String("tags")),
				Metadata:    jot.MetadataFromPairs(c.StringSlice("meta")),
			}
			if c.IsSet("context-id") {
				id := c.Int64("context-id")
				input.ContextID = &id
			}
			if c.IsSet("ttl") {
				ttl := c.Int("ttl")
				input.TTLDays = &ttl
			}

			output, err := svc.CreateJot(c.Context, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// getCmd creates the get command.
func getCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show a jot",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := idArg(c)
			if err != nil {
				return outputError(err)
			}
			output, err := svc.GetJot(c.Context, id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// updateCmd creates the update command.
func updateCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Change a jot's message, TTL, tags or metadata",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Usage: "New message"},
			ttlFlag(),
			&cli.StringFlag{Name: "tags", Aliases: []string{"t"}, Usage: "Replacement comma-separated tags (empty clears)"},
			&cli.StringSliceFlag{Name: "meta", Usage: "Replacement metadata key=value (repeatable)"},
			&cli.BoolFlag{Name: "clear-meta", Usage: "Remove all metadata"},
		},
		Action: func(c *cli.Context) error {
			id, err := idArg(c)
			if err != nil {
				return outputError(err)
			}

			input := ops.UpdateJotInput{ID: id}
			if c.IsSet("message") {
				msg := c.String("message")
				input.Message = &msg
			}
			if c.IsSet("ttl") {
				ttl := c.Int("ttl")
				input.TTLDays = &ttl
			}
			if c.IsSet("tags") {
				tags := parseTags(c.String("tags"))
				if tags == nil {
					tags = []string{}
				}
				input.Tags = &tags
			}
			switch {
			case c.Bool("clear-meta"):
				md := map[string]string{}
				input.Metadata = &md
			case c.IsSet("meta"):
				md := jot.MetadataFromPairs(c.StringSlice("meta"))
				input.Metadata = &md
			}

			output, err := svc.UpdateJot(c.Context, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// rmCmd creates the rm command.
func rmCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Delete a jot",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := idArg(c)
			if err != nil {
				return outputError(err)
			}
			output, err := svc.DeleteJot(c.Context, id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// searchCmd creates the search command.
func searchCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search jots, newest first",
		ArgsUsage: "[query...]",
		Flags: []cli.Flag{
			contextFlag(),
			contextIDFlag(),
			&cli.BoolFlag{Name: "here", Usage: "Only the current context"},
			&cli.StringFlag{Name: "tags", Aliases: []string{"t"}, Usage: "Match any of these comma-separated tags"},
			&cli.StringFlag{Name: "from", Usage: "Created on or after (YYYY-MM-DD or RFC3339)"},
			&cli.StringFlag{Name: "to", Usage: "Created on or before (YYYY-MM-DD or RFC3339)"},
			&cli.BoolFlag{Name: "include-expired", Aliases: []string{"a"}, Usage: "Include expired jots"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum results (0 = config default)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.SearchInput{
				Query:          strings.Join(c.Args().Slice(), " "),
				ContextName:    c.String("context"),
				CurrentContext: c.Bool("here"),
				Tags:           parseTags(c.String("tags")),
				FromDate:       c.String("from"),
				ToDate:         c.String("to"),
				IncludeExpired: c.Bool("include-expired"),
				Limit:          c.Int("limit"),
			}
			if c.IsSet("context-id") {
				id := c.Int64("context-id")
				input.ContextID = &id
			}

			output, err := svc.SearchJots(c.Context, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// expiringCmd creates the expiring command.
func expiringCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "expiring",
		Usage: "List jots expiring soon",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "days", Aliases: []string{"d"}, Usage: "Window in days (default from config)"},
		},
		Action: func(c *cli.Context) error {
			var days *int
			if c.IsSet("days") {
				d := c.Int("days")
				days = &d
			}
			output, err := svc.ExpiringSoon(c.Context, days)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// cleanupCmd creates the cleanup command.
func cleanupCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "cleanup",
		Usage: "Delete expired jots",
		Action: func(c *cli.Context) error {
			output, err := svc.Cleanup(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// contextsCmd creates the contexts command.
func contextsCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "contexts",
		Usage: "List contexts",
		Action: func(c *cli.Context) error {
			output, err := svc.ListContexts(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// contextCmd creates the context command.
func contextCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "context",
		Usage:     "Show a context, or the detected current one",
		ArgsUsage: "[id|name]",
		Action: func(c *cli.Context) error {
			var (
				output *jot.Context
				err    error
			)
			if c.NArg() > 0 {
				output, err = svc.GetContext(c.Context, c.Args().First())
			} else {
				output, err = svc.CurrentContext(c.Context)
			}
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// contextRmCmd creates the context-rm command.
func contextRmCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "context-rm",
		Usage:     "Delete a context and all of its jots",
		ArgsUsage: "<id|name>",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("context id or name is required"))
			}
			output, err := svc.DeleteContext(c.Context, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export jots to JSONL or HTML",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output path (default: <home>/exports/...)"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: ops.FormatJSONL, Usage: "jsonl|html"},
			contextFlag(),
			contextIDFlag(),
			&cli.BoolFlag{Name: "include-expired", Aliases: []string{"a"}, Usage: "Include expired jots"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ExportInput{
				Path:           c.String("path"),
				Format:         c.String("format"),
				ContextName:    c.String("context"),
				IncludeExpired: c.Bool("include-expired"),
			}
			if c.IsSet("context-id") {
				id := c.Int64("context-id")
				input.ContextID = &id
			}

			output, err := svc.Export(c.Context, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// importCmd creates the import command.
func importCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a JSONL export (known uids are skipped)",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			output, err := svc.Import(c.Context, ops.ImportInput{Path: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the MCP server on stdio",
		Action: func(c *cli.Context) error {
			return mcp.Run(c.Context, svc, Version)
		},
	}
}

// Helper functions

// outputJSON writes v to the app's writer as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if jErr, ok := err.(*errors.JotError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", jErr.Code, jErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// idArg parses the first positional argument as a jot id.
func idArg(c *cli.Context) (int64, error) {
	if c.NArg() == 0 {
		return 0, errors.NewInvalidRequest("jot id is required")
	}
	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.NewInvalidRequest(fmt.Sprintf("invalid jot id %q", c.Args().First()))
	}
	return id, nil
}

// messageArg joins positional arguments, or reads the message from the
// app's reader when none are given and input is piped. A single trailing
// newline is removed from piped input.
func messageArg(c *cli.Context) (string, error) {
	if c.NArg() > 0 {
		return strings.Join(c.Args().Slice(), " "), nil
	}
	if f, ok := c.App.Reader.(*os.File); ok && !hasPipedData(f) {
		return "", errors.NewInvalidRequest("message is required (as arguments or piped via stdin)")
	}
	data, err := io.ReadAll(c.App.Reader)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	// Drop the line ending added by echo or a heredoc; everything else is kept.
	msg := strings.TrimSuffix(string(data), "\n")
	return strings.TrimSuffix(msg, "\r"), nil
}

// hasPipedData returns true if f is not a terminal.
func hasPipedData(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// parseTags splits a comma-separated string into a slice of tags.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}
