package mcp

import "github.com/mark3labs/mcp-go/mcp"

var stringMap = map[string]any{"type": "string"}

var createToolDef = mcp.NewTool("jot_create",
	mcp.WithDescription("Record a jot (short note) in a context. Without a context the current "+
		"repository/branch or working directory is detected and used."),
	mcp.WithString("message", mcp.Required(), mcp.Description("Jot text, Markdown allowed")),
	mcp.WithNumber("context_id", mcp.Description("Existing context id")),
	mcp.WithString("context", mcp.Description("Context name, created if missing")),
	mcp.WithNumber("ttl_days", mcp.Description("Days until expiry; 0 keeps it forever. Defaults to config default_ttl_days")),
	mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Tags")),
	mcp.WithObject("metadata", mcp.AdditionalProperties(stringMap), mcp.Description("String key/value pairs")),
)

var getToolDef = mcp.NewTool("jot_get",
	mcp.WithDescription("Fetch one jot by id."),
	mcp.WithNumber("id", mcp.Required(), mcp.Description("Jot id")),
)

var updateToolDef = mcp.NewTool("jot_update",
	mcp.WithDescription("Change a jot's message, TTL, tags or metadata. Tags and metadata are replaced wholesale."),
	mcp.WithNumber("id", mcp.Required(), mcp.Description("Jot id")),
	mcp.WithString("message", mcp.Description("New message")),
	mcp.WithNumber("ttl_days", mcp.Description("New TTL counted from now; 0 removes the expiry")),
	mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Replacement tags; [] clears")),
	mcp.WithObject("metadata", mcp.AdditionalProperties(stringMap), mcp.Description("Replacement metadata; {} clears")),
)

var deleteToolDef = mcp.NewTool("jot_delete",
	mcp.WithDescription("Delete a jot by id."),
	mcp.WithNumber("id", mcp.Required(), mcp.Description("Jot id")),
)

var searchToolDef = mcp.NewTool("jot_search",
	mcp.WithDescription("Search jots, newest first. Supports FTS5 full-text query syntax, "+
		"context, tag (any-of) and date filters. A query that is not valid FTS5 syntax "+
		"is searched as a literal phrase. Expired jots are hidden unless include_expired."),
	mcp.WithString("query", mcp.Description("Full-text query (FTS5 syntax or plain text)")),
	mcp.WithNumber("context_id", mcp.Description("Restrict to a context id")),
	mcp.WithString("context", mcp.Description("Restrict to a context name")),
	mcp.WithBoolean("current_context", mcp.Description("Restrict to the detected current context")),
	mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Match jots carrying any of these tags")),
	mcp.WithString("from", mcp.Description("Created on or after (YYYY-MM-DD or RFC3339)")),
	mcp.WithString("to", mcp.Description("Created on or before (YYYY-MM-DD covers the whole day, or RFC3339)")),
	mcp.WithBoolean("include_expired", mcp.Description("Include expired jots")),
	mcp.WithNumber("limit", mcp.Description("Maximum results (default from config)")),
)

var expiringToolDef = mcp.NewTool("jot_expiring",
	mcp.WithDescription("List jots that expire within the given number of days, soonest first."),
	mcp.WithNumber("days", mcp.Description("Window in days (default from config)")),
)

var cleanupToolDef = mcp.NewTool("jot_cleanup",
	mcp.WithDescription("Delete all expired jots."),
)

var exportToolDef = mcp.NewTool("jot_export",
	mcp.WithDescription("Export jots to a JSONL file (re-importable) or an HTML page."),
	mcp.WithString("path", mcp.Description("Output file (default: <home>/exports/<context|all>-<timestamp>.<format>)")),
	mcp.WithString("format", mcp.Enum("jsonl", "html"), mcp.Description("Output format (default jsonl)")),
	mcp.WithNumber("context_id", mcp.Description("Only this context id")),
	mcp.WithString("context", mcp.Description("Only this context name")),
	mcp.WithBoolean("include_expired", mcp.Description("Include expired jots")),
)

var importToolDef = mcp.NewTool("jot_import",
	mcp.WithDescription("Import a JSONL export. Jots whose uid already exists are skipped."),
	mcp.WithString("path", mcp.Required(), mcp.Description("JSONL file to import")),
)

var contextListToolDef = mcp.NewTool("context_list",
	mcp.WithDescription("List all contexts, most recently active first."),
)

var contextGetToolDef = mcp.NewTool("context_get",
	mcp.WithDescription("Fetch a context by id or name."),
	mcp.WithString("context", mcp.Required(), mcp.Description("Context id or name")),
)

var contextCurrentToolDef = mcp.NewTool("context_current",
	mcp.WithDescription("Detect the current context from source control or the working directory, creating it if needed."),
)

var contextDeleteToolDef = mcp.NewTool("context_delete",
	mcp.WithDescription("Delete a context and all of its jots."),
	mcp.WithString("context", mcp.Required(), mcp.Description("Context id or name")),
)
