package mcp

import "github.com/mark3labs/mcp-go/mcp"

var listToolDef = mcp.NewTool("feature_list",
	mcp.WithDescription("List features that have a documentation directory in this repository, sorted by slug."),
	mcp.WithBoolean("long",
		mcp.Description("Include the title and first paragraph of each feature's first non-empty document."),
	),
)

var suggestSlugToolDef = mcp.NewTool("feature_suggest_slug",
	mcp.WithDescription("Propose a unique kebab-case slug for a feature description. "+
		"Checks documentation, branches and scaffold paths but does not modify the repository."),
	mcp.WithString("description",
		mcp.Required(),
		mcp.Description("Free-text feature description."),
	),
	mcp.WithNumber("max_attempts",
		mcp.Description("Uniqueness attempts before giving up (default 5, max 20)."),
	),
)

var historyToolDef = mcp.NewTool("feature_history",
	mcp.WithDescription("Recent create and merge events for this repository, newest first."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum entries to return (default 20, max 500)."),
	),
)

var documentToolDef = mcp.NewTool("feature_document",
	mcp.WithDescription("Read one documentation file of a feature as markdown."),
	mcp.WithString("slug",
		mcp.Required(),
		mcp.Description("Feature slug."),
	),
	mcp.WithString("template",
		mcp.Required(),
		mcp.Description("Document template file name, e.g. requirements.md."),
	),
)
