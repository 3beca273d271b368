package generator

import (
	"fmt"
	"strings"

	"github.com/hpungsan/spec/internal/slug"
)

// BuildPrompt renders the model prompt for a request.
func BuildPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString("Generate a kebab-case slug (lowercase letters, numbers, and hyphens) from the following description. The slug should be:\n")
	sb.WriteString(fmt.Sprintf("- Maximum %d characters\n", slug.MaxLength))
	sb.WriteString("- Only lowercase letters, numbers, and hyphens\n")
	sb.WriteString("- Descriptive and concise\n")
	sb.WriteString("- No special characters or spaces\n\n")
	sb.WriteString(fmt.Sprintf("Description: %s\n", req.Description))

	if len(req.Excluded) > 0 {
		sb.WriteString(fmt.Sprintf("\nNote: The following slugs are already taken: %s. Please generate a different slug.\n",
			strings.Join(req.Excluded, ", ")))
	}

	sb.WriteString("\nReturn only the slug itself, nothing else.")

	if req.PreviousFailure != "" {
		sb.WriteString(fmt.Sprintf("\n\nPrevious attempt failed: %s. Please correct the slug according to the requirements.",
			req.PreviousFailure))
	}

	return sb.String()
}
