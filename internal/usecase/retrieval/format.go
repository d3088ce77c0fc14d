package retrieval

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Wenjunyun123/Cognimark-Agent/internal/domain/source"
)

// FormatContext renders a search result as the textual context block handed
// to the text-generation caller. Detail lines are key-sorted so the block
// is deterministic for a fixed result.
func FormatContext(res Result) string {
	if len(res.Items) == 0 {
		return fmt.Sprintf("No results found for %q.", res.Query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d results for %q:\n", len(res.Items), res.Query)

	for i, item := range res.Items {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, item.Title)

		keys := make([]string, 0, len(item.Display))
		for k := range item.Display {
			switch k {
			case source.KeyID, source.KeyTitle, source.KeyTitleFallback, source.KeyURL:
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			fmt.Fprintf(&b, "   %s: %s\n", k, item.Display[k])
		}
		if item.URL != "" {
			fmt.Fprintf(&b, "   url: %s\n", item.URL)
		}
	}

	return b.String()
}
