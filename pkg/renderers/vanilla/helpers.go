package vanilla

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-stepform/pkg/model"
)

// sanitizeClassList drops the reserved "stepform-" tokens from caller
// supplied classes so overrides add to the chrome instead of replacing it.
func sanitizeClassList(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	tokens := strings.Fields(value)
	keep := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if strings.HasPrefix(token, "stepform-") {
			continue
		}
		keep = append(keep, token)
	}
	return strings.Join(keep, " ")
}

type summaryItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// summarize lists submitted values in identifier order for the done page.
func summarize(values model.Values) []summaryItem {
	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]summaryItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, summaryItem{Label: model.DefaultLabeler(id), Value: displayValue(values[id])})
	}
	return out
}

func displayValue(value any) string {
	switch v := value.(type) {
	case bool:
		if v {
			return "Yes"
		}
		return "No"
	case []string:
		return strings.Join(v, ", ")
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
