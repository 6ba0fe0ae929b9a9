package resolve

import (
	"strings"

	"mycar-backend/lib/textutil"
)

func isSingleManual(payload string) bool {
	return strings.Contains(payload, `"isMultiple":false`) ||
		strings.Contains(payload, `"isMultiple": false`)
}

// ResolveOwnersManualUrl picks the owner's manual for a model. An empty
// result means no suitable manual was published.
func ResolveOwnersManualUrl(payload, model, bodyStyle string) string {
	if isSingleManual(payload) {
		return textutil.JsonField(payload, "url")
	}

	bodyType := model
	if bodyStyle != "" {
		bodyType = model + " " + bodyStyle
	}

	list, _ := textutil.Between(payload, `"manualsList":[`, "]", 0)
	if list == "" {
		return ""
	}
	for _, manual := range textutil.All(list, "{", "}") {
		url := textutil.JsonField(manual, "url")
		title := textutil.JsonField(manual, "title")
		if !strings.HasSuffix(strings.ToLower(url), ".pdf") {
			continue
		}
		if !strings.Contains(title, "Owner's Manual") || strings.Contains(title, "Supplement") {
			continue
		}
		if !strings.Contains(title, bodyType) {
			continue
		}
		return url
	}
	return ""
}
