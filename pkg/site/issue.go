package site

import (
	"encoding/json"
	"fmt"
)

// DefaultCurrentIssue is used until the current issue option is first saved
var DefaultCurrentIssue = CurrentIssue{Volume: "1XX", Issue: "Y"}

// CurrentIssue identifies the publication cycle submissions are tagged with
type CurrentIssue struct {
	Volume string
	Issue  string
}

// Tag returns the tag submissions for this issue carry, e.g. v150i3
func (c CurrentIssue) Tag() string {
	return fmt.Sprintf("v%si%s", c.Volume, c.Issue)
}

// ParseCurrentIssue reads the stored option value, a two element
// [volume, issue] list. It accepts the decoded list or its JSON text.
func ParseCurrentIssue(value interface{}) (CurrentIssue, bool) {
	var parts []interface{}
	switch v := value.(type) {
	case CurrentIssue:
		return v, true
	case []string:
		for _, s := range v {
			parts = append(parts, s)
		}
	case []interface{}:
		parts = v
	case string:
		if err := json.Unmarshal([]byte(v), &parts); err != nil {
			return CurrentIssue{}, false
		}
	default:
		return CurrentIssue{}, false
	}

	if len(parts) != 2 {
		return CurrentIssue{}, false
	}
	return CurrentIssue{
		Volume: fmt.Sprint(parts[0]),
		Issue:  fmt.Sprint(parts[1]),
	}, true
}
