package deck

import "strings"

// Infographic is one visual unit of a slide. Content holds the declarative
// infographic syntax, for example:
//
//	infographic list-row-simple-horizontal-arrow
//	data
//	  title Quarterly goals
//	  items
//	    - label Hire
type Infographic struct {
	ID      string
	Content string
}

// Template returns the template name from the leading "infographic" line,
// or an empty string when the content has not reached it yet.
func (ig Infographic) Template() string {
	line, _, _ := strings.Cut(strings.TrimLeft(ig.Content, " \t\r\n"), "\n")
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != "infographic" {
		return ""
	}
	return fields[1]
}

// Title returns the first "title" entry of the content, if any.
func (ig Infographic) Title() string {
	for _, line := range strings.Split(ig.Content, "\n") {
		trimmed := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(trimmed, "title "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

// Label returns a human readable name: the title, else the template,
// else the id.
func (ig Infographic) Label() string {
	if t := ig.Title(); t != "" {
		return t
	}
	if t := ig.Template(); t != "" {
		return t
	}
	return ig.ID
}
