package dot

import (
	"sort"
	"strings"
)

// AttributesToString formats `attribs` as a DOT attribute list, ` [k="v", ...]`, with keys sorted.
// Values wrapped in angle brackets are HTML labels and are written unquoted.
func AttributesToString(attribs map[string]string) string {
	if len(attribs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attribs))
	for k := range attribs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb := new(strings.Builder)
	sb.WriteString(" [")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		v := attribs[k]
		sb.WriteString(k)
		sb.WriteByte('=')
		if len(v) > 1 && strings.HasPrefix(v, "<") && strings.HasSuffix(v, ">") {
			sb.WriteString(v)
		} else {
			sb.WriteByte('"')
			sb.WriteString(strings.ReplaceAll(v, `"`, `\"`))
			sb.WriteByte('"')
		}
	}
	sb.WriteByte(']')
	return sb.String()
}
