package llm

import (
	"regexp"
	"strings"
)

var (
	shellFence   = regexp.MustCompile("(?s)```(?:bash|sh|shell)[ \t]*\r?\n(.*?)```")
	genericFence = regexp.MustCompile("(?s)```[^\n`]*\r?\n(.*?)```")
)

// ExtractScript pulls the script body out of a model reply. A fence tagged
// bash, sh or shell wins over an untagged fence; with no fence the trimmed
// reply is returned as is.
func ExtractScript(reply string) string {
	if m := shellFence.FindStringSubmatch(reply); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := genericFence.FindStringSubmatch(reply); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(reply)
}
