package shell

import "strings"

// Quote returns value in a form the shell parses back into exactly one word
func Quote(value string) string {
	if value == "" {
		return "''"
	}

	if !strings.ContainsAny(value, " \t\n$'\"\\`|&;<>()*?[]#~=%{}!") {
		return value
	}

	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}
