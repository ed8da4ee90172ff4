// Package command classifies inbound message bodies against the fixed SMS
// vocabulary and runs the matching handler against the store.
package command

import (
	"strings"
)

type Kind int

const (
	KindNote Kind = iota // default branch: append an annotated note
	KindCommands
	KindSetCount
	KindListCon
	KindDupCon
	KindJumpCon
	KindNameMedia
)

// Command is the tagged result of one parsing pass. Args holds the tokens
// after the command word; Body is the untouched message text used by the note
// branch.
type Command struct {
	Kind Kind
	Args []string
	Body string
}

// prefixes is the match order. First match wins, so this list is the
// precedence definition for the grammar.
var prefixes = []struct {
	prefix string
	kind   Kind
}{
	{"commands", KindCommands},
	{"setcount", KindSetCount},
	{"listcon", KindListCon},
	{"dupcon", KindDupCon},
	{"jumpcon", KindJumpCon},
	{"namemedia", KindNameMedia},
}

// Parse classifies a message body by case-insensitive prefix. Anything that
// matches no known command is a freeform note.
func Parse(body string) Command {
	lower := strings.ToLower(body)
	for _, p := range prefixes {
		if strings.HasPrefix(lower, p.prefix) {
			args := strings.Fields(body)
			if len(args) > 0 {
				args = args[1:]
			}
			return Command{Kind: p.kind, Args: args, Body: body}
		}
	}
	return Command{Kind: KindNote, Body: body}
}

func (c Command) arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}
