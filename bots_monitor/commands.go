package bots_monitor

import (
	"strings"

	"dex-sniper/internal/features/session"
)

type CommandKind int

const (
	CommandUnknown CommandKind = iota
	CommandStats
	CommandTop
)

const topCommandSize = 3

// ParseCommand "/stats", "/TOP", "/top@sniper_bot" are recognized, anything
// with arguments or extra text is not
func ParseCommand(text string) CommandKind {
	t := strings.ToLower(strings.TrimSpace(text))
	if cmd, bot, ok := strings.Cut(t, "@"); ok && bot != "" && !strings.ContainsAny(bot, " \t\n") {
		t = cmd
	}
	switch t {
	case "/stats":
		return CommandStats
	case "/top":
		return CommandTop
	default:
		return CommandUnknown
	}
}

// ReplyTo reply text for a command; reads st only
func ReplyTo(kind CommandKind, st *session.Stats) (string, bool) {
	switch kind {
	case CommandStats:
		return FormatStats(st), true
	case CommandTop:
		return FormatTop(st, topCommandSize), true
	default:
		return "", false
	}
}
