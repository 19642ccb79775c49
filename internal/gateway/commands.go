package gateway

import "strings"

// Command is an inbound message classified at the channel boundary. Handlers
// switch on Command values; raw menu text never travels further in.
type Command int

const (
	CmdText Command = iota
	CmdStart
	CmdVideo
	CmdFast
	CmdAudio
	CmdHD
	CmdSearch
	CmdStatus
	CmdHelp
)

const (
	menuVideo  = "📥 Download Video"
	menuFast   = "⚡ Fast Download"
	menuAudio  = "🎵 Audio Only"
	menuSearch = "🔍 Search Music"
	menuStatus = "📊 Status"
	menuHelp   = "ℹ️ Help"
)

func classifyCommand(text string) Command {
	switch strings.TrimSpace(text) {
	case "/start", "/help", "/menu":
		return CmdStart
	case menuVideo:
		return CmdVideo
	case menuFast:
		return CmdFast
	case menuAudio:
		return CmdAudio
	case "/hd":
		return CmdHD
	case menuSearch:
		return CmdSearch
	case menuStatus:
		return CmdStatus
	case menuHelp:
		return CmdHelp
	default:
		return CmdText
	}
}
