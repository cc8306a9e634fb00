package domain

type CommandType string

const (
	CommandResult  CommandType = "result"
	CommandOdds    CommandType = "odds"
	CommandPayout  CommandType = "payout"
	CommandInfo    CommandType = "info"
	CommandHelp    CommandType = "help"
	CommandAsk     CommandType = "ask"
	CommandUnknown CommandType = "unknown"
)

func (c CommandType) String() string {
	return string(c)
}

func (c CommandType) IsValid() bool {
	switch c {
	case CommandResult, CommandOdds, CommandPayout, CommandInfo,
		CommandHelp, CommandAsk, CommandUnknown:
		return true
	default:
		return false
	}
}

// ParseResult is what the natural-language parser hands back to the dispatcher.
type ParseResult struct {
	Command    CommandType    `json:"command"`
	Params     map[string]any `json:"params"`
	Confidence float64        `json:"confidence"`
	Reasoning  string         `json:"reasoning"`
}
