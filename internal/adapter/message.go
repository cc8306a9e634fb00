package adapter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/annko/keiba-bot-go/internal/constants"
	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/util"
)

var (
	controlCharsPattern = regexp.MustCompile(`[\x00-\x1F\x7F]`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
	raceIDPattern       = regexp.MustCompile(`^\d{12}$`)
)

// Reply texts shared by the chat transports.
const (
	MsgInvalidFormat = "入力形式が間違っています。例: 京都,05,06,11"
	MsgResultFailed  = "結果が取得できませんでした。"
)

// MessageAdapter converts chat messages to bot commands
type MessageAdapter struct {
	prefix string
}

// NewMessageAdapter creates a new MessageAdapter
func NewMessageAdapter(prefix string) *MessageAdapter {
	return &MessageAdapter{prefix: strings.TrimSpace(prefix)}
}

// HasPrefix reports whether a command prefix is configured.
func (ma *MessageAdapter) HasPrefix() bool {
	return ma.prefix != ""
}

// ParsedCommand represents a parsed command. Error holds a reply for input that was
// recognised as a command but could not be parsed.
type ParsedCommand struct {
	Type       domain.CommandType
	Params     map[string]any
	RawMessage string
	Prefixed   bool
	Error      string
}

// ParseMessage parses one chat message. The prefix is optional: it is stripped when
// present and recorded in Prefixed so group transports can ignore bare chatter.
func (ma *MessageAdapter) ParseMessage(message string) *ParsedCommand {
	text := strings.TrimSpace(message)
	if text == "" {
		return ma.createUnknownCommand("")
	}

	commandText := text
	prefixed := false
	if ma.prefix != "" && strings.HasPrefix(text, ma.prefix) {
		commandText = strings.TrimSpace(text[len(ma.prefix):])
		prefixed = true
	}

	cmd := ma.parse(commandText)
	cmd.RawMessage = text
	cmd.Prefixed = prefixed
	return cmd
}

func (ma *MessageAdapter) parse(text string) *ParsedCommand {
	if isCSV(text) {
		return ma.parseCSV(text)
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return ma.createUnknownCommand(text)
	}

	command := util.Normalize(parts[0])
	args := parts[1:]

	switch {
	case ma.isResultCommand(command):
		params, ok := parseRaceArgs(args)
		if !ok {
			return invalid(domain.CommandResult, "入力形式が間違っています。例: 結果 京都 2024-10-13 11")
		}
		return &ParsedCommand{Type: domain.CommandResult, Params: params}

	case ma.isOddsCommand(command):
		return ma.parseOdds(args)

	case ma.isPayoutCommand(command):
		params, ok := parseRaceArgs(args)
		if !ok {
			return invalid(domain.CommandPayout, "入力形式が間違っています。例: 払戻 202408050611")
		}
		return &ParsedCommand{Type: domain.CommandPayout, Params: params}

	case ma.isInfoCommand(command):
		params, ok := parseRaceArgs(args)
		if !ok {
			return invalid(domain.CommandInfo, "入力形式が間違っています。例: 情報 202408050611")
		}
		return &ParsedCommand{Type: domain.CommandInfo, Params: params}

	case ma.isHelpCommand(command):
		return &ParsedCommand{Type: domain.CommandHelp, Params: make(map[string]any)}

	case ma.isAskCommand(command):
		question := ma.sanitizeForGemini(strings.Join(args, " "))
		if question == "" {
			return ma.createUnknownCommand(text)
		}
		return &ParsedCommand{Type: domain.CommandAsk, Params: map[string]any{"question": question}}
	}

	// AI natural language processing
	sanitized := ma.sanitizeForGemini(text)
	if sanitized == "" {
		return ma.createUnknownCommand(text)
	}
	return &ParsedCommand{Type: domain.CommandAsk, Params: map[string]any{"question": sanitized}}
}

// Command matchers

func (ma *MessageAdapter) isResultCommand(cmd string) bool {
	return util.Contains([]string{"結果", "result", "けっか", "着順"}, cmd)
}

func (ma *MessageAdapter) isOddsCommand(cmd string) bool {
	return util.Contains([]string{"オッズ", "odds"}, cmd)
}

func (ma *MessageAdapter) isPayoutCommand(cmd string) bool {
	return util.Contains([]string{"払戻", "払い戻し", "配当", "payout"}, cmd)
}

func (ma *MessageAdapter) isInfoCommand(cmd string) bool {
	return util.Contains([]string{"情報", "レース情報", "info"}, cmd)
}

func (ma *MessageAdapter) isHelpCommand(cmd string) bool {
	return util.Contains([]string{"ヘルプ", "help", "使い方", "?"}, cmd)
}

func (ma *MessageAdapter) isAskCommand(cmd string) bool {
	return util.Contains([]string{"質問", "ask"}, cmd)
}

// Japanese sentences use 、 so only ASCII and full-width commas mark the CSV form.
func isCSV(text string) bool {
	return strings.ContainsAny(text, ",，")
}

// parseCSV handles the legacy "京都,05,06,11" form.
func (ma *MessageAdapter) parseCSV(text string) *ParsedCommand {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '，'
	})
	if len(fields) != 4 {
		return invalid(domain.CommandResult, MsgInvalidFormat)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	params, ok := meetingParams(fields[0], fields[1], fields[2], fields[3])
	if !ok {
		return invalid(domain.CommandResult, MsgInvalidFormat)
	}
	return &ParsedCommand{Type: domain.CommandResult, Params: params}
}

// parseOdds accepts "<race> [bet type]" where <race> is any form parseRaceArgs knows.
func (ma *MessageAdapter) parseOdds(args []string) *ParsedCommand {
	bet := domain.BetWin
	if len(args) > 1 {
		if parsed, err := domain.ParseBetType(args[len(args)-1]); err == nil {
			bet = parsed
			args = args[:len(args)-1]
		}
	}
	params, ok := parseRaceArgs(args)
	if !ok {
		return invalid(domain.CommandOdds, "入力形式が間違っています。例: オッズ 202408050611 単勝")
	}
	params["bet_type"] = string(bet)
	return &ParsedCommand{Type: domain.CommandOdds, Params: params}
}

// parseRaceArgs accepts a race id, "<racecourse> <date> <race>" or
// "<racecourse> <meeting> <day> <race>".
func parseRaceArgs(args []string) (map[string]any, bool) {
	switch len(args) {
	case 1:
		id := util.Normalize(args[0])
		if !raceIDPattern.MatchString(id) {
			return nil, false
		}
		return map[string]any{"race_id": id}, true
	case 3:
		date, err := util.ParseDate(util.Normalize(args[1]))
		if err != nil {
			return nil, false
		}
		race, ok := raceNumber(args[2])
		if !ok {
			return nil, false
		}
		return map[string]any{
			"racecourse": strings.TrimSpace(args[0]),
			"date":       date.Format("2006-01-02"),
			"race":       race,
		}, true
	case 4:
		return meetingParams(args[0], args[1], args[2], args[3])
	default:
		return nil, false
	}
}

func meetingParams(racecourse, meeting, day, race string) (map[string]any, bool) {
	m, err1 := strconv.Atoi(util.Normalize(meeting))
	d, err2 := strconv.Atoi(util.Normalize(day))
	r, ok := raceNumber(race)
	if err1 != nil || err2 != nil || !ok || racecourse == "" {
		return nil, false
	}
	return map[string]any{
		"racecourse": racecourse,
		"meeting":    m,
		"day":        d,
		"race":       r,
	}, true
}

// raceNumber accepts "11", "11R" and "１１Ｒ".
func raceNumber(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSuffix(util.Normalize(s), "r"))
	if err != nil {
		return 0, false
	}
	return n, true
}

func invalid(cmdType domain.CommandType, message string) *ParsedCommand {
	return &ParsedCommand{Type: cmdType, Params: make(map[string]any), Error: message}
}

func (ma *MessageAdapter) createUnknownCommand(text string) *ParsedCommand {
	return &ParsedCommand{
		Type:       domain.CommandUnknown,
		Params:     make(map[string]any),
		RawMessage: text,
	}
}

func (ma *MessageAdapter) sanitizeForGemini(input string) string {
	withoutControl := controlCharsPattern.ReplaceAllString(input, " ")
	normalized := strings.TrimSpace(whitespacePattern.ReplaceAllString(withoutControl, " "))
	if normalized == "" {
		return ""
	}
	runes := []rune(normalized)
	if len(runes) > constants.AIInputLimits.MaxQueryLength {
		return string(runes[:constants.AIInputLimits.MaxQueryLength])
	}
	return normalized
}
