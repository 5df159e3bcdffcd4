package packets

import (
	"fmt"
	"strings"
)

// PayloadTag identifies a top-level payload record.
type PayloadTag uint8

const (
	TagCreateGame     PayloadTag = 0
	TagJoinGame       PayloadTag = 1
	TagStartGame      PayloadTag = 2
	TagRemoveGame     PayloadTag = 3
	TagRemovePlayer   PayloadTag = 4
	TagGameData       PayloadTag = 5
	TagGameDataTo     PayloadTag = 6
	TagJoinedGame     PayloadTag = 7
	TagEndGame        PayloadTag = 8
	TagGetGameList    PayloadTag = 9
	TagAlterGame      PayloadTag = 10
	TagKickPlayer     PayloadTag = 11
	TagWaitForHost    PayloadTag = 12
	TagRedirect       PayloadTag = 13
	TagReselectServer PayloadTag = 14
	TagGetGameListV2  PayloadTag = 16
)

var payloadTagNames = map[PayloadTag]string{
	TagCreateGame:     "create_game",
	TagJoinGame:       "join_game",
	TagStartGame:      "start_game",
	TagRemoveGame:     "remove_game",
	TagRemovePlayer:   "remove_player",
	TagGameData:       "game_data",
	TagGameDataTo:     "game_data_to",
	TagJoinedGame:     "joined_game",
	TagEndGame:        "end_game",
	TagGetGameList:    "get_game_list",
	TagAlterGame:      "alter_game",
	TagKickPlayer:     "kick_player",
	TagWaitForHost:    "wait_for_host",
	TagRedirect:       "redirect",
	TagReselectServer: "reselect_server",
	TagGetGameListV2:  "get_game_list_v2",
}

func (t PayloadTag) String() string {
	return enumName(payloadTagNames, t, "payload")
}

// GameDataTag identifies a record nested inside GameData and GameDataTo.
type GameDataTag uint8

const (
	TagData           GameDataTag = 1
	TagRPC            GameDataTag = 2
	TagSpawn          GameDataTag = 4
	TagDespawn        GameDataTag = 5
	TagSceneChange    GameDataTag = 6
	TagReady          GameDataTag = 7
	TagChangeSettings GameDataTag = 8
)

var gameDataTagNames = map[GameDataTag]string{
	TagData:           "data",
	TagRPC:            "rpc",
	TagSpawn:          "spawn",
	TagDespawn:        "despawn",
	TagSceneChange:    "scene_change",
	TagReady:          "ready",
	TagChangeSettings: "change_settings",
}

func (t GameDataTag) String() string {
	return enumName(gameDataTagNames, t, "gamedata")
}

// RPCFlag identifies the procedure invoked by an RPC record.
type RPCFlag uint8

const (
	RPCPlayAnimation RPCFlag = iota
	RPCCompleteTask
	RPCSyncSettings
	RPCSetInfected
	RPCExiled
	RPCCheckName
	RPCSetName
	RPCCheckColor
	RPCSetColor
	RPCSetHat
	RPCSetSkin
	RPCReportDeadBody
	RPCMurderPlayer
	RPCSendChat
	RPCStartMeeting
	RPCSetScanner
	RPCSendChatNote
	RPCSetPet
	RPCSetStartCounter
	RPCEnterVent
	RPCExitVent
	RPCSnapTo
	RPCClose
	RPCVotingComplete
	RPCCastVote
	RPCClearVote
	RPCAddVote
	RPCCloseDoorsOfType
	RPCRepairSystem
	RPCSetTasks
	RPCUpdateGameData
)

var rpcFlagNames = [...]string{
	"play_animation", "complete_task", "sync_settings", "set_infected",
	"exiled", "check_name", "set_name", "check_color", "set_color",
	"set_hat", "set_skin", "report_dead_body", "murder_player", "send_chat",
	"start_meeting", "set_scanner", "send_chat_note", "set_pet",
	"set_start_counter", "enter_vent", "exit_vent", "snap_to", "close",
	"voting_complete", "cast_vote", "clear_vote", "add_vote",
	"close_doors_of_type", "repair_system", "set_tasks", "update_game_data",
}

func (f RPCFlag) String() string {
	if int(f) < len(rpcFlagNames) {
		return rpcFlagNames[f]
	}
	return fmt.Sprintf("rpc(%d)", uint8(f))
}

// Color is a player color.
type Color uint8

const (
	ColorRed Color = iota
	ColorBlue
	ColorDarkGreen
	ColorPink
	ColorOrange
	ColorYellow
	ColorBlack
	ColorWhite
	ColorPurple
	ColorBrown
	ColorCyan
	ColorLime
)

var colorNames = [...]string{
	"red", "blue", "dark_green", "pink", "orange", "yellow",
	"black", "white", "purple", "brown", "cyan", "lime",
}

func (c Color) String() string {
	if int(c) < len(colorNames) {
		return colorNames[c]
	}
	return fmt.Sprintf("color(%d)", uint8(c))
}

// ParseColor maps a color name (case-insensitive) to its value.
func ParseColor(s string) (Color, error) {
	name := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "_"))
	for i, n := range colorNames {
		if n == name {
			return Color(i), nil
		}
	}
	return 0, fmt.Errorf("unknown color %q", s)
}

type Map uint8

const (
	MapSkeld Map = iota
	MapMIRA
	MapPolus
)

func (m Map) String() string {
	switch m {
	case MapSkeld:
		return "skeld"
	case MapMIRA:
		return "mira"
	case MapPolus:
		return "polus"
	}
	return fmt.Sprintf("map(%d)", uint8(m))
}

// Language is a bit set of chat languages.
type Language uint32

const (
	LanguageOther      Language = 1 << 0
	LanguageSpanish    Language = 1 << 1
	LanguageKorean     Language = 1 << 2
	LanguageRussian    Language = 1 << 3
	LanguagePortuguese Language = 1 << 4
	LanguageArabic     Language = 1 << 5
	LanguageFilipino   Language = 1 << 6
	LanguagePolish     Language = 1 << 7
	LanguageEnglish    Language = 1 << 8
)

var languageNames = []struct {
	bit  Language
	name string
}{
	{LanguageOther, "other"},
	{LanguageSpanish, "spanish"},
	{LanguageKorean, "korean"},
	{LanguageRussian, "russian"},
	{LanguagePortuguese, "portuguese"},
	{LanguageArabic, "arabic"},
	{LanguageFilipino, "filipino"},
	{LanguagePolish, "polish"},
	{LanguageEnglish, "english"},
}

func (l Language) String() string {
	if l == 0 {
		return "none"
	}
	var parts []string
	rest := l
	for _, n := range languageNames {
		if l&n.bit != 0 {
			parts = append(parts, n.name)
			rest &^= n.bit
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

type TaskBarUpdates uint8

const (
	TaskBarAlways TaskBarUpdates = iota
	TaskBarMeetings
	TaskBarNever
)

func (t TaskBarUpdates) String() string {
	switch t {
	case TaskBarAlways:
		return "always"
	case TaskBarMeetings:
		return "meetings"
	case TaskBarNever:
		return "never"
	}
	return fmt.Sprintf("taskbar(%d)", uint8(t))
}

type GameOverReason uint8

const (
	CrewmatesByVote GameOverReason = iota
	CrewmatesByTask
	ImpostorByVote
	ImpostorByKill
	ImpostorBySabotage
	ImpostorDisconnect
	CrewmatesDisconnect
)

var gameOverNames = [...]string{
	"crewmates_by_vote", "crewmates_by_task", "impostor_by_vote",
	"impostor_by_kill", "impostor_by_sabotage", "impostor_disconnect",
	"crewmates_disconnect",
}

func (g GameOverReason) String() string {
	if int(g) < len(gameOverNames) {
		return gameOverNames[g]
	}
	return fmt.Sprintf("game_over(%d)", uint8(g))
}

// SceneOnlineGame is the only scene a client asks to change to.
const SceneOnlineGame = "OnlineGame"

func enumName[K ~uint8](names map[K]string, k K, kind string) string {
	if n, ok := names[k]; ok {
		return n
	}
	return fmt.Sprintf("%s(%d)", kind, uint8(k))
}
