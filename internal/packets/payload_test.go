package packets

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amongo/amongo/internal/hazel"
)

const testCode int32 = -1943683525

func collectWarnings() (DecodeOption, *[]Warning) {
	var ws []Warning
	return WithWarnings(func(w Warning) { ws = append(ws, w) }), &ws
}

func TestDecodeRedirect(t *testing.T) {
	b := []byte{0x00, 0x06, byte(TagRedirect), 45, 79, 5, 6, 0x56, 0x07}

	ps, err := DecodePayloads(b)
	require.NoError(t, err)
	require.Len(t, ps, 1)

	r, ok := ps[0].(Redirect)
	require.True(t, ok, "got %T", ps[0])
	assert.Equal(t, netip.MustParseAddrPort("45.79.5.6:22023"), r.Addr)
}

func TestDecodeOverConsumptionIsFatal(t *testing.T) {
	// JoinedGame needs 12 bytes but declares 4.
	b := []byte{0x00, 0x04, byte(TagJoinedGame), 0x80, 0x00, 0x00, 0x01}

	ps, err := DecodePayloads(b)
	require.Error(t, err)
	assert.Empty(t, ps)
	assert.ErrorIs(t, err, ErrDesync)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, LevelPayload, de.Level)
	assert.Equal(t, uint8(TagJoinedGame), de.Tag)
	assert.Equal(t, 4, de.Declared)
}

func TestDecodeOverConsumptionInGameData(t *testing.T) {
	w := NewWriter()
	w.Record(uint8(TagGameData), func(w *Writer) {
		w.WriteInt32(testCode)
		// Ready declares zero bytes but always reads a packed id.
		w.Record(uint8(TagReady), func(*Writer) {})
	})

	_, err := DecodePayloads(w.Bytes())
	assert.ErrorIs(t, err, ErrDesync)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, LevelGameData, de.Level)
	assert.Equal(t, uint8(TagReady), de.Tag)
}

func TestDecodeNestedRecordPastParent(t *testing.T) {
	tests := []struct {
		name   string
		nested []byte
	}{
		{name: "body longer than parent", nested: []byte{0x00, 0x05, byte(TagReady), 0x01}},
		{name: "header cut by parent", nested: []byte{0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter()
			w.Record(uint8(TagGameData), func(w *Writer) {
				w.WriteInt32(testCode)
				w.WriteBytes(tt.nested)
			})

			_, err := DecodePayloads(w.Bytes())
			assert.ErrorIs(t, err, ErrDesync)
			assert.ErrorIs(t, err, ErrShortBuffer)

			var de *DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, LevelGameData, de.Level)
		})
	}
}

func TestDecodeUnderConsumptionWarnsAndSkips(t *testing.T) {
	b := []byte{
		0x00, 0x06, byte(TagStartGame), 0x80, 0x00, 0x00, 0x01, 0xaa, 0xbb,
		0x00, 0x04, byte(TagStartGame), 0x80, 0x00, 0x00, 0x02,
	}
	opt, warnings := collectWarnings()

	ps, err := DecodePayloads(b, opt)
	require.NoError(t, err)
	assert.Equal(t, []Payload{
		StartGame{Code: int32(-0x7fffffff)},
		StartGame{Code: int32(-0x7ffffffe)},
	}, ps)

	require.Len(t, *warnings, 1)
	w := (*warnings)[0]
	assert.Equal(t, WarnShortConsume, w.Kind)
	assert.Equal(t, 6, w.Declared)
	assert.Equal(t, 4, w.Consumed)
}

func TestDecodeTruncatedRecord(t *testing.T) {
	_, err := DecodePayloads([]byte{0x00, 0x10, byte(TagStartGame), 0x01})
	assert.ErrorIs(t, err, ErrShortBuffer)
	assert.NotErrorIs(t, err, ErrDesync)
}

func TestDecodeUnknownPayloadRoundTrips(t *testing.T) {
	b := []byte{0x00, 0x02, byte(TagWaitForHost), 0x01, 0x02}
	opt, warnings := collectWarnings()

	ps, err := DecodePayloads(b, opt)
	require.NoError(t, err)
	assert.Equal(t, []Payload{UnknownPayload{Type: TagWaitForHost, Data: []byte{0x01, 0x02}}}, ps)
	require.Len(t, *warnings, 1)
	assert.Equal(t, WarnUnknownTag, (*warnings)[0].Kind)

	out, err := EncodePayloads(ps...)
	require.NoError(t, err)
	assert.Equal(t, b, out)
}

func TestOpaqueRPCRoundTripsExactBytes(t *testing.T) {
	w := NewWriter()
	w.Record(uint8(TagGameData), func(w *Writer) {
		w.WriteInt32(testCode)
		w.Record(uint8(TagRPC), func(w *Writer) {
			w.WritePacked(300)
			w.WriteUint8(uint8(RPCSendChat))
			w.WriteString("where?")
			w.WriteBytes([]byte{0xde, 0xad})
		})
	})
	original := w.Bytes()
	opt, warnings := collectWarnings()

	ps, err := DecodePayloads(original, opt)
	require.NoError(t, err)
	require.Len(t, ps, 1)

	gd := ps[0].(GameData)
	require.Len(t, gd.Parts, 1)
	rpc := gd.Parts[0].(RPC)
	assert.Equal(t, uint32(300), rpc.NetID)
	assert.Equal(t, RPCSendChat, rpc.Body.Flag())
	assert.IsType(t, OpaqueRPC{}, rpc.Body)
	require.Len(t, *warnings, 1)
	assert.Equal(t, WarnUnknownRPC, (*warnings)[0].Kind)

	again, err := EncodePayloads(ps...)
	require.NoError(t, err)
	assert.Equal(t, original, again)
}

func TestJoinGameShapes(t *testing.T) {
	t.Run("error from server", func(t *testing.T) {
		ps, err := DecodePayloads([]byte{0x00, 0x01, byte(TagJoinGame), byte(hazel.ReasonBanned)})
		require.NoError(t, err)
		assert.Equal(t, []Payload{JoinGameError{Reason: hazel.ReasonBanned}}, ps)
	})

	t.Run("custom error message", func(t *testing.T) {
		b, err := EncodePayloads(JoinGameError{Reason: hazel.ReasonCustom, Message: "lobby closed"})
		require.NoError(t, err)

		ps, err := DecodePayloads(b)
		require.NoError(t, err)
		assert.Equal(t, []Payload{JoinGameError{Reason: hazel.ReasonCustom, Message: "lobby closed"}}, ps)
	})

	t.Run("request from client", func(t *testing.T) {
		b, err := EncodePayloads(JoinGameRequest{Code: testCode})
		require.NoError(t, err)
		assert.Equal(t, []byte{0x00, 0x04, 0x01, 0x8c, 0x25, 0xbe, 0x3b}, b)

		ps, err := DecodePayloads(b, FromClient())
		require.NoError(t, err)
		assert.Equal(t, []Payload{JoinGameRequest{Code: testCode}}, ps)
	})

	t.Run("player joined broadcast", func(t *testing.T) {
		b, err := EncodePayloads(PlayerJoined{Code: testCode, ClientID: 9, HostClientID: 2})
		require.NoError(t, err)

		ps, err := DecodePayloads(b)
		require.NoError(t, err)
		assert.Equal(t, []Payload{PlayerJoined{Code: testCode, ClientID: 9, HostClientID: 2}}, ps)
	})

	t.Run("custom error as long as a broadcast", func(t *testing.T) {
		want := JoinGameError{Reason: hazel.ReasonCustom, Message: "0123456789"}
		b, err := EncodePayloads(want)
		require.NoError(t, err)
		require.Len(t, b, 3+12)

		ps, err := DecodePayloads(b)
		require.NoError(t, err)
		assert.Equal(t, []Payload{want}, ps)
	})

	t.Run("broadcast needs a versioned code", func(t *testing.T) {
		_, err := EncodePayloads(PlayerJoined{Code: 0x1234, ClientID: 9, HostClientID: 2})
		assert.Error(t, err)
	})
}

func TestJoinedGameWithoutClientList(t *testing.T) {
	w := NewWriter()
	w.Record(uint8(TagJoinedGame), func(w *Writer) {
		w.WriteInt32(testCode)
		w.WriteUint32(7)
		w.WriteUint32(3)
	})

	ps, err := DecodePayloads(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []Payload{JoinedGame{Code: testCode, PlayerClientID: 7, HostClientID: 3}}, ps)
}

func TestPayloadRoundTrip(t *testing.T) {
	options := DefaultGameOptions()
	options.Map = MapPolus
	options.Impostors = 2

	tests := []struct {
		name    string
		payload Payload
	}{
		{"joined game", JoinedGame{Code: testCode, PlayerClientID: 42, HostClientID: 1, OtherClientIDs: []uint32{1, 200}}},
		{"redirect", Redirect{Addr: netip.MustParseAddrPort("10.0.0.1:22023")}},
		{"start game", StartGame{Code: testCode}},
		{"end game", EndGame{Code: testCode, Reason: ImpostorByKill, ShowAd: true}},
		{"spawn", GameData{Code: testCode, Parts: []GameDataPart{
			Spawn{SpawnID: 4, OwnerID: 42, Flags: 1, Components: []Component{
				{NetID: 10, Tag: 1, Data: []byte{0x01}},
				{NetID: 11, Tag: 1, Data: []byte{0x02, 0x03}},
				{NetID: 12, Tag: 1, Data: []byte{0x00, 0x01, 0x02}},
			}},
		}}},
		{"scene change and ready", GameData{Code: testCode, Parts: []GameDataPart{
			SceneChange{ClientID: 42, Scene: SceneOnlineGame},
			Ready{ClientID: 42},
		}}},
		{"name and color checks", GameDataTo{Code: testCode, Recipient: 1, Parts: []GameDataPart{
			RPC{NetID: 10, Body: CheckName{Name: "amongo"}},
			RPC{NetID: 10, Body: CheckColor{Color: ColorLime}},
		}}},
		{"name and color sets", GameData{Code: testCode, Parts: []GameDataPart{
			RPC{NetID: 10, Body: SetName{Name: "amongo"}},
			RPC{NetID: 10, Body: SetColor{Color: ColorCyan}},
		}}},
		{"sync settings", GameData{Code: testCode, Parts: []GameDataPart{
			RPC{NetID: 3, Body: SyncSettings{Options: options}},
		}}},
		{"update game data", GameData{Code: testCode, Parts: []GameDataPart{
			RPC{NetID: 2, Body: UpdateGameData{Players: []PlayerData{
				{PlayerID: 0, Name: "red", Color: ColorRed, Hat: 3, Pet: 1, Skin: 200},
				{PlayerID: 1, Name: "blue", Color: ColorBlue, Impostor: true, Dead: true,
					Tasks: []Task{{ID: 2, Completed: true}, {ID: 17}}},
			}}},
		}}},
		{"voting complete", GameData{Code: testCode, Parts: []GameDataPart{
			RPC{NetID: 7, Body: VotingComplete{States: []VoteState{0x42, 0x80}, Exiled: NoExile, Tie: true}},
		}}},
		{"murder and infected", GameData{Code: testCode, Parts: []GameDataPart{
			RPC{NetID: 10, Body: MurderPlayer{Target: 13}},
			RPC{NetID: 2, Body: SetInfected{PlayerIDs: []uint8{1, 4}}},
		}}},
		{"start counter", GameData{Code: testCode, Parts: []GameDataPart{
			RPC{NetID: 10, Body: SetStartCounter{Sequence: 129, Seconds: -1}},
		}}},
		{"unknown game data", GameData{Code: testCode, Parts: []GameDataPart{
			UnknownGameData{Type: TagDespawn, Data: []byte{0x0a}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := EncodePayloads(tt.payload)
			require.NoError(t, err)

			ps, err := DecodePayloads(b)
			require.NoError(t, err)
			require.Len(t, ps, 1)
			assert.Equal(t, tt.payload, ps[0])
		})
	}
}

func TestDataPartRoundTrip(t *testing.T) {
	in := Data{NetID: 12, Sequence: 65535, Position: Vector2{X: 1.5, Y: -2.25}, Velocity: Vector2{X: 0, Y: 3}}

	b, err := EncodePayloads(GameData{Code: testCode, Parts: []GameDataPart{in}})
	require.NoError(t, err)

	ps, err := DecodePayloads(b)
	require.NoError(t, err)
	got := ps[0].(GameData).Parts[0].(Data)

	assert.Equal(t, in.NetID, got.NetID)
	assert.Equal(t, in.Sequence, got.Sequence)
	assert.InDelta(t, in.Position.X, got.Position.X, 0.002)
	assert.InDelta(t, in.Position.Y, got.Position.Y, 0.002)
	assert.InDelta(t, in.Velocity.X, got.Velocity.X, 0.002)
	assert.InDelta(t, in.Velocity.Y, got.Velocity.Y, 0.002)
}

func TestEncodeRejectsUnsupported(t *testing.T) {
	_, err := EncodePayloads(Redirect{Addr: netip.MustParseAddrPort("[::1]:22023")})
	assert.Error(t, err)

	_, err = EncodePayloads(GameData{Parts: []GameDataPart{RPC{NetID: 1}}})
	assert.Error(t, err)

	w := NewWriter()
	w.WritePlayerData(PlayerData{PlayerID: 1, Name: "red", Tasks: make([]Task, 256)})
	assert.ErrorContains(t, w.Err(), "256 tasks")
}

func TestPayloadTagNames(t *testing.T) {
	assert.Equal(t, "joined_game", TagJoinedGame.String())
	assert.Equal(t, "payload(15)", PayloadTag(15).String())
	assert.Equal(t, "gamedata(99)", GameDataTag(99).String())
	assert.Equal(t, "sync_settings", RPCSyncSettings.String())
	assert.Equal(t, "update_game_data", RPCUpdateGameData.String())
	assert.Equal(t, "spanish|english", (LanguageEnglish | LanguageSpanish).String())
}
