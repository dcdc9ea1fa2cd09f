package scenario

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"
)

const playthroughTypeName = "playthrough"

// LoadPlaythroughFromFile runs a Lua script and returns the Playthrough it
// builds. Story paths in the script are relative to the script's
// directory.
func LoadPlaythroughFromFile(path string) (*Playthrough, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)

	registerLuaTypes(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("run lua: %w", err)
	}

	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return nil, fmt.Errorf("playthrough script must return Playthrough")
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	playthrough, ok := ud.(*Playthrough)
	if !ok || playthrough == nil {
		return nil, fmt.Errorf("playthrough script returned invalid Playthrough")
	}
	if strings.TrimSpace(playthrough.Name) == "" {
		playthrough.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if playthrough.StoryPath == "" {
		return nil, fmt.Errorf("playthrough %s does not name a story", playthrough.Name)
	}
	if !filepath.IsAbs(playthrough.StoryPath) {
		playthrough.StoryPath = filepath.Join(filepath.Dir(path), playthrough.StoryPath)
	}
	return playthrough, nil
}

func registerLuaTypes(state *lua.State) {
	lua.NewMetaTable(state, playthroughTypeName)
	state.NewTable()
	lua.SetFunctions(state, playthroughMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)

	state.NewTable()
	lua.SetFunctions(state, playthroughConstructor, 0)
	state.SetGlobal("Playthrough")
}

var playthroughConstructor = []lua.RegistryFunction{
	{Name: "new", Function: playthroughNew},
}

func playthroughNew(state *lua.State) int {
	name := lua.OptString(state, 1, "")
	state.PushUserData(&Playthrough{Name: name})
	lua.SetMetaTableNamed(state, playthroughTypeName)
	return 1
}

var playthroughMethods = []lua.RegistryFunction{
	{Name: "story", Function: playthroughStory},
	{Name: "continue", Function: playthroughContinue},
	{Name: "choose", Function: playthroughChoose},
	{Name: "expect_text", Function: playthroughExpectText},
	{Name: "expect_choices", Function: playthroughExpectChoices},
	{Name: "expect_tags", Function: playthroughExpectTags},
	{Name: "save", Function: playthroughSave},
	{Name: "load", Function: playthroughLoad},
	{Name: "switch_flow", Function: playthroughSwitchFlow},
	{Name: "set_var", Function: playthroughSetVar},
	{Name: "expect_var", Function: playthroughExpectVar},
	{Name: "expect_error", Function: playthroughExpectError},
}

// Every method returns the playthrough so calls can be chained.

func playthroughStory(state *lua.State) int {
	playthrough := checkPlaythrough(state)
	playthrough.StoryPath = lua.CheckString(state, 2)
	return self(state)
}

func playthroughContinue(state *lua.State) int {
	appendStep(checkPlaythrough(state), "continue", nil)
	return self(state)
}

func playthroughChoose(state *lua.State) int {
	playthrough := checkPlaythrough(state)
	n := lua.CheckInteger(state, 2)
	if n < 1 {
		lua.ArgumentError(state, 2, "choices are numbered from 1")
	}
	appendStep(playthrough, "choose", map[string]any{"choice": n})
	return self(state)
}

func playthroughExpectText(state *lua.State) int {
	playthrough := checkPlaythrough(state)
	appendStep(playthrough, "expect_text", map[string]any{"text": lua.CheckString(state, 2)})
	return self(state)
}

func playthroughExpectChoices(state *lua.State) int {
	playthrough := checkPlaythrough(state)
	lua.CheckType(state, 2, lua.TypeTable)
	appendStep(playthrough, "expect_choices", map[string]any{"choices": stringList(state, 2)})
	return self(state)
}

func playthroughExpectTags(state *lua.State) int {
	playthrough := checkPlaythrough(state)
	lua.CheckType(state, 2, lua.TypeTable)
	appendStep(playthrough, "expect_tags", map[string]any{"tags": stringList(state, 2)})
	return self(state)
}

func playthroughSave(state *lua.State) int {
	playthrough := checkPlaythrough(state)
	appendStep(playthrough, "save", map[string]any{"slot": lua.CheckString(state, 2)})
	return self(state)
}

func playthroughLoad(state *lua.State) int {
	playthrough := checkPlaythrough(state)
	appendStep(playthrough, "load", map[string]any{"slot": lua.CheckString(state, 2)})
	return self(state)
}

func playthroughSwitchFlow(state *lua.State) int {
	playthrough := checkPlaythrough(state)
	appendStep(playthrough, "switch_flow", map[string]any{"flow": lua.CheckString(state, 2)})
	return self(state)
}

func playthroughSetVar(state *lua.State) int {
	playthrough := checkPlaythrough(state)
	name := lua.CheckString(state, 2)
	lua.CheckAny(state, 3)
	appendStep(playthrough, "set_var", map[string]any{"name": name, "value": luaToGo(state, 3)})
	return self(state)
}

func playthroughExpectVar(state *lua.State) int {
	playthrough := checkPlaythrough(state)
	name := lua.CheckString(state, 2)
	lua.CheckAny(state, 3)
	appendStep(playthrough, "expect_var", map[string]any{"name": name, "value": luaToGo(state, 3)})
	return self(state)
}

func playthroughExpectError(state *lua.State) int {
	playthrough := checkPlaythrough(state)
	appendStep(playthrough, "expect_error", map[string]any{"contains": lua.OptString(state, 2, "")})
	return self(state)
}

func self(state *lua.State) int {
	state.PushValue(1)
	return 1
}

func checkPlaythrough(state *lua.State) *Playthrough {
	ud := lua.CheckUserData(state, 1, playthroughTypeName)
	if playthrough, ok := ud.(*Playthrough); ok && playthrough != nil {
		return playthrough
	}
	lua.ArgumentError(state, 1, "playthrough expected")
	return nil
}

func appendStep(playthrough *Playthrough, kind string, data map[string]any) {
	if playthrough == nil {
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	playthrough.Steps = append(playthrough.Steps, Step{Kind: kind, Args: data})
}

func stringList(state *lua.State, index int) []string {
	values, _ := tableToGo(state, index).([]any)
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, fmt.Sprint(v))
	}
	return out
}

func tableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(state, index)
	default:
		return nil
	}
}

// tableToGo converts sequences to []any and everything else to a map.
// An empty table is an empty sequence.
func tableToGo(state *lua.State, index int) any {
	if state.TypeOf(index) != lua.TypeTable {
		return nil
	}

	index = state.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if isArray && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			result = append(result, luaToGo(state, -1))
			state.Pop(1)
		}
		return result
	}

	return tableToMap(state, index)
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 {
		return int(value)
	}
	return value
}
