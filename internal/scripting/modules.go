package scripting

import lua "github.com/yuin/gopher-lua"

// RegisterModules registers the engine.* Lua table into L. Every function
// routes through a Manager callback field; callbacks left nil make the
// corresponding function a no-op so content scripts degrade quietly.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L with spawn_card,
// apply_effect, remove_self, broadcast, combatant, and roll.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()

	// engine.spawn_card(session_id, template_id) -> bool
	L.SetField(engine, "spawn_card", L.NewFunction(func(L *lua.LState) int {
		sessionID := L.CheckString(1)
		templateID := L.CheckString(2)
		if m.SpawnCard == nil {
			L.Push(lua.LFalse)
			return 1
		}
		L.Push(lua.LBool(m.SpawnCard(sessionID, templateID) == nil))
		return 1
	}))

	// engine.apply_effect(session_id, target_uid, name, kind, duration, magnitude [, stat]) -> bool
	L.SetField(engine, "apply_effect", L.NewFunction(func(L *lua.LState) int {
		sessionID := L.CheckString(1)
		targetUID := L.CheckString(2)
		name := L.CheckString(3)
		kind := L.CheckString(4)
		duration := L.CheckInt(5)
		magnitude := L.CheckInt(6)
		stat := L.OptString(7, "")
		if m.ApplyEffect == nil {
			L.Push(lua.LFalse)
			return 1
		}
		err := m.ApplyEffect(sessionID, targetUID, name, kind, duration, magnitude, stat)
		L.Push(lua.LBool(err == nil))
		return 1
	}))

	// engine.remove_self(session_id, card_id) -> bool
	L.SetField(engine, "remove_self", L.NewFunction(func(L *lua.LState) int {
		sessionID := L.CheckString(1)
		cardID := L.CheckString(2)
		if m.RemoveSelf == nil {
			L.Push(lua.LFalse)
			return 1
		}
		L.Push(lua.LBool(m.RemoveSelf(sessionID, cardID) == nil))
		return 1
	}))

	// engine.broadcast(session_id, msg)
	L.SetField(engine, "broadcast", L.NewFunction(func(L *lua.LState) int {
		sessionID := L.CheckString(1)
		msg := L.CheckString(2)
		if m.BroadcastLog != nil {
			m.BroadcastLog(sessionID, msg)
		}
		return 0
	}))

	// engine.combatant(session_id, uid) -> table or nil
	L.SetField(engine, "combatant", L.NewFunction(func(L *lua.LState) int {
		sessionID := L.CheckString(1)
		uid := L.CheckString(2)
		if m.GetCombatant == nil {
			L.Push(lua.LNil)
			return 1
		}
		info := m.GetCombatant(sessionID, uid)
		if info == nil {
			L.Push(lua.LNil)
			return 1
		}
		t := L.NewTable()
		L.SetField(t, "uid", lua.LString(info.UID))
		L.SetField(t, "name", lua.LString(info.Name))
		L.SetField(t, "health", lua.LNumber(info.Health))
		L.SetField(t, "max_health", lua.LNumber(info.MaxHealth))
		L.SetField(t, "threat", lua.LNumber(info.Threat))
		effects := L.NewTable()
		for i, name := range info.Effects {
			L.RawSetInt(effects, i+1, lua.LString(name))
		}
		L.SetField(t, "effects", effects)
		L.Push(t)
		return 1
	}))

	// engine.roll(expr) -> total or nil on a bad expression
	L.SetField(engine, "roll", L.NewFunction(func(L *lua.LState) int {
		expr := L.CheckString(1)
		result, err := m.roller.RollExpr(expr)
		if err != nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LNumber(result.Total()))
		return 1
	}))

	L.SetGlobal("engine", engine)
}
