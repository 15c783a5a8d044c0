package gameserver

import (
	"fmt"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"

	"github.com/mverrilli/deckbound/internal/game/card"
	"github.com/mverrilli/deckbound/internal/game/combat"
	"github.com/mverrilli/deckbound/internal/game/effect"
	"github.com/mverrilli/deckbound/internal/game/encounter"
	"github.com/mverrilli/deckbound/internal/scripting"
)

// ScriptSpecials runs hostile-card special attacks through the zone's Lua
// VM. The engine.* callbacks it installs mutate the session the hook was
// dispatched for and buffer their observable consequences as events.
//
// Not safe for concurrent use on its own: the encounter handler's lock
// serialises every RunSpecial, and the callbacks fire synchronously
// inside CallHook on the same goroutine.
type ScriptSpecials struct {
	mgr   *scripting.Manager
	cards map[string]*card.Template

	// current and pending exist only for the duration of one RunSpecial.
	current *encounter.Session
	pending []encounter.Event
}

// NewScriptSpecials wires the engine.* callbacks on mgr and returns the
// adapter the enemy driver dispatches specials through.
//
// Precondition: mgr must be non-nil; cards is the loaded template set.
func NewScriptSpecials(mgr *scripting.Manager, cards map[string]*card.Template) *ScriptSpecials {
	r := &ScriptSpecials{mgr: mgr, cards: cards}

	mgr.SpawnCard = func(sessionID, templateID string) error {
		s := r.sessionFor(sessionID)
		if s == nil {
			return fmt.Errorf("no live session %q", sessionID)
		}
		tmpl, ok := r.cards[templateID]
		if !ok {
			return fmt.Errorf("unknown card template %q", templateID)
		}
		for i := range s.Cards {
			if s.Cards[i] != nil {
				continue
			}
			inst := card.NewInstance(uuid.New().String(), tmpl)
			s.Cards[i] = inst
			r.pending = append(r.pending, encounter.Event{
				Type:      encounter.EventLog,
				SubjectID: inst.ID,
				Narrative: inst.Name + " joins the field.",
			})
			return nil
		}
		return fmt.Errorf("no open slot for %q", templateID)
	}

	mgr.ApplyEffect = func(sessionID, targetUID, name, kind string, duration, magnitude int, stat string) error {
		s := r.sessionFor(sessionID)
		if s == nil {
			return fmt.Errorf("no live session %q", sessionID)
		}
		k, err := effect.ParseKind(kind)
		if err != nil {
			return err
		}
		eff := effect.Effect{Name: name, Kind: k, Remaining: duration, Magnitude: magnitude, Stat: stat}
		if m, ok := s.Member(targetUID); ok && !m.IsDead() {
			m.Effects.Apply(eff)
			r.pending = append(r.pending, encounter.Event{
				Type:      encounter.EventLog,
				SubjectID: m.ID,
				Narrative: m.Name + " is afflicted by " + name + ".",
			})
			return nil
		}
		if _, c, ok := s.CardByID(targetUID); ok {
			c.Effects.Apply(eff)
			r.pending = append(r.pending, encounter.Event{
				Type:      encounter.EventLog,
				SubjectID: c.ID,
				Narrative: c.Name + " is afflicted by " + name + ".",
			})
			return nil
		}
		return fmt.Errorf("no target %q in session %q", targetUID, sessionID)
	}

	mgr.RemoveSelf = func(sessionID, cardID string) error {
		s := r.sessionFor(sessionID)
		if s == nil {
			return fmt.Errorf("no live session %q", sessionID)
		}
		idx, c, ok := s.CardByID(cardID)
		if !ok {
			return fmt.Errorf("no card %q in session %q", cardID, sessionID)
		}
		// Scripted removal drops no loot; DefeatCard handles kills.
		s.Cards[idx] = nil
		r.pending = append(r.pending, encounter.Event{
			Type:      encounter.EventLog,
			SubjectID: c.ID,
			Narrative: c.Name + " is consumed by its own power.",
		})
		return nil
	}

	mgr.BroadcastLog = func(sessionID, msg string) {
		if r.sessionFor(sessionID) == nil {
			return
		}
		r.pending = append(r.pending, encounter.Event{Type: encounter.EventLog, Narrative: msg})
	}

	mgr.GetCombatant = func(sessionID, uid string) *scripting.CombatantInfo {
		s := r.sessionFor(sessionID)
		if s == nil {
			return nil
		}
		m, ok := s.Member(uid)
		if !ok {
			return nil
		}
		info := &scripting.CombatantInfo{
			UID:       m.ID,
			Name:      m.Name,
			Health:    m.Health,
			MaxHealth: m.MaxHealth,
			Threat:    m.Threat,
		}
		for _, e := range m.Effects.All() {
			info.Effects = append(info.Effects, e.Name)
		}
		return info
	}

	return r
}

// sessionFor guards the callbacks against stale session ids: hooks may
// only touch the session they were dispatched for.
func (r *ScriptSpecials) sessionFor(sessionID string) *encounter.Session {
	if r.current != nil && r.current.ID == sessionID {
		return r.current
	}
	return nil
}

// RunSpecial dispatches the named hook with (session_id, card_id,
// target_uid) and returns the events the script produced. A hook that
// returns falsy with no events yields a single fizzle line so the card's
// action is never silent.
func (r *ScriptSpecials) RunSpecial(hook string, s *encounter.Session, actor *card.Instance, target *combat.Combatant) ([]encounter.Event, error) {
	r.current = s
	r.pending = nil
	defer func() {
		r.current = nil
		r.pending = nil
	}()

	ret, err := r.mgr.CallHook(s.ZoneID, hook,
		lua.LString(s.ID), lua.LString(actor.ID), lua.LString(target.ID))
	if err != nil {
		return nil, err
	}

	events := r.pending
	if len(events) == 0 && lua.LVIsFalse(ret) {
		events = []encounter.Event{{
			Type:      encounter.EventLog,
			Narrative: actor.Name + " gathers itself, but nothing happens.",
		}}
	}
	return events, nil
}
