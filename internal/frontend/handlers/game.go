package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mverrilli/deckbound/internal/frontend/telnet"
	"github.com/mverrilli/deckbound/internal/game/character"
	"github.com/mverrilli/deckbound/internal/game/session"
	"github.com/mverrilli/deckbound/internal/gameserver"
	"github.com/mverrilli/deckbound/internal/storage/postgres"
)

// EncounterDriver is the encounter surface the game loop dispatches to.
type EncounterDriver interface {
	StartEncounter(uid, zoneID string) error
	QueuePvP(uid, zoneID string) error
	CancelQueue(uid, zoneID string) error
	Attack(uid, targetID string) error
	Cast(uid, abilityID, targetID string) error
	UseItem(uid, instanceID string) error
	Equip(uid, instanceID string) error
	Drop(uid, instanceID string) error
	Interact(uid, cardID string) error
	Respond(uid string) error
	TakeGround(uid, instanceID string) error
	LootPlayer(uid, victimID, instanceID string) error
	LootVote(uid, choice string) error
	React(uid, choice string) error
	EndTurn(uid string) error
	Flee(uid string) error
	Descend(uid string) error
	Snapshot(uid string) error
	Leave(uid string)
}

// ChatSpeaker is the chat surface the game loop dispatches to.
type ChatSpeaker interface {
	Say(uid, message string) error
}

// ZoneInfo is one entry in the zone listing.
type ZoneInfo struct {
	ID          string
	Name        string
	Description string
}

// GameHandler runs the in-game command loop for a logged-in character:
// it registers the player on the shared bridge, pumps server frames to
// the Telnet connection, and dispatches parsed commands to the
// encounter and chat handlers.
type GameHandler struct {
	sessions *session.Manager
	enc      EncounterDriver
	chat     ChatSpeaker
	zones    []ZoneInfo
	logger   *zap.Logger
}

// NewGameHandler creates a GameHandler.
//
// Precondition: sessions, enc, chat, and logger must be non-nil.
func NewGameHandler(sessions *session.Manager, enc EncounterDriver, chat ChatSpeaker, zones []ZoneInfo, logger *zap.Logger) *GameHandler {
	return &GameHandler{sessions: sessions, enc: enc, chat: chat, zones: zones, logger: logger}
}

// viewState caches the last snapshot so players can address cards,
// members, and items by name instead of instance id.
type viewState struct {
	mu   sync.Mutex
	snap *gameserver.Snapshot
}

func (v *viewState) update(snap gameserver.Snapshot) {
	v.mu.Lock()
	v.snap = &snap
	v.mu.Unlock()
}

func (v *viewState) clear() {
	v.mu.Lock()
	v.snap = nil
	v.mu.Unlock()
}

// resolveTarget matches a typed name against cards first, then members,
// by case-insensitive prefix. Falls back to the raw input so ids typed
// verbatim still work.
func (v *viewState) resolveTarget(name string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.snap == nil {
		return name
	}
	lower := strings.ToLower(name)
	for _, c := range v.snap.Cards {
		if strings.HasPrefix(strings.ToLower(c.Name), lower) {
			return c.ID
		}
	}
	for _, m := range v.snap.Members {
		if strings.HasPrefix(strings.ToLower(m.Name), lower) {
			return m.ID
		}
	}
	return name
}

// resolveMember matches a typed name against members only.
func (v *viewState) resolveMember(name string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.snap == nil {
		return name
	}
	lower := strings.ToLower(name)
	for _, m := range v.snap.Members {
		if strings.HasPrefix(strings.ToLower(m.Name), lower) {
			return m.ID
		}
	}
	return name
}

// resolveCarried matches a typed name against the player's own carried
// items by definition-id prefix and returns the instance id.
func (v *viewState) resolveCarried(selfID, name string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.snap == nil {
		return name
	}
	lower := strings.ToLower(name)
	for _, m := range v.snap.Members {
		if m.ID != selfID {
			continue
		}
		for _, it := range m.Items {
			if strings.HasPrefix(strings.ToLower(it.DefID), lower) {
				return it.InstanceID
			}
		}
	}
	return name
}

// resolveGround matches a typed name against ground items by
// definition-id prefix and returns the instance id.
func (v *viewState) resolveGround(name string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.snap == nil {
		return name
	}
	lower := strings.ToLower(name)
	for _, it := range v.snap.Ground {
		if strings.HasPrefix(strings.ToLower(it.DefID), lower) {
			return it.InstanceID
		}
	}
	return name
}

// Play registers the character on the bridge and runs the command loop
// until the player quits or the connection drops.
//
// Precondition: char must be persisted (ID > 0); conn must be open.
// Postcondition: The player is removed from the bridge and any live
// encounter before returning.
func (g *GameHandler) Play(ctx context.Context, conn *telnet.Conn, acct postgres.Account, char *character.Character) error {
	uid := fmt.Sprintf("char-%d", char.ID)

	_ = conn.WritePrompt(telnet.Colorize(telnet.BrightWhite,
		"Party name (blank to adventure alone): "))
	partyLine, err := conn.ReadLine()
	if err != nil {
		return fmt.Errorf("reading party name: %w", err)
	}
	partyID := strings.ToLower(strings.TrimSpace(partyLine))
	if partyID == "" {
		partyID = uuid.New().String()
	}

	ps, err := g.sessions.AddPlayer(uid, acct.Username, char.Name, char.ID, partyID)
	if err != nil {
		_ = conn.WriteLine(telnet.Colorf(telnet.Red, "Cannot join: %v", err))
		return nil
	}
	defer func() {
		g.enc.Leave(uid)
		g.sessions.RemovePlayer(uid)
	}()

	if ps.Leader {
		_ = conn.WriteLine(telnet.Colorf(telnet.BrightGreen,
			"You lead the party. Type %szones%s to scout, %sstart <zone>%s to enter one.",
			telnet.Green, telnet.BrightGreen, telnet.Green, telnet.BrightGreen))
	} else {
		leader, _ := g.sessions.PartyLeader(partyID)
		name := "your leader"
		if leader != nil {
			name = leader.CharName
		}
		_ = conn.WriteLine(telnet.Colorf(telnet.BrightGreen,
			"You join the party. %s holds the lead.", name))
	}

	state := &viewState{}
	prompt := telnet.Colorf(telnet.BrightCyan, "[%s]> ", char.Name)

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		g.pumpFrames(loopCtx, conn, ps, state, uid, prompt)
	}()

	err = g.commandLoop(loopCtx, conn, state, uid, prompt)
	cancel()
	wg.Wait()
	return err
}

// pumpFrames forwards bridge frames to the Telnet connection, caching
// snapshots for name resolution along the way.
func (g *GameHandler) pumpFrames(ctx context.Context, conn *telnet.Conn, ps *session.PlayerSession, state *viewState, uid, prompt string) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-ps.Entity.Events():
			if !ok {
				return
			}
			var env gameserver.Envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				g.logger.Warn("undecodable bridge frame", zap.String("uid", uid), zap.Error(err))
				continue
			}
			if env.Type == "snapshot" {
				var snap gameserver.Snapshot
				if err := json.Unmarshal(env.Data, &snap); err == nil {
					state.update(snap)
				}
			}
			if env.Type == "encounter_ended" {
				state.clear()
			}
			text := RenderFrame(env, uid)
			if text != "" {
				_ = conn.WriteLine(text)
				_ = conn.WritePrompt(prompt)
			}
		}
	}
}

// commandLoop reads Telnet lines, parses commands, and dispatches them.
//
// Postcondition: Returns nil on clean quit, ctx.Err() on cancellation,
// or a wrapped error on connection failure.
func (g *GameHandler) commandLoop(ctx context.Context, conn *telnet.Conn, state *viewState, uid, prompt string) error {
	if err := conn.WritePrompt(prompt); err != nil {
		return fmt.Errorf("writing prompt: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := conn.ReadLine()
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			_ = conn.WritePrompt(prompt)
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]
		rawArgs := strings.TrimSpace(strings.TrimPrefix(line, parts[0]))

		if cmd == "quit" || cmd == "exit" {
			_ = conn.WriteLine(telnet.Colorize(telnet.Cyan, "The deck waits. Goodbye."))
			return nil
		}

		if err := g.dispatch(conn, state, uid, cmd, args, rawArgs); err != nil {
			_ = conn.WriteLine(telnet.Colorf(telnet.Red, "%v", err))
		}
		_ = conn.WritePrompt(prompt)
	}
}

// dispatch routes one parsed command. Returned errors are shown to the
// player, never fatal to the session.
func (g *GameHandler) dispatch(conn *telnet.Conn, state *viewState, uid, cmd string, args []string, rawArgs string) error {
	switch cmd {
	case "help":
		g.showGameHelp(conn)
		return nil

	case "zones":
		_ = conn.WriteLine(telnet.Colorize(telnet.BrightWhite, "Known zones:"))
		for _, z := range g.zones {
			_ = conn.WriteLine(telnet.Colorf(telnet.Green, "  %-12s", z.ID) + " — " + z.Name + ": " + z.Description)
		}
		return nil

	case "start":
		if len(args) < 1 {
			return fmt.Errorf("usage: start <zone>")
		}
		return g.enc.StartEncounter(uid, args[0])

	case "duel":
		if len(args) < 1 {
			return fmt.Errorf("usage: duel <zone>")
		}
		if err := g.enc.QueuePvP(uid, args[0]); err != nil {
			return err
		}
		_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "Your party waits for a challenger..."))
		return nil

	case "withdraw":
		if len(args) < 1 {
			return fmt.Errorf("usage: withdraw <zone>")
		}
		if err := g.enc.CancelQueue(uid, args[0]); err != nil {
			return err
		}
		_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "You withdraw from the queue."))
		return nil

	case "attack", "hit":
		if len(args) < 1 {
			return fmt.Errorf("attack what?")
		}
		return g.enc.Attack(uid, state.resolveTarget(rawArgs))

	case "cast":
		if len(args) < 1 {
			return fmt.Errorf("usage: cast <ability> [target]")
		}
		targetID := ""
		if len(args) > 1 {
			targetID = state.resolveTarget(strings.Join(args[1:], " "))
		}
		return g.enc.Cast(uid, args[0], targetID)

	case "use":
		if len(args) < 1 {
			return fmt.Errorf("use what?")
		}
		return g.enc.UseItem(uid, state.resolveCarried(uid, rawArgs))

	case "equip", "wield":
		if len(args) < 1 {
			return fmt.Errorf("equip what?")
		}
		return g.enc.Equip(uid, state.resolveCarried(uid, rawArgs))

	case "drop":
		if len(args) < 1 {
			return fmt.Errorf("drop what?")
		}
		return g.enc.Drop(uid, state.resolveCarried(uid, rawArgs))

	case "take", "get":
		if len(args) < 1 {
			return fmt.Errorf("take what?")
		}
		return g.enc.TakeGround(uid, state.resolveGround(rawArgs))

	case "talk":
		if len(args) < 1 {
			return fmt.Errorf("talk to whom?")
		}
		return g.enc.Interact(uid, state.resolveTarget(rawArgs))

	case "respond", "answer":
		return g.enc.Respond(uid)

	case "loot":
		if len(args) < 2 {
			return fmt.Errorf("usage: loot <player> <item>")
		}
		victimID := state.resolveMember(args[0])
		return g.enc.LootPlayer(uid, victimID, strings.Join(args[1:], " "))

	case "roll":
		if len(args) < 1 {
			return fmt.Errorf("usage: roll need|greed|pass")
		}
		return g.enc.LootVote(uid, strings.ToLower(args[0]))

	case "react":
		if len(args) < 1 {
			return fmt.Errorf("usage: react <choice> (or 'react take')")
		}
		return g.enc.React(uid, strings.ToLower(args[0]))

	case "end":
		return g.enc.EndTurn(uid)

	case "flee":
		return g.enc.Flee(uid)

	case "descend":
		return g.enc.Descend(uid)

	case "status", "look":
		return g.enc.Snapshot(uid)

	case "say":
		if rawArgs == "" {
			return fmt.Errorf("say what?")
		}
		return g.chat.Say(uid, rawArgs)

	case "who":
		ps, ok := g.sessions.GetPlayer(uid)
		if !ok {
			return fmt.Errorf("you are not connected")
		}
		_ = conn.WriteLine(telnet.Colorize(telnet.BrightWhite, "Your party:"))
		for _, member := range g.sessions.PartyMembers(ps.PartyID) {
			mp, ok := g.sessions.GetPlayer(member)
			if !ok {
				continue
			}
			tag := ""
			if mp.Leader {
				tag = telnet.Colorize(telnet.BrightYellow, " (leader)")
			}
			_ = conn.WriteLine("  " + mp.CharName + tag)
		}
		return nil

	default:
		return fmt.Errorf("you don't know how to '%s'", cmd)
	}
}

// showGameHelp displays in-game help organized by category.
func (g *GameHandler) showGameHelp(conn *telnet.Conn) {
	_ = conn.WriteLine(telnet.Colorize(telnet.BrightWhite, "Available commands:"))
	sections := []struct {
		label string
		lines []string
	}{
		{"Exploring", []string{
			"zones                — List known zones",
			"start <zone>         — Lead the party into a zone (leader)",
			"duel <zone>          — Queue the party for a duel (leader)",
			"withdraw <zone>      — Leave the duel queue",
			"descend              — Draw the next wave once the field clears (leader)",
		}},
		{"Fighting", []string{
			"attack <target>      — Swing your weapon",
			"cast <ability> [tgt] — Use an ability",
			"react <choice>       — Answer an incoming hit ('react take' to absorb it)",
			"end                  — End your turn for this phase",
			"flee                 — Attempt to escape the encounter",
		}},
		{"Carrying", []string{
			"use <item>           — Drink or apply a consumable",
			"equip <item>         — Wield or wear a carried item",
			"drop <item>          — Drop a carried item",
			"take <item>          — Pick an item off the ground",
			"loot <player> <item> — Loot a fallen opponent",
			"roll need|greed|pass — Vote on a contested drop",
		}},
		{"Company", []string{
			"say <message>        — Speak to your party",
			"talk <card>          — Address a card on the field",
			"respond              — Answer an open dialogue (leader only)",
			"who                  — List your party",
			"status               — Redraw the encounter",
			"quit                 — Disconnect",
		}},
	}
	for _, sec := range sections {
		_ = conn.WriteLine(telnet.Colorf(telnet.BrightYellow, "  %s:", sec.label))
		for _, l := range sec.lines {
			_ = conn.WriteLine(telnet.Colorize(telnet.Green, "    "+l))
		}
	}
}
