package handlers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mverrilli/deckbound/internal/frontend/telnet"
	"github.com/mverrilli/deckbound/internal/gameserver"
)

// RenderFrame converts one bridge frame into Telnet text. Returns ""
// for frames that carry nothing worth showing.
//
// Precondition: env must be a decoded bridge envelope; selfID is the
// viewing player's uid.
func RenderFrame(env gameserver.Envelope, selfID string) string {
	switch env.Type {
	case "snapshot":
		var snap gameserver.Snapshot
		if err := json.Unmarshal(env.Data, &snap); err != nil {
			return ""
		}
		return RenderSnapshot(snap, selfID)

	case "chat":
		var chat gameserver.ChatPayload
		if err := json.Unmarshal(env.Data, &chat); err != nil {
			return ""
		}
		return telnet.Colorf(telnet.BrightMagenta, "[%s] ", chat.From) + chat.Message

	case "reaction_offer":
		payload, ok := decodeEventPayload(env)
		if !ok {
			return ""
		}
		var sb strings.Builder
		sb.WriteString(telnet.Colorf(telnet.BrightRed, "%s (%d incoming damage)", payload.Narrative, payload.Amount))
		if len(payload.Options) > 0 {
			sb.WriteString("\r\n")
			sb.WriteString(telnet.Colorf(telnet.Yellow, "  React: %s — or 'react take' to absorb it.",
				strings.Join(payload.Options, ", ")))
		}
		return sb.String()

	case "loot_roll_opened":
		payload, ok := decodeEventPayload(env)
		if !ok {
			return ""
		}
		return telnet.Colorize(telnet.BrightYellow, payload.Narrative) + "\r\n" +
			telnet.Colorize(telnet.Yellow, "  Vote with 'roll need', 'roll greed', or 'roll pass'.")

	case "loot_roll_ended":
		payload, ok := decodeEventPayload(env)
		if !ok {
			return ""
		}
		return telnet.Colorize(telnet.BrightYellow, payload.Narrative)

	case "phase":
		payload, ok := decodeEventPayload(env)
		if !ok {
			return ""
		}
		return telnet.Colorize(telnet.BrightCyan, payload.Narrative)

	case "encounter_ended":
		payload, ok := decodeEventPayload(env)
		if !ok {
			return ""
		}
		return telnet.Colorize(telnet.BrightYellow, "=== "+payload.Narrative+" ===")

	case "dialogue":
		payload, ok := decodeEventPayload(env)
		if !ok {
			return ""
		}
		return telnet.Colorize(telnet.BrightMagenta, payload.Narrative)

	default:
		payload, ok := decodeEventPayload(env)
		if !ok || payload.Narrative == "" {
			return ""
		}
		return payload.Narrative
	}
}

func decodeEventPayload(env gameserver.Envelope) (gameserver.EventPayload, bool) {
	var payload gameserver.EventPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return gameserver.EventPayload{}, false
	}
	return payload, true
}

// RenderSnapshot draws the full encounter view: the field, the roster,
// and anything claimable on the ground.
func RenderSnapshot(snap gameserver.Snapshot, selfID string) string {
	var sb strings.Builder

	phase := "enemy phase"
	if snap.PlayerTurn {
		phase = "player phase"
	}
	if snap.Mode == "pvp" {
		phase = "team " + snap.ActiveTeam + " acts"
	}
	sb.WriteString(telnet.Colorf(telnet.BrightCyan, "=== %s — turn %d, %s ===", snap.ZoneID, snap.Turn, phase))
	sb.WriteString("\r\n")

	if len(snap.Cards) == 0 {
		sb.WriteString(telnet.Colorize(telnet.Dim, "  The field is clear.") + "\r\n")
	}
	for _, c := range snap.Cards {
		sb.WriteString(fmt.Sprintf("  %s[%d]%s %s%s%s  %s\r\n",
			telnet.Green, c.Slot+1, telnet.Reset,
			telnet.BrightWhite, c.Name, telnet.Reset,
			healthBar(c.Health, c.MaxHealth)))
	}

	sb.WriteString(telnet.Colorize(telnet.BrightWhite, "  ---") + "\r\n")
	for _, m := range snap.Members {
		marker := "  "
		if m.ID == selfID {
			marker = telnet.Colorize(telnet.BrightGreen, "* ")
		}
		line := fmt.Sprintf("%s%-12s %s  AP:%d  Threat:%d  Gold:%d",
			marker, m.Name, healthBar(m.Health, m.MaxHealth), m.ActionPoints, m.Threat, m.Gold)
		if m.Team != "" && snap.Mode == "pvp" {
			line += "  [" + m.Team + "]"
		}
		if m.Dead {
			line += telnet.Colorize(telnet.Red, "  DEAD")
		} else if m.EndedTurn {
			line += telnet.Colorize(telnet.Dim, "  done")
		}
		if len(m.Effects) > 0 {
			line += telnet.Colorf(telnet.Yellow, "  (%s)", strings.Join(m.Effects, ", "))
		}
		sb.WriteString(line + "\r\n")
		if m.ID == selfID {
			sb.WriteString(renderPack(m))
		}
	}

	if len(snap.Ground) > 0 {
		sb.WriteString(telnet.Colorize(telnet.BrightWhite, "  On the ground:") + "\r\n")
		for _, it := range snap.Ground {
			sb.WriteString(fmt.Sprintf("    %s x%d\r\n", it.DefID, it.Quantity))
		}
	}
	if snap.LootOpen != "" {
		sb.WriteString(telnet.Colorf(telnet.BrightYellow, "  A loot roll is open for %s.", snap.LootOpen) + "\r\n")
	}

	return strings.TrimSuffix(sb.String(), "\r\n")
}

// renderPack shows the viewer's own carried and equipped items.
func renderPack(m gameserver.MemberView) string {
	var sb strings.Builder
	if len(m.Equipped) > 0 {
		var worn []string
		for _, e := range m.Equipped {
			worn = append(worn, e.Slot+": "+e.DefID)
		}
		sb.WriteString(telnet.Colorf(telnet.Dim, "    equipped: %s", strings.Join(worn, ", ")) + "\r\n")
	}
	if len(m.Items) > 0 {
		var carried []string
		for _, it := range m.Items {
			if it.Quantity > 1 {
				carried = append(carried, fmt.Sprintf("%s x%d", it.DefID, it.Quantity))
				continue
			}
			carried = append(carried, it.DefID)
		}
		sb.WriteString(telnet.Colorf(telnet.Dim, "    pack: %s", strings.Join(carried, ", ")) + "\r\n")
	}
	return sb.String()
}

// healthBar renders "hp/max" colored by the remaining fraction.
func healthBar(health, maxHealth int) string {
	color := telnet.BrightGreen
	switch {
	case health <= 0:
		color = telnet.Red
	case maxHealth > 0 && health*4 <= maxHealth:
		color = telnet.BrightRed
	case maxHealth > 0 && health*2 <= maxHealth:
		color = telnet.BrightYellow
	}
	return telnet.Colorf(color, "%d/%d", health, maxHealth)
}
