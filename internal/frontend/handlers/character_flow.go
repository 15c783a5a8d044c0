package handlers

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mverrilli/deckbound/internal/frontend/telnet"
	"github.com/mverrilli/deckbound/internal/game/character"
	"github.com/mverrilli/deckbound/internal/game/ruleset"
	"github.com/mverrilli/deckbound/internal/storage/postgres"
)

// RandomNames is a list of character names suitable for random selection
// during character creation. All names are 2-32 characters and are not
// equal to "cancel" or "random" (case-insensitive).
var RandomNames = []string{
	"Raze", "Vex", "Cinder", "Sable", "Grit",
	"Ash", "Flint", "Thorn", "Kael", "Dusk",
	"Riven", "Scar", "Nox", "Wren", "Jace",
	"Brix", "Colt", "Ember", "Slate", "Pike",
}

// IsRandomInput reports whether the player's input at a list step requests
// random selection. Blank input, "r", and "random" (all case-insensitive)
// are treated as random. Exported for testing.
func IsRandomInput(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	return lower == "" || lower == "r" || lower == "random"
}

// characterFlow runs the character selection/creation UI after login.
// It exits by handing the selected character to the game loop.
//
// Precondition: acct.ID must be > 0; conn must be open.
// Postcondition: Enters the game loop on success; returns non-nil error on fatal failure.
func (h *AuthHandler) characterFlow(ctx context.Context, conn *telnet.Conn, acct postgres.Account) error {
	for {
		chars, err := h.characters.ListByAccount(ctx, acct.ID)
		if err != nil {
			return fmt.Errorf("listing characters: %w", err)
		}

		if len(chars) == 0 {
			_ = conn.WriteLine(telnet.Colorize(telnet.BrightYellow,
				"\r\nYou have no characters. Let's create one."))
			c, err := h.characterCreationFlow(ctx, conn, acct.ID)
			if err != nil {
				return err
			}
			if c == nil {
				continue // user cancelled — loop again
			}
			return h.game.Play(ctx, conn, acct, c)
		}

		// Show character list
		_ = conn.WriteLine(telnet.Colorize(telnet.BrightWhite, "\r\nYour characters:"))
		for i, c := range chars {
			_ = conn.WriteLine(fmt.Sprintf("  %s%d%s. %s",
				telnet.Green, i+1, telnet.Reset,
				FormatCharacterSummary(c, h.callingName(c.Calling))))
		}
		_ = conn.WriteLine(fmt.Sprintf("  %s%d%s. Create a new character",
			telnet.Green, len(chars)+1, telnet.Reset))
		_ = conn.WriteLine(fmt.Sprintf("  %squit%s. Disconnect",
			telnet.Green, telnet.Reset))

		_ = conn.WritePrompt(telnet.Colorf(telnet.BrightWhite, "Select [1-%d]: ", len(chars)+1))
		line, err := conn.ReadLine()
		if err != nil {
			return fmt.Errorf("reading character selection: %w", err)
		}
		line = strings.TrimSpace(line)

		if strings.ToLower(line) == "quit" || strings.ToLower(line) == "exit" {
			_ = conn.WriteLine(telnet.Colorize(telnet.Cyan, "Goodbye."))
			return nil
		}

		choice := 0
		if _, err := fmt.Sscanf(line, "%d", &choice); err != nil || choice < 1 || choice > len(chars)+1 {
			_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Invalid selection."))
			continue
		}

		if choice == len(chars)+1 {
			c, err := h.characterCreationFlow(ctx, conn, acct.ID)
			if err != nil {
				return err
			}
			if c != nil {
				return h.game.Play(ctx, conn, acct, c)
			}
			continue
		}

		selected := chars[choice-1]
		return h.game.Play(ctx, conn, acct, selected)
	}
}

// characterCreationFlow guides the player through the interactive character builder.
// Returns (nil, nil) if the player cancels at any step.
//
// Precondition: accountID must be > 0; h.callings must be non-empty.
// Postcondition: Returns a persisted *character.Character or (nil, nil) on cancel.
func (h *AuthHandler) characterCreationFlow(ctx context.Context, conn *telnet.Conn, accountID int64) (*character.Character, error) {
	_ = conn.WriteLine(telnet.Colorize(telnet.BrightCyan, "\r\n=== Character Creation ==="))
	_ = conn.WriteLine("Type 'cancel' at any prompt to return to the character screen.\r\n")

	// Step 1: Character name
	_ = conn.WritePrompt(telnet.Colorize(telnet.BrightWhite,
		"Enter your character's name (or 'random'): "))
	nameLine, err := conn.ReadLine()
	if err != nil {
		return nil, fmt.Errorf("reading character name: %w", err)
	}
	nameLine = strings.TrimSpace(nameLine)
	if strings.ToLower(nameLine) == "cancel" {
		return nil, nil
	}
	if strings.ToLower(nameLine) == "random" {
		nameLine = RandomNames[rand.Intn(len(RandomNames))]
		_ = conn.WriteLine(telnet.Colorf(telnet.Cyan, "Random name selected: %s", nameLine))
	}
	if len(nameLine) < 2 || len(nameLine) > 32 {
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Name must be 2-32 characters."))
		return nil, nil
	}
	charName := nameLine

	// Step 2: Calling
	callings := h.callings.All()
	if len(callings) == 0 {
		return nil, fmt.Errorf("no callings loaded")
	}
	_ = conn.WriteLine(telnet.Colorize(telnet.BrightYellow, "\r\nChoose your calling:"))
	for i, c := range callings {
		_ = conn.WriteLine(fmt.Sprintf("  %s%d%s. %s%s%s (HP: %d  MGT:%d AGI:%d RES:%d  Gold: %d)\r\n     %s",
			telnet.Green, i+1, telnet.Reset,
			telnet.BrightWhite, c.Name, telnet.Reset,
			c.MaxHealth, c.Might, c.Agility, c.Resistance, c.StartingGold,
			c.Description))
	}
	_ = conn.WriteLine(fmt.Sprintf("  %sR%s. Random (default)", telnet.Green, telnet.Reset))
	_ = conn.WritePrompt(telnet.Colorf(telnet.BrightWhite,
		"Select calling [1-%d/R, default=R]: ", len(callings)))
	callingLine, err := conn.ReadLine()
	if err != nil {
		return nil, fmt.Errorf("reading calling selection: %w", err)
	}
	callingLine = strings.TrimSpace(callingLine)
	if strings.ToLower(callingLine) == "cancel" {
		return nil, nil
	}

	var selected *ruleset.Calling
	if IsRandomInput(callingLine) {
		selected = callings[rand.Intn(len(callings))]
		_ = conn.WriteLine(telnet.Colorf(telnet.Cyan, "Random calling selected: %s", selected.Name))
	} else {
		choice := 0
		if _, err := fmt.Sscanf(callingLine, "%d", &choice); err != nil || choice < 1 || choice > len(callings) {
			_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Invalid selection."))
			return nil, nil
		}
		selected = callings[choice-1]
	}

	return h.buildAndConfirm(ctx, conn, accountID, charName, selected)
}

// buildAndConfirm builds a character from the given selections, shows the preview,
// prompts for confirmation, and persists on yes.
// Returns (nil, nil) if the player declines or cancels.
//
// Precondition: calling must be non-nil; accountID must be > 0.
// Postcondition: returns persisted *character.Character or (nil, nil) on cancel, decline, build failure, or storage failure.
func (h *AuthHandler) buildAndConfirm(
	ctx context.Context,
	conn *telnet.Conn,
	accountID int64,
	charName string,
	calling *ruleset.Calling,
) (*character.Character, error) {
	newChar, err := character.Build(charName, calling)
	if err != nil {
		h.logger.Error("building character", zap.String("name", charName), zap.Error(err))
		_ = conn.WriteLine(telnet.Colorf(telnet.Red, "Error building character: %v", err))
		return nil, nil
	}

	_ = conn.WriteLine(telnet.Colorize(telnet.BrightCyan, "\r\n--- Character Preview ---"))
	_ = conn.WriteLine(FormatCharacterStats(newChar, calling.Name))
	_ = conn.WritePrompt(telnet.Colorize(telnet.BrightWhite, "Create this character? [y/N]: "))

	confirm, err := conn.ReadLine()
	if err != nil {
		return nil, fmt.Errorf("reading confirmation: %w", err)
	}
	if strings.ToLower(strings.TrimSpace(confirm)) != "y" {
		_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "Character creation cancelled."))
		return nil, nil
	}

	newChar.AccountID = accountID
	start := time.Now()
	created, err := h.characters.Create(ctx, newChar)
	if err != nil {
		h.logger.Error("creating character", zap.String("name", newChar.Name), zap.Error(err))
		_ = conn.WriteLine(telnet.Colorf(telnet.Red, "Failed to create character: %v", err))
		return nil, nil
	}
	elapsed := time.Since(start)
	h.logger.Info("character created",
		zap.String("name", created.Name),
		zap.Int64("account_id", accountID),
		zap.Duration("duration", elapsed))
	_ = conn.WriteLine(telnet.Colorf(telnet.BrightGreen,
		"Character %s created! [%s]", created.Name, elapsed))
	return created, nil
}

// callingName returns the display name for the calling with the given id,
// or id itself if not found.
func (h *AuthHandler) callingName(id string) string {
	if c, ok := h.callings.Get(id); ok {
		return c.Name
	}
	return id
}

// FormatCharacterSummary returns a one-line summary of a character for the selection list.
// Exported for testing.
//
// Precondition: c must be non-nil; callingDisplay must be non-empty.
// Postcondition: Returns a non-empty human-readable string.
func FormatCharacterSummary(c *character.Character, callingDisplay string) string {
	return fmt.Sprintf("%s%s%s — %s (%d/%d HP, %d gold)",
		telnet.BrightWhite, c.Name, telnet.Reset,
		callingDisplay, c.Health, c.MaxHealth, c.Gold)
}

// FormatCharacterStats returns a multi-line stats block for the character preview.
// Exported for testing.
//
// Precondition: c must be non-nil; callingDisplay must be non-empty.
// Postcondition: Returns a formatted multi-line string with health and the stat line.
func FormatCharacterStats(c *character.Character, callingDisplay string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("  Name:    %s%s%s\r\n", telnet.BrightWhite, c.Name, telnet.Reset))
	sb.WriteString(fmt.Sprintf("  Calling: %s\r\n", callingDisplay))
	sb.WriteString(fmt.Sprintf("  Health:  %d/%d   Gold: %d\r\n", c.Health, c.MaxHealth, c.Gold))
	sb.WriteString(fmt.Sprintf("  MGT:%2d  AGI:%2d  RES:%2d\r\n", c.Might, c.Agility, c.Resistance))
	if len(c.Inventory) > 0 {
		var names []string
		for _, line := range c.Inventory {
			names = append(names, line.DefID)
		}
		sb.WriteString(fmt.Sprintf("  Pack:    %s\r\n", strings.Join(names, ", ")))
	}
	return sb.String()
}
