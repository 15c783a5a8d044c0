package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mverrilli/deckbound/internal/game/character"
)

// ErrCharacterNotFound is returned when a character lookup yields no results.
var ErrCharacterNotFound = errors.New("character not found")

// ErrCharacterNameTaken is returned when creating a character with a name already used by the account.
var ErrCharacterNameTaken = errors.New("character name already taken")

// CharacterRepository provides character persistence operations.
type CharacterRepository struct {
	db *pgxpool.Pool
}

// NewCharacterRepository creates a CharacterRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewCharacterRepository(db *pgxpool.Pool) *CharacterRepository {
	return &CharacterRepository{db: db}
}

const characterColumns = `id, account_id, name, calling, max_health, health,
	       might, agility, resistance, gold, unlocks, inventory, created_at, updated_at`

func scanCharacter(row pgx.Row) (*character.Character, error) {
	var out character.Character
	err := row.Scan(
		&out.ID, &out.AccountID, &out.Name, &out.Calling, &out.MaxHealth, &out.Health,
		&out.Might, &out.Agility, &out.Resistance, &out.Gold,
		&out.Unlocks, &out.Inventory, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Create inserts a new character and returns it with ID and timestamps set.
//
// Precondition: c.AccountID must reference an existing account; c.Name must be non-empty.
// Postcondition: Returns the created character with ID set, or ErrCharacterNameTaken on duplicate.
func (r *CharacterRepository) Create(ctx context.Context, c *character.Character) (*character.Character, error) {
	unlocks := c.Unlocks
	if unlocks == nil {
		unlocks = []string{}
	}
	inventory := c.Inventory
	if inventory == nil {
		inventory = []character.ItemSnapshot{}
	}

	out, err := scanCharacter(r.db.QueryRow(ctx, `
		INSERT INTO characters
			(account_id, name, calling, max_health, health,
			 might, agility, resistance, gold, unlocks, inventory)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING `+characterColumns,
		c.AccountID, c.Name, c.Calling, c.MaxHealth, c.Health,
		c.Might, c.Agility, c.Resistance, c.Gold, unlocks, inventory,
	))
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrCharacterNameTaken
		}
		return nil, fmt.Errorf("inserting character: %w", err)
	}
	return out, nil
}

// GetByID retrieves a character by its primary key.
//
// Precondition: id must be > 0.
// Postcondition: Returns the character or ErrCharacterNotFound.
func (r *CharacterRepository) GetByID(ctx context.Context, id int64) (*character.Character, error) {
	out, err := scanCharacter(r.db.QueryRow(ctx, `
		SELECT `+characterColumns+`
		FROM characters WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCharacterNotFound
		}
		return nil, fmt.Errorf("querying character: %w", err)
	}
	return out, nil
}

// ListByAccount returns all characters for the given account ID, ordered by created_at.
//
// Precondition: accountID must be > 0.
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *CharacterRepository) ListByAccount(ctx context.Context, accountID int64) ([]*character.Character, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+characterColumns+`
		FROM characters WHERE account_id = $1 ORDER BY created_at ASC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing characters: %w", err)
	}
	defer rows.Close()

	var out []*character.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning character: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating characters: %w", err)
	}
	return out, nil
}

// SaveCombatState persists the mutable state of a character after an encounter:
// remaining health, gold, and the current inventory.
//
// Precondition: id must reference an existing character.
// Postcondition: The row is updated with a fresh updated_at, or
// ErrCharacterNotFound is returned.
func (r *CharacterRepository) SaveCombatState(ctx context.Context, id int64, health, gold int, inventory []character.ItemSnapshot) error {
	if inventory == nil {
		inventory = []character.ItemSnapshot{}
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE characters
		SET health = $1, gold = $2, inventory = $3, updated_at = NOW()
		WHERE id = $4`,
		health, gold, inventory, id,
	)
	if err != nil {
		return fmt.Errorf("saving combat state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCharacterNotFound
	}
	return nil
}

// SetUnlocks replaces the full unlock flag set for a character.
//
// Precondition: id must reference an existing character.
// Postcondition: The unlocks column holds exactly the given flags.
func (r *CharacterRepository) SetUnlocks(ctx context.Context, id int64, unlocks []string) error {
	if unlocks == nil {
		unlocks = []string{}
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE characters SET unlocks = $1, updated_at = NOW() WHERE id = $2`,
		unlocks, id,
	)
	if err != nil {
		return fmt.Errorf("setting unlocks: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCharacterNotFound
	}
	return nil
}
