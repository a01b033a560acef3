package back

import (
	"database/sql"
	"errors"
	"time"

	"hailstone/internal/util"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"gopkg.in/guregu/null.v4"
)

// A Player maps an external auth identity to a local id and display name.
// Rows are never deleted.
type Player struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Name      string
	AuthUID   null.String
}

func NewPlayer(name string) Player {
	return Player{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Name:      name,
	}
}

func (p *Player) insert(tx *sqlx.Tx) error {
	query, args, err := squirrel.Insert("Player").SetMap(squirrel.Eq{
		"ID":        p.ID,
		"CreatedAt": p.CreatedAt,
		"Name":      p.Name,
		"AuthUID":   p.AuthUID,
	}).ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(query, args...); err != nil {
		return err
	}

	return nil
}

func (p *Player) update(tx *sqlx.Tx) error {
	query, args, err := squirrel.Update("Player").SetMap(squirrel.Eq{
		"Name":    p.Name,
		"AuthUID": p.AuthUID,
	}).Where("Player.ID = ?", p.ID).ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(query, args...); err != nil {
		return err
	}

	return nil
}

func getPlayerByAuthUID(tx *sqlx.Tx, authUID string) (Player, error) {
	var ret Player
	query := `SELECT * FROM Player WHERE Player.AuthUID = ? LIMIT 1`
	if err := tx.Get(&ret, query, authUID); err != nil {
		return Player{}, err
	}

	return ret, nil
}

func getPlayerByName(tx *sqlx.Tx, name string) (Player, error) {
	var ret Player
	query := `SELECT * FROM Player WHERE Player.Name = ? LIMIT 1`
	if err := tx.Get(&ret, query, name); err != nil {
		return Player{}, err
	}

	return ret, nil
}

// getOrCreatePlayerByAuthUID resolves an auth identity to a Player, creating
// the row on first sight with the given fallback name.
func getOrCreatePlayerByAuthUID(tx *sqlx.Tx, authUID, fallbackName string) (Player, error) {
	player, err := getPlayerByAuthUID(tx, authUID)
	if err == nil {
		return player, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Player{}, err
	}

	player = NewPlayer(fallbackName)
	player.AuthUID = null.StringFrom(authUID)
	if err := player.insert(tx); err != nil {
		return Player{}, err
	}

	return player, nil
}

// EnsurePlayer registers or renames the player behind an auth identity, it
// is called every time the auth collaborator reports a sign-in.
func (b *Back) EnsurePlayer(authUID, name string) (player Player, _ error) {
	if len(name) < 1 || len(name) > 32 {
		return Player{}, util.ErrPublic("your name must be between 1 and 32 characters")
	}

	if err := b.transaction(func(tx *sqlx.Tx) (err error) {
		player, err = getOrCreatePlayerByAuthUID(tx, authUID, name)
		if err != nil {
			return err
		}

		if player.Name == name {
			return nil
		}

		player.Name = name
		return player.update(tx)
	}); err != nil {
		return Player{}, err
	}

	return player, nil
}
