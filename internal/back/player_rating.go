package back

import (
	"database/sql"
	"errors"
	"time"

	"hailstone/internal/rating"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type PlayerRating struct {
	PlayerID  uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time

	// Glicko-2
	Rating     float64
	Deviation  float64
	Volatility float64

	GamesPlayed uint
}

func NewPlayerRating(playerID uuid.UUID) PlayerRating {
	now := time.Now().UTC()

	return PlayerRating{
		PlayerID:  playerID,
		CreatedAt: now,
		UpdatedAt: now,

		Rating:     rating.DefaultRating,
		Deviation:  rating.DefaultDeviation,
		Volatility: rating.DefaultVolatility,
	}
}

func (r PlayerRating) Glicko() rating.Rating {
	return rating.Rating{
		Rating:     r.Rating,
		Deviation:  r.Deviation,
		Volatility: r.Volatility,
	}
}

func (r *PlayerRating) SetGlicko(g rating.Rating) {
	r.Rating = g.Rating
	r.Deviation = g.Deviation
	r.Volatility = g.Volatility
}

// getPlayerRating gets the current rating for a player or creates and
// returns a default rating on the fly.
func getPlayerRating(tx *sqlx.Tx, playerID uuid.UUID) (PlayerRating, error) {
	var ret PlayerRating
	query := `SELECT * FROM PlayerRating WHERE PlayerID = ? LIMIT 1`
	err := tx.Get(&ret, query, playerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewPlayerRating(playerID), nil
		}
		return PlayerRating{}, err
	}

	return ret, nil
}

func (r *PlayerRating) upsert(tx *sqlx.Tx) error {
	query, args, err := squirrel.Update("PlayerRating").SetMap(squirrel.Eq{
		"UpdatedAt":   r.UpdatedAt,
		"Rating":      r.Rating,
		"Deviation":   r.Deviation,
		"Volatility":  r.Volatility,
		"GamesPlayed": r.GamesPlayed,
	}).Where("PlayerRating.PlayerID = ?", r.PlayerID).ToSql()
	if err != nil {
		return err
	}

	res, err := tx.Exec(query, args...)
	if err != nil {
		return err
	}

	if affected, err := res.RowsAffected(); err != nil || affected > 0 {
		return err
	}

	query, args, err = squirrel.Insert("PlayerRating").SetMap(squirrel.Eq{
		"PlayerID":    r.PlayerID,
		"CreatedAt":   r.CreatedAt,
		"UpdatedAt":   r.UpdatedAt,
		"Rating":      r.Rating,
		"Deviation":   r.Deviation,
		"Volatility":  r.Volatility,
		"GamesPlayed": r.GamesPlayed,
	}).ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(query, args...); err != nil {
		return err
	}

	return nil
}

// insertHistory appends the post-duel rating so progress can be charted.
func (r *PlayerRating) insertHistory(tx *sqlx.Tx) error {
	query, args, err := squirrel.Insert("PlayerRatingHistory").SetMap(squirrel.Eq{
		"PlayerID":   r.PlayerID,
		"CreatedAt":  r.UpdatedAt,
		"Rating":     r.Rating,
		"Deviation":  r.Deviation,
		"Volatility": r.Volatility,
	}).ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(query, args...); err != nil {
		return err
	}

	return nil
}
