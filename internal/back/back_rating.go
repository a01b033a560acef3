package back

import (
	"fmt"
	"time"

	"hailstone/internal/rating"

	"github.com/jmoiron/sqlx"
)

// RecordDuelOutcome applies one finished duel to this participant's rating
// and returns the updated value. It implements duel.RatingRecorder: only the
// selfUID side is written, the opponent's coordinator owns the other half,
// which is what keeps the two finalization paths free of mutual exclusion.
func (b *Back) RecordDuelOutcome(selfUID, opponentUID string, score float64) (rating.Rating, error) {
	var (
		self    Player
		updated rating.Rating
	)

	if err := b.transaction(func(tx *sqlx.Tx) (err error) {
		self, err = getOrCreatePlayerByAuthUID(tx, selfUID, selfUID)
		if err != nil {
			return fmt.Errorf("unable to resolve player: %w", err)
		}

		opponent, err := getOrCreatePlayerByAuthUID(tx, opponentUID, opponentUID)
		if err != nil {
			return fmt.Errorf("unable to resolve opponent: %w", err)
		}

		selfRating, err := getPlayerRating(tx, self.ID)
		if err != nil {
			return fmt.Errorf("unable to fetch rating: %w", err)
		}
		opponentRating, err := getPlayerRating(tx, opponent.ID)
		if err != nil {
			return fmt.Errorf("unable to fetch opponent rating: %w", err)
		}

		selfRating.SetGlicko(selfRating.Glicko().Update(opponentRating.Glicko(), score))
		selfRating.GamesPlayed++
		selfRating.UpdatedAt = time.Now().UTC()

		if err := selfRating.upsert(tx); err != nil {
			return fmt.Errorf("unable to update rating: %w", err)
		}
		if err := selfRating.insertHistory(tx); err != nil {
			return fmt.Errorf("unable to insert rating history: %w", err)
		}

		updated = selfRating.Glicko()
		return nil
	}); err != nil {
		return rating.Rating{}, err
	}

	b.sendDuelResultNotification(self.Name, score, updated)

	return updated, nil
}

// GetPlayerRating returns the current rating behind an auth identity, or the
// defaults if the player never finished a rated duel.
func (b *Back) GetPlayerRating(name string) (ret rating.Rating, games uint, _ error) {
	if err := b.transaction(func(tx *sqlx.Tx) error {
		player, err := getPlayerByName(tx, name)
		if err != nil {
			return err
		}

		playerRating, err := getPlayerRating(tx, player.ID)
		if err != nil {
			return err
		}

		ret = playerRating.Glicko()
		games = playerRating.GamesPlayed
		return nil
	}); err != nil {
		return rating.Rating{}, 0, err
	}

	return ret, games, nil
}

type LeaderboardEntry struct {
	Name        string
	Rating      float64
	Deviation   float64
	GamesPlayed uint
}

// IsProvisional hides fresh players from the public ranking without
// dropping them from the row set.
func (e LeaderboardEntry) IsProvisional() bool {
	r := rating.Rating{Rating: e.Rating, Deviation: e.Deviation}
	return r.Class() == rating.ClassProvisional
}

func (b *Back) GetLeaderboard(limit int) (ret []LeaderboardEntry, _ error) {
	if err := b.transaction(func(tx *sqlx.Tx) error {
		query := `
        SELECT Player.Name AS Name,
            PlayerRating.Rating AS Rating,
            PlayerRating.Deviation AS Deviation,
            PlayerRating.GamesPlayed AS GamesPlayed
        FROM PlayerRating
        INNER JOIN Player ON(Player.ID = PlayerRating.PlayerID)
        ORDER BY PlayerRating.Rating DESC
        LIMIT ?`

		return tx.Select(&ret, query, limit)
	}); err != nil {
		return nil, err
	}

	return ret, nil
}

type RatingHistoryEntry struct {
	CreatedAt time.Time
	Rating    float64
	Deviation float64
}

func (b *Back) GetRatingHistory(name string) (ret []RatingHistoryEntry, _ error) {
	if err := b.transaction(func(tx *sqlx.Tx) error {
		player, err := getPlayerByName(tx, name)
		if err != nil {
			return err
		}

		query := `
        SELECT CreatedAt, Rating, Deviation FROM PlayerRatingHistory
        WHERE PlayerID = ?
        ORDER BY CreatedAt ASC`

		return tx.Select(&ret, query, player.ID)
	}); err != nil {
		return nil, err
	}

	return ret, nil
}
