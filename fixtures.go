package main

import (
	"hailstone/internal/back"
	"hailstone/internal/config"
	"hailstone/internal/rating"
)

// loadFixtures seeds a handful of players with a rating spread so the
// leaderboard and the bot have something to show during development.
func loadFixtures(conf *config.Config) error {
	b, err := back.New("sqlite3", conf.DatabasePath)
	if err != nil {
		return err
	}

	players := []struct{ uid, name string }{
		{"fixture:darunia", "Darunia"},
		{"fixture:nabooru", "Nabooru"},
		{"fixture:rauru", "Rauru"},
		{"fixture:impa", "Impa"},
	}
	for _, p := range players {
		if _, err := b.EnsurePlayer(p.uid, p.name); err != nil {
			return err
		}
	}

	duels := []struct {
		winner, loser string
	}{
		{"fixture:darunia", "fixture:nabooru"},
		{"fixture:darunia", "fixture:rauru"},
		{"fixture:nabooru", "fixture:rauru"},
		{"fixture:darunia", "fixture:impa"},
	}
	for _, d := range duels {
		if _, err := b.RecordDuelOutcome(d.winner, d.loser, rating.ScoreWin); err != nil {
			return err
		}
		if _, err := b.RecordDuelOutcome(d.loser, d.winner, rating.ScoreLoss); err != nil {
			return err
		}
	}

	return nil
}
