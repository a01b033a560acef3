package bot

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"hailstone/internal/util"

	"github.com/bwmarrin/discordgo"
)

func (bot *Bot) cmdTop(_ *discordgo.Message, _ []string, w io.Writer) error {
	leaderboard, err := bot.back.GetLeaderboard(20)
	if err != nil {
		return err
	}
	if len(leaderboard) == 0 {
		fmt.Fprint(w, "Nobody finished a rated duel yet.")
		return nil
	}

	fmt.Fprint(w, "```\n")
	tab := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprint(tab, "#\tName\tRating\tDuels\n")
	for i, v := range leaderboard {
		marker := ""
		if v.IsProvisional() {
			marker = "?"
		}
		fmt.Fprintf(tab, "%d\t%s\t%.0f%s\t%d\n", i+1, v.Name, v.Rating, marker, v.GamesPlayed)
	}
	tab.Flush()
	fmt.Fprint(w, "```\nA `?` marks a provisional rating.")

	return nil
}

func (bot *Bot) cmdRating(_ *discordgo.Message, args []string, w io.Writer) error {
	if len(args) < 1 {
		return util.ErrPublic("expected a player name, eg. `!rating Darunia`")
	}
	name := strings.Join(args, " ")

	rating, games, err := bot.back.GetPlayerRating(name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return util.ErrPublic(fmt.Sprintf("there is no player named %q", name))
		}
		return err
	}

	fmt.Fprintf(
		w,
		"**%s** is rated **%.0f** ±%.0f (%s) over %d rated duels.",
		name, rating.Rating, rating.Deviation, rating.Class(), games,
	)

	history, err := bot.back.GetRatingHistory(name)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return nil
	}

	fmt.Fprint(w, "\nRecent duels:\n```\n")
	start := 0
	if len(history) > 10 {
		start = len(history) - 10
	}
	for _, v := range history[start:] {
		fmt.Fprintf(w, "%s  %.0f ±%.0f\n", v.CreatedAt.Format("2006-01-02 15:04"), v.Rating, v.Deviation)
	}
	fmt.Fprint(w, "```")

	return nil
}
