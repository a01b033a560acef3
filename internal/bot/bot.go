// Package bot is the Discord front for ratings: it announces duel results
// and answers a handful of query commands in private messages.
package bot

import (
	"errors"
	"fmt"
	"io"
	"log"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"hailstone/internal/back"
	"hailstone/internal/config"
	"hailstone/internal/util"

	"github.com/bwmarrin/discordgo"
)

type commandHandler func(m *discordgo.Message, args []string, w io.Writer) error

type Bot struct {
	back   *back.Back
	config *config.Config

	startedAt time.Time
	dg        *discordgo.Session

	handlers map[string]commandHandler
}

func New(back *back.Back, conf *config.Config) (*Bot, error) {
	dg, err := discordgo.New("Bot " + conf.DiscordToken)
	if err != nil {
		return nil, err
	}

	bot := &Bot{
		back:      back,
		config:    conf,
		dg:        dg,
		startedAt: time.Now(),
	}

	dg.AddHandler(bot.handleMessage)

	bot.handlers = map[string]commandHandler{
		"!dev":    bot.cmdDev,
		"!help":   bot.cmdHelp,
		"!rating": bot.cmdRating,
		"!top":    bot.cmdTop,
	}

	return bot, nil
}

func (bot *Bot) Serve(wg *sync.WaitGroup, done <-chan struct{}) {
	log.Println("info: starting Discord bot")
	wg.Add(1)
	defer wg.Done()
	if err := bot.dg.Open(); err != nil {
		log.Panic(err)
	}

	go bot.announce(done)

	<-done

	if err := bot.dg.Close(); err != nil {
		log.Printf("error: could not close Discord bot: %s", err)
	}
}

// announce drains the back notifications channel into the configured
// announce channel.
func (bot *Bot) announce(done <-chan struct{}) {
	out := newChannelWriter(bot.dg, bot.config.DiscordAnnounceChannelID)

	for {
		select {
		case <-done:
			return
		case notif := <-bot.back.GetNotificationsChan():
			fmt.Fprint(out, notif.String())
			if err := out.Flush(); err != nil {
				log.Printf("error: could not send notification: %s", err)
			}
		}
	}
}

func (bot *Bot) isAdmin(userID string) bool {
	for _, v := range bot.config.DiscordAdminUserIDs {
		if v == userID {
			return true
		}
	}

	return false
}

func (bot *Bot) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore webooks, self, bots, non-commands.
	if m.Author == nil || m.Author.ID == s.State.User.ID ||
		m.Author.Bot || !strings.HasPrefix(m.Content, "!") {
		return
	}

	log.Printf(
		"info: <%s(%s)@%s#%s> %s",
		m.Author.String(), m.Author.ID,
		m.GuildID, m.ChannelID,
		m.Content,
	)

	out, err := newUserChannelWriter(s, m.Author.ID)
	if err != nil {
		log.Printf("error: could not create channel writer: %s", err)
	}
	defer func() {
		if err := out.Flush(); err != nil {
			log.Printf("error: could not send message: %s", err)
		}
	}()

	defer func() {
		r := recover()
		if r != nil {
			out.Reset()
			fmt.Fprint(out, "Something went very wrong, please tell an admin.")
			log.Print("panic: ", r)
			log.Print(debug.Stack())
		}
	}()

	if err := bot.dispatch(m.Message, out); err != nil {
		out.Reset()
		fmt.Fprintln(out, "There was an error processing your command.")

		if errors.Is(err, util.ErrPublic("")) {
			fmt.Fprintf(out, "```%s\n```\nIf you need help, send `!help`.", err)
		} else {
			fmt.Fprint(out, "An admin will check the logs when they have time.")
		}

		log.Printf("error: failed to process command: %s", err)
	}
}

func parseCommand(cmd string) (string, []string) {
	parts := strings.Split(cmd, " ")

	switch len(parts) {
	case 0:
		return "", nil
	case 1:
		return parts[0], nil
	default:
		return parts[0], parts[1:]
	}
}

func (bot *Bot) dispatch(m *discordgo.Message, w io.Writer) error {
	command, args := parseCommand(m.Content)
	handler, ok := bot.handlers[command]
	if !ok {
		return util.ErrPublic(fmt.Sprintf("invalid command: %v", m.Content))
	}

	return handler(m, args, w)
}

func (bot *Bot) cmdHelp(m *discordgo.Message, _ []string, w io.Writer) error {
	fmt.Fprint(w, strings.ReplaceAll(`Available commands:
'''
!help          # display this help message
!rating NAME   # display the rating and duel history of the named player
!top           # display the duel leaderboard
'''`, "'''", "```"))

	if !bot.isAdmin(m.Author.ID) {
		return nil
	}

	fmt.Fprint(w, strings.ReplaceAll(`Admin-only commands:
'''
!dev error     error out
!dev panic     panic and abort
!dev uptime    display for how long the server has been running
'''`, "'''", "```"))

	return nil
}

func (bot *Bot) cmdDev(m *discordgo.Message, args []string, w io.Writer) error {
	if !bot.isAdmin(m.Author.ID) {
		return util.ErrPublic("this command is admin-only")
	}
	if len(args) < 1 {
		return util.ErrPublic("expected one argument")
	}

	switch args[0] {
	case "error":
		return errors.New("the dev asked for an error")
	case "panic":
		panic("the dev asked for a panic")
	case "uptime":
		fmt.Fprintf(w, "The server has been running for %s.", time.Since(bot.startedAt).Truncate(time.Second))
	default:
		return util.ErrPublic(fmt.Sprintf("invalid dev command: %s", args[0]))
	}

	return nil
}
