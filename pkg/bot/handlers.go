package bot

import (
	"context"
	"fmt"

	"registerbot/pkg/dispatch"
	"registerbot/pkg/ports/chatport"
	"registerbot/pkg/register"
	"registerbot/pkg/store"

	"go.uber.org/zap"
)

const helpText = `These are the commands I know:

register: Register if you are interested in working with us
jobs: List available internship and graduate jobs
all jobs: List all available jobs
jobs <search>: search for specifics in open jobs. E.g. 'jobs software' will give you job listings relevant to software
modify: Modify registration
help: Print help text
about: Information on how this bot was made

All commands are case insensitive
`

const aboutText = `Hi there, cool that you want to look more into how I function!

I'm a webhook-driven bot: the chat platform notifies me over HTTP whenever you
send me a message, and I route it to a command or to an ongoing registration
dialogue. I'm written in Go and keep the registrations in a PostgreSQL
database.
`

const greetingText = `Hi! Great to see that you find us interesting! I'm an automated bot to replace the interest list you usually sign up on.`

// Bot wires the registration dialogue and job listings into the dispatch
// engine's command routes.
type Bot struct {
	chat     chatport.Port
	sessions *register.Sessions
	store    store.Store
	logger   *zap.Logger
}

// New builds the handler set.
func New(chat chatport.Port, sessions *register.Sessions, st store.Store, logger *zap.Logger) *Bot {
	return &Bot{
		chat:     chat,
		sessions: sessions,
		store:    st,
		logger:   logger,
	}
}

// RegisterRoutes attaches every command route and the greeting hook to the
// dispatch server. Must run before Setup so the message webhook is created.
func (b *Bot) RegisterRoutes(srv *dispatch.Server) {
	srv.PreMessage(b.Greet)
	srv.Handle("^register$", b.HandleRegister)
	srv.Handle("^modify$", b.HandleModify)
	srv.Handle("^abort$", b.HandleAbort)
	srv.Handle("^all jobs", b.HandleAllJobs)
	srv.Handle("^jobs", b.HandleJobs)
	srv.Handle("^about$", b.HandleAbout)
	srv.Default(b.HandleDefault)
}

// Greet sends the one-time greeting on a user's first ever message, keyed by
// the persisted greeted set.
func (b *Bot) Greet(ctx context.Context, msg chatport.Message) error {
	greeted, err := b.store.WasGreeted(ctx, msg.PersonID)
	if err != nil {
		return err
	}
	if greeted {
		return nil
	}

	if _, err := b.chat.SendMessage(ctx, msg.PersonID, greetingText); err != nil {
		return err
	}
	return b.store.MarkGreeted(ctx, msg.PersonID)
}

// HandleRegister starts the registration dialogue, or hands a finished user
// over to the modify flow.
func (b *Bot) HandleRegister(ctx context.Context, msg chatport.Message) error {
	reg, err := b.sessions.GetOrCreate(ctx, msg.PersonID)
	if err != nil {
		return err
	}

	if reg.Active() {
		if _, err := b.chat.SendMessage(ctx, msg.PersonID, "Registration already ongoing"); err != nil {
			return err
		}
	}
	if reg.Done() {
		return b.HandleModify(ctx, msg)
	}

	reg.Start()
	return b.sendQuestion(ctx, reg, msg.PersonID)
}

// HandleModify opens the field-edit menu for a finished registration.
func (b *Bot) HandleModify(ctx context.Context, msg chatport.Message) error {
	reg, err := b.sessions.GetOrCreate(ctx, msg.PersonID)
	if err != nil {
		return err
	}

	if !reg.Done() {
		_, err := b.chat.SendMessage(ctx, msg.PersonID, "You have to register before modifying your registration")
		return err
	}

	reg.StartModify()
	return b.sendQuestion(ctx, reg, msg.PersonID)
}

// HandleAbort discards un-persisted answers and reports the restored record.
func (b *Bot) HandleAbort(ctx context.Context, msg chatport.Message) error {
	reg, err := b.sessions.GetOrCreate(ctx, msg.PersonID)
	if err != nil {
		return err
	}

	if !reg.Active() {
		_, err := b.chat.SendMessage(ctx, msg.PersonID, "Nothing to abort")
		return err
	}

	if err := reg.Abort(ctx); err != nil {
		return err
	}
	if _, err := b.chat.SendMessage(ctx, msg.PersonID, "Aborted"); err != nil {
		return err
	}
	_, err = b.chat.SendMessage(ctx, msg.PersonID, reg.Data())
	return err
}

// HandleAbout describes the bot.
func (b *Bot) HandleAbout(ctx context.Context, msg chatport.Message) error {
	_, err := b.chat.SendMessage(ctx, msg.PersonID, aboutText)
	return err
}

// HandleDefault feeds unmatched messages into the active dialogue, or prints
// help when no dialogue is in progress.
func (b *Bot) HandleDefault(ctx context.Context, msg chatport.Message) error {
	reg, err := b.sessions.GetOrCreate(ctx, msg.PersonID)
	if err != nil {
		return err
	}

	if !reg.Active() {
		_, err := b.chat.SendMessage(ctx, msg.PersonID, helpText)
		return err
	}

	if rejection, ok := reg.Answer(msg.Text); !ok {
		if _, err := b.chat.SendMessage(ctx, msg.PersonID, rejection); err != nil {
			return err
		}
	}

	if err := b.sendQuestion(ctx, reg, msg.PersonID); err != nil {
		return err
	}

	if reg.Done() {
		_, err := b.chat.SendMessage(ctx, msg.PersonID, reg.Data())
		return err
	}
	return nil
}

func (b *Bot) sendQuestion(ctx context.Context, reg *register.Registration, personID string) error {
	question, err := reg.NextQuestion(ctx)
	if err != nil {
		return fmt.Errorf("failed to produce next question: %w", err)
	}
	if question == "" {
		return nil
	}
	_, err = b.chat.SendMessage(ctx, personID, question)
	return err
}
