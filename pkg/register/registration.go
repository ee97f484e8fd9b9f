package register

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"registerbot/pkg/store"

	"github.com/looplab/fsm"
)

// Options tune session behavior.
type Options struct {
	// AbortToModify makes an abort issued during a modify flow return to the
	// modify menu instead of re-deriving from the persisted snapshot. Off by
	// default, matching the historical behavior.
	AbortToModify bool
}

// Registration is one user's session: the record being collected and the
// dialogue state machine driving it. All methods are safe for concurrent use;
// handler tasks for the same user may overlap.
type Registration struct {
	mu      sync.Mutex
	rec     store.Registered
	active  bool
	done    bool
	editing bool
	machine *fsm.FSM
	store   store.Store
	opts    Options
}

// NewRegistration seeds a session with the profile data and resumes a
// previously finished record from the store when one exists.
func NewRegistration(ctx context.Context, uniqueID, name, email string, st store.Store, opts Options) (*Registration, error) {
	r := &Registration{
		store: st,
		opts:  opts,
	}
	if err := r.seed(ctx, uniqueID, name, email); err != nil {
		return nil, err
	}
	return r, nil
}

// seed resets the session to a fresh registration for the given identity,
// then overrides it with the persisted record if the user already finished
// once. Callers must not hold r.mu.
func (r *Registration) seed(ctx context.Context, uniqueID, name, email string) error {
	stored, err := r.store.FindRegistered(ctx, uniqueID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to load registration %s: %w", uniqueID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.rec = store.Registered{
		UniqueID: uniqueID,
		Name:     name,
		Email:    email,
	}
	r.active = false
	r.done = false
	r.editing = false
	r.machine = newDialogueFSM(StateCurrentStudy)

	if stored != nil {
		r.rec = *stored
		r.done = true
		r.machine.SetState(StateNothing)
	}
	return nil
}

// Active reports whether a dialogue is in progress.
func (r *Registration) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Done reports whether the registration has been persisted.
func (r *Registration) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// State returns the current dialogue state.
func (r *Registration) State() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.machine.Current()
}

// Record returns a copy of the in-progress record.
func (r *Registration) Record() store.Registered {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rec
}

// Start begins the linear registration dialogue.
func (r *Registration) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = true
}

// StartModify switches a finished registration into the field-edit flow.
// Callers must check Done first; starting a modify on an unfinished record is
// guarded at the handler level.
func (r *Registration) StartModify() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startModifyLocked()
}

func (r *Registration) startModifyLocked() {
	r.active = true
	r.done = false
	r.editing = true
	r.machine.SetState(StateModify)
}

// NextQuestion returns the prompt for the current state. Reaching finished is
// the side-effecting point: the record is persisted and the done flag flips
// before the closing text is returned.
func (r *Registration) NextQuestion(ctx context.Context) (string, error) {
	r.mu.Lock()
	state := r.machine.Current()
	r.mu.Unlock()

	if state == StateFinished {
		if err := r.finish(ctx); err != nil {
			return "", err
		}
	}
	return prompt(state), nil
}

// Answer feeds user input to the current state. On success the state
// advances and ok is true; on rejection the state is left untouched and the
// user-facing rejection message is returned.
func (r *Registration) Answer(input string) (rejection string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reject := fmt.Sprintf("Answer '%s' not accepted", input)
	state := r.machine.Current()

	switch state {
	case StateNothing:
		return reject, false

	case StateFinished:
		r.fire(EventComplete)
		return "", true

	case StateModify:
		event, valid := modifyChoice(input)
		if !valid {
			return reject, false
		}
		r.fire(event)
		return "", true

	default:
		if !applyAnswer(state, &r.rec, input) {
			return reject, false
		}
		if r.editing {
			r.fire(EventFinishEdit)
		} else {
			r.fire(EventAdvance)
		}
		return "", true
	}
}

// fire triggers a dialogue event. The transition table covers every event
// fired from the states that fire it, so a failure here is a programming
// error, not a user-facing condition.
func (r *Registration) fire(event string) {
	if err := r.machine.Event(context.Background(), event); err != nil {
		panic(fmt.Sprintf("dialogue transition %s from %s: %v", event, r.machine.Current(), err))
	}
}

// finish persists the collected record and marks the registration done.
func (r *Registration) finish(ctx context.Context) error {
	r.mu.Lock()
	rec := r.rec
	r.mu.Unlock()

	if err := r.store.UpsertRegistered(ctx, &rec); err != nil {
		return fmt.Errorf("failed to persist registration %s: %w", rec.UniqueID, err)
	}

	r.mu.Lock()
	r.active = false
	r.done = true
	r.editing = false
	r.mu.Unlock()
	return nil
}

// Abort discards un-persisted edits by re-deriving the session from the last
// persisted snapshot. With AbortToModify set, an abort issued mid-modify
// returns to the modify menu instead of the resumed finished record.
func (r *Registration) Abort(ctx context.Context) error {
	r.mu.Lock()
	uniqueID := r.rec.UniqueID
	name := r.rec.Name
	email := r.rec.Email
	wasEditing := r.editing
	r.mu.Unlock()

	if err := r.seed(ctx, uniqueID, name, email); err != nil {
		return err
	}

	if r.opts.AbortToModify && wasEditing {
		r.mu.Lock()
		if r.done {
			r.startModifyLocked()
		}
		r.mu.Unlock()
	}
	return nil
}

// Data renders the collected answers the way the bot reports them back.
func (r *Registration) Data() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf(`Name: %s
Email: %s
Studying: %s
Finished studying: %s
Type of work: %s
`, r.rec.Name, r.rec.Email, r.rec.Studying, r.rec.Done, r.rec.Type)
}
