package register

import (
	"strconv"
	"strings"

	"registerbot/pkg/store"

	"github.com/looplab/fsm"
)

// Dialogue states. The registration questionnaire is a fixed finite-state
// dialogue: a linear chain for first-time registration and a menu-driven
// modify flow that re-enters the same question states with finished as the
// exit target.
const (
	StateCurrentStudy = "current_study"
	StateDoneStudying = "done_studying"
	StateJobType      = "job_type"
	StateSetName      = "set_name"
	StateSetEmail     = "set_email"
	StateModify       = "modify"
	StateFinished     = "finished"
	StateNothing      = "nothing"
)

// Dialogue events. EventAdvance walks the linear chain; EventFinishEdit is
// the modify flow's parameterized exit, jumping straight to finished from any
// question state. The session picks one of the two at the call site.
const (
	EventAdvance     = "advance"
	EventFinishEdit  = "finish_edit"
	EventSelectName  = "select_name"
	EventSelectEmail = "select_email"
	EventSelectStudy = "select_study"
	EventSelectDone  = "select_done"
	EventSelectType  = "select_type"
	EventComplete    = "complete"
)

func newDialogueFSM(initial string) *fsm.FSM {
	questionStates := []string{
		StateSetName,
		StateSetEmail,
		StateCurrentStudy,
		StateDoneStudying,
		StateJobType,
	}

	events := fsm.Events{
		{Name: EventAdvance, Src: []string{StateCurrentStudy}, Dst: StateDoneStudying},
		{Name: EventAdvance, Src: []string{StateDoneStudying}, Dst: StateJobType},
		{Name: EventAdvance, Src: []string{StateJobType}, Dst: StateFinished},

		{Name: EventFinishEdit, Src: questionStates, Dst: StateFinished},

		{Name: EventSelectName, Src: []string{StateModify}, Dst: StateSetName},
		{Name: EventSelectEmail, Src: []string{StateModify}, Dst: StateSetEmail},
		{Name: EventSelectStudy, Src: []string{StateModify}, Dst: StateCurrentStudy},
		{Name: EventSelectDone, Src: []string{StateModify}, Dst: StateDoneStudying},
		{Name: EventSelectType, Src: []string{StateModify}, Dst: StateJobType},

		{Name: EventComplete, Src: []string{StateFinished}, Dst: StateNothing},
	}

	return fsm.NewFSM(initial, events, fsm.Callbacks{})
}

const finishedText = `Thank you for registering.

You will soon be contacted with more information.`

const modifyMenuText = `What do you want to modify?

1) name
2) email
3) What you are studying
4) When you are done studying
5) What type of job you are interested in

<1/2/3/4/5>
`

// prompt returns the question text for a state. nothing has no prompt and
// finished's text is produced by the session (it carries a side effect).
func prompt(state string) string {
	switch state {
	case StateCurrentStudy:
		return "What are you studying?"
	case StateDoneStudying:
		return "When are you finished with your studies?"
	case StateJobType:
		return "Are you looking for a summer internship or a permanent job? <permanent/internship>"
	case StateSetName:
		return "What is your name?"
	case StateSetEmail:
		return "What is your email address?"
	case StateModify:
		return modifyMenuText
	case StateFinished:
		return finishedText
	default:
		return ""
	}
}

// applyAnswer validates input for a question state and writes the answer into
// the record. It returns false without touching the record when the input is
// rejected.
func applyAnswer(state string, rec *store.Registered, input string) bool {
	value := strings.TrimSpace(input)
	if value == "" {
		return false
	}

	switch state {
	case StateCurrentStudy:
		rec.Studying = value
	case StateDoneStudying:
		rec.Done = value
	case StateJobType:
		normalized := strings.ToLower(value)
		if normalized != "permanent" && normalized != "internship" {
			return false
		}
		rec.Type = normalized
	case StateSetName:
		rec.Name = value
	case StateSetEmail:
		rec.Email = value
	default:
		return false
	}
	return true
}

// modifyChoice maps a menu answer to the select event for the chosen field.
// ok is false for non-integers and out-of-range choices.
func modifyChoice(input string) (event string, ok bool) {
	number, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return "", false
	}
	switch number {
	case 1:
		return EventSelectName, true
	case 2:
		return EventSelectEmail, true
	case 3:
		return EventSelectStudy, true
	case 4:
		return EventSelectDone, true
	case 5:
		return EventSelectType, true
	default:
		return "", false
	}
}
