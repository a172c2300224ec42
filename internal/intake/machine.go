package intake

import (
	"strings"
	"time"
)

// Command is the side effect a transition asks the engine to perform.
type Command int

const (
	CommandNone Command = iota
	CommandRegister
	CommandLookup
)

// Transition is the pure outcome of applying one event to a session.
type Transition struct {
	// Next is the session to store. Ignored when Remove is set.
	Next    Session
	Remove  bool
	Replies []string
	Command Command
	// Query is the citizen's ticket or phone for CommandLookup.
	Query string
	// Media is the attachment to fetch for CommandRegister.
	Media *MediaRef
}

// Step computes the transition for ev given the sender's current session.
// A nil session means the sender is new. Step performs no I/O.
func Step(current *Session, ev Event) Transition {
	if current == nil {
		return Transition{Next: NewSession(time.Time{}), Replies: []string{msgMenu}}
	}
	sess := current.Clone()
	text := strings.TrimSpace(ev.Text)
	token := strings.ToLower(text)

	if ev.Kind == EventText && (token == "cancel" || token == "exit") {
		return Transition{Remove: true, Replies: []string{msgCancelled}}
	}

	if !sess.Stage.valid() {
		return Transition{Next: NewSession(time.Time{}), Replies: []string{msgMenu}}
	}

	if ev.Kind == EventUnsupported {
		return stay(sess, msgUnsupported)
	}

	if ev.IsMedia() {
		if sess.Stage == StageDesc {
			return describe(sess, mediaDescription(ev), ev.Media)
		}
		return stay(sess, msgUploadAck)
	}
	if ev.Kind != EventText {
		return stay(sess, msgUnsupported)
	}

	switch sess.Stage {
	case StageMenu:
		next, ok := menuChoices[token]
		if !ok {
			return stay(sess, msgInvalidOption)
		}
		sess.Stage = next
		return Transition{Next: sess, Replies: []string{Prompt(next)}}

	case StageFraud:
		if token == "done" {
			return stay(sess, Prompt(StageFraud))
		}
		sess.Fields[FieldFraudCategory] = FraudCategory(text)
		sess.Stage = StageDesc
		return Transition{Next: sess, Replies: []string{Prompt(StageDesc)}}

	case StageDesc:
		if text == "" {
			return stay(sess, Prompt(StageDesc))
		}
		return describe(sess, text, nil)

	case StageStatus:
		if text == "" || token == "done" {
			return stay(sess, Prompt(StageStatus))
		}
		return Transition{Next: sess, Remove: true, Command: CommandLookup, Query: text}

	case StageUnfreeze:
		return Transition{Remove: true, Replies: []string{msgUnfreezeAck}}
	}

	step, ok := fieldSteps[sess.Stage]
	if !ok {
		// Unknown stage: restart at the menu rather than wedge the sender.
		return Transition{Next: NewSession(time.Time{}), Replies: []string{msgMenu}}
	}
	if text == "" || token == "done" {
		return stay(sess, Prompt(sess.Stage))
	}
	if step.validate != nil && !step.validate(text) {
		return stay(sess, step.reject)
	}
	sess.Fields[step.field] = text
	sess.Stage = step.next
	return Transition{Next: sess, Replies: []string{Prompt(step.next)}}
}

func stay(sess Session, reply string) Transition {
	return Transition{Next: sess, Replies: []string{reply}}
}

func describe(sess Session, description string, media *MediaRef) Transition {
	sess.Fields[FieldDescription] = description
	return Transition{Next: sess, Remove: true, Command: CommandRegister, Media: media}
}

func mediaDescription(ev Event) string {
	if caption := strings.TrimSpace(ev.Media.Caption); caption != "" {
		return caption
	}
	if ev.Kind == EventDocument {
		return placeholderDocument
	}
	return placeholderImage
}
