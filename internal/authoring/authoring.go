// Package authoring turns a user's sequence of messages into a stored quiz.
package authoring

import (
	"context"
	"fmt"
	"strings"

	"quiz-bot/internal/conversation"
	"quiz-bot/internal/quiz"
)

const (
	SkipToken       = "skip"
	FinishToken     = "finish"
	AnswerSeparator = "|"
)

const (
	promptTitle       = "Let's create a new quiz. First, send me the title of your quiz."
	promptDescription = "Great! Now send me a description of your quiz (or /skip to skip this step)."
	promptQuestion    = "Now send me your first question (e.g., 'What is CPU?').\n" +
		"To attach the expected answer, put it after a | sign: 'What is CPU? | processor'."
	promptMore     = "Question added! Send another question or /finish to complete the quiz."
	promptFinished = "Quiz created successfully! Use /share %d to share it."
)

// Reply is what the transport should tell the user after a step.
type Reply struct {
	Text     string
	Step     conversation.Step
	QuizID   int64
	Finished bool
}

type Flow struct {
	tracker *conversation.Tracker
	store   quiz.Store
}

func New(tracker *conversation.Tracker, store quiz.Store) *Flow {
	return &Flow{tracker: tracker, store: store}
}

// Begin starts (or silently restarts) an authoring session.
func (f *Flow) Begin(ctx context.Context, userID int64) (Reply, error) {
	if err := f.tracker.Begin(ctx, userID); err != nil {
		return Reply{}, err
	}
	return Reply{Text: promptTitle, Step: conversation.StepAwaitingTitle}, nil
}

// Active reports whether the user is in the middle of authoring.
func (f *Flow) Active(ctx context.Context, userID int64) (bool, error) {
	st, err := f.tracker.Load(ctx, userID)
	if err != nil {
		return false, err
	}
	return st.Active(), nil
}

// Advance consumes one message. State is only saved after the store accepted
// the change, so a failed step can be retried with the same message.
func (f *Flow) Advance(ctx context.Context, userID int64, text string) (Reply, error) {
	st, err := f.tracker.Load(ctx, userID)
	if err != nil {
		return Reply{}, err
	}

	if st.Active() && (strings.TrimSpace(text) == "" || misplacedToken(st.Step, text)) {
		return Reply{Text: promptFor(st.Step), Step: st.Step}, nil
	}

	switch st.Step {
	case conversation.StepIdle:
		return Reply{Step: st.Step}, quiz.ErrInvalidState

	case conversation.StepAwaitingTitle:
		st.Title = strings.TrimSpace(text)
		st.Step = conversation.StepAwaitingDescription
		if err := f.tracker.Save(ctx, userID, st); err != nil {
			return Reply{}, err
		}
		return Reply{Text: promptDescription, Step: st.Step}, nil

	case conversation.StepAwaitingDescription:
		st.Description = ""
		if !IsToken(text, SkipToken) {
			st.Description = strings.TrimSpace(text)
		}
		st.Step = conversation.StepAwaitingQuestion
		if err := f.tracker.Save(ctx, userID, st); err != nil {
			return Reply{}, err
		}
		return Reply{Text: promptQuestion, Step: st.Step}, nil

	case conversation.StepAwaitingQuestion:
		quizID, err := f.store.Create(ctx, quiz.Draft{
			Title:       st.Title,
			Description: st.Description,
			CreatorID:   userID,
			First:       ParseQuestion(text),
		})
		if err != nil {
			return Reply{}, err
		}
		st.QuizID = quizID
		st.Step = conversation.StepCollectingQuestions
		if err := f.tracker.Save(ctx, userID, st); err != nil {
			return Reply{}, err
		}
		return Reply{Text: promptMore, Step: st.Step, QuizID: quizID}, nil

	case conversation.StepCollectingQuestions:
		if IsToken(text, FinishToken) {
			if err := f.tracker.EndAuthoring(ctx, userID); err != nil {
				return Reply{}, err
			}
			return Reply{
				Text:     fmt.Sprintf(promptFinished, st.QuizID),
				Step:     conversation.StepIdle,
				QuizID:   st.QuizID,
				Finished: true,
			}, nil
		}
		if err := f.store.AppendQuestion(ctx, st.QuizID, ParseQuestion(text)); err != nil {
			return Reply{}, err
		}
		return Reply{Text: promptMore, Step: st.Step, QuizID: st.QuizID}, nil

	default:
		return Reply{Step: st.Step}, fmt.Errorf("authoring step %s: %w", st.Step, quiz.ErrInvalidState)
	}
}

// Cancel abandons the session. A quiz already stored stays stored.
func (f *Flow) Cancel(ctx context.Context, userID int64) (int64, error) {
	st, err := f.tracker.Load(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !st.Active() {
		return 0, quiz.ErrInvalidState
	}
	if err := f.tracker.EndAuthoring(ctx, userID); err != nil {
		return 0, err
	}
	return st.QuizID, nil
}

func promptFor(step conversation.Step) string {
	switch step {
	case conversation.StepAwaitingTitle:
		return promptTitle
	case conversation.StepAwaitingDescription:
		return promptDescription
	case conversation.StepAwaitingQuestion:
		return promptQuestion
	case conversation.StepCollectingQuestions:
		return promptMore
	default:
		return ""
	}
}

// misplacedToken reports a control word sent at a step that does not accept it.
func misplacedToken(step conversation.Step, text string) bool {
	switch {
	case IsToken(text, SkipToken):
		return step != conversation.StepAwaitingDescription
	case IsToken(text, FinishToken):
		return step != conversation.StepCollectingQuestions
	}
	return false
}

// IsToken matches a control word case-insensitively, with or without a
// leading slash and a trailing @botname.
func IsToken(text, token string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.TrimPrefix(t, "/")
	if at := strings.IndexByte(t, '@'); at >= 0 {
		t = t[:at]
	}
	return t == token
}

// ParseQuestion splits "prompt | answer". Text without a separator, or with
// nothing before it, is a prompt with no answer.
func ParseQuestion(text string) quiz.Question {
	text = strings.TrimSpace(text)
	idx := strings.LastIndex(text, AnswerSeparator)
	if idx <= 0 {
		return quiz.Question{Prompt: text}
	}
	prompt := strings.TrimSpace(text[:idx])
	if prompt == "" {
		return quiz.Question{Prompt: text}
	}
	return quiz.Question{
		Prompt: prompt,
		Answer: strings.TrimSpace(text[idx+len(AnswerSeparator):]),
	}
}
