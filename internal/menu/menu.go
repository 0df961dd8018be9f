// Package menu renders a quiz card and carries out its start, share, delete
// and close actions.
package menu

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"quiz-bot/internal/quiz"
)

type Action string

const (
	ActionStart  Action = "start"
	ActionShare  Action = "share"
	ActionDelete Action = "delete"
	ActionClose  Action = "close"
)

const (
	callbackPrefix = "quiz"
	startPrefix    = "quiz_"
	noDescription  = "No description"
)

var labels = map[Action]string{
	ActionStart:  "▶️ Start",
	ActionShare:  "🔗 Share",
	ActionDelete: "🗑 Delete",
	ActionClose:  "✖️ Close",
}

// Button is a transport-neutral control attached to the menu message.
type Button struct {
	Label  string
	Action Action
	Data   string
}

type View struct {
	QuizID        int64
	Title         string
	Description   string
	QuestionCount int
	Buttons       []Button
}

func (v View) Text() string {
	return fmt.Sprintf("📝 %s\n\n%s\n\nQuestions: %d", v.Title, v.Description, v.QuestionCount)
}

type Menu struct {
	store   quiz.Store
	baseURL string
}

func New(store quiz.Store, botBaseURL string) *Menu {
	return &Menu{store: store, baseURL: strings.TrimRight(botBaseURL, "/")}
}

func (m *Menu) Render(ctx context.Context, quizID int64) (View, error) {
	q, err := m.store.Get(ctx, quizID)
	if err != nil {
		return View{}, err
	}

	desc := q.Description
	if desc == "" {
		desc = noDescription
	}

	view := View{
		QuizID:        q.ID,
		Title:         q.Title,
		Description:   desc,
		QuestionCount: len(q.Questions),
	}
	for _, a := range []Action{ActionStart, ActionShare, ActionDelete, ActionClose} {
		view.Buttons = append(view.Buttons, Button{
			Label:  labels[a],
			Action: a,
			Data:   CallbackData(a, q.ID),
		})
	}
	return view, nil
}

// Question returns question index of the quiz together with the quiz size.
func (m *Menu) Question(ctx context.Context, quizID int64, index int) (quiz.Question, int, error) {
	q, err := m.store.Get(ctx, quizID)
	if err != nil {
		return quiz.Question{}, 0, err
	}
	if index < 0 || index >= len(q.Questions) {
		return quiz.Question{}, len(q.Questions), fmt.Errorf("question %d of quiz %d: %w", index, quizID, quiz.ErrNotFound)
	}
	return q.Questions[index], len(q.Questions), nil
}

// Start returns the first question.
func (m *Menu) Start(ctx context.Context, quizID int64) (quiz.Question, error) {
	q, _, err := m.Question(ctx, quizID, 0)
	return q, err
}

func (m *Menu) ShareLink(quizID int64) string {
	return fmt.Sprintf("%s?start=%s%d", m.baseURL, startPrefix, quizID)
}

// Delete removes the quiz; a second call reports quiz.ErrNotFound.
func (m *Menu) Delete(ctx context.Context, quizID int64) error {
	return m.store.Delete(ctx, quizID)
}

func CallbackData(a Action, quizID int64) string {
	return fmt.Sprintf("%s:%s:%d", callbackPrefix, a, quizID)
}

// ParseCallback decodes data built by CallbackData.
func ParseCallback(data string) (Action, int64, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != callbackPrefix {
		return "", 0, fmt.Errorf("malformed callback data %q", data)
	}

	action := Action(parts[1])
	if _, ok := labels[action]; !ok {
		return "", 0, fmt.Errorf("unknown action %q", parts[1])
	}

	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("bad quiz id %q", parts[2])
	}
	return action, id, nil
}

// ParseStartPayload extracts the quiz id from a "/start quiz_<id>" deep link.
func ParseStartPayload(payload string) (int64, bool) {
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, startPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(payload, startPrefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
