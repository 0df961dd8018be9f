package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"quiz-bot/internal/grading"
	"quiz-bot/internal/quiz"
)

func parseQuizID(args string) (int64, error) {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return 0, fmt.Errorf("expected one quiz id, got %q", args)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(fields[0], "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid quiz id %q", fields[0])
	}
	return id, nil
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return "@" + u.UserName
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return fmt.Sprintf("User %d", u.ID)
	}
	return name
}

func FormatSummaries(summaries []quiz.Summary) string {
	if len(summaries) == 0 {
		return "You have not created any quizzes yet. Use /create to make one."
	}

	var sb strings.Builder
	sb.WriteString("📚 Your quizzes:\n")
	for _, s := range summaries {
		fmt.Fprintf(&sb, "\n#%d %s (%d questions)", s.ID, s.Title, s.QuestionCount)
	}
	sb.WriteString("\n\nUse /menu <id> to open one.")
	return sb.String()
}

func FormatStats(q quiz.Quiz, st grading.Stats) string {
	return fmt.Sprintf(
		"📊 Statistics for \"%s\"\n\n"+
			"Participants: %d\n"+
			"Answers: %d\n"+
			"Correct: %d (%d%%)",
		q.Title,
		st.Users,
		st.Attempts,
		st.Correct, st.Accuracy(),
	)
}
