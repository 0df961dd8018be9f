package bot

import (
	"bytes"
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"quiz-bot/internal/grading"
	"quiz-bot/internal/quiz"
)

const (
	responsesSheet = "Responses"
	summarySheet   = "Summary"
)

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	quizID, err := parseQuizID(msg.CommandArguments())
	if err != nil {
		b.sendError(chatID, "Usage: /stats <quiz id>")
		return
	}

	q, responses, err := b.loadResponses(ctx, quizID)
	if err != nil {
		b.fail(chatID, "load statistics", err)
		return
	}
	b.sendText(chatID, FormatStats(q, grading.Summarize(responses)))
}

func (b *Bot) handleExport(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	quizID, err := parseQuizID(msg.CommandArguments())
	if err != nil {
		b.sendError(chatID, "Usage: /export <quiz id>")
		return
	}

	q, responses, err := b.loadResponses(ctx, quizID)
	if err != nil {
		b.fail(chatID, "load responses", err)
		return
	}

	buf, err := BuildResponsesWorkbook(q, responses)
	if err != nil {
		b.logger.Error("Failed to build Excel file",
			zap.Int64("quiz_id", quizID),
			zap.Error(err))
		b.sendError(chatID, "Could not build the spreadsheet.")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("quiz_%d_responses.xlsx", quizID),
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf("📊 Responses for quiz #%d", quizID)
	if _, err := b.api.Send(doc); err != nil {
		b.logger.Error("Failed to send Excel file",
			zap.Int64("chat_id", chatID),
			zap.Int64("quiz_id", quizID),
			zap.Error(err))
		b.sendError(chatID, "Could not send the spreadsheet.")
	}
}

func (b *Bot) loadResponses(ctx context.Context, quizID int64) (quiz.Quiz, []quiz.Response, error) {
	q, err := b.store.Get(ctx, quizID)
	if err != nil {
		return quiz.Quiz{}, nil, err
	}
	responses, err := b.responses.ListByQuiz(ctx, quizID)
	if err != nil {
		return quiz.Quiz{}, nil, err
	}
	return q, responses, nil
}

// BuildResponsesWorkbook renders every response of q plus a summary sheet.
func BuildResponsesWorkbook(q quiz.Quiz, responses []quiz.Response) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", responsesSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	headers := []interface{}{"User ID", "Question #", "Question", "Correct", "Answered At"}
	if err := f.SetSheetRow(responsesSheet, "A1", &headers); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}

	for i, r := range responses {
		prompt := ""
		if r.QuestionIndex >= 0 && r.QuestionIndex < len(q.Questions) {
			prompt = q.Questions[r.QuestionIndex].Prompt
		}
		row := []interface{}{
			r.UserID,
			r.QuestionIndex + 1,
			prompt,
			r.Correct,
			r.CreatedAt.Format("2006-01-02 15:04"),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(responsesSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	if err := f.SetCellStyle(responsesSheet, "A1", "E1", style); err != nil {
		return nil, fmt.Errorf("failed to style headers: %w", err)
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	st := grading.Summarize(responses)
	summary := [][]interface{}{
		{"Quiz", q.Title},
		{"Questions", len(q.Questions)},
		{"Participants", st.Users},
		{"Answers", st.Attempts},
		{"Correct", st.Correct},
		{"Accuracy %", st.Accuracy()},
	}
	for i, row := range summary {
		row := row
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return nil, fmt.Errorf("failed to write summary: %w", err)
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(summary)), style); err != nil {
		return nil, fmt.Errorf("failed to style summary: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to save Excel file: %w", err)
	}
	return buf, nil
}
