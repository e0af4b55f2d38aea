package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/datatypes"
)

const (
	OptionsPerQuestion  = 4
	DefaultTimeLimit    = 30
	DefaultPassingScore = 70
	DefaultMaxAttempts  = 3
)

type Quiz struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Title        string     `gorm:"not null" json:"title"`
	CourseID     uint       `gorm:"index;not null" json:"-"`
	Course       Course     `json:"-"`
	Questions    []Question `json:"questions"`
	TimeLimit    int        `gorm:"not null" json:"timeLimit"`
	PassingScore float64    `gorm:"not null" json:"passingScore"`
	MaxAttempts  int        `gorm:"not null" json:"maxAttempts"`
	IsFinalExam  bool       `gorm:"not null" json:"isFinalExam"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type Question struct {
	ID            uint                        `gorm:"primaryKey" json:"id"`
	QuizID        uint                        `gorm:"index;not null" json:"-"`
	Position      int                         `gorm:"not null" json:"-"`
	QuestionText  string                      `gorm:"type:text;not null" json:"questionText"`
	Options       datatypes.JSONSlice[string] `json:"options"`
	CorrectAnswer int                         `gorm:"not null" json:"correctAnswer"`
	Points        float64                     `gorm:"not null" json:"points"`
}

// Problem возвращает описание первой проблемы вопроса или пустую строку
func (q Question) Problem() string {
	if strings.TrimSpace(q.QuestionText) == "" {
		return "missing questionText"
	}
	if len(q.Options) != OptionsPerQuestion {
		return "must have 4 non-empty options"
	}
	for _, o := range q.Options {
		if strings.TrimSpace(o) == "" {
			return "must have 4 non-empty options"
		}
	}
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= OptionsPerQuestion {
		return "has invalid correctAnswer"
	}
	return ""
}

// IsMalformed true, если хотя бы один вопрос теста не проходит проверку
func (q *Quiz) IsMalformed() bool {
	for _, question := range q.Questions {
		if question.Problem() != "" {
			return true
		}
	}
	return false
}

type Answer struct {
	QuestionIndex int `json:"questionIndex"`
	AnswerIndex   int `json:"answerIndex"`
}

// UnmarshalJSON не отклоняет весь ответ из-за одной кривой записи:
// нецелый индекс становится -1 и ни с чем не совпадает.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		raw = nil
	}
	a.QuestionIndex = answerIndex(raw["questionIndex"])
	a.AnswerIndex = answerIndex(raw["answerIndex"])
	return nil
}

func answerIndex(v interface{}) int {
	n, ok := v.(float64)
	if !ok || n != math.Trunc(n) || n < 0 || n > math.MaxInt32 {
		return -1
	}
	return int(n)
}

type GradeResult struct {
	Score        float64 `json:"score"`
	TotalPoints  float64 `json:"totalPoints"`
	Percentage   string  `json:"percentage"`
	Passed       bool    `json:"passed"`
	PassingScore float64 `json:"passingScore"`
}

// Grade проверяет ответы. Вопрос без ответа считается неверным,
// при повторе индекса учитывается первый ответ.
func (q *Quiz) Grade(answers []Answer) GradeResult {
	chosen := make(map[int]int, len(answers))
	for _, a := range answers {
		if _, seen := chosen[a.QuestionIndex]; !seen {
			chosen[a.QuestionIndex] = a.AnswerIndex
		}
	}

	var score, total float64
	for i, question := range q.Questions {
		total += question.Points
		if answer, ok := chosen[i]; ok && answer == question.CorrectAnswer {
			score += question.Points
		}
	}

	percentage := 0.0
	if total != 0 {
		percentage = score / total * 100
	}

	return GradeResult{
		Score:        score,
		TotalPoints:  total,
		Percentage:   fmt.Sprintf("%.2f", percentage),
		Passed:       percentage >= q.PassingScore,
		PassingScore: q.PassingScore,
	}
}
