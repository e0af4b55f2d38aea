package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"potatolearn/backend/certificates"
	"potatolearn/backend/models"
	"potatolearn/backend/utils"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RefID идентификатор, который клиент может прислать числом или строкой
type RefID uint

func (r *RefID) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	id, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil {
		return err
	}
	*r = RefID(id)
	return nil
}

// QuestionInput поля нетипизированы, чтобы ошибка формы была привязана к номеру вопроса
type QuestionInput struct {
	QuestionText  interface{}   `json:"questionText"`
	Options       []interface{} `json:"options"`
	CorrectAnswer interface{}   `json:"correctAnswer"`
	Points        interface{}   `json:"points"`
}

type CreateQuizInput struct {
	Course       RefID           `json:"course" validate:"required"`
	Title        string          `json:"title"`
	Questions    []QuestionInput `json:"questions"`
	TimeLimit    *int            `json:"timeLimit" validate:"omitempty,gt=0"`
	PassingScore *float64        `json:"passingScore" validate:"omitempty,gte=0,lte=100"`
	MaxAttempts  *int            `json:"maxAttempts" validate:"omitempty,gt=0"`
	IsFinalExam  bool            `json:"isFinalExam"`
}

type SubmitQuizInput struct {
	Answers []models.Answer `json:"answers"`
}

type QuizCourseView struct {
	ID         uint   `json:"id"`
	Title      string `json:"title"`
	Instructor uint   `json:"instructor"`
}

type QuizView struct {
	models.Quiz
	Course QuizCourseView `json:"course"`
}

type SubmitResult struct {
	models.GradeResult
	Certificate *CertificateView `json:"certificate"`
}

type RepairResult struct {
	RepairedCount int    `json:"repairedCount"`
	Repaired      []uint `json:"repaired"`
}

type QuizService struct {
	db     *gorm.DB
	issuer *certificates.Issuer
}

func NewQuizService(db *gorm.DB, issuer *certificates.Issuer) *QuizService {
	return &QuizService{db: db, issuer: issuer}
}

// ParseQuestions проверяет вопросы по порядку и возвращает ошибку для первого неверного
func ParseQuestions(inputs []QuestionInput) ([]models.Question, error) {
	if len(inputs) == 0 {
		return nil, utils.ErrValidation("Quiz must include a non-empty questions array")
	}

	questions := make([]models.Question, 0, len(inputs))
	for i, in := range inputs {
		n := i + 1

		text, ok := in.QuestionText.(string)
		if !ok || strings.TrimSpace(text) == "" {
			return nil, utils.ErrValidation(fmt.Sprintf("Question %d is missing questionText", n))
		}

		if len(in.Options) != models.OptionsPerQuestion {
			return nil, utils.ErrValidation(fmt.Sprintf("Question %d must have 4 non-empty options", n))
		}
		options := make([]string, 0, models.OptionsPerQuestion)
		for _, raw := range in.Options {
			option, ok := raw.(string)
			if !ok || strings.TrimSpace(option) == "" {
				return nil, utils.ErrValidation(fmt.Sprintf("Question %d must have 4 non-empty options", n))
			}
			options = append(options, option)
		}

		correct, ok := in.CorrectAnswer.(float64)
		if !ok || correct != math.Trunc(correct) || correct < 0 || correct >= models.OptionsPerQuestion {
			return nil, utils.ErrValidation(fmt.Sprintf("Question %d has invalid correctAnswer", n))
		}

		questions = append(questions, models.Question{
			Position:      i,
			QuestionText:  text,
			Options:       datatypes.NewJSONSlice(options),
			CorrectAnswer: int(correct),
			Points:        parsePoints(in.Points),
		})
	}
	return questions, nil
}

// parsePoints принимает положительное число или числовую строку, иначе 1
func parsePoints(raw interface{}) float64 {
	var points float64
	switch v := raw.(type) {
	case float64:
		points = v
	case string:
		points, _ = strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	if points > 0 && !math.IsInf(points, 0) {
		return points
	}
	return 1
}

func (s *QuizService) Create(ctx context.Context, actor *models.User, in CreateQuizInput) (*QuizView, error) {
	course, err := findCourse(ctx, s.db, uint(in.Course), false)
	if err != nil {
		return nil, err
	}
	if course.InstructorID != actor.ID && !actor.IsAdmin() {
		return nil, utils.ErrForbidden("Not authorized to create quiz for this course")
	}

	questions, err := ParseQuestions(in.Questions)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" || title == strconv.FormatUint(uint64(course.ID), 10) {
		title = "Quiz: " + course.Title
	}

	quiz := models.Quiz{
		Title:        title,
		CourseID:     course.ID,
		Questions:    questions,
		TimeLimit:    models.DefaultTimeLimit,
		PassingScore: models.DefaultPassingScore,
		MaxAttempts:  models.DefaultMaxAttempts,
		IsFinalExam:  in.IsFinalExam,
	}
	if in.TimeLimit != nil {
		quiz.TimeLimit = *in.TimeLimit
	}
	if in.PassingScore != nil {
		quiz.PassingScore = *in.PassingScore
	}
	if in.MaxAttempts != nil {
		quiz.MaxAttempts = *in.MaxAttempts
	}

	if err := s.db.WithContext(ctx).Create(&quiz).Error; err != nil {
		return nil, utils.ErrInternal(err, "creating quiz")
	}
	return s.Get(ctx, quiz.ID)
}

func (s *QuizService) Get(ctx context.Context, id uint) (*QuizView, error) {
	quiz, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	view := quizView(*quiz)
	return &view, nil
}

func (s *QuizService) ListByCourse(ctx context.Context, courseID uint) ([]QuizView, error) {
	return s.list(ctx, s.db.Where("course_id = ?", courseID))
}

func (s *QuizService) ListAll(ctx context.Context) ([]QuizView, error) {
	return s.list(ctx, s.db)
}

// Submit оценивает ответы. При сдаче курс попадает в пройденные и выпускается сертификат.
func (s *QuizService) Submit(ctx context.Context, actor *models.User, quizID uint, in SubmitQuizInput) (*SubmitResult, error) {
	quiz, err := s.load(ctx, quizID)
	if err != nil {
		return nil, err
	}

	enrolled, err := isEnrolled(s.db.WithContext(ctx), quiz.CourseID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, utils.ErrForbidden("You must be enrolled in the course to take this quiz")
	}

	result := &SubmitResult{GradeResult: quiz.Grade(in.Answers)}
	if !result.Passed {
		return result, nil
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.CourseCompletion{UserID: actor.ID, CourseID: quiz.CourseID}).Error
	if err != nil {
		return nil, utils.ErrInternal(err, "recording course completion")
	}

	if cert := s.issuer.Issue(ctx, actor, &quiz.Course, quiz); cert != nil {
		cert.Course = quiz.Course
		view := certificateView(*cert, false)
		result.Certificate = &view
	}
	return result, nil
}

// Repair очищает список вопросов у тестов с некорректными вопросами
func (s *QuizService) Repair(ctx context.Context) (*RepairResult, error) {
	var quizzes []models.Quiz
	if err := s.db.WithContext(ctx).Preload("Questions").Find(&quizzes).Error; err != nil {
		return nil, utils.ErrInternal(err, "loading quizzes")
	}

	result := &RepairResult{Repaired: []uint{}}
	for _, quiz := range quizzes {
		if !quiz.IsMalformed() {
			continue
		}
		if err := s.db.WithContext(ctx).Where("quiz_id = ?", quiz.ID).Delete(&models.Question{}).Error; err != nil {
			return nil, utils.ErrInternal(err, "repairing quiz")
		}
		result.Repaired = append(result.Repaired, quiz.ID)
	}
	result.RepairedCount = len(result.Repaired)
	return result, nil
}

func (s *QuizService) load(ctx context.Context, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := preloadQuiz(s.db.WithContext(ctx)).First(&quiz, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrNotFound("Quiz not found")
		}
		return nil, utils.ErrInternal(err, "loading quiz")
	}
	return &quiz, nil
}

func (s *QuizService) list(ctx context.Context, query *gorm.DB) ([]QuizView, error) {
	var quizzes []models.Quiz
	if err := preloadQuiz(query.WithContext(ctx)).Order("id").Find(&quizzes).Error; err != nil {
		return nil, utils.ErrInternal(err, "listing quizzes")
	}
	views := make([]QuizView, 0, len(quizzes))
	for _, q := range quizzes {
		views = append(views, quizView(q))
	}
	return views, nil
}

func preloadQuiz(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Course").
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position")
		})
}

func quizView(q models.Quiz) QuizView {
	if q.Questions == nil {
		q.Questions = []models.Question{}
	}
	return QuizView{
		Quiz: q,
		Course: QuizCourseView{
			ID:         q.Course.ID,
			Title:      q.Course.Title,
			Instructor: q.Course.InstructorID,
		},
	}
}
