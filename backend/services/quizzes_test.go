package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"potatolearn/backend/certificates"
	"potatolearn/backend/models"
	"potatolearn/backend/utils"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func questionsFromJSON(t *testing.T, raw string) []QuestionInput {
	t.Helper()
	var questions []QuestionInput
	require.NoError(t, json.Unmarshal([]byte(raw), &questions))
	return questions
}

func TestParseQuestions(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{"empty", `[]`, "Quiz must include a non-empty questions array"},
		{"missing text", `[{"options":["a","b","c","d"],"correctAnswer":0}]`, "Question 1 is missing questionText"},
		{"blank text", `[{"questionText":"  ","options":["a","b","c","d"],"correctAnswer":0}]`, "Question 1 is missing questionText"},
		{"three options", `[{"questionText":"q","options":["a","b","c"],"correctAnswer":0}]`, "Question 1 must have 4 non-empty options"},
		{"five options", `[{"questionText":"q","options":["a","b","c","d","e"],"correctAnswer":0}]`, "Question 1 must have 4 non-empty options"},
		{"blank option", `[{"questionText":"q","options":["a","","c","d"],"correctAnswer":0}]`, "Question 1 must have 4 non-empty options"},
		{"non-numeric answer", `[{"questionText":"q","options":["a","b","c","d"],"correctAnswer":"b"}]`, "Question 1 has invalid correctAnswer"},
		{"answer out of range", `[{"questionText":"q","options":["a","b","c","d"],"correctAnswer":4}]`, "Question 1 has invalid correctAnswer"},
		{"negative answer", `[{"questionText":"q","options":["a","b","c","d"],"correctAnswer":-1}]`, "Question 1 has invalid correctAnswer"},
		{"fractional answer", `[{"questionText":"q","options":["a","b","c","d"],"correctAnswer":1.5}]`, "Question 1 has invalid correctAnswer"},
		{"second question", `[{"questionText":"q","options":["a","b","c","d"],"correctAnswer":0},{"questionText":"q2","options":["a"],"correctAnswer":0}]`, "Question 2 must have 4 non-empty options"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseQuestions(questionsFromJSON(t, tc.raw))
			requireAppError(t, err, http.StatusBadRequest, tc.wantErr)
		})
	}
}

func TestParseQuestionsPoints(t *testing.T) {
	questions, err := ParseQuestions(questionsFromJSON(t, `[
		{"questionText":"a","options":["1","2","3","4"],"correctAnswer":3},
		{"questionText":"b","options":["1","2","3","4"],"correctAnswer":0,"points":3},
		{"questionText":"c","options":["1","2","3","4"],"correctAnswer":0,"points":"2"},
		{"questionText":"d","options":["1","2","3","4"],"correctAnswer":0,"points":-5},
		{"questionText":"e","options":["1","2","3","4"],"correctAnswer":0,"points":"many"}
	]`))
	require.NoError(t, err)

	points := make([]float64, 0, len(questions))
	for i, q := range questions {
		assert.Equal(t, i, q.Position)
		points = append(points, q.Points)
	}
	assert.Equal(t, []float64{1, 3, 2, 1, 1}, points)
	assert.Equal(t, 3, questions[0].CorrectAnswer)
}

func TestCreateQuiz(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	issuer, _ := newIssuer(t, db)
	svc := NewQuizService(db, issuer)

	owner := createUser(t, db, "owner@test.com", models.RoleInstructor)
	stranger := createUser(t, db, "stranger@test.com", models.RoleInstructor)
	admin := createUser(t, db, "admin@test.com", models.RoleAdmin)
	course := createCourse(t, db, owner, "Go", true)

	questions := questionsFromJSON(t, `[{"questionText":"q","options":["a","b","c","d"],"correctAnswer":2}]`)

	view, err := svc.Create(ctx, owner, CreateQuizInput{Course: RefID(course.ID), Questions: questions})
	require.NoError(t, err)
	assert.Equal(t, "Quiz: Go", view.Title)
	assert.Equal(t, models.DefaultTimeLimit, view.TimeLimit)
	assert.Equal(t, float64(models.DefaultPassingScore), view.PassingScore)
	assert.Equal(t, models.DefaultMaxAttempts, view.MaxAttempts)
	assert.False(t, view.IsFinalExam)
	assert.Equal(t, QuizCourseView{ID: course.ID, Title: "Go", Instructor: owner.ID}, view.Course)
	require.Len(t, view.Questions, 1)
	assert.Equal(t, []string{"a", "b", "c", "d"}, []string(view.Questions[0].Options))

	// id курса вместо названия тоже заменяется
	passing := 80.0
	view, err = svc.Create(ctx, admin, CreateQuizInput{
		Course:       RefID(course.ID),
		Title:        itoa(course.ID),
		Questions:    questions,
		PassingScore: &passing,
		IsFinalExam:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Quiz: Go", view.Title)
	assert.Equal(t, 80.0, view.PassingScore)
	assert.True(t, view.IsFinalExam)

	_, err = svc.Create(ctx, stranger, CreateQuizInput{Course: RefID(course.ID), Questions: questions})
	requireAppError(t, err, http.StatusForbidden, "Not authorized to create quiz for this course")

	_, err = svc.Create(ctx, owner, CreateQuizInput{Course: 999, Questions: questions})
	requireAppError(t, err, http.StatusNotFound, "Course not found")

	_, err = svc.Create(ctx, owner, CreateQuizInput{Course: RefID(course.ID)})
	requireAppError(t, err, http.StatusBadRequest, "Quiz must include a non-empty questions array")

	list, err := svc.ListByCourse(ctx, course.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestRefIDAcceptsStringOrNumber(t *testing.T) {
	var in CreateQuizInput
	require.NoError(t, json.Unmarshal([]byte(`{"course":"42"}`), &in))
	assert.Equal(t, RefID(42), in.Course)
	require.NoError(t, json.Unmarshal([]byte(`{"course":7}`), &in))
	assert.Equal(t, RefID(7), in.Course)
	assert.Error(t, json.Unmarshal([]byte(`{"course":"abc"}`), &in))
}

func TestSubmitPassingIssuesOneCertificate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	issuer, store := newIssuer(t, db)
	svc := NewQuizService(db, issuer)

	owner := createUser(t, db, "owner@test.com", models.RoleInstructor)
	student := createUser(t, db, "student@test.com", models.RoleStudent)
	course := createCourse(t, db, owner, "Go", true)
	enroll(t, db, course, student)
	quiz := createQuiz(t, db, course, 50)

	result, err := svc.Submit(ctx, student, quiz.ID, SubmitQuizInput{Answers: correctAnswers()})
	require.NoError(t, err)
	assert.Equal(t, 2.0, result.Score)
	assert.Equal(t, 2.0, result.TotalPoints)
	assert.Equal(t, "100.00", result.Percentage)
	assert.True(t, result.Passed)
	require.NotNil(t, result.Certificate)
	require.NotNil(t, result.Certificate.CertificateID)
	assert.Regexp(t, `^CERT-\d+-[0-9a-z]{9}$`, *result.Certificate.CertificateID)
	assert.Equal(t, "Go", result.Certificate.Course.Title)

	var certs []models.Certificate
	require.NoError(t, db.Find(&certs).Error)
	require.Len(t, certs, 1)
	assert.Equal(t, student.ID, certs[0].UserID)
	assert.Equal(t, course.ID, certs[0].CourseID)
	require.NotNil(t, certs[0].QuizID)
	assert.Equal(t, quiz.ID, *certs[0].QuizID)
	assert.Equal(t, "application/pdf", certs[0].MimeType)

	file, err := store.Open(ctx, certs[0].Filename)
	require.NoError(t, err)
	file.Close()

	var completions int64
	db.Model(&models.CourseCompletion{}).Where("user_id = ? AND course_id = ?", student.ID, course.ID).Count(&completions)
	assert.EqualValues(t, 1, completions)

	// повторная сдача: еще один сертификат, завершение курса не дублируется
	_, err = svc.Submit(ctx, student, quiz.ID, SubmitQuizInput{Answers: correctAnswers()})
	require.NoError(t, err)
	db.Model(&models.CourseCompletion{}).Where("user_id = ?", student.ID).Count(&completions)
	assert.EqualValues(t, 1, completions)
	var total int64
	db.Model(&models.Certificate{}).Count(&total)
	assert.EqualValues(t, 2, total)
}

func TestSubmitFailingOrMissingAnswers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	issuer, _ := newIssuer(t, db)
	svc := NewQuizService(db, issuer)

	owner := createUser(t, db, "owner@test.com", models.RoleInstructor)
	student := createUser(t, db, "student@test.com", models.RoleStudent)
	course := createCourse(t, db, owner, "Go", true)
	enroll(t, db, course, student)
	quiz := createQuiz(t, db, course, 70)

	result, err := svc.Submit(ctx, student, quiz.ID, SubmitQuizInput{Answers: []models.Answer{{QuestionIndex: 0, AnswerIndex: 0}}})
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Score)
	assert.Equal(t, 2.0, result.TotalPoints)
	assert.Equal(t, "50.00", result.Percentage)
	assert.False(t, result.Passed)
	assert.Nil(t, result.Certificate)

	var certs, completions int64
	db.Model(&models.Certificate{}).Count(&certs)
	db.Model(&models.CourseCompletion{}).Count(&completions)
	assert.Zero(t, certs)
	assert.Zero(t, completions)
}

func TestSubmitRequiresEnrollment(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	issuer, _ := newIssuer(t, db)
	svc := NewQuizService(db, issuer)

	owner := createUser(t, db, "owner@test.com", models.RoleInstructor)
	student := createUser(t, db, "student@test.com", models.RoleStudent)
	course := createCourse(t, db, owner, "Go", true)
	quiz := createQuiz(t, db, course, 50)

	_, err := svc.Submit(ctx, student, quiz.ID, SubmitQuizInput{})
	requireAppError(t, err, http.StatusForbidden, "You must be enrolled in the course to take this quiz")

	_, err = svc.Submit(ctx, student, 999, SubmitQuizInput{})
	requireAppError(t, err, http.StatusNotFound, "Quiz not found")
}

type failingStore struct{}

func (failingStore) Save(context.Context, string, []byte) (string, error) {
	return "", errors.New("disk full")
}

func (failingStore) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, certificates.ErrFileNotFound
}

func (failingStore) Delete(context.Context, string) error { return nil }

func TestSubmitStoreFailureStillReturnsResult(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	issuer := certificates.NewIssuer(db, failingStore{}, certificates.DefaultChain(), utils.DiscardLogger())
	svc := NewQuizService(db, issuer)

	owner := createUser(t, db, "owner@test.com", models.RoleInstructor)
	student := createUser(t, db, "student@test.com", models.RoleStudent)
	course := createCourse(t, db, owner, "Go", true)
	enroll(t, db, course, student)
	quiz := createQuiz(t, db, course, 50)

	result, err := svc.Submit(ctx, student, quiz.ID, SubmitQuizInput{Answers: correctAnswers()})
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Nil(t, result.Certificate)

	var certs, completions int64
	db.Model(&models.Certificate{}).Count(&certs)
	db.Model(&models.CourseCompletion{}).Count(&completions)
	assert.Zero(t, certs)
	assert.EqualValues(t, 1, completions)
}

func TestRepairClearsMalformedQuizzes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	issuer, _ := newIssuer(t, db)
	svc := NewQuizService(db, issuer)

	owner := createUser(t, db, "owner@test.com", models.RoleInstructor)
	course := createCourse(t, db, owner, "Go", true)
	good := createQuiz(t, db, course, 50)
	bad := createQuiz(t, db, course, 50)
	require.NoError(t, db.Create(&models.Question{
		QuizID:        bad.ID,
		Position:      2,
		QuestionText:  "broken",
		Options:       datatypes.NewJSONSlice([]string{"only", "three", "options"}),
		CorrectAnswer: 0,
		Points:        1,
	}).Error)

	result, err := svc.Repair(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RepairedCount)
	assert.Equal(t, []uint{bad.ID}, result.Repaired)

	repaired, err := svc.Get(ctx, bad.ID)
	require.NoError(t, err)
	assert.Empty(t, repaired.Questions)
	assert.NotNil(t, repaired.Questions)

	kept, err := svc.Get(ctx, good.ID)
	require.NoError(t, err)
	assert.Len(t, kept.Questions, 2)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
