package smoke

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// Client ходит в запущенный API как обычный фронтенд
type Client struct {
	http   *resty.Client
	logger *log.Logger
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int    `json:"count"`
	Data    T      `json:"data"`
}

type apiError struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type authPayload struct {
	Token string `json:"token"`
	User  struct {
		ID   uint   `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
}

type courseRef struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

type profile struct {
	ID              uint        `json:"id"`
	EnrolledCourses []courseRef `json:"enrolledCourses"`
}

type rating struct {
	Count   int `json:"count"`
	Average int `json:"average"`
}

type courseDetails struct {
	Success    bool `json:"success"`
	UserRating *int `json:"userRating"`
	Data       struct {
		ID     uint   `json:"id"`
		Rating rating `json:"rating"`
	} `json:"data"`
}

type quiz struct {
	ID        uint `json:"id"`
	Questions []struct {
		CorrectAnswer int `json:"correctAnswer"`
	} `json:"questions"`
}

type answer struct {
	QuestionIndex int `json:"questionIndex"`
	AnswerIndex   int `json:"answerIndex"`
}

type certificate struct {
	ID            uint    `json:"id"`
	Filename      string  `json:"filename"`
	MimeType      string  `json:"mimeType"`
	CertificateID *string `json:"certificateId"`
	DownloadURL   string  `json:"downloadUrl"`
}

type submitResult struct {
	Score       float64      `json:"score"`
	TotalPoints float64      `json:"totalPoints"`
	Percentage  string       `json:"percentage"`
	Passed      bool         `json:"passed"`
	Certificate *certificate `json:"certificate"`
}

func New(baseURL string, logger *log.Logger) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json")
	return &Client{http: client, logger: logger}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var failure apiError
	req := c.http.R().SetContext(ctx).SetError(&failure)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	if resp.IsError() {
		return &StatusError{Method: method, Path: path, Status: resp.StatusCode(), Message: failure.Message}
	}
	return nil
}

// StatusError ответ API с кодом 4xx/5xx
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return e.Method + " " + e.Path + ": " + http.StatusText(e.Status) + ": " + e.Message
}

// Login сохраняет токен для всех следующих запросов
func (c *Client) Login(ctx context.Context, email, password string) error {
	var auth authPayload
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &auth)
	if err != nil {
		return err
	}
	c.http.SetAuthToken(auth.Token)
	c.logger.Printf("logged in as %s (%s)", email, auth.User.Role)
	return nil
}

// EnsureStudent регистрирует студента или логинится, если он уже есть
func (c *Client) EnsureStudent(ctx context.Context, name, email, password string) error {
	var auth authPayload
	err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
		"role":     "student",
	}, &auth)

	var status *StatusError
	if errors.As(err, &status) && status.Status == http.StatusBadRequest {
		return c.Login(ctx, email, password)
	}
	if err != nil {
		return err
	}
	c.http.SetAuthToken(auth.Token)
	c.logger.Printf("registered %s", email)
	return nil
}

func (c *Client) firstCourse(ctx context.Context) (*courseRef, error) {
	var courses envelope[[]courseRef]
	if err := c.do(ctx, http.MethodGet, "/api/courses", nil, &courses); err != nil {
		return nil, err
	}
	if len(courses.Data) == 0 {
		return nil, errors.New("no published courses")
	}
	return &courses.Data[0], nil
}

// ensureEnrolled записывает на курс, если записи еще нет
func (c *Client) ensureEnrolled(ctx context.Context, courseID uint) error {
	var me envelope[profile]
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &me); err != nil {
		return err
	}
	for _, course := range me.Data.EnrolledCourses {
		if course.ID == courseID {
			return nil
		}
	}
	return c.do(ctx, http.MethodPost, coursePath(courseID, "/enroll"), nil, nil)
}

type RateReport struct {
	CourseID   uint
	Rating     rating
	UserRating int
}

// RateFlow: курс, запись, оценка, проверка сохраненного значения
func (c *Client) RateFlow(ctx context.Context, value int) (*RateReport, error) {
	course, err := c.firstCourse(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.ensureEnrolled(ctx, course.ID); err != nil {
		return nil, err
	}

	if err := c.do(ctx, http.MethodPost, coursePath(course.ID, "/rate"), map[string]int{"rating": value}, nil); err != nil {
		return nil, err
	}

	var details courseDetails
	if err := c.do(ctx, http.MethodGet, coursePath(course.ID, ""), nil, &details); err != nil {
		return nil, err
	}
	if details.UserRating == nil || *details.UserRating != value {
		return nil, errors.Errorf("course %d: rating %d was not stored", course.ID, value)
	}

	c.logger.Printf("rated %q: %d (count %d, average %d)", course.Title, value, details.Data.Rating.Count, details.Data.Rating.Average)
	return &RateReport{CourseID: course.ID, Rating: details.Data.Rating, UserRating: *details.UserRating}, nil
}

type CertificateReport struct {
	CourseID      uint
	QuizID        uint
	Percentage    string
	CertificateID string
	Size          int
	ContentType   string
}

// CertificateFlow сдает первый тест курса на 100% и скачивает выданный сертификат
func (c *Client) CertificateFlow(ctx context.Context) (*CertificateReport, error) {
	course, err := c.firstCourse(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.ensureEnrolled(ctx, course.ID); err != nil {
		return nil, err
	}

	var quizzes envelope[[]quiz]
	if err := c.do(ctx, http.MethodGet, "/api/quizzes/course/"+itoa(course.ID), nil, &quizzes); err != nil {
		return nil, err
	}
	var target *quiz
	for i := range quizzes.Data {
		if len(quizzes.Data[i].Questions) > 0 {
			target = &quizzes.Data[i]
			break
		}
	}
	if target == nil {
		return nil, errors.Errorf("course %d has no quiz with questions", course.ID)
	}

	answers := make([]answer, 0, len(target.Questions))
	for i, q := range target.Questions {
		answers = append(answers, answer{QuestionIndex: i, AnswerIndex: q.CorrectAnswer})
	}

	var result envelope[submitResult]
	path := "/api/quizzes/" + itoa(target.ID) + "/submit"
	if err := c.do(ctx, http.MethodPost, path, map[string]interface{}{"answers": answers}, &result); err != nil {
		return nil, err
	}
	if !result.Data.Passed {
		return nil, errors.Errorf("quiz %d not passed: %s%%", target.ID, result.Data.Percentage)
	}
	if result.Data.Certificate == nil {
		return nil, errors.Errorf("quiz %d passed without a certificate", target.ID)
	}
	issued := result.Data.Certificate

	var certs envelope[[]certificate]
	if err := c.do(ctx, http.MethodGet, "/api/certificates", nil, &certs); err != nil {
		return nil, err
	}
	found := false
	for _, cert := range certs.Data {
		if cert.ID == issued.ID {
			found = true
			break
		}
	}
	if !found {
		return nil, errors.Errorf("certificate %d missing from list", issued.ID)
	}

	resp, err := c.http.R().SetContext(ctx).Get(issued.DownloadURL)
	if err != nil {
		return nil, errors.Wrap(err, "downloading certificate")
	}
	if resp.IsError() || len(resp.Body()) == 0 {
		return nil, errors.Errorf("download %s: status %d", issued.DownloadURL, resp.StatusCode())
	}

	report := &CertificateReport{
		CourseID:    course.ID,
		QuizID:      target.ID,
		Percentage:  result.Data.Percentage,
		Size:        len(resp.Body()),
		ContentType: resp.Header().Get("Content-Type"),
	}
	if issued.CertificateID != nil {
		report.CertificateID = *issued.CertificateID
	}
	c.logger.Printf("certificate %s for %q: %d bytes, %s", report.CertificateID, course.Title, report.Size, report.ContentType)
	return report, nil
}
