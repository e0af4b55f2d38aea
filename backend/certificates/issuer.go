package certificates

import (
	"context"
	"log"
	"time"

	"potatolearn/backend/models"

	"github.com/gabriel-vasile/mimetype"
	"gorm.io/gorm"
)

// Issuer выпускает сертификат за сданный тест: рендер, запись файла, запись в БД.
// Ошибки не пробрасываются наружу, результат сдачи теста от них не зависит.
type Issuer struct {
	db       *gorm.DB
	store    Store
	renderer Renderer
	logger   *log.Logger
	now      func() time.Time
}

func NewIssuer(db *gorm.DB, store Store, renderer Renderer, logger *log.Logger) *Issuer {
	return &Issuer{
		db:       db,
		store:    store,
		renderer: renderer,
		logger:   logger,
		now:      time.Now,
	}
}

// Issue возвращает nil, если сертификат выпустить не удалось
func (i *Issuer) Issue(ctx context.Context, user *models.User, course *models.Course, quiz *models.Quiz) *models.Certificate {
	now := i.now().UTC()
	certID := NewCertificateID(now)

	doc, err := i.renderer.Render(Data{
		StudentName:   user.Name,
		CourseTitle:   course.Title,
		QuizTitle:     quiz.Title,
		IssuedAt:      now,
		CertificateID: certID,
	})
	if err != nil {
		i.logger.Printf("certificate for user %d quiz %d not rendered: %v", user.ID, quiz.ID, err)
		return nil
	}

	filename := NewFilename(doc.Extension)
	url, err := i.store.Save(ctx, filename, doc.Content)
	if err != nil {
		i.logger.Printf("certificate for user %d quiz %d not stored: %v", user.ID, quiz.ID, err)
		return nil
	}

	quizID := quiz.ID
	cert := &models.Certificate{
		UserID:        user.ID,
		CourseID:      course.ID,
		QuizID:        &quizID,
		Filename:      filename,
		URL:           url,
		MimeType:      mimetype.Detect(doc.Content).String(),
		CertificateID: &certID,
		CreatedAt:     now,
	}
	if err := i.db.WithContext(ctx).Create(cert).Error; err != nil {
		i.logger.Printf("certificate for user %d quiz %d not recorded: %v", user.ID, quiz.ID, err)
		if delErr := i.store.Delete(ctx, filename); delErr != nil {
			i.logger.Printf("orphaned certificate file %s: %v", filename, delErr)
		}
		return nil
	}

	return cert
}
