package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"potatolearn/backend/certificates"
	"potatolearn/backend/models"
	"potatolearn/backend/utils"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type CertificateFilter struct {
	UserID uint
	All    bool
}

type CertificateCourseView struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

type CertificateUserView struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type CertificateView struct {
	ID            uint                  `json:"id"`
	Course        CertificateCourseView `json:"course"`
	Quiz          *uint                 `json:"quiz"`
	Filename      string                `json:"filename"`
	URL           string                `json:"url"`
	MimeType      string                `json:"mimeType"`
	CertificateID *string               `json:"certificateId"`
	User          *CertificateUserView  `json:"user,omitempty"`
	CreatedAt     time.Time             `json:"createdAt"`
	DownloadURL   string                `json:"downloadUrl"`
}

type CertificateService struct {
	db     *gorm.DB
	store  certificates.Store
	logger *log.Logger
}

func NewCertificateService(db *gorm.DB, store certificates.Store, logger *log.Logger) *CertificateService {
	return &CertificateService{db: db, store: store, logger: logger}
}

// List по умолчанию свои сертификаты. Админ может выбрать пользователя или все сразу.
func (s *CertificateService) List(ctx context.Context, actor *models.User, filter CertificateFilter) ([]CertificateView, error) {
	query := s.db.WithContext(ctx).Preload("Course").Preload("User")
	switch {
	case actor.IsAdmin() && filter.UserID != 0:
		query = query.Where("user_id = ?", filter.UserID)
	case actor.IsAdmin() && filter.All:
		// без фильтра
	default:
		query = query.Where("user_id = ?", actor.ID)
	}

	var certs []models.Certificate
	if err := query.Order("created_at DESC").Find(&certs).Error; err != nil {
		return nil, utils.ErrInternal(err, "listing certificates")
	}

	views := make([]CertificateView, 0, len(certs))
	for _, cert := range certs {
		views = append(views, certificateView(cert, actor.IsAdmin()))
	}
	return views, nil
}

// Open проверяет права и открывает файл сертификата на чтение
func (s *CertificateService) Open(ctx context.Context, actor *models.User, id uint) (*models.Certificate, io.ReadCloser, error) {
	cert, err := s.owned(ctx, actor, id, "Not authorized to download this certificate")
	if err != nil {
		return nil, nil, err
	}

	file, err := s.store.Open(ctx, cert.Filename)
	if err != nil {
		if errors.Is(err, certificates.ErrFileNotFound) {
			return nil, nil, utils.ErrNotFound("Certificate file not found")
		}
		return nil, nil, utils.ErrInternal(err, "opening certificate file")
	}
	return cert, file, nil
}

// OpenFile открывает файл по имени для публичного пути /uploads/certificates
func (s *CertificateService) OpenFile(ctx context.Context, filename string) (io.ReadCloser, error) {
	if !certificates.ValidFilename(filename) {
		return nil, utils.ErrNotFound("Certificate file not found")
	}
	file, err := s.store.Open(ctx, filename)
	if err != nil {
		if errors.Is(err, certificates.ErrFileNotFound) {
			return nil, utils.ErrNotFound("Certificate file not found")
		}
		return nil, utils.ErrInternal(err, "opening certificate file")
	}
	return file, nil
}

// Delete удаляет файл (ошибки игнорируются) и затем запись
func (s *CertificateService) Delete(ctx context.Context, actor *models.User, id uint) error {
	cert, err := s.owned(ctx, actor, id, "Not authorized to delete this certificate")
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, cert.Filename); err != nil {
		s.logger.Printf("certificate %d: file %s not removed: %v", cert.ID, cert.Filename, err)
	}

	if err := s.db.WithContext(ctx).Delete(cert).Error; err != nil {
		return utils.ErrInternal(err, "deleting certificate")
	}
	return nil
}

// BackfillIDs выдает идентификаторы старым записям без него
func (s *CertificateService) BackfillIDs(ctx context.Context) (int, error) {
	var certs []models.Certificate
	err := s.db.WithContext(ctx).
		Where("certificate_id IS NULL OR certificate_id = ?", "").
		Find(&certs).Error
	if err != nil {
		return 0, errors.Wrap(err, "loading certificates without id")
	}

	for _, cert := range certs {
		id := certificates.NewCertificateID(cert.CreatedAt)
		if err := s.db.WithContext(ctx).Model(&cert).Update("certificate_id", id).Error; err != nil {
			return 0, errors.Wrapf(err, "backfilling certificate %d", cert.ID)
		}
	}
	return len(certs), nil
}

func (s *CertificateService) owned(ctx context.Context, actor *models.User, id uint, denied string) (*models.Certificate, error) {
	var cert models.Certificate
	if err := s.db.WithContext(ctx).First(&cert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrNotFound("Certificate not found")
		}
		return nil, utils.ErrInternal(err, "loading certificate")
	}
	if cert.UserID != actor.ID && !actor.IsAdmin() {
		return nil, utils.ErrForbidden(denied)
	}
	return &cert, nil
}

func certificateView(cert models.Certificate, withUser bool) CertificateView {
	view := CertificateView{
		ID:            cert.ID,
		Course:        CertificateCourseView{ID: cert.CourseID, Title: cert.Course.Title},
		Quiz:          cert.QuizID,
		Filename:      cert.Filename,
		URL:           cert.URL,
		MimeType:      cert.MimeType,
		CertificateID: cert.CertificateID,
		CreatedAt:     cert.CreatedAt,
		DownloadURL:   fmt.Sprintf("/api/certificates/%d/download", cert.ID),
	}
	if withUser && cert.User.ID != 0 {
		view.User = &CertificateUserView{ID: cert.User.ID, Name: cert.User.Name, Email: cert.User.Email}
	}
	return view
}
