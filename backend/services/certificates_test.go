package services

import (
	"context"
	"io"
	"net/http"
	"testing"

	"potatolearn/backend/certificates"
	"potatolearn/backend/models"
	"potatolearn/backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type certFixture struct {
	svc     *CertificateService
	store   *certificates.DiskStore
	owner   *models.User
	student *models.User
	other   *models.User
	admin   *models.User
	cert    *models.Certificate
}

func newCertFixture(t *testing.T) *certFixture {
	t.Helper()
	db := newTestDB(t)
	issuer, store := newIssuer(t, db)

	f := &certFixture{
		svc:     NewCertificateService(db, store, utils.DiscardLogger()),
		store:   store,
		owner:   createUser(t, db, "owner@test.com", models.RoleInstructor),
		student: createUser(t, db, "student@test.com", models.RoleStudent),
		other:   createUser(t, db, "other@test.com", models.RoleStudent),
		admin:   createUser(t, db, "admin@test.com", models.RoleAdmin),
	}
	course := createCourse(t, db, f.owner, "Go", true)
	quiz := createQuiz(t, db, course, 50)
	f.cert = issuer.Issue(context.Background(), f.student, course, quiz)
	require.NotNil(t, f.cert)
	return f
}

func TestListCertificates(t *testing.T) {
	f := newCertFixture(t)
	ctx := context.Background()

	mine, err := f.svc.List(ctx, f.student, CertificateFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Go", mine[0].Course.Title)
	assert.Nil(t, mine[0].User)
	assert.Equal(t, "/api/certificates/"+itoa(f.cert.ID)+"/download", mine[0].DownloadURL)

	// обычный пользователь не может смотреть чужие
	theirs, err := f.svc.List(ctx, f.other, CertificateFilter{UserID: f.student.ID, All: true})
	require.NoError(t, err)
	assert.Empty(t, theirs)

	all, err := f.svc.List(ctx, f.admin, CertificateFilter{All: true})
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].User)
	assert.Equal(t, f.student.Email, all[0].User.Email)

	byUser, err := f.svc.List(ctx, f.admin, CertificateFilter{UserID: f.other.ID})
	require.NoError(t, err)
	assert.Empty(t, byUser)
}

func TestOpenCertificate(t *testing.T) {
	f := newCertFixture(t)
	ctx := context.Background()

	cert, file, err := f.svc.Open(ctx, f.student, f.cert.ID)
	require.NoError(t, err)
	content, err := io.ReadAll(file)
	file.Close()
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(content[:4]))
	assert.Equal(t, f.cert.Filename, cert.Filename)

	_, file, err = f.svc.Open(ctx, f.admin, f.cert.ID)
	require.NoError(t, err)
	file.Close()

	_, _, err = f.svc.Open(ctx, f.other, f.cert.ID)
	requireAppError(t, err, http.StatusForbidden, "Not authorized to download this certificate")

	_, _, err = f.svc.Open(ctx, f.student, 999)
	requireAppError(t, err, http.StatusNotFound, "Certificate not found")

	require.NoError(t, f.store.Delete(ctx, f.cert.Filename))
	_, _, err = f.svc.Open(ctx, f.student, f.cert.ID)
	requireAppError(t, err, http.StatusNotFound, "Certificate file not found")
}

func TestOpenFile(t *testing.T) {
	f := newCertFixture(t)
	ctx := context.Background()

	assert.Equal(t, certificates.FileURL(f.cert.Filename), f.cert.URL)

	file, err := f.svc.OpenFile(ctx, f.cert.Filename)
	require.NoError(t, err)
	content, err := io.ReadAll(file)
	file.Close()
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(content[:4]))

	for _, name := range []string{"", "..", "../test.db", "missing.pdf"} {
		_, err := f.svc.OpenFile(ctx, name)
		requireAppError(t, err, http.StatusNotFound, "Certificate file not found")
	}
}

func TestDeleteCertificate(t *testing.T) {
	f := newCertFixture(t)
	ctx := context.Background()

	err := f.svc.Delete(ctx, f.other, f.cert.ID)
	requireAppError(t, err, http.StatusForbidden, "Not authorized to delete this certificate")

	require.NoError(t, f.svc.Delete(ctx, f.student, f.cert.ID))

	_, err = f.store.Open(ctx, f.cert.Filename)
	assert.ErrorIs(t, err, certificates.ErrFileNotFound)

	err = f.svc.Delete(ctx, f.student, f.cert.ID)
	requireAppError(t, err, http.StatusNotFound, "Certificate not found")
}

func TestDeleteCertificateIgnoresMissingFile(t *testing.T) {
	f := newCertFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Delete(ctx, f.cert.Filename))
	require.NoError(t, f.svc.Delete(ctx, f.admin, f.cert.ID))
}

func TestBackfillIDs(t *testing.T) {
	f := newCertFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.db.Model(&models.Certificate{}).Where("id = ?", f.cert.ID).
		Update("certificate_id", nil).Error)
	legacy := models.Certificate{UserID: f.student.ID, CourseID: f.cert.CourseID, Filename: "old.txt", URL: "/uploads/certificates/old.txt"}
	require.NoError(t, f.svc.db.Create(&legacy).Error)

	n, err := f.svc.BackfillIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var certs []models.Certificate
	require.NoError(t, f.svc.db.Find(&certs).Error)
	for _, cert := range certs {
		require.NotNil(t, cert.CertificateID)
		assert.Regexp(t, `^CERT-\d+-[0-9a-z]{9}$`, *cert.CertificateID)
	}

	n, err = f.svc.BackfillIDs(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
