package controllers

import (
	"path/filepath"
	"strconv"

	"potatolearn/backend/middleware"
	"potatolearn/backend/services"
	"potatolearn/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type CertificatesController struct {
	Certificates *services.CertificateService
}

func NewCertificatesController(certs *services.CertificateService) *CertificatesController {
	return &CertificatesController{Certificates: certs}
}

// GetCertificates ?userId= и ?all=true учитываются только для админа
func (cc *CertificatesController) GetCertificates(c *fiber.Ctx) error {
	filter := services.CertificateFilter{All: c.Query("all") == "true"}
	if userID := c.Query("userId"); userID != "" {
		id, err := strconv.ParseUint(userID, 10, 64)
		if err != nil {
			return utils.ErrValidation("Invalid user ID")
		}
		filter.UserID = uint(id)
	}

	certs, err := cc.Certificates.List(c.UserContext(), middleware.CurrentUser(c), filter)
	if err != nil {
		return err
	}
	return utils.List(c, certs)
}

func (cc *CertificatesController) DownloadCertificate(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "certificate")
	if err != nil {
		return err
	}

	cert, file, err := cc.Certificates.Open(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return err
	}

	c.Attachment(cert.Filename)
	if cert.MimeType != "" {
		c.Set(fiber.HeaderContentType, cert.MimeType)
	}
	// fasthttp закроет file после отправки
	return c.SendStream(file)
}

// ServeFile отдает файл по ссылке из поля url, из того хранилища, что настроено
func (cc *CertificatesController) ServeFile(c *fiber.Ctx) error {
	filename := c.Params("filename")
	file, err := cc.Certificates.OpenFile(c.UserContext(), filename)
	if err != nil {
		return err
	}
	c.Type(filepath.Ext(filename))
	return c.SendStream(file)
}

func (cc *CertificatesController) DeleteCertificate(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "certificate")
	if err != nil {
		return err
	}

	if err := cc.Certificates.Delete(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return err
	}
	return utils.Message(c, fiber.StatusOK, "Certificate deleted")
}
