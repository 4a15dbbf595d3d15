package applicationController

import (
	"bufio"
	"context"
	"fmt"

	"govdocs/middleware"
	"govdocs/services/certificates"
	"govdocs/utils"
	"govdocs/validators"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type CertificateHandler struct {
	Certificates *certificates.Service
	Logger       *logrus.Logger
}

func (h *CertificateHandler) Get(c *fiber.Ctx) error {
	cert, err := h.Certificates.Get(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate fetched successfully.", fiber.Map{
		"certificate": cert,
		"verify_url":  h.Certificates.VerifyURL(cert.CertificateNumber),
	})
}

func (h *CertificateHandler) List(c *fiber.Ctx) error {
	page := validators.PageOf(c)
	list, total, err := h.Certificates.List(c.UserContext(), middleware.CurrentIdentity(c), page.Page, page.Limit)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificates fetched successfully.",
		utils.Paginated("certificates", list, total, page.Page, page.Limit))
}

func (h *CertificateHandler) Download(c *fiber.Ctx) error {
	rc, cert, err := h.Certificates.Open(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	if cert.ContentType != "" {
		c.Set(fiber.HeaderContentType, cert.ContentType)
	}
	c.Attachment(cert.FileName)
	// fasthttp closes rc once the body is written.
	return c.SendStream(rc, int(cert.Size))
}

// Bundle streams the zip straight into the response; nothing is buffered
// beyond one file at a time.
func (h *CertificateHandler) Bundle(c *fiber.Ctx) error {
	b, err := h.Certificates.PrepareBundle(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, b.FileName))

	documentID := c.Locals("id").(uint)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		// The request context is gone once the handler returns.
		if err := h.Certificates.WriteBundle(context.Background(), b, w); err != nil {
			h.Logger.WithError(err).WithField("document_id", documentID).Error("Failed to stream bundle")
		}
		w.Flush()
	})
	return nil
}

func (h *CertificateHandler) QRCode(c *fiber.Ctx) error {
	png, err := h.Certificates.QRCode(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}

// Verify is public.
func (h *CertificateHandler) Verify(c *fiber.Ctx) error {
	v, err := h.Certificates.Verify(c.UserContext(), c.Params("number"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate is valid.", v)
}
