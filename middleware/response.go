package middleware

import (
	"govdocs/apperror"
	"govdocs/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

var log logrus.FieldLogger = logrus.StandardLogger()

// SetLogger replaces the logger used for unexpected handler errors.
func SetLogger(l logrus.FieldLogger) {
	if l != nil {
		log = l
	}
}

func JsonResponse(c *fiber.Ctx, statusCode int, status bool, message string, data interface{}) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

func ValidationErrorResponse(c *fiber.Ctx, errors map[string]string) error {
	return JsonResponse(c, fiber.StatusUnprocessableEntity, false, "Validation failed!", errors)
}

var statusByKind = map[apperror.Kind]int{
	apperror.KindUnauthenticated:   fiber.StatusUnauthorized,
	apperror.KindForbidden:         fiber.StatusForbidden,
	apperror.KindValidation:        fiber.StatusUnprocessableEntity,
	apperror.KindFileTooLarge:      fiber.StatusRequestEntityTooLarge,
	apperror.KindUnsupportedType:   fiber.StatusUnsupportedMediaType,
	apperror.KindNotFound:          fiber.StatusNotFound,
	apperror.KindDuplicateName:     fiber.StatusConflict,
	apperror.KindInvalidTransition: fiber.StatusConflict,
	apperror.KindProfileIncomplete: fiber.StatusPreconditionRequired,
	apperror.KindConflict:          fiber.StatusConflict,
	apperror.KindInUse:             fiber.StatusConflict,
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperror.Kind) int {
	if code, ok := statusByKind[kind]; ok {
		return code
	}
	return fiber.StatusInternalServerError
}

// ErrorResponse writes err in the standard envelope. The data carries the
// machine readable kind and, where present, field errors and the statuses
// of a refused transition. Unexpected errors are logged and hidden.
func ErrorResponse(c *fiber.Ctx, err error) error {
	e := apperror.As(err)
	code := StatusFor(e.Kind)

	switch e.Kind {
	case apperror.KindFileTooLarge, apperror.KindUnsupportedType:
		metrics.UploadRejected(string(e.Kind))
	case apperror.KindInternal:
		log.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("Request failed")
		return JsonResponse(c, code, false, "Internal server error", fiber.Map{"kind": e.Kind})
	}

	data := fiber.Map{"kind": e.Kind}
	if len(e.Fields) > 0 {
		data["fields"] = e.Fields
	}
	if e.Current != "" || e.Attempted != "" {
		data["current"] = e.Current
		data["attempted"] = e.Attempted
	}
	return JsonResponse(c, code, false, e.Message, data)
}
