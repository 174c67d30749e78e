package web

import (
	"github.com/dukex/restflow/pkg/faults"
	"github.com/dukex/restflow/pkg/persistence"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handlePersistenceError maps storage lookups to 404 and everything else to 500.
func handlePersistenceError(c fiber.Ctx, err error) error {
	switch {
	case persistence.IsRouteNotFound(err):
		return notFound(c, "route not found")
	case persistence.IsFlowNotFound(err):
		return notFound(c, "flow not found")
	case persistence.IsRequestNotFound(err):
		return notFound(c, "request not found")
	default:
		return internalError(c, err)
	}
}

// dispatchError answers failures that happened before a request record existed.
func dispatchError(c fiber.Ctx, err error) error {
	code := faults.StatusCode(err)

	problem := problems.NewStatusProblem(code).
		WithInstance(c.Path()).
		WithType(faults.KindOf(err).String()).
		WithDetail(err.Error())

	return c.Status(code).JSON(problem)
}
