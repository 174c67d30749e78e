package web

import (
	"bytes"
	"strings"

	"github.com/dukex/restflow/pkg/dispatch"
	"github.com/gofiber/fiber/v3"
)

// DispatchHandler serves routed calls through d. Headers with several values are joined
// with ", ".
func DispatchHandler(d *dispatch.Dispatcher) fiber.Handler {
	return func(c fiber.Ctx) error {
		headers := make(map[string]string)
		for name, values := range c.GetReqHeaders() {
			headers[name] = strings.Join(values, ", ")
		}

		req := &dispatch.Request{
			Method:      c.Method(),
			URL:         c.BaseURL() + c.OriginalURL(),
			Path:        c.Path(),
			Headers:     headers,
			Body:        bytes.Clone(c.Body()),
			ContentType: c.Get(fiber.HeaderContentType),
		}

		resp, err := d.Dispatch(c.Context(), req)
		if err != nil {
			return dispatchError(c, err)
		}

		for name, value := range resp.Headers {
			c.Set(name, value)
		}

		c.Status(resp.StatusCode)

		if len(resp.Body) == 0 {
			return nil
		}

		return c.Send(resp.Body)
	}
}
