package quotation

import (
	"krishi-backend/internal/api"
	"krishi-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func filterFromQuery(c *fiber.Ctx) ListFilter {
	return ListFilter{
		Status: c.Query("status"),
		Type:   c.Query("type"),
		Search: c.Query("search"),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 0),
	}
}

func CreateQuotationHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in CreateInput
		if err := api.Parse(c, &in); err != nil {
			return err
		}
		q, err := svc.Create(c.UserContext(), auth.ActorFrom(c), in)
		if err != nil {
			return err
		}
		return api.Created(c, "Quotation request submitted successfully", q)
	}
}

func ListQuotationsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, p, err := svc.List(c.UserContext(), filterFromQuery(c))
		if err != nil {
			return err
		}
		return api.Page(c, items, p)
	}
}

func MyQuotationsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, p, err := svc.Mine(c.UserContext(), auth.ActorFrom(c), filterFromQuery(c))
		if err != nil {
			return err
		}
		return api.Page(c, items, p)
	}
}

func CustomerQuotationsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.ByCustomer(c.UserContext(), c.Params("phone"))
		if err != nil {
			return err
		}
		return api.Counted(c, items)
	}
}

func GetQuotationHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		return api.OK(c, "", q)
	}
}

func StatsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := svc.Stats(c.UserContext())
		if err != nil {
			return err
		}
		return api.OK(c, "", st)
	}
}

func AcceptHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in AcceptInput
		if err := api.Parse(c, &in); err != nil {
			return err
		}
		q, err := svc.Accept(c.UserContext(), auth.ActorFrom(c), c.Params("id"), in)
		if err != nil {
			return err
		}
		return api.OK(c, "Quotation accepted", q)
	}
}

func CancelHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in CancelInput
		if len(c.Body()) > 0 {
			if err := api.Parse(c, &in); err != nil {
				return err
			}
		}
		q, err := svc.Cancel(c.UserContext(), auth.ActorFrom(c), c.Params("id"), in)
		if err != nil {
			return err
		}
		return api.OK(c, "Quotation cancelled", q)
	}
}

func CompleteHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in CompleteInput
		if err := api.Parse(c, &in); err != nil {
			return err
		}
		q, err := svc.Complete(c.UserContext(), auth.ActorFrom(c), c.Params("id"), in)
		if err != nil {
			return err
		}
		return api.OK(c, "Quotation completed, thank you for the feedback", q)
	}
}

func UpdateDetailsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in DetailsInput
		if err := api.Parse(c, &in); err != nil {
			return err
		}
		q, err := svc.UpdateDetails(c.UserContext(), auth.ActorFrom(c), c.Params("id"), in)
		if err != nil {
			return err
		}
		return api.OK(c, "Quotation updated", q)
	}
}

func AddNoteHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in NoteInput
		if err := api.Parse(c, &in); err != nil {
			return err
		}
		q, err := svc.AddNote(c.UserContext(), auth.ActorFrom(c), c.Params("id"), in)
		if err != nil {
			return err
		}
		return api.OK(c, "Note added", q)
	}
}

func DeleteQuotationHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), auth.ActorFrom(c), c.Params("id")); err != nil {
			return err
		}
		return api.OK(c, "Quotation deleted", nil)
	}
}
