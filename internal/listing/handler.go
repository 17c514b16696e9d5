package listing

import (
	"bytes"

	"krishi-backend/internal/api"
	"krishi-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func filterFromQuery(c *fiber.Ctx) ListFilter {
	return ListFilter{
		Status:  c.Query("status"),
		Crop:    c.Query("crop"),
		Quality: c.Query("quality"),
		Search:  c.Query("search"),
		Page:    c.QueryInt("page", 1),
		Limit:   c.QueryInt("limit", 0),
	}
}

func CreateListingHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in CreateInput
		if err := api.Parse(c, &in); err != nil {
			return err
		}
		l, err := svc.Create(c.UserContext(), auth.ActorFrom(c), in)
		if err != nil {
			return err
		}
		return api.Created(c, "Crop listing created successfully", l)
	}
}

func ListListingsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, p, err := svc.List(c.UserContext(), filterFromQuery(c))
		if err != nil {
			return err
		}
		return api.Page(c, items, p)
	}
}

func MyListingsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, p, err := svc.Mine(c.UserContext(), auth.ActorFrom(c), filterFromQuery(c))
		if err != nil {
			return err
		}
		return api.Page(c, items, p)
	}
}

func SellerListingsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.BySeller(c.UserContext(), c.Params("phone"))
		if err != nil {
			return err
		}
		return api.Counted(c, items)
	}
}

func GetListingHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		l, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		return api.OK(c, "", l)
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

// ExpressInterestHandler is mounted behind the optional JWT middleware.
func ExpressInterestHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in InterestInput
		if err := api.Parse(c, &in); err != nil {
			return err
		}
		l, err := svc.ExpressInterest(c.UserContext(), auth.ActorFrom(c), c.Params("id"), in)
		if err != nil {
			return err
		}
		return api.OK(c, "Interest recorded, the seller will contact you", l)
	}
}

func NegotiateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in NegotiateInput
		if len(c.Body()) > 0 {
			if err := api.Parse(c, &in); err != nil {
				return err
			}
		}
		l, err := svc.StartNegotiation(c.UserContext(), auth.ActorFrom(c), c.Params("id"), in)
		if err != nil {
			return err
		}
		return api.OK(c, "Negotiation started", l)
	}
}

func MarkSoldHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in SaleInput
		if err := api.Parse(c, &in); err != nil {
			return err
		}
		l, err := svc.MarkSold(c.UserContext(), auth.ActorFrom(c), c.Params("id"), in)
		if err != nil {
			return err
		}
		return api.OK(c, "Listing marked as sold", l)
	}
}

func CancelListingHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in CancelInput
		if len(c.Body()) > 0 {
			if err := api.Parse(c, &in); err != nil {
				return err
			}
		}
		l, err := svc.Cancel(c.UserContext(), auth.ActorFrom(c), c.Params("id"), in)
		if err != nil {
			return err
		}
		return api.OK(c, "Listing cancelled", l)
	}
}

func UpdateStatusHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in StatusInput
		if err := api.Parse(c, &in); err != nil {
			return err
		}
		l, err := svc.UpdateStatus(c.UserContext(), auth.ActorFrom(c), c.Params("id"), in)
		if err != nil {
			return err
		}
		return api.OK(c, "Listing status updated", l)
	}
}

func AddNoteHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in NoteInput
		if err := api.Parse(c, &in); err != nil {
			return err
		}
		l, err := svc.AddNote(c.UserContext(), auth.ActorFrom(c), c.Params("id"), in)
		if err != nil {
			return err
		}
		return api.OK(c, "Note added", l)
	}
}

func DeleteListingHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), auth.ActorFrom(c), c.Params("id")); err != nil {
			return err
		}
		return api.OK(c, "Crop listing deleted", nil)
	}
}

// ExportMineHandler streams the caller's listings as an Excel workbook.
func ExportMineHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var buf bytes.Buffer
		if err := svc.ExportMine(c.UserContext(), auth.ActorFrom(c), &buf); err != nil {
			return err
		}
		c.Attachment("my-crop-listings.xlsx")
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		return c.Send(buf.Bytes())
	}
}
