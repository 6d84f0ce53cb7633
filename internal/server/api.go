package server

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"github.com/vanderheijden86/taxa/pkg/listing"
	"github.com/vanderheijden86/taxa/pkg/metrics"
	"github.com/vanderheijden86/taxa/pkg/viewstate"
)

const collectionsKey = "collections"

var sortFields = map[string]bool{
	viewstate.SortByName:   true,
	viewstate.SortByNameZh: true,
	viewstate.SortByStatus: true,
}

type listingAPI struct {
	server *Server
}

func (api *listingAPI) Register(router fiber.Router) {
	s := api.server

	router.Get("/collections", func(c *fiber.Ctx) error {
		if body, ok := s.cache.Get(collectionsKey); ok {
			metrics.CollectionsCache.Hit()
			return sendJSON(c, body)
		}
		metrics.CollectionsCache.Miss()

		payload, err := s.src.Collections(c.UserContext())
		if err != nil {
			return err
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		s.cache.Add(collectionsKey, body)
		return sendJSON(c, body)
	})

	router.Get("/items", func(c *fiber.Ctx) error {
		q, err := api.parseQuery(c)
		if err != nil {
			return err
		}
		// Only the unfiltered listing is shared widely enough to cache.
		cacheable := !q.HasFilter()
		key := "items:" + q.Signature()
		if cacheable {
			if body, ok := s.cache.Get(key); ok {
				metrics.ItemsCache.Hit()
				return sendJSON(c, body)
			}
			metrics.ItemsCache.Miss()
		}

		page, err := s.src.Items(c.UserContext(), q)
		if err != nil {
			return err
		}
		body, err := json.Marshal(page)
		if err != nil {
			return err
		}
		if cacheable {
			s.cache.Add(key, body)
		}
		return sendJSON(c, body)
	})

	router.Get("/items/:id", func(c *fiber.Ctx) error {
		getter, ok := s.src.(listing.ItemGetter)
		if !ok {
			return fiber.NewError(fiber.StatusNotImplemented, "source cannot look up single records")
		}
		rec, err := getter.Item(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(rec)
	})
}

// parseQuery maps the request parameters onto a QueryState. An offset that
// is not a multiple of limit is rounded down to the page start.
func (api *listingAPI) parseQuery(c *fiber.Ctx) (viewstate.QueryState, error) {
	q := viewstate.QueryState{
		FreeText: strings.TrimSpace(c.Query("q")),
		PageSize: api.server.pageSize,
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return q, fiber.NewError(fiber.StatusBadRequest, "limit must be a positive integer")
		}
		q.PageSize = min(n, MaxPageSize)
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return q, fiber.NewError(fiber.StatusBadRequest, "offset must be a non-negative integer")
		}
		q.Page = n / q.PageSize
	}
	if raw := c.Query("collection_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return q, fiber.NewError(fiber.StatusBadRequest, "collection_id must be an integer")
		}
		q.CollectionID = &id
	}
	if field := c.Query("sort"); field != "" {
		if !sortFields[field] {
			return q, fiber.NewError(fiber.StatusBadRequest, "unsupported sort field "+strconv.Quote(field))
		}
		spec := &viewstate.SortSpec{Field: field}
		switch strings.ToLower(c.Query("order", "asc")) {
		case "asc":
		case "desc":
			spec.Direction = viewstate.SortDescending
		default:
			return q, fiber.NewError(fiber.StatusBadRequest, "order must be asc or desc")
		}
		q.Sort = spec
	}
	return q, nil
}

func sendJSON(c *fiber.Ctx, body []byte) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Send(body)
}
