package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/imartinezl/patitas/internal/core/domain"
	"github.com/imartinezl/patitas/internal/core/filter"
	"github.com/imartinezl/patitas/internal/core/store"
	"github.com/imartinezl/patitas/internal/core/usecases"
	"github.com/imartinezl/patitas/internal/pkg/metrics"
)

// reportRequest is the POST /v1/sightings body.
type reportRequest struct {
	Type        string  `json:"type"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	ReportedBy  string  `json:"reported_by"`
}

// ReportSightingHandler records a new animal sighting.
func ReportSightingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req reportRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		animal, err := deps.Sightings.Report(c.Context(), usecases.ReportInput{
			Type:        domain.AnimalType(req.Type),
			Name:        req.Name,
			Description: req.Description,
			Location:    domain.GeoPoint{Lat: req.Lat, Lng: req.Lng},
			ReportedBy:  req.ReportedBy,
		})
		if err != nil {
			if errors.Is(err, store.ErrDuplicateID) {
				return errConflict(c, err.Error())
			}
			return errBadRequest(c, err.Error())
		}
		metrics.SightingsReported.WithLabelValues(string(animal.Type)).Inc()
		return c.Status(201).JSON(animal)
	}
}

// ListSightingsHandler returns all sightings, paginated, optionally
// narrowed by the same criteria the map filter uses.
func ListSightingsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		animals, err := deps.Sightings.List(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}

		if criteria, location, ok := criteriaFromQuery(c); ok {
			animals = filter.Visible(animals, criteria, location)
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 100
		}

		total := len(animals)
		if offset >= total {
			animals = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			animals = animals[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: animals, Pagination: pg})
	}
}

// criteriaFromQuery maps ?type=&status=&radius_km=&lat=&lng= onto filter
// criteria. Returns ok=false when no filter parameter is present.
func criteriaFromQuery(c *fiber.Ctx) (filter.Criteria, *domain.GeoPoint, bool) {
	typ := c.Query("type")
	status := c.Query("status")
	radius := c.QueryFloat("radius_km", 0)
	if typ == "" && status == "" && radius == 0 {
		return filter.Criteria{}, nil, false
	}

	criteria := filter.Criteria{
		Type:     filter.TypeFilter(typ),
		RadiusKm: radius,
	}
	if status != "" {
		s := domain.AnimalStatus(status)
		if s.Valid() {
			criteria.Status = &s
		}
	}

	var location *domain.GeoPoint
	lat := c.QueryFloat("lat", 0)
	lng := c.QueryFloat("lng", 0)
	if lat != 0 || lng != 0 {
		location = &domain.GeoPoint{Lat: lat, Lng: lng}
	}
	return criteria, location, true
}

// GetSightingHandler returns a single sighting by id.
func GetSightingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		animal, err := deps.Sightings.Get(c.Context(), c.Params("id"))
		if err != nil {
			if errors.Is(err, usecases.ErrNotFound) {
				return errNotFound(c, "sighting not found")
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(animal)
	}
}

// statusRequest is the PATCH /v1/sightings/:id/status body.
type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatusHandler moves a sighting through its lifecycle.
func UpdateStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req statusRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		animal, err := deps.Sightings.UpdateStatus(c.Context(), c.Params("id"), domain.AnimalStatus(req.Status))
		if err != nil {
			if errors.Is(err, usecases.ErrNotFound) {
				return errNotFound(c, "sighting not found")
			}
			return errBadRequest(c, err.Error())
		}
		metrics.StatusTransitions.WithLabelValues(string(animal.Status)).Inc()
		return c.JSON(animal)
	}
}

// guardianRequest is the PUT /v1/sightings/:id/guardian body.
type guardianRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

// AssignGuardianHandler stamps a sighting with a caretaker.
func AssignGuardianHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req guardianRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		animal, err := deps.Sightings.AssignGuardian(c.Context(), c.Params("id"), req.Name, req.Contact)
		if err != nil {
			switch {
			case errors.Is(err, usecases.ErrNotFound):
				return errNotFound(c, "sighting not found")
			case errors.Is(err, usecases.ErrGuardianAtCapacity):
				return errConflict(c, "guardian already cares for the maximum number of animals")
			default:
				return errBadRequest(c, err.Error())
			}
		}
		metrics.GuardianAssignments.Inc()
		return c.JSON(animal)
	}
}

// RemoveGuardianHandler releases a sighting's caretaker.
func RemoveGuardianHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := deps.Sightings.RemoveGuardian(c.Context(), c.Params("id"))
		if err != nil {
			if errors.Is(err, usecases.ErrNotFound) {
				return errNotFound(c, "sighting not found")
			}
			return errInternal(c, err.Error())
		}
		return c.SendStatus(204)
	}
}

// ListAreasHandler returns all labeled areas.
func ListAreasHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		areas, err := deps.Areas.List(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(areas)
	}
}

// areaRequest is the POST /v1/areas body.
type areaRequest struct {
	Label       string       `json:"label"`
	Description string       `json:"description"`
	Coordinates [][2]float64 `json:"coordinates"` // [lng, lat] pairs
}

// CreateAreaHandler records a labeled polygon drawn outside the map
// (imports, admin tooling).
func CreateAreaHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req areaRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		coords := make([]domain.LngLat, len(req.Coordinates))
		for i, p := range req.Coordinates {
			coords[i] = domain.LngLat(p)
		}
		area, err := deps.Areas.AddAreaLabel(req.Label, req.Description, coords)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		metrics.AreasLabeled.Inc()
		return c.Status(201).JSON(area)
	}
}

// StatsHandler returns dashboard tallies.
func StatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := deps.Stats.Summary(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set("Cache-Control", "public, max-age=30")
		return c.JSON(stats)
	}
}
