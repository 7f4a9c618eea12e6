package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/imartinezl/patitas/internal/core/domain"
	"github.com/imartinezl/patitas/internal/core/filter"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	guardianType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Guardian",
		Fields: graphql.Fields{
			"name":        &graphql.Field{Type: graphql.String},
			"contact":     &graphql.Field{Type: graphql.String},
			"assigned_at": &graphql.Field{Type: graphql.String},
		},
	})

	sightingType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Sighting",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"type":        &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
			"location":    &graphql.Field{Type: geoPointType},
			"status":      &graphql.Field{Type: graphql.String},
			"reported_at": &graphql.Field{Type: graphql.String},
			"reported_by": &graphql.Field{Type: graphql.String},
			"guardian":    &graphql.Field{Type: guardianType},
		},
	})

	areaType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AreaLabel",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"label":       &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
			"created_at":  &graphql.Field{Type: graphql.String},
		},
	})

	statsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Stats",
		Fields: graphql.Fields{
			"total":   &graphql.Field{Type: graphql.Int},
			"guarded": &graphql.Field{Type: graphql.Int},
			"areas":   &graphql.Field{Type: graphql.Int},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"sightings": &graphql.Field{
				Type:        graphql.NewList(sightingType),
				Description: "List all sightings in report order",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Sightings.List(p.Context)
				},
			},
			"sighting": &graphql.Field{
				Type:        sightingType,
				Description: "Get a sighting by id",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Sightings.Get(p.Context, p.Args["id"].(string))
				},
			},
			"visible": &graphql.Field{
				Type:        graphql.NewList(sightingType),
				Description: "Sightings passing the map filter criteria",
				Args: graphql.FieldConfigArgument{
					"type":      &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: "all"},
					"status":    &graphql.ArgumentConfig{Type: graphql.String},
					"radius_km": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
					"lat":       &graphql.ArgumentConfig{Type: graphql.Float},
					"lng":       &graphql.ArgumentConfig{Type: graphql.Float},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					animals, err := deps.Sightings.List(p.Context)
					if err != nil {
						return nil, err
					}
					criteria := filter.Criteria{
						Type:     filter.TypeFilter(p.Args["type"].(string)),
						RadiusKm: p.Args["radius_km"].(float64),
					}
					if s, ok := p.Args["status"].(string); ok && s != "" {
						status := domain.AnimalStatus(s)
						if status.Valid() {
							criteria.Status = &status
						}
					}
					var location *domain.GeoPoint
					lat, latOK := p.Args["lat"].(float64)
					lng, lngOK := p.Args["lng"].(float64)
					if latOK && lngOK {
						location = &domain.GeoPoint{Lat: lat, Lng: lng}
					}
					return filter.Visible(animals, criteria, location), nil
				},
			},
			"areas": &graphql.Field{
				Type:        graphql.NewList(areaType),
				Description: "List all labeled areas",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Areas.List(p.Context)
				},
			},
			"stats": &graphql.Field{
				Type:        statsType,
				Description: "Dashboard tallies",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Stats.Summary(p.Context)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
