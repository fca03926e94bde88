package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/core/usecases"
)

// buildSchema creates the GraphQL schema over the client. Fields resolve
// through the JSON tags of the domain types.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	locationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Location",
		Fields: graphql.Fields{
			"type":     &graphql.Field{Type: graphql.String},
			"id":       &graphql.Field{Type: graphql.String},
			"name":     &graphql.Field{Type: graphql.String},
			"address":  &graphql.Field{Type: graphql.String},
			"location": &graphql.Field{Type: geoPointType},
			"distance": &graphql.Field{Type: graphql.Int},
		},
	})

	operatorType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Operator",
		Fields: graphql.Fields{
			"id":   &graphql.Field{Type: graphql.String},
			"name": &graphql.Field{Type: graphql.String},
		},
	})

	lineType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Line",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"fahrt_nr":   &graphql.Field{Type: graphql.String},
			"name":       &graphql.Field{Type: graphql.String},
			"public":     &graphql.Field{Type: graphql.Boolean},
			"admin_code": &graphql.Field{Type: graphql.String},
			"mode":       &graphql.Field{Type: graphql.String},
			"product":    &graphql.Field{Type: graphql.String},
			"operator":   &graphql.Field{Type: operatorType},
		},
	})

	remarkType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Remark",
		Fields: graphql.Fields{
			"type":        &graphql.Field{Type: graphql.String},
			"id":          &graphql.Field{Type: graphql.String},
			"code":        &graphql.Field{Type: graphql.String},
			"summary":     &graphql.Field{Type: graphql.String},
			"text":        &graphql.Field{Type: graphql.String},
			"valid_from":  &graphql.Field{Type: graphql.DateTime},
			"valid_until": &graphql.Field{Type: graphql.DateTime},
		},
	})

	departureType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Departure",
		Fields: graphql.Fields{
			"trip_id":          &graphql.Field{Type: graphql.String},
			"stop":             &graphql.Field{Type: locationType},
			"when":             &graphql.Field{Type: graphql.DateTime},
			"planned_when":     &graphql.Field{Type: graphql.DateTime},
			"delay":            &graphql.Field{Type: graphql.Int},
			"platform":         &graphql.Field{Type: graphql.String},
			"planned_platform": &graphql.Field{Type: graphql.String},
			"direction":        &graphql.Field{Type: graphql.String},
			"line":             &graphql.Field{Type: lineType},
			"cancelled":        &graphql.Field{Type: graphql.Boolean},
			"remarks":          &graphql.Field{Type: graphql.NewList(remarkType)},
		},
	})

	stopoverType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Stopover",
		Fields: graphql.Fields{
			"stop":               &graphql.Field{Type: locationType},
			"arrival":            &graphql.Field{Type: graphql.DateTime},
			"arrival_delay":      &graphql.Field{Type: graphql.Int},
			"departure":          &graphql.Field{Type: graphql.DateTime},
			"departure_delay":    &graphql.Field{Type: graphql.Int},
			"departure_platform": &graphql.Field{Type: graphql.String},
			"cancelled":          &graphql.Field{Type: graphql.Boolean},
		},
	})

	legType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Leg",
		Fields: graphql.Fields{
			"origin":             &graphql.Field{Type: locationType},
			"destination":        &graphql.Field{Type: locationType},
			"departure":          &graphql.Field{Type: graphql.DateTime},
			"planned_departure":  &graphql.Field{Type: graphql.DateTime},
			"departure_delay":    &graphql.Field{Type: graphql.Int},
			"departure_platform": &graphql.Field{Type: graphql.String},
			"arrival":            &graphql.Field{Type: graphql.DateTime},
			"planned_arrival":    &graphql.Field{Type: graphql.DateTime},
			"arrival_delay":      &graphql.Field{Type: graphql.Int},
			"arrival_platform":   &graphql.Field{Type: graphql.String},
			"walking":            &graphql.Field{Type: graphql.Boolean},
			"distance":           &graphql.Field{Type: graphql.Int},
			"trip_id":            &graphql.Field{Type: graphql.String},
			"line":               &graphql.Field{Type: lineType},
			"direction":          &graphql.Field{Type: graphql.String},
			"cancelled":          &graphql.Field{Type: graphql.Boolean},
			"stopovers":          &graphql.Field{Type: graphql.NewList(stopoverType)},
			"remarks":            &graphql.Field{Type: graphql.NewList(remarkType)},
		},
	})

	journeyType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Journey",
		Fields: graphql.Fields{
			"type":          &graphql.Field{Type: graphql.String},
			"legs":          &graphql.Field{Type: graphql.NewList(legType)},
			"refresh_token": &graphql.Field{Type: graphql.String},
			"remarks":       &graphql.Field{Type: graphql.NewList(remarkType)},
		},
	})

	journeysType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Journeys",
		Fields: graphql.Fields{
			"earlier_ref": &graphql.Field{Type: graphql.String},
			"later_ref":   &graphql.Field{Type: graphql.String},
			"journeys":    &graphql.Field{Type: graphql.NewList(journeyType)},
		},
	})

	serverInfoType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ServerInfo",
		Fields: graphql.Fields{
			"timetable_start": &graphql.Field{Type: graphql.String},
			"timetable_end":   &graphql.Field{Type: graphql.String},
			"server_time":     &graphql.Field{Type: graphql.DateTime},
		},
	})

	boardArgs := graphql.FieldConfigArgument{
		"stop":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
		"when":     &graphql.ArgumentConfig{Type: graphql.DateTime},
		"duration": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 10},
		"results":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
	}
	board := func(arrivals bool) graphql.FieldResolveFn {
		return func(p graphql.ResolveParams) (interface{}, error) {
			opt := usecases.DefaultDeparturesOptions()
			opt.When = timeArg(p.Args, "when")
			opt.Duration = p.Args["duration"].(int)
			opt.Results = p.Args["results"].(int)
			stop := p.Args["stop"].(string)
			if arrivals {
				return deps.Client.Arrivals(p.Context, stop, opt)
			}
			return deps.Client.Departures(p.Context, stop, opt)
		}
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"departures": &graphql.Field{
				Type:        graphql.NewList(departureType),
				Description: "Departure board of a stop",
				Args:        boardArgs,
				Resolve:     board(false),
			},
			"arrivals": &graphql.Field{
				Type:        graphql.NewList(departureType),
				Description: "Arrival board of a stop",
				Args:        boardArgs,
				Resolve:     board(true),
			},
			"stop": &graphql.Field{
				Type:        locationType,
				Description: "Get a stop by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Client.Stop(p.Context, p.Args["id"].(string), usecases.DefaultStopOptions())
				},
			},
			"locations": &graphql.Field{
				Type:        graphql.NewList(locationType),
				Description: "Search stops, addresses and points of interest by name",
				Args: graphql.FieldConfigArgument{
					"query":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"results": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 5},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					opt := usecases.DefaultLocationsOptions()
					opt.Results = p.Args["results"].(int)
					return deps.Client.Locations(p.Context, p.Args["query"].(string), opt)
				},
			},
			"nearby": &graphql.Field{
				Type:        graphql.NewList(locationType),
				Description: "Find stops near a coordinate",
				Args: graphql.FieldConfigArgument{
					"lat":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"distance": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"results":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 8},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					opt := usecases.DefaultNearbyOptions()
					opt.Distance = p.Args["distance"].(int)
					opt.Results = p.Args["results"].(int)
					pt := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)}
					return deps.Client.Nearby(p.Context, pt, opt)
				},
			},
			"journeys": &graphql.Field{
				Type:        journeysType,
				Description: "Journeys between two stops",
				Args: graphql.FieldConfigArgument{
					"from":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"to":         &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"departure":  &graphql.ArgumentConfig{Type: graphql.DateTime},
					"later_than": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"results":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"stopovers":  &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					opt := usecases.DefaultJourneysOptions()
					opt.Departure = timeArg(p.Args, "departure")
					opt.LaterThan = p.Args["later_than"].(string)
					opt.Results = p.Args["results"].(int)
					opt.Stopovers = p.Args["stopovers"].(bool)
					from := domain.StationRef(p.Args["from"].(string))
					to := domain.StationRef(p.Args["to"].(string))
					return deps.Client.Journeys(p.Context, from, to, opt)
				},
			},
			"remarks": &graphql.Field{
				Type:        graphql.NewList(remarkType),
				Description: "Current disruptions and notices",
				Args: graphql.FieldConfigArgument{
					"results": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					opt := usecases.DefaultRemarksOptions()
					opt.Results = p.Args["results"].(int)
					return deps.Client.Remarks(p.Context, opt)
				},
			},
			"serverInfo": &graphql.Field{
				Type:        serverInfoType,
				Description: "Timetable period and clock of the upstream endpoint",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Client.ServerInfo(p.Context)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func timeArg(args map[string]interface{}, key string) *time.Time {
	if t, ok := args[key].(time.Time); ok {
		return &t
	}
	return nil
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
			return errBadRequest(c, "invalid request body")
		}
		if req.Query == "" {
			return errBadRequest(c, "query is required")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
