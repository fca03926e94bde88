package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/core/usecases"
)

// DeparturesHandler returns the departure board of a stop.
func DeparturesHandler(deps *Dependencies) fiber.Handler {
	return boardHandler(deps, false)
}

// ArrivalsHandler returns the arrival board of a stop.
func ArrivalsHandler(deps *Dependencies) fiber.Handler {
	return boardHandler(deps, true)
}

func boardHandler(deps *Dependencies, arrivals bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := pathParam(c, "id")
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		opt := usecases.DefaultDeparturesOptions()
		if opt.When, err = queryTime(c, "when"); err != nil {
			return errBadRequest(c, err.Error())
		}
		if opt.Products, err = queryProducts(c, deps.Client.Profile()); err != nil {
			return errBadRequest(c, err.Error())
		}
		opt.Direction = c.Query("direction")
		opt.Line = c.Query("line")
		opt.Duration = c.QueryInt("duration", opt.Duration)
		opt.Results = c.QueryInt("results", opt.Results)
		opt.Stopovers = c.QueryBool("stopovers", opt.Stopovers)
		opt.Remarks = c.QueryBool("remarks", opt.Remarks)
		opt.LinesOfStops = c.QueryBool("lines_of_stops", opt.LinesOfStops)
		opt.IncludeRelatedStations = c.QueryBool("include_related_stations", opt.IncludeRelatedStations)

		var board []*domain.Departure
		if arrivals {
			board, err = deps.Client.Arrivals(c.UserContext(), id, opt)
		} else {
			board, err = deps.Client.Departures(c.UserContext(), id, opt)
		}
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(board)
	}
}

// GetStopHandler returns a single stop by ID.
func GetStopHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := pathParam(c, "id")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		opt := usecases.DefaultStopOptions()
		opt.LinesOfStops = c.QueryBool("lines_of_stops", opt.LinesOfStops)
		opt.Remarks = c.QueryBool("remarks", opt.Remarks)

		stop, err := deps.Client.Stop(c.UserContext(), id, opt)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(stop)
	}
}

// LocationsHandler searches stops, addresses and points of interest by name.
func LocationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("query")
		if query == "" {
			return errBadRequest(c, "query parameter is required")
		}
		if len(query) > 200 {
			return errBadRequest(c, "query too long (max 200 characters)")
		}

		opt := usecases.DefaultLocationsOptions()
		opt.Fuzzy = c.QueryBool("fuzzy", opt.Fuzzy)
		opt.Results = c.QueryInt("results", opt.Results)
		opt.Stops = c.QueryBool("stops", opt.Stops)
		opt.Addresses = c.QueryBool("addresses", opt.Addresses)
		opt.POI = c.QueryBool("poi", opt.POI)
		opt.LinesOfStops = c.QueryBool("lines_of_stops", opt.LinesOfStops)

		locs, err := deps.Client.Locations(c.UserContext(), query, opt)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(locs)
	}
}

// NearbyHandler returns stops and points of interest around a coordinate.
func NearbyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("lat") == "" || c.Query("lon") == "" {
			return errBadRequest(c, "lat and lon are required")
		}
		pt, err := parsePoint(c.Query("lat"), c.Query("lon"))
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		opt := usecases.DefaultNearbyOptions()
		opt.Results = c.QueryInt("results", opt.Results)
		opt.Distance = c.QueryInt("distance", opt.Distance)
		opt.Stops = c.QueryBool("stops", opt.Stops)
		opt.POI = c.QueryBool("poi", opt.POI)
		opt.LinesOfStops = c.QueryBool("lines_of_stops", opt.LinesOfStops)

		locs, err := deps.Client.Nearby(c.UserContext(), *pt, opt)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(locs)
	}
}

// JourneysHandler plans journeys between two locations.
func JourneysHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, err := queryLocation(c, "from")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		to, err := queryLocation(c, "to")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if from == nil || to == nil {
			return errBadRequest(c, "from and to are required")
		}

		opt := usecases.DefaultJourneysOptions()
		if opt.Via, err = queryLocation(c, "via"); err != nil {
			return errBadRequest(c, err.Error())
		}
		if opt.Departure, err = queryTime(c, "departure"); err != nil {
			return errBadRequest(c, err.Error())
		}
		if opt.Arrival, err = queryTime(c, "arrival"); err != nil {
			return errBadRequest(c, err.Error())
		}
		if opt.Products, err = queryProducts(c, deps.Client.Profile()); err != nil {
			return errBadRequest(c, err.Error())
		}
		opt.EarlierThan = c.Query("earlier_than")
		opt.LaterThan = c.Query("later_than")
		opt.Results = c.QueryInt("results", opt.Results)
		opt.Transfers = c.QueryInt("transfers", opt.Transfers)
		opt.TransferTime = c.QueryInt("transfer_time", opt.TransferTime)
		opt.WalkingSpeed = c.Query("walking_speed", opt.WalkingSpeed)
		opt.Berlkoenig = c.QueryBool("berlkoenig", opt.Berlkoenig)
		opt.StartWithWalking = c.QueryBool("start_with_walking", opt.StartWithWalking)
		opt.Stopovers = c.QueryBool("stopovers", opt.Stopovers)
		opt.Tickets = c.QueryBool("tickets", opt.Tickets)
		opt.Polylines = c.QueryBool("polylines", opt.Polylines)
		opt.Remarks = c.QueryBool("remarks", opt.Remarks)
		opt.ScheduledDays = c.QueryBool("scheduled_days", opt.ScheduledDays)

		res, err := deps.Client.Journeys(c.UserContext(), from, to, opt)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(res)
	}
}

// RefreshJourneyHandler re-fetches a journey by its refresh token.
func RefreshJourneyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ref, err := pathParam(c, "ref")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		opt := usecases.DefaultRefreshJourneyOptions()
		opt.Stopovers = c.QueryBool("stopovers", opt.Stopovers)
		opt.Tickets = c.QueryBool("tickets", opt.Tickets)
		opt.Polylines = c.QueryBool("polylines", opt.Polylines)
		opt.Remarks = c.QueryBool("remarks", opt.Remarks)

		j, err := deps.Client.RefreshJourney(c.UserContext(), ref, opt)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(j)
	}
}

// GetTripHandler returns a trip with its stopovers.
func GetTripHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := pathParam(c, "id")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		lineName := c.Query("line_name")
		if lineName == "" {
			return errBadRequest(c, "line_name query parameter is required")
		}

		opt := usecases.DefaultTripOptions()
		opt.Stopovers = c.QueryBool("stopovers", opt.Stopovers)
		opt.Polylines = c.QueryBool("polylines", opt.Polylines)
		opt.Remarks = c.QueryBool("remarks", opt.Remarks)

		trip, err := deps.Client.Trip(c.UserContext(), id, lineName, opt)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(trip)
	}
}

// SearchTripsHandler finds trips by line name or trip number.
func SearchTripsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("query")
		if query == "" {
			return errBadRequest(c, "query parameter is required")
		}
		var opt usecases.TripsByNameOptions
		var err error
		if opt.When, err = queryTime(c, "when"); err != nil {
			return errBadRequest(c, err.Error())
		}

		trips, err := deps.Client.TripsByName(c.UserContext(), query, opt)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(trips)
	}
}

// RadarHandler returns the vehicles inside a bounding box.
func RadarHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, k := range []string{"north", "west", "south", "east"} {
			if c.Query(k) == "" {
				return errBadRequest(c, "north, west, south and east are required")
			}
		}
		bbox := domain.BoundingBox{
			North: c.QueryFloat("north"),
			West:  c.QueryFloat("west"),
			South: c.QueryFloat("south"),
			East:  c.QueryFloat("east"),
		}

		opt := usecases.DefaultRadarOptions()
		var err error
		if opt.When, err = queryTime(c, "when"); err != nil {
			return errBadRequest(c, err.Error())
		}
		if opt.Products, err = queryProducts(c, deps.Client.Profile()); err != nil {
			return errBadRequest(c, err.Error())
		}
		opt.Results = c.QueryInt("results", opt.Results)
		opt.Duration = c.QueryInt("duration", opt.Duration)
		opt.Frames = c.QueryInt("frames", opt.Frames)
		opt.Polylines = c.QueryBool("polylines", opt.Polylines)

		movements, err := deps.Client.Radar(c.UserContext(), bbox, opt)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(movements)
	}
}

// RemarksHandler lists current disruptions and notices.
func RemarksHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		opt := usecases.DefaultRemarksOptions()
		var err error
		if opt.From, err = queryTime(c, "from"); err != nil {
			return errBadRequest(c, err.Error())
		}
		if opt.To, err = queryTime(c, "to"); err != nil {
			return errBadRequest(c, err.Error())
		}
		if opt.Products, err = queryProducts(c, deps.Client.Profile()); err != nil {
			return errBadRequest(c, err.Error())
		}
		opt.Results = c.QueryInt("results", opt.Results)
		opt.Polylines = c.QueryBool("polylines", opt.Polylines)

		remarks, err := deps.Client.Remarks(c.UserContext(), opt)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(remarks)
	}
}

// LinesHandler finds lines matching a name, paginated with offset and limit.
func LinesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := strings.TrimSpace(c.Query("query"))
		if query == "" {
			return errBadRequest(c, "query parameter is required")
		}

		lines, err := deps.Client.Lines(c.UserContext(), query)
		if err != nil {
			return writeError(c, err)
		}

		pg := paginate(c, len(lines), 100, 500)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: lines[pg.Offset:pg.end()], Pagination: pg})
	}
}

// ReachableFromHandler lists the stations reachable from an address, grouped by travel time.
func ReachableFromHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("lat") == "" || c.Query("lon") == "" || c.Query("address") == "" {
			return errBadRequest(c, "lat, lon and address are required")
		}
		pt, err := parsePoint(c.Query("lat"), c.Query("lon"))
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		addr := &domain.Location{Kind: domain.KindAddress, Address: c.Query("address"), Coord: pt}

		opt := usecases.DefaultReachableFromOptions()
		if opt.When, err = queryTime(c, "when"); err != nil {
			return errBadRequest(c, err.Error())
		}
		if opt.Products, err = queryProducts(c, deps.Client.Profile()); err != nil {
			return errBadRequest(c, err.Error())
		}
		opt.MaxTransfers = c.QueryInt("max_transfers", opt.MaxTransfers)
		opt.MaxDuration = c.QueryInt("max_duration", opt.MaxDuration)

		groups, err := deps.Client.ReachableFrom(c.UserContext(), addr, opt)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(groups)
	}
}

// ServerInfoHandler describes the upstream endpoint.
func ServerInfoHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		info, err := deps.Client.ServerInfo(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}
		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(info)
	}
}
