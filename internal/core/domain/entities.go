package domain

import (
	"time"
)

// LocationKind tags the variant a Location represents.
type LocationKind string

const (
	KindStop    LocationKind = "stop"
	KindStation LocationKind = "station"
	KindAddress LocationKind = "address"
	KindPOI     LocationKind = "poi"
	// KindPoint is a bare coordinate, e.g. a radar query corner.
	KindPoint LocationKind = "location"
)

// Location is a stop, station, address or point of interest.
type Location struct {
	Kind     LocationKind    `json:"type"`
	ID       string          `json:"id,omitempty"`
	Name     string          `json:"name,omitempty"`
	Address  string          `json:"address,omitempty"`
	Coord    *GeoPoint       `json:"location,omitempty"`
	Station  *Location       `json:"station,omitempty"`
	Products map[string]bool `json:"products,omitempty"`
	Lines    []*Line         `json:"lines,omitempty"`
	IsMeta   bool            `json:"is_meta,omitempty"`
	// Stops lists the sub-stops of a station.
	Stops     []*Location `json:"stops,omitempty"`
	Entrances []GeoPoint  `json:"entrances,omitempty"`
	// Distance is set by nearby queries, in meters.
	Distance *int `json:"distance,omitempty"`
}

// IsStop reports whether l is a stop or a station.
func (l *Location) IsStop() bool {
	return l != nil && (l.Kind == KindStop || l.Kind == KindStation)
}

// StationRef builds a location that only carries a station ID, for use as a query input.
func StationRef(id string) *Location {
	return &Location{Kind: KindStation, ID: id}
}

// Operator runs a line.
type Operator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Color is an RGBA colour as HAFAS reports it.
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
	A int `json:"a,omitempty"`
}

// Icon is a pictogram attached to lines and remarks.
type Icon struct {
	Type    string `json:"type"`
	Title   string `json:"title,omitempty"`
	FgColor *Color `json:"fg_color,omitempty"`
	BgColor *Color `json:"bg_color,omitempty"`
}

// Line is a public transport line.
type Line struct {
	ID        string    `json:"id,omitempty"`
	FahrtNr   string    `json:"fahrt_nr,omitempty"`
	Name      string    `json:"name,omitempty"`
	Public    bool      `json:"public"`
	AdminCode string    `json:"admin_code,omitempty"`
	Mode      string    `json:"mode,omitempty"`
	Product   string    `json:"product,omitempty"`
	Operator  *Operator `json:"operator,omitempty"`
	Icon      *Icon     `json:"icon,omitempty"`

	// Set by profiles that classify lines further.
	Symbol  string `json:"symbol,omitempty"`
	Nr      *int   `json:"nr,omitempty"`
	Metro   bool   `json:"metro,omitempty"`
	Express bool   `json:"express,omitempty"`
	Night   bool   `json:"night,omitempty"`

	// Set by line listings only.
	Directions []string `json:"directions,omitempty"`
	Trips      []*Trip  `json:"trips,omitempty"`
}

// RemarkType tags the kind of a Remark.
type RemarkType string

const (
	RemarkHint      RemarkType = "hint"
	RemarkStatus    RemarkType = "status"
	RemarkWarning   RemarkType = "warning"
	RemarkForeignID RemarkType = "foreign-id"
	RemarkStopDHID  RemarkType = "stop-dhid"
)

// Remark is a hint, status message or warning attached to a result.
type Remark struct {
	Type    RemarkType `json:"type"`
	ID      string     `json:"id,omitempty"`
	Code    string     `json:"code,omitempty"`
	Summary string     `json:"summary,omitempty"`
	Text    string     `json:"text,omitempty"`
	// TripID points at an alternative trip.
	TripID   string          `json:"trip_id,omitempty"`
	Icon     *Icon           `json:"icon,omitempty"`
	Priority *int            `json:"priority,omitempty"`
	Category *int            `json:"category,omitempty"`
	Products map[string]bool `json:"products,omitempty"`
	Lines    []*Line         `json:"lines,omitempty"`

	ValidFrom  *time.Time `json:"valid_from,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
	Modified   *time.Time `json:"modified,omitempty"`
}

// Stopover is a call of a trip at a stop.
type Stopover struct {
	Stop *Location `json:"stop"`

	Arrival                  *time.Time `json:"arrival"`
	PlannedArrival           *time.Time `json:"planned_arrival"`
	PrognosedArrival         *time.Time `json:"prognosed_arrival,omitempty"`
	ArrivalDelay             *int       `json:"arrival_delay"`
	ArrivalPlatform          string     `json:"arrival_platform,omitempty"`
	PlannedArrivalPlatform   string     `json:"planned_arrival_platform,omitempty"`
	PrognosedArrivalPlatform string     `json:"prognosed_arrival_platform,omitempty"`

	Departure                  *time.Time `json:"departure"`
	PlannedDeparture           *time.Time `json:"planned_departure"`
	PrognosedDeparture         *time.Time `json:"prognosed_departure,omitempty"`
	DepartureDelay             *int       `json:"departure_delay"`
	DeparturePlatform          string     `json:"departure_platform,omitempty"`
	PlannedDeparturePlatform   string     `json:"planned_departure_platform,omitempty"`
	PrognosedDeparturePlatform string     `json:"prognosed_departure_platform,omitempty"`

	// PassBy marks a stop the vehicle passes without halting.
	PassBy    bool      `json:"pass_by,omitempty"`
	Cancelled bool      `json:"cancelled,omitempty"`
	Remarks   []*Remark `json:"remarks,omitempty"`
}

// Departure is a station board entry. Arrivals use the same shape.
type Departure struct {
	TripID string    `json:"trip_id"`
	Stop   *Location `json:"stop"`

	When          *time.Time `json:"when"`
	PlannedWhen   *time.Time `json:"planned_when"`
	PrognosedWhen *time.Time `json:"prognosed_when,omitempty"`
	Delay         *int       `json:"delay"`

	Platform          string `json:"platform,omitempty"`
	PlannedPlatform   string `json:"planned_platform,omitempty"`
	PrognosedPlatform string `json:"prognosed_platform,omitempty"`

	Direction string    `json:"direction,omitempty"`
	Line      *Line     `json:"line,omitempty"`
	Remarks   []*Remark `json:"remarks,omitempty"`
	Cancelled bool      `json:"cancelled,omitempty"`

	NextStopovers     []*Stopover `json:"next_stopovers,omitempty"`
	PreviousStopovers []*Stopover `json:"previous_stopovers,omitempty"`
}

// Arrival is a station board entry for an arriving trip.
type Arrival = Departure

// Cycle describes how often a trip or journey repeats, in seconds.
// Fields the upstream leaves out stay nil.
type Cycle struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
	Nr  *int `json:"nr,omitempty"`
}

// Alternative is another trip serving the same leg.
type Alternative struct {
	TripID    string     `json:"trip_id"`
	Line      *Line      `json:"line,omitempty"`
	Direction string     `json:"direction,omitempty"`
	When      *time.Time `json:"when"`
	Planned   *time.Time `json:"planned_when"`
	Delay     *int       `json:"delay"`
}

// Leg is one part of a journey: a ride on a trip, or a walk or transfer.
type Leg struct {
	Origin      *Location `json:"origin"`
	Destination *Location `json:"destination"`

	Departure          *time.Time `json:"departure"`
	PlannedDeparture   *time.Time `json:"planned_departure"`
	PrognosedDeparture *time.Time `json:"prognosed_departure,omitempty"`
	DepartureDelay     *int       `json:"departure_delay"`

	Arrival          *time.Time `json:"arrival"`
	PlannedArrival   *time.Time `json:"planned_arrival"`
	PrognosedArrival *time.Time `json:"prognosed_arrival,omitempty"`
	ArrivalDelay     *int       `json:"arrival_delay"`

	DeparturePlatform          string `json:"departure_platform,omitempty"`
	PlannedDeparturePlatform   string `json:"planned_departure_platform,omitempty"`
	PrognosedDeparturePlatform string `json:"prognosed_departure_platform,omitempty"`
	ArrivalPlatform            string `json:"arrival_platform,omitempty"`
	PlannedArrivalPlatform     string `json:"planned_arrival_platform,omitempty"`
	PrognosedArrivalPlatform   string `json:"prognosed_arrival_platform,omitempty"`

	Walking   bool  `json:"walking,omitempty"`
	Transfer  bool  `json:"transfer,omitempty"`
	Public    bool  `json:"public,omitempty"`
	Distance  *int  `json:"distance,omitempty"`
	Reachable *bool `json:"reachable,omitempty"`

	TripID       string         `json:"trip_id,omitempty"`
	Line         *Line          `json:"line,omitempty"`
	Direction    string         `json:"direction,omitempty"`
	Stopovers    []*Stopover    `json:"stopovers,omitempty"`
	Polyline     *Polyline      `json:"polyline,omitempty"`
	Cycle        *Cycle         `json:"cycle,omitempty"`
	Alternatives []*Alternative `json:"alternatives,omitempty"`
	Remarks      []*Remark      `json:"remarks,omitempty"`
	Cancelled    bool           `json:"cancelled,omitempty"`
}

// Journey is a way to travel from origin to destination.
type Journey struct {
	Type          string          `json:"type"`
	Legs          []*Leg          `json:"legs"`
	RefreshToken  string          `json:"refresh_token,omitempty"`
	Cycle         *Cycle          `json:"cycle,omitempty"`
	Remarks       []*Remark       `json:"remarks,omitempty"`
	ScheduledDays map[string]bool `json:"scheduled_days,omitempty"`
}

// Journeys is one page of journey search results.
type Journeys struct {
	EarlierRef       string     `json:"earlier_ref,omitempty"`
	LaterRef         string     `json:"later_ref,omitempty"`
	Journeys         []*Journey `json:"journeys"`
	RealtimeDataFrom *int64     `json:"realtime_data_from,omitempty"`
}

// Trip is a single run of a vehicle along its line.
type Trip struct {
	ID string `json:"id"`
	Leg
}

// Frame is one step of an interpolated vehicle movement.
type Frame struct {
	Origin      *Location `json:"origin"`
	Destination *Location `json:"destination"`
	// T is the offset from the query time, in milliseconds.
	T int `json:"t"`
}

// Movement is a vehicle position returned by a radar query.
type Movement struct {
	Direction     string      `json:"direction,omitempty"`
	TripID        string      `json:"trip_id"`
	TripNumber    *int        `json:"trip_number,omitempty"`
	Line          *Line       `json:"line,omitempty"`
	Location      *GeoPoint   `json:"location,omitempty"`
	NextStopovers []*Stopover `json:"next_stopovers,omitempty"`
	Frames        []Frame     `json:"frames"`
	Polyline      *Polyline   `json:"polyline,omitempty"`
}

// ReachableGroup lists the stations reachable within the same number of minutes.
type ReachableGroup struct {
	Duration int         `json:"duration"`
	Stations []*Location `json:"stations"`
}

// ServerInfo describes the upstream HAFAS instance.
type ServerInfo struct {
	TimetableStart        string     `json:"timetable_start,omitempty"`
	TimetableEnd          string     `json:"timetable_end,omitempty"`
	ServerTime            *time.Time `json:"server_time,omitempty"`
	RealtimeDataUpdatedAt *int64     `json:"realtime_data_updated_at,omitempty"`
}

// SubscriptionChannel is a push channel a subscription delivers to.
type SubscriptionChannel struct {
	ID string `json:"id"`
}

// Subscription is a journey the upstream watches on behalf of a user.
type Subscription struct {
	ID         int                   `json:"id"`
	Status     string                `json:"status,omitempty"`
	Channels   []SubscriptionChannel `json:"channels,omitempty"`
	Journey    *Journey              `json:"journey,omitempty"`
	Hysteresis map[string]any        `json:"hysteresis,omitempty"`
	Monitor    map[string]any        `json:"monitor,omitempty"`
	// ConnectionInfo is passed through as the upstream sends it.
	ConnectionInfo map[string]any `json:"connection_info,omitempty"`

	// Event history, only filled by Subscription.
	RealtimeEvents []*SubscriptionEvent `json:"rt_events,omitempty"`
	HimEvents      []*SubscriptionEvent `json:"him_events,omitempty"`

	JourneyRefreshToken string `json:"journey_refresh_token,omitempty"`
}

// SubscriptionEvent is one entry of a subscription's event history. Raw keeps
// the whole upstream record for fields without a model.
type SubscriptionEvent struct {
	Type   string         `json:"type,omitempty"`
	Time   *time.Time     `json:"time,omitempty"`
	Stop   *Location      `json:"stop,omitempty"`
	Remark *Remark        `json:"remark,omitempty"`
	Raw    map[string]any `json:"raw,omitempty"`
}

// SubscriptionUser is an upstream subscription account.
type SubscriptionUser struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
}
