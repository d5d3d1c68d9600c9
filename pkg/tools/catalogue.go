package tools

import "net/http"

func intPtr(n int) *int { return &n }

// Catalogue returns the full hotel tool table: rooms, reservations,
// restaurant menu and table reservations. The set is closed; adding a
// tool means adding a backend endpoint first.
func Catalogue() *Registry {
	idParam := func(desc string) Param {
		return Param{Name: "id", Type: TypeInteger, Description: desc, Required: true, InPath: true}
	}
	stayParams := func(required bool) []Param {
		return []Param{
			{Name: "checkInDate", Type: TypeString, Format: FormatDate, Required: required,
				Description: "Check-in date in YYYY-MM-DD format (e.g. 2025-10-15)"},
			{Name: "checkOutDate", Type: TypeString, Format: FormatDate, Required: required,
				Description: "Check-out date in YYYY-MM-DD format (e.g. 2025-10-18)"},
			{Name: "numberOfAdults", Type: TypeInteger, Required: required, Minimum: intPtr(1),
				Description: "Number of adult guests (minimum 1)"},
			{Name: "numberOfChildren", Type: TypeInteger, Required: required, Minimum: intPtr(0),
				Description: "Number of children (0 or more)"},
		}
	}

	return NewRegistry([]Declaration{
		{
			Name:         "rooms_list",
			Description:  "Get list of all available hotel rooms with details (type, price, capacity, amenities)",
			Method:       http.MethodGet,
			PathTemplate: "/api/v1/rooms",
		},
		{
			Name: "rooms_get",
			Description: "Get detailed information about a specific hotel room by its ID. " +
				"Returns room type, price per night, capacity, and amenities.",
			Method:       http.MethodGet,
			PathTemplate: "/api/v1/rooms/{id}",
			Params:       []Param{idParam("Room ID to retrieve details for")},
		},
		{
			Name: "rooms_filter",
			Description: "Get available hotel rooms matching specific criteria (check-in/out dates, " +
				"number of adults and children). Returns list of rooms that are available " +
				"for the specified period and can accommodate the requested number of guests.",
			Method:       http.MethodPost,
			PathTemplate: "/api/v1/rooms/filter",
			Params:       stayParams(true),
		},
		{
			Name: "reservations_list",
			Description: "Get list of all reservations. Depending on the user's role (guest vs admin), " +
				"backend will return either their own reservations or all reservations.",
			Method:       http.MethodGet,
			PathTemplate: "/api/v1/reservations",
		},
		{
			Name: "reservations_get",
			Description: "Get detailed information about a specific reservation by its ID. " +
				"Returns reservation status, dates, number of guests, room ID, and total price.",
			Method:       http.MethodGet,
			PathTemplate: "/api/v1/reservations/{id}",
			Params:       []Param{idParam("Reservation ID to retrieve details for")},
		},
		{
			Name: "reservations_create",
			Description: "Create a new room reservation for a guest. Requires room ID, check-in/out dates, " +
				"and number of guests. Returns created reservation with ID, status, and total price.",
			Method:       http.MethodPost,
			PathTemplate: "/api/v1/reservations",
			Params: append([]Param{
				{Name: "roomId", Type: TypeInteger, Required: true, Description: "ID of the room to reserve"},
			}, stayParams(true)...),
		},
		{
			Name: "reservations_update",
			Description: "Update an existing reservation. Only the provided fields change; " +
				"dates, guest counts and status are all optional.",
			Method:       http.MethodPut,
			PathTemplate: "/api/v1/reservations/{id}",
			Params: append([]Param{
				idParam("Reservation ID to update"),
			}, append(stayParams(false),
				Param{Name: "status", Type: TypeString, Description: "New reservation status"},
			)...),
		},
		{
			Name:         "reservations_cancel",
			Description:  "Cancel an existing room reservation by its ID.",
			Method:       http.MethodDelete,
			PathTemplate: "/api/v1/reservations/{id}",
			Params:       []Param{idParam("Reservation ID to cancel")},
		},
		{
			Name:         "restaurant_menu",
			Description:  "Get the hotel restaurant menu with dishes, descriptions and prices.",
			Method:       http.MethodGet,
			PathTemplate: "/api/v1/restaurant/menu",
		},
		{
			Name:         "restaurant_table_list",
			Description:  "Get list of restaurant table reservations.",
			Method:       http.MethodGet,
			PathTemplate: "/api/v1/restaurant/reservations",
		},
		{
			Name:         "restaurant_table_get",
			Description:  "Get details of a specific restaurant table reservation by its ID.",
			Method:       http.MethodGet,
			PathTemplate: "/api/v1/restaurant/reservations/{id}",
			Params:       []Param{idParam("Table reservation ID to retrieve")},
		},
		{
			Name: "restaurant_table_create",
			Description: "Reserve a restaurant table for a given date, time and number of guests. " +
				"Returns the created reservation with ID and status.",
			Method:       http.MethodPost,
			PathTemplate: "/api/v1/restaurant/reservations",
			Params: []Param{
				{Name: "date", Type: TypeString, Format: FormatDate, Required: true,
					Description: "Reservation date in YYYY-MM-DD format"},
				{Name: "time", Type: TypeString, Format: FormatTime, Required: true,
					Description: "Reservation time in HH:MM format (e.g. 19:30)"},
				{Name: "guests", Type: TypeInteger, Required: true, Minimum: intPtr(1),
					Description: "Number of guests at the table (minimum 1)"},
			},
		},
		{
			Name: "restaurant_table_update",
			Description: "Update an existing restaurant table reservation. Only the provided " +
				"fields change; date, time, guests and status are all optional.",
			Method:       http.MethodPut,
			PathTemplate: "/api/v1/restaurant/reservations/{id}",
			Params: []Param{
				idParam("Table reservation ID to update"),
				{Name: "date", Type: TypeString, Format: FormatDate,
					Description: "New reservation date in YYYY-MM-DD format"},
				{Name: "time", Type: TypeString, Format: FormatTime,
					Description: "New reservation time in HH:MM format"},
				{Name: "guests", Type: TypeInteger, Minimum: intPtr(1),
					Description: "New number of guests"},
				{Name: "status", Type: TypeString, Description: "New reservation status"},
			},
		},
		{
			Name:         "restaurant_table_cancel",
			Description:  "Cancel a restaurant table reservation by its ID.",
			Method:       http.MethodDelete,
			PathTemplate: "/api/v1/restaurant/reservations/{id}",
			Params:       []Param{idParam("Table reservation ID to cancel")},
		},
	})
}
