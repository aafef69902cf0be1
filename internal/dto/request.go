package dto

type CreateBookingRequest struct {
	Seats         int    `json:"seats"`
	AttendeeName  string `json:"attendee_name"`
	AttendeePhone string `json:"attendee_phone"`
	AttendeeEmail string `json:"attendee_email"`
}
