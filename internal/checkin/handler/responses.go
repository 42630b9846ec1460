package handler

import (
	"time"

	"kidgate/internal/checkin"
)

type checkInResponse struct {
	ID            string     `json:"id"`
	ChildID       string     `json:"childId"`
	ResponsibleID string     `json:"responsibleId"`
	SecurityCode  string     `json:"securityCode"`
	Status        string     `json:"status"`
	CheckinTime   time.Time  `json:"checkinTime"`
	CheckoutTime  *time.Time `json:"checkoutTime,omitempty"`
	Photos        []string   `json:"photos"`
}

func toResponse(record checkin.CheckIn) checkInResponse {
	photos := record.Photos
	if photos == nil {
		photos = []string{}
	}
	return checkInResponse{
		ID:            record.ID.String(),
		ChildID:       record.ChildID.String(),
		ResponsibleID: record.ResponsibleID.String(),
		SecurityCode:  record.SecurityCode,
		Status:        string(record.Status),
		CheckinTime:   record.CheckinTime,
		CheckoutTime:  record.CheckoutTime,
		Photos:        photos,
	}
}

func toResponses(records []checkin.CheckIn) []checkInResponse {
	out := make([]checkInResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toResponse(record))
	}
	return out
}
