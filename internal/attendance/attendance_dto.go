package attendance

import "time"

type ScanRequest struct {
	StudentNumber string  `json:"student_number" binding:"required"`
	Action        string  `json:"action" binding:"required,oneof=time_in time_out"`
	Location      *string `json:"location"`
	DeviceID      *string `json:"device_id"`
}

type ManualEntryRequest struct {
	CadetID   string  `json:"cadet_id" binding:"required,uuid"`
	Date      string  `json:"date" binding:"required"`
	TimeIn    string  `json:"time_in" binding:"required"`
	TimeOut   *string `json:"time_out"`
	EventName *string `json:"event_name"`
}

type AttendanceResponse struct {
	ID          string  `json:"id"`
	CadetID     string  `json:"cadet_id"`
	Date        string  `json:"date"`
	TimeIn      string  `json:"time_in"`
	TimeOut     *string `json:"time_out,omitempty"`
	Status      string  `json:"status"`
	Semester    *int    `json:"semester,omitempty"`
	WeekNumber  *int    `json:"week_number,omitempty"`
	EventName   *string `json:"event_name,omitempty"`
	Location    *string `json:"location,omitempty"`
	IsDuplicate bool    `json:"is_duplicate"`
	DuplicateOf *string `json:"duplicate_of,omitempty"`
	SyncStatus  string  `json:"sync_status"`
	DeviceID    *string `json:"device_id,omitempty"`
}

func mapToResponse(a AttendanceRecord) AttendanceResponse {
	resp := AttendanceResponse{
		ID:          a.ID.String(),
		CadetID:     a.CadetID.String(),
		Date:        a.Date.Format("2006-01-02"),
		TimeIn:      a.TimeIn.Format(time.RFC3339),
		Status:      a.Status,
		Semester:    a.Semester,
		WeekNumber:  a.WeekNumber,
		EventName:   a.EventName,
		Location:    a.Location,
		IsDuplicate: a.IsDuplicate,
		SyncStatus:  a.SyncStatus,
		DeviceID:    a.DeviceID,
	}
	if a.TimeOut != nil {
		v := a.TimeOut.Format(time.RFC3339)
		resp.TimeOut = &v
	}
	if a.DuplicateOf != nil {
		v := a.DuplicateOf.String()
		resp.DuplicateOf = &v
	}
	return resp
}
