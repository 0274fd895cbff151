package grpc

type Appointment struct {
	ID        string `json:"id"`
	DonorID   string `json:"donor_id"`
	CenterID  string `json:"center_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	CreatedAt string `json:"created_at,omitempty"`
}

type Center struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	City  string `json:"city"`
	State string `json:"state"`
}

type CreateAppointmentRequest struct {
	DonorID  string `json:"donor_id"`
	CenterID string `json:"center_id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
}

type CreateAppointmentResponse struct {
	Appointment *Appointment `json:"appointment"`
}

type CancelAppointmentRequest struct {
	AppointmentID string `json:"appointment_id"`
	DonorID       string `json:"donor_id"`
}

type CancelAppointmentResponse struct{}

type ListAppointmentsRequest struct {
	DonorID string `json:"donor_id"`
}

type ListAppointmentsResponse struct {
	Appointments []*Appointment `json:"appointments"`
}

type HistoryEntry struct {
	Appointment *Appointment `json:"appointment"`
	Center      *Center      `json:"center"`
	Completed   bool         `json:"completed"`
}

type ListHistoryRequest struct {
	DonorID string `json:"donor_id"`
}

type ListHistoryResponse struct {
	Entries []*HistoryEntry `json:"entries"`
}

type ListOccupiedSlotsRequest struct {
	CenterID string `json:"center_id"`
	Date     string `json:"date"`
}

type ListOccupiedSlotsResponse struct {
	Times []string `json:"times"`
}
