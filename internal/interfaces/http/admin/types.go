package admin

import (
	"time"

	admindomain "github.com/sngm3741/dispatch-contact/api/internal/admin/domain"
	"github.com/sngm3741/dispatch-contact/api/internal/public/domain"
)

type adminMessageResponse struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstname"`
	LastName  string    `json:"lastname"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone"`
	Company   *string   `json:"company"`
	Message   *string   `json:"message"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type adminMessageListResponse struct {
	Items []adminMessageResponse `json:"items"`
	Page  int                    `json:"page"`
	Limit int                    `json:"limit"`
}

type sourceActivityResponse struct {
	IP    string    `json:"ip"`
	Since time.Time `json:"since"`
	Count int64     `json:"count"`
}

type failedNotificationResponse struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submissionId"`
	Recipient    string    `json:"recipient"`
	Kind         string    `json:"kind"`
	Error        string    `json:"error"`
	Attempts     int       `json:"attempts"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

type failedNotificationListResponse struct {
	Items []failedNotificationResponse `json:"items"`
}

func toMessageResponse(s domain.Submission) adminMessageResponse {
	return adminMessageResponse{
		ID:        s.ID,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Email:     s.Email,
		Phone:     s.Phone,
		Company:   s.Company,
		Message:   s.Message,
		IP:        s.SourceIP,
		UserAgent: s.UserAgent,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toFailedNotificationResponse(f admindomain.FailedNotification) failedNotificationResponse {
	return failedNotificationResponse{
		ID:           f.ID,
		SubmissionID: f.SubmissionID,
		Recipient:    f.Recipient,
		Kind:         f.Kind,
		Error:        f.Error,
		Attempts:     f.Attempts,
		Status:       f.Status,
		CreatedAt:    f.CreatedAt,
	}
}
