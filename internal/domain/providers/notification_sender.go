package providers

import "context"

// ReportNotification carries the fields rendered into the doctor-facing
// report-ready message template.
type ReportNotification struct {
	ToPhone     string
	PatientName string
	JobID       string
}

// NotificationSender delivers out-of-band notifications to doctors.
type NotificationSender interface {
	SendReportReady(ctx context.Context, notification *ReportNotification) error
}
