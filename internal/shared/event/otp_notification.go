package event

// Default destinations. Deployments may rename them through
// modules.otp.queue.notification and modules.otp.queue.dead_letter.
const OTPNotificationDestination string = "otp-notification-queue"
const OTPNotificationDeadLetterDestination string = "otp-notification-dlq"

// Consumer names enabled through modules.otp.consumer_names.
const OTPNotificationConsumerDelivery string = "otp_notification_delivery"
const OTPNotificationConsumerDeadLetter string = "otp_notification_dead_letter"

// OTPNotificationMessage carries a plaintext code between the generator and
// the delivery consumer. It must only travel over trusted brokers.
type OTPNotificationMessage struct {
	ID         string `json:"id"`
	Identity   string `json:"identity"`
	Code       string `json:"code"`
	RetryCount int    `json:"retry_count"`
}
