package public

// Response bodies for the public API.

type messageCreatedResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

type healthResponse struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
	Database  string  `json:"database"`
}

const (
	msgSaved             = "Message saved successfully"
	errMissingFields     = "Missing required fields"
	errInvalidEmail      = "Invalid email format"
	errInvalidPhone      = "Invalid phone format"
	errInvalidBody       = "Invalid request body"
	errUnavailable       = "Service temporarily unavailable"
	msgUnavailable       = "Database connection not established"
	errSaveFailed        = "Failed to save message"
	msgSaveFailed        = "An internal server error occurred"
	msgMissingFields     = "Please fill in all required fields"
	msgInvalidEmail      = "Please provide a valid email address"
	msgInvalidPhone      = "Phone must contain 10 to 15 digits"
	msgInvalidBody       = "Request body must be a JSON object"
	databaseConnected    = "connected"
	databaseDisconnected = "disconnected"
	healthStatusHealthy  = "healthy"
)
