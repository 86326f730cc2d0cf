package common

import "time"

const (
	// MaxMessageRequestBody is the default cap on POST /api/messages bodies.
	MaxMessageRequestBody = 64 << 10
	// AdminQueryTimeout bounds admin read queries.
	AdminQueryTimeout = 5 * time.Second
	// SubmitTimeout bounds the synchronous part of an intake request.
	SubmitTimeout = 10 * time.Second
)
