package constants

const (
	// ContextKeyActor holds the resolved policy.Actor on the gin context.
	ContextKeyActor = "actor"
	// ContextKeyTokenClaims holds the verified bearer token claims.
	ContextKeyTokenClaims = "token_claims"
	// ContextKeyRequestID holds the request id.
	ContextKeyRequestID = "request_id"
	// ContextKeyResourceID holds the parsed :id path parameter.
	ContextKeyResourceID = "resource_id"

	HeaderRequestID = "X-Request-ID"

	// MaxNoteLength bounds the note attached to a status change.
	MaxNoteLength = 1000

	TaskCreatedNote = "Task created"
)
