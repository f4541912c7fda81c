package globals

type contextKey string

const (
	UserIDKey   contextKey = "userId"
	UserNameKey contextKey = "userName"
	TokenIDKey  contextKey = "tokenId"
)
