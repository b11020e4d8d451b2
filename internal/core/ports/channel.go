package ports

// ChannelManager owns the single real-time connection of a session scope.
type ChannelManager interface {
	// Ensure guarantees a connection authenticated by token, replacing one bound
	// to a different token. It reports false when no connection could be built.
	// It never blocks on the network.
	Ensure(token string) bool
	// Disconnect tears the current connection down. Safe to call repeatedly.
	Disconnect()
}
