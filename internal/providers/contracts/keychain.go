package contracts

// KeychainStore reads items from the native keychain of the host.
type KeychainStore interface {
	// Lookup returns the item stored under service and account. A missing
	// item is reported with found == false and a nil error.
	Lookup(service, account string) (value string, found bool, err error)

	// Session describes whether the keychain can be reached from this process.
	Session() KeychainSession
}

// KeychainSession is the state of the keychain as seen by the process.
type KeychainSession struct {
	// Supported is false on platforms without a native backend.
	Supported bool
	// Interactive is false when nobody can answer an unlock prompt
	// (SSH sessions, CI jobs, Linux without a display).
	Interactive bool
	// Err is set when a backend exists but cannot be used.
	Err error
}
