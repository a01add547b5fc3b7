package main

const (
	SecurityProfileKey   = "SecurityProfile"
	AuthorizationKey     = "AuthorizationKey"
	HeartbeatIntervalKey = "default_heartbeat_interval"

	// SecureDataTransferKey installs a key with the value "<keyId>:<32 hex chars>".
	SecureDataTransferKey = "SecureDataTransferKey"
	// SecureDataTransferKeyIds is the read-only list of usable key ids.
	SecureDataTransferKeyIds = "SecureDataTransferKeyIds"
	// SecureDataTransferParameter is the parameter used by /secure-send by default.
	SecureDataTransferParameter = "SecureDataTransferParameter"
)

const (
	NoSecurityProfile = iota
	BasicSecurityProfile
)

var (
	supportedConfigurationKeys = map[string]struct{}{
		"HeartbeatInterval":         {},
		"ConnectionTimeOut":         {},
		"SupportedFeatureProfiles":  {},
		SecurityProfileKey:          {},
		AuthorizationKey:            {},
		SecureDataTransferKey:       {},
		SecureDataTransferKeyIds:    {},
		SecureDataTransferParameter: {},
	}

	readOnlyConfigurationKeys = map[string]struct{}{
		"SupportedFeatureProfiles": {},
		SecureDataTransferKeyIds:   {},
	}

	// never reported by GetConfiguration
	writeOnlyConfigurationKeys = map[string]struct{}{
		AuthorizationKey:      {},
		SecureDataTransferKey: {},
	}
)
