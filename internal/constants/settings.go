package constants

const (
	// Config keys
	SettingStoreURI           = "store_uri"
	SettingOwner              = "owner"
	SettingDefaultDurationMin = "default_duration_min"
	SettingPollInterval       = "dispatcher.poll_interval"
	SettingLogDebug           = "log.debug"
)
