package hoapi

// Version is the SDK release.
const Version = "1.0.0"

// DefaultUserAgent is sent unless WithUserAgent overrides it.
const DefaultUserAgent = "H-GO-SDK-" + Version
