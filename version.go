package scripting

// Version is the library version, overridable at build time via
// -ldflags "-X ...Version=v1.2.3".
var Version = "0.1.0-dev"
