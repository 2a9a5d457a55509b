package xstack

// Version is the release of the xstack library and CLI.
const Version = "1.0.1"
