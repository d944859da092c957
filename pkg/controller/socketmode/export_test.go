package socketmode

// Serve is exported for testing
var Serve = serve
