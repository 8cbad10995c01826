package common

// APIKeyHeaderName is the HTTP header carrying the caller's access
// credential on inbound requests.
const APIKeyHeaderName = "X-API-Key"

// MaxTextLength bounds the size of text accepted for analysis. Oversized
// input is rejected before any external call.
const MaxTextLength = 4000
